package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"worldtour/internal/bookings"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDirectory struct{}

func (fakeDirectory) GetUserByID(_ context.Context, _ uuid.UUID) (string, string, string, error) {
	return "ada@example.com", "Ada", "Lovelace", nil
}

type recordingMailer struct {
	mu       sync.Mutex
	failures int
	sent     []*EmailNotification
}

func (m *recordingMailer) Send(_ context.Context, n *EmailNotification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures > 0 {
		m.failures--
		return errors.New("421 try again later")
	}
	m.sent = append(m.sent, n)
	return nil
}

func sampleBooking() bookings.Booking {
	start := time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)
	return bookings.Booking{
		ID:         uuid.New(),
		BookingRef: "WT-20260901-LKJHGF",
		UserID:     uuid.New(),
		TargetKind: bookings.KindDestination,
		ItemName:   "Santorini",
		StartDate:  &start,
		PartySize:  2,
		TotalPrice: 180000,
		Currency:   "EUR",
		Status:     bookings.StatusConfirmed,
	}
}

func TestBookingConfirmed_PublishesToKafka(t *testing.T) {
	producer := mocks.NewSyncProducer(t, NewSaramaProducerConfig())
	booking := sampleBooking()

	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var n EmailNotification
		if err := json.Unmarshal(val, &n); err != nil {
			return err
		}
		if n.Type != NotificationTypeBookingConfirmed || n.RecipientEmail != "ada@example.com" {
			return errors.New("unexpected notification")
		}
		if n.TemplateData["booking_ref"] != booking.BookingRef || n.TemplateData["total"] != "1800.00 EUR" {
			return errors.New("unexpected template data")
		}
		return nil
	})

	svc := NewServiceWithPublisher(fakeDirectory{}, NewKafkaPublisherWithProducer(producer, "notifications"), nil)
	require.NoError(t, svc.BookingConfirmed(context.Background(), booking))
	require.NoError(t, svc.Stop())
}

func TestKafkaPublisher_SendFailure(t *testing.T) {
	producer := mocks.NewSyncProducer(t, NewSaramaProducerConfig())
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	n := NewNotificationBuilder().WithType(NotificationTypeBookingCancelled).Build()
	err := NewKafkaPublisherWithProducer(producer, "notifications").Publish(context.Background(), n)

	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	assert.Equal(t, NotificationStatusFailed, n.Status)
	require.NoError(t, producer.Close())
}

func TestBookingCancelled_DirectDelivery(t *testing.T) {
	mailer := &recordingMailer{failures: 1}
	publisher := &DirectPublisher{mailer: mailer, maxRetries: 2, backoff: time.Millisecond}
	svc := NewServiceWithPublisher(fakeDirectory{}, publisher, nil)

	booking := sampleBooking()
	booking.Status = bookings.StatusCancelled
	booking.CancellationReason = "plans changed"
	require.NoError(t, svc.BookingCancelled(context.Background(), booking))

	require.Len(t, mailer.sent, 1)
	n := mailer.sent[0]
	assert.Equal(t, "Booking cancelled: Santorini", n.Subject)
	assert.Equal(t, "Ada Lovelace", n.RecipientName)
	assert.Equal(t, NotificationStatusSent, n.Status)
	assert.Equal(t, 1, n.RetryCount)
}

func TestDeliver_GivesUp(t *testing.T) {
	mailer := &recordingMailer{failures: 10}
	n := NewNotificationBuilder().WithType(NotificationTypeBookingConfirmed).Build()

	err := deliver(context.Background(), mailer, n, 2, time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3 attempts")
	assert.Equal(t, NotificationStatusFailed, n.Status)
	assert.Equal(t, 7, mailer.failures)
}

func TestProcessMessage(t *testing.T) {
	mailer := &recordingMailer{}
	handler := newDeliveryHandler(mailer, 0, time.Millisecond)

	fresh := NewNotificationBuilder().WithType(NotificationTypeBookingConfirmed).
		WithRecipient(uuid.New(), "a@b.c", "A").
		WithExpiration(time.Now().Add(time.Hour)).
		Build()
	value, err := fresh.ToJSON()
	require.NoError(t, err)
	require.NoError(t, handler.processMessage(context.Background(), &sarama.ConsumerMessage{Value: value}))

	stale := NewNotificationBuilder().WithType(NotificationTypeBookingConfirmed).
		WithExpiration(time.Now().Add(-time.Minute)).
		Build()
	value, err = stale.ToJSON()
	require.NoError(t, err)
	require.NoError(t, handler.processMessage(context.Background(), &sarama.ConsumerMessage{Value: value}))

	assert.Len(t, mailer.sent, 1)
	assert.Error(t, handler.processMessage(context.Background(), &sarama.ConsumerMessage{Value: []byte("{")}))
}

func TestRenderBodies(t *testing.T) {
	booking := sampleBooking()
	n := NewNotificationBuilder().
		WithType(NotificationTypeBookingConfirmed).
		WithRecipient(booking.UserID, "ada@example.com", "Ada <script>").
		WithTemplateData(bookingTemplateData(booking)).
		Build()

	text, html, err := renderBodies(n)
	require.NoError(t, err)

	assert.Contains(t, text, "Hi Ada <script>,")
	assert.Contains(t, text, "WT-20260901-LKJHGF")
	assert.Contains(t, text, "Travel date: Mon, 14 Sep 2026")
	assert.Contains(t, text, "Total paid: 1800.00 EUR")
	assert.Contains(t, html, "Ada &lt;script&gt;")
	assert.False(t, strings.Contains(html, "<script>"))

	_, _, err = renderBodies(&EmailNotification{Type: "UNKNOWN"})
	assert.Error(t, err)
}
