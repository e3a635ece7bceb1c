package bookings

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func confirmedBooking() *Booking {
	start := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 3)
	confirmed := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	ref := "pi_test"
	return &Booking{
		ID:               uuid.New(),
		BookingRef:       "WT-20260501-ABCDEF",
		TargetKind:       KindRoomType,
		ItemName:         "Harbour View Double",
		StartDate:        &start,
		EndDate:          &end,
		PartySize:        2,
		TotalPrice:       48000,
		Currency:         "EUR",
		Status:           StatusConfirmed,
		PaymentStatus:    PaymentPaid,
		PaymentReference: &ref,
		ConfirmedAt:      &confirmed,
	}
}

func TestQRPayload_RoundTrip(t *testing.T) {
	renderer := NewDocumentRenderer("secret")
	b := confirmedBooking()

	payload := renderer.QRPayload(b)
	assert.True(t, strings.HasPrefix(payload, b.BookingRef+"|"+b.ID.String()+"|"))

	ref, ok := renderer.VerifyQRPayload(payload)
	assert.True(t, ok)
	assert.Equal(t, b.BookingRef, ref)

	_, ok = NewDocumentRenderer("other").VerifyQRPayload(payload)
	assert.False(t, ok)

	_, ok = renderer.VerifyQRPayload("WT-20260501-ZZZZZZ|" + b.ID.String() + "|" + strings.Split(payload, "|")[2])
	assert.False(t, ok)
}

func TestQRCode_RequiresConfirmedBooking(t *testing.T) {
	renderer := NewDocumentRenderer("secret")
	b := confirmedBooking()
	b.Status = StatusPending

	_, err := renderer.QRCode(b)
	assert.ErrorIs(t, err, ErrNotConfirmed)

	_, err = renderer.Itinerary(b)
	assert.ErrorIs(t, err, ErrNotConfirmed)
}

func TestQRCode_PNG(t *testing.T) {
	png, err := NewDocumentRenderer("secret").QRCode(confirmedBooking())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}

func TestItinerary_PDF(t *testing.T) {
	pdf, err := NewDocumentRenderer("secret").Itinerary(confirmedBooking())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
}

func TestItineraryLines(t *testing.T) {
	lines := itineraryLines(confirmedBooking())
	assert.Contains(t, lines, "Reference: WT-20260501-ABCDEF")
	assert.Contains(t, lines, "Type: room type")
	assert.Contains(t, lines, "Travellers: 2")
	assert.Contains(t, lines, "Payment reference: pi_test")
}
