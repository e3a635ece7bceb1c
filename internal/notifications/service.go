package notifications

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"worldtour/internal/bookings"
	"worldtour/internal/shared/config"
	"worldtour/pkg/logger"

	"github.com/google/uuid"
)

// UserDirectory resolves the recipient of a booking notice
type UserDirectory interface {
	GetUserByID(ctx context.Context, userID uuid.UUID) (email, firstName, lastName string, err error)
}

// Service turns booking lifecycle events into emails. With Kafka enabled the
// emails are queued and sent by the consumer group, otherwise they are sent
// in-process.
type Service struct {
	users     UserDirectory
	publisher Publisher
	consumer  *KafkaConsumer
	log       *logger.Logger
}

// NewService wires the publisher and, when Kafka is enabled, the consumer
func NewService(cfg *config.Config, users UserDirectory) (*Service, error) {
	var mailer Mailer = NewLogMailer()
	if cfg.Email.SMTPHost != "" {
		smtpMailer, err := NewSMTPMailer(cfg.Email)
		if err != nil {
			return nil, fmt.Errorf("invalid SMTP configuration: %w", err)
		}
		mailer = smtpMailer
	}

	if !cfg.Kafka.Enabled {
		return NewServiceWithPublisher(users, NewDirectPublisher(mailer, cfg.Kafka.MaxRetries), nil), nil
	}

	publisher, err := NewKafkaPublisher(cfg.Kafka)
	if err != nil {
		return nil, err
	}
	consumer, err := NewKafkaConsumer(cfg.Kafka, mailer)
	if err != nil {
		_ = publisher.Close()
		return nil, err
	}
	return NewServiceWithPublisher(users, publisher, consumer), nil
}

func NewServiceWithPublisher(users UserDirectory, publisher Publisher, consumer *KafkaConsumer) *Service {
	return &Service{users: users, publisher: publisher, consumer: consumer, log: logger.GetDefault()}
}

func (s *Service) Start(ctx context.Context) {
	if s.consumer != nil {
		s.consumer.Start(ctx)
	}
}

func (s *Service) Stop() error {
	if s.consumer != nil {
		if err := s.consumer.Stop(); err != nil {
			s.log.Warn("Error stopping notification consumer", "error", err.Error())
		}
	}
	return s.publisher.Close()
}

func (s *Service) BookingConfirmed(ctx context.Context, booking bookings.Booking) error {
	return s.notify(ctx, NotificationTypeBookingConfirmed, booking)
}

func (s *Service) BookingCancelled(ctx context.Context, booking bookings.Booking) error {
	return s.notify(ctx, NotificationTypeBookingCancelled, booking)
}

func (s *Service) notify(ctx context.Context, notType NotificationType, booking bookings.Booking) error {
	email, firstName, lastName, err := s.users.GetUserByID(ctx, booking.UserID)
	if err != nil {
		return fmt.Errorf("failed to resolve recipient: %w", err)
	}

	name := firstName
	if lastName != "" {
		name += " " + lastName
	}

	n := NewNotificationBuilder().
		WithType(notType).
		WithRecipient(booking.UserID, email, name).
		WithBookingContext(booking.ID).
		WithTemplateData(bookingTemplateData(booking)).
		WithExpiration(time.Now().UTC().Add(72 * time.Hour)).
		Build()

	if err := s.publisher.Publish(ctx, n); err != nil {
		return err
	}
	return nil
}

func bookingTemplateData(b bookings.Booking) map[string]string {
	data := map[string]string{
		"booking_ref": b.BookingRef,
		"item_name":   b.ItemName,
		"party_size":  strconv.Itoa(b.PartySize),
		"total":       b.Total().String(),
		"reason":      b.CancellationReason,
	}
	if start := b.ServiceStart(); start != nil {
		data["start"] = start.Format("Mon, 02 Jan 2006")
	}
	return data
}
