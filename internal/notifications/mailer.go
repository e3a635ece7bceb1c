package notifications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"worldtour/internal/shared/config"
	"worldtour/pkg/logger"

	"github.com/wneessen/go-mail"
)

// Mailer delivers a rendered notification to its recipient
type Mailer interface {
	Send(ctx context.Context, notification *EmailNotification) error
}

// SMTPMailer sends through an SMTP relay with go-mail
type SMTPMailer struct {
	cfg config.EmailConfig
}

func NewSMTPMailer(cfg config.EmailConfig) (*SMTPMailer, error) {
	switch {
	case cfg.SMTPHost == "":
		return nil, errors.New("SMTP host is required")
	case cfg.SMTPPort <= 0 || cfg.SMTPPort > 65535:
		return nil, errors.New("SMTP port must be between 1 and 65535")
	case cfg.FromEmail == "":
		return nil, errors.New("from email is required")
	}
	return &SMTPMailer{cfg: cfg}, nil
}

func (m *SMTPMailer) Send(ctx context.Context, n *EmailNotification) error {
	msg, err := m.buildMessage(n)
	if err != nil {
		return err
	}

	opts := []mail.Option{mail.WithPort(m.cfg.SMTPPort), mail.WithTimeout(30 * time.Second)}
	if m.cfg.SMTPUsername != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.SMTPUsername),
			mail.WithPassword(m.cfg.SMTPPassword),
		)
	}
	client, err := mail.NewClient(m.cfg.SMTPHost, opts...)
	if err != nil {
		return fmt.Errorf("failed to create mail client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (m *SMTPMailer) buildMessage(n *EmailNotification) (*mail.Msg, error) {
	text, html, err := renderBodies(n)
	if err != nil {
		return nil, err
	}

	msg := mail.NewMsg()
	if err := msg.FromFormat(m.cfg.FromName, m.cfg.FromEmail); err != nil {
		return nil, fmt.Errorf("invalid sender: %w", err)
	}
	if err := msg.AddToFormat(n.RecipientName, n.RecipientEmail); err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}
	msg.Subject(n.Subject)
	msg.SetBodyString(mail.TypeTextPlain, text)
	msg.AddAlternativeString(mail.TypeTextHTML, html)
	return msg, nil
}

// LogMailer writes notifications to the log; used when no SMTP relay is configured
type LogMailer struct {
	log *logger.Logger
}

func NewLogMailer() *LogMailer {
	return &LogMailer{log: logger.GetDefault()}
}

func (m *LogMailer) Send(_ context.Context, n *EmailNotification) error {
	text, _, err := renderBodies(n)
	if err != nil {
		return err
	}
	m.log.Info("📧 Email (not sent, SMTP disabled)",
		"type", string(n.Type),
		"to", n.RecipientEmail,
		"subject", n.Subject,
		"body", text,
	)
	return nil
}

// deliver sends n, retrying with exponential backoff up to maxRetries times
func deliver(ctx context.Context, mailer Mailer, n *EmailNotification, maxRetries int, backoff time.Duration) error {
	n.Status = NotificationStatusSending
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err = mailer.Send(ctx, n); err == nil {
			n.MarkSent()
			return nil
		}
		n.RetryCount = attempt + 1
		if attempt == maxRetries {
			break
		}

		select {
		case <-time.After(backoff * time.Duration(1<<attempt)):
		case <-ctx.Done():
			n.MarkFailed(ctx.Err())
			return ctx.Err()
		}
	}
	n.MarkFailed(err)
	return fmt.Errorf("giving up after %d attempts: %w", maxRetries+1, err)
}
