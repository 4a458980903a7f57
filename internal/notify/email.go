package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/lightbounty/booking-site/pkg/logging"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// defaultStudioName signs owner notifications when no sender name is configured.
const defaultStudioName = "Light Bounty Studio"

// EmailSender delivers booking notifications to the studio inbox.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// EmailMessage is a plain-text booking notification. ReplyTo is the
// visitor's address so the owner can answer the request directly.
type EmailMessage struct {
	To      string
	ReplyTo string
	Subject string
	Body    string
}

// Studio is the sender identity on outgoing notifications.
type Studio struct {
	Name    string
	Address string
}

func (s Studio) withDefaults() Studio {
	s.Name = strings.TrimSpace(s.Name)
	s.Address = strings.TrimSpace(s.Address)
	if s.Name == "" {
		s.Name = defaultStudioName
	}
	return s
}

// header renders the From header value.
func (s Studio) header() string {
	return fmt.Sprintf("%s <%s>", s.Name, s.Address)
}

// SendGridSender delivers notifications through the SendGrid v3 mail API.
type SendGridSender struct {
	client *sendgrid.Client
	from   Studio
	logger *logging.Logger
}

// SendGridConfig holds the API key and the studio sender identity.
type SendGridConfig struct {
	APIKey string
	From   Studio
}

// NewSendGridSender returns nil without an API key.
func NewSendGridSender(cfg SendGridConfig, logger *logging.Logger) *SendGridSender {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SendGridSender{
		client: sendgrid.NewSendClient(cfg.APIKey),
		from:   cfg.From.withDefaults(),
		logger: logger,
	}
}

// Send posts msg to SendGrid. Any status of 400 or above is an error.
func (s *SendGridSender) Send(ctx context.Context, msg EmailMessage) error {
	if s.client == nil {
		return fmt.Errorf("notify: sendgrid client not configured")
	}

	message := mail.NewSingleEmailPlainText(
		mail.NewEmail(s.from.Name, s.from.Address),
		msg.Subject,
		mail.NewEmail("", msg.To),
		msg.Body,
	)
	if msg.ReplyTo != "" {
		message.SetReplyTo(mail.NewEmail("", msg.ReplyTo))
	}

	resp, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		s.logger.Error("booking notification not delivered", "provider", "sendgrid", "error", err)
		return fmt.Errorf("notify: sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		s.logger.Error("booking notification rejected", "provider", "sendgrid", "status", resp.StatusCode, "body", resp.Body)
		return fmt.Errorf("notify: sendgrid returned status %d", resp.StatusCode)
	}

	s.logger.Info("booking notification delivered", "provider", "sendgrid", "subject", msg.Subject, "status", resp.StatusCode)
	return nil
}

// StubEmailSender logs notifications instead of sending them. It backs local
// runs where no provider credentials exist.
type StubEmailSender struct {
	logger *logging.Logger
}

func NewStubEmailSender(logger *logging.Logger) *StubEmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubEmailSender{logger: logger}
}

func (s *StubEmailSender) Send(_ context.Context, msg EmailMessage) error {
	s.logger.Info("booking notification skipped (stub sender)", "to", msg.To, "subject", msg.Subject)
	return nil
}
