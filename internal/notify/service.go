package notify

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/lightbounty/booking-site/internal/booking"
	"github.com/lightbounty/booking-site/pkg/logging"
)

var bookingBody = template.Must(template.New("booking").Option("missingkey=error").Parse(
	`New booking request

Name:     {{.FullName}}
Email:    {{.Email}}
Category: {{.Category}}
Plan:     {{.Plan}}

{{.Message}}
{{- with .SiteURL}}

Sent from the booking form at {{.}}/#booking
{{- end}}
`))

type bookingEmail struct {
	booking.Request
	SiteURL string
}

// BookingNotifier e-mails the studio owner when a booking request was stored.
type BookingNotifier struct {
	email   EmailSender
	to      string
	siteURL string
	logger  *logging.Logger
}

// NewBookingNotifier returns nil when there is no sender or recipient, which
// disables notifications. siteURL is the public address of the landing page;
// when set the e-mail links back to its booking section.
func NewBookingNotifier(email EmailSender, to, siteURL string, logger *logging.Logger) *BookingNotifier {
	to = strings.TrimSpace(to)
	if email == nil || to == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &BookingNotifier{
		email:   email,
		to:      to,
		siteURL: strings.TrimRight(strings.TrimSpace(siteURL), "/"),
		logger:  logger,
	}
}

// BookingReceived sends the owner a summary with Reply-To set to the visitor.
func (n *BookingNotifier) BookingReceived(ctx context.Context, req booking.Request) error {
	if n == nil {
		return nil
	}
	var body bytes.Buffer
	if err := bookingBody.Execute(&body, bookingEmail{Request: req, SiteURL: n.siteURL}); err != nil {
		return fmt.Errorf("notify: render booking email: %w", err)
	}
	msg := EmailMessage{
		To:      n.to,
		ReplyTo: req.Email,
		Subject: fmt.Sprintf("Booking request: %s (%s)", req.FullName, req.Plan),
		Body:    body.String(),
	}
	if err := n.email.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify: booking email: %w", err)
	}
	n.logger.Debug("booking notification sent", "plan", req.Plan)
	return nil
}
