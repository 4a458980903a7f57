package bootstrap

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	appconfig "github.com/lightbounty/booking-site/internal/config"
	"github.com/lightbounty/booking-site/internal/notify"
	"github.com/lightbounty/booking-site/pkg/logging"
)

// Email providers accepted in EMAIL_PROVIDER.
const (
	EmailProviderSendGrid = "sendgrid"
	EmailProviderSES      = "ses"
	EmailProviderNone     = "none"
)

// BuildNotifier returns the owner notifier, or nil when notifications are
// disabled or cannot be configured. Misconfiguration is logged, not fatal.
func BuildNotifier(ctx context.Context, cfg *appconfig.Config, loadAWS AWSConfigLoader, logger *logging.Logger) *notify.BookingNotifier {
	if cfg == nil {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	sender := buildEmailSender(ctx, cfg, loadAWS, logger)
	if sender == nil {
		return nil
	}
	n := notify.NewBookingNotifier(sender, cfg.NotifyEmail, cfg.PublicBaseURL, logger)
	if n == nil {
		logger.Warn("email provider set but NOTIFY_EMAIL is empty; notifications disabled", "provider", cfg.EmailProvider)
		return nil
	}
	logger.Info("booking notifications enabled", "provider", cfg.EmailProvider)
	return n
}

func buildEmailSender(ctx context.Context, cfg *appconfig.Config, loadAWS AWSConfigLoader, logger *logging.Logger) notify.EmailSender {
	switch cfg.EmailProvider {
	case EmailProviderSendGrid:
		s := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey: cfg.SendGridAPIKey,
			From:   studioSender(cfg),
		}, logger)
		if s == nil {
			logger.Warn("EMAIL_PROVIDER=sendgrid but SENDGRID_API_KEY is empty")
			return nil
		}
		return s
	case EmailProviderSES:
		if loadAWS == nil {
			logger.Warn("EMAIL_PROVIDER=ses but no AWS config is available")
			return nil
		}
		awsCfg, err := loadAWS(ctx)
		if err != nil {
			logger.Warn("failed to load aws config for ses", "error", err)
			return nil
		}
		return notify.NewSESSender(sesv2.NewFromConfig(awsCfg), studioSender(cfg), logger)
	case "", EmailProviderNone:
		return nil
	default:
		logger.Warn("unknown EMAIL_PROVIDER; notifications disabled", "provider", cfg.EmailProvider)
		return nil
	}
}

// studioSender is the From identity shared by both providers.
func studioSender(cfg *appconfig.Config) notify.Studio {
	return notify.Studio{Name: cfg.SendGridFromName, Address: cfg.SendGridFromEmail}
}
