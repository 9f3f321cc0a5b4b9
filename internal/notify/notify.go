// Package notify delivers referral texts and redemption confirmations.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/matthieukhl/loyaltydesk/internal/config"
	"github.com/matthieukhl/loyaltydesk/internal/types"
)

// New creates a notifier based on configuration
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (types.Notifier, error) {
	switch cfg.Notify.Provider {
	case "", "log":
		return NewLog(logger), nil
	case "aws":
		awsCfg, err := config.LoadAWS(ctx, cfg.AWS)
		if err != nil {
			return nil, err
		}
		return NewAWS(sns.NewFromConfig(awsCfg), sesv2.NewFromConfig(awsCfg), cfg.Notify, logger), nil
	default:
		return nil, fmt.Errorf("unsupported notify provider: %s", cfg.Notify.Provider)
	}
}

// Log writes messages to the logger instead of sending them.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger}
}

var _ types.Notifier = (*Log)(nil)

func (l *Log) SendSMS(_ context.Context, phone, message string) error {
	l.logger.Info("sms not sent, log notifier", "phone", phone, "message", message)
	return nil
}

func (l *Log) SendEmail(_ context.Context, to, subject, _ string) error {
	l.logger.Info("email not sent, log notifier", "to", to, "subject", subject)
	return nil
}

// ErrNoSender is returned when email is requested without a from address.
var ErrNoSender = errors.New("notify.from_email is not configured")

func str(s string) *string { return aws.String(s) }
