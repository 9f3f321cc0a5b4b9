package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"

	"github.com/matthieukhl/loyaltydesk/internal/config"
	"github.com/matthieukhl/loyaltydesk/internal/types"
)

// Publisher is the part of the SNS client used here
type Publisher interface {
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// EmailSender is the part of the SESv2 client used here
type EmailSender interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// AWS sends SMS through SNS and email through SESv2.
type AWS struct {
	sms      Publisher
	email    EmailSender
	from     string
	senderID string
	logger   *slog.Logger
}

func NewAWS(sms Publisher, email EmailSender, cfg config.NotifyConfig, logger *slog.Logger) *AWS {
	return &AWS{sms: sms, email: email, from: cfg.FromEmail, senderID: cfg.SMSSenderID, logger: logger}
}

var _ types.Notifier = (*AWS)(nil)

// SendSMS publishes a transactional text. The phone number must be E.164.
func (a *AWS) SendSMS(ctx context.Context, phone, message string) error {
	attrs := map[string]snstypes.MessageAttributeValue{
		"AWS.SNS.SMS.SMSType": {
			DataType:    str("String"),
			StringValue: str("Transactional"),
		},
	}
	if a.senderID != "" {
		attrs["AWS.SNS.SMS.SenderID"] = snstypes.MessageAttributeValue{
			DataType:    str("String"),
			StringValue: str(a.senderID),
		}
	}

	out, err := a.sms.Publish(ctx, &sns.PublishInput{
		Message:           aws.String(message),
		PhoneNumber:       aws.String(phone),
		MessageAttributes: attrs,
	})
	if err != nil {
		return fmt.Errorf("failed to send sms: %w", err)
	}
	a.logger.Info("sms sent", "message_id", aws.ToString(out.MessageId))
	return nil
}

func (a *AWS) SendEmail(ctx context.Context, to, subject, body string) error {
	if a.from == "" {
		return ErrNoSender
	}
	_, err := a.email.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(a.from),
		Destination:      &sestypes.Destination{ToAddresses: []string{to}},
		Content: &sestypes.EmailContent{
			Simple: &sestypes.Message{
				Subject: &sestypes.Content{Data: aws.String(subject)},
				Body:    &sestypes.Body{Text: &sestypes.Content{Data: aws.String(body)}},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	a.logger.Info("email sent", "to", to, "subject", subject)
	return nil
}
