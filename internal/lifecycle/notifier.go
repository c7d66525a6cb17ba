// internal/lifecycle/notifier.go
package lifecycle

import (
	"context"

	commonaws "docverify/internal/common/aws"
	"docverify/internal/common/config"
	"docverify/internal/common/errors"
	"docverify/internal/common/logger"
	"docverify/internal/common/metrics"
	"docverify/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// Notifier delivers fire-and-forget messages. Failures are surfaced as
// errors for the caller to log, never to propagate.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification) error
}

// AWSNotifier sends email through SES and SMS through SNS.
type AWSNotifier struct {
	ses    commonaws.SESService
	sns    commonaws.SNSService
	cfg    config.NotificationConfig
	logger logger.Logger
}

func NewAWSNotifier(sesClient commonaws.SESService, snsClient commonaws.SNSService, cfg config.NotificationConfig, log logger.Logger) *AWSNotifier {
	return &AWSNotifier{ses: sesClient, sns: snsClient, cfg: cfg, logger: log}
}

func (n *AWSNotifier) Notify(ctx context.Context, note models.Notification) error {
	switch note.Channel {
	case models.NotificationChannelEmail:
		return n.sendEmail(ctx, note)
	case models.NotificationChannelSMS:
		return n.sendSMS(ctx, note)
	default:
		return errors.NewValidationError("Unknown notification channel", note.Channel)
	}
}

func (n *AWSNotifier) sendEmail(ctx context.Context, note models.Notification) error {
	if !n.cfg.Email.Enabled {
		n.logger.Debug("Email notifications disabled, skipping", map[string]interface{}{"recipient": note.Recipient})
		return nil
	}

	_, err := n.ses.SendEmail(ctx, &ses.SendEmailInput{
		Source:      aws.String(n.cfg.Email.FromEmail),
		Destination: &sestypes.Destination{ToAddresses: []string{note.Recipient}},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: aws.String(note.Subject)},
			Body:    &sestypes.Body{Text: &sestypes.Content{Data: aws.String(note.Body)}},
		},
	})
	if err != nil {
		metrics.NotificationsSent.WithLabelValues(models.NotificationChannelEmail, "failed").Inc()
		return errors.NewNotificationSendFailedError(models.NotificationChannelEmail, err)
	}
	metrics.NotificationsSent.WithLabelValues(models.NotificationChannelEmail, "ok").Inc()
	return nil
}

func (n *AWSNotifier) sendSMS(ctx context.Context, note models.Notification) error {
	if !n.cfg.SMS.Enabled {
		n.logger.Debug("SMS notifications disabled, skipping", map[string]interface{}{"recipient": note.Recipient})
		return nil
	}

	input := &sns.PublishInput{
		PhoneNumber: aws.String(note.Recipient),
		Message:     aws.String(note.Body),
	}
	if n.cfg.SMS.SenderID != "" {
		input.MessageAttributes = map[string]snstypes.MessageAttributeValue{
			"AWS.SNS.SMS.SenderID": {
				DataType:    aws.String("String"),
				StringValue: aws.String(n.cfg.SMS.SenderID),
			},
		}
	}

	_, err := n.sns.Publish(ctx, input)
	if err != nil {
		metrics.NotificationsSent.WithLabelValues(models.NotificationChannelSMS, "failed").Inc()
		return errors.NewNotificationSendFailedError(models.NotificationChannelSMS, err)
	}
	metrics.NotificationsSent.WithLabelValues(models.NotificationChannelSMS, "ok").Inc()
	return nil
}
