// internal/notify/notify.go

// Package notify delivers status decision notifications to a musician's
// contact snapshot via SES email and SNS SMS. Delivery is best effort per
// channel; a failed channel never rolls back the decision itself.
package notify

import (
	"context"
	"fmt"
	"strings"

	"musikmatch/internal/common/config"
	"musikmatch/internal/common/errors"
	"musikmatch/internal/common/logger"
	"musikmatch/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// EmailSender is satisfied by the SES client wrapper.
type EmailSender interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error)
}

// SMSSender is satisfied by the SNS client wrapper.
type SMSSender interface {
	Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error)
}

type Notifier struct {
	config config.NotificationConfig
	email  EmailSender
	sms    SMSSender
	logger logger.Logger
}

func NewNotifier(cfg config.NotificationConfig, email EmailSender, sms SMSSender, log logger.Logger) *Notifier {
	return &Notifier{
		config: cfg,
		email:  email,
		sms:    sms,
		logger: log.WithFields(map[string]interface{}{"component": "notifier"}),
	}
}

// NotifyDecision tells the applicant their application was accepted or
// rejected. Channels without a contact value, or disabled in config, are
// skipped silently; a send failure on any attempted channel is returned
// after all channels were tried.
func (n *Notifier) NotifyDecision(ctx context.Context, app models.Application, gig models.Gig) error {
	if !app.Status.Decided() {
		return errors.NewMissingFieldError("status")
	}

	subject, body := decisionCopy(app, gig)
	var failed []string

	if n.config.Email.Enabled && n.email != nil && app.Contact.Email != "" {
		if err := n.sendEmail(ctx, app.Contact.Email, subject, body); err != nil {
			n.logger.Error("decision email failed", map[string]interface{}{
				"applicationId": app.ID,
				"error":         err.Error(),
			})
			failed = append(failed, "email")
		}
	}

	if n.config.SMS.Enabled && n.sms != nil && app.Contact.Phone != "" {
		if err := n.sendSMS(ctx, app.Contact.Phone, body); err != nil {
			n.logger.Error("decision sms failed", map[string]interface{}{
				"applicationId": app.ID,
				"error":         err.Error(),
			})
			failed = append(failed, "sms")
		}
	}

	if len(failed) > 0 {
		return errors.NewNotifySendFailedError(strings.Join(failed, ","),
			fmt.Errorf("delivery failed for application %d", app.ID))
	}
	return nil
}

func (n *Notifier) sendEmail(ctx context.Context, to, subject, body string) error {
	_, err := n.email.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(n.config.Email.FromEmail),
		Destination: &sestypes.Destination{
			ToAddresses: []string{to},
		},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{
				Data:    aws.String(subject),
				Charset: aws.String("UTF-8"),
			},
			Body: &sestypes.Body{
				Text: &sestypes.Content{
					Data:    aws.String(body),
					Charset: aws.String("UTF-8"),
				},
			},
		},
	})
	return err
}

func (n *Notifier) sendSMS(ctx context.Context, phone, body string) error {
	input := &sns.PublishInput{
		PhoneNumber: aws.String(phone),
		Message:     aws.String(body),
	}
	if n.config.SMS.SenderID != "" {
		input.MessageAttributes = map[string]snstypes.MessageAttributeValue{
			"AWS.SNS.SMS.SenderID": {
				DataType:    aws.String("String"),
				StringValue: aws.String(n.config.SMS.SenderID),
			},
		}
	}
	_, err := n.sms.Publish(ctx, input)
	return err
}

func decisionCopy(app models.Application, gig models.Gig) (subject, body string) {
	when := gig.StartTime.Format("Mon, 2 Jan 2006 15:04")
	switch app.Status {
	case models.StatusAccepted:
		subject = fmt.Sprintf("You're booked: %s", gig.Title)
		body = fmt.Sprintf("Good news! Your application for %q on %s was accepted. The venue can now see your contact details and may reach out directly.", gig.Title, when)
	default:
		subject = fmt.Sprintf("Update on your application: %s", gig.Title)
		body = fmt.Sprintf("Your application for %q on %s was not selected this time.", gig.Title, when)
	}
	return subject, body
}
