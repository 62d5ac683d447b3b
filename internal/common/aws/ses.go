// internal/common/aws/ses.go

// Package aws wraps the AWS SDK clients behind the narrow surfaces the
// notification path needs. Decision emails go out through SES and decision
// texts through SNS; nothing else in the codebase talks to AWS.
package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
)

// SESClient sends application-decision emails. It satisfies
// notify.EmailSender.
type SESClient struct {
	client *ses.Client
}

// NewSESClient builds a client from the ambient AWS credential chain,
// pinned to the configured region.
func NewSESClient(ctx context.Context, region string) (*SESClient, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &SESClient{client: ses.NewFromConfig(cfg)}, nil
}

func (s *SESClient) SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error) {
	return s.client.SendEmail(ctx, input)
}
