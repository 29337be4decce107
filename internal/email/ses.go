package email

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/rs/zerolog"

	"github.com/ignite/newsletter/internal/config"
	"github.com/ignite/newsletter/internal/domain"
	"github.com/ignite/newsletter/internal/pkg/logger"
)

const charsetUTF8 = "UTF-8"

// sesAPI is the subset of *sesv2.Client used by SES.
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SES sends email via AWS SES using the SDK v2.
type SES struct {
	client  sesAPI
	sender  domain.SubscriberEmail
	timeout time.Duration
	log     zerolog.Logger
	now     func() time.Time
}

// NewSES creates an SES sender from configuration. Static credentials are
// used when both keys are set; otherwise the default AWS credential chain
// applies. A non-empty endpoint URL points the client at a local stub.
func NewSES(ctx context.Context, cfg config.SESConfig, sender domain.SubscriberEmail, timeout time.Duration, log zerolog.Logger) (*SES, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	client := sesv2.NewFromConfig(awsCfg, func(o *sesv2.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
		}
	})
	return NewSESFromClient(client, sender, timeout, log), nil
}

// NewSESFromClient wraps an existing SES v2 client.
func NewSESFromClient(client *sesv2.Client, sender domain.SubscriberEmail, timeout time.Duration, log zerolog.Logger) *SES {
	return &SES{
		client:  client,
		sender:  sender,
		timeout: timeout,
		log:     log.With().Str("component", "ses").Logger(),
		now:     time.Now,
	}
}

// Send delivers a single email through AWS SES.
func (s *SES) Send(ctx context.Context, msg Message) (Receipt, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.sender.String()),
		Destination:      &types.Destination{ToAddresses: []string{msg.To.String()}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String(charsetUTF8)},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(msg.HTML), Charset: aws.String(charsetUTF8)},
					Text: &types.Content{Data: aws.String(msg.Text), Charset: aws.String(charsetUTF8)},
				},
			},
		},
	}

	out, err := s.client.SendEmail(callCtx, input)
	if err != nil {
		derr := deliveryError(callCtx, ProviderSES, msg.To, err)
		s.log.Warn().
			Str("to", logger.RedactEmail(msg.To.String())).
			Bool("timeout", derr.Timeout).
			Str("error", logger.Redact(err.Error())).
			Msg("send failed")
		return Receipt{}, derr
	}

	receipt := Receipt{Provider: ProviderSES, SentAt: s.now()}
	if out.MessageId != nil {
		receipt.MessageID = *out.MessageId
	}
	s.log.Debug().
		Str("to", logger.RedactEmail(msg.To.String())).
		Str("message_id", receipt.MessageID).
		Msg("sent")
	return receipt, nil
}
