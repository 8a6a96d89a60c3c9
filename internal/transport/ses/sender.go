// Package ses delivers mail through Amazon SES v2, one SendEmail call per
// recipient.
package ses

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/ignite/graphmail/internal/domain"
	"github.com/ignite/graphmail/internal/metrics"
	"github.com/ignite/graphmail/internal/pkg/logger"
	"github.com/ignite/graphmail/internal/service/sending"
)

// API is the subset of the SES v2 client used here.
type API interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// Config holds SES credentials. Empty keys fall back to the default AWS
// credential chain.
type Config struct {
	Region           string
	AccessKey        string
	SecretKey        string
	ConfigurationSet string
}

// Sender is a sending.Transport backed by SES.
type Sender struct {
	api        API
	configSet  string
	senderType string
}

var _ sending.Transport = (*Sender)(nil)

// New loads AWS configuration and returns a Sender.
func New(ctx context.Context, cfg Config) (*Sender, error) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("ses: load aws config: %w", err)
	}
	return NewWithAPI(sesv2.NewFromConfig(awsCfg), cfg.ConfigurationSet), nil
}

// NewWithAPI wraps an existing SES client.
func NewWithAPI(api API, configurationSet string) *Sender {
	return &Sender{api: api, configSet: configurationSet, senderType: domain.SenderTypeSES}
}

// Send delivers msg. A MessageRejected response is attributed to the
// recipient; every other failure is not.
func (s *Sender) Send(ctx context.Context, msg domain.OutboundMessage) error {
	content := &types.Content{Data: aws.String(msg.Body), Charset: aws.String("UTF-8")}
	body := &types.Body{Text: content}
	if msg.IsHTML {
		body = &types.Body{Html: content}
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(msg.From.String()),
		Destination:      &types.Destination{ToAddresses: []string{msg.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body:    body,
			},
		},
	}
	if s.configSet != "" {
		input.ConfigurationSetName = aws.String(s.configSet)
	}

	out, err := s.api.SendEmail(ctx, input)
	if err != nil {
		metrics.IncTransportRequest(s.senderType, "error")
		return classify(err)
	}
	metrics.IncTransportRequest(s.senderType, "2xx")

	logger.Debug("ses accepted message", "recipient", msg.To, "message_id", aws.ToString(out.MessageId))
	return nil
}

func classify(err error) error {
	var rejected *types.MessageRejected
	if errors.As(err, &rejected) {
		return &sending.TransportError{
			Code:                  rejected.ErrorCode(),
			Message:               rejected.ErrorMessage(),
			RecipientAttributable: true,
		}
	}

	code := "SESError"
	var paused *types.SendingPausedException
	var suspended *types.AccountSuspendedException
	var unverified *types.MailFromDomainNotVerifiedException
	var throttled *types.TooManyRequestsException
	switch {
	case errors.As(err, &paused):
		code = paused.ErrorCode()
	case errors.As(err, &suspended):
		code = suspended.ErrorCode()
	case errors.As(err, &unverified):
		code = unverified.ErrorCode()
	case errors.As(err, &throttled):
		code = throttled.ErrorCode()
	}
	return &sending.TransportError{Code: code, Message: err.Error()}
}
