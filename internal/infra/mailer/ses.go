package mailer

import (
	"context"
	"fmt"
	netmail "net/mail"

	"discount_reminder/internal/domain/mail"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/sirupsen/logrus"
)

// SESService is the subset of the SES client used here, so tests can stub it.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESSender delivers mail.Message values through Amazon SES.
// SendEmail has no custom header support, so Message.Headers are dropped.
type SESSender struct {
	client SESService
	logger *logrus.Entry
}

// NewSESSender builds a sender from the default AWS credential chain.
func NewSESSender(ctx context.Context, region string, logger *logrus.Entry) (*SESSender, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return NewSESSenderWithClient(ses.NewFromConfig(awsCfg), logger), nil
}

func NewSESSenderWithClient(client SESService, logger *logrus.Entry) *SESSender {
	return &SESSender{client: client, logger: logger.WithField("mail_driver", "ses")}
}

func (s *SESSender) Send(ctx context.Context, msg *mail.Message) error {
	source := netmail.Address{Name: msg.FromName, Address: msg.FromEmail}

	out, err := s.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(msg.Body), Charset: aws.String("UTF-8")},
			},
		},
		Source: aws.String(source.String()),
	})
	if err != nil {
		return fmt.Errorf("ses send to %s: %w", msg.To, err)
	}
	var messageID string
	if out != nil {
		messageID = aws.ToString(out.MessageId)
	}
	s.logger.WithFields(logrus.Fields{"to": msg.To, "message_id": messageID}).Debug("Email accepted by SES")
	return nil
}
