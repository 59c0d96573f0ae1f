// Package notify delivers operational notifications to the business owner.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// EmailSender sends a single HTML email.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, htmlBody string) error
}

type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESSender is an EmailSender backed by Amazon SES v2.
type SESSender struct {
	client    sesAPI
	fromEmail string
	fromName  string
}

func NewSESSender(client sesAPI, fromEmail, fromName string) (*SESSender, error) {
	if client == nil {
		return nil, errors.New("notify: ses client cannot be nil")
	}
	if strings.TrimSpace(fromEmail) == "" {
		return nil, errors.New("notify: from email cannot be empty")
	}
	return &SESSender{client: client, fromEmail: fromEmail, fromName: fromName}, nil
}

func (s *SESSender) SendEmail(ctx context.Context, to, subject, htmlBody string) error {
	if strings.TrimSpace(to) == "" {
		return errors.New("notify: recipient cannot be empty")
	}

	from := s.fromEmail
	if s.fromName != "" {
		from = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	_, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination: &sestypes.Destination{
			ToAddresses: []string{to},
		},
		Content: &sestypes.EmailContent{
			Simple: &sestypes.Message{
				Subject: &sestypes.Content{Data: aws.String(subject)},
				Body: &sestypes.Body{
					Html: &sestypes.Content{Data: aws.String(htmlBody)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("notify: ses send failed: %w", err)
	}
	return nil
}
