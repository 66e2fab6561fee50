// Package mail delivers run reports by email through SendGrid.
package mail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const (
	DefaultHost  = "https://api.sendgrid.com"
	sendEndpoint = "/v3/mail/send"

	StatusSuccess = "success"
	StatusSkipped = "skipped"
)

var ErrDeliveryFailed = errors.New("mail delivery failed")

// Attachment is a file sent along the message. Missing files are skipped.
type Attachment struct {
	Path     string
	Name     string
	MimeType string
}

type Message struct {
	Subject     string
	Body        string
	From        string
	To          []string
	Attachments []Attachment
}

// Delivery reports the outcome of Send.
type Delivery struct {
	Status     string `json:"status"`
	StatusCode int    `json:"status_code,omitempty"`
}

// SendGridSender sends plain text mail with the v3 API.
type SendGridSender struct {
	apiKey string
	host   string
}

type Option func(*SendGridSender)

// WithHost points the sender to another API host.
func WithHost(host string) Option {
	return func(s *SendGridSender) {
		s.host = host
	}
}

func NewSendGridSender(apiKey string, opts ...Option) *SendGridSender {
	sender := &SendGridSender{apiKey: apiKey, host: DefaultHost}
	for _, opt := range opts {
		opt(sender)
	}

	return sender
}

// Send delivers message. Without an API key, sender or recipient the message
// is skipped and no error is returned.
func (s *SendGridSender) Send(ctx context.Context, message Message) (Delivery, error) {
	if s.apiKey == "" || message.From == "" || len(message.To) == 0 {
		return Delivery{Status: StatusSkipped}, nil
	}

	payload, err := buildMail(message)
	if err != nil {
		return Delivery{}, err
	}

	request := sendgrid.GetRequest(s.apiKey, sendEndpoint, s.host)
	request.Method = "POST"
	request.Body = sgmail.GetRequestBody(payload)

	response, err := sendgrid.MakeRequestWithContext(ctx, request)
	if err != nil {
		return Delivery{}, fmt.Errorf("failed to send mail: %w", err)
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return Delivery{StatusCode: response.StatusCode}, fmt.Errorf("%w: status %d: %s", ErrDeliveryFailed, response.StatusCode, response.Body)
	}

	return Delivery{Status: StatusSuccess, StatusCode: response.StatusCode}, nil
}

func buildMail(message Message) (*sgmail.SGMailV3, error) {
	payload := sgmail.NewV3Mail()
	payload.SetFrom(sgmail.NewEmail("", message.From))
	payload.Subject = message.Subject

	personalization := sgmail.NewPersonalization()
	for _, to := range message.To {
		personalization.AddTos(sgmail.NewEmail("", to))
	}

	payload.AddPersonalizations(personalization)
	payload.AddContent(sgmail.NewContent("text/plain", message.Body))

	for _, attachment := range message.Attachments {
		data, err := os.ReadFile(attachment.Path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}

			return nil, fmt.Errorf("failed to read attachment %s: %w", attachment.Path, err)
		}

		name := attachment.Name
		if name == "" {
			name = filepath.Base(attachment.Path)
		}

		mimeType := attachment.MimeType
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}

		a := sgmail.NewAttachment()
		a.SetContent(base64.StdEncoding.EncodeToString(data))
		a.SetType(mimeType)
		a.SetFilename(name)
		a.SetDisposition("attachment")
		payload.AddAttachment(a)
	}

	return payload, nil
}
