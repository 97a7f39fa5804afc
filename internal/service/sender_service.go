package service

import (
	"fmt"
	"log"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// EmailSender and SMSSender are the outbound channels the notifier writes to.
type EmailSender interface {
	SendEmail(toEmail, toName, subject, body string) error
}

type SMSSender interface {
	SendSMS(toNumber, body string) error
}

// SendGridSender sends plain-text email through SendGrid.
type SendGridSender struct {
	apiKey   string
	fromMail string
	fromName string
}

func NewSendGridSender(apiKey, fromMail, fromName string) *SendGridSender {
	return &SendGridSender{apiKey: apiKey, fromMail: fromMail, fromName: fromName}
}

func (s *SendGridSender) SendEmail(toEmail, toName, subject, body string) error {
	if s.apiKey == "" || s.fromMail == "" {
		log.Printf("WARNING: SendGrid is not configured, dropping email to %s (%s)", toEmail, subject)
		return nil
	}

	from := mail.NewEmail(s.fromName, s.fromMail)
	to := mail.NewEmail(toName, toEmail)
	message := mail.NewSingleEmail(from, subject, to, body, "")

	client := sendgrid.NewSendClient(s.apiKey)
	response, err := client.Send(message)
	if err != nil {
		return fmt.Errorf("error sending email via SendGrid to %s: %w", toEmail, err)
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return fmt.Errorf("SendGrid returned status %d for %s: %s", response.StatusCode, toEmail, response.Body)
	}
	return nil
}

// TwilioSender sends SMS through the Twilio REST API.
type TwilioSender struct {
	client *twilio.RestClient
	from   string
}

func NewTwilioSender(accountSID, authToken, fromNumber string) *TwilioSender {
	if accountSID == "" || authToken == "" {
		return &TwilioSender{from: fromNumber}
	}
	return &TwilioSender{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSID,
			Password: authToken,
		}),
		from: fromNumber,
	}
}

func (s *TwilioSender) SendSMS(toNumber, body string) error {
	if s.client == nil || s.from == "" {
		log.Printf("WARNING: Twilio is not configured, dropping SMS to %s", toNumber)
		return nil
	}
	if !strings.HasPrefix(toNumber, "+") {
		log.Printf("WARNING: destination number %q is not E.164, the SMS may fail", toNumber)
	}

	params := &openapi.CreateMessageParams{}
	params.SetTo(toNumber)
	params.SetFrom(s.from)
	params.SetBody(body)

	if _, err := s.client.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("error sending SMS via Twilio to %s: %w", toNumber, err)
	}
	return nil
}
