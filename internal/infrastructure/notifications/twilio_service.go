// Package notifications delivers OTP challenges to reporters. SMS goes
// through Twilio; without credentials the service degrades to logging
// the message, which keeps local development working offline.
package notifications

import (
	"fmt"
	"log"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/you/scamwatch/domain"
)

// TwilioServiceImpl implements domain.NotificationService
type TwilioServiceImpl struct {
	client *twilio.RestClient
	from   string
	logger *log.Logger
}

// NewTwilioService builds the Twilio-backed notifier. An empty from
// number puts the service in dry-run mode.
func NewTwilioService(accountSID, authToken, from string) domain.NotificationService {
	return &TwilioServiceImpl{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSID,
			Password: authToken,
		}),
		from:   from,
		logger: log.Default(),
	}
}

// SendSMS implements domain.NotificationService
func (t *TwilioServiceImpl) SendSMS(to, message string) error {
	if t.dryRun() {
		t.logger.Printf("sms dry-run to=%s message=%q", to, message)
		return nil
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(t.from)
	params.SetBody(message)

	if _, err := t.client.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("failed to send SMS: %w", err)
	}
	return nil
}

// SendEmail implements domain.NotificationService. Twilio carries no
// email channel here, so deliveries are logged for the operator.
func (t *TwilioServiceImpl) SendEmail(to, subject, body string) error {
	t.logger.Printf("email dry-run to=%s subject=%q body=%q", to, subject, body)
	return nil
}

func (t *TwilioServiceImpl) dryRun() bool {
	return t.from == ""
}
