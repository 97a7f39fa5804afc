package service

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkly/internal/db"
	"parkly/internal/entities"
	apperrors "parkly/internal/errors"
)

type fakeContacts struct {
	users  map[int]db.UserContact
	admins []db.UserContact
}

func (f *fakeContacts) GetContact(ctx context.Context, userID int) (*db.UserContact, error) {
	c, ok := f.users[userID]
	if !ok {
		return nil, apperrors.NotFound("user not found")
	}
	return &c, nil
}

func (f *fakeContacts) ListAdminContacts(ctx context.Context) ([]db.UserContact, error) {
	return f.admins, nil
}

type sentMail struct {
	to, subject, body string
}

type fakeEmailSender struct {
	mu   sync.Mutex
	sent []sentMail
}

func (f *fakeEmailSender) SendEmail(toEmail, toName, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMail{toEmail, subject, body})
	return nil
}

type fakeSMSSender struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeSMSSender) SendSMS(toNumber, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, toNumber)
	return nil
}

func TestDeliverToSingleRecipient(t *testing.T) {
	contacts := &fakeContacts{users: map[int]db.UserContact{
		9: {ID: 9, Name: "Dana", Email: "dana@example.com", Phone: "+33600000000"},
	}}
	email := &fakeEmailSender{}
	sms := &fakeSMSSender{}
	n := NewNotifier(contacts, email, sms)

	n.deliver(entities.Event{
		Type:        entities.EventReservationConfirmed,
		RecipientID: 9,
		Payload:     map[string]string{"reservation_id": "42", "parking_name": "Central Lot"},
	})

	require.Len(t, email.sent, 1)
	assert.Equal(t, "dana@example.com", email.sent[0].to)
	assert.Contains(t, email.sent[0].subject, "#42")
	assert.Len(t, sms.sent, 1)
}

func TestDeliverToAdminAudience(t *testing.T) {
	contacts := &fakeContacts{admins: []db.UserContact{
		{ID: 1, Name: "Root", Email: "admin1@example.com", Role: "admin"},
		{ID: 2, Name: "Ops", Email: "admin2@example.com", Role: "admin"},
	}}
	email := &fakeEmailSender{}
	n := NewNotifier(contacts, email, &fakeSMSSender{})

	n.deliver(entities.Event{
		Type:        entities.EventWithdrawalRequest,
		RecipientID: 0,
		Payload:     map[string]string{"request_id": "5", "owner_id": "7", "amount": "60.00"},
	})

	assert.Len(t, email.sent, 2, "every admin gets the request")
}

func TestDeliverUnknownRecipientIsDropped(t *testing.T) {
	email := &fakeEmailSender{}
	n := NewNotifier(&fakeContacts{users: map[int]db.UserContact{}}, email, &fakeSMSSender{})

	n.deliver(entities.Event{Type: entities.EventReservationConfirmed, RecipientID: 404})
	assert.Empty(t, email.sent)
}

func TestComposeMessageCoversEveryEvent(t *testing.T) {
	payload := map[string]string{
		"reservation_id": "42", "parking_name": "Central Lot", "total_amount": "20.00",
		"request_id": "5", "owner_id": "7", "amount": "60.00", "reason": "unverified account",
	}
	for _, eventType := range []string{
		entities.EventNewReservation,
		entities.EventReservationConfirmed,
		entities.EventReservationCancelled,
		entities.EventPaymentFailed,
		entities.EventWithdrawalRequest,
		entities.EventWithdrawalApproved,
		entities.EventWithdrawalRejected,
	} {
		subject, body, _ := composeMessage(entities.Event{Type: eventType, Payload: payload})
		assert.NotEmpty(t, subject, "subject for %s", eventType)
		assert.NotEmpty(t, body, "body for %s", eventType)
		assert.False(t, strings.Contains(subject, "%!"), "subject for %s is fully formatted", eventType)
	}
}
