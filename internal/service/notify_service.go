package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"parkly/internal/db"
	"parkly/internal/entities"
)

// ContactStore resolves event recipients to deliverable addresses.
type ContactStore interface {
	GetContact(ctx context.Context, userID int) (*db.UserContact, error)
	ListAdminContacts(ctx context.Context) ([]db.UserContact, error)
}

// Notifier delivers post-commit events over email and SMS. Delivery is
// fire-and-forget: a dead mail provider must never fail the request that
// produced the event.
type Notifier struct {
	contacts ContactStore
	email    EmailSender
	sms      SMSSender
}

func NewNotifier(contacts ContactStore, email EmailSender, sms SMSSender) *Notifier {
	return &Notifier{contacts: contacts, email: email, sms: sms}
}

// Dispatch fans the events out in the background and returns immediately.
func (n *Notifier) Dispatch(events []entities.Event) {
	for _, ev := range events {
		go n.deliver(ev)
	}
}

func (n *Notifier) deliver(ev entities.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var recipients []db.UserContact
	if ev.RecipientID == 0 {
		admins, err := n.contacts.ListAdminContacts(ctx)
		if err != nil {
			log.Printf("Notify: resolving admin audience for %s failed: %v", ev.Type, err)
			return
		}
		recipients = admins
	} else {
		c, err := n.contacts.GetContact(ctx, ev.RecipientID)
		if err != nil {
			log.Printf("Notify: resolving recipient %d for %s failed: %v", ev.RecipientID, ev.Type, err)
			return
		}
		recipients = []db.UserContact{*c}
	}

	subject, body, smsBody := composeMessage(ev)
	for _, c := range recipients {
		if c.Email != "" {
			if err := n.email.SendEmail(c.Email, c.Name, subject, body); err != nil {
				log.Printf("Notify: email for %s to %s failed: %v", ev.Type, c.Email, err)
			}
		}
		if c.Phone != "" && smsBody != "" {
			if err := n.sms.SendSMS(c.Phone, smsBody); err != nil {
				log.Printf("Notify: SMS for %s to %s failed: %v", ev.Type, c.Phone, err)
			}
		}
	}
}

func composeMessage(ev entities.Event) (subject, body, smsBody string) {
	p := ev.Payload
	switch ev.Type {
	case entities.EventNewReservation:
		subject = fmt.Sprintf("New reservation #%s at %s", p["reservation_id"], p["parking_name"])
		body = fmt.Sprintf(
			"A new reservation #%s was placed at %s for a total of %s.\n"+
				"It is pending payment and will expire if not paid in time.",
			p["reservation_id"], p["parking_name"], p["total_amount"])
		smsBody = fmt.Sprintf("Parkly: new reservation #%s at %s (%s).", p["reservation_id"], p["parking_name"], p["total_amount"])
	case entities.EventReservationConfirmed:
		subject = fmt.Sprintf("Your reservation #%s is confirmed", p["reservation_id"])
		body = fmt.Sprintf(
			"Your reservation #%s at %s is confirmed.\nThank you for choosing Parkly.",
			p["reservation_id"], p["parking_name"])
		smsBody = fmt.Sprintf("Parkly: reservation #%s at %s is confirmed.", p["reservation_id"], p["parking_name"])
	case entities.EventReservationCancelled:
		subject = fmt.Sprintf("Reservation #%s was cancelled", p["reservation_id"])
		body = fmt.Sprintf("Reservation #%s at %s was cancelled by the client.", p["reservation_id"], p["parking_name"])
	case entities.EventPaymentFailed:
		subject = fmt.Sprintf("Payment failed for reservation #%s", p["reservation_id"])
		body = fmt.Sprintf(
			"The payment for your reservation #%s at %s did not go through.\n"+
				"The reservation was released; you can book again at any time.",
			p["reservation_id"], p["parking_name"])
		smsBody = fmt.Sprintf("Parkly: payment for reservation #%s failed, the spot was released.", p["reservation_id"])
	case entities.EventWithdrawalRequest:
		subject = fmt.Sprintf("Withdrawal request #%s pending review", p["request_id"])
		body = fmt.Sprintf("Owner %s requested a withdrawal of %s (request #%s).", p["owner_id"], p["amount"], p["request_id"])
	case entities.EventWithdrawalApproved:
		subject = fmt.Sprintf("Withdrawal request #%s approved", p["request_id"])
		body = fmt.Sprintf("Your withdrawal of %s was approved and is on its way.", p["amount"])
		smsBody = fmt.Sprintf("Parkly: your withdrawal of %s was approved.", p["amount"])
	case entities.EventWithdrawalRejected:
		subject = fmt.Sprintf("Withdrawal request #%s rejected", p["request_id"])
		body = fmt.Sprintf("Your withdrawal of %s was rejected: %s", p["amount"], p["reason"])
	default:
		subject = ev.Type
		body = fmt.Sprintf("%v", p)
	}
	return subject, body, smsBody
}
