// File: backend/internal/outreach/sender.go
package outreach

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
)

// SendRequest is one message handed to the channel collaborator.
type SendRequest struct {
	Sender   SenderSettings
	To       string
	Subject  string
	Body     string
	Metadata map[string]string
}

// ContactSender is the delivery channel collaborator. A returned error is a
// send failure: the caller records it on the email entry and leaves the
// Prospect's state unchanged.
type ContactSender interface {
	Send(ctx context.Context, req SendRequest) (providerMessageID string, err error)
}

// EventKind is a channel collaborator delivery/engagement event.
type EventKind string

const (
	EventDelivered EventKind = "delivered"
	EventOpened    EventKind = "opened"
	EventClicked   EventKind = "clicked"
	EventReplied   EventKind = "replied"
)

// EmailEvent is an asynchronous channel report keyed by provider message id.
type EmailEvent struct {
	ProviderMessageID string    `json:"provider_message_id"`
	Kind              EventKind `json:"kind"`
	OccurredAt        time.Time `json:"occurred_at"`
	ReplyText         string    `json:"reply_text,omitempty"`
}

// LogSender is a development ContactSender that records sends to the process
// log instead of delivering anything.
type LogSender struct{}

func (LogSender) Send(_ context.Context, req SendRequest) (string, error) {
	id := uuid.NewString()
	log.Printf("LogSender: Would send to '%s' from '%s <%s>' subject '%s' (message id %s)", req.To, req.Sender.FromName, req.Sender.FromEmail, req.Subject, id)
	return id, nil
}
