// Package mail defines the email backend collaborator.
package mail

import "context"

// Message is an outgoing email.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Sender is the narrow interface the email integration uses.
type Sender interface {
	// Send delivers the message and returns its assigned ID.
	Send(ctx context.Context, userID string, msg Message) (string, error)

	// Draft stores the message as a draft and returns its ID.
	Draft(ctx context.Context, userID string, msg Message) (string, error)
}
