package integration

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/valethq/valet/internal/assistant"
	"github.com/valethq/valet/internal/mail"
)

// EmailExecutor serves the email and scheduleemail categories. Both share
// the same send/draft functions; only the handler instructions differ.
type EmailExecutor struct {
	sender       mail.Sender
	instructions string
	log          *slog.Logger
}

// NewEmailExecutor creates the general email executor.
func NewEmailExecutor(sender mail.Sender, log *slog.Logger) *EmailExecutor {
	return &EmailExecutor{
		sender: sender,
		instructions: "You are an email assistant. You compose, draft and send " +
			"email on the user's behalf. Confirm the recipient, subject and " +
			"body with the user before sending. Prefer a draft when the user " +
			"has not explicitly asked to send.",
		log: log,
	}
}

// NewScheduleEmailExecutor creates the executor for scheduling-related
// email, such as proposing meeting times to a correspondent.
func NewScheduleEmailExecutor(sender mail.Sender, log *slog.Logger) *EmailExecutor {
	return &EmailExecutor{
		sender: sender,
		instructions: "You are a scheduling email assistant. You write email " +
			"that proposes, confirms or reschedules meeting times. List " +
			"proposed times clearly with their timezone. Confirm the " +
			"recipient and the times with the user before sending.",
		log: log,
	}
}

func (e *EmailExecutor) Instructions() string { return e.instructions }

func (e *EmailExecutor) Tools() []assistant.ToolSpec {
	return []assistant.ToolSpec{
		{
			Name:        "send_email",
			Description: "Send an email from the user's account.",
			Parameters: &assistant.ParamSchema{
				Type: "object",
				Properties: map[string]*assistant.ParamProp{
					"to":      {Type: "string", Description: "Recipient address."},
					"subject": {Type: "string", Description: "Email subject."},
					"body":    {Type: "string", Description: "Email body, plain text."},
				},
				Required: []string{"to", "subject", "body"},
			},
		},
		{
			Name:        "create_draft",
			Description: "Save an email as a draft in the user's account.",
			Parameters: &assistant.ParamSchema{
				Type: "object",
				Properties: map[string]*assistant.ParamProp{
					"to":      {Type: "string", Description: "Recipient address."},
					"subject": {Type: "string", Description: "Email subject."},
					"body":    {Type: "string", Description: "Email body, plain text."},
				},
				Required: []string{"to", "subject", "body"},
			},
		},
	}
}

func (e *EmailExecutor) Execute(ctx context.Context, fn string, args map[string]any) string {
	switch fn {
	case "send_email":
		return e.deliver(ctx, args, false)
	case "create_draft":
		return e.deliver(ctx, args, true)
	}
	return UnknownFunction(fn)
}

func (e *EmailExecutor) deliver(ctx context.Context, args map[string]any, draft bool) string {
	action := "send_email"
	if draft {
		action = "create_draft"
	}
	if missing := missingParams(args, "to", "subject", "body"); len(missing) > 0 {
		return missingParamsMessage(action, missing)
	}

	msg := mail.Message{
		To:      stringArg(args, "to"),
		Subject: stringArg(args, "subject"),
		Body:    stringArg(args, "body"),
	}
	userID := stringArg(args, "user_id")

	var (
		id  string
		err error
	)
	if draft {
		id, err = e.sender.Draft(ctx, userID, msg)
	} else {
		id, err = e.sender.Send(ctx, userID, msg)
	}
	if err != nil {
		e.log.Error("email delivery failed", "action", action, "error", err)
		if draft {
			return fmt.Sprintf("Could not save the draft: %v", err)
		}
		return fmt.Sprintf("Could not send the email: %v", err)
	}

	if draft {
		return fmt.Sprintf("Draft saved (id %s) to %s: %s", id, msg.To, msg.Subject)
	}
	return fmt.Sprintf("Email sent (id %s) to %s: %s", id, msg.To, msg.Subject)
}
