package ports

import (
	"context"
)

// EmailService defines the interface for outbound email delivery
type EmailService interface {
	Send(ctx context.Context, msg *EmailMessage) error
}

// EmailMessage is the payload of a queued send_email action
type EmailMessage struct {
	To      string `json:"to" validate:"required,email"`
	ToName  string `json:"to_name,omitempty"`
	Subject string `json:"subject" validate:"required"`
	Body    string `json:"body"`
	IsHTML  bool   `json:"is_html"`
}
