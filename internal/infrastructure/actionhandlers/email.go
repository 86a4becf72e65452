package actionhandlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/avatarctic/offline-sync/internal/core/domain/action"
	"github.com/avatarctic/offline-sync/internal/core/ports"
	"github.com/avatarctic/offline-sync/internal/infrastructure/email"
	"github.com/go-playground/validator/v10"
)

// EmailHandler sends the ports.EmailMessage carried by a send_email action.
type EmailHandler struct {
	sender   ports.EmailService
	validate *validator.Validate
}

func NewEmailHandler(sender ports.EmailService) *EmailHandler {
	return &EmailHandler{sender: sender, validate: validator.New()}
}

func (h *EmailHandler) Handle(ctx context.Context, a *action.Action) error {
	var msg ports.EmailMessage
	if err := json.Unmarshal(a.Payload, &msg); err != nil {
		return action.Permanent(fmt.Errorf("malformed email payload: %w", err))
	}
	if err := h.validate.Struct(&msg); err != nil {
		return action.Permanent(fmt.Errorf("invalid email payload: %w", err))
	}
	if err := h.sender.Send(ctx, &msg); err != nil {
		if errors.Is(err, email.ErrRejected) {
			return action.Permanent(err)
		}
		return err
	}
	return nil
}

var _ ports.ActionHandler = (*EmailHandler)(nil)
