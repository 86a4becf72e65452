package email

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/avatarctic/offline-sync/internal/core/ports"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"
)

// ErrRejected is returned when SendGrid refuses a message (4xx other than 429). Retrying
// the same message will not help.
var ErrRejected = errors.New("email rejected by provider")

// EmailConfig holds email service configuration
type EmailConfig struct {
	SendGridAPIKey string
	FromEmail      string
	FromName       string
}

type sendClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// EmailService delivers messages through SendGrid.
type EmailService struct {
	config *EmailConfig
	logger *logrus.Logger
	client sendClient
}

func NewEmailService(config *EmailConfig, logger *logrus.Logger) ports.EmailService {
	return &EmailService{
		config: config,
		logger: logger,
		client: sendgrid.NewSendClient(config.SendGridAPIKey),
	}
}

func (e *EmailService) Send(ctx context.Context, msg *ports.EmailMessage) error {
	from := mail.NewEmail(e.config.FromName, e.config.FromEmail)
	recipient := mail.NewEmail(msg.ToName, msg.To)

	var plain, html string
	if msg.IsHTML {
		html = msg.Body
	} else {
		plain = msg.Body
	}
	message := mail.NewSingleEmail(from, msg.Subject, recipient, plain, html)

	response, err := e.client.SendWithContext(ctx, message)
	if err != nil {
		if e.logger != nil {
			e.logger.WithFields(logrus.Fields{"to": msg.To, "subject": msg.Subject}).WithError(err).Error("Failed to send email")
		}
		return fmt.Errorf("failed to send email: %w", err)
	}

	switch {
	case response.StatusCode == http.StatusTooManyRequests || response.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("sendgrid returned %d", response.StatusCode)
	case response.StatusCode >= http.StatusBadRequest:
		return fmt.Errorf("%w: status %d: %s", ErrRejected, response.StatusCode, response.Body)
	}

	if e.logger != nil {
		e.logger.WithFields(logrus.Fields{
			"to":          msg.To,
			"subject":     msg.Subject,
			"status_code": response.StatusCode,
		}).Info("Email sent successfully")
	}
	return nil
}
