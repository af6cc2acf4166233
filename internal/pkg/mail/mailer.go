package mail

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tubtip/tubtip/internal/pkg/config"
	"github.com/tubtip/tubtip/internal/pkg/logger"
)

// Template names a transactional email. The provider template id is
// resolved from configuration.
type Template string

const TemplatePaymentSuccess Template = "payment_success"

// ErrUnknownTemplate is returned when a template has no provider id.
var ErrUnknownTemplate = errors.New("unknown email template")

// Message is a rendered template send to a single recipient.
type Message struct {
	To       string
	Template Template
	Data     map[string]string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Templates maps template names to provider template ids.
type Templates map[Template]string

func TemplatesFromConfig(cfg config.MailConfig) Templates {
	return Templates{
		TemplatePaymentSuccess: cfg.PaymentSuccessTemplateID,
	}
}

func (t Templates) Resolve(name Template) (string, error) {
	id, ok := t[name]
	if !ok || id == "" {
		return "", fmt.Errorf("%w: %s", ErrUnknownTemplate, name)
	}
	return id, nil
}

// LogMailer only logs messages. It is used when no provider key is set.
type LogMailer struct {
	log zerolog.Logger
}

func NewLogMailer() *LogMailer {
	return &LogMailer{log: logger.WithComponent("mail")}
}

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.log.Info().
		Str("to", msg.To).
		Str("template", string(msg.Template)).
		Interface("data", msg.Data).
		Msg("email not delivered: no provider configured")
	return nil
}

// New returns the SendGrid mailer when an API key is configured.
func New(cfg config.MailConfig) Mailer {
	if cfg.SendGridAPIKey == "" {
		return NewLogMailer()
	}
	return NewSendGridMailer(cfg)
}
