package mail

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/tubtip/tubtip/internal/pkg/config"
	"github.com/tubtip/tubtip/internal/pkg/logger"
)

const sendEndpoint = "/v3/mail/send"

// SendGridMailer delivers dynamic template emails through the SendGrid v3 API.
type SendGridMailer struct {
	apiKey    string
	host      string
	from      *sgmail.Email
	templates Templates
	log       zerolog.Logger
}

func NewSendGridMailer(cfg config.MailConfig) *SendGridMailer {
	return &SendGridMailer{
		apiKey:    cfg.SendGridAPIKey,
		from:      sgmail.NewEmail(cfg.FromName, cfg.FromEmail),
		templates: TemplatesFromConfig(cfg),
		log:       logger.WithComponent("mail"),
	}
}

// WithHost points the mailer at another API host; used by tests.
func (m *SendGridMailer) WithHost(host string) *SendGridMailer {
	m.host = host
	return m
}

func (m *SendGridMailer) Send(ctx context.Context, msg Message) error {
	templateID, err := m.templates.Resolve(msg.Template)
	if err != nil {
		return err
	}

	v3 := sgmail.NewV3Mail()
	v3.SetFrom(m.from)
	v3.SetTemplateID(templateID)

	p := sgmail.NewPersonalization()
	p.AddTos(sgmail.NewEmail("", msg.To))
	for k, v := range msg.Data {
		p.SetDynamicTemplateData(k, v)
	}
	v3.AddPersonalizations(p)

	request := sendgrid.GetRequest(m.apiKey, sendEndpoint, m.host)
	request.Method = rest.Post
	request.Body = sgmail.GetRequestBody(v3)

	resp, err := rest.SendWithContext(ctx, request)
	if err != nil {
		return fmt.Errorf("sendgrid request failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid rejected message: status %d: %s", resp.StatusCode, resp.Body)
	}

	m.log.Info().Str("template", string(msg.Template)).Int("status", resp.StatusCode).Msg("email sent")
	return nil
}
