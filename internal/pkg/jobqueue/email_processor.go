package jobqueue

import (
	"context"
	"fmt"

	"github.com/tubtip/tubtip/internal/pkg/mail"
	"github.com/tubtip/tubtip/internal/pkg/metrics"
)

// EmailProcessor delivers send_email jobs through a Mailer.
type EmailProcessor struct {
	mailer mail.Mailer
}

func NewEmailProcessor(mailer mail.Mailer) *EmailProcessor {
	return &EmailProcessor{mailer: mailer}
}

func (p *EmailProcessor) Process(ctx context.Context, job *Job) error {
	var payload SendEmailJobPayload
	if err := job.Decode(&payload); err != nil {
		return fmt.Errorf("invalid send_email payload: %w", err)
	}
	if payload.To == "" {
		return fmt.Errorf("send_email job %s has no recipient", job.ID)
	}

	err := p.mailer.Send(ctx, mail.Message{
		To:       payload.To,
		Template: mail.Template(payload.Template),
		Data:     payload.Data,
	})
	if err != nil {
		metrics.EmailsSentTotal.WithLabelValues("error").Inc()
		return err
	}
	metrics.EmailsSentTotal.WithLabelValues("sent").Inc()
	return nil
}
