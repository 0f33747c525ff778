package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"postura/api/internal/models"
	"postura/api/internal/queue"
)

type SupportMailer interface {
	SendSupportEmail(ctx context.Context, fromAddress, subject, message, reference string) error
}

type TicketStatusUpdater interface {
	UpdateStatus(ctx context.Context, reference string, status models.TicketStatus) error
}

// Processor delivers queued support tickets to the support inbox, throttled
// to the configured send rate.
type Processor struct {
	mailer  SupportMailer
	tickets TicketStatusUpdater
	limiter *rate.Limiter
	logger  zerolog.Logger
}

type TicketPayload struct {
	Reference string
	Email     string
	Subject   string
	Message   string
}

func NewProcessor(mailer SupportMailer, tickets TicketStatusUpdater, perSecond float64, logger zerolog.Logger) *Processor {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &Processor{
		mailer:  mailer,
		tickets: tickets,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}
}

// Handle returns an error to leave the message pending for a retry. A
// malformed message is marked handled so it is not retried forever.
func (p *Processor) Handle(ctx context.Context, msg redis.XMessage) error {
	payload, err := decodePayload(msg.Values)
	if err != nil {
		p.logger.Warn().Err(err).Str("message_id", msg.ID).Msg("dropping malformed ticket message")
		return nil
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	if err := p.mailer.SendSupportEmail(ctx, payload.Email, payload.Subject, payload.Message, payload.Reference); err != nil {
		return fmt.Errorf("send support email %s: %w", payload.Reference, err)
	}

	if err := p.tickets.UpdateStatus(ctx, payload.Reference, models.TicketStatusSent); err != nil {
		p.logger.Error().Err(err).Str("reference", payload.Reference).Msg("ticket status update failed")
	}
	p.logger.Info().Str("reference", payload.Reference).Msg("support ticket delivered")
	return nil
}

func decodePayload(values map[string]interface{}) (TicketPayload, error) {
	field := func(name string) string {
		s, _ := values[name].(string)
		return s
	}
	payload := TicketPayload{
		Reference: field(queue.FieldReference),
		Email:     field(queue.FieldEmail),
		Subject:   field(queue.FieldSubject),
		Message:   field(queue.FieldMessage),
	}
	if payload.Reference == "" || payload.Email == "" || payload.Message == "" {
		return TicketPayload{}, errors.New("ticket message is missing fields")
	}
	return payload, nil
}
