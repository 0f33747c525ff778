package email

import (
	"context"

	"github.com/rs/zerolog"
)

// NoopSender logs emails instead of delivering them. It backs silent mode.
type NoopSender struct {
	log zerolog.Logger
}

func NewNoopSender(log zerolog.Logger) *NoopSender {
	return &NoopSender{log: log}
}

func (n *NoopSender) Send(_ context.Context, to, subject, body string) error {
	n.log.Info().
		Str("to", to).
		Str("subject", subject).
		Int("body_bytes", len(body)).
		Msg("email suppressed")
	return nil
}
