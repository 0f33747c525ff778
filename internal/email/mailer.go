package email

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"postura/api/internal/config"
)

const defaultSendTimeout = 15 * time.Second

// Mailer renders the account emails and hands them to a Sender.
type Mailer struct {
	sender Sender
	cfg    config.EmailConfig
	log    zerolog.Logger
}

// NewMailer wraps sender. In silent mode delivery is replaced by logging
// and every send succeeds.
func NewMailer(sender Sender, cfg config.EmailConfig, log zerolog.Logger) *Mailer {
	if cfg.Silent || sender == nil {
		sender = NewNoopSender(log)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultSendTimeout
	}
	return &Mailer{sender: sender, cfg: cfg, log: log}
}

func (m *Mailer) SendConfirmationEmail(ctx context.Context, address, token string) error {
	body := fmt.Sprintf(
		"Welcome to Postura!\n\nConfirm your email address by opening the link below:\n\n%s\n\nThe link expires in 48 hours.\n",
		withToken(m.cfg.ConfirmationBaseURL, token),
	)
	return m.send(ctx, address, "Confirm your email", body)
}

func (m *Mailer) SendPasswordResetEmail(ctx context.Context, address, token string) error {
	body := fmt.Sprintf(
		"We received a request to reset your Postura password.\n\nOpen the link below to choose a new one:\n\n%s\n\nIf you did not ask for this, you can ignore this email.\n",
		withToken(m.cfg.ResetBaseURL, token),
	)
	return m.send(ctx, address, "Reset your password", body)
}

func (m *Mailer) SendPasswordResetSuccessEmail(ctx context.Context, address string) error {
	body := "Your Postura password was changed.\n\nIf you did not make this change, reset your password right away and contact support.\n"
	return m.send(ctx, address, "Your password was changed", body)
}

// SendSupportEmail forwards a user's message to the support inbox.
func (m *Mailer) SendSupportEmail(ctx context.Context, fromAddress, subject, message, reference string) error {
	if strings.TrimSpace(subject) == "" {
		subject = "Support request"
	}
	body := fmt.Sprintf("From: %s\nReference: %s\n\n%s\n", fromAddress, reference, message)
	return m.send(ctx, m.cfg.SupportAddress, fmt.Sprintf("[%s] %s", reference, subject), body)
}

func (m *Mailer) send(ctx context.Context, to, subject, body string) error {
	if m.cfg.RedirectTo != "" {
		m.log.Debug().Str("to", to).Str("redirect_to", m.cfg.RedirectTo).Msg("redirecting email")
		to = m.cfg.RedirectTo
	}

	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	if err := m.sender.Send(ctx, to, subject, body); err != nil {
		return fmt.Errorf("send %q: %w", subject, err)
	}
	return nil
}

func withToken(base, token string) string {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "token=" + url.QueryEscape(token)
}
