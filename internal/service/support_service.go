package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"postura/api/internal/apperr"
	"postura/api/internal/ids"
	"postura/api/internal/models"
	"postura/api/internal/repository"
	"postura/api/internal/security"
	"postura/api/internal/validation"
)

type SupportService struct {
	users   UserStore
	tickets TicketStore
	queue   TicketQueue
	mailer  Mailer
	factory *security.TokenFactory
	log     zerolog.Logger
}

// NewSupportService sends tickets through queue. With a nil queue the
// support email is sent inline.
func NewSupportService(users UserStore, tickets TicketStore, queue TicketQueue, mailer Mailer, factory *security.TokenFactory, log zerolog.Logger) *SupportService {
	return &SupportService{
		users:   users,
		tickets: tickets,
		queue:   queue,
		mailer:  mailer,
		factory: factory,
		log:     log,
	}
}

func (s *SupportService) Submit(ctx context.Context, userID primitive.ObjectID, body map[string]any) (models.SupportTicket, error) {
	normalized, err := validate(body, validation.SupportFields, validation.Options{})
	if err != nil {
		return models.SupportTicket{}, err
	}
	var in struct {
		Subject string `json:"subject"`
		Message string `json:"message"`
	}
	if err := validation.Decode(normalized, &in); err != nil {
		return models.SupportTicket{}, apperr.Dependency(err)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return models.SupportTicket{}, userNotFound(err)
	}
	if user.Email == "" {
		return models.SupportTicket{}, apperr.Validation("An email address is required to contact support")
	}

	ticket := models.SupportTicket{
		Reference: ids.New(),
		UserID:    user.ID,
		Email:     user.Email,
		Subject:   in.Subject,
		Message:   in.Message,
		Status:    models.TicketStatusQueued,
		CreatedAt: s.factory.Now(),
	}
	if err := s.tickets.Create(ctx, &ticket); err != nil {
		return models.SupportTicket{}, apperr.Dependency(err)
	}

	if s.queue != nil {
		if err := s.queue.Enqueue(ctx, ticket); err != nil {
			s.markFailed(ctx, ticket.Reference)
			return models.SupportTicket{}, apperr.Dependency(err)
		}
		return ticket, nil
	}

	if err := s.mailer.SendSupportEmail(ctx, ticket.Email, ticket.Subject, ticket.Message, ticket.Reference); err != nil {
		s.markFailed(ctx, ticket.Reference)
		return models.SupportTicket{}, apperr.Dependency(err)
	}
	if err := s.tickets.UpdateStatus(ctx, ticket.Reference, models.TicketStatusSent); err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.log.Error().Err(err).Str("reference", ticket.Reference).Msg("ticket status update failed")
	}
	ticket.Status = models.TicketStatusSent
	return ticket, nil
}

func (s *SupportService) markFailed(ctx context.Context, reference string) {
	if err := s.tickets.UpdateStatus(ctx, reference, models.TicketStatusFailed); err != nil {
		s.log.Error().Err(err).Str("reference", reference).Msg("ticket status update failed")
	}
}
