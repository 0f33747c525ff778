package queue

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"postura/api/internal/models"
)

// Stream field names shared by the producer and the support processor.
const (
	FieldReference = "reference"
	FieldEmail     = "email"
	FieldSubject   = "subject"
	FieldMessage   = "message"
)

type TicketProducer struct {
	client *redis.Client
	stream string
}

func NewTicketProducer(client *redis.Client, stream string) *TicketProducer {
	return &TicketProducer{client: client, stream: stream}
}

func (p *TicketProducer) Enqueue(ctx context.Context, ticket models.SupportTicket) error {
	_, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{
			FieldReference: ticket.Reference,
			FieldEmail:     ticket.Email,
			FieldSubject:   ticket.Subject,
			FieldMessage:   ticket.Message,
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("enqueue ticket %s: %w", ticket.Reference, err)
	}
	return nil
}
