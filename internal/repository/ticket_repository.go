package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"postura/api/internal/models"
)

type TicketRepository struct {
	coll *mongo.Collection
}

func NewTicketRepository(db *mongo.Database) *TicketRepository {
	return &TicketRepository{coll: db.Collection(ticketsCollection)}
}

func (r *TicketRepository) Create(ctx context.Context, ticket *models.SupportTicket) error {
	if ticket.ID.IsZero() {
		ticket.ID = primitive.NewObjectID()
	}
	_, err := r.coll.InsertOne(ctx, ticket)
	return translate(err, ErrNotFound)
}

func (r *TicketRepository) UpdateStatus(ctx context.Context, reference string, status models.TicketStatus) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"reference": reference}, bson.M{"$set": bson.M{"status": status}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
