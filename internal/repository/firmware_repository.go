package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"postura/api/internal/models"
)

type FirmwareRepository struct {
	coll *mongo.Collection
}

func NewFirmwareRepository(db *mongo.Database) *FirmwareRepository {
	return &FirmwareRepository{coll: db.Collection(firmwareCollection)}
}

func (r *FirmwareRepository) Create(ctx context.Context, fw *models.Firmware) error {
	if fw.ID.IsZero() {
		fw.ID = primitive.NewObjectID()
	}
	_, err := r.coll.InsertOne(ctx, fw)
	return translate(err, ErrNotFound)
}

// Latest returns the highest version of the given type.
func (r *FirmwareRepository) Latest(ctx context.Context, typ models.FirmwareType) (models.Firmware, error) {
	opts := options.FindOne().SetSort(bson.D{
		{Key: "major", Value: -1},
		{Key: "minor", Value: -1},
		{Key: "patch", Value: -1},
	})
	var fw models.Firmware
	if err := r.coll.FindOne(ctx, bson.M{"type": typ}, opts).Decode(&fw); err != nil {
		return models.Firmware{}, translate(err, ErrNotFound)
	}
	return fw, nil
}
