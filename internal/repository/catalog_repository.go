package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"postura/api/internal/models"
)

type CatalogRepository struct {
	workouts *mongo.Collection
	plans    *mongo.Collection
}

func NewCatalogRepository(db *mongo.Database) *CatalogRepository {
	return &CatalogRepository{
		workouts: db.Collection(workoutsCollection),
		plans:    db.Collection(trainingPlansCollection),
	}
}

func (r *CatalogRepository) ListWorkouts(ctx context.Context) ([]models.Workout, error) {
	return listAll[models.Workout](ctx, r.workouts)
}

func (r *CatalogRepository) ListTrainingPlans(ctx context.Context) ([]models.TrainingPlan, error) {
	return listAll[models.TrainingPlan](ctx, r.plans)
}

func listAll[T any](ctx context.Context, coll *mongo.Collection) ([]T, error) {
	cursor, err := coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	items := make([]T, 0)
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}
