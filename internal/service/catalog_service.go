package service

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"postura/api/internal/apperr"
	"postura/api/internal/catalog"
	"postura/api/internal/models"
	"postura/api/internal/validation"
)

// CatalogService serves the cached reference data.
type CatalogService struct {
	catalog *catalog.Catalog
}

func NewCatalogService(cat *catalog.Catalog) *CatalogService {
	return &CatalogService{catalog: cat}
}

func (s *CatalogService) Workouts(ctx context.Context) ([]models.Workout, error) {
	workouts, err := s.catalog.Workouts.Get(ctx, false)
	if err != nil {
		return nil, apperr.Dependency(err)
	}
	return workouts, nil
}

func (s *CatalogService) Workout(ctx context.Context, rawID string) (models.Workout, error) {
	value, err := validation.Validate(rawID, validation.ObjectID().Required(), validation.Options{})
	if err != nil {
		return models.Workout{}, err
	}
	workout, ok, err := s.catalog.Workouts.Find(ctx, value.(primitive.ObjectID))
	if err != nil {
		return models.Workout{}, apperr.Dependency(err)
	}
	if !ok {
		return models.Workout{}, apperr.NotFound("Workout not found")
	}
	return workout, nil
}

func (s *CatalogService) TrainingPlans(ctx context.Context) ([]models.TrainingPlan, error) {
	plans, err := s.catalog.Plans.Get(ctx, false)
	if err != nil {
		return nil, apperr.Dependency(err)
	}
	return plans, nil
}

// Refresh forces a reload and reports a store failure to the caller; the
// previous snapshot stays in place.
func (s *CatalogService) Refresh(ctx context.Context) error {
	if err := s.catalog.Refresh(ctx); err != nil {
		return apperr.Dependency(err)
	}
	return nil
}
