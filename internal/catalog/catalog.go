package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"postura/api/internal/models"
)

type Source interface {
	ListWorkouts(ctx context.Context) ([]models.Workout, error)
	ListTrainingPlans(ctx context.Context) ([]models.TrainingPlan, error)
}

type Catalog struct {
	Workouts *Collection[models.Workout]
	Plans    *Collection[models.TrainingPlan]
	log      zerolog.Logger
}

func New(source Source, now func() time.Time, log zerolog.Logger) *Catalog {
	return &Catalog{
		Workouts: NewCollection("workouts", source.ListWorkouts, now),
		Plans:    NewCollection("training_plans", source.ListTrainingPlans, now),
		log:      log,
	}
}

// Refresh reloads workouts, then plans. The first failure is returned and
// the affected collection keeps its previous snapshot.
func (c *Catalog) Refresh(ctx context.Context) error {
	if _, err := c.Workouts.Get(ctx, true); err != nil {
		return fmt.Errorf("refresh workouts: %w", err)
	}
	if _, err := c.Plans.Get(ctx, true); err != nil {
		return fmt.Errorf("refresh training plans: %w", err)
	}
	return nil
}

// RefreshAll is the timer entry point: failures are logged only.
func (c *Catalog) RefreshAll(ctx context.Context) {
	if err := c.Refresh(ctx); err != nil {
		c.log.Error().Err(err).Msg("catalog refresh failed")
		return
	}
	c.log.Debug().
		Time("workouts_loaded_at", c.Workouts.LastLoaded()).
		Time("plans_loaded_at", c.Plans.LastLoaded()).
		Msg("catalog refreshed")
}

// PlanIDsByName resolves plan names in the given order. Names with no
// matching plan are skipped.
func (c *Catalog) PlanIDsByName(ctx context.Context, names []string) ([]primitive.ObjectID, error) {
	plans, err := c.Plans.Get(ctx, false)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]primitive.ObjectID, len(plans))
	for _, plan := range plans {
		byName[plan.Name] = plan.ID
	}
	ids := make([]primitive.ObjectID, 0, len(names))
	for _, name := range names {
		if id, ok := byName[name]; ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
