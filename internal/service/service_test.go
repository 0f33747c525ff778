package service

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"postura/api/internal/catalog"
	"postura/api/internal/config"
	"postura/api/internal/email"
	"postura/api/internal/facebook"
	"postura/api/internal/memstore"
	"postura/api/internal/models"
	"postura/api/internal/security"
	"postura/api/internal/storage"
)

var tokenInLink = regexp.MustCompile(`token=([0-9a-f]+)`)

// clock advances by one millisecond per reading so consecutive access
// tokens for the same user differ.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeVerifier map[string]facebook.Profile

func (f fakeVerifier) VerifyToken(_ context.Context, token, userID string) (facebook.Profile, error) {
	profile, ok := f[token]
	if !ok || profile.ID != userID {
		return facebook.Profile{}, facebook.ErrVerificationFailed
	}
	return profile, nil
}

type recordingQueue struct {
	err     error
	tickets []models.SupportTicket
}

func (q *recordingQueue) Enqueue(_ context.Context, ticket models.SupportTicket) error {
	if q.err != nil {
		return q.err
	}
	q.tickets = append(q.tickets, ticket)
	return nil
}

type fixture struct {
	store    *memstore.Store
	outbox   *email.MemorySender
	blobs    *storage.MemoryStore
	clock    *clock
	verifier fakeVerifier
	plan     models.TrainingPlan
	workout  models.Workout
	deps     Dependencies
	cfg      *config.AppConfig
	Services
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store:    memstore.New(),
		outbox:   email.NewMemorySender(),
		blobs:    storage.NewMemoryStore(),
		clock:    &clock{now: time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)},
		verifier: fakeVerifier{},
		plan:     models.TrainingPlan{ID: primitive.NewObjectID(), Name: "Beginner"},
		workout:  models.Workout{ID: primitive.NewObjectID(), Name: "Chin tucks"},
		cfg: &config.AppConfig{
			Storage: config.StorageConfig{BucketFirmware: "firmware", PresignTTL: time.Minute},
			Email: config.EmailConfig{
				SupportAddress:      "support@postura.app",
				ConfirmationBaseURL: "https://app.postura.app/confirm-email",
				ResetBaseURL:        "https://app.postura.app/reset-password",
				Timeout:             time.Second,
			},
			Catalog: config.CatalogConfig{DefaultTrainingPlans: []string{"Beginner"}},
		},
	}
	f.store.Catalog().Seed([]models.Workout{f.workout}, []models.TrainingPlan{f.plan})

	log := zerolog.Nop()
	f.deps = Dependencies{
		Users:         f.store.Users(),
		Tokens:        f.store.Tokens(),
		InternalUsers: f.store.InternalUsers(),
		Firmware:      f.store.Firmware(),
		Tickets:       f.store.Tickets(),
		Blobs:         f.blobs,
		Mailer:        email.NewMailer(f.outbox, f.cfg.Email, log),
		Verifier:      f.verifier,
		Catalog:       catalog.New(f.store.Catalog(), f.clock.Now, log),
		Factory:       security.NewTokenFactory("service-test-secret").WithClock(f.clock.Now),
	}
	f.Services = New(f.cfg, f.deps, log)
	return f
}

func (f *fixture) signup(t *testing.T, address string) UserWithToken {
	t.Helper()
	user, err := f.Users.Signup(context.Background(), map[string]any{"email": address, "password": "Abcdef01"})
	require.NoError(t, err)
	return user
}

// mailedToken returns the token from the last email sent to address.
func (f *fixture) mailedToken(t *testing.T, address string) string {
	t.Helper()
	messages := f.outbox.Messages()
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].To == address {
			match := tokenInLink.FindStringSubmatch(messages[i].Body)
			require.NotNil(t, match)
			return match[1]
		}
	}
	t.Fatalf("nothing mailed to %s", address)
	return ""
}

func (f *fixture) stored(t *testing.T, id primitive.ObjectID) models.User {
	t.Helper()
	user, err := f.store.Users().GetByID(context.Background(), id)
	require.NoError(t, err)
	return user
}

var errBoom = errors.New("boom")
