// Package memstore keeps every collection in process memory. It backs the
// "memory" storage driver and the service and handler tests.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"postura/api/internal/models"
	"postura/api/internal/repository"
)

type Store struct {
	mu            sync.RWMutex
	users         map[primitive.ObjectID]models.User
	tokens        map[string]models.AccessToken
	internalUsers map[primitive.ObjectID]models.InternalUser
	workouts      []models.Workout
	plans         []models.TrainingPlan
	firmware      []models.Firmware
	tickets       map[string]models.SupportTicket

	catalogQueries atomic.Int64
	catalogErr     error
}

func New() *Store {
	return &Store{
		users:         make(map[primitive.ObjectID]models.User),
		tokens:        make(map[string]models.AccessToken),
		internalUsers: make(map[primitive.ObjectID]models.InternalUser),
		tickets:       make(map[string]models.SupportTicket),
	}
}

func (s *Store) Ping(context.Context) error { return nil }

func sameEmail(a, b string) bool {
	return a != "" && strings.EqualFold(a, b)
}

// Users returns the user store view.
func (s *Store) Users() *Users { return (*Users)(s) }

func (s *Store) Tokens() *Tokens { return (*Tokens)(s) }

func (s *Store) InternalUsers() *InternalUsers { return (*InternalUsers)(s) }

func (s *Store) Catalog() *Catalog { return (*Catalog)(s) }

func (s *Store) Firmware() *Firmware { return (*Firmware)(s) }

func (s *Store) Tickets() *Tickets { return (*Tickets)(s) }

type Users Store

func (u *Users) Create(_ context.Context, user *models.User) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, existing := range u.users {
		if sameEmail(existing.Email, user.Email) {
			return repository.ErrDuplicate
		}
		if user.FacebookID != "" && existing.FacebookID == user.FacebookID {
			return repository.ErrDuplicate
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	u.users[user.ID] = *user
	return nil
}

func (u *Users) GetByID(_ context.Context, id primitive.ObjectID) (models.User, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	user, ok := u.users[id]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return user, nil
}

func (u *Users) FindByEmail(_ context.Context, email string) (models.User, error) {
	return u.find(func(user models.User) bool { return sameEmail(user.Email, email) }, repository.ErrUserNotFound)
}

func (u *Users) FindByFacebookID(_ context.Context, facebookID string) (models.User, error) {
	return u.find(func(user models.User) bool { return facebookID != "" && user.FacebookID == facebookID }, repository.ErrUserNotFound)
}

func (u *Users) EmailTakenByOther(_ context.Context, email string, id primitive.ObjectID) (bool, error) {
	_, err := u.find(func(user models.User) bool { return user.ID != id && sameEmail(user.Email, email) }, repository.ErrUserNotFound)
	if err != nil {
		return false, nil
	}
	return true, nil
}

func (u *Users) Update(_ context.Context, id primitive.ObjectID, patch models.UserPatch, now time.Time) (models.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if patch.Email != nil {
		for otherID, other := range u.users {
			if otherID != id && sameEmail(other.Email, *patch.Email) {
				return models.User{}, repository.ErrDuplicate
			}
		}
	}
	return u.modify(func(user models.User) bool { return user.ID == id }, repository.ErrUserNotFound, func(user *models.User) {
		patch.Apply(user, now)
	})
}

func (u *Users) SetConfirmationToken(_ context.Context, id primitive.ObjectID, token string, expiry, now time.Time) (models.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.modify(func(user models.User) bool { return user.ID == id }, repository.ErrUserNotFound, func(user *models.User) {
		user.EmailConfirmationToken = token
		user.EmailConfirmationTokenExpiry = &expiry
		user.UpdatedAt = now
	})
}

func (u *Users) ConfirmEmail(_ context.Context, token string, now time.Time) (models.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	match := func(user models.User) bool {
		return token != "" && user.EmailConfirmationToken == token &&
			user.EmailConfirmationTokenExpiry != nil && !now.After(*user.EmailConfirmationTokenExpiry)
	}
	return u.modify(match, repository.ErrTokenNotFound, func(user *models.User) {
		user.IsConfirmed = true
		user.EmailConfirmationToken = ""
		user.EmailConfirmationTokenExpiry = nil
		user.UpdatedAt = now
	})
}

func (u *Users) SetPasswordResetToken(_ context.Context, id primitive.ObjectID, token string, expiry, now time.Time) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	_, err := u.modify(func(user models.User) bool { return user.ID == id }, repository.ErrUserNotFound, func(user *models.User) {
		user.PasswordResetToken = token
		user.PasswordResetTokenExpiry = &expiry
		user.UpdatedAt = now
	})
	return err
}

func (u *Users) ConsumePasswordResetToken(_ context.Context, token string, now time.Time, hash []byte) (models.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	match := func(user models.User) bool {
		return token != "" && user.PasswordResetToken == token &&
			user.PasswordResetTokenExpiry != nil && !now.After(*user.PasswordResetTokenExpiry)
	}
	return u.modify(match, repository.ErrTokenNotFound, func(user *models.User) {
		user.Password = append([]byte(nil), hash...)
		user.PasswordResetToken = ""
		user.PasswordResetTokenExpiry = nil
		user.UpdatedAt = now
	})
}

func (u *Users) LinkFacebook(_ context.Context, id primitive.ObjectID, facebookID string, now time.Time) (models.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, other := range u.users {
		if other.FacebookID == facebookID {
			return models.User{}, repository.ErrDuplicate
		}
	}
	match := func(user models.User) bool { return user.ID == id && user.FacebookID == "" }
	return u.modify(match, repository.ErrUserNotFound, func(user *models.User) {
		user.FacebookID = facebookID
		user.IsConfirmed = true
		user.EmailConfirmationToken = ""
		user.EmailConfirmationTokenExpiry = nil
		user.UpdatedAt = now
	})
}

func (u *Users) RecordSession(_ context.Context, id primitive.ObjectID, streak int, at time.Time) (models.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.modify(func(user models.User) bool { return user.ID == id }, repository.ErrUserNotFound, func(user *models.User) {
		user.DailyStreak = streak
		user.LastSession = &at
		user.UpdatedAt = at
	})
}

func (u *Users) find(match func(models.User) bool, notFound error) (models.User, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	for _, user := range u.users {
		if match(user) {
			return user, nil
		}
	}
	return models.User{}, notFound
}

// modify must be called with the write lock held.
func (u *Users) modify(match func(models.User) bool, notFound error, change func(*models.User)) (models.User, error) {
	for id, user := range u.users {
		if !match(user) {
			continue
		}
		change(&user)
		u.users[id] = user
		return user, nil
	}
	return models.User{}, notFound
}

type Tokens Store

func (t *Tokens) Create(_ context.Context, token models.AccessToken) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.tokens[token.Token]; exists {
		return repository.ErrDuplicate
	}
	if token.ID.IsZero() {
		token.ID = primitive.NewObjectID()
	}
	t.tokens[token.Token] = token
	return nil
}

func (t *Tokens) FindByToken(_ context.Context, token string) (models.AccessToken, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	found, ok := t.tokens[token]
	if !ok {
		return models.AccessToken{}, repository.ErrTokenNotFound
	}
	return found, nil
}

func (t *Tokens) DeleteByToken(_ context.Context, token string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.tokens[token]; !ok {
		return repository.ErrTokenNotFound
	}
	delete(t.tokens, token)
	return nil
}

type InternalUsers Store

func (i *InternalUsers) Create(_ context.Context, user *models.InternalUser) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	for _, existing := range i.internalUsers {
		if sameEmail(existing.Email, user.Email) {
			return repository.ErrDuplicate
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	i.internalUsers[user.ID] = *user
	return nil
}

func (i *InternalUsers) FindByEmail(_ context.Context, email string) (models.InternalUser, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	for _, user := range i.internalUsers {
		if sameEmail(user.Email, email) {
			return user, nil
		}
	}
	return models.InternalUser{}, repository.ErrUserNotFound
}

func (i *InternalUsers) FindByAccessToken(_ context.Context, token string) (models.InternalUser, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	for _, user := range i.internalUsers {
		if token != "" && user.AccessToken == token {
			return user, nil
		}
	}
	return models.InternalUser{}, repository.ErrTokenNotFound
}

func (i *InternalUsers) SetAccessToken(_ context.Context, id primitive.ObjectID, token string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	user, ok := i.internalUsers[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.AccessToken = token
	i.internalUsers[id] = user
	return nil
}

func (i *InternalUsers) ClearAccessToken(_ context.Context, token string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	for id, user := range i.internalUsers {
		if token != "" && user.AccessToken == token {
			user.AccessToken = ""
			i.internalUsers[id] = user
			return nil
		}
	}
	return repository.ErrTokenNotFound
}

type Catalog Store

// Seed replaces the reference data.
func (c *Catalog) Seed(workouts []models.Workout, plans []models.TrainingPlan) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.workouts = append([]models.Workout(nil), workouts...)
	c.plans = append([]models.TrainingPlan(nil), plans...)
}

// FailWith makes subsequent list calls return err; nil restores them.
func (c *Catalog) FailWith(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.catalogErr = err
}

// Queries counts list calls since the store was created.
func (c *Catalog) Queries() int64 {
	return c.catalogQueries.Load()
}

func (c *Catalog) ListWorkouts(context.Context) ([]models.Workout, error) {
	c.catalogQueries.Add(1)
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.catalogErr != nil {
		return nil, c.catalogErr
	}
	return append([]models.Workout{}, c.workouts...), nil
}

func (c *Catalog) ListTrainingPlans(context.Context) ([]models.TrainingPlan, error) {
	c.catalogQueries.Add(1)
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.catalogErr != nil {
		return nil, c.catalogErr
	}
	return append([]models.TrainingPlan{}, c.plans...), nil
}

type Firmware Store

func (f *Firmware) Create(_ context.Context, fw *models.Firmware) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.firmware {
		if existing.Type == fw.Type && existing.Version == fw.Version {
			return repository.ErrDuplicate
		}
	}
	if fw.ID.IsZero() {
		fw.ID = primitive.NewObjectID()
	}
	f.firmware = append(f.firmware, *fw)
	return nil
}

func (f *Firmware) Latest(_ context.Context, typ models.FirmwareType) (models.Firmware, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	matches := make([]models.Firmware, 0)
	for _, fw := range f.firmware {
		if fw.Type == typ {
			matches = append(matches, fw)
		}
	}
	if len(matches) == 0 {
		return models.Firmware{}, repository.ErrNotFound
	}
	sort.Slice(matches, func(a, b int) bool {
		x, y := matches[a], matches[b]
		if x.Major != y.Major {
			return x.Major > y.Major
		}
		if x.Minor != y.Minor {
			return x.Minor > y.Minor
		}
		return x.Patch > y.Patch
	})
	return matches[0], nil
}

type Tickets Store

func (t *Tickets) Create(_ context.Context, ticket *models.SupportTicket) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.tickets[ticket.Reference]; exists {
		return repository.ErrDuplicate
	}
	if ticket.ID.IsZero() {
		ticket.ID = primitive.NewObjectID()
	}
	t.tickets[ticket.Reference] = *ticket
	return nil
}

func (t *Tickets) UpdateStatus(_ context.Context, reference string, status models.TicketStatus) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	ticket, ok := t.tickets[reference]
	if !ok {
		return repository.ErrNotFound
	}
	ticket.Status = status
	t.tickets[reference] = ticket
	return nil
}

func (t *Tickets) Get(reference string) (models.SupportTicket, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ticket, ok := t.tickets[reference]
	return ticket, ok
}
