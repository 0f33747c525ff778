package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"postura/api/internal/catalog"
	"postura/api/internal/config"
	"postura/api/internal/email"
	"postura/api/internal/facebook"
	"postura/api/internal/memstore"
	"postura/api/internal/models"
	"postura/api/internal/security"
	"postura/api/internal/service"
	"postura/api/internal/storage"
)

const (
	invalidCredentials = `{"error":"Invalid credentials"}`
	invalidToken       = `{"error":"Invalid or expired token"}`
)

var tokenInLink = regexp.MustCompile(`token=([0-9a-f]+)`)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubVerifier accepts the tokens it knows, for the Facebook user id they
// were issued to.
type stubVerifier struct {
	profiles map[string]facebook.Profile
}

func (s stubVerifier) VerifyToken(_ context.Context, token, userID string) (facebook.Profile, error) {
	profile, ok := s.profiles[token]
	if !ok || profile.ID != userID {
		return facebook.Profile{}, facebook.ErrVerificationFailed
	}
	return profile, nil
}

type harness struct {
	router   *gin.Engine
	store    *memstore.Store
	outbox   *email.MemorySender
	blobs    *storage.MemoryStore
	verifier stubVerifier
	services service.Services
	beginner models.TrainingPlan
	workout  models.Workout
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	cfg := &config.AppConfig{
		Environment: "test",
		Storage: config.StorageConfig{
			BucketFirmware: "firmware",
			PresignTTL:     time.Minute,
		},
		Email: config.EmailConfig{
			SupportAddress:      "support@postura.app",
			ConfirmationBaseURL: "https://app.postura.app/confirm-email",
			ResetBaseURL:        "https://app.postura.app/reset-password",
			Timeout:             time.Second,
		},
		Catalog: config.CatalogConfig{DefaultTrainingPlans: []string{"Beginner"}},
	}

	h := &harness{
		store:    memstore.New(),
		outbox:   email.NewMemorySender(),
		blobs:    storage.NewMemoryStore(),
		verifier: stubVerifier{profiles: map[string]facebook.Profile{}},
		beginner: models.TrainingPlan{ID: primitive.NewObjectID(), Name: "Beginner"},
		workout:  models.Workout{ID: primitive.NewObjectID(), Name: "Wall angels"},
	}
	h.store.Catalog().Seed(
		[]models.Workout{h.workout},
		[]models.TrainingPlan{h.beginner, {ID: primitive.NewObjectID(), Name: "Advanced"}},
	)

	log := zerolog.Nop()
	h.services = service.New(cfg, service.Dependencies{
		Users:         h.store.Users(),
		Tokens:        h.store.Tokens(),
		InternalUsers: h.store.InternalUsers(),
		Firmware:      h.store.Firmware(),
		Tickets:       h.store.Tickets(),
		Blobs:         h.blobs,
		Mailer:        email.NewMailer(h.outbox, cfg.Email, log),
		Verifier:      h.verifier,
		Catalog:       catalog.New(h.store.Catalog(), time.Now, log),
		Factory:       security.NewTokenFactory("handler-test-secret"),
	}, log)

	handlerSet := NewHandlerSet(log, cfg, Options{
		Services: h.services,
		Tokens:   h.store.Tokens(),
		Admins:   h.store.InternalUsers(),
		Database: h.store,
	})
	h.router = gin.New()
	handlerSet.Register(h.router.Group("/api"))
	return h
}

func (h *harness) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// lastToken pulls the token out of the most recent email sent to address.
func (h *harness) lastToken(t *testing.T, address string) string {
	t.Helper()
	messages := h.outbox.Messages()
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].To != address {
			continue
		}
		match := tokenInLink.FindStringSubmatch(messages[i].Body)
		require.NotNil(t, match, messages[i].Body)
		return match[1]
	}
	t.Fatalf("no email sent to %s", address)
	return ""
}

type account struct {
	id    string
	token string
}

func (h *harness) signup(t *testing.T, address, password string) account {
	t.Helper()
	rec := h.do(t, http.MethodPost, "/api/v1/users", "", map[string]any{"email": address, "password": password})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	return account{id: body["_id"].(string), token: body["accessToken"].(string)}
}

func (h *harness) confirm(t *testing.T, address string) {
	t.Helper()
	rec := h.do(t, http.MethodGet, "/api/v1/users/confirm-email?token="+h.lastToken(t, address), "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestSignup(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/v1/users", "", map[string]any{
		"email":     "a@b.com",
		"password":  "Abcdef01",
		"firstName": "Ana",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body := decode(t, rec)
	assert.NotContains(t, body, "password")
	assert.NotContains(t, body, "emailConfirmationToken")
	assert.GreaterOrEqual(t, len(body["accessToken"].(string)), 40)
	assert.Equal(t, false, body["isConfirmed"])
	assert.Equal(t, "Ana", body["firstName"])
	assert.Equal(t, []any{h.beginner.ID.Hex()}, body["trainingPlans"])

	settings := body["settings"].(map[string]any)
	assert.Equal(t, 0.2, settings["postureThreshold"])
	assert.Equal(t, float64(50), settings["vibrationStrength"])

	msg, ok := h.outbox.Last()
	require.True(t, ok)
	assert.Equal(t, "a@b.com", msg.To)
	assert.Contains(t, msg.Body, "https://app.postura.app/confirm-email?token=")

	rec = h.do(t, http.MethodPost, "/api/v1/users", "", map[string]any{"email": "A@B.com", "password": "Abcdef01"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSignupValidation(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/v1/users", "", map[string]any{"email": "a@b.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"\"password\" is required"}`, rec.Body.String())

	rec = h.do(t, http.MethodPost, "/api/v1/users", "", map[string]any{
		"email":      "a@b.com",
		"password":   "Abcdef01",
		"facebookId": "123",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"\"facebookId\" is not allowed"}`, rec.Body.String())
}

func TestLoginFailuresAreUniform(t *testing.T) {
	h := newHarness(t)
	h.signup(t, "a@b.com", "Abcdef01")

	unknown := h.do(t, http.MethodPost, "/api/v1/auth/email", "", map[string]any{"email": "nobody@b.com", "password": "Abcdef01"})
	wrong := h.do(t, http.MethodPost, "/api/v1/auth/email", "", map[string]any{"email": "a@b.com", "password": "Wrong0000"})

	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, unknown.Body.String(), wrong.Body.String())
	assert.JSONEq(t, invalidCredentials, wrong.Body.String())

	ok := h.do(t, http.MethodPost, "/api/v1/auth/email", "", map[string]any{"email": "A@b.com", "password": "Abcdef01"})
	require.Equal(t, http.StatusOK, ok.Code)
	body := decode(t, ok)
	assert.Equal(t, "a@b.com", body["email"])
	assert.NotEmpty(t, body["accessToken"])
}

func TestPasswordReset(t *testing.T) {
	h := newHarness(t)
	acct := h.signup(t, "a@b.com", "Abcdef01")
	h.confirm(t, "a@b.com")

	rec := h.do(t, http.MethodPost, "/api/v1/users/password-reset", "", map[string]any{"email": "a@b.com"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	token := h.lastToken(t, "a@b.com")

	reset := map[string]any{"token": token, "password": "Newpass99", "password2": "Newpass99"}
	rec = h.do(t, http.MethodPut, "/api/v1/users/password-reset", "", reset)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	id, err := primitive.ObjectIDFromHex(acct.id)
	require.NoError(t, err)
	stored, err := h.store.Users().GetByID(context.Background(), id)
	require.NoError(t, err)
	ok, err := security.VerifyPassword("Newpass99", stored.Password)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, stored.PasswordResetToken)
	assert.Nil(t, stored.PasswordResetTokenExpiry)

	rec = h.do(t, http.MethodPut, "/api/v1/users/password-reset", "", reset)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, invalidToken, rec.Body.String())

	login := h.do(t, http.MethodPost, "/api/v1/auth/email", "", map[string]any{"email": "a@b.com", "password": "Newpass99"})
	assert.Equal(t, http.StatusOK, login.Code)
}

func TestPasswordResetForUnknownEmailLooksTheSame(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/v1/users/password-reset", "", map[string]any{"email": "ghost@b.com"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, h.outbox.Messages())
}

func TestSelfGuard(t *testing.T) {
	h := newHarness(t)
	x := h.signup(t, "x@b.com", "Abcdef01")
	y := h.signup(t, "y@b.com", "Abcdef01")

	rec := h.do(t, http.MethodGet, "/api/v1/users/"+y.id, x.token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, invalidCredentials, rec.Body.String())

	rec = h.do(t, http.MethodGet, "/api/v1/users/"+x.id, x.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "x@b.com", decode(t, rec)["email"])
}

func TestFacebookLinksExistingAccount(t *testing.T) {
	h := newHarness(t)
	acct := h.signup(t, "a@b.com", "Abcdef01")
	h.confirm(t, "a@b.com")
	h.verifier.profiles["fb-token"] = facebook.Profile{ID: "fb-123", Email: "a@b.com", FirstName: "Ana"}

	rec := h.do(t, http.MethodPost, "/api/v1/auth/facebook", "", map[string]any{"accessToken": "fb-token", "id": "fb-123"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode(t, rec)
	user := body["user"].(map[string]any)
	assert.Equal(t, acct.id, user["_id"])
	assert.Equal(t, "fb-123", user["facebookId"])
	assert.Equal(t, true, user["isConfirmed"])
	assert.Equal(t, false, body["isNew"])

	token := body["accessToken"].(string)
	rec = h.do(t, http.MethodGet, "/api/v1/users/"+acct.id, token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, http.MethodPost, "/api/v1/auth/facebook", "", map[string]any{"accessToken": "fb-token", "id": "fb-999"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, invalidCredentials, rec.Body.String())
}

func TestFacebookCreatesNewAccount(t *testing.T) {
	h := newHarness(t)
	h.verifier.profiles["fresh"] = facebook.Profile{ID: "fb-1", Email: "new@b.com"}

	rec := h.do(t, http.MethodPost, "/api/v1/auth/facebook", "", map[string]any{"accessToken": "fresh", "id": "fb-1"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, true, body["isNew"])
	assert.Equal(t, "FACEBOOK", body["user"].(map[string]any)["authMethod"])

	rec = h.do(t, http.MethodPost, "/api/v1/auth/facebook", "", map[string]any{"accessToken": "fresh", "id": "fb-1"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["isNew"])
}

func TestConfirmEmailTokenIsSingleUse(t *testing.T) {
	h := newHarness(t)
	acct := h.signup(t, "a@b.com", "Abcdef01")
	token := h.lastToken(t, "a@b.com")

	rec := h.do(t, http.MethodGet, "/api/v1/users/confirm-email?token="+token, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["isConfirmed"])

	rec = h.do(t, http.MethodGet, "/api/v1/users/confirm-email?token="+token, "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, invalidToken, rec.Body.String())

	rec = h.do(t, http.MethodPost, "/api/v1/users/"+acct.id+"/confirmation", acct.token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLogoutRevokesToken(t *testing.T) {
	h := newHarness(t)
	acct := h.signup(t, "a@b.com", "Abcdef01")

	rec := h.do(t, http.MethodDelete, "/api/v1/auth", acct.token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/v1/users/"+acct.id, acct.token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUpdateMergesSettings(t *testing.T) {
	h := newHarness(t)
	acct := h.signup(t, "a@b.com", "Abcdef01")
	path := "/api/v1/users/" + acct.id

	rec := h.do(t, http.MethodPatch, path, acct.token, map[string]any{
		"settings":         map[string]any{"vibrationStrength": 80, "backEnabled": false},
		"favoriteWorkouts": []string{h.workout.ID.Hex()},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	settings := decode(t, rec)["settings"].(map[string]any)
	assert.Equal(t, float64(80), settings["vibrationStrength"])
	assert.Equal(t, false, settings["backEnabled"])
	assert.Equal(t, float64(1200), settings["reminderTime"])

	rec = h.do(t, http.MethodGet, path+"/favorite-workouts", acct.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	items := decode(t, rec)["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "Wall angels", items[0].(map[string]any)["name"])

	rec = h.do(t, http.MethodPatch, path, acct.token, map[string]any{"password": "Abcdef02"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodPatch, path, acct.token, map[string]any{"isConfirmed": true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEmailChangeRequiresReconfirmation(t *testing.T) {
	h := newHarness(t)
	acct := h.signup(t, "a@b.com", "Abcdef01")
	h.confirm(t, "a@b.com")
	h.signup(t, "taken@b.com", "Abcdef01")
	path := "/api/v1/users/" + acct.id

	rec := h.do(t, http.MethodPatch, path, acct.token, map[string]any{"email": "TAKEN@b.com"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = h.do(t, http.MethodPatch, path, acct.token, map[string]any{"email": "new@b.com"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "new@b.com", body["email"])
	assert.Equal(t, false, body["isConfirmed"])

	h.confirm(t, "new@b.com")
}

func TestCatalogRoutes(t *testing.T) {
	h := newHarness(t)
	acct := h.signup(t, "a@b.com", "Abcdef01")

	assert.Equal(t, http.StatusUnauthorized, h.do(t, http.MethodGet, "/api/v1/workouts", "", nil).Code)

	rec := h.do(t, http.MethodGet, "/api/v1/workouts", acct.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["items"], 1)

	rec = h.do(t, http.MethodGet, "/api/v1/workouts/"+h.workout.ID.Hex(), acct.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Wall angels", decode(t, rec)["name"])

	rec = h.do(t, http.MethodGet, "/api/v1/workouts/"+primitive.NewObjectID().Hex(), acct.token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/v1/training-plans", acct.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["items"], 2)

	rec = h.do(t, http.MethodGet, "/api/v1/users/"+acct.id+"/training-plans", acct.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["items"], 1)
}

func TestRecordSessionStreak(t *testing.T) {
	h := newHarness(t)
	acct := h.signup(t, "a@b.com", "Abcdef01")
	path := "/api/v1/users/" + acct.id + "/sessions"

	day := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	for i, want := range []float64{1, 1, 2} {
		at := day.Add(time.Duration(i/2) * 24 * time.Hour).Add(time.Duration(i) * time.Hour)
		rec := h.do(t, http.MethodPost, path, acct.token, map[string]any{"at": at.Format(time.RFC3339)})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, want, decode(t, rec)["dailyStreak"])
	}
}

func TestSupportTicketSentInline(t *testing.T) {
	h := newHarness(t)
	acct := h.signup(t, "a@b.com", "Abcdef01")

	rec := h.do(t, http.MethodPost, "/api/v1/users/"+acct.id+"/support", acct.token, map[string]any{
		"subject": "Strap",
		"message": "The strap keeps slipping",
	})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "SENT", body["status"])

	msg, ok := h.outbox.Last()
	require.True(t, ok)
	assert.Equal(t, "support@postura.app", msg.To)
	assert.Contains(t, msg.Subject, body["reference"].(string))

	ticket, ok := h.store.Tickets().Get(body["reference"].(string))
	require.True(t, ok)
	assert.Equal(t, models.TicketStatusSent, ticket.Status)
}

func adminToken(t *testing.T, h *harness) string {
	t.Helper()
	_, err := h.services.Admin.CreateInternalUser(context.Background(), "ops@postura.app", "Operator1")
	require.NoError(t, err)

	rec := h.do(t, http.MethodPost, "/api/v1/admin/login", "", map[string]any{"email": "ops@postura.app", "password": "Operator1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode(t, rec)["accessToken"].(string)
}

func TestAdminSessionIsSingleSlot(t *testing.T) {
	h := newHarness(t)
	first := adminToken(t, h)

	rec := h.do(t, http.MethodPost, "/api/v1/admin/catalog/refresh", first, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(1), decode(t, rec)["workouts"])

	rec = h.do(t, http.MethodDelete, "/api/v1/admin/logout", first, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = h.do(t, http.MethodPost, "/api/v1/admin/catalog/refresh", first, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, invalidCredentials, rec.Body.String())
}

func TestFirmwarePublishAndLatest(t *testing.T) {
	h := newHarness(t)
	admin := adminToken(t, h)
	user := h.signup(t, "a@b.com", "Abcdef01")

	publish := func(version string) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		form := multipart.NewWriter(&buf)
		require.NoError(t, form.WriteField("type", "APP"))
		require.NoError(t, form.WriteField("version", version))
		part, err := form.CreateFormFile("file", "app.bin")
		require.NoError(t, err)
		_, err = part.Write([]byte("firmware " + version))
		require.NoError(t, err)
		require.NoError(t, form.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/firmware", &buf)
		req.Header.Set("Content-Type", form.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+admin)
		rec := httptest.NewRecorder()
		h.router.ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, http.StatusCreated, publish("1.2.0").Code)
	require.Equal(t, http.StatusCreated, publish("1.10.0").Code)
	assert.Equal(t, http.StatusConflict, publish("1.10.0").Code)

	rec := h.do(t, http.MethodGet, "/api/v1/firmware?type=APP", user.token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "1.10.0", body["version"])
	assert.NotEmpty(t, body["downloadUrl"])

	rec = h.do(t, http.MethodGet, "/api/v1/firmware?type=BOOTLOADER", user.token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/v1/firmware", user.token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/api/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "ok", body["database"])
	assert.Equal(t, "disabled", body["cache"])
}

func TestMalformedBody(t *testing.T) {
	h := newHarness(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/email", bytes.NewBufferString("[1,2"))
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
