package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"postura/api/internal/config"
	"postura/api/internal/handlers"
	"postura/api/internal/memstore"
)

func TestUnknownRoutesAnswerJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := memstore.New()
	cfg := &config.AppConfig{HTTP: config.HTTPConfig{BasePath: "/api"}}
	handlerSet := handlers.NewHandlerSet(zerolog.Nop(), cfg, handlers.Options{
		Tokens:   store.Tokens(),
		Admins:   store.InternalUsers(),
		Database: store,
	})
	srv := NewHTTPServer(cfg, zerolog.Nop(), handlerSet)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/nothing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Not found"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/v1/workouts", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
