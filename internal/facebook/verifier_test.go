package facebook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postura/api/internal/config"
)

func graphServer(t *testing.T, debug map[string]any, me map[string]any) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "app-token", "token_type": "bearer"})
	})
	mux.HandleFunc("/debug_token", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer app-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": debug})
	})
	mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(me)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(url string) *Client {
	return NewClient(config.FacebookConfig{AppID: "app-1", AppSecret: "shh", GraphURL: url, Timeout: 2 * time.Second})
}

func TestVerifyTokenAccepts(t *testing.T) {
	srv := graphServer(t,
		map[string]any{"app_id": "app-1", "user_id": "fb-42", "is_valid": true},
		map[string]any{"id": "fb-42", "email": "a@b.com", "first_name": "Ana"},
	)

	profile, err := newTestClient(srv.URL).VerifyToken(context.Background(), "user-token", "fb-42")
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", profile.Email)
	assert.Equal(t, "Ana", profile.FirstName)
}

func TestVerifyTokenRejectsMismatch(t *testing.T) {
	cases := map[string]map[string]any{
		"invalid":    {"app_id": "app-1", "user_id": "fb-42", "is_valid": false},
		"other app":  {"app_id": "app-2", "user_id": "fb-42", "is_valid": true},
		"other user": {"app_id": "app-1", "user_id": "fb-7", "is_valid": true},
	}
	for name, debug := range cases {
		t.Run(name, func(t *testing.T) {
			srv := graphServer(t, debug, map[string]any{"id": "fb-42"})
			_, err := newTestClient(srv.URL).VerifyToken(context.Background(), "user-token", "fb-42")
			assert.ErrorIs(t, err, ErrVerificationFailed)
		})
	}
}

func TestVerifyTokenFailsClosedOnTransportError(t *testing.T) {
	srv := graphServer(t, nil, nil)
	srv.Close()

	_, err := newTestClient(srv.URL).VerifyToken(context.Background(), "user-token", "fb-42")
	assert.ErrorIs(t, err, ErrVerificationFailed)
}
