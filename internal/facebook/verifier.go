// Package facebook checks Facebook user access tokens against the Graph API.
package facebook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	fbendpoint "golang.org/x/oauth2/facebook"

	"postura/api/internal/config"
)

const DefaultGraphURL = "https://graph.facebook.com"

// ErrVerificationFailed covers every way a token can fail to verify,
// including transport errors.
var ErrVerificationFailed = errors.New("facebook token verification failed")

type Profile struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type Verifier interface {
	VerifyToken(ctx context.Context, token, userID string) (Profile, error)
}

type Client struct {
	appID    string
	graphURL string
	http     *http.Client
	app      *clientcredentials.Config
}

func NewClient(cfg config.FacebookConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	graphURL := strings.TrimSuffix(cfg.GraphURL, "/")
	if graphURL == "" {
		graphURL = DefaultGraphURL
	}
	tokenURL := fbendpoint.Endpoint.TokenURL
	if graphURL != DefaultGraphURL {
		tokenURL = graphURL + "/oauth/access_token"
	}

	return &Client{
		appID:    cfg.AppID,
		graphURL: graphURL,
		http:     &http.Client{Timeout: timeout},
		app: &clientcredentials.Config{
			ClientID:     cfg.AppID,
			ClientSecret: cfg.AppSecret,
			TokenURL:     tokenURL,
			AuthStyle:    oauth2.AuthStyleInParams,
		},
	}
}

type debugTokenResponse struct {
	Data struct {
		AppID   string `json:"app_id"`
		UserID  string `json:"user_id"`
		IsValid bool   `json:"is_valid"`
	} `json:"data"`
}

// VerifyToken accepts token only if Graph reports it valid, issued for this
// app, and owned by userID. It then loads the user's basic profile.
func (c *Client) VerifyToken(ctx context.Context, token, userID string) (Profile, error) {
	if token == "" || userID == "" || c.appID == "" {
		return Profile{}, ErrVerificationFailed
	}

	var debug debugTokenResponse
	if err := c.get(ctx, c.appClient(ctx), "/debug_token", url.Values{"input_token": {token}}, &debug); err != nil {
		return Profile{}, fmt.Errorf("%w: debug_token: %v", ErrVerificationFailed, err)
	}
	if !debug.Data.IsValid || debug.Data.AppID != c.appID || debug.Data.UserID != userID {
		return Profile{}, ErrVerificationFailed
	}

	var profile Profile
	query := url.Values{
		"fields":       {"id,email,first_name,last_name"},
		"access_token": {token},
	}
	if err := c.get(ctx, c.http, "/me", query, &profile); err != nil {
		return Profile{}, fmt.Errorf("%w: me: %v", ErrVerificationFailed, err)
	}
	if profile.ID != userID {
		return Profile{}, ErrVerificationFailed
	}
	return profile, nil
}

// appClient authenticates requests with the app access token.
func (c *Client) appClient(ctx context.Context) *http.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	client := c.app.Client(ctx)
	client.Timeout = c.http.Timeout
	return client
}

func (c *Client) get(ctx context.Context, client *http.Client, path string, query url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.graphURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("graph status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
