// Package armory fetches character data from the Battle.net profile and game data APIs.
package armory

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	// DefaultAPIURL is the US Battle.net API host.
	DefaultAPIURL = "https://us.api.blizzard.com"
	// DefaultTokenURL is the Battle.net OAuth token endpoint.
	DefaultTokenURL = "https://oauth.battle.net/token"

	profileNamespace = "profile-us"
	staticNamespace  = "static-us"
	locale           = "en_US"
)

// APIError indicates a non-2xx response from the Battle.net API.
type APIError struct {
	Path       string
	StatusCode int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Path)
}

// TokenSource acquires client-credentials bearer tokens.
type TokenSource struct {
	config *clientcredentials.Config
	client *http.Client
	logger *slog.Logger
}

// NewTokenSource creates a token source. Credentials are sent in the form body.
func NewTokenSource(clientID, clientSecret, tokenURL string, client *http.Client, logger *slog.Logger) *TokenSource {
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	return &TokenSource{
		config: &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		client: client,
		logger: logger,
	}
}

// Token performs a single token request.
func (t *TokenSource) Token(ctx context.Context) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, t.client)

	startTime := time.Now()
	tok, err := t.config.Token(ctx)
	duration := time.Since(startTime)
	if err != nil {
		t.logger.Warn("Token request failed",
			"url", t.config.TokenURL,
			"duration_ms", duration.Milliseconds(),
			"error", err)
		return "", fmt.Errorf("fetch token: %w", err)
	}

	t.logger.Info("Token acquired", "duration_ms", duration.Milliseconds(), "expiry", tok.Expiry.Format(time.RFC3339))
	return tok.AccessToken, nil
}

// Client calls Battle.net endpoints with a bearer token.
type Client struct {
	http   *resty.Client
	logger *slog.Logger
}

// NewClient creates an API client against baseURL.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &Client{http: c, logger: logger}
}

// CharacterProfile is the subset of the character profile summary we use.
type CharacterProfile struct {
	EquippedItemLevel *int `json:"equipped_item_level"`
	CharacterClass    *struct {
		Name string `json:"name"`
	} `json:"character_class"`
	ActiveSpec *struct {
		ID int `json:"id"`
	} `json:"active_spec"`
	Guild *struct {
		Name string `json:"name"`
	} `json:"guild"`
}

// SpecMedia is the playable specialization media document.
type SpecMedia struct {
	Assets []struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	} `json:"assets"`
}

// KeystoneProfile is the mythic keystone profile summary.
type KeystoneProfile struct {
	CurrentMythicRating *struct {
		Rating *float64 `json:"rating"`
	} `json:"current_mythic_rating"`
}

// Achievements is the character achievements summary.
type Achievements struct {
	Achievements []struct {
		ID int `json:"id"`
	} `json:"achievements"`
}

func characterPath(realm, name string) string {
	return fmt.Sprintf("/profile/wow/character/%s/%s", url.PathEscape(realm), name)
}

// Profile fetches the character profile summary. name must already be
// lowercased and escaped.
func (c *Client) Profile(ctx context.Context, token, realm, name string) (*CharacterProfile, error) {
	var out CharacterProfile
	if err := c.get(ctx, token, characterPath(realm, name), profileNamespace, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SpecMedia fetches media assets for a playable specialization.
func (c *Client) SpecMedia(ctx context.Context, token string, specID int) (*SpecMedia, error) {
	var out SpecMedia
	path := fmt.Sprintf("/data/wow/media/playable-specialization/%d", specID)
	if err := c.get(ctx, token, path, staticNamespace, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// KeystoneProfile fetches the mythic keystone profile.
func (c *Client) KeystoneProfile(ctx context.Context, token, realm, name string) (*KeystoneProfile, error) {
	var out KeystoneProfile
	if err := c.get(ctx, token, characterPath(realm, name)+"/mythic-keystone-profile", profileNamespace, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Achievements fetches the achievements summary.
func (c *Client) Achievements(ctx context.Context, token, realm, name string) (*Achievements, error) {
	var out Achievements
	if err := c.get(ctx, token, characterPath(realm, name)+"/achievements", profileNamespace, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) get(ctx context.Context, token, path, namespace string, out any) error {
	c.logger.Debug("HTTP request starting", "method", "GET", "path", path)

	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParams(map[string]string{
			"namespace": namespace,
			"locale":    locale,
		}).
		ForceContentType("application/json").
		SetResult(out).
		Get(path)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}

	c.logger.Info("HTTP request completed",
		"path", path,
		"status_code", resp.StatusCode(),
		"duration_ms", resp.Time().Milliseconds())

	if !resp.IsSuccess() {
		return &APIError{Path: path, StatusCode: resp.StatusCode()}
	}
	return nil
}
