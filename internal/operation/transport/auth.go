package transport

import (
	"context"
	"errors"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	pkgerrors "github.com/tombee/grcconnector/pkg/errors"
)

// Auth types supported by HTTPTransport.
const (
	AuthTypeBearer = "bearer"
	AuthTypeOAuth2 = "oauth2"
)

// AuthConfig selects how requests are authenticated. Secret values must be
// resolved before they get here; see internal/secrets.
type AuthConfig struct {
	Type string

	// Token is the static API token (bearer).
	Token string

	// Client credentials grant (oauth2).
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scopes       []string
}

// Validate reports every missing or malformed field at once.
func (a *AuthConfig) Validate() error {
	var errs []error
	require := func(key, value string) {
		if value == "" {
			errs = append(errs, &pkgerrors.ConfigError{Key: "auth." + key, Reason: "required for " + a.Type + " auth"})
		}
	}

	switch a.Type {
	case AuthTypeBearer:
		require("token", a.Token)
	case AuthTypeOAuth2:
		require("client_id", a.ClientID)
		require("client_secret", a.ClientSecret)
		require("token_url", a.TokenURL)
		if a.TokenURL != "" {
			if err := validateAbsoluteURL(a.TokenURL); err != nil {
				errs = append(errs, &pkgerrors.ConfigError{Key: "auth.token_url", Reason: err.Error(), Cause: err})
			}
		}
	default:
		errs = append(errs, &pkgerrors.ConfigError{Key: "auth.type", Reason: "must be bearer or oauth2, got " + a.Type})
	}
	return errors.Join(errs...)
}

// tokenSource turns a into an oauth2.TokenSource. Static tokens never
// expire; client credentials are fetched on first use through client and
// cached until shortly before expiry.
func (a *AuthConfig) tokenSource(client *http.Client) oauth2.TokenSource {
	if a.Type == AuthTypeOAuth2 {
		cc := &clientcredentials.Config{
			ClientID:     a.ClientID,
			ClientSecret: a.ClientSecret,
			TokenURL:     a.TokenURL,
			Scopes:       a.Scopes,
		}
		return cc.TokenSource(context.WithValue(context.Background(), oauth2.HTTPClient, client))
	}
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: a.Token})
}

// authorize sets the Authorization header unless the caller set one.
func (t *HTTPTransport) authorize(req *http.Request) error {
	if t.tokens == nil || req.Header.Get("Authorization") != "" {
		return nil
	}
	token, err := t.tokens.Token()
	if err != nil {
		return &TransportError{Type: ErrorTypeAuth, Message: "failed to acquire OAuth2 token", Cause: err}
	}
	token.SetAuthHeader(req)
	return nil
}
