package api

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// expiryDelta is how long before its stated expiry a token is treated as
// expired, so a request never reaches the server with a token that lapses
// in flight.
const expiryDelta = 10 * time.Second

// Authenticator performs one authentication round-trip and returns the
// issued token with its expiry. Defined here at the consumer; Client
// provides the real implementation against POST /auth.
type Authenticator interface {
	Authenticate(ctx context.Context) (*oauth2.Token, error)
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc func(ctx context.Context) (*oauth2.Token, error)

// Authenticate calls f(ctx).
func (f AuthenticatorFunc) Authenticate(ctx context.Context) (*oauth2.Token, error) {
	return f(ctx)
}

// Session owns the authentication token of one client. The token is only
// ever replaced by a successful authentication or cleared by Invalidate;
// it is never persisted.
type Session struct {
	auth   Authenticator
	logger *slog.Logger

	// nowFunc returns the current time. Tests override it to move the
	// clock past a token's expiry.
	nowFunc func() time.Time

	mu    sync.Mutex
	token *oauth2.Token

	// group coalesces concurrent reconnects into one /auth call.
	group singleflight.Group
}

// NewSession creates a Session that authenticates through auth on demand.
func NewSession(auth Authenticator, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}

	return &Session{
		auth:    auth,
		logger:  logger,
		nowFunc: time.Now,
	}
}

// EnsureConnected returns a token that has not expired, authenticating
// first if no token is held or the held one has lapsed.
func (s *Session) EnsureConnected(ctx context.Context) (string, error) {
	if tok := s.current(); tok != "" {
		return tok, nil
	}

	v, err, shared := s.group.Do("auth", func() (any, error) {
		s.logger.Debug("authenticating session")

		tok, err := s.auth.Authenticate(ctx)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		s.token = tok
		s.mu.Unlock()

		s.logger.Info("session authenticated",
			slog.Time("expiry", tok.Expiry),
		)

		return tok.AccessToken, nil
	})
	if err != nil {
		return "", err
	}

	if shared {
		s.logger.Debug("joined in-flight authentication")
	}

	return v.(string), nil //nolint:forcetypeassert // closure only returns string
}

// Invalidate drops the held token so the next EnsureConnected
// re-authenticates.
func (s *Session) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != nil {
		s.logger.Debug("invalidating session token")
	}

	s.token = nil
}

// Expiry returns the expiry of the held token, or the zero time when no
// token is held or the token carries no expiry.
func (s *Session) Expiry() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token == nil {
		return time.Time{}
	}

	return s.token.Expiry
}

// current returns the held access token if it is still usable, or "".
func (s *Session) current() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.token.Valid() {
		return ""
	}

	if !s.token.Expiry.IsZero() && !s.nowFunc().Add(expiryDelta).Before(s.token.Expiry) {
		return ""
	}

	return s.token.AccessToken
}
