package admin

import (
	"context"
	"time"

	"tienda-be/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Status is what Check reports for a token.
type Status struct {
	LoggedIn bool   `json:"loggedIn"`
	Username string `json:"usuario,omitempty"`
}

// Gate is the admin login state machine: Anonymous until Login succeeds,
// Authenticated until Logout or the session TTL runs out.
type Gate struct {
	creds    CredentialProvider
	sessions SessionStore
	ttl      time.Duration
	now      func() time.Time
	newToken func() string
}

type Option func(*Gate)

func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

func WithTokenGenerator(fn func() string) Option {
	return func(g *Gate) { g.newToken = fn }
}

func NewGate(creds CredentialProvider, sessions SessionStore, ttl time.Duration, opts ...Option) *Gate {
	g := &Gate{
		creds:    creds,
		sessions: sessions,
		ttl:      ttl,
		now:      time.Now,
		newToken: uuid.NewString,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gate) TTL() time.Duration { return g.ttl }

// dummyHash is compared against when the username is unknown so both
// failure paths cost one bcrypt comparison.
var dummyHash, _ = HashPassword("tienda-unknown-admin")

func (g *Gate) Login(ctx context.Context, username, password string) (Session, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "AdminLogin"),
	)

	cred, found, err := g.creds.Lookup(ctx, username)
	if err != nil {
		log.Error("credential lookup failed", zap.Error(err))
		return Session{}, err
	}

	hash := dummyHash
	if found {
		hash = cred.PasswordHash
	}
	if !CheckPasswordHash(password, hash) || !found {
		log.Warn("admin login rejected")
		return Session{}, ErrInvalidCredentials
	}

	s := Session{
		Token:     g.newToken(),
		Username:  cred.Username,
		ExpiresAt: g.now().Add(g.ttl),
	}
	if err := g.sessions.Put(ctx, s); err != nil {
		log.Error("failed to store session", zap.Error(err))
		return Session{}, err
	}

	log.Info("admin logged in", zap.String("usuario", s.Username))
	return s, nil
}

// Check resolves a token. Unknown and expired tokens are Anonymous; expired
// sessions are removed on sight.
func (g *Gate) Check(ctx context.Context, token string) (Status, error) {
	if token == "" {
		return Status{}, nil
	}

	s, ok, err := g.sessions.Get(ctx, token)
	if err != nil {
		return Status{}, err
	}
	if !ok {
		return Status{}, nil
	}
	if s.Expired(g.now()) {
		if err := g.sessions.Delete(ctx, token); err != nil {
			logger.FromCtx(ctx).Warn("failed to delete expired session", zap.Error(err))
		}
		return Status{}, nil
	}

	return Status{LoggedIn: true, Username: s.Username}, nil
}

// Logout ends the session. Logging out an unknown token is not an error.
func (g *Gate) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return g.sessions.Delete(ctx, token)
}
