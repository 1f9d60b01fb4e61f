package vr

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Chicken/VenaaRauhassa/internal/metrics"
	"github.com/Chicken/VenaaRauhassa/internal/models"
	"github.com/Chicken/VenaaRauhassa/internal/session"
)

const (
	defaultRefreshMargin   = 2 * time.Minute
	defaultRefreshBackoff  = 50 * time.Millisecond
	defaultRefreshAttempts = 2
)

// AuthOptions tunes the refresh policy of an AuthManager
type AuthOptions struct {
	// RefreshMargin is how close to expiry a token is refreshed
	RefreshMargin time.Duration
	// RefreshBackoff is the pause after a failed refresh
	RefreshBackoff time.Duration
	// RefreshAttempts is the number of refreshes tried before a full login
	RefreshAttempts int
	Metrics         *metrics.Metrics
	Now             func() time.Time
}

// AuthManager hands out a valid upstream session, refreshing or logging in
// as needed and persisting the result in the session store.
// Concurrent callers may each refresh or log in; the store keeps the last write.
type AuthManager struct {
	store    session.Store
	identity IdentityProvider
	opts     AuthOptions
}

func NewAuthManager(store session.Store, identity IdentityProvider, opts AuthOptions) *AuthManager {
	if opts.RefreshMargin == 0 {
		opts.RefreshMargin = defaultRefreshMargin
	}
	if opts.RefreshBackoff == 0 {
		opts.RefreshBackoff = defaultRefreshBackoff
	}
	if opts.RefreshAttempts == 0 {
		opts.RefreshAttempts = defaultRefreshAttempts
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &AuthManager{store: store, identity: identity, opts: opts}
}

// Get returns a session that is valid for at least the refresh margin.
//
// A stored session close to expiry is refreshed. A failed refresh is retried
// after a short pause; once the attempts run out a full login is performed.
// Login failures are returned to the caller.
func (a *AuthManager) Get(ctx context.Context) (models.Session, error) {
	for attempt := 0; ; attempt++ {
		current, err := a.store.Get(ctx)
		if err != nil {
			log.Printf("Failed to read session: %v", err)
			current = nil
		}

		if current == nil {
			return a.login(ctx, "no-session")
		}
		if attempt >= a.opts.RefreshAttempts {
			return a.login(ctx, "retry-limit")
		}

		if current.ExpiresOn.Sub(a.opts.Now()) >= a.opts.RefreshMargin {
			return *current, nil
		}

		reason := "expiry"
		if attempt > 0 {
			reason = "retry"
		}
		refreshed, err := a.identity.Refresh(ctx, *current)
		if err == nil {
			a.opts.Metrics.SessionUpdate("refresh", reason)
			a.persist(ctx, refreshed)
			return refreshed, nil
		}

		log.Printf("Token refresh failed (attempt %d): %v", attempt+1, err)
		select {
		case <-ctx.Done():
			return models.Session{}, ctx.Err()
		case <-time.After(a.opts.RefreshBackoff):
		}
	}
}

// ForceLogin replaces the stored session with a freshly logged in one
func (a *AuthManager) ForceLogin(ctx context.Context, reason string) error {
	_, err := a.login(ctx, reason)
	return err
}

// login counts every attempt, failed ones included
func (a *AuthManager) login(ctx context.Context, reason string) (models.Session, error) {
	a.opts.Metrics.SessionUpdate("login", reason)
	s, err := a.identity.Login(ctx)
	if err != nil {
		return models.Session{}, fmt.Errorf("%w: %w", ErrNoSession, err)
	}
	a.persist(ctx, s)
	return s, nil
}

// persist stores the session; a failed write only costs a relogin later
func (a *AuthManager) persist(ctx context.Context, s models.Session) {
	if err := a.store.Set(ctx, s); err != nil {
		log.Printf("Failed to persist session: %v", err)
	}
}
