package session

import (
	"context"
	"sync"

	"macro-journal/internal/models"
	"macro-journal/internal/retry"
	"macro-journal/pkg/logger"
)

// EventKind is a session lifecycle event from the auth provider.
type EventKind string

const (
	SignedOut      EventKind = "SIGNED_OUT"
	TokenRefreshed EventKind = "TOKEN_REFRESHED"
	SessionPresent EventKind = "SESSION_PRESENT"
)

type Event struct {
	Kind EventKind
}

// Provider yields the current user identity, or an error when the session
// is absent or the provider is unavailable.
type Provider interface {
	CurrentUser(ctx context.Context) (*models.User, error)
}

// resolution is a single in-flight identity lookup. Concurrent refreshes
// coalesce onto it instead of issuing duplicate provider calls.
type resolution struct {
	done chan struct{}
	user *models.User
	err  error
}

// Tracker resolves and caches the current user identity. Rate-limit
// failures are retried with exponential backoff; any other failure
// degrades to "no user", which gates every downstream component.
type Tracker struct {
	provider Provider
	log      *logger.Logger
	sleep    retry.Sleeper

	mu       sync.Mutex
	user     *models.User
	route    string
	inflight *resolution

	// onSignOut lets dependents drop per-user caches when the session ends.
	onSignOut func()
}

func NewTracker(provider Provider, log *logger.Logger) *Tracker {
	return &Tracker{
		provider: provider,
		log:      log,
		sleep:    retry.Wait,
	}
}

// OnSignOut registers the callback invoked after the cached user is cleared.
func (t *Tracker) OnSignOut(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSignOut = fn
}

// SetRoute records the active route. Resolution is skipped on the login and
// logout pages to avoid racing a sign-in submission against a stale probe.
func (t *Tracker) SetRoute(route string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.route = route
}

// Current returns the cached user without touching the provider.
func (t *Tracker) Current() *models.User {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.user
}

// Resolve returns the current user, asking the provider if needed. A nil
// user with a nil error means "not signed in". Concurrent calls share one
// provider lookup.
func (t *Tracker) Resolve(ctx context.Context) (*models.User, error) {
	t.mu.Lock()
	if t.route == "login" || t.route == "logout" {
		user := t.user
		t.mu.Unlock()
		return user, nil
	}
	if r := t.inflight; r != nil {
		t.mu.Unlock()
		select {
		case <-r.done:
			return r.user, r.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	r := &resolution{done: make(chan struct{})}
	t.inflight = r
	t.mu.Unlock()

	r.user, r.err = t.resolve(ctx)

	t.mu.Lock()
	t.inflight = nil
	if r.err != nil {
		t.user = nil
	} else {
		t.user = r.user
	}
	t.mu.Unlock()
	close(r.done)

	return r.user, r.err
}

func (t *Tracker) resolve(ctx context.Context) (*models.User, error) {
	var user *models.User
	err := retry.Do(ctx, t.sleep, func(ctx context.Context) error {
		var err error
		user, err = t.provider.CurrentUser(ctx)
		return err
	}, retry.IsRateLimited)
	if err != nil {
		t.log.Warn("identity resolution failed, treating as signed out", "error", err)
		return nil, err
	}
	return user, nil
}

// HandleEvent reacts to a provider lifecycle event.
func (t *Tracker) HandleEvent(ctx context.Context, ev Event) {
	switch ev.Kind {
	case SignedOut:
		t.mu.Lock()
		t.user = nil
		fn := t.onSignOut
		t.mu.Unlock()
		t.log.Info("session signed out, cleared cached user")
		if fn != nil {
			fn()
		}
	case TokenRefreshed, SessionPresent:
		if _, err := t.Resolve(ctx); err != nil {
			t.log.Warn("re-resolution after session event failed", "event", ev.Kind, "error", err)
		}
	}
}
