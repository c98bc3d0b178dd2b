package session

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"macro-journal/internal/models"
	"macro-journal/internal/retry"
	"macro-journal/pkg/logger"
)

type mockProvider struct {
	mu        sync.Mutex
	calls     int
	currentFn func(ctx context.Context, call int) (*models.User, error)
}

func (m *mockProvider) CurrentUser(ctx context.Context) (*models.User, error) {
	m.mu.Lock()
	m.calls++
	call := m.calls
	m.mu.Unlock()
	return m.currentFn(ctx, call)
}

func (m *mockProvider) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func noSleep(delays *[]time.Duration) retry.Sleeper {
	return func(ctx context.Context, d time.Duration) error {
		if delays != nil {
			*delays = append(*delays, d)
		}
		return nil
	}
}

func TestResolve_RetriesRateLimit(t *testing.T) {
	provider := &mockProvider{
		currentFn: func(_ context.Context, call int) (*models.User, error) {
			if call < 3 {
				return nil, &retry.StatusError{Code: http.StatusTooManyRequests, Message: "rate limit exceeded"}
			}
			return &models.User{ID: "u1"}, nil
		},
	}

	var delays []time.Duration
	tr := NewTracker(provider, logger.NewNop())
	tr.sleep = noSleep(&delays)

	user, err := tr.Resolve(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user == nil || user.ID != "u1" {
		t.Fatalf("expected user u1, got %+v", user)
	}
	if provider.callCount() != 3 {
		t.Errorf("expected 3 provider calls, got %d", provider.callCount())
	}
	want := []time.Duration{time.Second, 2 * time.Second}
	if len(delays) != len(want) {
		t.Fatalf("expected %d backoff sleeps, got %d", len(want), len(delays))
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Errorf("delay %d = %v, want %v", i, delays[i], want[i])
		}
	}
}

func TestResolve_GivesUpAfterMaxAttempts(t *testing.T) {
	provider := &mockProvider{
		currentFn: func(_ context.Context, _ int) (*models.User, error) {
			return nil, errors.New("rate limit exceeded")
		},
	}

	tr := NewTracker(provider, logger.NewNop())
	tr.sleep = noSleep(nil)

	user, err := tr.Resolve(context.Background())
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if user != nil {
		t.Errorf("expected no user, got %+v", user)
	}
	if provider.callCount() != retry.MaxAttempts {
		t.Errorf("expected %d attempts, got %d", retry.MaxAttempts, provider.callCount())
	}
	if tr.Current() != nil {
		t.Error("cached user should be cleared on failure")
	}
}

func TestResolve_NonRetryableClearsIdentity(t *testing.T) {
	provider := &mockProvider{
		currentFn: func(_ context.Context, call int) (*models.User, error) {
			if call == 1 {
				return &models.User{ID: "u1"}, nil
			}
			return nil, errors.New("connection refused")
		},
	}

	tr := NewTracker(provider, logger.NewNop())
	tr.sleep = noSleep(nil)
	ctx := context.Background()

	if _, err := tr.Resolve(ctx); err != nil {
		t.Fatalf("first resolve failed: %v", err)
	}
	if tr.Current() == nil {
		t.Fatal("expected cached user after first resolve")
	}

	if _, err := tr.Resolve(ctx); err == nil {
		t.Fatal("expected error on second resolve")
	}
	if provider.callCount() != 2 {
		t.Errorf("non-retryable failure must not retry, got %d calls", provider.callCount())
	}
	if tr.Current() != nil {
		t.Error("identity should be cleared after non-retryable failure")
	}
}

func TestResolve_SkipsOnLoginRoute(t *testing.T) {
	provider := &mockProvider{
		currentFn: func(_ context.Context, _ int) (*models.User, error) {
			return &models.User{ID: "u1"}, nil
		},
	}

	tr := NewTracker(provider, logger.NewNop())
	tr.SetRoute("login")

	user, err := tr.Resolve(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user != nil {
		t.Errorf("expected no user while on login route, got %+v", user)
	}
	if provider.callCount() != 0 {
		t.Errorf("provider must not be called on login route, got %d calls", provider.callCount())
	}
}

func TestResolve_CoalescesConcurrentRefreshes(t *testing.T) {
	release := make(chan struct{})
	provider := &mockProvider{
		currentFn: func(_ context.Context, _ int) (*models.User, error) {
			<-release
			return &models.User{ID: "u1"}, nil
		},
	}

	tr := NewTracker(provider, logger.NewNop())
	tr.sleep = noSleep(nil)
	ctx := context.Background()

	const waiters = 4
	var wg sync.WaitGroup
	results := make([]*models.User, waiters)
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = tr.Resolve(ctx)
		}(i)
	}

	// Let the goroutines pile onto the single in-flight resolution.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if provider.callCount() != 1 {
		t.Errorf("expected a single coalesced provider call, got %d", provider.callCount())
	}
	for i, u := range results {
		if u == nil || u.ID != "u1" {
			t.Errorf("waiter %d observed %+v, want u1", i, u)
		}
	}
}

func TestHandleEvent_SignedOutClearsAndNotifies(t *testing.T) {
	provider := &mockProvider{
		currentFn: func(_ context.Context, _ int) (*models.User, error) {
			return &models.User{ID: "u1"}, nil
		},
	}

	tr := NewTracker(provider, logger.NewNop())
	signedOut := false
	tr.OnSignOut(func() { signedOut = true })
	ctx := context.Background()

	if _, err := tr.Resolve(ctx); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	tr.HandleEvent(ctx, Event{Kind: SignedOut})
	if tr.Current() != nil {
		t.Error("expected cached user cleared on sign-out")
	}
	if !signedOut {
		t.Error("expected OnSignOut callback to fire")
	}
}

func TestHandleEvent_TokenRefreshedReResolves(t *testing.T) {
	provider := &mockProvider{
		currentFn: func(_ context.Context, call int) (*models.User, error) {
			return &models.User{ID: "u1"}, nil
		},
	}

	tr := NewTracker(provider, logger.NewNop())
	ctx := context.Background()

	tr.HandleEvent(ctx, Event{Kind: TokenRefreshed})
	if provider.callCount() != 1 {
		t.Errorf("expected re-resolution on token refresh, got %d calls", provider.callCount())
	}
	if tr.Current() == nil {
		t.Error("expected user cached after refresh")
	}
}
