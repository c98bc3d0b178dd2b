package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"macro-journal/internal/models"
	"macro-journal/internal/retry"
	"macro-journal/pkg/logger"
)

// ErrLoadInProgress is returned when a load overlaps a running one. The
// overlapping trigger is dropped, not queued, so two loads can never race
// on the dedup window.
var ErrLoadInProgress = errors.New("ledger load already in progress")

// Store is the persistence half of the ledger.
type Store interface {
	ListNotifications(ctx context.Context, userID string) ([]models.Notification, error)
	InsertNotification(ctx context.Context, n *models.Notification) error
	MarkNotificationRead(ctx context.Context, id, userID string) error
	DeleteNotification(ctx context.Context, id, userID string) error
}

// Ledger is the deduplicated, persisted log of generated notifications and
// the single source of truth for "has X already happened". The in-memory
// list only changes after the store confirms a write, so memory and
// persisted state never diverge on the optimistic side.
type Ledger struct {
	store Store
	log   *logger.Logger
	sleep retry.Sleeper

	loading atomic.Bool

	mu     sync.Mutex
	userID string
	items  []models.Notification // newest first
	loaded bool
}

func New(store Store, log *logger.Logger) *Ledger {
	return &Ledger{
		store: store,
		log:   log,
		sleep: retry.Wait,
	}
}

// Load fetches the user's notifications, retrying transient auth failures
// with the shared backoff policy. An overlapping load is dropped.
func (l *Ledger) Load(ctx context.Context, userID string) error {
	if !l.loading.CompareAndSwap(false, true) {
		return ErrLoadInProgress
	}
	defer l.loading.Store(false)

	var items []models.Notification
	err := retry.Do(ctx, l.sleep, func(ctx context.Context) error {
		var err error
		items, err = l.store.ListNotifications(ctx, userID)
		return err
	}, func(err error) bool {
		return retry.IsAuthExpired(err) || retry.IsRateLimited(err)
	})
	if err != nil {
		// Degrade to an empty list rather than failing the caller.
		l.log.Error("failed to load notifications", "user_id", userID, "error", err)
		l.mu.Lock()
		l.userID = userID
		l.items = nil
		l.loaded = false
		l.mu.Unlock()
		return fmt.Errorf("failed to load notifications: %w", err)
	}

	l.mu.Lock()
	l.userID = userID
	l.items = items
	l.loaded = true
	l.mu.Unlock()
	return nil
}

// Append persists the notification and, only on success, adds it to the
// in-memory list.
func (l *Ledger) Append(ctx context.Context, n models.Notification) error {
	if err := l.store.InsertNotification(ctx, &n); err != nil {
		return fmt.Errorf("failed to append notification: %w", err)
	}

	l.mu.Lock()
	l.items = append([]models.Notification{n}, l.items...)
	l.mu.Unlock()
	return nil
}

// MarkRead flips the read flag for a notification owned by the loaded
// user. Unknown or foreign ids are no-ops.
func (l *Ledger) MarkRead(ctx context.Context, id string) error {
	l.mu.Lock()
	userID := l.userID
	l.mu.Unlock()
	if userID == "" {
		return nil
	}

	if err := l.store.MarkNotificationRead(ctx, id, userID); err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}

	l.mu.Lock()
	for i := range l.items {
		if l.items[i].ID == id {
			l.items[i].Read = true
		}
	}
	l.mu.Unlock()
	return nil
}

// Dismiss removes a notification owned by the loaded user.
func (l *Ledger) Dismiss(ctx context.Context, id string) error {
	l.mu.Lock()
	userID := l.userID
	l.mu.Unlock()
	if userID == "" {
		return nil
	}

	if err := l.store.DeleteNotification(ctx, id, userID); err != nil {
		return fmt.Errorf("failed to dismiss notification: %w", err)
	}

	l.mu.Lock()
	kept := l.items[:0]
	for _, n := range l.items {
		if n.ID != id {
			kept = append(kept, n)
		}
	}
	l.items = kept
	l.mu.Unlock()
	return nil
}

// Reset drops all in-memory state; called on sign-out.
func (l *Ledger) Reset() {
	l.mu.Lock()
	l.userID = ""
	l.items = nil
	l.loaded = false
	l.mu.Unlock()
}

// Loaded reports whether a load has completed for the current user.
func (l *Ledger) Loaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loaded
}

// UserID returns the owner of the loaded list.
func (l *Ledger) UserID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.userID
}

// Notifications returns a copy of the in-memory list, newest first.
func (l *Ledger) Notifications() []models.Notification {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.Notification, len(l.items))
	copy(out, l.items)
	return out
}

// HasTitle reports whether any notification with the given title exists.
// The title scan is the authoritative dedup signal for the insight rules.
func (l *Ledger) HasTitle(title string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, n := range l.items {
		if n.Title == title {
			return true
		}
	}
	return false
}

// HasTitleOn reports whether a notification with the title exists on the
// given local calendar day (YYYY-MM-DD).
func (l *Ledger) HasTitleOn(title, date string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, n := range l.items {
		if n.Title == title && time.UnixMilli(n.Timestamp).Format("2006-01-02") == date {
			return true
		}
	}
	return false
}

// LatestWithTitle returns the newest notification with the title, or nil.
func (l *Ledger) LatestWithTitle(title string) *models.Notification {
	l.mu.Lock()
	defer l.mu.Unlock()
	var latest *models.Notification
	for i := range l.items {
		n := &l.items[i]
		if n.Title != title {
			continue
		}
		if latest == nil || n.Timestamp > latest.Timestamp {
			latest = n
		}
	}
	if latest == nil {
		return nil
	}
	cp := *latest
	return &cp
}
