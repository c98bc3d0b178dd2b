package insight

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"macro-journal/internal/habits"
	"macro-journal/internal/ledger"
	"macro-journal/internal/models"
	"macro-journal/internal/notify"
	"macro-journal/pkg/logger"
)

// Trigger reasons, for logging only.
const (
	TriggerUserResolved   = "user-resolved"
	TriggerEntriesChanged = "entries-changed"
	TriggerTimer          = "timer"
	TriggerDateRollover   = "date-rollover"
)

// UserResolver yields the current user identity. Current is consulted
// after suspension points so a stale response for a switched-away user is
// discarded instead of applied.
type UserResolver interface {
	Resolve(ctx context.Context) (*models.User, error)
	Current() *models.User
}

// EntrySource loads the user's journal entries.
type EntrySource interface {
	ListEntries(ctx context.Context, userID string) ([]models.Entry, error)
}

// SettingsStore is typed get/upsert over the per-user settings table.
type SettingsStore interface {
	GetSetting(ctx context.Context, userID, key string) (json.RawMessage, error)
	UpsertSetting(ctx context.Context, userID, key string, value interface{}) error
}

// Generator is the text-generation service. Single attempt per call; the
// rules own all failure handling.
type Generator interface {
	Snack(ctx context.Context, prompt string) (string, error)
	Report(ctx context.Context, prompt string) (string, error)
}

// Config tunes the engine's timers.
type Config struct {
	SnackInterval    time.Duration
	RolloverInterval time.Duration
}

// Engine drives the insight rules for the current user. All rule
// evaluation is serialized through one pass; triggers arriving while a
// pass runs are dropped, not queued, so a dedup check can never race its
// own insert.
type Engine struct {
	resolver UserResolver
	entries  EntrySource
	settings SettingsStore
	ledger   *ledger.Ledger
	gen      Generator
	surface  notify.Surface
	log      *logger.Logger
	cfg      Config

	now func() time.Time

	evalMu   sync.Mutex
	triggers chan string

	mu sync.Mutex
	// per-user, per-process state; cleared on sign-out or user switch
	stateUser     string
	learningLatch bool
	today         string
	report        string
	reportErr     string
	reportInputs  string
}

func NewEngine(resolver UserResolver, entries EntrySource, settings SettingsStore, lg *ledger.Ledger, gen Generator, surface notify.Surface, log *logger.Logger, cfg Config) *Engine {
	if cfg.SnackInterval <= 0 {
		cfg.SnackInterval = 30 * time.Minute
	}
	if cfg.RolloverInterval <= 0 {
		cfg.RolloverInterval = time.Minute
	}
	return &Engine{
		resolver: resolver,
		entries:  entries,
		settings: settings,
		ledger:   lg,
		gen:      gen,
		surface:  surface,
		log:      log,
		cfg:      cfg,
		now:      time.Now,
		triggers: make(chan string, 4),
	}
}

// Trigger nudges the engine to evaluate. Non-blocking: when the buffer is
// full a pass is already pending and the extra trigger carries no new
// information.
func (e *Engine) Trigger(reason string) {
	select {
	case e.triggers <- reason:
	default:
	}
}

// Reset drops all per-user in-process state; called on sign-out.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.stateUser = ""
	e.learningLatch = false
	e.report = ""
	e.reportErr = ""
	e.reportInputs = ""
	e.mu.Unlock()
	e.ledger.Reset()
}

// Report returns the last generated daily report text and the visible
// error message, if any.
func (e *Engine) Report() (text, errText string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.report, e.reportErr
}

// Run owns the engine's timers: evaluation triggers, the periodic snack
// check, and the date-rollover check. All tickers stop when ctx is
// canceled so nothing leaks across session switches.
func (e *Engine) Run(ctx context.Context) {
	snackTicker := time.NewTicker(e.cfg.SnackInterval)
	defer snackTicker.Stop()
	rolloverTicker := time.NewTicker(e.cfg.RolloverInterval)
	defer rolloverTicker.Stop()

	e.Evaluate(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case reason := <-e.triggers:
			e.log.Debug("evaluation triggered", "reason", reason)
			e.Evaluate(ctx)
		case <-snackTicker.C:
			e.Evaluate(ctx)
		case <-rolloverTicker.C:
			if e.dateRolledOver() {
				e.log.Info("local date rolled over")
				e.Evaluate(ctx)
			}
		}
	}
}

func (e *Engine) dateRolledOver() bool {
	today := e.localDate(e.now())
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.today == today {
		return false
	}
	e.today = today
	return true
}

// localDate formats t as the YYYY-MM-DD calendar day used across the
// entries and settings tables.
func (e *Engine) localDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// stale reports whether the user switched away while a network call was in
// flight. Results for a stale user are discarded, never applied.
func (e *Engine) stale(userID string) bool {
	current := e.resolver.Current()
	return current == nil || current.ID != userID
}

// Evaluate runs one serialized rule-evaluation pass. An overlapping
// trigger is dropped.
func (e *Engine) Evaluate(ctx context.Context) {
	if !e.evalMu.TryLock() {
		return
	}
	defer e.evalMu.Unlock()

	user, err := e.resolver.Resolve(ctx)
	if err != nil || user == nil {
		return
	}

	e.mu.Lock()
	if e.stateUser != user.ID {
		// user switch without an explicit sign-out: drop stale state
		e.stateUser = user.ID
		e.learningLatch = false
		e.report = ""
		e.reportErr = ""
		e.reportInputs = ""
	}
	e.mu.Unlock()

	if e.ledger.UserID() != user.ID || !e.ledger.Loaded() {
		if err := e.ledger.Load(ctx, user.ID); err != nil {
			return
		}
		if e.stale(user.ID) {
			return
		}
	}

	entries, err := e.entries.ListEntries(ctx, user.ID)
	if err != nil {
		e.log.Error("failed to load entries", "user_id", user.ID, "error", err)
		return
	}
	if e.stale(user.ID) {
		return
	}

	goals, err := e.loadGoals(ctx, user.ID)
	if err != nil {
		e.log.Error("failed to load goals, using defaults", "user_id", user.ID, "error", err)
		goals = models.DefaultGoals()
	}

	now := e.now()
	pass := &evalPass{
		user:    user,
		entries: entries,
		goals:   goals,
		now:     now,
		today:   e.localDate(now),
	}

	e.backfillFirstEntryDate(ctx, pass)

	// Rules are independent and non-exclusive; each guards itself and a
	// failure in one never aborts the others.
	e.runWelcome(ctx, pass)
	e.runLearningPeriod(ctx, pass)
	e.runDailyMotivation(ctx, pass)
	e.runDailyReport(ctx, pass)
	e.runSnackReminder(ctx, pass)
}

// evalPass carries the state shared by the rules of a single pass.
type evalPass struct {
	user    *models.User
	entries []models.Entry
	goals   models.Goals
	now     time.Time
	today   string
}

func (p *evalPass) distinctDays() int {
	return habits.DistinctDays(p.entries)
}

func (p *evalPass) todayEntries() []models.Entry {
	var out []models.Entry
	for _, e := range p.entries {
		if e.Date == p.today {
			out = append(out, e)
		}
	}
	return out
}

func sumMacros(entries []models.Entry) (protein, fat, carbs float64) {
	for _, e := range entries {
		protein += e.Macros.Protein
		fat += e.Macros.Fat
		carbs += e.Macros.Carbs
	}
	return
}
