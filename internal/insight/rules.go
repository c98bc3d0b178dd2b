package insight

import (
	"context"
	"fmt"
	"time"

	"macro-journal/internal/habits"
	"macro-journal/internal/models"
	"macro-journal/internal/notify"

	"github.com/google/uuid"
)

// Notification titles. The ledger scan for these literals is the primary
// dedup guard; the settings flags are the faster secondary guard.
const (
	TitleWelcome          = "Welcome to Daily Macro Journal!"
	TitleDailyMotivation  = "Daily Motivation"
	TitleLearningComplete = "Learning Period Complete! 🎉"
	TitleSnack            = "Snack Time! 🍎"
)

const (
	welcomeBody = "We're getting to know your eating habits—log your meals for 5 days to unlock personalized insights!"

	learningCompleteBody = "You've logged meals on 5 different days—your personalized insights are now unlocked!"

	// FallbackQuote substitutes for a failed quote generation. The rule is
	// satisfied either way, so a broken text service cannot cause a retry
	// loop within the same day.
	FallbackQuote = "Keep pushing forward—you've got this!"

	// ReportFailureText is the visible error state of the report rule.
	ReportFailureText = "Oops, couldn't generate your report—try again later!"

	// EmptyJournalReport is shown before the first entry exists.
	EmptyJournalReport = "Log your first meal to start tracking your macros!"

	// snackSuppression is the minimum spacing between snack reminders.
	snackSuppression = 30 * time.Minute
)

func (e *Engine) newNotification(userID, title, body string) models.Notification {
	return models.Notification{
		ID:        uuid.New().String(),
		UserID:    userID,
		Title:     title,
		Body:      body,
		Timestamp: e.now().UnixMilli(),
		Read:      false,
	}
}

// deliver appends the notification to the ledger and, on success, attempts
// the best-effort pop-up. Returns false when persistence failed, in which
// case no in-memory or settings state may change.
func (e *Engine) deliver(ctx context.Context, n models.Notification) bool {
	if err := e.ledger.Append(ctx, n); err != nil {
		e.log.Error("failed to persist notification", "title", n.Title, "user_id", n.UserID, "error", err)
		return false
	}
	if e.surface.Permission(ctx, n.UserID) == notify.PermissionGranted {
		e.surface.Push(ctx, n.UserID, n.Title, n.Body)
	}
	return true
}

// runWelcome greets a brand-new user exactly once.
func (e *Engine) runWelcome(ctx context.Context, p *evalPass) {
	if p.distinctDays() != 0 {
		return
	}
	sent, err := e.loadBool(ctx, p.user.ID, keyHasSentWelcome)
	if err != nil {
		e.log.Error("failed to load welcome flag", "user_id", p.user.ID, "error", err)
		return
	}
	if sent || e.ledger.HasTitle(TitleWelcome) {
		return
	}

	if !e.deliver(ctx, e.newNotification(p.user.ID, TitleWelcome, welcomeBody)) {
		return
	}
	if err := e.settings.UpsertSetting(ctx, p.user.ID, keyHasSentWelcome, true); err != nil {
		// The ledger row already exists, so the primary guard still holds.
		e.log.Error("failed to record welcome flag", "user_id", p.user.ID, "error", err)
	}
}

// runLearningPeriod fires once when the user graduates past 5 distinct
// logged days. The in-process latch prevents a re-fire within the session
// even if the settings write races.
func (e *Engine) runLearningPeriod(ctx context.Context, p *evalPass) {
	if p.distinctDays() < habits.MinDistinctDays {
		return
	}

	e.mu.Lock()
	latched := e.learningLatch
	e.mu.Unlock()
	if latched {
		return
	}

	complete, err := e.loadBool(ctx, p.user.ID, keyLearningPeriodComplete)
	if err != nil {
		e.log.Error("failed to load learning period flag", "user_id", p.user.ID, "error", err)
		return
	}
	if complete || e.ledger.HasTitle(TitleLearningComplete) {
		e.mu.Lock()
		e.learningLatch = true
		e.mu.Unlock()
		return
	}

	if !e.deliver(ctx, e.newNotification(p.user.ID, TitleLearningComplete, learningCompleteBody)) {
		return
	}
	e.mu.Lock()
	e.learningLatch = true
	e.mu.Unlock()
	if err := e.settings.UpsertSetting(ctx, p.user.ID, keyLearningPeriodComplete, true); err != nil {
		e.log.Error("failed to record learning period flag", "user_id", p.user.ID, "error", err)
	}
}

// runDailyMotivation generates one motivational quote per calendar day. A
// generation failure substitutes the fallback text and still counts as
// satisfied for dedup purposes.
func (e *Engine) runDailyMotivation(ctx context.Context, p *evalPass) {
	motivation, err := e.loadDailyMotivation(ctx, p.user.ID)
	if err != nil {
		e.log.Error("failed to load daily motivation flag", "user_id", p.user.ID, "error", err)
		return
	}
	if motivation != nil && motivation.Date == p.today {
		return
	}
	if e.ledger.HasTitleOn(TitleDailyMotivation, p.today) {
		return
	}

	quote, err := e.gen.Snack(ctx, quotePrompt)
	if err != nil {
		e.log.Warn("quote generation failed, using fallback", "user_id", p.user.ID, "error", err)
		quote = FallbackQuote
	}
	if e.stale(p.user.ID) {
		return
	}

	if !e.deliver(ctx, e.newNotification(p.user.ID, TitleDailyMotivation, quote)) {
		return
	}
	value := models.DailyMotivation{Sent: true, Date: p.today, DailyQuote: quote}
	if err := e.settings.UpsertSetting(ctx, p.user.ID, keyDailyMotivation, value); err != nil {
		e.log.Error("failed to record daily motivation", "user_id", p.user.ID, "error", err)
	}
}

// runDailyReport recomputes the narrative report whenever the entries or
// goals change. The report is not deduplicated; each qualifying change
// overwrites the previous text.
func (e *Engine) runDailyReport(ctx context.Context, p *evalPass) {
	if len(p.entries) == 0 {
		e.mu.Lock()
		e.report = EmptyJournalReport
		e.reportErr = ""
		e.reportInputs = reportFingerprint(p)
		e.mu.Unlock()
		return
	}

	fingerprint := reportFingerprint(p)
	e.mu.Lock()
	unchanged := e.reportInputs == fingerprint
	e.mu.Unlock()
	if unchanged {
		return
	}

	text, err := e.gen.Report(ctx, reportPrompt(p))
	if e.stale(p.user.ID) {
		return
	}

	e.mu.Lock()
	e.reportInputs = fingerprint
	if err != nil {
		e.report = ReportFailureText
		e.reportErr = ReportFailureText
	} else {
		e.report = text
		e.reportErr = ""
	}
	e.mu.Unlock()

	if err != nil {
		e.log.Warn("report generation failed", "user_id", p.user.ID, "error", err)
		return
	}

	value := models.DailyReport{DailyReport: text, DailyReportDate: p.today}
	if err := e.settings.UpsertSetting(ctx, p.user.ID, keyDailyReport, value); err != nil {
		e.log.Error("failed to record daily report", "user_id", p.user.ID, "error", err)
	}
}

// reportFingerprint identifies the report's inputs: a new entry, a goal
// change, or a new day each force a recompute.
func reportFingerprint(p *evalPass) string {
	lastID := int64(0)
	if n := len(p.entries); n > 0 {
		lastID = p.entries[n-1].ID
	}
	return fmt.Sprintf("%s|%d|%d|%v", p.today, len(p.entries), lastID, p.goals)
}

// runSnackReminder suggests a snack when the gap since the last meal today
// exceeds the user's historical average. Gated on sufficient history, a
// 30-minute suppression window, and re-armed only once a newer meal is
// logged after the previous reminder.
func (e *Engine) runSnackReminder(ctx context.Context, p *evalPass) {
	if !habits.HasEnoughData(p.entries) {
		return
	}

	stats := habits.Analyze(p.entries, p.now)
	todayEntries := p.todayEntries()

	lastMealMinute := -1
	var lastMealStamp int64
	for _, entry := range todayEntries {
		m, err := habits.ParseClock(entry.Time)
		if err != nil {
			continue
		}
		if m > lastMealMinute {
			lastMealMinute = m
		}
		day, err := time.ParseInLocation("2006-01-02", entry.Date, p.now.Location())
		if err != nil {
			continue
		}
		stamp := day.Add(time.Duration(m) * time.Minute).UnixMilli()
		if stamp > lastMealStamp {
			lastMealStamp = stamp
		}
	}

	lastReminder, err := e.loadLastSnackReminder(ctx, p.user.ID)
	if err != nil {
		e.log.Error("failed to load last snack reminder", "user_id", p.user.ID, "error", err)
		return
	}
	// Once a reminder went out, stay quiet until the user logs a newer meal.
	if lastReminder != 0 && lastReminder > lastMealStamp {
		return
	}

	if recent := e.ledger.LatestWithTitle(TitleSnack); recent != nil {
		if p.now.UnixMilli()-recent.Timestamp < snackSuppression.Milliseconds() {
			return
		}
	}

	currentMinutes := p.now.Hour()*60 + p.now.Minute()
	if lastMealMinute < 0 {
		// no meal today: treat the gap as unbounded
		lastMealMinute = -1 << 20
	}
	if float64(currentMinutes-lastMealMinute) <= stats.AvgGapInMinutes {
		return
	}

	protein, fat, carbs := sumMacros(todayEntries)
	suggestion, err := e.gen.Snack(ctx, snackPrompt(p, stats, protein, fat, carbs))
	if err != nil {
		e.log.Warn("snack suggestion failed", "user_id", p.user.ID, "error", err)
		return
	}
	if e.stale(p.user.ID) {
		return
	}

	body := fmt.Sprintf("It's %s—time for a snack? %s", p.now.Format("3:04 PM"), suggestion)
	n := e.newNotification(p.user.ID, TitleSnack, body)

	// The in-app ledger entry is created regardless of pop-up permission,
	// so a denied permission never silently drops the suggestion.
	if err := e.ledger.Append(ctx, n); err != nil {
		e.log.Error("failed to persist snack notification", "user_id", p.user.ID, "error", err)
		return
	}
	if err := e.settings.UpsertSetting(ctx, p.user.ID, keyLastSnackReminder, n.Timestamp); err != nil {
		e.log.Error("failed to record last snack reminder", "user_id", p.user.ID, "error", err)
	}

	switch e.surface.Permission(ctx, p.user.ID) {
	case notify.PermissionGranted:
		e.surface.Push(ctx, p.user.ID, n.Title, n.Body)
	case notify.PermissionDefault:
		if _, err := e.surface.Request(ctx, p.user.ID); err != nil {
			e.log.Warn("notification permission request failed", "user_id", p.user.ID, "error", err)
		}
	case notify.PermissionDenied:
		e.log.Info("pop-up permission denied, suggestion available in app", "user_id", p.user.ID)
	}
}
