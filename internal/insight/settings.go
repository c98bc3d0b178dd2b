package insight

import (
	"context"
	"encoding/json"

	"macro-journal/internal/models"
)

// Settings keys recognized by the engine. Each is a per-user singleton in
// the settings table recording that a one-time or once-daily action ran.
const (
	keyHasSentWelcome         = "hasSentWelcome"
	keyDailyMotivation        = "hasSentDailyMotivation"
	keyLearningPeriodComplete = "learningPeriodComplete"
	keyFirstEntryDate         = "firstEntryDate"
	keyLastSnackReminder      = "lastSnackReminder"
	keyMacroGoals             = "macroGoals"
	keyDailyReport            = "dailyReport"
)

func (e *Engine) loadBool(ctx context.Context, userID, key string) (bool, error) {
	raw, err := e.settings.GetSetting(ctx, userID, key)
	if err != nil || raw == nil {
		return false, err
	}
	var v bool
	if err := json.Unmarshal(raw, &v); err != nil {
		return false, nil
	}
	return v, nil
}

func (e *Engine) loadGoals(ctx context.Context, userID string) (models.Goals, error) {
	raw, err := e.settings.GetSetting(ctx, userID, keyMacroGoals)
	if err != nil {
		return models.DefaultGoals(), err
	}
	if raw == nil {
		return models.DefaultGoals(), nil
	}
	goals := models.DefaultGoals()
	if err := json.Unmarshal(raw, &goals); err != nil {
		return models.DefaultGoals(), nil
	}
	if goals.CalorieGoal <= 0 {
		goals = models.DefaultGoals()
	}
	return goals, nil
}

func (e *Engine) loadDailyMotivation(ctx context.Context, userID string) (*models.DailyMotivation, error) {
	raw, err := e.settings.GetSetting(ctx, userID, keyDailyMotivation)
	if err != nil || raw == nil {
		return nil, err
	}
	var v models.DailyMotivation
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, nil
	}
	return &v, nil
}

func (e *Engine) loadLastSnackReminder(ctx context.Context, userID string) (int64, error) {
	raw, err := e.settings.GetSetting(ctx, userID, keyLastSnackReminder)
	if err != nil || raw == nil {
		return 0, err
	}
	var v int64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, nil
	}
	return v, nil
}

// backfillFirstEntryDate derives the first logged day from the entries
// when the setting was never written, and records it for next time.
func (e *Engine) backfillFirstEntryDate(ctx context.Context, p *evalPass) {
	if len(p.entries) == 0 {
		return
	}
	raw, err := e.settings.GetSetting(ctx, p.user.ID, keyFirstEntryDate)
	if err != nil {
		e.log.Error("failed to load first entry date", "user_id", p.user.ID, "error", err)
		return
	}
	if raw != nil {
		return
	}

	earliest := p.entries[0].Date
	for _, entry := range p.entries[1:] {
		if entry.Date < earliest {
			earliest = entry.Date
		}
	}
	if err := e.settings.UpsertSetting(ctx, p.user.ID, keyFirstEntryDate, earliest); err != nil {
		e.log.Error("failed to save first entry date", "user_id", p.user.ID, "error", err)
	}
}
