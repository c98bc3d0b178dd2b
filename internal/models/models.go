package models

import (
	"database/sql/driver"
	"encoding/json"
	"strconv"
	"strings"
)

// User is the identity resolved by the session provider. Everything else in
// the system is owned by a user and cleared when the session ends.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Macros is a per-entry macro breakdown in grams.
type Macros struct {
	Protein float64 `json:"protein"`
	Fat     float64 `json:"fat"`
	Carbs   float64 `json:"carbs"`
}

// UnmarshalJSON tolerates string-encoded numbers; journal clients have
// historically stored macros as either "12" or 12.
func (m *Macros) UnmarshalJSON(data []byte) error {
	var raw struct {
		Protein json.RawMessage `json:"protein"`
		Fat     json.RawMessage `json:"fat"`
		Carbs   json.RawMessage `json:"carbs"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.Protein = flexFloat(raw.Protein)
	m.Fat = flexFloat(raw.Fat)
	m.Carbs = flexFloat(raw.Carbs)
	return nil
}

// Value implements driver.Valuer for the JSONB macros column.
func (m Macros) Value() (driver.Value, error) {
	return json.Marshal(m)
}

// Scan implements sql.Scanner for the JSONB macros column.
func (m *Macros) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}
	return json.Unmarshal(bytes, m)
}

func flexFloat(raw json.RawMessage) float64 {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return 0
	}
	s = strings.Trim(s, `"`)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

// Entry is a single logged food consumption event. Date is a YYYY-MM-DD
// calendar day; Time is a 12-hour clock string with an AM/PM suffix,
// e.g. "6:30 PM". Entries are created by the journal and read-only here.
type Entry struct {
	ID     int64  `json:"id"`
	UserID string `json:"user_id"`
	Date   string `json:"date"`
	Time   string `json:"time"`
	Food   string `json:"food"`
	Macros Macros `json:"macros"`
}

// Notification is a generated insight message. Timestamp is epoch
// milliseconds. Notifications are created once and only the read flag is
// ever updated afterwards.
type Notification struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Timestamp int64  `json:"timestamp"`
	Read      bool   `json:"read"`
}

// Goals are the user's macro targets. Percentages are of the calorie goal.
type Goals struct {
	CalorieGoal    float64 `json:"calorieGoal"`
	ProteinPercent float64 `json:"proteinPercent"`
	FatPercent     float64 `json:"fatPercent"`
	CarbPercent    float64 `json:"carbPercent"`
}

// DefaultGoals mirrors the journal's initial dashboard settings.
func DefaultGoals() Goals {
	return Goals{CalorieGoal: 2000, ProteinPercent: 35, FatPercent: 30, CarbPercent: 35}
}

// Protein and carbs are 4 kcal/g, fat is 9 kcal/g.
func (g Goals) ProteinGrams() float64 { return g.ProteinPercent / 100 * g.CalorieGoal / 4 }
func (g Goals) FatGrams() float64     { return g.FatPercent / 100 * g.CalorieGoal / 9 }
func (g Goals) CarbGrams() float64    { return g.CarbPercent / 100 * g.CalorieGoal / 4 }

// ThirtyDayStats is the derived 30-day eating-pattern summary. It is a pure
// projection of entries and is never persisted.
type ThirtyDayStats struct {
	MostFrequentFoods  []string `json:"mostFrequentFoods"`
	LeastFrequentFoods []string `json:"leastFrequentFoods"`
	AvgGapInMinutes    float64  `json:"avgGapInMinutes"`
	TypicalMealTime    string   `json:"typicalMealTime"`
}

// DailyMotivation is the settings payload recording the day's quote.
type DailyMotivation struct {
	Sent       bool   `json:"sent"`
	Date       string `json:"date"`
	DailyQuote string `json:"dailyQuote"`
}

// DailyReport is the settings payload holding the last generated report.
type DailyReport struct {
	DailyReport     string `json:"dailyReport"`
	DailyReportDate string `json:"dailyReportDate"`
}
