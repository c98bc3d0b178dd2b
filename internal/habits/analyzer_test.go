package habits

import (
	"testing"
	"time"

	"macro-journal/internal/models"
)

func entry(date, clock, food string) models.Entry {
	return models.Entry{Date: date, Time: clock, Food: food}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"8:00 AM", 480, false},
		{"12:30 PM", 750, false},
		{"6:00 PM", 1080, false},
		{"12:00 AM", 0, false},
		{"12:00 PM", 720, false},
		{"12:15 am", 15, false},
		{"8:00", 0, true},
		{"eight AM", 0, true},
		{"8:xx AM", 0, true},
		{"8:00 XM", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseClock(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseClock(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseClock(%q): unexpected error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseClock(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestFormatClock(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{0, "12:00 AM"},
		{720, "12:00 PM"},
		{750, "12:30 PM"},
		{1080, "6:00 PM"},
		{1445, "12:05 AM"}, // 24:05 wraps to 12:05 AM
	}

	for _, tt := range tests {
		if got := FormatClock(tt.in); got != tt.want {
			t.Errorf("FormatClock(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAnalyze_GapAndFrequency(t *testing.T) {
	now := time.Date(2024, 3, 10, 15, 0, 0, 0, time.Local)
	day := now.Format("2006-01-02")

	entries := []models.Entry{
		entry(day, "8:00 AM", "oatmeal"),
		entry(day, "12:30 PM", "chicken"),
		entry(day, "12:30 PM", "chicken"),
		entry(day, "6:00 PM", "salmon"),
	}

	stats := Analyze(entries, now)

	// The duplicate 12:30 PM collapses to one minute point; the distinct
	// points 480, 750, 1080 give gaps [270, 330] with mean 300.
	if stats.AvgGapInMinutes != 300 {
		t.Errorf("avg gap = %v, want 300", stats.AvgGapInMinutes)
	}

	if len(stats.MostFrequentFoods) == 0 || stats.MostFrequentFoods[0] != "chicken" {
		t.Errorf("most frequent = %v, want chicken first", stats.MostFrequentFoods)
	}
}

func TestAnalyze_StableTieOrder(t *testing.T) {
	now := time.Date(2024, 3, 10, 15, 0, 0, 0, time.Local)
	day := now.Format("2006-01-02")

	entries := []models.Entry{
		entry(day, "8:00 AM", "apple"),
		entry(day, "9:00 AM", "banana"),
		entry(day, "10:00 AM", "cherry"),
		entry(day, "11:00 AM", "dates"),
	}

	stats := Analyze(entries, now)

	// All counts tie at 1: encounter order must survive the stable sort.
	wantTop := []string{"apple", "banana", "cherry"}
	for i, w := range wantTop {
		if stats.MostFrequentFoods[i] != w {
			t.Fatalf("most frequent = %v, want %v", stats.MostFrequentFoods, wantTop)
		}
	}
	wantBottom := []string{"apple", "banana", "cherry"}
	for i, w := range wantBottom {
		if stats.LeastFrequentFoods[i] != w {
			t.Fatalf("least frequent = %v, want %v", stats.LeastFrequentFoods, wantBottom)
		}
	}
}

func TestAnalyze_EmptyWindowDefaults(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.Local)

	// entries older than 30 days fall outside the window
	entries := []models.Entry{
		entry("2024-01-01", "8:00 AM", "toast"),
	}

	stats := Analyze(entries, now)
	if stats.AvgGapInMinutes != DefaultGapMinutes {
		t.Errorf("avg gap = %v, want default %d", stats.AvgGapInMinutes, DefaultGapMinutes)
	}
	if stats.TypicalMealTime != DefaultMealTime {
		t.Errorf("typical meal time = %q, want %q", stats.TypicalMealTime, DefaultMealTime)
	}
	if len(stats.MostFrequentFoods) != 0 || len(stats.LeastFrequentFoods) != 0 {
		t.Errorf("expected empty food rankings, got %v / %v", stats.MostFrequentFoods, stats.LeastFrequentFoods)
	}
}

func TestAnalyze_SingleMealDefaultsGap(t *testing.T) {
	now := time.Date(2024, 3, 10, 15, 0, 0, 0, time.Local)
	day := now.Format("2006-01-02")

	stats := Analyze([]models.Entry{entry(day, "9:00 AM", "eggs")}, now)
	if stats.AvgGapInMinutes != DefaultGapMinutes {
		t.Errorf("avg gap = %v, want default with one sample", stats.AvgGapInMinutes)
	}
	if stats.TypicalMealTime != "9:00 AM" {
		t.Errorf("typical meal time = %q, want 9:00 AM", stats.TypicalMealTime)
	}
}

func TestDistinctDays(t *testing.T) {
	entries := []models.Entry{
		entry("2024-03-01", "8:00 AM", "a"),
		entry("2024-03-01", "1:00 PM", "b"),
		entry("2024-03-02", "8:00 AM", "c"),
	}
	if got := DistinctDays(entries); got != 2 {
		t.Errorf("DistinctDays = %d, want 2", got)
	}
	if HasEnoughData(entries) {
		t.Error("2 days should not be enough data")
	}

	for d := 3; d <= 5; d++ {
		entries = append(entries, entry(time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC).Format("2006-01-02"), "8:00 AM", "x"))
	}
	if !HasEnoughData(entries) {
		t.Error("5 distinct days should be enough data")
	}
}
