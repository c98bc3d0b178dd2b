package habits

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"macro-journal/internal/models"
)

const (
	// DefaultGapMinutes is used when fewer than two meals exist in the
	// trailing window.
	DefaultGapMinutes = 180
	// DefaultMealTime is used when no meals exist in the trailing window.
	DefaultMealTime = "12:00 PM"

	window = 30 * 24 * time.Hour
)

// MinDistinctDays is the learning-period threshold: personalized insights
// are withheld until this many distinct calendar days carry entries.
const MinDistinctDays = 5

// DistinctDays counts the calendar days with at least one entry.
func DistinctDays(entries []models.Entry) int {
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		seen[e.Date] = struct{}{}
	}
	return len(seen)
}

// HasEnoughData reports whether the learning period is over.
func HasEnoughData(entries []models.Entry) bool {
	return DistinctDays(entries) >= MinDistinctDays
}

// ParseClock converts a 12-hour clock string ("6:30 PM") to minutes since
// midnight. 12 AM maps to 0 and 12 PM stays 720.
func ParseClock(s string) (int, error) {
	fields := strings.Fields(strings.TrimSpace(s))
	if len(fields) != 2 {
		return 0, fmt.Errorf("malformed clock string %q", s)
	}
	period := strings.ToUpper(fields[1])
	if period != "AM" && period != "PM" {
		return 0, fmt.Errorf("malformed clock period %q", s)
	}

	hm := strings.SplitN(fields[0], ":", 2)
	if len(hm) != 2 {
		return 0, fmt.Errorf("malformed clock time %q", s)
	}
	hours, err := strconv.Atoi(hm[0])
	if err != nil {
		return 0, fmt.Errorf("malformed clock hour %q", s)
	}
	minutes, err := strconv.Atoi(hm[1])
	if err != nil {
		return 0, fmt.Errorf("malformed clock minute %q", s)
	}

	if period == "PM" && hours != 12 {
		hours += 12
	}
	if period == "AM" && hours == 12 {
		hours = 0
	}
	return hours*60 + minutes, nil
}

// FormatClock converts minutes since midnight back to a 12-hour clock
// string. Hours wrap modulo 24; 0 and 12 both display as 12.
func FormatClock(totalMinutes int) string {
	hour := (totalMinutes / 60) % 24
	minute := totalMinutes % 60
	period := "AM"
	if hour >= 12 {
		period = "PM"
	}
	display := hour % 12
	if display == 0 {
		display = 12
	}
	return fmt.Sprintf("%d:%02d %s", display, minute, period)
}

// Analyze derives the 30-day eating-pattern summary from the entries. It
// is a pure function of its inputs and safe to recompute on every change.
func Analyze(entries []models.Entry, now time.Time) models.ThirtyDayStats {
	cutoff := now.Add(-window)

	var recent []models.Entry
	for _, e := range entries {
		day, err := time.ParseInLocation("2006-01-02", e.Date, now.Location())
		if err != nil {
			continue
		}
		if !day.Before(cutoff) {
			recent = append(recent, e)
		}
	}

	if len(recent) == 0 {
		return models.ThirtyDayStats{
			MostFrequentFoods:  []string{},
			LeastFrequentFoods: []string{},
			AvgGapInMinutes:    DefaultGapMinutes,
			TypicalMealTime:    DefaultMealTime,
		}
	}

	return models.ThirtyDayStats{
		MostFrequentFoods:  rankFoods(recent, false),
		LeastFrequentFoods: rankFoods(recent, true),
		AvgGapInMinutes:    avgGap(mealMinutes(recent)),
		TypicalMealTime:    typicalMealTime(mealMinutes(recent)),
	}
}

// rankFoods returns the top-3 food labels by count (or bottom-3 when
// ascending). Ties keep original encounter order.
func rankFoods(entries []models.Entry, ascending bool) []string {
	counts := make(map[string]int)
	var order []string
	for _, e := range entries {
		if _, ok := counts[e.Food]; !ok {
			order = append(order, e.Food)
		}
		counts[e.Food]++
	}

	ranked := make([]string, len(order))
	copy(ranked, order)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ascending {
			return counts[ranked[i]] < counts[ranked[j]]
		}
		return counts[ranked[i]] > counts[ranked[j]]
	})

	if len(ranked) > 3 {
		ranked = ranked[:3]
	}
	return ranked
}

// mealMinutes converts entry times to sorted distinct minutes-since-
// midnight, skipping unparseable times. Two meals logged at the same
// clock minute are one data point, not a zero-length gap.
func mealMinutes(entries []models.Entry) []int {
	seen := make(map[int]struct{}, len(entries))
	var minutes []int
	for _, e := range entries {
		m, err := ParseClock(e.Time)
		if err != nil {
			continue
		}
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		minutes = append(minutes, m)
	}
	sort.Ints(minutes)
	return minutes
}

func typicalMealTime(sorted []int) string {
	if len(sorted) == 0 {
		return DefaultMealTime
	}
	sum := 0
	for _, m := range sorted {
		sum += m
	}
	return FormatClock(int(float64(sum)/float64(len(sorted)) + 0.5))
}

func avgGap(sorted []int) float64 {
	if len(sorted) < 2 {
		return DefaultGapMinutes
	}
	total := 0
	for i := 1; i < len(sorted); i++ {
		total += sorted[i] - sorted[i-1]
	}
	return float64(total) / float64(len(sorted)-1)
}
