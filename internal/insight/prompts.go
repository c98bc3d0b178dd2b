package insight

import (
	"fmt"
	"strings"

	"macro-journal/internal/models"
)

const quotePrompt = "Generate a short, motivational quote (1-2 sentences) for a health and fitness app user to encourage them in their macro tracking journey. Keep it positive, concise, and inspiring, and do not include quotation marks around the quote."

// reportPrompt embeds the user's goals and yesterday's actual entries.
func reportPrompt(p *evalPass) string {
	yesterday := p.now.AddDate(0, 0, -1).Format("2006-01-02")
	var yesterdayEntries []models.Entry
	for _, e := range p.entries {
		if e.Date == yesterday {
			yesterdayEntries = append(yesterdayEntries, e)
		}
	}
	protein, fat, carbs := sumMacros(yesterdayEntries)

	entryLines := "No entries logged."
	if len(yesterdayEntries) > 0 {
		var lines []string
		for _, e := range yesterdayEntries {
			lines = append(lines, fmt.Sprintf("- %s %s (P: %.0fg, F: %.0fg, C: %.0fg)",
				e.Time, e.Food, e.Macros.Protein, e.Macros.Fat, e.Macros.Carbs))
		}
		entryLines = strings.Join(lines, "\n")
	}

	return fmt.Sprintf(`📊 Generate a positive daily macro report for yesterday. Keep it encouraging, with no shaming. Include:
- A summary of the user's goals and actual intake.
- Intuitive, specific suggestions to help the user meet their goals, based on yesterday's entries. Suggestions can include adding a food, swapping a food, reducing a food, adjusting quantities, or no suggestion if the user is on track (just celebrate their success).
Be creative and precise, focusing on the most impactful change. If no entries exist, provide a fresh-start message with a generic suggestion.

Goals:
- Calories: %.0f kcal
- Protein: %.0f%% (%.0fg)
- Fat: %.0f%% (%.0fg)
- Carbs: %.0f%% (%.0fg)

Yesterday's Intake:
- Protein: %.1fg
- Fat: %.1fg
- Carbs: %.1fg

Yesterday's Entries:
%s`,
		p.goals.CalorieGoal,
		p.goals.ProteinPercent, p.goals.ProteinGrams(),
		p.goals.FatPercent, p.goals.FatGrams(),
		p.goals.CarbPercent, p.goals.CarbGrams(),
		protein, fat, carbs,
		entryLines,
	)
}

// snackPrompt embeds current macro totals versus goals plus the derived
// habit statistics. Raw recent entries are deliberately not included.
func snackPrompt(p *evalPass, stats models.ThirtyDayStats, protein, fat, carbs float64) string {
	return fmt.Sprintf("Suggest a quick snack to help meet macro goals. Keep it positive and concise (1-2 sentences). "+
		"Current intake: Protein %.1fg/%.0fg, Fat %.1fg/%.0fg, Carbs %.1fg/%.0fg. "+
		"Based on the user's eating habits over the last 30 days, they frequently eat %s, tend to avoid %s, "+
		"typically eat around %s, and average %.0f minutes between meals. "+
		"Suggest a snack that aligns with their eating habits and helps meet their macro goals.",
		protein, p.goals.ProteinGrams(),
		fat, p.goals.FatGrams(),
		carbs, p.goals.CarbGrams(),
		foodList(stats.MostFrequentFoods),
		foodList(stats.LeastFrequentFoods),
		stats.TypicalMealTime,
		stats.AvgGapInMinutes,
	)
}

func foodList(foods []string) string {
	if len(foods) == 0 {
		return "a variety of foods"
	}
	return strings.Join(foods, ", ")
}
