// Package schedule shapes plan assignments and derives the week x day grid
// shown by the plan editor and the session tracker.
package schedule

import (
	"sort"

	"github.com/khabaznak/gym-tracker/internal/domain"
	"github.com/khabaznak/gym-tracker/internal/normalize"
)

const DaysPerWeek = 7

// MaxWeeks returns the cycle length of a period. Unknown periods are weekly.
func MaxWeeks(period domain.Period) int {
	switch period {
	case domain.PeriodBiWeekly:
		return 2
	case domain.PeriodMonthly:
		return 4
	default:
		return 1
	}
}

// Assignment is a normalized "workout on week W, day D" tuple before it is
// given a position.
type Assignment struct {
	WorkoutID string
	WeekIndex int
	DayOfWeek int
}

// NormalizeAssignments zips the parallel week/day/workout lists submitted by
// the plan form. Entries without a workout id or with a day outside 1..7 are
// dropped; weeks default to 1 and are clamped to the period. The result is
// sorted by (week, day) and keeps input order for ties.
func NormalizeAssignments(weeks, days, workouts []any, period domain.Period) []Assignment {
	maxWeeks := MaxWeeks(period)
	out := make([]Assignment, 0, len(workouts))

	for i, raw := range workouts {
		workoutID := normalize.NullableString(raw)
		if workoutID == nil {
			continue
		}

		week, ok := normalize.Int(at(weeks, i))
		if !ok {
			week = 1
		}
		week = clamp(week, 1, maxWeeks)

		day, ok := normalize.Int(at(days, i))
		if !ok || day < 1 || day > DaysPerWeek {
			continue
		}

		out = append(out, Assignment{WorkoutID: *workoutID, WeekIndex: week, DayOfWeek: day})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].WeekIndex != out[j].WeekIndex {
			return out[i].WeekIndex < out[j].WeekIndex
		}
		return out[i].DayOfWeek < out[j].DayOfWeek
	})
	return out
}

// AssignmentRows turns sorted assignments into plan_workouts rows.
// Duplicate (week, day, workout) tuples keep their first occurrence.
// OrderIndex records the input index and Position the dense rank 1..N.
func AssignmentRows(planID string, assignments []Assignment, period domain.Period) []domain.PlanAssignment {
	maxWeeks := MaxWeeks(period)
	seen := make(map[Assignment]struct{}, len(assignments))
	rows := make([]domain.PlanAssignment, 0, len(assignments))

	for i, a := range assignments {
		if a.WorkoutID == "" {
			continue
		}
		a.WeekIndex = clamp(a.WeekIndex, 1, maxWeeks)
		a.DayOfWeek = clamp(a.DayOfWeek, 1, DaysPerWeek)
		if _, dup := seen[a]; dup {
			continue
		}
		seen[a] = struct{}{}

		orderIndex := i
		position := len(rows) + 1
		rows = append(rows, domain.PlanAssignment{
			PlanID:     planID,
			WorkoutID:  a.WorkoutID,
			WeekIndex:  a.WeekIndex,
			DayOfWeek:  a.DayOfWeek,
			OrderIndex: &orderIndex,
			Position:   &position,
		})
	}
	return rows
}

func at(values []any, i int) any {
	if i < len(values) {
		return values[i]
	}
	// A single submitted value applies to every row.
	if len(values) == 1 {
		return values[0]
	}
	return nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
