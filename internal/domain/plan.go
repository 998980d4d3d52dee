// internal/domain/plan.go
package domain

import "time"

// Period is the length of a plan's repeating cycle.
type Period string

const (
	PeriodWeekly   Period = "weekly"
	PeriodBiWeekly Period = "bi-weekly"
	PeriodMonthly  Period = "monthly"
)

// Periods lists the accepted plan periods.
var Periods = []Period{PeriodWeekly, PeriodBiWeekly, PeriodMonthly}

// PlanStatus tracks whether a plan drives the dashboard and session tracker.
type PlanStatus string

const (
	PlanActive   PlanStatus = "active"
	PlanInactive PlanStatus = "inactive"
)

var PlanStatuses = []PlanStatus{PlanActive, PlanInactive}

// Plan assigns workouts to weekdays over a repeating cycle of weeks.
// More than one plan may be active at once; readers pick the most recently
// updated one.
type Plan struct {
	ID          string     `mapstructure:"id" json:"id"`
	Name        string     `mapstructure:"name" json:"name"`
	Description *string    `mapstructure:"description" json:"description"`
	Label       *string    `mapstructure:"label" json:"label"`
	Period      Period     `mapstructure:"period" json:"period"`
	Status      PlanStatus `mapstructure:"status" json:"status"`
	CreatedAt   *time.Time `mapstructure:"created_at" json:"created_at,omitempty"`
	UpdatedAt   *time.Time `mapstructure:"updated_at" json:"updated_at,omitempty"`

	Assignments []PlanAssignment `mapstructure:"-" json:"assignments"`
	Schedule    *Schedule        `mapstructure:"-" json:"schedule,omitempty"`
}

// PlanAssignment places a workout on a day of a given week of the plan.
// (WeekIndex, DayOfWeek, WorkoutID) is unique per plan.
type PlanAssignment struct {
	PlanID     string `mapstructure:"plan_id" json:"-"`
	WorkoutID  string `mapstructure:"workout_id" json:"workout_id"`
	WeekIndex  int    `mapstructure:"week_index" json:"week_index"`
	DayOfWeek  int    `mapstructure:"day_of_week" json:"day_of_week"`
	Position   *int   `mapstructure:"position" json:"position"`
	OrderIndex *int   `mapstructure:"order_index" json:"-"`

	Workout *WorkoutSummary `mapstructure:"-" json:"workout,omitempty"`
}

// Schedule is the week x day grid derived from a plan's assignments.
type Schedule struct {
	Weeks       []Week      `json:"weeks"`
	HasWorkouts bool        `json:"hasWorkouts"`
	DayHeaders  []DayHeader `json:"dayHeaders"`
}

type Week struct {
	Number      int   `json:"number"`
	Days        []Day `json:"days"`
	HasWorkouts bool  `json:"hasWorkouts"`
}

type Day struct {
	DayIndex int                `json:"day_index"`
	DayKey   string             `json:"day_key"`
	DayName  string             `json:"day_name"`
	Workouts []ScheduledWorkout `json:"workouts"`
}

type DayHeader struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

type ScheduledWorkout struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Position int    `json:"position"`
}

// Tracker is the session tracker view: the active plan and today's cell.
type Tracker struct {
	Plan      *Plan     `json:"plan"`
	WeekIndex int       `json:"week_index"`
	Today     Day       `json:"today"`
	Date      time.Time `json:"date"`
}

// PlanEditor backs the plan edit form.
type PlanEditor struct {
	Plan     *Plan            `json:"plan"`
	Workouts []WorkoutSummary `json:"workouts"`
	Periods  []Period         `json:"periods"`
}
