package domain

import "time"

// SessionMode controls how the tracker walks through exercises.
type SessionMode string

const (
	ModeFocus   SessionMode = "focus"
	ModeCircuit SessionMode = "circuit"
)

var SessionModes = []SessionMode{ModeFocus, ModeCircuit}

// SessionStatus type for session lifecycle
type SessionStatus string

const (
	SessionInProgress SessionStatus = "in-progress"
	SessionCompleted  SessionStatus = "completed"
	SessionAborted    SessionStatus = "aborted"
)

// Session is one logged performance of a plan day (or of ad-hoc workouts).
// Plan, workout and exercise names are snapshotted when the session starts
// so history stays readable after the source rows are renamed or deleted.
type Session struct {
	ID              string        `mapstructure:"id" json:"id"`
	PlanID          *string       `mapstructure:"plan_id" json:"plan_id"`
	PlanName        *string       `mapstructure:"plan_name" json:"plan_name"`
	DayIndex        int           `mapstructure:"day_index" json:"day_index"`
	WeekIndex       int           `mapstructure:"week_index" json:"week_index"`
	Mode            SessionMode   `mapstructure:"mode" json:"mode"`
	Status          SessionStatus `mapstructure:"status" json:"status"`
	StartedAt       *time.Time    `mapstructure:"started_at" json:"started_at"`
	EndedAt         *time.Time    `mapstructure:"ended_at" json:"ended_at"`
	DurationSeconds *int          `mapstructure:"duration_seconds" json:"duration_seconds"`
	Notes           *string       `mapstructure:"notes" json:"notes"`

	Workouts []SessionWorkout `mapstructure:"-" json:"workouts"`
}

// SessionWorkout is a workout snapshot inside a session.
type SessionWorkout struct {
	ID          string  `mapstructure:"id" json:"id"`
	SessionID   string  `mapstructure:"session_id" json:"session_id"`
	WorkoutID   *string `mapstructure:"workout_id" json:"workout_id"`
	WorkoutName string  `mapstructure:"workout_name" json:"workout_name"`
	Position    int     `mapstructure:"position" json:"position"`

	Sets []SessionSet `mapstructure:"-" json:"sets"`
}

// SessionSet tracks completion of one set of one exercise.
type SessionSet struct {
	ID               string     `mapstructure:"id" json:"id"`
	SessionWorkoutID string     `mapstructure:"session_workout_id" json:"session_workout_id"`
	ExerciseID       *string    `mapstructure:"exercise_id" json:"exercise_id"`
	ExerciseName     string     `mapstructure:"exercise_name" json:"exercise_name"`
	DayIndex         int        `mapstructure:"day_index" json:"day_index"`
	SetNumber        int        `mapstructure:"set_number" json:"set_number"`
	TargetSets       *int       `mapstructure:"target_sets" json:"target_sets"`
	TargetReps       *int       `mapstructure:"target_reps" json:"target_reps"`
	Completed        bool       `mapstructure:"completed" json:"completed"`
	ActualReps       *int       `mapstructure:"actual_reps" json:"actual_reps"`
	CompletedAt      *time.Time `mapstructure:"completed_at" json:"completed_at"`
	Notes            *string    `mapstructure:"notes" json:"notes"`
}

// CompletionResult reports what CompleteSession changed.
type CompletionResult struct {
	Session     *Session `json:"session"`
	SetsUpdated int      `json:"sets_updated"`
	SetsSkipped int      `json:"sets_skipped"`
}
