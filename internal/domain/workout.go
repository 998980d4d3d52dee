package domain

import "time"

// Workout is an ordered collection of exercises.
type Workout struct {
	ID           string     `mapstructure:"id" json:"id"`
	Name         string     `mapstructure:"name" json:"name"`
	Description  *string    `mapstructure:"description" json:"description"`
	Notes        *string    `mapstructure:"notes" json:"notes"`
	VideoURL     *string    `mapstructure:"video_url" json:"video_url"`
	RestInterval *string    `mapstructure:"rest_interval" json:"rest_interval"`
	PerformedAt  *time.Time `mapstructure:"performed_at" json:"performed_at"`
	CreatedAt    *time.Time `mapstructure:"created_at" json:"created_at,omitempty"`

	// Exercises are owned by the workout and kept in position order (1..N).
	Exercises []WorkoutExercise `mapstructure:"-" json:"exercises"`
}

// WorkoutExercise links an Exercise into a Workout at a given position.
type WorkoutExercise struct {
	WorkoutID  string  `mapstructure:"workout_id" json:"workout_id"`
	ExerciseID string  `mapstructure:"exercise_id" json:"exercise_id"`
	Position   *int    `mapstructure:"position" json:"position"`
	TargetSets *int    `mapstructure:"target_sets" json:"target_sets"`
	TargetReps *int    `mapstructure:"target_reps" json:"target_reps"`
	Notes      *string `mapstructure:"notes" json:"notes"`

	Exercise *ExerciseSummary `mapstructure:"-" json:"exercise,omitempty"`
}

// WorkoutSummary is used for selection lists and for nesting workouts
// inside plan assignments.
type WorkoutSummary struct {
	ID           string  `mapstructure:"id" json:"id"`
	Name         string  `mapstructure:"name" json:"name"`
	Description  *string `mapstructure:"description" json:"description"`
	RestInterval *string `mapstructure:"rest_interval" json:"rest_interval,omitempty"`
}

// WorkoutEditor backs the workout edit form.
type WorkoutEditor struct {
	Workout   *Workout          `json:"workout"`
	Exercises []ExerciseSummary `json:"exercises"`
}
