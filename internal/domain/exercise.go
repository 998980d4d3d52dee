// internal/domain/exercise.go
package domain

import "time"

// MaxTargetSets bounds target_sets on exercises and workout links, and the
// number of sets a session creates for one exercise.
const MaxTargetSets = 50

// Exercise represents a single exercise definition in the library.
// Workouts and sessions reference exercises by ID but never own them.
type Exercise struct {
	ID                string     `mapstructure:"id" json:"id"`
	Name              string     `mapstructure:"name" json:"name"`
	Category          *string    `mapstructure:"category" json:"category"`
	TargetMuscle      *string    `mapstructure:"target_muscle" json:"target_muscle"` // Falls back to PrimaryMuscle on create
	PrimaryMuscle     *string    `mapstructure:"primary_muscle" json:"primary_muscle"`
	SecondaryMuscles  *string    `mapstructure:"secondary_muscles" json:"secondary_muscles"`
	Equipment         *string    `mapstructure:"equipment" json:"equipment"`
	Tempo             *string    `mapstructure:"tempo" json:"tempo"`
	TargetSets        *int       `mapstructure:"target_sets" json:"target_sets"`
	TargetRepetitions *int       `mapstructure:"target_repetitions" json:"target_repetitions"`
	Notes             *string    `mapstructure:"notes" json:"notes"`
	Cues              *string    `mapstructure:"cues" json:"cues"`
	VideoURL          *string    `mapstructure:"video_url" json:"video_url"`
	CreatedAt         *time.Time `mapstructure:"created_at" json:"created_at,omitempty"`
}

// ExerciseSummary is the slim projection used for selection lists and for
// nesting exercises inside hydrated workouts.
type ExerciseSummary struct {
	ID            string  `mapstructure:"id" json:"id"`
	Name          string  `mapstructure:"name" json:"name"`
	Category      *string `mapstructure:"category" json:"category"`
	TargetMuscle  *string `mapstructure:"target_muscle" json:"target_muscle"`
	PrimaryMuscle *string `mapstructure:"primary_muscle" json:"primary_muscle"`
}

// VideoUpload is returned when a client asks to upload a demo video for an exercise.
type VideoUpload struct {
	ExerciseID string    `json:"exercise_id"`
	UploadURL  string    `json:"upload_url"` // Presigned PUT URL
	ObjectKey  string    `json:"object_key"`
	VideoURL   string    `json:"video_url"` // Public URL stored on the exercise
	ExpiresAt  time.Time `json:"expires_at"`
}
