package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khabaznak/gym-tracker/internal/normalize"
	"github.com/khabaznak/gym-tracker/internal/repository"
	"github.com/khabaznak/gym-tracker/internal/repository/memory"
)

func TestExerciseService_CreateExercise(t *testing.T) {
	store := memory.New()
	now := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	svc := NewExerciseService(store, nil, WithClock(fixedClock(now)))

	e, err := svc.CreateExercise(context.Background(), normalize.Payload{
		"name":               "  Bench Press ",
		"primary_muscle":     "Chest",
		"target_muscle":      " ",
		"target_sets":        "4",
		"target_repetitions": 8,
		"video_url":          "https://Videos.example.com",
		"equipment":          "",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "Bench Press", e.Name)
	require.NotNil(t, e.TargetMuscle)
	assert.Equal(t, "Chest", *e.TargetMuscle)
	assert.Equal(t, 4, *e.TargetSets)
	assert.Equal(t, 8, *e.TargetRepetitions)
	assert.Equal(t, "https://videos.example.com/", *e.VideoURL)
	assert.Nil(t, e.Equipment)
	require.NotNil(t, e.CreatedAt)
	assert.True(t, now.Equal(*e.CreatedAt))

	rows := store.Rows(repository.TableExercises)
	require.Len(t, rows, 1)
	assert.Equal(t, "Chest", rows[0]["target_muscle"])
}

func TestExerciseService_CreateExercise_Validation(t *testing.T) {
	valid := func() normalize.Payload {
		return normalize.Payload{
			"name":               "Squat",
			"target_muscle":      "Legs",
			"target_sets":        "3",
			"target_repetitions": "5",
		}
	}

	tests := []struct {
		name    string
		mutate  func(p normalize.Payload)
		message string
	}{
		{"missing name", func(p normalize.Payload) { p["name"] = "  " }, "Exercise name is required"},
		{"no muscle", func(p normalize.Payload) { delete(p, "target_muscle") }, "Target muscle is required"},
		{"zero sets", func(p normalize.Payload) { p["target_sets"] = "0" }, "Target sets must be a positive whole number."},
		{"missing sets", func(p normalize.Payload) { p["target_sets"] = "" }, "Target sets is required"},
		{"too many sets", func(p normalize.Payload) { p["target_sets"] = "51" }, "Target sets must be at most 50."},
		{"bad reps", func(p normalize.Payload) { p["target_repetitions"] = "lots" }, "Target repetitions must be a positive whole number."},
		{"ftp video", func(p normalize.Payload) { p["video_url"] = "ftp://x.com" }, msgInvalidVideo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.New()
			p := valid()
			tt.mutate(p)

			_, err := NewExerciseService(store, nil).CreateExercise(context.Background(), p)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.message, ve.Message)
			assert.Zero(t, store.Calls("insert", repository.TableExercises), "validation happens before any write")
		})
	}
}

func TestExerciseService_ListAndGet(t *testing.T) {
	store := memory.New()
	ids := seedExercises(t, store, "Squat", "Deadlift", "Bench")
	svc := NewExerciseService(store, nil)
	ctx := context.Background()

	list, err := svc.ListExercises(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"Bench", "Deadlift", "Squat"}, []string{list[0].Name, list[1].Name, list[2].Name})

	options, err := svc.ListExerciseOptions(ctx)
	require.NoError(t, err)
	assert.Len(t, options, 3)

	e, err := svc.GetExercise(ctx, ids[1])
	require.NoError(t, err)
	assert.Equal(t, "Deadlift", e.Name)

	_, err = svc.GetExercise(ctx, "404")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.GetExercise(ctx, " ")
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestExerciseService_DeleteExercise(t *testing.T) {
	store := memory.New()
	ids := seedExercises(t, store, "Squat", "Lunge", "Deadlift")
	ctx := context.Background()
	workouts := NewWorkoutService(store)

	legs, err := workouts.CreateWorkout(ctx, normalize.Payload{
		"name": "Legs",
		"exercises": []any{
			map[string]any{"id": ids[0], "target_sets": "3"},
			map[string]any{"id": ids[1]},
			map[string]any{"id": ids[2], "target_reps": "5", "notes": "heavy"},
		},
	})
	require.NoError(t, err)
	pull, err := workouts.CreateWorkout(ctx, normalize.Payload{
		"name":         "Pull",
		"exercise_ids": []any{ids[2], ids[1]},
	})
	require.NoError(t, err)

	svc := NewExerciseService(store, nil)
	require.NoError(t, svc.DeleteExercise(ctx, ids[1]))
	assert.Len(t, store.Rows(repository.TableExercises), 2)

	got, err := workouts.GetWorkout(ctx, legs.ID)
	require.NoError(t, err)
	require.Len(t, got.Exercises, 2)
	var positions []int
	for _, e := range got.Exercises {
		positions = append(positions, *e.Position)
	}
	assert.Equal(t, []int{1, 2}, positions)
	assert.Equal(t, ids[0], got.Exercises[0].ExerciseID)
	assert.Equal(t, 3, *got.Exercises[0].TargetSets)
	assert.Equal(t, ids[2], got.Exercises[1].ExerciseID)
	assert.Equal(t, 5, *got.Exercises[1].TargetReps)
	assert.Equal(t, "heavy", *got.Exercises[1].Notes)

	// The removed exercise was last here, so nothing needs renumbering.
	got, err = workouts.GetWorkout(ctx, pull.ID)
	require.NoError(t, err)
	require.Len(t, got.Exercises, 1)
	assert.Equal(t, 1, *got.Exercises[0].Position)

	assert.ErrorIs(t, svc.DeleteExercise(ctx, ids[1]), ErrNotFound)
}

type fakeFiles struct {
	deleted []string
}

func (f *fakeFiles) GeneratePresignedUploadURL(_ context.Context, key, contentType string, _ time.Duration) (string, error) {
	return "https://upload.example.com/" + key + "?type=" + contentType, nil
}

func (f *fakeFiles) PublicURL(key string) string {
	return "https://cdn.example.com/" + key
}

func (f *fakeFiles) DeleteObject(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

func TestExerciseService_CreateVideoUpload(t *testing.T) {
	store := memory.New()
	ids := seedExercises(t, store, "Squat")
	files := &fakeFiles{}
	svc := NewExerciseService(store, files)
	ctx := context.Background()

	upload, err := svc.CreateVideoUpload(ctx, ids[0], "squat.mov", "")
	require.NoError(t, err)
	assert.Equal(t, ids[0], upload.ExerciseID)
	assert.Contains(t, upload.ObjectKey, "exercises/"+ids[0]+"/")
	assert.Contains(t, upload.UploadURL, "type=video/mp4")
	assert.Equal(t, "https://cdn.example.com/"+upload.ObjectKey, upload.VideoURL)

	// video_url is stored before the client uploads anything.
	e, err := svc.GetExercise(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, upload.VideoURL, *e.VideoURL)

	require.NoError(t, svc.DeleteExercise(ctx, ids[0]))
	assert.Equal(t, []string{upload.ObjectKey}, files.deleted)

	_, err = NewExerciseService(store, nil).CreateVideoUpload(ctx, "1", "a.mp4", "")
	assert.ErrorIs(t, err, ErrStorageNotConfigured)
}
