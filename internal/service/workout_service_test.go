package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khabaznak/gym-tracker/internal/domain"
	"github.com/khabaznak/gym-tracker/internal/metrics"
	"github.com/khabaznak/gym-tracker/internal/normalize"
	"github.com/khabaznak/gym-tracker/internal/repository"
	"github.com/khabaznak/gym-tracker/internal/repository/memory"
)

func exerciseIDs(w *domain.Workout) []string {
	out := make([]string, len(w.Exercises))
	for i, e := range w.Exercises {
		out[i] = e.ExerciseID
	}
	return out
}

func positions(w *domain.Workout) []int {
	out := make([]int, len(w.Exercises))
	for i, e := range w.Exercises {
		out[i] = *e.Position
	}
	return out
}

func TestWorkoutService_CreateKeepsSubmittedOrder(t *testing.T) {
	store := memory.New()
	ids := seedExercises(t, store, "Squat", "Lunge", "Calf Raise")
	svc := NewWorkoutService(store)
	ctx := context.Background()

	created, err := svc.CreateWorkout(ctx, normalize.Payload{
		"name":         "Leg Day",
		"exercise_ids": ids[2] + "," + ids[0] + "," + ids[1] + "," + ids[0],
		"performed_at": "2024-02-03",
	})
	require.NoError(t, err)

	got, err := svc.GetWorkout(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{ids[2], ids[0], ids[1]}, exerciseIDs(got))
	assert.Equal(t, []int{1, 2, 3}, positions(got))
	require.NotNil(t, got.Exercises[0].Exercise)
	assert.Equal(t, "Calf Raise", got.Exercises[0].Exercise.Name)
	require.NotNil(t, got.PerformedAt)
	assert.Equal(t, time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC), *got.PerformedAt)
}

func TestWorkoutService_CreateWithExerciseObjects(t *testing.T) {
	store := memory.New()
	ids := seedExercises(t, store, "Push-up", "Dip")
	svc := NewWorkoutService(store)

	w, err := svc.CreateWorkout(context.Background(), normalize.Payload{
		"name": "Push",
		"exercises": []any{
			map[string]any{"id": ids[1], "target_sets": 3, "target_reps": "12", "notes": " slow "},
			map[string]any{"exercise_id": ids[0]},
			map[string]any{"notes": "no id, skipped"},
		},
	})
	require.NoError(t, err)
	require.Len(t, w.Exercises, 2)
	assert.Equal(t, ids[1], w.Exercises[0].ExerciseID)
	assert.Equal(t, 3, *w.Exercises[0].TargetSets)
	assert.Equal(t, 12, *w.Exercises[0].TargetReps)
	assert.Equal(t, "slow", *w.Exercises[0].Notes)
	assert.Nil(t, w.Exercises[1].TargetSets)
}

func TestWorkoutService_CreateValidation(t *testing.T) {
	store := memory.New()
	svc := NewWorkoutService(store)
	ctx := context.Background()

	tests := []struct {
		payload normalize.Payload
		message string
	}{
		{normalize.Payload{"name": ""}, "Workout name is required"},
		{normalize.Payload{"name": "A", "video_url": "not a url"}, msgInvalidVideo},
		{normalize.Payload{"name": "A", "performed_at": "someday"}, "Session date is invalid"},
		{normalize.Payload{"name": "A", "exercises": []any{map[string]any{"id": "1", "target_sets": "500"}}}, "Target sets must be at most 50."},
	}
	for _, tt := range tests {
		_, err := svc.CreateWorkout(ctx, tt.payload)
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, tt.message, ve.Message)
	}
	assert.Empty(t, store.Rows(repository.TableWorkouts))
}

func TestWorkoutService_CreateRollsBackOnLinkFailure(t *testing.T) {
	store := memory.New()
	ids := seedExercises(t, store, "Squat")
	store.FailNext("insert", repository.TableWorkoutExercises, repository.KindOther)
	m, _ := metrics.NewTestManagerAndRegistry()
	svc := NewWorkoutService(store, WithMetrics(m))

	_, err := svc.CreateWorkout(context.Background(), normalize.Payload{"name": "Legs", "exercise_ids": ids})
	var se *StoreError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "Unable to create workout", se.Message)

	assert.Empty(t, store.Rows(repository.TableWorkouts))
	assert.Empty(t, store.Rows(repository.TableWorkoutExercises))
}

func TestWorkoutService_Update(t *testing.T) {
	store := memory.New()
	ids := seedExercises(t, store, "A", "B", "C")
	svc := NewWorkoutService(store)
	ctx := context.Background()

	w, err := svc.CreateWorkout(ctx, normalize.Payload{"name": "Full", "exercise_ids": []any{ids[0], ids[1]}})
	require.NoError(t, err)

	updated, err := svc.UpdateWorkout(ctx, w.ID, normalize.Payload{
		"name":         "Full Body",
		"exercise_ids": []any{ids[2], ids[0]},
	})
	require.NoError(t, err)
	assert.Equal(t, "Full Body", updated.Name)
	assert.Equal(t, []string{ids[2], ids[0]}, exerciseIDs(updated))
	assert.Equal(t, []int{1, 2}, positions(updated))
	assert.Len(t, store.Rows(repository.TableWorkoutExercises), 2, "old links are replaced")

	_, err = svc.UpdateWorkout(ctx, "999", normalize.Payload{"name": "Ghost"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Len(t, store.Rows(repository.TableWorkoutExercises), 2, "not found is detected before children change")
}

func TestWorkoutService_Delete(t *testing.T) {
	store := memory.New()
	exIDs := seedExercises(t, store, "A")
	svc := NewWorkoutService(store)
	ctx := context.Background()

	w, err := svc.CreateWorkout(ctx, normalize.Payload{"name": "W", "exercise_ids": exIDs})
	require.NoError(t, err)
	_, err = NewPlanService(store).CreatePlan(ctx, normalize.Payload{
		"name":               "P",
		"assignment_week":    "1",
		"assignment_day":     "1",
		"assignment_workout": w.ID,
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteWorkout(ctx, w.ID))
	assert.Empty(t, store.Rows(repository.TableWorkouts))
	assert.Empty(t, store.Rows(repository.TableWorkoutExercises))
	assert.Empty(t, store.Rows(repository.TablePlanWorkouts))

	assert.ErrorIs(t, svc.DeleteWorkout(ctx, w.ID), ErrNotFound)
}

func TestWorkoutService_ListAndEditor(t *testing.T) {
	store := memory.New()
	seedExercises(t, store, "A", "B")
	svc := NewWorkoutService(store)
	ctx := context.Background()

	for _, p := range []normalize.Payload{
		{"name": "Old", "performed_at": "2024-01-01"},
		{"name": "New", "performed_at": "2024-05-01"},
		{"name": "Mid", "performed_at": "2024-03-01"},
	} {
		_, err := svc.CreateWorkout(ctx, p)
		require.NoError(t, err)
	}

	list, err := svc.ListWorkouts(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "New", list[0].Name)
	assert.Equal(t, "Mid", list[1].Name)
	assert.NotNil(t, list[0].Exercises)

	options, err := svc.ListWorkoutOptions(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Mid", options[0].Name)

	editor, err := svc.GetWorkoutEditor(ctx, list[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "New", editor.Workout.Name)
	assert.Len(t, editor.Exercises, 2)

	_, err = svc.GetWorkoutEditor(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
