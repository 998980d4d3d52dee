package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khabaznak/gym-tracker/internal/domain"
	"github.com/khabaznak/gym-tracker/internal/normalize"
	"github.com/khabaznak/gym-tracker/internal/repository"
	"github.com/khabaznak/gym-tracker/internal/repository/memory"
)

func sessionPayload() normalize.Payload {
	return normalize.Payload{
		"plan_id":    "7",
		"plan_name":  "Strength",
		"day_index":  "9",
		"week_index": "2",
		"mode":       "circuit",
		"workouts": []any{
			map[string]any{
				"id":   "11",
				"name": "Push",
				"exercises": []any{
					map[string]any{"id": "21", "name": "Bench", "target_sets": "3", "target_reps": "8"},
					map[string]any{"id": "22", "name": "Dip", "sets": []any{
						map[string]any{"target_reps": "10"},
						map[string]any{"set_number": "5", "target_reps": "6"},
					}},
				},
			},
			map[string]any{"id": "12"},
		},
	}
}

func TestSessionService_CreateSession(t *testing.T) {
	store := memory.New()
	started := time.Date(2024, 4, 2, 18, 0, 0, 0, time.UTC)
	svc := NewSessionService(store, WithClock(fixedClock(started)))

	session, err := svc.CreateSession(context.Background(), sessionPayload())
	require.NoError(t, err)

	assert.Equal(t, domain.SessionInProgress, session.Status)
	assert.Equal(t, domain.ModeCircuit, session.Mode)
	assert.Equal(t, 7, session.DayIndex, "day index is clamped to 1..7")
	assert.Equal(t, 2, session.WeekIndex)
	assert.Equal(t, "Strength", *session.PlanName)
	assert.True(t, started.Equal(*session.StartedAt))

	require.Len(t, session.Workouts, 2)
	push, other := session.Workouts[0], session.Workouts[1]
	assert.Equal(t, "Push", push.WorkoutName)
	assert.Equal(t, 1, push.Position)
	assert.Equal(t, "12", other.WorkoutName, "name falls back to the workout id")
	assert.Equal(t, 2, other.Position)
	assert.Empty(t, other.Sets)

	// Bench: 3 synthesized sets. Dip: the 2 explicit sets.
	require.Len(t, push.Sets, 5)
	var bench, dip []domain.SessionSet
	for _, s := range push.Sets {
		assert.False(t, s.Completed)
		assert.Equal(t, 7, s.DayIndex)
		switch s.ExerciseName {
		case "Bench":
			bench = append(bench, s)
		case "Dip":
			dip = append(dip, s)
		}
	}
	require.Len(t, bench, 3)
	for i, s := range bench {
		assert.Equal(t, i+1, s.SetNumber)
		assert.Equal(t, 8, *s.TargetReps)
		assert.Equal(t, 3, *s.TargetSets)
	}
	require.Len(t, dip, 2)
	assert.Equal(t, 1, dip[0].SetNumber)
	assert.Equal(t, 10, *dip[0].TargetReps)
	assert.Equal(t, 5, dip[1].SetNumber)
	assert.Equal(t, 2, *dip[1].TargetSets)

	got, err := svc.GetSession(context.Background(), session.ID)
	require.NoError(t, err)
	require.Len(t, got.Workouts, 2)
	assert.Len(t, got.Workouts[0].Sets, 5)
}

func TestSessionService_CreateSession_Defaults(t *testing.T) {
	store := memory.New()
	session, err := NewSessionService(store).CreateSession(context.Background(), normalize.Payload{
		"mode": "relay",
		"workouts": []any{map[string]any{"exercises": []any{map[string]any{}}}},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.ModeFocus, session.Mode)
	assert.Equal(t, 1, session.DayIndex)
	assert.Equal(t, 1, session.WeekIndex)
	assert.Nil(t, session.PlanID)
	require.Len(t, session.Workouts, 1)
	assert.Equal(t, "Workout 1", session.Workouts[0].WorkoutName)
	require.Len(t, session.Workouts[0].Sets, 1)
	assert.Equal(t, "Exercise 1", session.Workouts[0].Sets[0].ExerciseName)
	assert.Equal(t, 1, session.Workouts[0].Sets[0].SetNumber)
}

func TestSessionService_CreateSession_CapsSets(t *testing.T) {
	store := memory.New()
	svc := NewSessionService(store)
	ctx := context.Background()

	explicit := make([]any, domain.MaxTargetSets+10)
	for i := range explicit {
		explicit[i] = map[string]any{"target_reps": "5"}
	}

	session, err := svc.CreateSession(ctx, normalize.Payload{
		"workouts": []any{map[string]any{"exercises": []any{
			map[string]any{"name": "Squat", "target_sets": "2000000"},
			map[string]any{"name": "Row", "sets": explicit},
		}}},
	})
	require.NoError(t, err)
	require.Len(t, session.Workouts, 1)
	assert.Len(t, session.Workouts[0].Sets, 2*domain.MaxTargetSets)
	assert.Len(t, store.Rows(repository.TableSessionSets), 2*domain.MaxTargetSets)
	for _, set := range session.Workouts[0].Sets {
		require.NotNil(t, set.TargetSets)
		assert.Equal(t, domain.MaxTargetSets, *set.TargetSets)
	}

	exercises := make([]any, maxSessionSets/domain.MaxTargetSets+1)
	for i := range exercises {
		exercises[i] = map[string]any{"target_sets": domain.MaxTargetSets}
	}
	_, err = svc.CreateSession(ctx, normalize.Payload{
		"workouts": []any{map[string]any{"exercises": exercises}},
	})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "A session can hold at most 1000 sets.", ve.Message)
	assert.Len(t, store.Rows(repository.TableSessions), 1, "an oversized session is rejected before any write")
}

func TestSessionService_CreateSession_RollsBack(t *testing.T) {
	for _, table := range []string{repository.TableSessionWorkouts, repository.TableSessionSets} {
		t.Run(table, func(t *testing.T) {
			store := memory.New()
			store.FailNext("insert", table, repository.KindOther)

			_, err := NewSessionService(store).CreateSession(context.Background(), sessionPayload())
			var se *StoreError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, "Unable to start session", se.Message)

			assert.Empty(t, store.Rows(repository.TableSessions))
			assert.Empty(t, store.Rows(repository.TableSessionWorkouts))
		})
	}
}

func TestSessionService_CompleteSession(t *testing.T) {
	store := memory.New()
	now := time.Date(2024, 4, 2, 19, 0, 0, 0, time.UTC)
	svc := NewSessionService(store, WithClock(fixedClock(now)))
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, sessionPayload())
	require.NoError(t, err)
	sets := session.Workouts[0].Sets

	result, err := svc.CompleteSession(ctx, session.ID, normalize.Payload{
		"notes":            " felt strong ",
		"duration_seconds": "3600",
		"sets": []any{
			map[string]any{"id": sets[0].ID, "completed": true, "actual_reps": "8"},
			map[string]any{"completed": true, "actual_reps": "99"},
			map[string]any{"id": sets[1].ID, "completed": "false", "actual_reps": "-1", "notes": "skipped"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.SetsUpdated)
	assert.Equal(t, 1, result.SetsSkipped)

	s := result.Session
	assert.Equal(t, domain.SessionCompleted, s.Status)
	assert.Equal(t, "felt strong", *s.Notes)
	assert.Equal(t, 3600, *s.DurationSeconds)
	require.NotNil(t, s.EndedAt)
	assert.True(t, now.Equal(*s.EndedAt))

	byID := map[string]domain.SessionSet{}
	for _, set := range s.Workouts[0].Sets {
		byID[set.ID] = set
	}
	first := byID[sets[0].ID]
	assert.True(t, first.Completed)
	assert.Equal(t, 8, *first.ActualReps)
	require.NotNil(t, first.CompletedAt)

	second := byID[sets[1].ID]
	assert.False(t, second.Completed)
	assert.Nil(t, second.ActualReps)
	assert.Nil(t, second.CompletedAt)
	assert.Equal(t, "skipped", *second.Notes)

	for _, set := range s.Workouts[0].Sets {
		if set.ActualReps != nil {
			assert.NotEqual(t, 99, *set.ActualReps, "the set without an id is never applied")
		}
	}
}

func TestSessionService_CompleteSession_IgnoresOtherSessionsSets(t *testing.T) {
	store := memory.New()
	svc := NewSessionService(store)
	ctx := context.Background()

	mine, err := svc.CreateSession(ctx, sessionPayload())
	require.NoError(t, err)
	other, err := svc.CreateSession(ctx, sessionPayload())
	require.NoError(t, err)
	foreign := other.Workouts[0].Sets[0]

	result, err := svc.CompleteSession(ctx, mine.ID, normalize.Payload{
		"sets": []any{
			map[string]any{"id": mine.Workouts[0].Sets[0].ID, "completed": true},
			map[string]any{"id": foreign.ID, "completed": true},
			map[string]any{"id": "9999", "completed": true},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.SetsUpdated)
	assert.Equal(t, 2, result.SetsSkipped)

	got, err := svc.GetSession(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionInProgress, got.Status)
	for _, set := range got.Workouts[0].Sets {
		assert.False(t, set.Completed, "sets of another session stay untouched")
	}
}

func TestSessionService_CompleteSession_PartialFailureKeepsEarlierUpdates(t *testing.T) {
	store := memory.New()
	svc := NewSessionService(store)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, sessionPayload())
	require.NoError(t, err)
	sets := session.Workouts[0].Sets

	// Fail the first set update; the session row update before it stays.
	store.FailNext("update", repository.TableSessionSets, repository.KindOther)
	_, err = svc.CompleteSession(ctx, session.ID, normalize.Payload{
		"sets": []any{map[string]any{"id": sets[0].ID, "completed": true}},
	})
	var se *StoreError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "Unable to complete session", se.Message)

	got, err := svc.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionCompleted, got.Status, "the session update is not compensated")
}

func TestSessionService_AbortAndNotFound(t *testing.T) {
	store := memory.New()
	svc := NewSessionService(store)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, normalize.Payload{})
	require.NoError(t, err)
	assert.Empty(t, session.Workouts)

	aborted, err := svc.AbortSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionAborted, aborted.Status)
	assert.NotNil(t, aborted.EndedAt)

	_, err = svc.CompleteSession(ctx, "404", normalize.Payload{})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.AbortSession(ctx, "")
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "Invalid session id.", ve.Message)
}
