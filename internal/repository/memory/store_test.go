package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khabaznak/gym-tracker/internal/repository"
)

func TestStore_InsertAssignsIDs(t *testing.T) {
	s := New()
	name := "Squat"
	rows, err := s.Insert(context.Background(), "exercises",
		repository.Row{"name": &name},
		repository.Row{"name": "Bench", "id": "custom"},
	)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "1", rows[0]["id"])
	assert.Equal(t, "Squat", rows[0]["name"], "pointers are stored by value")
	assert.Equal(t, "custom", rows[1]["id"])
}

func TestStore_UniqueIsAtomic(t *testing.T) {
	s := New().Unique("plan_workouts", "plan_id", "workout_id")
	ctx := context.Background()

	_, err := s.Insert(ctx, "plan_workouts",
		repository.Row{"plan_id": "1", "workout_id": "a"},
		repository.Row{"plan_id": "1", "workout_id": "a"},
	)
	require.Error(t, err)
	assert.Equal(t, repository.KindUniqueViolation, repository.KindOf(err))
	assert.Empty(t, s.Rows("plan_workouts"))
}

func TestStore_Columns(t *testing.T) {
	s := New().Columns("plan_workouts", "plan_id", "position")
	_, err := s.Insert(context.Background(), "plan_workouts", repository.Row{"plan_id": "1", "order_index": 0})
	assert.Equal(t, repository.KindMissingColumn, repository.KindOf(err))

	_, err = s.Insert(context.Background(), "plan_workouts", repository.Row{"plan_id": "1", "position": 1})
	assert.NoError(t, err)
}

func TestStore_CheckAndDeny(t *testing.T) {
	s := New().
		Check("workout_exercises", "position_positive", func(r repository.Row) bool {
			p, ok := r["position"].(int)
			return ok && p > 0
		}).
		DenyWrites("plans")
	ctx := context.Background()

	_, err := s.Insert(ctx, "workout_exercises", repository.Row{"position": 0})
	assert.Equal(t, repository.KindCheckViolation, repository.KindOf(err))

	_, err = s.Insert(ctx, "plans", repository.Row{"name": "x"})
	assert.Equal(t, repository.KindPermissionDenied, repository.KindOf(err))

	_, err = s.Select(ctx, "plans", repository.Query{})
	assert.NoError(t, err, "reads are not denied")
}

func TestStore_FailNext(t *testing.T) {
	s := New().FailNext("select", "workouts", repository.KindMissingRelation)
	ctx := context.Background()

	_, err := s.Select(ctx, "workouts", repository.Query{})
	assert.Equal(t, repository.KindMissingRelation, repository.KindOf(err))

	_, err = s.Select(ctx, "workouts", repository.Query{})
	assert.NoError(t, err)
	assert.Equal(t, 2, s.Calls("select", "workouts"))
}

func TestStore_SelectFilterOrderLimit(t *testing.T) {
	s := New()
	ctx := context.Background()
	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	_, err := s.Insert(ctx, "workouts",
		repository.Row{"name": "a", "performed_at": t1},
		repository.Row{"name": "b", "performed_at": nil},
		repository.Row{"name": "c", "performed_at": t2},
		repository.Row{"name": "d", "performed_at": t2},
	)
	require.NoError(t, err)

	rows, err := s.Select(ctx, "workouts", repository.Query{
		Columns: []string{"id", "name"},
		Order:   []repository.Order{{Column: "performed_at", Desc: true}},
	})
	require.NoError(t, err)
	names := []string{}
	for _, r := range rows {
		names = append(names, r["name"].(string))
		assert.NotContains(t, r, "performed_at")
	}
	assert.Equal(t, []string{"b", "c", "d", "a"}, names, "nulls first when descending")

	rows, err = s.Select(ctx, "workouts", repository.Query{
		Filters: []repository.Filter{repository.In("id", []string{"1", "3", "9"})},
		Order:   []repository.Order{{Column: "id"}},
		Limit:   1,
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "a", rows[0]["name"])
}

func TestStore_UpdateAndDelete(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, err := s.Insert(ctx, "plans", repository.Row{"name": "a", "status": "active"}, repository.Row{"name": "b"})
	require.NoError(t, err)

	rows, err := s.Update(ctx, "plans", repository.Row{"status": "inactive"}, repository.Eq("id", "1"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "inactive", rows[0]["status"])

	rows, err = s.Update(ctx, "plans", repository.Row{"status": "inactive"}, repository.Eq("id", "404"))
	require.NoError(t, err)
	assert.Empty(t, rows)

	require.NoError(t, s.Delete(ctx, "plans", repository.Eq("id", "1")))
	remaining := s.Rows("plans")
	require.Len(t, remaining, 1)
	assert.Equal(t, "b", remaining[0]["name"])
}
