package postgres

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/khabaznak/gym-tracker/internal/repository"
)

func TestTranslate(t *testing.T) {
	testCases := []struct {
		code string
		kind repository.Kind
	}{
		{code: "42501", kind: repository.KindPermissionDenied},
		{code: "42703", kind: repository.KindMissingColumn},
		{code: "PGRST204", kind: repository.KindMissingColumn},
		{code: "42P01", kind: repository.KindMissingRelation},
		{code: "23505", kind: repository.KindUniqueViolation},
		{code: "23514", kind: repository.KindCheckViolation},
		{code: "08006", kind: repository.KindOther},
	}
	for _, tc := range testCases {
		t.Run(tc.code, func(t *testing.T) {
			err := translate("insert", "plan_workouts", fmt.Errorf("exec: %w", &pgconn.PgError{Code: tc.code}))
			assert.Equal(t, tc.kind, repository.KindOf(err))
		})
	}

	assert.Equal(t, repository.KindNotFound, repository.KindOf(translate("select", "plans", pgx.ErrNoRows)))
}

func TestBuildInsert(t *testing.T) {
	query, args := buildInsert("plan_workouts", []repository.Row{
		{"plan_id": "1", "workout_id": "2", "position": 1},
		{"plan_id": "1", "workout_id": "3"},
	})

	assert.Contains(t, query, "INSERT INTO plan_workouts")
	assert.Contains(t, query, "DEFAULT")
	assert.Contains(t, query, "$5")
	assert.Regexp(t, `RETURNING \*$`, query)
	assert.Len(t, args, 5)
}

func TestBuildSelect(t *testing.T) {
	query, args := buildSelect("workouts", repository.Query{
		Columns: []string{"id", "name"},
		Filters: []repository.Filter{repository.In("id", []string{"a", "b"})},
		Order:   []repository.Order{{Column: "performed_at", Desc: true}, {Column: "id"}},
		Limit:   20,
	})

	assert.Contains(t, query, "SELECT id, name FROM workouts")
	assert.Contains(t, query, "id IN ($1, $2)")
	assert.Contains(t, query, "ORDER BY performed_at DESC, id ASC")
	assert.Contains(t, query, "LIMIT")
	assert.Contains(t, args, "a")
	assert.Contains(t, args, "b")

	query, _ = buildSelect("plans", repository.Query{Filters: []repository.Filter{repository.In("id", nil)}})
	assert.Contains(t, query, "SELECT * FROM plans")
	assert.Contains(t, query, "FALSE")
}

func TestBuildUpdateAndDelete(t *testing.T) {
	query, args := buildUpdate("sessions", repository.Row{"status": "completed", "notes": nil}, []repository.Filter{repository.Eq("id", "9")})
	assert.Contains(t, query, "UPDATE sessions SET notes = $1, status = $2 WHERE id = $3")
	assert.Regexp(t, `RETURNING \*$`, query)
	assert.Equal(t, []any{nil, "completed", "9"}, args)

	query, args = buildDelete("plan_workouts", []repository.Filter{repository.Eq("plan_id", "4")})
	assert.Equal(t, "DELETE FROM plan_workouts WHERE plan_id = $1", query)
	assert.Equal(t, []any{"4"}, args)
}

func TestToRow(t *testing.T) {
	id := [16]byte{0xde, 0xad, 0xbe, 0xef, 0x01, 0x02, 0x43, 0x04, 0x85, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c}
	row := toRow(map[string]any{"id": id, "name": "Push", "position": int32(2)})

	assert.Equal(t, repository.Row{
		"id":       "deadbeef-0102-4304-8506-0708090a0b0c",
		"name":     "Push",
		"position": int32(2),
	}, row)
}
