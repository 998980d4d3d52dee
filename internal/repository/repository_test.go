package repository

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	ID        string     `mapstructure:"id"`
	Name      string     `mapstructure:"name"`
	Sets      *int       `mapstructure:"sets"`
	Notes     *string    `mapstructure:"notes"`
	CreatedAt *time.Time `mapstructure:"created_at"`
	Done      bool       `mapstructure:"done"`
	Skipped   []string   `mapstructure:"-"`
}

func TestDecode(t *testing.T) {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	var s sample
	require.NoError(t, Decode(Row{
		"id":         int64(7),
		"name":       "Squat",
		"sets":       int32(3),
		"notes":      nil,
		"created_at": created,
		"done":       true,
		"extra":      "ignored",
	}, &s))
	assert.Equal(t, "7", s.ID)
	assert.Equal(t, 3, *s.Sets)
	assert.Nil(t, s.Notes)
	assert.Equal(t, created, *s.CreatedAt)
	assert.True(t, s.Done)

	var fromStrings sample
	require.NoError(t, Decode(Row{"sets": "4", "created_at": "2024-05-01T12:00:00Z"}, &fromStrings))
	assert.Equal(t, 4, *fromStrings.Sets)
	assert.True(t, created.Equal(*fromStrings.CreatedAt))
}

func TestDecode_BinaryUUID(t *testing.T) {
	raw := [16]byte{0xde, 0xad, 0xbe, 0xef, 0x01, 0x02, 0x43, 0x04, 0x85, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c}

	var s struct {
		ID     string  `mapstructure:"id"`
		PlanID *string `mapstructure:"plan_id"`
	}
	require.NoError(t, Decode(Row{"id": raw, "plan_id": raw}, &s))
	assert.Equal(t, "deadbeef-0102-4304-8506-0708090a0b0c", s.ID)
	require.NotNil(t, s.PlanID)
	assert.Equal(t, s.ID, *s.PlanID)
}

func TestDecodeAll(t *testing.T) {
	got, err := DecodeAll[sample]([]Row{{"id": "1"}, {"id": "2"}})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2", got[1].ID)
}

func TestKindOf(t *testing.T) {
	err := NewError(KindUniqueViolation, "insert", TablePlanWorkouts, errors.New("dup"))
	assert.Equal(t, KindUniqueViolation, KindOf(err))
	assert.Equal(t, KindUniqueViolation, KindOf(errors.Wrap(err, "linking")))
	assert.Equal(t, KindNotFound, KindOf(ErrNotFound))
	assert.Equal(t, KindOther, KindOf(errors.New("boom")))
	assert.Nil(t, NewError(KindOther, "insert", TablePlans, nil))
	assert.Contains(t, err.Error(), "unique_violation")
}

func TestFilterValues(t *testing.T) {
	assert.Equal(t, []string{"a"}, FilterValues(In("id", []string{"a"})))
	assert.Equal(t, []string{"a", "b"}, FilterValues(Filter{Value: []any{"a", 3, "b"}}))
	assert.Nil(t, FilterValues(Eq("id", 3)))
}
