package repository

import (
	"context"
)

// Table names shared by every store adapter.
const (
	TableExercises        = "exercises"
	TableWorkouts         = "workouts"
	TableWorkoutExercises = "workout_exercises"
	TablePlans            = "plans"
	TablePlanWorkouts     = "plan_workouts"
	TableSessions         = "sessions"
	TableSessionWorkouts  = "session_workouts"
	TableSessionSets      = "session_sets"
)

// Row is one record keyed by column name.
type Row map[string]any

// Op is a filter comparison.
type Op string

const (
	OpEq Op = "eq"
	OpIn Op = "in"
)

// Filter restricts a select, update or delete to matching rows.
type Filter struct {
	Column string
	Op     Op
	Value  any // For OpIn, a []any or []string
}

// Eq matches rows where column equals value.
func Eq(column string, value any) Filter {
	return Filter{Column: column, Op: OpEq, Value: value}
}

// In matches rows where column is one of values.
func In(column string, values []string) Filter {
	return Filter{Column: column, Op: OpIn, Value: values}
}

// Order sorts a select. Null values sort last ascending and first descending.
type Order struct {
	Column string
	Desc   bool
}

// Query describes a select.
type Query struct {
	Columns []string // Empty selects every column
	Filters []Filter
	Order   []Order
	Limit   int // Zero means no limit
}

// Store is a table-addressed row store. Writes return the affected rows
// where the backend can report them; an update matching nothing returns an
// empty slice, not an error.
type Store interface {
	Insert(ctx context.Context, table string, rows ...Row) ([]Row, error)
	Select(ctx context.Context, table string, q Query) ([]Row, error)
	Update(ctx context.Context, table string, values Row, filters ...Filter) ([]Row, error)
	Delete(ctx context.Context, table string, filters ...Filter) error
}

// FilterValues returns the values of an In filter as strings.
func FilterValues(f Filter) []string {
	switch v := f.Value.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return []string{v}
	default:
		return nil
	}
}
