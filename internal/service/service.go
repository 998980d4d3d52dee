package service

import (
	"context"
	"time"

	"github.com/khabaznak/gym-tracker/internal/domain"
	"github.com/khabaznak/gym-tracker/internal/metrics"
	"github.com/khabaznak/gym-tracker/internal/repository"
)

// Option configures a service.
type Option func(*base)

// WithClock overrides the clock used for created_at, updated_at and
// session timestamps.
func WithClock(now func() time.Time) Option {
	return func(b *base) { b.now = now }
}

// WithMetrics records fallback, compensation and hydration counters.
func WithMetrics(m *metrics.Manager) Option {
	return func(b *base) { b.metrics = m }
}

// base holds what every service shares: the store, metrics and a clock.
type base struct {
	store   repository.Store
	metrics *metrics.Manager
	now     func() time.Time
}

func newBase(store repository.Store, opts ...Option) base {
	if store == nil {
		store = repository.Unconfigured{}
	}
	b := base{store: store, now: time.Now}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

func (b base) timestamp() time.Time {
	return b.now().UTC()
}

func (b base) linker() *linker {
	return &linker{store: b.store, metrics: b.metrics}
}

func (b base) hydrator() *hydrator {
	return &hydrator{store: b.store, metrics: b.metrics}
}

// getByID decodes the row of table with the given id into out.
// A missing row yields notFound(entity).
func (b base) getByID(ctx context.Context, table, id, entity string, out any) error {
	rows, err := b.store.Select(ctx, table, repository.Query{
		Filters: []repository.Filter{repository.Eq("id", id)},
		Limit:   1,
	})
	if err != nil {
		return readError(err, "load "+table)
	}
	if len(rows) == 0 {
		return notFound(entity)
	}
	if err := repository.Decode(rows[0], out); err != nil {
		return &StoreError{Message: "Unable to load " + table, Err: err}
	}
	return nil
}

// exists reports whether a row with id is present in table.
func (b base) exists(ctx context.Context, table, id string) (bool, error) {
	rows, err := b.store.Select(ctx, table, repository.Query{
		Columns: []string{"id"},
		Filters: []repository.Filter{repository.Eq("id", id)},
		Limit:   1,
	})
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// --- Selection lists ---

const optionsLimit = 200

func (b base) exerciseOptions(ctx context.Context) ([]domain.ExerciseSummary, error) {
	rows, err := b.store.Select(ctx, repository.TableExercises, repository.Query{
		Columns: exerciseSummaryColumns,
		Order:   []repository.Order{{Column: "name"}},
		Limit:   optionsLimit,
	})
	if err != nil {
		return nil, readError(err, "load exercises")
	}
	out, err := repository.DecodeAll[domain.ExerciseSummary](rows)
	if err != nil {
		return nil, &StoreError{Message: "Unable to load exercises", Err: err}
	}
	return out, nil
}

func (b base) workoutOptions(ctx context.Context) ([]domain.WorkoutSummary, error) {
	rows, err := b.store.Select(ctx, repository.TableWorkouts, repository.Query{
		Columns: []string{"id", "name", "description", "rest_interval"},
		Order:   []repository.Order{{Column: "name"}},
		Limit:   optionsLimit,
	})
	if err != nil {
		return nil, readError(err, "load workouts")
	}
	out, err := repository.DecodeAll[domain.WorkoutSummary](rows)
	if err != nil {
		return nil, &StoreError{Message: "Unable to load workouts", Err: err}
	}
	return out, nil
}
