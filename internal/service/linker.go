package service

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/khabaznak/gym-tracker/internal/metrics"
	"github.com/khabaznak/gym-tracker/internal/repository"
)

const (
	columnOrderIndex = "order_index"
	columnPosition   = "position"
)

// linker writes join rows (plan_workouts, workout_exercises) for one parent.
// The store has no multi-table transactions and schemas may lag behind the
// code, so a failed insert is retried once with a strategy chosen by the
// failure kind:
//
//	MissingColumn    retry without order_index
//	UniqueViolation  retry with order_index dropped and positions renumbered
//	CheckViolation   delete the parent's rows, reinsert renumbered from 1
//
// Any other failure is returned unchanged.
type linker struct {
	store   repository.Store
	metrics *metrics.Manager
}

func (l *linker) link(ctx context.Context, table, parentColumn, parentID string, rows []repository.Row) error {
	if len(rows) == 0 {
		return nil
	}

	_, err := l.store.Insert(ctx, table, rows...)
	if err == nil {
		return nil
	}

	kind := repository.KindOf(err)
	logger := log.WithFields(log.Fields{"table": table, "parent_id": parentID, "kind": kind.String()})

	switch kind {
	case repository.KindMissingColumn:
		logger.Warn("join insert failed on ordering column, retrying without it")
		l.metrics.LinkFallback(table, "without_order_index")
		_, err = l.store.Insert(ctx, table, withoutColumn(rows, columnOrderIndex)...)

	case repository.KindUniqueViolation:
		logger.Warn("join insert hit a unique constraint, retrying with bare positions")
		l.metrics.LinkFallback(table, "bare_position")
		_, err = l.store.Insert(ctx, table, renumbered(withoutColumn(rows, columnOrderIndex))...)

	case repository.KindCheckViolation:
		logger.Warn("join insert failed a check constraint, replacing rows renumbered from 1")
		l.metrics.LinkFallback(table, "renumbered")
		if delErr := l.store.Delete(ctx, table, repository.Eq(parentColumn, parentID)); delErr != nil {
			return delErr
		}
		_, err = l.store.Insert(ctx, table, renumbered(withoutColumn(rows, columnOrderIndex))...)
	}
	return err
}

// replace deletes every join row of the parent, then links rows.
func (l *linker) replace(ctx context.Context, table, parentColumn, parentID string, rows []repository.Row) error {
	if err := l.store.Delete(ctx, table, repository.Eq(parentColumn, parentID)); err != nil {
		return err
	}
	return l.link(ctx, table, parentColumn, parentID, rows)
}

func withoutColumn(rows []repository.Row, column string) []repository.Row {
	out := make([]repository.Row, len(rows))
	for i, row := range rows {
		r := make(repository.Row, len(row))
		for k, v := range row {
			if k != column {
				r[k] = v
			}
		}
		out[i] = r
	}
	return out
}

// renumbered rewrites position as 1..N in slice order. Rows are copied.
func renumbered(rows []repository.Row) []repository.Row {
	out := make([]repository.Row, len(rows))
	for i, row := range rows {
		r := make(repository.Row, len(row)+1)
		for k, v := range row {
			r[k] = v
		}
		r[columnPosition] = i + 1
		out[i] = r
	}
	return out
}
