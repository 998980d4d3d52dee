// Package postgres implements repository.Store on a pgx connection pool.
// SQL is generated with go-sqlbuilder; every write returns the affected rows.
package postgres

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/khabaznak/gym-tracker/internal/repository"
)

// DB is the subset of *pgxpool.Pool the store uses.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type Store struct {
	db DB
}

var _ repository.Store = (*Store)(nil)

func NewStore(db DB) *Store {
	return &Store{db: db}
}

// NewDBPool opens a pool for uri and verifies it with a ping.
func NewDBPool(ctx context.Context, uri string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(uri)
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}
	// Ids travel as strings; literals let the server coerce them to the
	// column type whether ids are bigint or uuid. Uuids read back as [16]byte
	// and are turned into text by toRow.
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return pool, nil
}

func (s *Store) Insert(ctx context.Context, table string, rows ...repository.Row) ([]repository.Row, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	query, args := buildInsert(table, rows)
	return s.query(ctx, "insert", table, query, args)
}

func (s *Store) Select(ctx context.Context, table string, q repository.Query) ([]repository.Row, error) {
	query, args := buildSelect(table, q)
	return s.query(ctx, "select", table, query, args)
}

func (s *Store) Update(ctx context.Context, table string, values repository.Row, filters ...repository.Filter) ([]repository.Row, error) {
	if len(values) == 0 {
		return nil, nil
	}
	query, args := buildUpdate(table, values, filters)
	return s.query(ctx, "update", table, query, args)
}

func (s *Store) Delete(ctx context.Context, table string, filters ...repository.Filter) error {
	if len(filters) == 0 {
		return repository.NewError(repository.KindOther, "delete", table, errors.New("refusing to delete without a filter"))
	}
	query, args := buildDelete(table, filters)
	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		log.WithError(err).WithField("table", table).Debug("postgres delete failed")
		return translate("delete", table, err)
	}
	return nil
}

func (s *Store) query(ctx context.Context, op, table, query string, args []any) ([]repository.Row, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		log.WithError(err).WithField("table", table).Debugf("postgres %s failed", op)
		return nil, translate(op, table, err)
	}
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		log.WithError(err).WithField("table", table).Debugf("postgres %s failed", op)
		return nil, translate(op, table, err)
	}
	out := make([]repository.Row, len(maps))
	for i, m := range maps {
		out[i] = toRow(m)
	}
	return out, nil
}

// toRow converts driver values that services compare as strings.
func toRow(m map[string]any) repository.Row {
	row := make(repository.Row, len(m))
	for k, v := range m {
		if b, ok := v.([16]byte); ok {
			v = uuid.UUID(b).String()
		}
		row[k] = v
	}
	return row
}

// --- SQL generation ---

func buildInsert(table string, rows []repository.Row) (string, []any) {
	cols := columnsOf(rows)

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto(table)
	ib.Cols(cols...)
	for _, row := range rows {
		values := make([]any, len(cols))
		for i, c := range cols {
			v, ok := row[c]
			if !ok {
				values[i] = sqlbuilder.Raw("DEFAULT")
				continue
			}
			values[i] = v
		}
		ib.Values(values...)
	}

	query, args := ib.Build()
	return query + " RETURNING *", args
}

func buildSelect(table string, q repository.Query) (string, []any) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	if len(q.Columns) > 0 {
		sb.Select(q.Columns...)
	} else {
		sb.Select("*")
	}
	sb.From(table)
	if conds := conditions(&sb.Cond, q.Filters); len(conds) > 0 {
		sb.Where(conds...)
	}
	if len(q.Order) > 0 {
		order := make([]string, len(q.Order))
		for i, o := range q.Order {
			// Postgres already sorts NULLs last ascending and first descending.
			if o.Desc {
				order[i] = o.Column + " DESC"
			} else {
				order[i] = o.Column + " ASC"
			}
		}
		sb.OrderBy(order...)
	}
	if q.Limit > 0 {
		sb.Limit(q.Limit)
	}
	return sb.Build()
}

func buildUpdate(table string, values repository.Row, filters []repository.Filter) (string, []any) {
	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update(table)

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	assignments := make([]string, len(keys))
	for i, k := range keys {
		assignments[i] = ub.Assign(k, values[k])
	}
	ub.Set(assignments...)

	if conds := conditions(&ub.Cond, filters); len(conds) > 0 {
		ub.Where(conds...)
	}
	query, args := ub.Build()
	return query + " RETURNING *", args
}

func buildDelete(table string, filters []repository.Filter) (string, []any) {
	db := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	db.DeleteFrom(table)
	db.Where(conditions(&db.Cond, filters)...)
	return db.Build()
}

func conditions(cond *sqlbuilder.Cond, filters []repository.Filter) []string {
	out := make([]string, 0, len(filters))
	for _, f := range filters {
		switch f.Op {
		case repository.OpIn:
			values := repository.FilterValues(f)
			if len(values) == 0 {
				out = append(out, "FALSE")
				continue
			}
			out = append(out, cond.In(f.Column, sqlbuilder.Flatten(values)...))
		default:
			if f.Value == nil {
				out = append(out, cond.IsNull(f.Column))
				continue
			}
			out = append(out, cond.Equal(f.Column, f.Value))
		}
	}
	return out
}

// columnsOf returns the union of the rows' columns in first-seen order,
// with each row's keys visited alphabetically.
func columnsOf(rows []repository.Row) []string {
	seen := map[string]struct{}{}
	var cols []string
	for _, row := range rows {
		keys := make([]string, 0, len(row))
		for k := range row {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			cols = append(cols, k)
		}
	}
	return cols
}

// --- error translation ---

// translate maps SQLSTATE codes onto repository kinds.
func translate(op, table string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.NewError(repository.KindNotFound, op, table, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return repository.NewError(kindForCode(pgErr.Code), op, table, err)
	}
	return repository.NewError(repository.KindOther, op, table, err)
}

func kindForCode(code string) repository.Kind {
	switch code {
	case "42501":
		return repository.KindPermissionDenied
	case "42703", "PGRST204":
		return repository.KindMissingColumn
	case "42P01":
		return repository.KindMissingRelation
	case "23505":
		return repository.KindUniqueViolation
	case "23514":
		return repository.KindCheckViolation
	default:
		return repository.KindOther
	}
}
