// Package memory is an in-process repository.Store used for local runs and
// tests. It mimics the constraint and error behaviour of the SQL backend:
// unique keys, check constraints, known-column lists and write denial can
// be configured per table, and single failures can be injected.
package memory

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cast"

	"github.com/khabaznak/gym-tracker/internal/repository"
)

type check struct {
	name string
	fn   func(repository.Row) bool
}

type failure struct {
	op    string
	table string
	kind  repository.Kind
}

// Store keeps every table as an ordered slice of rows.
type Store struct {
	mu       sync.Mutex
	tables   map[string][]repository.Row
	seq      map[string]int
	unique   map[string][][]string
	columns  map[string]map[string]struct{}
	checks   map[string][]check
	denied   map[string]bool
	failures []failure
	calls    map[string]int
}

var _ repository.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		tables:  map[string][]repository.Row{},
		seq:     map[string]int{},
		unique:  map[string][][]string{},
		columns: map[string]map[string]struct{}{},
		checks:  map[string][]check{},
		denied:  map[string]bool{},
		calls:   map[string]int{},
	}
}

// --- Configuration ---

// Unique adds a unique constraint over cols.
func (s *Store) Unique(table string, cols ...string) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unique[table] = append(s.unique[table], cols)
	return s
}

// Columns restricts table to the given columns ("id" is always allowed).
// Writing any other column fails with KindMissingColumn.
func (s *Store) Columns(table string, cols ...string) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := map[string]struct{}{"id": {}}
	for _, c := range cols {
		set[c] = struct{}{}
	}
	s.columns[table] = set
	return s
}

// Check adds a row-level check constraint.
func (s *Store) Check(table, name string, fn func(repository.Row) bool) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks[table] = append(s.checks[table], check{name: name, fn: fn})
	return s
}

// DenyWrites makes inserts, updates and deletes on table fail with
// KindPermissionDenied.
func (s *Store) DenyWrites(table string) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.denied[table] = true
	return s
}

// FailNext makes the next op ("insert", "select", "update", "delete") on
// table fail with kind. Queued failures are consumed in order.
func (s *Store) FailNext(op, table string, kind repository.Kind) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, failure{op: op, table: table, kind: kind})
	return s
}

// --- Inspection ---

// Rows returns a copy of every row in table, in insertion order.
func (s *Store) Rows(table string) []repository.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]repository.Row, 0, len(s.tables[table]))
	for _, r := range s.tables[table] {
		out = append(out, copyRow(r, nil))
	}
	return out
}

// Calls reports how many times op ran against table, failed calls included.
func (s *Store) Calls(op, table string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op+":"+table]
}

// --- repository.Store ---

func (s *Store) Insert(ctx context.Context, table string, rows ...repository.Row) ([]repository.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, "insert", table, true); err != nil {
		return nil, err
	}

	staged := make([]repository.Row, 0, len(rows))
	nextSeq := s.seq[table]
	for _, r := range rows {
		row := copyRow(r, nil)
		if id, ok := row["id"]; !ok || id == nil || id == "" {
			nextSeq++
			row["id"] = strconv.Itoa(nextSeq)
		}
		if err := s.validate("insert", table, row); err != nil {
			return nil, err
		}
		for _, cols := range s.unique[table] {
			if collides(row, s.tables[table], cols) || collides(row, staged, cols) {
				return nil, s.fail("insert", table, repository.KindUniqueViolation,
					fmt.Sprintf("duplicate key value violates unique constraint (%s)", strings.Join(cols, ", ")))
			}
		}
		staged = append(staged, row)
	}

	s.seq[table] = nextSeq
	s.tables[table] = append(s.tables[table], staged...)
	out := make([]repository.Row, len(staged))
	for i, r := range staged {
		out[i] = copyRow(r, nil)
	}
	return out, nil
}

func (s *Store) Select(ctx context.Context, table string, q repository.Query) ([]repository.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, "select", table, false); err != nil {
		return nil, err
	}

	matched := make([]repository.Row, 0)
	for _, r := range s.tables[table] {
		if matches(r, q.Filters) {
			matched = append(matched, r)
		}
	}

	if len(q.Order) > 0 {
		sort.SliceStable(matched, func(i, j int) bool {
			for _, o := range q.Order {
				c := compare(matched[i][o.Column], matched[j][o.Column])
				if c == 0 {
					continue
				}
				if o.Desc {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}

	out := make([]repository.Row, len(matched))
	for i, r := range matched {
		out[i] = copyRow(r, q.Columns)
	}
	return out, nil
}

func (s *Store) Update(ctx context.Context, table string, values repository.Row, filters ...repository.Filter) ([]repository.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, "update", table, true); err != nil {
		return nil, err
	}

	patch := copyRow(values, nil)
	if err := s.validateColumns("update", table, patch); err != nil {
		return nil, err
	}

	var idx []int
	for i, r := range s.tables[table] {
		if matches(r, filters) {
			idx = append(idx, i)
		}
	}

	updated := make([]repository.Row, 0, len(idx))
	for _, i := range idx {
		row := copyRow(s.tables[table][i], nil)
		for k, v := range patch {
			row[k] = v
		}
		if err := s.validate("update", table, row); err != nil {
			return nil, err
		}
		updated = append(updated, row)
	}

	out := make([]repository.Row, len(updated))
	for n, i := range idx {
		s.tables[table][i] = updated[n]
		out[n] = copyRow(updated[n], nil)
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, table string, filters ...repository.Filter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, "delete", table, true); err != nil {
		return err
	}

	kept := s.tables[table][:0]
	for _, r := range s.tables[table] {
		if !matches(r, filters) {
			kept = append(kept, r)
		}
	}
	s.tables[table] = kept
	return nil
}

// --- internals ---

// begin must be called with s.mu held.
func (s *Store) begin(ctx context.Context, op, table string, write bool) error {
	s.calls[op+":"+table]++
	if err := ctx.Err(); err != nil {
		return s.fail(op, table, repository.KindOther, err.Error())
	}
	for i, f := range s.failures {
		if f.op == op && f.table == table {
			s.failures = append(s.failures[:i], s.failures[i+1:]...)
			return s.fail(op, table, f.kind, "injected failure")
		}
	}
	if write && s.denied[table] {
		return s.fail(op, table, repository.KindPermissionDenied,
			fmt.Sprintf("new row violates row-level security policy for table %q", table))
	}
	return nil
}

func (s *Store) validate(op, table string, row repository.Row) error {
	if err := s.validateColumns(op, table, row); err != nil {
		return err
	}
	for _, c := range s.checks[table] {
		if !c.fn(row) {
			return s.fail(op, table, repository.KindCheckViolation,
				fmt.Sprintf("new row violates check constraint %q", c.name))
		}
	}
	return nil
}

func (s *Store) validateColumns(op, table string, row repository.Row) error {
	known, ok := s.columns[table]
	if !ok {
		return nil
	}
	for col := range row {
		if _, ok := known[col]; !ok {
			return s.fail(op, table, repository.KindMissingColumn,
				fmt.Sprintf("column %q of relation %q does not exist", col, table))
		}
	}
	return nil
}

func (s *Store) fail(op, table string, kind repository.Kind, msg string) error {
	return repository.NewError(kind, op, table, errors.New(msg))
}

func matches(row repository.Row, filters []repository.Filter) bool {
	for _, f := range filters {
		v := row[f.Column]
		switch f.Op {
		case repository.OpIn:
			found := false
			for _, want := range repository.FilterValues(f) {
				if v != nil && fmt.Sprint(v) == want {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		default:
			want := plain(f.Value)
			if v == nil || want == nil {
				if v != want {
					return false
				}
				continue
			}
			if fmt.Sprint(v) != fmt.Sprint(want) {
				return false
			}
		}
	}
	return true
}

func collides(row repository.Row, others []repository.Row, cols []string) bool {
	for _, other := range others {
		if sameKey(row, other, cols) {
			return true
		}
	}
	return false
}

func sameKey(a, b repository.Row, cols []string) bool {
	for _, c := range cols {
		if a[c] == nil || b[c] == nil {
			// NULLs never collide, as in SQL.
			return false
		}
		if fmt.Sprint(a[c]) != fmt.Sprint(b[c]) {
			return false
		}
	}
	return true
}

// compare orders values with NULL as the largest value.
func compare(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}

	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Compare(tb)
		}
	}
	fa, errA := cast.ToFloat64E(a)
	fb, errB := cast.ToFloat64E(b)
	if errA == nil && errB == nil {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

// copyRow clones row, dereferencing pointers and flattening named string
// types. When cols is non-empty only those columns are kept.
func copyRow(row repository.Row, cols []string) repository.Row {
	out := make(repository.Row, len(row))
	if len(cols) > 0 {
		for _, c := range cols {
			out[c] = plain(row[c])
		}
		return out
	}
	for k, v := range row {
		out[k] = plain(v)
	}
	return out
}

func plain(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
		v = rv.Interface()
	}
	if rv.Kind() == reflect.String && rv.Type() != reflect.TypeOf("") {
		return rv.String()
	}
	return v
}
