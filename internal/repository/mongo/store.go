// internal/repository/mongo/store.go
package mongo

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/khabaznak/gym-tracker/internal/repository"
)

// Store implements repository.Store with one collection per table.
// The row "id" column maps onto the document _id (an ObjectID rendered as hex).
type Store struct {
	db *mongo.Database
}

var _ repository.Store = (*Store)(nil)

// NewStore creates a new Mongo-backed store.
func NewStore(db *mongo.Database) *Store {
	return &Store{db: db}
}

func (s *Store) Insert(ctx context.Context, table string, rows ...repository.Row) ([]repository.Row, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	docs := make([]any, len(rows))
	for i, row := range rows {
		docs[i] = toDocument(row)
	}

	result, err := s.db.Collection(table).InsertMany(ctx, docs, options.InsertMany().SetOrdered(true))
	if err != nil {
		return nil, translate("insert", table, err)
	}

	found, err := s.find(ctx, "insert", table, bson.M{"_id": bson.M{"$in": result.InsertedIDs}}, nil)
	if err != nil {
		return nil, err
	}

	// Callers pair returned rows with their input by index.
	byID := make(map[string]repository.Row, len(found))
	for _, row := range found {
		byID[fmt.Sprint(row["id"])] = row
	}
	out := make([]repository.Row, 0, len(result.InsertedIDs))
	for _, id := range result.InsertedIDs {
		if row, ok := byID[fmt.Sprint(fromBSON(id))]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}

func (s *Store) Select(ctx context.Context, table string, q repository.Query) ([]repository.Row, error) {
	opts := options.Find()
	if len(q.Order) > 0 {
		sort := bson.D{}
		for _, o := range q.Order {
			dir := 1
			if o.Desc {
				dir = -1
			}
			sort = append(sort, bson.E{Key: fieldName(o.Column), Value: dir})
		}
		opts.SetSort(sort)
	}
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}
	if len(q.Columns) > 0 {
		projection := bson.D{}
		for _, c := range q.Columns {
			projection = append(projection, bson.E{Key: fieldName(c), Value: 1})
		}
		opts.SetProjection(projection)
	}
	return s.find(ctx, "select", table, toFilter(q.Filters), opts)
}

func (s *Store) Update(ctx context.Context, table string, values repository.Row, filters ...repository.Filter) ([]repository.Row, error) {
	if len(values) == 0 {
		return nil, nil
	}
	filter := toFilter(filters)
	set := toDocument(values)
	delete(set, "_id")

	result, err := s.db.Collection(table).UpdateMany(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return nil, translate("update", table, err)
	}
	if result.MatchedCount == 0 {
		return []repository.Row{}, nil
	}
	return s.find(ctx, "update", table, filter, nil)
}

func (s *Store) Delete(ctx context.Context, table string, filters ...repository.Filter) error {
	if len(filters) == 0 {
		return repository.NewError(repository.KindOther, "delete", table, errors.New("refusing to delete without a filter"))
	}
	if _, err := s.db.Collection(table).DeleteMany(ctx, toFilter(filters)); err != nil {
		return translate("delete", table, err)
	}
	return nil
}

func (s *Store) find(ctx context.Context, op, table string, filter bson.M, opts *options.FindOptions) ([]repository.Row, error) {
	if opts == nil {
		opts = options.Find()
	}
	cursor, err := s.db.Collection(table).Find(ctx, filter, opts)
	if err != nil {
		return nil, translate(op, table, err)
	}
	defer cursor.Close(ctx)

	var docs []bson.M
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, translate(op, table, err)
	}

	rows := make([]repository.Row, len(docs))
	for i, doc := range docs {
		rows[i] = fromDocument(doc)
	}
	return rows, nil
}

// --- document mapping ---

func fieldName(column string) string {
	if column == "id" {
		return "_id"
	}
	return column
}

func toDocument(row repository.Row) bson.M {
	doc := bson.M{}
	for k, v := range row {
		if k == "id" {
			if v == nil || v == "" {
				continue
			}
			doc["_id"] = objectID(v)
			continue
		}
		doc[k] = v
	}
	return doc
}

func fromDocument(doc bson.M) repository.Row {
	row := make(repository.Row, len(doc))
	for k, v := range doc {
		if k == "_id" {
			k = "id"
		}
		row[k] = fromBSON(v)
	}
	return row
}

func fromBSON(v any) any {
	switch t := v.(type) {
	case primitive.ObjectID:
		return t.Hex()
	case primitive.DateTime:
		return t.Time().UTC()
	case primitive.A:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = fromBSON(item)
		}
		return out
	default:
		return v
	}
}

// objectID converts hex ids to ObjectIDs so lookups hit the _id index.
// Ids that are not ObjectID hex are stored as given.
func objectID(v any) any {
	s, ok := v.(string)
	if !ok {
		s = fmt.Sprint(v)
	}
	if oid, err := primitive.ObjectIDFromHex(s); err == nil {
		return oid
	}
	return s
}

func toFilter(filters []repository.Filter) bson.M {
	filter := bson.M{}
	for _, f := range filters {
		field := fieldName(f.Column)
		switch f.Op {
		case repository.OpIn:
			values := repository.FilterValues(f)
			in := make([]any, len(values))
			for i, v := range values {
				if field == "_id" {
					in[i] = objectID(v)
				} else {
					in[i] = v
				}
			}
			filter[field] = bson.M{"$in": in}
		default:
			if field == "_id" && f.Value != nil {
				filter[field] = objectID(f.Value)
			} else {
				filter[field] = f.Value
			}
		}
	}
	return filter
}

// --- error translation ---

const (
	codeUnauthorized              = 13
	codeNamespaceNotFound         = 26
	codeDocumentValidationFailure = 121
)

func translate(op, table string, err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return repository.NewError(repository.KindNotFound, op, table, err)
	}
	if mongo.IsDuplicateKeyError(err) {
		return repository.NewError(repository.KindUniqueViolation, op, table, err)
	}
	var serverErr mongo.ServerError
	if errors.As(err, &serverErr) {
		switch {
		case serverErr.HasErrorCode(codeUnauthorized):
			return repository.NewError(repository.KindPermissionDenied, op, table, err)
		case serverErr.HasErrorCode(codeNamespaceNotFound):
			return repository.NewError(repository.KindMissingRelation, op, table, err)
		case serverErr.HasErrorCode(codeDocumentValidationFailure):
			return repository.NewError(repository.KindCheckViolation, op, table, err)
		}
	}
	return repository.NewError(repository.KindOther, op, table, err)
}
