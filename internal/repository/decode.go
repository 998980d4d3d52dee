package repository

import (
	"reflect"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Decode copies a row into out (a pointer to a struct tagged with
// `mapstructure`). Numeric strings, RFC 3339 timestamps, numeric ids and
// binary uuids are converted so every adapter can share the same domain types.
func Decode(row Row, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			timeHook,
			uuidHook,
			mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
		),
	})
	if err != nil {
		return errors.Wrap(err, "building row decoder")
	}
	return errors.Wrap(dec.Decode(map[string]any(row)), "decoding row")
}

// DecodeAll decodes rows into a slice of T.
func DecodeAll[T any](rows []Row) ([]T, error) {
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		var v T
		if err := Decode(row, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

var timeType = reflect.TypeOf(time.Time{})

// timeHook passes time values through untouched, including *time.Time.
func timeHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != timeType {
		return data, nil
	}
	if t, ok := data.(*time.Time); ok && t != nil {
		return *t, nil
	}
	return data, nil
}

var uuidBytesType = reflect.TypeOf([16]byte{})

// uuidHook renders a binary uuid ([16]byte, as pgx returns uuid columns)
// in its canonical text form when the target is a string.
func uuidHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from != uuidBytesType {
		return data, nil
	}
	if to.Kind() == reflect.Ptr {
		to = to.Elem()
	}
	if to.Kind() != reflect.String {
		return data, nil
	}
	return uuid.UUID(data.([16]byte)).String(), nil
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }
