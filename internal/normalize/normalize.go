// Package normalize turns raw request values into trimmed, typed and
// constrained fields. Functions never panic on malformed input; they either
// return a value, nil for "absent", or a classified error.
package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// ErrInvalid marks a present value that does not satisfy its contract.
// Callers turn it into a field-specific message.
var ErrInvalid = errors.New("invalid value")

// RequiredString trims value and rejects it when empty with "<label> is required".
func RequiredString(value any, label string) (string, error) {
	s := scalarString(value)
	if s == "" {
		return "", fmt.Errorf("%s is required", label)
	}
	return s, nil
}

// NullableString trims value; empty becomes nil.
func NullableString(value any) *string {
	s := scalarString(value)
	if s == "" {
		return nil
	}
	return &s
}

// Int parses a whole number from a string or numeric value.
func Int(value any) (int, bool) {
	s := scalarString(value)
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// PositiveInteger returns nil for blank input and ErrInvalid for anything
// that is not a whole number greater than zero.
func PositiveInteger(value any) (*int, error) {
	if scalarString(value) == "" {
		return nil, nil
	}
	n, ok := Int(value)
	if !ok || n <= 0 {
		return nil, ErrInvalid
	}
	return &n, nil
}

// NonNegativeInteger is PositiveInteger with zero allowed.
func NonNegativeInteger(value any) (*int, error) {
	if scalarString(value) == "" {
		return nil, nil
	}
	n, ok := Int(value)
	if !ok || n < 0 {
		return nil, ErrInvalid
	}
	return &n, nil
}

// URL accepts absolute http and https URLs and returns their canonical form.
func URL(value any) (*string, error) {
	s := scalarString(value)
	if s == "" {
		return nil, nil
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return nil, ErrInvalid
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, ErrInvalid
	}
	u.Scheme = scheme
	u.Host = strings.ToLower(u.Host)
	if u.Path == "" && u.RawPath == "" && u.Opaque == "" {
		u.Path = "/"
	}
	canonical := u.String()
	return &canonical, nil
}

// Date parses a date or timestamp and returns it in UTC.
func Date(value any) (*time.Time, error) {
	if t, ok := value.(time.Time); ok {
		t = t.UTC()
		return &t, nil
	}
	s := scalarString(value)
	if s == "" {
		return nil, nil
	}
	t, err := cast.ToTimeE(s)
	if err != nil || t.IsZero() {
		return nil, ErrInvalid
	}
	t = t.UTC()
	return &t, nil
}

// Enum lower-cases value and returns it when allowed, otherwise def.
// Unknown values are coerced rather than rejected.
func Enum[T ~string](value any, allowed []T, def T) T {
	candidate := strings.ToLower(scalarString(value))
	for _, a := range allowed {
		if string(a) == candidate {
			return a
		}
	}
	return def
}

// Bool reads checkbox and JSON style booleans. Anything unrecognized is false.
func Bool(value any) bool {
	if b, ok := value.(bool); ok {
		return b
	}
	s := strings.ToLower(scalarString(value))
	switch s {
	case "on", "yes", "y":
		return true
	}
	b, err := cast.ToBoolE(s)
	return err == nil && b
}

// IDList reads a list of ids from an array, a JSON array string or a
// comma-separated string. Blank and repeated ids are dropped; order is kept.
func IDList(value any) []string {
	var raw []any
	switch t := value.(type) {
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil
		}
		if strings.HasPrefix(s, "[") {
			if err := json.Unmarshal([]byte(s), &raw); err == nil {
				break
			}
			raw = nil
		}
		for _, part := range strings.Split(s, ",") {
			raw = append(raw, part)
		}
	default:
		raw = toList(value)
	}

	seen := make(map[string]struct{}, len(raw))
	ids := make([]string, 0, len(raw))
	for _, item := range raw {
		id := scalarString(item)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// ID validates a route parameter.
func ID(value string, entity string) (string, error) {
	id := strings.TrimSpace(value)
	if id == "" {
		return "", fmt.Errorf("Invalid %s id", entity)
	}
	return id, nil
}
