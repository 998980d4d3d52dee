package normalize

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/spf13/cast"
)

// Payload is a raw request body, decoded either from JSON or from a
// url-encoded form. Values are left untyped; the normalizers classify them.
type Payload map[string]any

// FromForm flattens url-encoded form values into a Payload. Keys ending in
// "[]" are always treated as lists, other keys collapse to a single string
// when only one value was submitted.
func FromForm(values url.Values) Payload {
	p := make(Payload, len(values))
	for key, vals := range values {
		list := strings.HasSuffix(key, "[]")
		key = strings.TrimSuffix(key, "[]")
		if !list && len(vals) == 1 {
			p[key] = vals[0]
			continue
		}
		items := make([]any, 0, len(vals))
		for _, v := range vals {
			items = append(items, v)
		}
		p[key] = items
	}
	return p
}

// FromJSON decodes a JSON object body into a Payload.
func FromJSON(body []byte) (Payload, error) {
	p := Payload{}
	if len(strings.TrimSpace(string(body))) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, err
	}
	return p, nil
}

// Get returns the raw value stored under key, or nil.
func (p Payload) Get(key string) any {
	if p == nil {
		return nil
	}
	return p[key]
}

// String returns the value under key as a trimmed string. Non-scalar values
// yield "".
func (p Payload) String(key string) string {
	return scalarString(p.Get(key))
}

// List returns the value under key as a slice. A single scalar becomes a
// one-element list; a missing key becomes nil.
func (p Payload) List(key string) []any {
	return toList(p.Get(key))
}

// Object returns the nested object under key, or nil.
func (p Payload) Object(key string) Payload {
	return toPayload(p.Get(key))
}

// Objects returns the nested objects under key. Entries that are not objects
// are skipped.
func (p Payload) Objects(key string) []Payload {
	items := toList(p.Get(key))
	out := make([]Payload, 0, len(items))
	for _, item := range items {
		if obj := toPayload(item); obj != nil {
			out = append(out, obj)
		}
	}
	return out
}

func toList(v any) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		return t
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	case []Payload:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	default:
		return []any{t}
	}
}

func toPayload(v any) Payload {
	switch t := v.(type) {
	case Payload:
		return t
	case map[string]any:
		return Payload(t)
	default:
		return nil
	}
}

// scalarString renders strings and numbers; anything else is treated as absent.
func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case []any, map[string]any, Payload:
		return ""
	default:
		s, err := cast.ToStringE(t)
		if err != nil {
			return ""
		}
		return strings.TrimSpace(s)
	}
}
