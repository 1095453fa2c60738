package event

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RawRecord is a source document as collected. It is never mutated once stored.
type RawRecord struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	FetchedAt time.Time `json:"fetched_at"`
	Hash      string    `json:"raw_hash"`
	Payload   Payload   `json:"payload"`
}

// Validate applies the structural checks used at import time.
func (r RawRecord) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidRecord)
	}
	if strings.TrimSpace(r.Source) == "" {
		return fmt.Errorf("%w: source is required", ErrInvalidRecord)
	}
	if r.FetchedAt.IsZero() {
		return fmt.Errorf("%w: fetched_at is required", ErrInvalidRecord)
	}
	if strings.TrimSpace(r.Hash) == "" {
		return fmt.Errorf("%w: raw_hash is required", ErrInvalidRecord)
	}
	if r.Payload == nil {
		return fmt.Errorf("%w: payload must be an object", ErrInvalidRecord)
	}
	_, hasTitle := r.Payload["title"]
	_, hasID := r.Payload["id"]
	if !hasTitle && !hasID {
		return fmt.Errorf("%w: payload needs a title or an id", ErrInvalidRecord)
	}
	return nil
}

// ContentHash returns the sha256 of the payload's canonical JSON encoding.
// encoding/json sorts map keys, so equal payloads hash equally.
func ContentHash(p Payload) (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// Payload is the loosely structured source document.
type Payload map[string]any

func (p Payload) Value(key string) (any, bool) {
	if p == nil {
		return nil, false
	}
	v, ok := p[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// Object returns the nested object under key, or nil when absent or not an object.
func (p Payload) Object(key string) Payload {
	v, ok := p.Value(key)
	if !ok {
		return nil
	}
	switch obj := v.(type) {
	case map[string]any:
		return Payload(obj)
	case Payload:
		return obj
	case map[string]string:
		out := make(Payload, len(obj))
		for k, s := range obj {
			out[k] = s
		}
		return out
	default:
		return nil
	}
}

// Text returns a scalar field rendered as a string. Absent fields yield "".
// Objects and lists are rejected with ErrFieldType.
func (p Payload) Text(key string) (string, error) {
	v, ok := p.Value(key)
	if !ok {
		return "", nil
	}
	s, err := scalarText(v)
	if err != nil {
		return "", fmt.Errorf("%w: field %q: %v", ErrFieldType, key, err)
	}
	return s, nil
}

// TextOr is Text that folds type errors into the empty string.
func (p Payload) TextOr(key string) string {
	s, err := p.Text(key)
	if err != nil {
		return ""
	}
	return s
}

// Strings returns a list field as strings, skipping non-scalar entries.
func (p Payload) Strings(key string) []string {
	v, ok := p.Value(key)
	if !ok {
		return nil
	}
	var items []any
	switch list := v.(type) {
	case []any:
		items = list
	case []string:
		return append([]string(nil), list...)
	default:
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, err := scalarText(item)
		if err != nil || s == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}

func scalarText(v any) (string, error) {
	switch value := v.(type) {
	case nil:
		return "", nil
	case string:
		return value, nil
	case json.Number:
		return value.String(), nil
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(value), 'f', -1, 32), nil
	case int:
		return strconv.Itoa(value), nil
	case int64:
		return strconv.FormatInt(value, 10), nil
	case int32:
		return strconv.FormatInt(int64(value), 10), nil
	case uint64:
		return strconv.FormatUint(value, 10), nil
	case bool:
		return strconv.FormatBool(value), nil
	case time.Time:
		return value.Format(time.RFC3339), nil
	default:
		return "", fmt.Errorf("unsupported type %T", v)
	}
}

// Number converts a JSON/YAML decoded scalar to float64.
func Number(v any) (float64, bool) {
	switch value := v.(type) {
	case float64:
		return value, true
	case float32:
		return float64(value), true
	case int:
		return float64(value), true
	case int64:
		return float64(value), true
	case int32:
		return float64(value), true
	case uint64:
		return float64(value), true
	case json.Number:
		f, err := value.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
