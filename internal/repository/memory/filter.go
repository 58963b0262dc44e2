package memory

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/domain"
)

// lookup resolves a dotted path inside a decoded document.
func lookup(doc map[string]any, field string) (any, bool) {
	var cur any = doc
	for _, seg := range domain.FieldPath(field) {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// normalize converts a Go value into its JSON-decoded form so it compares
// equal to values read back from stored documents.
func normalize(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func match(doc map[string]any, f domain.Filter) (bool, error) {
	switch v := f.(type) {
	case nil:
		return true, nil
	case domain.Eq:
		want, err := normalize(v.Value)
		if err != nil {
			return false, fmt.Errorf("normalize %s: %w", v.Field, err)
		}
		got, ok := lookup(doc, v.Field)
		if !ok {
			return want == nil, nil
		}
		return reflect.DeepEqual(got, want), nil
	case domain.In:
		for _, candidate := range v.Values {
			ok, err := match(doc, domain.Eq{Field: v.Field, Value: candidate})
			if err != nil || ok {
				return ok, err
			}
		}
		return false, nil
	case domain.Regex:
		pattern := v.Pattern
		if v.CaseInsensitive {
			pattern = "(?i)" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false, fmt.Errorf("compile pattern for %s: %w", v.Field, err)
		}
		got, ok := lookup(doc, v.Field)
		if !ok {
			return false, nil
		}
		s, ok := got.(string)
		if !ok {
			return false, nil
		}
		return re.MatchString(s), nil
	case domain.Compare:
		want, err := normalize(v.Value)
		if err != nil {
			return false, fmt.Errorf("normalize %s: %w", v.Field, err)
		}
		got, ok := lookup(doc, v.Field)
		if !ok {
			return false, nil
		}
		c, ordered := compareValues(got, want)
		if !ordered {
			return false, nil
		}
		switch v.Op {
		case domain.OpGt:
			return c > 0, nil
		case domain.OpGte:
			return c >= 0, nil
		case domain.OpLt:
			return c < 0, nil
		case domain.OpLte:
			return c <= 0, nil
		}
		return false, fmt.Errorf("unsupported comparison %q", v.Op)
	case domain.And:
		for _, member := range v {
			ok, err := match(doc, member)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case domain.Or:
		for _, member := range v {
			ok, err := match(doc, member)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, fmt.Errorf("unsupported filter %T", f)
	}
}

// compareValues orders two decoded JSON scalars of the same kind. Strings that
// both hold RFC 3339 timestamps are ordered by instant.
func compareValues(a, b any) (int, bool) {
	switch av := a.(type) {
	case float64:
		bv, ok := b.(float64)
		if !ok {
			return 0, false
		}
		switch {
		case av < bv:
			return -1, true
		case av > bv:
			return 1, true
		}
		return 0, true
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		if at, bt, ok := parseTimes(av, bv); ok {
			return at.Compare(bt), true
		}
		return strings.Compare(av, bv), true
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case av == bv:
			return 0, true
		case !av:
			return -1, true
		}
		return 1, true
	}
	return 0, false
}

func parseTimes(a, b string) (time.Time, time.Time, bool) {
	at, err := time.Parse(time.RFC3339Nano, a)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	bt, err := time.Parse(time.RFC3339Nano, b)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	return at, bt, true
}
