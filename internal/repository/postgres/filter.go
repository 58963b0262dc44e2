package postgres

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	squirrel "github.com/Masterminds/squirrel"

	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/domain"
)

// columnFor maps managed document fields onto their indexed columns.
var columnFor = map[string]string{
	"id":        "id",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

// translate renders a domain filter as a SQL predicate over the data column.
// A nil filter yields a nil predicate.
func translate(f domain.Filter) (squirrel.Sqlizer, error) {
	switch v := f.(type) {
	case nil:
		return nil, nil
	case domain.Eq:
		return eqPredicate(v.Field, v.Value)
	case domain.In:
		if len(v.Values) == 0 {
			return squirrel.Expr("FALSE"), nil
		}
		if v.Field == "id" {
			return squirrel.Eq{"id": v.Values}, nil
		}
		or := make(squirrel.Or, 0, len(v.Values))
		for _, value := range v.Values {
			p, err := eqPredicate(v.Field, value)
			if err != nil {
				return nil, err
			}
			or = append(or, p)
		}
		return or, nil
	case domain.Regex:
		op := "~"
		if v.CaseInsensitive {
			op = "~*"
		}
		return squirrel.Expr(fmt.Sprintf("data #>> ?::text[] %s ?", op), domain.FieldPath(v.Field), v.Pattern), nil
	case domain.Compare:
		return comparePredicate(v)
	case domain.And:
		and := make(squirrel.And, 0, len(v))
		for _, member := range v {
			p, err := translate(member)
			if err != nil {
				return nil, err
			}
			if p != nil {
				and = append(and, p)
			}
		}
		return and, nil
	case domain.Or:
		if len(v) == 0 {
			return squirrel.Expr("FALSE"), nil
		}
		or := make(squirrel.Or, 0, len(v))
		for _, member := range v {
			p, err := translate(member)
			if err != nil {
				return nil, err
			}
			if p == nil {
				p = squirrel.Expr("TRUE")
			}
			or = append(or, p)
		}
		return or, nil
	default:
		return nil, fmt.Errorf("unsupported filter %T", f)
	}
}

func eqPredicate(field string, value any) (squirrel.Sqlizer, error) {
	if field == "id" {
		return squirrel.Eq{"id": value}, nil
	}
	if value == nil {
		return squirrel.Expr("COALESCE(data #> ?::text[], 'null'::jsonb) = 'null'::jsonb", domain.FieldPath(field)), nil
	}
	raw, err := json.Marshal(nest(domain.FieldPath(field), value))
	if err != nil {
		return nil, fmt.Errorf("encode filter value for %s: %w", field, err)
	}
	return squirrel.Expr("data @> ?::jsonb", string(raw)), nil
}

// nest wraps value in one object per path segment: [a b] -> {"a":{"b":value}}.
func nest(path []string, value any) any {
	out := value
	for i := len(path) - 1; i >= 0; i-- {
		out = map[string]any{path[i]: out}
	}
	return out
}

func comparePredicate(c domain.Compare) (squirrel.Sqlizer, error) {
	op := string(c.Op)
	if col, ok := columnFor[c.Field]; ok && c.Field != "id" {
		return squirrel.Expr(fmt.Sprintf("%s %s ?", col, op), c.Value), nil
	}
	path := domain.FieldPath(c.Field)
	switch value := c.Value.(type) {
	case time.Time:
		return squirrel.Expr(fmt.Sprintf("(data #>> ?::text[])::timestamptz %s ?", op), path, value), nil
	case string:
		return squirrel.Expr(fmt.Sprintf("data #>> ?::text[] %s ?", op), path, value), nil
	}
	switch reflect.ValueOf(c.Value).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return squirrel.Expr(fmt.Sprintf("(data #>> ?::text[])::numeric %s ?", op), path, c.Value), nil
	}
	return nil, fmt.Errorf("unsupported comparison value %T for %s", c.Value, c.Field)
}

// pathLiteral renders a validated field path as a text[] literal.
func pathLiteral(field string) string {
	return "'{" + strings.Join(domain.FieldPath(field), ",") + "}'"
}

func orderBy(sorts []domain.SortField) []string {
	out := make([]string, 0, len(sorts)+1)
	hasID := false
	for _, s := range sorts {
		dir := "ASC"
		if s.Direction == domain.SortDesc {
			dir = "DESC"
		}
		expr, ok := columnFor[s.Field]
		if !ok {
			expr = "data #> " + pathLiteral(s.Field)
		}
		if s.Field == "id" {
			hasID = true
		}
		out = append(out, expr+" "+dir)
	}
	if !hasID {
		out = append(out, "id ASC")
	}
	return out
}

func projection(fields []string) string {
	if len(fields) == 0 {
		return "data"
	}
	seen := map[string]bool{"id": true}
	parts := []string{"'id', data->'id'"}
	for _, f := range fields {
		top := domain.FieldPath(f)[0]
		if seen[top] {
			continue
		}
		seen[top] = true
		parts = append(parts, fmt.Sprintf("'%s', data->'%s'", top, top))
	}
	return "jsonb_strip_nulls(jsonb_build_object(" + strings.Join(parts, ", ") + "))"
}
