package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// Filter is a structured predicate over document fields. Field names are
// JSON property names; nested properties are addressed with dots ("address.city").
type Filter interface {
	isFilter()
}

// Eq matches documents whose field equals Value.
type Eq struct {
	Field string
	Value any
}

// In matches documents whose field equals any of Values.
type In struct {
	Field  string
	Values []any
}

// Regex matches documents whose string field matches Pattern.
type Regex struct {
	Field           string
	Pattern         string
	CaseInsensitive bool
}

// CompareOp enumerates ordered comparisons.
type CompareOp string

const (
	OpGt  CompareOp = ">"
	OpGte CompareOp = ">="
	OpLt  CompareOp = "<"
	OpLte CompareOp = "<="
)

// Compare matches documents whose field compares to Value under Op.
type Compare struct {
	Field string
	Op    CompareOp
	Value any
}

// And matches documents satisfying every member.
type And []Filter

// Or matches documents satisfying at least one member.
type Or []Filter

func (Eq) isFilter()      {}
func (In) isFilter()      {}
func (Regex) isFilter()   {}
func (Compare) isFilter() {}
func (And) isFilter()     {}
func (Or) isFilter()      {}

// Contains builds a case-insensitive substring match for term.
func Contains(field, term string) Regex {
	return Regex{Field: field, Pattern: regexp.QuoteMeta(term), CaseInsensitive: true}
}

// SearchAny maps a free-text term to an Or of substring matches over fields.
// It returns nil for a blank term.
func SearchAny(term string, fields ...string) Filter {
	term = strings.TrimSpace(term)
	if term == "" || len(fields) == 0 {
		return nil
	}
	or := make(Or, 0, len(fields))
	for _, f := range fields {
		or = append(or, Contains(f, term))
	}
	return or
}

// AllOf combines filters with And, dropping nil members and unwrapping single-member groups.
func AllOf(filters ...Filter) Filter {
	out := make(And, 0, len(filters))
	for _, f := range filters {
		if f == nil {
			continue
		}
		out = append(out, f)
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	default:
		return out
	}
}

var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// ValidateField reports whether name is a safe field path.
func ValidateField(name string) error {
	if !fieldPattern.MatchString(name) {
		return ValidationError("invalid field name %q", name)
	}
	return nil
}

// FieldPath splits a dotted field name into its segments.
func FieldPath(name string) []string {
	return strings.Split(name, ".")
}

// ValidateFilter walks f and checks every field name and operator.
func ValidateFilter(f Filter) error {
	switch v := f.(type) {
	case nil:
		return nil
	case Eq:
		return ValidateField(v.Field)
	case In:
		return ValidateField(v.Field)
	case Regex:
		if err := ValidateField(v.Field); err != nil {
			return err
		}
		if _, err := regexp.Compile(v.Pattern); err != nil {
			return ValidationError("invalid pattern for %s: %v", v.Field, err)
		}
		return nil
	case Compare:
		if err := ValidateField(v.Field); err != nil {
			return err
		}
		switch v.Op {
		case OpGt, OpGte, OpLt, OpLte:
			return nil
		default:
			return ValidationError("unsupported comparison %q", v.Op)
		}
	case And:
		for _, m := range v {
			if err := ValidateFilter(m); err != nil {
				return err
			}
		}
		return nil
	case Or:
		for _, m := range v {
			if err := ValidateFilter(m); err != nil {
				return err
			}
		}
		return nil
	default:
		return ValidationError("unsupported filter %s", fmt.Sprintf("%T", f))
	}
}
