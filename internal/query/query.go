// Package query turns URL query strings into parameterized SQL fragments.
//
// Callers describe a collection with a Schema (the allow-list of filterable,
// sortable, and selectable fields) and get back a Spec that renders WHERE,
// ORDER BY, and LIMIT/OFFSET clauses with positional arguments. Field and
// operator names never reach the SQL text unless they appear in the schema,
// so user input cannot inject SQL.
package query

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	apperrors "github.com/peakscale/tourbook/pkg/errors"
)

// Reserved query parameters that shape the result set instead of filtering it.
const (
	paramPage   = "page"
	paramSort   = "sort"
	paramLimit  = "limit"
	paramFields = "fields"
)

const (
	DefaultPage  = 1
	DefaultLimit = 100
	MaxLimit     = 500
)

// Op is a comparison operator rendered into SQL.
type Op string

const (
	OpEq  Op = "="
	OpGT  Op = ">"
	OpGTE Op = ">="
	OpLT  Op = "<"
	OpLTE Op = "<="
)

var suffixOps = map[string]Op{
	"gt":  OpGT,
	"gte": OpGTE,
	"lt":  OpLT,
	"lte": OpLTE,
}

// Condition is a single `column op value` predicate. Conditions are always
// AND-composed.
type Condition struct {
	Column string
	Op     Op
	Value  any
}

// SortField is one ORDER BY term.
type SortField struct {
	Column string
	Desc   bool
}

// Schema is the per-collection allow-list. Fields maps the API-facing field
// name to the SQL column it filters and sorts on. Projection is the default
// SELECT list when the request carries no fields parameter; its columns are
// also individually selectable through fields=.
type Schema struct {
	Fields      map[string]string
	Projection  []string
	DefaultSort []SortField
}

// Spec is a parsed, validated query ready to be rendered to SQL.
type Spec struct {
	Conditions []Condition
	Sort       []SortField
	Columns    []string
	Page       int
	Limit      int

	// Projected is true when the client narrowed the field set explicitly.
	Projected bool
}

// Parse validates the raw query values against the schema. Unknown field
// names and unknown operator suffixes are client errors; malformed page and
// limit values fall back to their defaults.
func Parse(values url.Values, schema Schema) (*Spec, error) {
	spec := &Spec{
		Page:  DefaultPage,
		Limit: DefaultLimit,
	}

	// Stable iteration order keeps generated SQL deterministic for a given
	// set of parameters.
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		switch key {
		case paramPage, paramLimit:
			continue
		case paramSort:
			fields, err := parseSort(values.Get(key), schema)
			if err != nil {
				return nil, err
			}
			spec.Sort = fields
		case paramFields:
			cols, err := parseProjection(values.Get(key), schema)
			if err != nil {
				return nil, err
			}
			spec.Columns = cols
			spec.Projected = true
		default:
			for _, raw := range values[key] {
				cond, err := parseCondition(key, raw, schema)
				if err != nil {
					return nil, err
				}
				spec.Conditions = append(spec.Conditions, cond)
			}
		}
	}

	if len(spec.Sort) == 0 {
		spec.Sort = schema.DefaultSort
	}
	if len(spec.Columns) == 0 {
		spec.Columns = schema.Projection
	}

	if page, err := strconv.Atoi(values.Get(paramPage)); err == nil && page >= 1 {
		spec.Page = page
	}
	if limit, err := strconv.Atoi(values.Get(paramLimit)); err == nil && limit >= 1 {
		spec.Limit = limit
	}
	if spec.Limit > MaxLimit {
		spec.Limit = MaxLimit
	}

	return spec, nil
}

// parseCondition splits a key of the form `name` or `name[op]` and validates
// both halves against the schema.
func parseCondition(key, value string, schema Schema) (Condition, error) {
	name := key
	op := OpEq

	if i := strings.IndexByte(key, '['); i >= 0 {
		if !strings.HasSuffix(key, "]") {
			return Condition{}, apperrors.InvalidInput(fmt.Sprintf("malformed query parameter %q", key))
		}
		name = key[:i]
		suffix := key[i+1 : len(key)-1]
		mapped, ok := suffixOps[suffix]
		if !ok {
			return Condition{}, apperrors.InvalidInput(fmt.Sprintf("unknown operator %q in query parameter %q", suffix, key))
		}
		op = mapped
	}

	column, ok := schema.Fields[name]
	if !ok {
		return Condition{}, apperrors.InvalidInput(fmt.Sprintf("unknown field %q in query", name))
	}

	return Condition{Column: column, Op: op, Value: value}, nil
}

func parseSort(raw string, schema Schema) ([]SortField, error) {
	var out []SortField
	for _, term := range strings.Split(raw, ",") {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		desc := strings.HasPrefix(term, "-")
		name := strings.TrimPrefix(term, "-")
		column, ok := schema.Fields[name]
		if !ok {
			return nil, apperrors.InvalidInput(fmt.Sprintf("unknown field %q in sort", name))
		}
		out = append(out, SortField{Column: column, Desc: desc})
	}
	return out, nil
}

// parseProjection accepts any field the collection can filter on plus any
// column of the default projection, so display-only columns like summary
// remain selectable.
func parseProjection(raw string, schema Schema) ([]string, error) {
	selectable := make(map[string]bool, len(schema.Projection))
	for _, column := range schema.Projection {
		selectable[column] = true
	}

	var out []string
	seen := make(map[string]bool)
	for _, term := range strings.Split(raw, ",") {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		column, ok := schema.Fields[term]
		if !ok {
			if !selectable[term] {
				return nil, apperrors.InvalidInput(fmt.Sprintf("unknown field %q in fields", term))
			}
			column = term
		}
		if !seen[column] {
			seen[column] = true
			out = append(out, column)
		}
	}
	return out, nil
}

// Scope prepends an equality condition that the client cannot override or
// remove, for example tour_id on a nested review listing or secret=false on
// the public tour listing.
func (s *Spec) Scope(column string, value any) {
	s.Conditions = append([]Condition{{Column: column, Op: OpEq, Value: value}}, s.Conditions...)
}

// SelectColumns returns the projection column list.
func (s *Spec) SelectColumns() []string {
	return s.Columns
}

// Offset returns the row offset implied by page and limit.
func (s *Spec) Offset() int {
	return (s.Page - 1) * s.Limit
}

// Clauses renders the WHERE, ORDER BY, and LIMIT/OFFSET clauses with
// positional arguments starting at $1.
func (s *Spec) Clauses() (string, []any) {
	var b strings.Builder
	var args []any

	if len(s.Conditions) > 0 {
		b.WriteString("WHERE ")
		for i, c := range s.Conditions {
			if i > 0 {
				b.WriteString(" AND ")
			}
			args = append(args, c.Value)
			fmt.Fprintf(&b, "%s %s $%d", c.Column, c.Op, len(args))
		}
	}

	if len(s.Sort) > 0 {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString("ORDER BY ")
		for i, f := range s.Sort {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(f.Column)
			if f.Desc {
				b.WriteString(" DESC")
			}
		}
	}

	if b.Len() > 0 {
		b.WriteByte(' ')
	}
	args = append(args, s.Limit)
	fmt.Fprintf(&b, "LIMIT $%d", len(args))
	args = append(args, s.Offset())
	fmt.Fprintf(&b, " OFFSET $%d", len(args))

	return b.String(), args
}
