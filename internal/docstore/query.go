package docstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Operator is a filter comparison.
type Operator string

const (
	Equal Operator = "=="
	In    Operator = "in"
)

// Filter restricts a query to documents whose Field compares to Value.
type Filter struct {
	Field string   `json:"field"`
	Op    Operator `json:"op"`
	Value any      `json:"value"`
}

// Query is a prepared, immutable query over one collection. Builder methods
// return copies, so a Query can be shared between goroutines.
type Query struct {
	Collection string   `json:"collection"`
	Filters    []Filter `json:"where,omitempty"`
	OrderField string   `json:"orderBy,omitempty"`
	Descending bool     `json:"desc,omitempty"`
	Max        int      `json:"limit,omitempty"`
}

// Collection returns a query over every document in name.
func Collection(name string) Query {
	return Query{Collection: name}
}

// Where adds a filter.
func (q Query) Where(field string, op Operator, value any) Query {
	filters := make([]Filter, len(q.Filters), len(q.Filters)+1)
	copy(filters, q.Filters)
	q.Filters = append(filters, Filter{Field: field, Op: op, Value: value})
	return q
}

// OrderBy sorts results by a document field.
func (q Query) OrderBy(field string, descending bool) Query {
	q.OrderField = field
	q.Descending = descending
	return q
}

// Limit caps the number of results. Zero means unlimited.
func (q Query) Limit(n int) Query {
	q.Max = n
	return q
}

// Path is the resource path reported in errors for this query.
func (q Query) Path() string {
	return q.Collection
}

// Validate checks the query shape before it reaches a backend.
func (q Query) Validate() error {
	if !ValidCollection(q.Collection) {
		return fmt.Errorf("%w: collection %q", ErrInvalidPath, q.Collection)
	}
	for _, f := range q.Filters {
		if strings.TrimSpace(f.Field) == "" {
			return errors.New("filter field is required")
		}
		switch f.Op {
		case Equal:
		case In:
			if _, ok := normalize(f.Value).([]any); !ok {
				return fmt.Errorf("filter %q: in requires a list value", f.Field)
			}
		default:
			return fmt.Errorf("filter %q: unsupported operator %q", f.Field, f.Op)
		}
	}
	if q.Max < 0 {
		return errors.New("limit must not be negative")
	}
	return nil
}

// Key returns the identity of q. Two queries with the same collection,
// filter set, order and limit have the same key regardless of the order
// their filters were added in.
func (q Query) Key() string {
	filters := make([]Filter, len(q.Filters))
	for i, f := range q.Filters {
		filters[i] = Filter{Field: f.Field, Op: f.Op, Value: normalize(f.Value)}
	}
	sort.SliceStable(filters, func(i, j int) bool {
		if filters[i].Field != filters[j].Field {
			return filters[i].Field < filters[j].Field
		}
		if filters[i].Op != filters[j].Op {
			return filters[i].Op < filters[j].Op
		}
		return valueKey(filters[i].Value) < valueKey(filters[j].Value)
	})
	canonical := Query{
		Collection: q.Collection,
		Filters:    filters,
		OrderField: q.OrderField,
		Descending: q.Descending,
		Max:        q.Max,
	}
	b, _ := json.Marshal(canonical)
	return string(b)
}

// Matches reports whether a document's fields satisfy every filter of q.
func (q Query) Matches(data Fields) bool {
	for _, f := range q.Filters {
		got, ok := data[f.Field]
		if !ok {
			return false
		}
		got = normalize(got)
		switch f.Op {
		case Equal:
			if !reflect.DeepEqual(got, normalize(f.Value)) {
				return false
			}
		case In:
			values, _ := normalize(f.Value).([]any)
			found := false
			for _, v := range values {
				if reflect.DeepEqual(got, v) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// HasEquality reports whether q pins field to exactly value.
func (q Query) HasEquality(field string, value any) bool {
	want := normalize(value)
	for _, f := range q.Filters {
		if f.Field == field && f.Op == Equal && reflect.DeepEqual(normalize(f.Value), want) {
			return true
		}
	}
	return false
}

// normalize maps a Go value onto its JSON-decoded form so values of
// different numeric or slice types compare equal when their JSON does.
func normalize(v any) any {
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return v
	}
	return out
}

func valueKey(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}
