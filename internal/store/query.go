package store

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/rebatetrack/rebatetrack/pkg/errors"
)

// Op is a comparison operator in a query condition.
type Op string

// Supported query operators.
const (
	OpEq       Op = "eq"
	OpNe       Op = "ne"
	OpGt       Op = "gt"
	OpGte      Op = "gte"
	OpLt       Op = "lt"
	OpLte      Op = "lte"
	OpContains Op = "contains"
)

// Cond is a single field comparison. Field is the entity's JSON field name.
type Cond struct {
	Field string `json:"field"`
	Op    Op     `json:"op"`
	Value any    `json:"value"`
}

// Query is a conjunction of conditions. An empty query matches everything.
type Query struct {
	Conds []Cond `json:"conds"`
}

// Where builds a query from a single condition.
func Where(field string, op Op, value any) Query {
	return Query{Conds: []Cond{{Field: field, Op: op, Value: value}}}
}

// And appends a condition to the query.
func (q Query) And(field string, op Op, value any) Query {
	q.Conds = append(q.Conds, Cond{Field: field, Op: op, Value: value})
	return q
}

// Allow-listed queryable fields per entity, by JSON field name.
var (
	TesterFields      = []string{"uuid", "name"}
	IDMappingFields   = []string{"id", "testerUuid"}
	PurchaseFields    = []string{"id", "testerUuid", "date", "order", "description", "amount", "refunded"}
	FeedbackFields    = []string{"purchase", "date", "feedback"}
	PublicationFields = []string{"purchase", "date"}
	RefundFields      = []string{"purchase", "date", "refundDate", "amount", "transactionId"}
)

var validOps = map[Op]bool{
	OpEq: true, OpNe: true, OpGt: true, OpGte: true, OpLt: true, OpLte: true,
	OpContains: true,
}

// Validate checks every condition against the allowed field list and the
// operator set. Unknown fields and operators are validation errors.
func (q Query) Validate(allowedFields []string) error {
	for _, c := range q.Conds {
		if !validOps[c.Op] {
			return errors.ErrValidation(fmt.Sprintf("unknown query operator %q", c.Op))
		}
		found := false
		for _, f := range allowedFields {
			if f == c.Field {
				found = true
				break
			}
		}
		if !found {
			return errors.ErrValidation(fmt.Sprintf("field %q is not queryable", c.Field))
		}
	}
	return nil
}

// Match evaluates the query against an entity, locating fields by their
// json tags. Used by the in-process backend; the relational and document
// backends translate the query into native clauses instead.
func (q Query) Match(entity any) (bool, error) {
	v := reflect.ValueOf(entity)
	for v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return false, errors.ErrValidation("query target is not a struct")
	}

	for _, c := range q.Conds {
		fv, ok := fieldByJSONName(v, c.Field)
		if !ok {
			return false, errors.ErrValidation(fmt.Sprintf("field %q is not queryable", c.Field))
		}
		matched, err := c.matches(fv.Interface())
		if err != nil {
			return false, err
		}
		if !matched {
			return false, nil
		}
	}
	return true, nil
}

// fieldByJSONName finds a struct field by its json tag name.
func fieldByJSONName(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("json")
		if tag == "" || tag == "-" {
			continue
		}
		if tagName, _, _ := strings.Cut(tag, ","); tagName == name {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

func (c Cond) matches(fieldValue any) (bool, error) {
	switch fv := fieldValue.(type) {
	case string:
		want, ok := c.Value.(string)
		if !ok {
			return false, errors.ErrValidation(fmt.Sprintf("field %q expects a string value", c.Field))
		}
		if c.Op == OpContains {
			return strings.Contains(fv, want), nil
		}
		return compareOrdered(strings.Compare(fv, want), c.Op)
	case bool:
		want, ok := c.Value.(bool)
		if !ok {
			return false, errors.ErrValidation(fmt.Sprintf("field %q expects a boolean value", c.Field))
		}
		switch c.Op {
		case OpEq:
			return fv == want, nil
		case OpNe:
			return fv != want, nil
		default:
			return false, errors.ErrValidation(fmt.Sprintf("operator %q is not valid for boolean field %q", c.Op, c.Field))
		}
	case time.Time:
		want, err := condTime(c.Value)
		if err != nil {
			return false, errors.ErrValidation(fmt.Sprintf("field %q expects a time value", c.Field))
		}
		return compareOrdered(fv.Compare(want), c.Op)
	default:
		fn, ok := toFloat(fieldValue)
		if !ok {
			return false, errors.ErrValidation(fmt.Sprintf("field %q is not comparable", c.Field))
		}
		want, ok := toFloat(c.Value)
		if !ok {
			return false, errors.ErrValidation(fmt.Sprintf("field %q expects a numeric value", c.Field))
		}
		switch {
		case fn < want:
			return compareOrdered(-1, c.Op)
		case fn > want:
			return compareOrdered(1, c.Op)
		default:
			return compareOrdered(0, c.Op)
		}
	}
}

// compareOrdered maps a three-way comparison result through the operator.
func compareOrdered(cmp int, op Op) (bool, error) {
	switch op {
	case OpEq:
		return cmp == 0, nil
	case OpNe:
		return cmp != 0, nil
	case OpGt:
		return cmp > 0, nil
	case OpGte:
		return cmp >= 0, nil
	case OpLt:
		return cmp < 0, nil
	case OpLte:
		return cmp <= 0, nil
	default:
		return false, errors.ErrValidation(fmt.Sprintf("unknown query operator %q", op))
	}
}

func condTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		return time.Parse(time.RFC3339, t)
	default:
		return time.Time{}, fmt.Errorf("not a time value: %v", v)
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
