package ddbstore

import (
	"fmt"
	"strings"
)

// Operator is a sort key comparison.
type Operator string

const (
	OpEqual          Operator = "eq"
	OpBeginsWith     Operator = "begins_with"
	OpBetween        Operator = "between"
	OpGreaterThan    Operator = "gt"
	OpGreaterOrEqual Operator = "gte"
	OpLessThan       Operator = "lt"
	OpLessOrEqual    Operator = "lte"
)

var operators = map[string]Operator{
	string(OpEqual):          OpEqual,
	string(OpBeginsWith):     OpBeginsWith,
	string(OpBetween):        OpBetween,
	string(OpGreaterThan):    OpGreaterThan,
	string(OpGreaterOrEqual): OpGreaterOrEqual,
	string(OpLessThan):       OpLessThan,
	string(OpLessOrEqual):    OpLessOrEqual,
}

// ParseOperator validates an operator name received from outside the process.
func ParseOperator(s string) (Operator, error) {
	op, ok := operators[s]
	if !ok {
		return "", fmt.Errorf("unsupported sort key operator %q", s)
	}
	return op, nil
}

// SortCondition filters on a sort key. For primary queries it applies to the
// record's SortKey and Attribute is ignored. For index queries it applies to
// the index sort value, and Attribute, if set, must name the index's sort attribute.
//
// Value is a string for every operator except OpBetween, which takes a pair:
// [2]string, []string or []any holding two strings. A condition whose Value has
// any other shape matches nothing.
type SortCondition struct {
	Attribute string
	Op        Operator
	Value     any
}

// Equals returns items where the sort key equals the provided value.
func Equals(v string) *SortCondition {
	return &SortCondition{Op: OpEqual, Value: v}
}

// BeginsWith returns items where the sort key starts with the provided prefix.
func BeginsWith(prefix string) *SortCondition {
	return &SortCondition{Op: OpBeginsWith, Value: prefix}
}

// Between returns items where the sort key is between start and end (inclusive).
func Between(start, end string) *SortCondition {
	return &SortCondition{Op: OpBetween, Value: [2]string{start, end}}
}

// GreaterThan returns items where the sort key is greater than the provided value.
func GreaterThan(v string) *SortCondition {
	return &SortCondition{Op: OpGreaterThan, Value: v}
}

// GreaterThanOrEqual returns items where the sort key is greater than or equal to the provided value.
func GreaterThanOrEqual(v string) *SortCondition {
	return &SortCondition{Op: OpGreaterOrEqual, Value: v}
}

// LessThan returns items where the sort key is less than the provided value.
func LessThan(v string) *SortCondition {
	return &SortCondition{Op: OpLessThan, Value: v}
}

// LessThanOrEqual returns items where the sort key is less than or equal to the provided value.
func LessThanOrEqual(v string) *SortCondition {
	return &SortCondition{Op: OpLessOrEqual, Value: v}
}

// On returns a copy of the condition bound to attr, for index queries.
func (c *SortCondition) On(attr string) *SortCondition {
	out := *c
	out.Attribute = attr
	return &out
}

// Matches reports whether v satisfies the condition.
func (c *SortCondition) Matches(v string) bool {
	if c.Op == OpBetween {
		lo, hi, ok := c.Bounds()
		return ok && v >= lo && v <= hi
	}
	s, ok := c.Value.(string)
	if !ok {
		return false
	}
	switch c.Op {
	case OpEqual:
		return v == s
	case OpBeginsWith:
		return strings.HasPrefix(v, s)
	case OpGreaterThan:
		return v > s
	case OpGreaterOrEqual:
		return v >= s
	case OpLessThan:
		return v < s
	case OpLessOrEqual:
		return v <= s
	default:
		return false
	}
}

// Bounds returns the pair of a well formed between condition.
func (c *SortCondition) Bounds() (lo, hi string, ok bool) {
	if c.Op != OpBetween {
		return "", "", false
	}
	switch v := c.Value.(type) {
	case [2]string:
		return v[0], v[1], true
	case []string:
		if len(v) == 2 {
			return v[0], v[1], true
		}
	case []any:
		if len(v) == 2 {
			lo, ok1 := v[0].(string)
			hi, ok2 := v[1].(string)
			if ok1 && ok2 {
				return lo, hi, true
			}
		}
	}
	return "", "", false
}

// Valid reports whether the condition can match anything at all.
func (c *SortCondition) Valid() bool {
	if c.Op == OpBetween {
		_, _, ok := c.Bounds()
		return ok
	}
	if _, ok := operators[string(c.Op)]; !ok {
		return false
	}
	_, ok := c.Value.(string)
	return ok
}

// lowerBound is the smallest value that can match, used to seek before iterating.
func (c *SortCondition) lowerBound() (string, bool) {
	switch c.Op {
	case OpBetween:
		lo, _, ok := c.Bounds()
		return lo, ok
	case OpEqual, OpBeginsWith, OpGreaterThan, OpGreaterOrEqual:
		s, ok := c.Value.(string)
		return s, ok
	}
	return "", false
}

// exhausted reports whether no value sorting at or after v can match.
func (c *SortCondition) exhausted(v string) bool {
	if !c.Valid() {
		return true
	}
	switch c.Op {
	case OpBetween:
		_, hi, _ := c.Bounds()
		return v > hi
	}
	s := c.Value.(string)
	switch c.Op {
	case OpEqual, OpLessOrEqual:
		return v > s
	case OpLessThan:
		return v >= s
	case OpBeginsWith:
		return v > s && !strings.HasPrefix(v, s)
	}
	return false
}

func (c *SortCondition) shape() string {
	if c == nil {
		return ""
	}
	return fmt.Sprintf("%q %q %T %q", c.Attribute, c.Op, c.Value, c.Value)
}
