package prize

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Operator is one of the five comparisons a Condition supports.
type Operator string

const (
	OpLess         Operator = "<"
	OpLessEqual    Operator = "<="
	OpGreater      Operator = ">"
	OpGreaterEqual Operator = ">="
	OpEqual        Operator = "=="
)

// Condition is a comparison against a fixed operand, e.g. ">= 100000".
// Conditions are parsed once when configuration is saved.
type Condition struct {
	Op      Operator
	Operand decimal.Decimal
}

// Longest operators first so ">=" is not read as ">".
var operators = []Operator{OpLessEqual, OpGreaterEqual, OpEqual, OpLess, OpGreater}

// ParseCondition reads "<op> <number>". Thousands separators are allowed in
// the number; a single "=" is accepted as "==".
func ParseCondition(s string) (Condition, error) {
	text := strings.TrimSpace(s)
	if strings.HasPrefix(text, "=") && !strings.HasPrefix(text, "==") {
		text = "=" + text
	}
	for _, op := range operators {
		if !strings.HasPrefix(text, string(op)) {
			continue
		}
		operand := strings.ReplaceAll(strings.TrimSpace(text[len(op):]), ",", "")
		d, err := decimal.NewFromString(operand)
		if err != nil {
			return Condition{}, fmt.Errorf("%w: %q", ErrInvalidCondition, s)
		}
		return Condition{Op: op, Operand: d}, nil
	}
	return Condition{}, fmt.Errorf("%w: %q", ErrInvalidCondition, s)
}

// Match applies the condition to v.
func (c Condition) Match(v decimal.Decimal) bool {
	switch c.Op {
	case OpLess:
		return v.LessThan(c.Operand)
	case OpLessEqual:
		return v.LessThanOrEqual(c.Operand)
	case OpGreater:
		return v.GreaterThan(c.Operand)
	case OpGreaterEqual:
		return v.GreaterThanOrEqual(c.Operand)
	case OpEqual:
		return v.Equal(c.Operand)
	default:
		return false
	}
}

func (c Condition) String() string {
	return string(c.Op) + " " + c.Operand.String()
}
