// Package condition evaluates the tagged-variant Condition type against an
// execution context: a single clause, or an AND/OR composition of clauses.
package condition

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fluxline-dev/fluxline/engine/document"
	"github.com/fluxline-dev/fluxline/engine/tplengine"
	"github.com/fluxline-dev/fluxline/pkg/logger"
	"github.com/shopspring/decimal"
)

// Op is a comparison operator usable in a single Clause.
type Op string

const (
	OpLT           Op = "<"
	OpGT           Op = ">"
	OpLTE          Op = "<="
	OpGTE          Op = ">="
	OpEQ           Op = "=="
	OpEQAlias      Op = "eq"
	OpNEQ          Op = "!="
	OpNEQAlias     Op = "neq"
	OpContains     Op = "contains"
	OpNotContains  Op = "not_contains"
	OpStartsWith   Op = "starts_with"
	OpEndsWith     Op = "ends_with"
	OpExists       Op = "exists"
	OpNotExists    Op = "not_exists"
)

// LogicalOp composes multiple clauses together.
type LogicalOp string

const (
	OpAnd LogicalOp = "AND"
	OpOr  LogicalOp = "OR"
)

// Clause is a single comparison: path op value. Value is ignored (and may
// be the zero value) for exists/not_exists.
type Clause struct {
	Path  string `json:"path" mapstructure:"path"`
	Op    Op     `json:"op" mapstructure:"op"`
	Value any    `json:"value,omitempty" mapstructure:"value"`
}

// Condition is the tagged variant from the data model: either a single
// clause (Path is non-empty) or a composition of clauses (Operator +
// Clauses is non-empty). A zero-value Condition is treated as always-true.
type Condition struct {
	Path  string `json:"path,omitempty" mapstructure:"path"`
	Op    Op     `json:"op,omitempty" mapstructure:"op"`
	Value any    `json:"value,omitempty" mapstructure:"value"`

	Operator LogicalOp `json:"operator,omitempty" mapstructure:"operator"`
	Clauses  []Clause  `json:"clauses,omitempty" mapstructure:"clauses"`
}

// IsEmpty reports whether c carries neither a single clause nor a
// composition, i.e. it is the "absent condition" that always evaluates true.
func (c Condition) IsEmpty() bool {
	return c.Path == "" && c.Operator == "" && len(c.Clauses) == 0
}

func (c Condition) isSingleClause() bool {
	return c.Path != ""
}

// Evaluator evaluates Conditions against a context, template-resolving and
// numeric-coercing each clause's value before comparing.
type Evaluator struct {
	tpl *tplengine.Engine
	log logger.Logger
}

// NewEvaluator builds an Evaluator. tpl may be nil, in which case clause
// values are used as-is without template resolution (still spec-compliant,
// since resolution is a no-op for non-string values and for strings with no
// placeholders).
func NewEvaluator(tpl *tplengine.Engine, log logger.Logger) *Evaluator {
	if log == nil {
		log = logger.NewLogger(nil)
	}
	return &Evaluator{tpl: tpl, log: log}
}

// Evaluate evaluates cond against ctx. An empty condition is always true.
func (e *Evaluator) Evaluate(cond Condition, ctx map[string]any) bool {
	if cond.IsEmpty() {
		return true
	}
	if cond.isSingleClause() {
		return e.evaluateClause(Clause{Path: cond.Path, Op: cond.Op, Value: cond.Value}, ctx)
	}
	return e.evaluateComposition(cond.Operator, cond.Clauses, ctx)
}

func (e *Evaluator) evaluateComposition(operator LogicalOp, clauses []Clause, ctx map[string]any) bool {
	if len(clauses) == 0 {
		return true
	}
	switch operator {
	case OpAnd:
		for _, clause := range clauses {
			if !e.evaluateClause(clause, ctx) {
				return false
			}
		}
		return true
	case OpOr:
		for _, clause := range clauses {
			if e.evaluateClause(clause, ctx) {
				return true
			}
		}
		return false
	default:
		e.log.Warn("unknown logical operator in condition", "operator", operator)
		return false
	}
}

func (e *Evaluator) evaluateClause(clause Clause, ctx map[string]any) bool {
	actual, ok := document.Get(ctx, clause.Path)
	value := e.resolveValue(clause.Value, ctx)
	return compare(actual, ok, clause.Op, value, e.log)
}

// resolveValue template-resolves string values against ctx, then
// heuristically parses the result to a number when it looks numeric, per
// spec.md §4.5's clause evaluation rule.
func (e *Evaluator) resolveValue(value any, ctx map[string]any) any {
	s, isString := value.(string)
	if !isString {
		return value
	}
	if e.tpl != nil {
		s = e.tpl.Resolve(s, ctx)
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return n
	}
	return s
}

// compare implements spec.md §4.5's compare(actual, op, expected) -> bool.
func compare(actual any, actualOk bool, op Op, expected any, log logger.Logger) bool {
	switch op {
	case OpExists:
		return actualOk
	case OpNotExists:
		return !actualOk
	}
	if !actualOk {
		return false
	}
	switch op {
	case OpLT, OpGT, OpLTE, OpGTE:
		return compareNumeric(actual, op, expected, log)
	case OpEQ, OpEQAlias:
		return equalPrimitive(actual, expected)
	case OpNEQ, OpNEQAlias:
		return !equalPrimitive(actual, expected)
	case OpContains:
		return stringCompare(actual, expected, strings.Contains)
	case OpNotContains:
		return !stringCompare(actual, expected, strings.Contains)
	case OpStartsWith:
		return stringCompare(actual, expected, strings.HasPrefix)
	case OpEndsWith:
		return stringCompare(actual, expected, strings.HasSuffix)
	default:
		log.Warn("unknown comparison operator", "op", op)
		return false
	}
}

func compareNumeric(actual any, op Op, expected any, log logger.Logger) bool {
	a, aok := toDecimal(actual)
	b, bok := toDecimal(expected)
	if !aok || !bok {
		log.Warn("non-numeric operand in numeric comparison", "op", op)
		return false
	}
	switch op {
	case OpLT:
		return a.LessThan(b)
	case OpGT:
		return a.GreaterThan(b)
	case OpLTE:
		return a.LessThanOrEqual(b)
	case OpGTE:
		return a.GreaterThanOrEqual(b)
	default:
		return false
	}
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, true
	case float64:
		return decimal.NewFromFloat(n), true
	case float32:
		return decimal.NewFromFloat32(n), true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	case string:
		d, err := decimal.NewFromString(n)
		if err != nil {
			return decimal.Decimal{}, false
		}
		return d, true
	default:
		return decimal.Decimal{}, false
	}
}

// equalPrimitive implements structural equality with mixed-numeric-type
// comparison by value.
func equalPrimitive(a, b any) bool {
	if ad, aok := toDecimal(a); aok {
		if bd, bok := toDecimal(b); bok {
			return ad.Equal(bd)
		}
	}
	return a == b
}

func stringCompare(a, b any, f func(s, substr string) bool) bool {
	return f(strings.ToLower(stringify(a)), strings.ToLower(stringify(b)))
}

// stringify coerces any context value to its string form, mirroring
// spec.md §4.5's "lowercased string forms of both sides" rule for
// contains/not_contains/starts_with/ends_with: a numeric context value like
// score=float64(8500) must compare as "8500", not silently fail a type
// assertion.
func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
