package condition_test

import (
	"testing"

	"github.com/fluxline-dev/fluxline/engine/condition"
	"github.com/fluxline-dev/fluxline/engine/tplengine"
	"github.com/stretchr/testify/assert"
)

func TestEvaluate_EmptyConditionIsTrue(t *testing.T) {
	eval := condition.NewEvaluator(tplengine.NewEngine(), nil)
	assert.True(t, eval.Evaluate(condition.Condition{}, map[string]any{}))
}

func TestEvaluate_SingleClause(t *testing.T) {
	eval := condition.NewEvaluator(tplengine.NewEngine(), nil)
	ctx := map[string]any{"score": 85.0}

	t.Run("Should evaluate a numeric less-than clause", func(t *testing.T) {
		cond := condition.Condition{Path: "score", Op: condition.OpLT, Value: 70}
		assert.False(t, eval.Evaluate(cond, ctx))
	})

	t.Run("Should evaluate a numeric greater-than clause", func(t *testing.T) {
		cond := condition.Condition{Path: "score", Op: condition.OpGT, Value: 70}
		assert.True(t, eval.Evaluate(cond, ctx))
	})
}

func TestEvaluate_ExistsNotExists(t *testing.T) {
	eval := condition.NewEvaluator(tplengine.NewEngine(), nil)
	ctx := map[string]any{"a": 1}

	t.Run("exists is true iff not_exists is false, for present path", func(t *testing.T) {
		existsCond := condition.Condition{Path: "a", Op: condition.OpExists}
		notExistsCond := condition.Condition{Path: "a", Op: condition.OpNotExists}
		assert.True(t, eval.Evaluate(existsCond, ctx))
		assert.False(t, eval.Evaluate(notExistsCond, ctx))
	})

	t.Run("exists is true iff not_exists is false, for missing path", func(t *testing.T) {
		existsCond := condition.Condition{Path: "missing", Op: condition.OpExists}
		notExistsCond := condition.Condition{Path: "missing", Op: condition.OpNotExists}
		assert.False(t, eval.Evaluate(existsCond, ctx))
		assert.True(t, eval.Evaluate(notExistsCond, ctx))
	})
}

func TestEvaluate_NonNumericOperandIsFalse(t *testing.T) {
	eval := condition.NewEvaluator(tplengine.NewEngine(), nil)
	ctx := map[string]any{"name": "alice"}
	cond := condition.Condition{Path: "name", Op: condition.OpGT, Value: 5}
	assert.False(t, eval.Evaluate(cond, ctx))
}

func TestEvaluate_StringPredicates(t *testing.T) {
	eval := condition.NewEvaluator(tplengine.NewEngine(), nil)
	ctx := map[string]any{"subject": "Urgent: Server Down"}

	t.Run("contains is case-insensitive", func(t *testing.T) {
		cond := condition.Condition{Path: "subject", Op: condition.OpContains, Value: "SERVER"}
		assert.True(t, eval.Evaluate(cond, ctx))
	})

	t.Run("starts_with is case-insensitive", func(t *testing.T) {
		cond := condition.Condition{Path: "subject", Op: condition.OpStartsWith, Value: "urgent"}
		assert.True(t, eval.Evaluate(cond, ctx))
	})

	t.Run("ends_with is case-insensitive", func(t *testing.T) {
		cond := condition.Condition{Path: "subject", Op: condition.OpEndsWith, Value: "DOWN"}
		assert.True(t, eval.Evaluate(cond, ctx))
	})

	t.Run("not_contains negates contains", func(t *testing.T) {
		cond := condition.Condition{Path: "subject", Op: condition.OpNotContains, Value: "server"}
		assert.False(t, eval.Evaluate(cond, ctx))
	})
}

func TestEvaluate_StringPredicatesOnNumericOperand(t *testing.T) {
	eval := condition.NewEvaluator(tplengine.NewEngine(), nil)
	ctx := map[string]any{"score": float64(8500)}

	t.Run("contains stringifies a numeric actual before comparing", func(t *testing.T) {
		cond := condition.Condition{Path: "score", Op: condition.OpContains, Value: "850"}
		assert.True(t, eval.Evaluate(cond, ctx))
	})

	t.Run("starts_with stringifies a numeric actual before comparing", func(t *testing.T) {
		cond := condition.Condition{Path: "score", Op: condition.OpStartsWith, Value: "85"}
		assert.True(t, eval.Evaluate(cond, ctx))
	})

	t.Run("not_contains correctly negates once operands are stringified", func(t *testing.T) {
		cond := condition.Condition{Path: "score", Op: condition.OpNotContains, Value: "850"}
		assert.False(t, eval.Evaluate(cond, ctx))
	})

	t.Run("not_contains is true when the stringified actual truly lacks the substring", func(t *testing.T) {
		cond := condition.Condition{Path: "score", Op: condition.OpNotContains, Value: "999"}
		assert.True(t, eval.Evaluate(cond, ctx))
	})
}

func TestEvaluate_EqualityWithMixedNumericTypes(t *testing.T) {
	eval := condition.NewEvaluator(tplengine.NewEngine(), nil)
	ctx := map[string]any{"count": 5}

	t.Run("== compares mixed int/float by value", func(t *testing.T) {
		cond := condition.Condition{Path: "count", Op: condition.OpEQ, Value: 5.0}
		assert.True(t, eval.Evaluate(cond, ctx))
	})

	t.Run("!= is the negation", func(t *testing.T) {
		cond := condition.Condition{Path: "count", Op: condition.OpNEQ, Value: 5.0}
		assert.False(t, eval.Evaluate(cond, ctx))
	})
}

func TestEvaluate_Composition(t *testing.T) {
	eval := condition.NewEvaluator(tplengine.NewEngine(), nil)
	ctx := map[string]any{"score": 85.0, "active": true}

	t.Run("AND requires all clauses true", func(t *testing.T) {
		cond := condition.Condition{
			Operator: condition.OpAnd,
			Clauses: []condition.Clause{
				{Path: "score", Op: condition.OpGT, Value: 50},
				{Path: "active", Op: condition.OpEQ, Value: true},
			},
		}
		assert.True(t, eval.Evaluate(cond, ctx))
	})

	t.Run("AND is false if any clause is false", func(t *testing.T) {
		cond := condition.Condition{
			Operator: condition.OpAnd,
			Clauses: []condition.Clause{
				{Path: "score", Op: condition.OpGT, Value: 90},
				{Path: "active", Op: condition.OpEQ, Value: true},
			},
		}
		assert.False(t, eval.Evaluate(cond, ctx))
	})

	t.Run("OR requires any clause true", func(t *testing.T) {
		cond := condition.Condition{
			Operator: condition.OpOr,
			Clauses: []condition.Clause{
				{Path: "score", Op: condition.OpGT, Value: 90},
				{Path: "active", Op: condition.OpEQ, Value: true},
			},
		}
		assert.True(t, eval.Evaluate(cond, ctx))
	})

	t.Run("empty clause list is true", func(t *testing.T) {
		cond := condition.Condition{Operator: condition.OpAnd, Clauses: []condition.Clause{}}
		assert.True(t, eval.Evaluate(cond, ctx))
	})

	t.Run("unknown operator is false", func(t *testing.T) {
		cond := condition.Condition{
			Operator: "XOR",
			Clauses:  []condition.Clause{{Path: "score", Op: condition.OpGT, Value: 0}},
		}
		assert.False(t, eval.Evaluate(cond, ctx))
	})
}

func TestEvaluate_ClauseValueTemplateResolution(t *testing.T) {
	eval := condition.NewEvaluator(tplengine.NewEngine(), nil)
	ctx := map[string]any{"threshold": 50, "score": 85.0}

	cond := condition.Condition{Path: "score", Op: condition.OpGT, Value: "{{threshold}}"}
	assert.True(t, eval.Evaluate(cond, ctx))
}
