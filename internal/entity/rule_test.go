package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRule_Eval(t *testing.T) {
	v := map[string]any{"kind": "business", "units": 3.0, "active": true, "note": ""}

	assert.True(t, Rule{Field: "kind", Value: "business"}.Eval(v))
	assert.True(t, Rule{Field: "units", Operator: OpEq, Value: int64(3)}.Eval(v))
	assert.True(t, Rule{Field: "kind", Operator: OpNeq, Value: "person"}.Eval(v))
	assert.True(t, Rule{Field: "kind", Operator: OpIn, Values: []any{"llc", "business"}}.Eval(v))
	assert.False(t, Rule{Field: "kind", Operator: OpNotIn, Values: []any{"business"}}.Eval(v))
	assert.True(t, Rule{Field: "active", Operator: OpTruthy}.Eval(v))
	assert.True(t, Rule{Field: "note", Operator: OpFalsy}.Eval(v))
	assert.True(t, Rule{Field: "missing", Operator: OpFalsy}.Eval(v))
	assert.False(t, Rule{Field: "kind", Operator: "matches"}.Eval(v))
}

func TestExpandTemplates(t *testing.T) {
	assert.Equal(t, "Archive 3 tenants? {other}", ExpandCount("Archive {count} tenants? {other}", 3))
	r := Record{"name": "Ada", "units": 2.0}
	assert.Equal(t, "Deactivate Ada (2 units, )?", ExpandRecord("Deactivate {name} ({units} units, {missing})?", r))
}
