package form

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequired(t *testing.T) {
	s := Required("name", "email")
	errs := s.Validate(Values{"name": "Ada", "email": " "})
	assert.Equal(t, map[string]string{"email": MsgRequired}, errs)
	assert.Empty(t, s.Validate(Values{"name": "Ada", "email": "a@b.c"}))
}

func TestAll_FirstMessageWins(t *testing.T) {
	custom := SchemaFunc(func(Values) map[string]string {
		return map[string]string{"name": "too short", "age": "too young"}
	})
	errs := All(Required("name"), nil, custom).Validate(Values{})
	assert.Equal(t, map[string]string{"name": MsgRequired, "age": "too young"}, errs)
}

func TestOnly(t *testing.T) {
	errs := Only(Required("a", "b"), []string{"b"}).Validate(Values{})
	assert.Equal(t, map[string]string{"b": MsgRequired}, errs)
}

func TestInvalid(t *testing.T) {
	assert.NoError(t, Invalid(nil))

	err := Invalid(map[string]string{"b": "x", "a": "y"})
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "validation failed: a: y; b: x", err.Error())
}

const tenantSchema = `
name:   string & != ""
units:  int & >=1
email?: =~"^[^@]+@[^@]+$"
`

func TestCompileSchema_Valid(t *testing.T) {
	s, err := CompileSchema(tenantSchema)
	require.NoError(t, err)
	assert.Empty(t, s.Validate(Values{"name": "Ada", "units": 3.0}))
	assert.Empty(t, s.Validate(Values{"name": "Ada", "units": 3, "email": "ada@example.com", "extra": true}))
}

func TestCompileSchema_MissingRequired(t *testing.T) {
	s, err := CompileSchema(tenantSchema)
	require.NoError(t, err)
	errs := s.Validate(Values{"name": "", "email": nil})
	assert.Equal(t, MsgRequired, errs["name"])
	assert.Equal(t, MsgRequired, errs["units"])
	assert.NotContains(t, errs, "email")
}

func TestCompileSchema_ConstraintViolation(t *testing.T) {
	s, err := CompileSchema(tenantSchema)
	require.NoError(t, err)
	errs := s.Validate(Values{"name": "Ada", "units": 0, "email": "nope"})
	assert.Contains(t, errs, "units")
	assert.Contains(t, errs, "email")
	assert.NotEqual(t, MsgRequired, errs["units"])
	assert.NotContains(t, errs, "name")
}

func TestCompileSchema_Errors(t *testing.T) {
	_, err := CompileSchema(`name: `)
	assert.Error(t, err)

	_, err = CompileSchema(`"just a string"`)
	assert.Error(t, err)
}

func TestCUESchema_Fields(t *testing.T) {
	s, err := CompileSchema(tenantSchema)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"name", "units", "email"}, s.Fields())
}
