package wizard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/entityui/internal/form"
)

func leaseSteps() []Step {
	return []Step{
		{ID: "tenant", Fields: []string{"x"}, Schema: form.Required("x")},
		{ID: "guarantor", Fields: []string{"guarantor"}, Schema: form.Required("guarantor"),
			Condition: func(v form.Values) bool { return v["needs_guarantor"] == true }},
		{ID: "terms", Fields: []string{"rent"}, Schema: form.Required("rent")},
	}
}

func TestNext_GatesOnStepSchema(t *testing.T) {
	f := form.New(nil, nil)
	e := New(f, Config{Steps: leaseSteps()})
	ctx := context.Background()

	err := e.Next(ctx)
	var ve *form.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, 0, e.Index())
	assert.Equal(t, form.MsgRequired, f.Errors()["x"])

	f.SetValue("x", "value")
	require.NoError(t, e.Next(ctx))
	assert.Equal(t, 1, e.Index())
	assert.Empty(t, f.Errors())
}

func TestNext_OnlyValidatesCurrentStepFields(t *testing.T) {
	f := form.New(nil, form.Values{"x": "set"})
	e := New(f, Config{Steps: leaseSteps()})
	require.NoError(t, e.Next(context.Background()))
	assert.NotContains(t, f.Errors(), "rent")
}

func TestNext_RunsStepCompleteBeforeAdvancing(t *testing.T) {
	f := form.New(nil, form.Values{"x": "set"})
	var completed []string
	e := New(f, Config{
		Steps: leaseSteps(),
		OnStepComplete: func(_ context.Context, id string, data form.Values) error {
			completed = append(completed, id+"="+data.Text("x"))
			return nil
		},
	})
	require.NoError(t, e.Next(context.Background()))
	assert.Equal(t, []string{"tenant=set"}, completed)
}

func TestNext_StepCompleteErrorKeepsIndex(t *testing.T) {
	f := form.New(nil, form.Values{"x": "set"})
	boom := errors.New("boom")
	e := New(f, Config{
		Steps:          leaseSteps(),
		OnStepComplete: func(context.Context, string, form.Values) error { return boom },
	})
	err := e.Next(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, e.Index())
}

func TestNext_ClampsAtLastStep(t *testing.T) {
	f := form.New(nil, form.Values{"x": 1, "rent": 900})
	e := New(f, Config{Steps: leaseSteps()})
	ctx := context.Background()
	require.NoError(t, e.Next(ctx))
	require.NoError(t, e.Next(ctx))
	assert.Equal(t, 1, e.Index())
	assert.True(t, e.IsLast())
}

func TestSteps_FilteredByCondition(t *testing.T) {
	f := form.New(nil, nil)
	e := New(f, Config{Steps: leaseSteps()})
	assert.Len(t, e.Steps(), 2)

	f.SetValue("needs_guarantor", true)
	ids := func() []string {
		var out []string
		for _, s := range e.Steps() {
			out = append(out, s.ID)
		}
		return out
	}
	assert.Equal(t, []string{"tenant", "guarantor", "terms"}, ids())
}

func TestIndex_ClampedWhenStepsShrink(t *testing.T) {
	f := form.New(nil, form.Values{"needs_guarantor": true})
	e := New(f, Config{Steps: leaseSteps()})
	e.GoTo(2)
	assert.Equal(t, 2, e.Index())

	f.SetValue("needs_guarantor", false)
	assert.Equal(t, 1, e.Index())
	cur, ok := e.Current()
	require.True(t, ok)
	assert.Equal(t, "terms", cur.ID)
}

func TestPrev(t *testing.T) {
	f := form.New(nil, nil)
	e := New(f, Config{Steps: leaseSteps()})
	require.NoError(t, e.Prev())
	assert.Equal(t, 0, e.Index())

	e.GoTo(1)
	require.NoError(t, e.Prev())
	assert.Equal(t, 0, e.Index())
	assert.True(t, e.IsFirst())
}

func TestPrev_Disabled(t *testing.T) {
	f := form.New(nil, nil)
	e := New(f, Config{Steps: leaseSteps(), DisableBack: true})
	e.GoTo(1)
	assert.ErrorIs(t, e.Prev(), ErrBackDisabled)
	assert.Equal(t, 1, e.Index())
	assert.False(t, e.State().CanGoBack)
}

func TestGoTo_ClampsWithoutValidating(t *testing.T) {
	f := form.New(nil, nil)
	e := New(f, Config{Steps: leaseSteps()})
	e.GoTo(99)
	assert.Equal(t, 1, e.Index())
	e.GoTo(-3)
	assert.Equal(t, 0, e.Index())
	assert.Empty(t, f.Errors())
}

func TestSubmit_ValidatesFullForm(t *testing.T) {
	f := form.New(nil, form.Values{"rent": 900})
	submitted := 0
	e := New(f, Config{
		Steps:  leaseSteps(),
		Submit: func(context.Context, form.Values) error { submitted++; return nil },
	})
	e.GoTo(1)

	err := e.Submit(context.Background())
	var ve *form.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "x")
	assert.Equal(t, 0, submitted)
	assert.Equal(t, 0, e.Index(), "moves to the first step with an error")

	f.SetValue("x", "ok")
	e.GoTo(1)
	require.NoError(t, e.Submit(context.Background()))
	assert.Equal(t, 1, submitted)
}

func TestSubmit_SkipsHiddenSteps(t *testing.T) {
	f := form.New(nil, form.Values{"x": 1, "rent": 2})
	e := New(f, Config{Steps: leaseSteps()})
	e.GoTo(1)
	assert.NoError(t, e.Submit(context.Background()))
}

func TestSubmit_FullSchema(t *testing.T) {
	f := form.New(nil, form.Values{"x": 1, "rent": 2})
	e := New(f, Config{Steps: leaseSteps(), FullSchema: form.Required("signature")})
	e.GoTo(1)
	err := e.Submit(context.Background())
	var ve *form.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, map[string]string{"signature": form.MsgRequired}, ve.Fields)
}

func TestSubmit_RefusesDuplicate(t *testing.T) {
	f := form.New(nil, form.Values{"x": 1, "rent": 2})
	var e *Engine
	var inner error
	e = New(f, Config{
		Steps: leaseSteps(),
		Submit: func(ctx context.Context, _ form.Values) error {
			inner = e.Submit(ctx)
			return nil
		},
	})
	e.GoTo(1)
	require.NoError(t, e.Submit(context.Background()))
	assert.ErrorIs(t, inner, form.ErrSubmitting)
	assert.False(t, f.Submitting())
}

func TestSubmit_NotOnLastStep(t *testing.T) {
	f := form.New(nil, nil)
	e := New(f, Config{Steps: leaseSteps()})
	assert.ErrorIs(t, e.Submit(context.Background()), ErrNotLastStep)
}

func TestNext_NoSteps(t *testing.T) {
	f := form.New(nil, nil)
	e := New(f, Config{})
	assert.ErrorIs(t, e.Next(context.Background()), ErrNoSteps)
	_, ok := e.Current()
	assert.False(t, ok)
}

func TestSubmit_NoVisibleSteps(t *testing.T) {
	f := form.New(nil, nil)
	submitted := false
	submit := func(context.Context, form.Values) error {
		submitted = true
		return nil
	}
	hidden := func(form.Values) bool { return false }
	e := New(f, Config{Steps: []Step{{ID: "only", Condition: hidden}}, Submit: submit})
	assert.ErrorIs(t, e.Submit(context.Background()), ErrNoSteps)
	assert.False(t, submitted)
}

func TestClose_StopsTracking(t *testing.T) {
	f := form.New(nil, nil)
	e := New(f, Config{Steps: leaseSteps()})
	e.Close()
	f.SetValue("needs_guarantor", true)
	assert.Len(t, e.Steps(), 2)
}

func TestState(t *testing.T) {
	f := form.New(nil, nil)
	e := New(f, Config{Steps: leaseSteps()})
	st := e.State()
	assert.Equal(t, 0, st.Index)
	assert.Equal(t, 2, st.Count)
	assert.Equal(t, "tenant", st.StepID)
	assert.True(t, st.IsFirst)
	assert.False(t, st.IsLast)
	assert.False(t, st.CanGoBack)
}
