package form

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewField_KnownKinds(t *testing.T) {
	for _, k := range Kinds() {
		f, err := NewField(k, Spec{Name: "x"})
		require.NoError(t, err, k)
		assert.Equal(t, k, f.Kind())
		assert.Equal(t, "x", f.FieldSpec().Name)
	}
}

func TestNewField_DefaultsToText(t *testing.T) {
	f, err := NewField("", Spec{Name: "x"})
	require.NoError(t, err)
	assert.IsType(t, TextField{}, f)
}

func TestNewField_UnknownKind(t *testing.T) {
	_, err := NewField("slider", Spec{Name: "volume"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"slider"`)
}

type kindCounter map[Kind]int

func (c kindCounter) Text(TextField)         { c[KindText]++ }
func (c kindCounter) Textarea(TextareaField) { c[KindTextarea]++ }
func (c kindCounter) Number(NumberField)     { c[KindNumber]++ }
func (c kindCounter) Checkbox(CheckboxField) { c[KindCheckbox]++ }
func (c kindCounter) Date(DateField)         { c[KindDate]++ }
func (c kindCounter) Select(SelectField)     { c[KindSelect]++ }

func TestAccept_DispatchesByKind(t *testing.T) {
	c := kindCounter{}
	for _, k := range Kinds() {
		f, err := NewField(k, Spec{Name: string(k)})
		require.NoError(t, err)
		f.Accept(c)
	}
	for _, k := range Kinds() {
		assert.Equal(t, 1, c[k], k)
	}
}

func TestDescribe(t *testing.T) {
	min := 1.0
	d := Describe(NumberField{Spec: Spec{Name: "units", Label: "Units", Required: true}, Min: &min})
	assert.Equal(t, KindNumber, d.Kind)
	assert.Equal(t, "Units", d.Label)
	assert.True(t, d.Required)
	require.NotNil(t, d.Min)
	assert.Equal(t, 1.0, *d.Min)

	d = Describe(SelectField{Spec: Spec{Name: "city"}, Dependent: true})
	assert.Equal(t, KindSelect, d.Kind)
	assert.True(t, d.Dependent)
}

func TestIsEmpty(t *testing.T) {
	assert.True(t, IsEmpty(nil))
	assert.True(t, IsEmpty(""))
	assert.True(t, IsEmpty("   "))
	assert.True(t, IsEmpty([]string{}))
	assert.True(t, IsEmpty(map[string]any{}))
	assert.False(t, IsEmpty("a"))
	assert.False(t, IsEmpty(0))
	assert.False(t, IsEmpty(false))
	assert.False(t, IsEmpty([]int{1}))
}

func TestValues_PickAndText(t *testing.T) {
	v := Values{"a": 1.0, "b": "x", "c": nil}
	assert.Equal(t, Values{"a": 1.0, "c": nil}, v.Pick([]string{"a", "c", "missing"}))
	assert.Equal(t, "1", v.Text("a"))
	assert.Equal(t, "", v.Text("c"))
}

func TestForm_SetValueClearsFieldError(t *testing.T) {
	f := New(nil, Values{"name": ""})
	f.SetErrors(map[string]string{"name": MsgRequired, "email": MsgRequired})

	f.SetValue("name", "Ada")

	assert.Equal(t, map[string]string{"email": MsgRequired}, f.Errors())
	assert.Equal(t, "Ada", f.Value("name"))
}

func TestForm_ValuesIsSnapshot(t *testing.T) {
	f := New(nil, Values{"a": 1})
	v := f.Values()
	v["a"] = 2
	assert.Equal(t, 1, f.Value("a"))
}

func TestForm_SubscribeAndUnsubscribe(t *testing.T) {
	f := New(nil, nil)
	var got []Values
	unsub := f.Subscribe(func(v Values) { got = append(got, v) })

	f.SetValue("a", 1)
	f.SetValues(Values{"b": 2})
	unsub()
	f.SetValue("c", 3)

	require.Len(t, got, 2)
	assert.Equal(t, Values{"a": 1}, got[0])
	assert.Equal(t, Values{"a": 1, "b": 2}, got[1])
}

func TestForm_ListenerWriteBackIsRedelivered(t *testing.T) {
	f := New(nil, nil)
	var seen []Values
	f.Subscribe(func(v Values) {
		seen = append(seen, v)
		if v["country"] == "NL" && v["city"] != nil {
			f.SetValue("city", nil)
		}
	})
	f.SetValue("city", "Paris")
	f.SetValue("country", "NL")

	require.Len(t, seen, 3)
	assert.Equal(t, Values{"city": nil, "country": "NL"}, seen[2])
	assert.Nil(t, f.Value("city"))
}

func TestForm_VisibleFields(t *testing.T) {
	fields := []Field{
		TextField{Spec: Spec{Name: "kind"}},
		TextField{Spec: Spec{Name: "company", Visible: func(v Values) bool { return v["kind"] == "business" }}},
		TextField{Spec: Spec{Name: "note"}},
	}
	f := New(fields, Values{"kind": "person"})

	names := func(fs []Field) []string {
		var out []string
		for _, fd := range fs {
			out = append(out, fd.FieldSpec().Name)
		}
		return out
	}
	assert.Equal(t, []string{"kind", "note"}, names(f.VisibleFields(nil)))
	f.SetValue("kind", "business")
	assert.Equal(t, []string{"kind", "company", "note"}, names(f.VisibleFields(nil)))
	assert.Equal(t, []string{"company"}, names(f.VisibleFields([]string{"company"})))
}

func TestForm_BeginSubmitRefusesDuplicate(t *testing.T) {
	f := New(nil, nil)
	done, err := f.BeginSubmit()
	require.NoError(t, err)
	assert.True(t, f.Submitting())

	_, err = f.BeginSubmit()
	assert.ErrorIs(t, err, ErrSubmitting)

	done()
	assert.False(t, f.Submitting())
	_, err = f.BeginSubmit()
	assert.NoError(t, err)
}

func TestForm_ResetClearsErrors(t *testing.T) {
	f := New(nil, Values{"a": 1})
	f.SetErrors(map[string]string{"a": "bad"})
	f.Reset(Values{"b": 2})
	assert.Empty(t, f.Errors())
	assert.Equal(t, Values{"b": 2}, f.Values())
}

func TestForm_ValidateScopesToNamedVisibleFields(t *testing.T) {
	fields := []Field{
		TextField{Spec: Spec{Name: "name", Required: true}},
		TextField{Spec: Spec{Name: "company", Required: true, Visible: func(v Values) bool { return v["kind"] == "business" }}},
		TextField{Spec: Spec{Name: "phone", Required: true}},
	}
	f := New(fields, Values{"kind": "person"})

	err := f.Validate(nil, []string{"name", "company"})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, map[string]string{"name": MsgRequired}, ve.Fields)
	assert.Equal(t, map[string]string{"name": MsgRequired}, f.Errors())

	f.SetValue("name", "Ada")
	require.NoError(t, f.Validate(nil, []string{"name", "company"}))

	err = f.Validate(Required("email"), nil)
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, map[string]string{"phone": MsgRequired, "email": MsgRequired}, ve.Fields)
}
