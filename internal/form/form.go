package form

import (
	"errors"
	"sync"
)

// ErrSubmitting is returned when a submit starts while another is in flight.
var ErrSubmitting = errors.New("form: submission already in progress")

// Listener receives a snapshot of the values after a change.
type Listener func(Values)

// Form is the state container for one mounted form. All writes go through
// its setters; listeners run outside the lock and may write back into the
// form, in which case they are notified again with the newer snapshot.
type Form struct {
	fields []Field

	mu         sync.Mutex
	values     Values
	errs       map[string]string
	submitting bool
	listeners  map[int]Listener
	nextID     int
	notifying  bool
	dirty      bool
}

// New returns a form over fields seeded with initial values.
func New(fields []Field, initial Values) *Form {
	if initial == nil {
		initial = Values{}
	}
	return &Form{
		fields:    fields,
		values:    initial.Clone(),
		errs:      map[string]string{},
		listeners: map[int]Listener{},
	}
}

// Fields returns the configured fields in order.
func (f *Form) Fields() []Field {
	return f.fields
}

// Field returns the named field.
func (f *Form) Field(name string) (Field, bool) {
	for _, fd := range f.fields {
		if fd.FieldSpec().Name == name {
			return fd, true
		}
	}
	return nil, false
}

// VisibleFields returns the fields whose condition holds for the current
// values, restricted to names when names is non-nil.
func (f *Form) VisibleFields(names []string) []Field {
	v := f.Values()
	var allow map[string]bool
	if names != nil {
		allow = make(map[string]bool, len(names))
		for _, n := range names {
			allow[n] = true
		}
	}
	var out []Field
	for _, fd := range f.fields {
		s := fd.FieldSpec()
		if allow != nil && !allow[s.Name] {
			continue
		}
		if s.VisibleIn(v) {
			out = append(out, fd)
		}
	}
	return out
}

// Values returns a snapshot of the current values.
func (f *Form) Values() Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values.Clone()
}

// Value returns the current value of name.
func (f *Form) Value(name string) any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values[name]
}

// SetValue sets one value and clears that field's error.
func (f *Form) SetValue(name string, v any) {
	f.mu.Lock()
	f.values[name] = v
	delete(f.errs, name)
	f.mu.Unlock()
	f.changed()
}

// SetValues merges vs into the current values.
func (f *Form) SetValues(vs Values) {
	f.mu.Lock()
	for k, v := range vs {
		f.values[k] = v
		delete(f.errs, k)
	}
	f.mu.Unlock()
	f.changed()
}

// Reset replaces all values and clears errors.
func (f *Form) Reset(vs Values) {
	if vs == nil {
		vs = Values{}
	}
	f.mu.Lock()
	f.values = vs.Clone()
	f.errs = map[string]string{}
	f.mu.Unlock()
	f.changed()
}

// Errors returns a copy of the field errors.
func (f *Form) Errors() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(f.errs))
	for k, v := range f.errs {
		out[k] = v
	}
	return out
}

// SetErrors attaches errs to the form, replacing messages for the same
// fields.
func (f *Form) SetErrors(errs map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k, v := range errs {
		f.errs[k] = v
	}
}

// ClearErrors removes errors for names, or all errors when none are given.
func (f *Form) ClearErrors(names ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(names) == 0 {
		f.errs = map[string]string{}
		return
	}
	for _, n := range names {
		delete(f.errs, n)
	}
}

// Submitting reports whether a submission is in flight.
func (f *Form) Submitting() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitting
}

// BeginSubmit marks a submission as started. It returns ErrSubmitting if one
// is already in flight; otherwise the caller must call the returned func when
// done.
func (f *Form) BeginSubmit() (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitting {
		return nil, ErrSubmitting
	}
	f.submitting = true
	return func() {
		f.mu.Lock()
		f.submitting = false
		f.mu.Unlock()
	}, nil
}

// Subscribe registers fn for value changes and returns a func that removes it.
func (f *Form) Subscribe(fn Listener) func() {
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.listeners[id] = fn
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		delete(f.listeners, id)
		f.mu.Unlock()
	}
}

// changed notifies listeners. Only one goroutine drains at a time; writes
// made while it runs (including by listeners) mark the form dirty and are
// delivered by the drainer as a fresh snapshot.
func (f *Form) changed() {
	f.mu.Lock()
	if f.notifying {
		f.dirty = true
		f.mu.Unlock()
		return
	}
	f.notifying = true
	for {
		f.dirty = false
		snap := f.values.Clone()
		ls := make([]Listener, 0, len(f.listeners))
		for id := 0; id < f.nextID; id++ {
			if l, ok := f.listeners[id]; ok {
				ls = append(ls, l)
			}
		}
		f.mu.Unlock()

		for _, l := range ls {
			l(snap)
		}

		f.mu.Lock()
		if !f.dirty {
			f.notifying = false
			f.mu.Unlock()
			return
		}
	}
}

// Hidden returns the names of declared fields whose condition is false for
// the current values.
func (f *Form) Hidden() map[string]bool {
	v := f.Values()
	out := map[string]bool{}
	for _, fd := range f.fields {
		if s := fd.FieldSpec(); !s.VisibleIn(v) {
			out[s.Name] = true
		}
	}
	return out
}

// Validate checks the values against s and the Required flag of each
// declared field. Only the named fields are checked when names is non-nil;
// hidden fields are never checked. Previous errors for the checked fields are
// replaced, and a *ValidationError is returned when any remain.
func (f *Form) Validate(s Schema, names []string) error {
	hidden := f.Hidden()
	var scope map[string]bool
	if names != nil {
		scope = make(map[string]bool, len(names))
		for _, n := range names {
			scope[n] = true
		}
	}
	inScope := func(n string) bool {
		return !hidden[n] && (scope == nil || scope[n])
	}

	var required []string
	for _, fd := range f.fields {
		if sp := fd.FieldSpec(); sp.Required && inScope(sp.Name) {
			required = append(required, sp.Name)
		}
	}
	errs := map[string]string{}
	for n, msg := range All(Required(required...), s).Validate(f.Values()) {
		if inScope(n) {
			errs[n] = msg
		}
	}

	f.mu.Lock()
	for n := range f.errs {
		if inScope(n) {
			delete(f.errs, n)
		}
	}
	for n, msg := range errs {
		f.errs[n] = msg
	}
	f.mu.Unlock()
	return Invalid(errs)
}
