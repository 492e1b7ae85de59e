// Package dependent loads the options of form fields whose choices depend on
// other fields. Each dependent field owns at most one pending fetch task,
// keyed by a hash of its dependency values; a newer change supersedes the
// task and any late result for an older key is dropped.
package dependent

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/matthewbaird/entityui/internal/entity"
	"github.com/matthewbaird/entityui/internal/form"
	"github.com/matthewbaird/entityui/internal/logging"
	"github.com/matthewbaird/entityui/internal/metrics"
)

const (
	DefaultDebounce  = 300 * time.Millisecond
	DefaultCacheSize = 128
)

// Status is the option state of one dependent field.
type Status int

const (
	StatusIdle Status = iota
	StatusAwaitingPrerequisite
	StatusLoading
	StatusReady
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusAwaitingPrerequisite:
		return "awaiting_prerequisite"
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Field declares one dependent field.
type Field struct {
	Name      string
	DependsOn []string
	// URLTemplate takes precedence, e.g. "/api/cities?country={country}".
	URLTemplate string
	// Endpoint names an entry of Config.Endpoints.
	Endpoint string
	// Transform rewrites dependency values before the request is built.
	Transform func(form.Values) form.Values
	// KeepValue disables clearing the field when a dependency changes.
	KeepValue bool
	// AutoSelect sets the field when exactly one option comes back.
	AutoSelect bool
	Debounce   time.Duration
}

// Config configures a Resolver.
type Config struct {
	Fields    []Field
	Endpoints map[string]string
	Fetcher   Fetcher
	Debounce  time.Duration
	// CacheSize bounds the option cache; negative disables caching.
	CacheSize int
	Log       logrus.FieldLogger
	Metrics   *metrics.Metrics
}

// State is the settled option state of a field.
type State struct {
	Field   string        `json:"field"`
	Status  Status        `json:"status"`
	Options []form.Option `json:"options,omitempty"`
	Error   string        `json:"error,omitempty"`
}

type task struct {
	key    uint64
	timer  *time.Timer
	cancel context.CancelFunc
}

func (t *task) stop() {
	t.timer.Stop()
	t.cancel()
}

type entry struct {
	field     Field
	baselined bool
	lastSeen  map[string]string
	latestKey uint64
	task      *task
	state     State
}

// Resolver tracks every dependent field of one form.
type Resolver struct {
	cfg   Config
	form  *form.Form
	log   logrus.FieldLogger
	cache *lru.Cache[uint64, []form.Option]

	mu        sync.Mutex
	closed    bool
	entries   map[string]*entry
	order     []string
	listeners []func(State)
	unsub     func()
}

// New builds a resolver for f. The current values are taken as the baseline
// and do not trigger fetches; call Refresh to load options for prefilled
// dependencies.
func New(f *form.Form, cfg Config) (*Resolver, error) {
	if cfg.Fetcher == nil {
		return nil, fmt.Errorf("dependent: fetcher is required")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	r := &Resolver{
		cfg:     cfg,
		form:    f,
		log:     logging.OrDiscard(cfg.Log).WithField("component", "dependent"),
		entries: make(map[string]*entry, len(cfg.Fields)),
	}
	if cfg.CacheSize >= 0 {
		size := cfg.CacheSize
		if size == 0 {
			size = DefaultCacheSize
		}
		cache, err := lru.New[uint64, []form.Option](size)
		if err != nil {
			return nil, fmt.Errorf("dependent: option cache: %w", err)
		}
		r.cache = cache
	}
	for _, fd := range cfg.Fields {
		if len(fd.DependsOn) == 0 {
			return nil, fmt.Errorf("dependent: field %s declares no dependencies", fd.Name)
		}
		if _, dup := r.entries[fd.Name]; dup {
			return nil, fmt.Errorf("dependent: field %s declared twice", fd.Name)
		}
		r.entries[fd.Name] = &entry{field: fd, state: State{Field: fd.Name}}
		r.order = append(r.order, fd.Name)
	}
	r.Observe(f.Values())
	r.unsub = f.Subscribe(r.Observe)
	return r, nil
}

// OnChange registers fn to receive every state change.
func (r *Resolver) OnChange(fn func(State)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// State returns the state of the named field.
func (r *Resolver) State(name string) (State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[name]
	if !ok {
		return State{}, false
	}
	return copyState(e.state), true
}

// States returns the state of every dependent field in declaration order.
func (r *Resolver) States() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]State, 0, len(r.order))
	for _, n := range r.order {
		out = append(out, copyState(r.entries[n].state))
	}
	return out
}

func copyState(s State) State {
	s.Options = append([]form.Option(nil), s.Options...)
	return s
}

// Observe compares values with each field's last settled snapshot and
// schedules or clears fetches. It is subscribed to the form by New.
func (r *Resolver) Observe(values form.Values) {
	var effects []func()

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	for _, name := range r.order {
		e := r.entries[name]
		snap := snapshot(values, e.field.DependsOn)
		if !e.baselined {
			e.baselined = true
			e.lastSeen = snap
			if anyEmpty(snap) {
				e.state = State{Field: name, Status: StatusAwaitingPrerequisite}
			}
			continue
		}
		if sameSnapshot(snap, e.lastSeen) {
			continue
		}
		e.lastSeen = snap
		if e.task != nil {
			e.task.stop()
			e.task = nil
		}
		if !e.field.KeepValue && !form.IsEmpty(values[name]) {
			effects = append(effects, r.clearValue(name))
		}
		if anyEmpty(snap) {
			e.latestKey = 0
			e.state = State{Field: name, Status: StatusAwaitingPrerequisite}
		} else {
			r.scheduleLocked(e, values.Pick(e.field.DependsOn), r.debounce(e.field))
		}
		effects = append(effects, r.notifier(e.state))
	}
	r.mu.Unlock()

	for _, fn := range effects {
		fn()
	}
}

// Refresh loads the options of name for its current dependency values
// without waiting for a change, as needed when an edit form opens with
// prefilled values. The field's value is kept.
func (r *Resolver) Refresh(name string) error {
	values := r.form.Values()

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	e, ok := r.entries[name]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("dependent: unknown field %s", name)
	}
	if e.task != nil {
		e.task.stop()
		e.task = nil
	}
	e.baselined = true
	e.lastSeen = snapshot(values, e.field.DependsOn)
	if anyEmpty(e.lastSeen) {
		e.latestKey = 0
		e.state = State{Field: name, Status: StatusAwaitingPrerequisite}
	} else {
		r.scheduleLocked(e, values.Pick(e.field.DependsOn), 0)
	}
	notify := r.notifier(e.state)
	r.mu.Unlock()

	notify()
	return nil
}

// RefreshAll calls Refresh for every dependent field.
func (r *Resolver) RefreshAll() {
	for _, n := range r.order {
		_ = r.Refresh(n)
	}
}

// Close cancels pending fetches and detaches from the form. Results that
// arrive afterwards are dropped.
func (r *Resolver) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	for _, e := range r.entries {
		if e.task != nil {
			e.task.stop()
			e.task = nil
		}
	}
	unsub := r.unsub
	r.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

func (r *Resolver) debounce(f Field) time.Duration {
	if f.Debounce > 0 {
		return f.Debounce
	}
	return r.cfg.Debounce
}

func (r *Resolver) scheduleLocked(e *entry, deps form.Values, delay time.Duration) {
	key := hashKey(e.field.Name, e.lastSeen)
	ctx, cancel := context.WithCancel(context.Background())
	t := &task{key: key, cancel: cancel}
	e.latestKey = key
	e.task = t
	e.state = State{Field: e.field.Name, Status: StatusLoading}
	t.timer = time.AfterFunc(delay, func() { r.run(ctx, e.field, t, deps) })
}

func (r *Resolver) run(ctx context.Context, f Field, t *task, deps form.Values) {
	log := r.log.WithFields(logrus.Fields{"field": f.Name, "key": t.key})

	if r.cache != nil {
		if opts, ok := r.cache.Get(t.key); ok {
			r.cfg.Metrics.OptionFetch(f.Name, metrics.FetchCached)
			r.settle(f.Name, t, opts, nil)
			return
		}
	}
	endpoint, err := Endpoint(f, r.cfg.Endpoints, deps)
	if err != nil {
		log.WithError(err).Error("resolving option endpoint")
		r.settle(f.Name, t, nil, err)
		return
	}
	opts, err := r.cfg.Fetcher.Fetch(ctx, endpoint)
	if ctx.Err() != nil {
		r.cfg.Metrics.OptionFetch(f.Name, metrics.FetchStale)
		log.Debug("option fetch superseded")
		return
	}
	if err != nil {
		log.WithError(err).WithField("endpoint", endpoint).Warn("option fetch failed")
		r.settle(f.Name, t, nil, err)
		return
	}
	if r.cache != nil {
		r.cache.Add(t.key, opts)
	}
	r.settle(f.Name, t, opts, nil)
}

// settle applies a fetch result if t is still the field's current task.
func (r *Resolver) settle(name string, t *task, opts []form.Option, err error) {
	var effects []func()

	r.mu.Lock()
	e := r.entries[name]
	if r.closed || e.task != t || e.latestKey != t.key {
		r.mu.Unlock()
		r.cfg.Metrics.OptionFetch(name, metrics.FetchStale)
		return
	}
	e.task = nil
	t.cancel()
	if err != nil {
		e.state = State{Field: name, Status: StatusError, Error: err.Error()}
		r.cfg.Metrics.OptionFetch(name, metrics.FetchError)
	} else {
		e.state = State{Field: name, Status: StatusReady, Options: append([]form.Option(nil), opts...)}
		r.cfg.Metrics.OptionFetch(name, metrics.FetchOK)
		if e.field.AutoSelect && len(opts) == 1 {
			v := opts[0].Value
			effects = append(effects, func() { r.form.SetValue(name, v) })
		}
	}
	effects = append(effects, r.notifier(e.state))
	r.mu.Unlock()

	for _, fn := range effects {
		fn()
	}
}

func (r *Resolver) clearValue(name string) func() {
	return func() { r.form.SetValue(name, nil) }
}

func (r *Resolver) notifier(st State) func() {
	ls := append(([]func(State))(nil), r.listeners...)
	st = copyState(st)
	return func() {
		for _, l := range ls {
			l(st)
		}
	}
}

func snapshot(values form.Values, deps []string) map[string]string {
	out := make(map[string]string, len(deps))
	for _, d := range deps {
		if form.IsEmpty(values[d]) {
			out[d] = ""
			continue
		}
		out[d] = entity.Format(values[d])
	}
	return out
}

func sameSnapshot(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if w, ok := b[k]; !ok || w != v {
			return false
		}
	}
	return true
}

func anyEmpty(snap map[string]string) bool {
	for _, v := range snap {
		if v == "" {
			return true
		}
	}
	return false
}

func hashKey(field string, snap map[string]string) uint64 {
	keys := make([]string, 0, len(snap))
	for k := range snap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	d := xxhash.New()
	_, _ = d.WriteString(field)
	for _, k := range keys {
		_, _ = d.WriteString("\x00" + k + "=" + snap[k])
	}
	return d.Sum64()
}
