package page

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/matthewbaird/entityui/internal/dependent"
	"github.com/matthewbaird/entityui/internal/entity"
	"github.com/matthewbaird/entityui/internal/event"
	"github.com/matthewbaird/entityui/internal/form"
	"github.com/matthewbaird/entityui/internal/metrics"
	"github.com/matthewbaird/entityui/internal/prefstore"
	"github.com/matthewbaird/entityui/internal/source"
)

// Factory mounts pages for sessions. It is built once at startup.
type Factory struct {
	Blueprints map[string]*Blueprint
	Sources    *source.Catalog
	Prefs      prefstore.Store
	Fetcher    dependent.Fetcher
	Publisher  event.Publisher
	CacheSize  int
	Log        logrus.FieldLogger
	Metrics    *metrics.Metrics
}

// Names lists the entities that have both a blueprint and a source.
func (f *Factory) Names() []string {
	var out []string
	for name := range f.Blueprints {
		if _, ok := f.Sources.Get(name); ok {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Blueprint returns the blueprint of entityName.
func (f *Factory) Blueprint(entityName string) (*Blueprint, error) {
	bp, ok := f.Blueprints[entityName]
	if !ok {
		return nil, &entity.ConfigError{
			Message:    fmt.Sprintf("unknown entity %q", entityName),
			Suggestion: entity.SuggestFrom(entityName, f.Names(), 2),
		}
	}
	return bp, nil
}

func (f *Factory) deps(session, entityName string) (Deps, error) {
	src, ok := f.Sources.Get(entityName)
	if !ok {
		return Deps{}, &entity.ConfigError{Entity: entityName, Message: "no data source configured"}
	}
	return Deps{
		Source:    src,
		Prefs:     f.Prefs,
		Publisher: f.Publisher,
		Session:   session,
		Log:       f.Log,
		Metrics:   f.Metrics,
	}, nil
}

// Table mounts the table of entityName for session.
func (f *Factory) Table(ctx context.Context, session, entityName string) (*TablePage, error) {
	bp, err := f.Blueprint(entityName)
	if err != nil {
		return nil, err
	}
	deps, err := f.deps(session, entityName)
	if err != nil {
		return nil, err
	}
	return NewTablePage(ctx, bp, deps), nil
}

// CreateForm mounts a create form of entityName for session.
func (f *Factory) CreateForm(session, entityName string, initial form.Values) (*FormPage, error) {
	bp, deps, err := f.formDeps(session, entityName)
	if err != nil {
		return nil, err
	}
	return OpenCreate(bp, deps, initial)
}

// EditForm mounts an edit form of the record id of entityName for session.
func (f *Factory) EditForm(ctx context.Context, session, entityName string, id entity.RowID) (*FormPage, error) {
	bp, deps, err := f.formDeps(session, entityName)
	if err != nil {
		return nil, err
	}
	return OpenEdit(ctx, bp, deps, id)
}

func (f *Factory) formDeps(session, entityName string) (*Blueprint, FormDeps, error) {
	bp, err := f.Blueprint(entityName)
	if err != nil {
		return nil, FormDeps{}, err
	}
	deps, err := f.deps(session, entityName)
	if err != nil {
		return nil, FormDeps{}, err
	}
	return bp, FormDeps{Deps: deps, Fetcher: f.Fetcher, CacheSize: f.CacheSize}, nil
}
