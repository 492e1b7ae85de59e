// Package seed loads demo records from the top-level "seed" struct of an
// entity CUE package and inserts them into empty sources.
//
//	seed: tenant: [
//		{name: "Ada", status: "active"},
//	]
package seed

import (
	"context"
	"fmt"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"github.com/sirupsen/logrus"

	"github.com/matthewbaird/entityui/internal/entity"
	"github.com/matthewbaird/entityui/internal/logging"
	"github.com/matthewbaird/entityui/internal/source"
)

// Data maps entity names to the records to seed.
type Data map[string][]entity.Record

// Seeder is implemented by sources that insert rows only when empty.
type Seeder interface {
	Seed(ctx context.Context, rows []entity.Record) error
}

// LoadDir reads the seed struct of the CUE package in dir. A package without
// one yields no data.
func LoadDir(dir string) (Data, error) {
	insts := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(insts) == 0 {
		return nil, fmt.Errorf("no CUE instances found in %s", dir)
	}
	if insts[0].Err != nil {
		return nil, fmt.Errorf("loading seed data: %w", insts[0].Err)
	}
	v := cuecontext.New().BuildInstance(insts[0])
	if v.Err() != nil {
		return nil, fmt.Errorf("building seed data: %w", v.Err())
	}
	return FromValue(v)
}

// FromValue decodes the seed struct of root.
func FromValue(root cue.Value) (Data, error) {
	sv := root.LookupPath(cue.ParsePath("seed"))
	if !sv.Exists() {
		return Data{}, nil
	}
	iter, err := sv.Fields()
	if err != nil {
		return nil, fmt.Errorf("reading seed: %w", err)
	}
	data := Data{}
	for iter.Next() {
		name := iter.Selector().String()
		var rows []entity.Record
		if err := iter.Value().Decode(&rows); err != nil {
			return nil, &entity.ConfigError{Entity: name, Path: "seed." + name, Message: err.Error()}
		}
		data[name] = rows
	}
	return data, nil
}

// Apply seeds every entity in data. Entities whose source already holds
// records are left alone.
func Apply(ctx context.Context, catalog *source.Catalog, data Data, log logrus.FieldLogger) error {
	log = logging.OrDiscard(log).WithField("component", "seed")

	names := make([]string, 0, len(data))
	for name := range data {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		src, ok := catalog.Get(name)
		if !ok {
			return &entity.ConfigError{
				Path:       "seed." + name,
				Message:    fmt.Sprintf("unknown entity %q", name),
				Suggestion: entity.SuggestFrom(name, catalog.Names(), 2),
			}
		}
		s, ok := src.(Seeder)
		if !ok {
			log.WithField("entity", name).Debug("source does not support seeding, skipping")
			continue
		}
		if err := s.Seed(ctx, data[name]); err != nil {
			return fmt.Errorf("seeding %s: %w", name, err)
		}
		log.WithFields(logrus.Fields{"entity": name, "rows": len(data[name])}).Info("seeded entity")
	}
	return nil
}
