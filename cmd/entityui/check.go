package main

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/matthewbaird/entityui/internal/config"
	"github.com/matthewbaird/entityui/internal/entity"
	"github.com/matthewbaird/entityui/internal/page"
	"github.com/matthewbaird/entityui/internal/seed"
)

func newCheckCommand(load func() (config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the entity configuration and seed data",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return check(cmd.OutOrStdout(), cfg.Entities.Dir)
		},
	}
}

// check reports every configuration problem in dir, one per line.
func check(out io.Writer, dir string) error {
	reg, err := entity.NewLoader().LoadDir(dir)
	if err == nil {
		_, err = page.CompileAll(reg)
	}
	if err == nil {
		err = checkSeed(reg, dir)
	}

	var problems entity.ConfigErrors
	var single *entity.ConfigError
	switch {
	case err == nil:
		fmt.Fprintf(out, "ok: %d entities\n", reg.Len())
		return nil
	case errors.As(err, &problems):
	case errors.As(err, &single):
		problems = entity.ConfigErrors{single}
	default:
		return err
	}
	for _, p := range problems {
		fmt.Fprintln(out, p.Error())
	}
	return fmt.Errorf("%d configuration problems", len(problems))
}

func checkSeed(reg *entity.Registry, dir string) error {
	data, err := seed.LoadDir(dir)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(data))
	for name := range data {
		names = append(names, name)
	}
	sort.Strings(names)

	var problems entity.ConfigErrors
	for _, name := range names {
		if _, err := reg.Entity(name); err != nil {
			var ce *entity.ConfigError
			if errors.As(err, &ce) {
				ce.Path = "seed." + name
				problems = append(problems, ce)
				continue
			}
			return err
		}
	}
	if len(problems) == 0 {
		return nil
	}
	return problems
}
