// Command entityui serves declarative entity tables and forms to remote
// renderers.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/matthewbaird/entityui/internal/config"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	v := config.New()
	var cfgFile string

	root := &cobra.Command{
		Use:          "entityui",
		Short:        "Declarative entity tables and forms",
		Long:         "Serves table and form state for entities described in CUE to browser and terminal renderers.",
		SilenceUsage: true,
	}
	flags := root.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "", "config file (default ./entityui.yaml when present)")
	flags.String("entities", "", "directory of the CUE entity package")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-format", "", "log format: json, json-pretty, text")
	// Flags override the file and environment only when set explicitly.
	_ = v.BindPFlag("entities.dir", flags.Lookup("entities"))
	_ = v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = v.BindPFlag("log.format", flags.Lookup("log-format"))

	load := func() (config.Config, error) {
		return config.Load(v, cfgFile)
	}
	root.AddCommand(newServeCommand(v, load), newCheckCommand(load))
	return root
}
