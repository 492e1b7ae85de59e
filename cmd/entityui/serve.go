package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	_ "modernc.org/sqlite"

	"github.com/matthewbaird/entityui/internal/config"
	"github.com/matthewbaird/entityui/internal/dependent"
	"github.com/matthewbaird/entityui/internal/entity"
	"github.com/matthewbaird/entityui/internal/eventbus"
	"github.com/matthewbaird/entityui/internal/logging"
	"github.com/matthewbaird/entityui/internal/metrics"
	"github.com/matthewbaird/entityui/internal/page"
	"github.com/matthewbaird/entityui/internal/prefstore"
	"github.com/matthewbaird/entityui/internal/seed"
	"github.com/matthewbaird/entityui/internal/server"
	"github.com/matthewbaird/entityui/internal/session"
	"github.com/matthewbaird/entityui/internal/source"
	"github.com/matthewbaird/entityui/internal/wire"
)

func newServeCommand(v *viper.Viper, load func() (config.Config, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and WebSocket server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			log, err := logging.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, log)
		},
	}
	cmd.Flags().String("addr", "", "listen address")
	cmd.Flags().String("db", "", "SQLite database path")
	cmd.Flags().Bool("seed", true, "seed empty entities from the CUE package")
	_ = v.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	_ = v.BindPFlag("database.path", cmd.Flags().Lookup("db"))
	_ = v.BindPFlag("entities.seed", cmd.Flags().Lookup("seed"))
	return cmd
}

func serve(ctx context.Context, cfg config.Config, log *logrus.Logger) error {
	reg, err := entity.NewLoader().LoadDir(cfg.Entities.Dir)
	if err != nil {
		return err
	}
	blueprints, err := page.CompileAll(reg)
	if err != nil {
		return err
	}

	db, err := sql.Open("sqlite", cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	prefs := prefstore.NewSQLiteStore(db)
	if err := prefs.CreateTable(ctx); err != nil {
		return err
	}

	bus := eventbus.New(cfg.Bus.Buffer, log)
	bus.Subscribe("log", eventbus.NewLogConsumer(log))

	catalog := source.NewCatalog()
	for i, name := range reg.Names() {
		src := source.NewSQLiteSource(db, name)
		if i == 0 {
			if err := src.CreateTable(ctx); err != nil {
				return err
			}
		}
		src.OnInvalidate(eventbus.Invalidations(bus, name))
		catalog.Add(name, src)
	}

	if cfg.Entities.Seed {
		data, err := seed.LoadDir(cfg.Entities.Dir)
		if err != nil {
			return err
		}
		if err := seed.Apply(ctx, catalog, data, log); err != nil {
			return err
		}
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	met := metrics.New(promReg)

	bus.Start(ctx)
	defer bus.Stop()

	sessions := session.NewManager(cfg.Session.MaxAge, cfg.Session.IdleTimeout, met, log)
	go sessions.Run(ctx, cfg.Session.CleanupInterval)

	factory := &page.Factory{
		Blueprints: blueprints,
		Sources:    catalog,
		Prefs:      prefs,
		Fetcher: &dependent.HTTPFetcher{
			Client:  &http.Client{Timeout: cfg.Options.Timeout},
			BaseURL: optionsBaseURL(cfg),
		},
		Publisher: bus,
		CacheSize: cfg.Options.CacheSize,
		Log:       log,
		Metrics:   met,
	}

	return server.Run(ctx, server.Config{
		Addr:            cfg.Server.Addr,
		Pages:           factory,
		WebSocket:       wire.NewHandler(sessions, factory, bus, log),
		Registry:        promReg,
		Log:             log,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
}

// optionsBaseURL defaults option requests to this server's own data API.
func optionsBaseURL(cfg config.Config) string {
	if cfg.Options.BaseURL != "" {
		return cfg.Options.BaseURL
	}
	addr := cfg.Server.Addr
	if strings.HasPrefix(addr, ":") {
		addr = "127.0.0.1" + addr
	}
	return "http://" + addr
}
