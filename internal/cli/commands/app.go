package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/relmap/internal/cache"
	"github.com/conduit-lang/relmap/internal/cli/config"
	"github.com/conduit-lang/relmap/internal/cli/ui"
	"github.com/conduit-lang/relmap/internal/events"
	"github.com/conduit-lang/relmap/internal/logging"
	"github.com/conduit-lang/relmap/internal/mapper"
	"github.com/conduit-lang/relmap/internal/orm/loader"
	"github.com/conduit-lang/relmap/internal/orm/schema"
)

// app wires one mapper per process: models are loaded into a registry, the
// mapper caches their graphs and rebuilds them whenever the bus announces a
// model map update
type app struct {
	config   *config.Config
	logger   *zap.Logger
	registry *schema.Registry
	mapper   *mapper.Mapper
	bus      *events.Bus
	closers  []func() error
}

func newApp(ctx context.Context, opts *globalOptions) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(logging.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
	})
	if err != nil {
		return nil, err
	}

	a := &app{
		config:   cfg,
		logger:   logger,
		registry: schema.NewRegistry(),
		bus:      events.NewBus(),
	}
	a.closers = append(a.closers, func() error {
		logger.Sync()
		return nil
	})

	if err := a.init(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) init(ctx context.Context) error {
	defs, err := a.loadModels(ctx)
	if err != nil {
		return err
	}
	if err := a.registry.Register(defs...); err != nil {
		return fmt.Errorf("failed to register models: %w", err)
	}

	store, err := a.openCache()
	if err != nil {
		return err
	}

	policy, err := mapper.ParsePolicy(a.config.Mapper.Policy, a.config.Mapper.MaxDepth)
	if err != nil {
		return err
	}

	a.mapper = mapper.New(a.registry, store,
		mapper.WithPolicy(policy),
		mapper.WithLogger(a.logger))
	a.mapper.Listen(a.bus, a.registry.Names)

	a.logger.Debug("relmap ready",
		zap.Int("models", a.registry.Count()),
		zap.Stringer("policy", policy),
		zap.String("cache", a.config.Cache.Driver))
	return nil
}

func (a *app) loadModels(ctx context.Context) ([]*schema.Definition, error) {
	if a.config.Models.Source != "database" {
		return loader.LoadFile(a.config.Models.Path)
	}

	db, dialect, err := loader.Open(a.config.Database.Driver, a.config.Database.DSN)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	return loader.NewDatabaseLoader(db, dialect,
		loader.WithSchema(a.config.Database.Schema),
		loader.WithLogger(a.logger),
	).Load(ctx)
}

func (a *app) openCache() (cache.Store, error) {
	base := cache.Config{Prefix: a.config.Cache.Prefix}

	if a.config.Cache.Driver != "redis" {
		return cache.NewMemoryStoreWithConfig(base), nil
	}

	store, err := cache.NewRedisStore(cache.RedisConfig{
		Addr:     a.config.Cache.Redis.Addr,
		Password: a.config.Cache.Redis.Password,
		DB:       a.config.Cache.Redis.DB,
		Config:   base,
	})
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, store.Close)
	return store, nil
}

// requireModel reports a model that is not registered along with close
// matches
func (a *app) requireModel(cmd *cobra.Command, opts *globalOptions, model string) error {
	if a.registry.Exists(model) {
		return nil
	}
	suggestions := ui.FindSimilar(model, a.registry.Names())
	fmt.Fprint(cmd.ErrOrStderr(), ui.ModelNotFoundError(model, suggestions, opts.noColor))
	return &reportedError{err: fmt.Errorf("%w: %s", schema.ErrUnknownModel, model)}
}

// Close releases the cache connection and flushes the logger
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// withApp builds the app for one command run and closes it afterwards
func withApp(cmd *cobra.Command, opts *globalOptions, fn func(a *app) error) error {
	a, err := newApp(cmd.Context(), opts)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(a)
}
