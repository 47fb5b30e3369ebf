package watch

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/conduit-lang/relmap/internal/events"
	"github.com/conduit-lang/relmap/internal/orm/loader"
	"github.com/conduit-lang/relmap/internal/orm/schema"
)

// Reloader replaces the registered models with the content of a model file
// and publishes ModelMapUpdated
type Reloader struct {
	path     string
	registry *schema.Registry
	bus      *events.Bus
	logger   *zap.Logger
}

// NewReloader creates a reloader for the model file at path
func NewReloader(path string, registry *schema.Registry, bus *events.Bus, logger *zap.Logger) *Reloader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reloader{path: path, registry: registry, bus: bus, logger: logger}
}

// Reload reads the model file and swaps the registry content. A file that
// fails to load leaves the registry and the cache untouched.
func (r *Reloader) Reload(ctx context.Context) error {
	defs, err := loader.LoadFile(r.path)
	if err != nil {
		return err
	}
	if err := r.registry.Reset(defs...); err != nil {
		return fmt.Errorf("failed to reset models: %w", err)
	}

	event := events.NewModelMapUpdated("watch")
	r.logger.Info("reloaded models",
		zap.String("file", r.path),
		zap.Int("models", len(defs)),
		zap.Stringer("event", event.ID))

	return r.bus.Publish(ctx, event)
}

// Watch reloads on every change of the model file until ctx is done
func (r *Reloader) Watch(ctx context.Context) error {
	fw, err := NewFileWatcher([]string{r.path}, func([]string) error {
		return r.Reload(ctx)
	}, r.logger)
	if err != nil {
		return err
	}
	return r.run(ctx, fw)
}

func (r *Reloader) run(ctx context.Context, fw *FileWatcher) error {
	if err := fw.Start(); err != nil {
		fw.Stop()
		return err
	}

	<-ctx.Done()
	return fw.Stop()
}
