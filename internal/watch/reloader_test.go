package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/conduit-lang/relmap/internal/events"
	"github.com/conduit-lang/relmap/internal/orm/schema"
)

const postsOnly = `
models:
  - name: Post
`

const postsAndUsers = `
models:
  - name: Post
    relations:
      - {name: author, type: belongs_to, model: User}
  - name: User
`

func writeModels(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write model file: %v", err)
	}
}

type recorder struct {
	mu     sync.Mutex
	events []events.ModelMapUpdated
}

func (r *recorder) handle(_ context.Context, e events.ModelMapUpdated) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func TestReloader_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.yml")
	writeModels(t, path, postsOnly)

	registry := schema.NewRegistry()
	bus := events.NewBus()
	rec := &recorder{}
	bus.Subscribe(rec.handle)

	reloader := NewReloader(path, registry, bus, nil)
	if err := reloader.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() returned error: %v", err)
	}
	if got := registry.Names(); len(got) != 1 || got[0] != "Post" {
		t.Errorf("Expected [Post], got %v", got)
	}

	writeModels(t, path, postsAndUsers)
	if err := reloader.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() returned error: %v", err)
	}
	if registry.Count() != 2 {
		t.Errorf("Expected 2 models, got %v", registry.Names())
	}

	if rec.count() != 2 {
		t.Fatalf("Expected 2 events, got %d", rec.count())
	}
	if rec.events[1].Source != "watch" || len(rec.events[1].Models) != 0 {
		t.Errorf("Unexpected event %+v", rec.events[1])
	}
}

func TestReloader_InvalidFileKeepsModels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.yml")
	writeModels(t, path, postsAndUsers)

	registry := schema.NewRegistry()
	bus := events.NewBus()
	rec := &recorder{}
	bus.Subscribe(rec.handle)

	reloader := NewReloader(path, registry, bus, nil)
	if err := reloader.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() returned error: %v", err)
	}

	writeModels(t, path, "models:\n  - name: Post\n    relations:\n      - {name: author, type: belongs_to, model: Ghost}\n")
	if err := reloader.Reload(context.Background()); err == nil {
		t.Fatal("Expected an error for a relation to an unknown model")
	}

	if registry.Count() != 2 {
		t.Errorf("Expected previous models to be kept, got %v", registry.Names())
	}
	if rec.count() != 1 {
		t.Errorf("Expected no event for a failed reload, got %d", rec.count())
	}
}

func TestReloader_Watch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.yml")
	writeModels(t, path, postsOnly)

	registry := schema.NewRegistry()
	bus := events.NewBus()
	rec := &recorder{}
	bus.Subscribe(rec.handle)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- NewReloader(path, registry, bus, nil).Watch(ctx)
	}()

	// Allow watcher to initialize
	time.Sleep(200 * time.Millisecond)
	writeModels(t, path, postsAndUsers)

	if !waitFor(2*time.Second, func() bool { return registry.Count() == 2 }) {
		t.Errorf("Expected models to be reloaded, got %v", registry.Names())
	}
	if !waitFor(time.Second, func() bool { return rec.count() > 0 }) {
		t.Error("Expected a model map update event")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch() returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watch() did not return after cancel")
	}
}
