// Package events carries the in-process "model map updated" signal between
// whatever changes model definitions and the relation cache warmer.
package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ModelMapUpdated announces that model definitions changed.
// An empty Models list means every registered model.
type ModelMapUpdated struct {
	ID     uuid.UUID `json:"id"`
	Models []string  `json:"models"`
	Source string    `json:"source"`
	At     time.Time `json:"at"`
}

// NewModelMapUpdated creates an event with a fresh id
func NewModelMapUpdated(source string, models ...string) ModelMapUpdated {
	return ModelMapUpdated{
		ID:     uuid.New(),
		Models: models,
		Source: source,
		At:     time.Now(),
	}
}

// Handler reacts to a model map update
type Handler func(ctx context.Context, event ModelMapUpdated) error

// Bus delivers events to subscribers synchronously, in subscription order
type Bus struct {
	handlers []Handler
	mu       sync.RWMutex
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a handler for every future event
func (b *Bus) Subscribe(handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers = append(b.handlers, handler)
}

// Publish delivers the event to every subscriber. All handlers run even when
// one fails; their errors are joined.
func (b *Bus) Publish(ctx context.Context, event ModelMapUpdated) error {
	b.mu.RLock()
	snapshot := make([]Handler, len(b.handlers))
	copy(snapshot, b.handlers)
	b.mu.RUnlock()

	var errs []error
	for _, h := range snapshot {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := h(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of subscribers
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.handlers)
}
