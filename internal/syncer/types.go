// Package syncer carries overlay sync intents to the mechanism behind
// each source type. The orchestration layer only sees the Adapter
// contract; everything protocol-specific lives behind it.
package syncer

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/overlay-tools/ovm/internal/overlay"
)

// Adapter syncs one source descriptor into a local working copy.
type Adapter interface {
	// Sync brings dest up to date with src, creating the working copy
	// on first use. quiet suppresses tool output.
	Sync(ctx context.Context, src overlay.Source, dest string, quiet bool) error
}

// SyncError wraps a failure reported while syncing one source.
type SyncError struct {
	Source overlay.Source
	Dest   string
	Err    error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("failed to sync %s source %q into %q: %v", e.Source.Type, e.Source.URI, e.Dest, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// Dispatcher routes each source to the adapter registered for its
// type. It implements Adapter itself so the orchestration layer can
// hold a single collaborator.
type Dispatcher struct {
	adapters map[overlay.SourceType]Adapter
	log      logr.Logger
}

// NewDispatcher creates an empty dispatcher. Register adapters before
// use, or start from a wired-up one via DefaultDispatcher.
func NewDispatcher(log logr.Logger) *Dispatcher {
	return &Dispatcher{
		adapters: make(map[overlay.SourceType]Adapter),
		log:      log,
	}
}

// Register binds an adapter to a source type, replacing any previous
// binding.
func (d *Dispatcher) Register(t overlay.SourceType, adapter Adapter) {
	d.adapters[t] = adapter
}

// Sync dispatches to the adapter registered for the source type.
func (d *Dispatcher) Sync(ctx context.Context, src overlay.Source, dest string, quiet bool) error {
	adapter, ok := d.adapters[src.Type]
	if !ok {
		return &SyncError{
			Source: src,
			Dest:   dest,
			Err:    fmt.Errorf("no sync mechanism registered for source type %q", src.Type),
		}
	}
	d.log.V(2).Info("dispatching sync", "type", src.Type, "uri", src.URI, "dest", dest)
	return adapter.Sync(ctx, src, dest, quiet)
}
