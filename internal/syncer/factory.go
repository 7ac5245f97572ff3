package syncer

import (
	"github.com/go-logr/logr"

	"github.com/overlay-tools/ovm/internal/overlay"
)

// DefaultDispatcher wires up the built-in adapters: go-git for git
// sources, plus a command adapter for every source type that has a
// tool configured. Source types absent from both stay unregistered
// and fail sync with a descriptive error.
func DefaultDispatcher(toolCommands map[overlay.SourceType]string, log logr.Logger) *Dispatcher {
	d := NewDispatcher(log)
	d.Register(overlay.TypeGit, NewGitAdapter(log))
	for sourceType, command := range toolCommands {
		if sourceType == overlay.TypeGit || command == "" {
			continue
		}
		d.Register(sourceType, NewCommandAdapter(sourceType, command, log))
	}
	return d
}
