package syncer

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/go-logr/logr"

	"github.com/overlay-tools/ovm/internal/overlay"
)

// CommandAdapter shells out to a configured tool for source types
// that have no embeddable implementation, passing the arguments the
// tool's own sync invocation expects. The first sync of a working
// copy runs the checkout form of the tool, later syncs the update
// form.
type CommandAdapter struct {
	sourceType overlay.SourceType
	command    string
	log        logr.Logger
}

// NewCommandAdapter creates an adapter for sourceType driving the
// given binary.
func NewCommandAdapter(sourceType overlay.SourceType, command string, log logr.Logger) *CommandAdapter {
	return &CommandAdapter{
		sourceType: sourceType,
		command:    command,
		log:        log,
	}
}

// Sync implements Adapter.
func (a *CommandAdapter) Sync(ctx context.Context, src overlay.Source, dest string, quiet bool) error {
	if a.command == "" {
		return &SyncError{
			Source: src,
			Dest:   dest,
			Err:    fmt.Errorf("no %s command configured", a.sourceType),
		}
	}

	args, err := a.args(src, dest)
	if err != nil {
		return &SyncError{Source: src, Dest: dest, Err: err}
	}

	a.log.V(1).Info("running sync command", "command", a.command, "args", args)
	cmd := exec.CommandContext(ctx, a.command, args...)
	if !quiet {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	}
	if err := cmd.Run(); err != nil {
		return &SyncError{Source: src, Dest: dest, Err: err}
	}
	return nil
}

func (a *CommandAdapter) args(src overlay.Source, dest string) ([]string, error) {
	initial := !workingCopyExists(dest)

	switch a.sourceType {
	case overlay.TypeRsync:
		return []string{"-rlptDvz", "--progress", "--delete", "--delete-after", src.URI + "/", dest}, nil
	case overlay.TypeSvn:
		if initial {
			return []string{"checkout", src.URI, dest}, nil
		}
		return []string{"update", dest}, nil
	case overlay.TypeMercurial:
		if initial {
			return []string{"clone", src.URI, dest}, nil
		}
		return []string{"pull", "-u", "-R", dest}, nil
	case overlay.TypeBzr:
		if initial {
			return []string{"branch", src.URI, dest}, nil
		}
		return []string{"pull", "-d", dest}, nil
	case overlay.TypeCvs:
		if initial {
			return []string{"-d", src.URI, "checkout", "-d", dest, "."}, nil
		}
		return []string{"update", "-d", dest}, nil
	default:
		return nil, fmt.Errorf("source type %q has no command invocation", a.sourceType)
	}
}

func workingCopyExists(dest string) bool {
	info, err := os.Stat(dest)
	return err == nil && info.IsDir()
}
