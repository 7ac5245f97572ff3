package syncer

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/go-git/go-git/v5"
	"github.com/go-logr/logr"

	"github.com/overlay-tools/ovm/internal/overlay"
)

// GitAdapter syncs git sources with go-git: a missing working copy is
// cloned, an existing one is fast-forwarded from its origin remote.
type GitAdapter struct {
	log logr.Logger
}

// NewGitAdapter creates a git adapter.
func NewGitAdapter(log logr.Logger) *GitAdapter {
	return &GitAdapter{log: log}
}

// Sync implements Adapter.
func (a *GitAdapter) Sync(ctx context.Context, src overlay.Source, dest string, quiet bool) error {
	repo, err := git.PlainOpen(dest)
	switch {
	case err == nil:
		return a.pull(ctx, repo, src, dest, quiet)
	case errors.Is(err, git.ErrRepositoryNotExists):
		return a.clone(ctx, src, dest, quiet)
	default:
		return &SyncError{Source: src, Dest: dest, Err: err}
	}
}

func (a *GitAdapter) clone(ctx context.Context, src overlay.Source, dest string, quiet bool) error {
	a.log.V(1).Info("cloning overlay working copy", "uri", src.URI, "dest", dest)
	opts := &git.CloneOptions{
		URL:          src.URI,
		Depth:        1,
		SingleBranch: true,
		Progress:     progressSink(quiet),
	}
	if _, err := git.PlainCloneContext(ctx, dest, false, opts); err != nil {
		return &SyncError{Source: src, Dest: dest, Err: err}
	}
	return nil
}

func (a *GitAdapter) pull(ctx context.Context, repo *git.Repository, src overlay.Source, dest string, quiet bool) error {
	worktree, err := repo.Worktree()
	if err != nil {
		return &SyncError{Source: src, Dest: dest, Err: err}
	}

	a.log.V(1).Info("updating overlay working copy", "uri", src.URI, "dest", dest)
	err = worktree.PullContext(ctx, &git.PullOptions{
		RemoteName:   "origin",
		SingleBranch: true,
		Progress:     progressSink(quiet),
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return &SyncError{Source: src, Dest: dest, Err: err}
	}
	return nil
}

func progressSink(quiet bool) io.Writer {
	if quiet {
		return nil
	}
	return os.Stderr
}
