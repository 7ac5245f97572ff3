package manager

import (
	"fmt"
	"strings"

	"github.com/overlay-tools/ovm/internal/overlay"
)

// RepoMessage pairs an overlay id with the outcome text recorded for
// it during a batch operation.
type RepoMessage struct {
	ID      string
	Message string
}

// SyncResult is the classified outcome of one sync batch. Entries
// keep the caller-supplied id order.
type SyncResult struct {
	Success  []RepoMessage
	Warnings []RepoMessage
	Fatals   []RepoMessage
}

// Overall reports whether the batch succeeded. Warnings are advisory;
// only fatal entries fail a batch.
func (r *SyncResult) Overall() bool {
	return len(r.Fatals) == 0
}

// RepoInfo is the recorded metadata of one overlay, sourced from the
// available list.
type RepoInfo struct {
	Name        string
	OwnerName   string
	OwnerEmail  string
	Homepage    string
	Description string
	SrcURIs     []string
	SrcType     overlay.SourceType
	Priority    int
	Quality     overlay.Quality
	Status      string
	Official    bool
	Supported   bool
}

// InfoStr pairs the rendered info block of an overlay with its
// classification flags.
type InfoStr struct {
	Info      string
	Official  bool
	Supported bool
}

// renamedWarning is the advisory recorded when an installed overlay
// no longer appears in the remote lists.
func renamedWarning(id string) string {
	return fmt.Sprintf("overlay %q could not be found in the remote lists.\n"+
		"Please check if it has been renamed and re-add if necessary.", id)
}

// driftWarning returns a non-empty message when the installed primary
// source no longer appears among the sources the remote lists
// advertise for the same overlay. Candidate phrasing is singular or
// plural depending on how many URIs the remote definition carries.
func driftWarning(id string, installed, available *overlay.Overlay) string {
	current := installed.PrimarySource().URI
	candidates := available.SourceURIs()
	for _, uri := range candidates {
		if uri == current {
			return ""
		}
	}

	var plural, list string
	if len(candidates) == 1 {
		list = "  " + candidates[0]
	} else {
		plural = "s"
		lines := make([]string, 0, len(candidates))
		for i, uri := range candidates {
			lines = append(lines, fmt.Sprintf("  %d. %s", i+1, uri))
		}
		list = strings.Join(lines, "\n")
	}

	return fmt.Sprintf("the source of the overlay %q seems to have changed.\n"+
		"You currently sync from\n"+
		"\n"+
		"  %s\n"+
		"\n"+
		"while the remote lists report\n"+
		"\n"+
		"%s\n"+
		"\n"+
		"as correct location%s.\n"+
		"Please consider removing and re-adding the overlay.",
		id, current, list, plural)
}
