// Package overlay defines the overlay entity: the descriptor of one
// secondary repository, its metadata and the ordered list of sources
// it can be synchronized from.
package overlay

import (
	"fmt"
	"strings"
)

// SourceType identifies the version-control or transport mechanism
// behind a single overlay source.
type SourceType string

// Known source types.
const (
	TypeSvn       SourceType = "svn"
	TypeRsync     SourceType = "rsync"
	TypeGit       SourceType = "git"
	TypeMercurial SourceType = "mercurial"
	TypeCvs       SourceType = "cvs"
	TypeBzr       SourceType = "bzr"
	TypeTar       SourceType = "tar"
)

var typeLabels = map[SourceType]string{
	TypeSvn:       "Subversion",
	TypeRsync:     "Rsync",
	TypeGit:       "Git",
	TypeMercurial: "Mercurial",
	TypeCvs:       "CVS",
	TypeBzr:       "Bazaar",
	TypeTar:       "Tar",
}

// Label returns the display name of the source type. Unrecognized
// types fall back to the raw type string so that new list formats
// still render.
func (t SourceType) Label() string {
	if label, ok := typeLabels[t]; ok {
		return label
	}
	return string(t)
}

// Quality is the declared maturity of an overlay.
type Quality string

// Known quality levels.
const (
	QualityExperimental Quality = "experimental"
	QualityTesting      Quality = "testing"
	QualityStable       Quality = "stable"
)

// Source is one protocol plus URI endpoint an overlay can be synced
// from. Ordering matters: the first source of an overlay is the
// primary endpoint, later ones are fallback candidates.
type Source struct {
	Type SourceType
	URI  string
}

// Spec is the intermediate record both construction paths converge
// on: parsing an XML element and accepting a structured record
// produce a Spec, and New is the single place the fields are
// validated.
type Spec struct {
	Name        string
	Description string
	Homepage    string
	OwnerName   string
	OwnerEmail  string
	Priority    int
	Quality     Quality
	Status      string
	Sources     []Source
}

// Overlay describes one repository. Build one with New; treat the
// fields as immutable once built. A catalog replaces entries
// wholesale instead of mutating them in place.
type Overlay struct {
	Name        string
	Description string
	Homepage    string
	OwnerName   string
	OwnerEmail  string
	Priority    int
	Quality     Quality
	Status      string
	Sources     []Source

	// Official and Supported are derived at construction time by the
	// classification policy the owning catalog was built with.
	Official  bool
	Supported bool
}

// New validates the spec and builds an overlay from it. An overlay
// without a name or without at least one source is malformed input
// and is rejected here, never stored. A nil policy classifies
// nothing as official and everything as supported.
func New(spec Spec, policy Policy) (*Overlay, error) {
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		return nil, fmt.Errorf("overlay entry has no name")
	}
	if len(spec.Sources) == 0 {
		return nil, fmt.Errorf("overlay %q declares no sources", name)
	}

	sources := make([]Source, len(spec.Sources))
	for i, src := range spec.Sources {
		uri := strings.TrimSpace(src.URI)
		if uri == "" {
			return nil, fmt.Errorf("overlay %q: source %d has an empty uri", name, i+1)
		}
		sources[i] = Source{Type: src.Type, URI: uri}
	}

	o := &Overlay{
		Name:        name,
		Description: spec.Description,
		Homepage:    spec.Homepage,
		OwnerName:   spec.OwnerName,
		OwnerEmail:  spec.OwnerEmail,
		Priority:    spec.Priority,
		Quality:     spec.Quality,
		Status:      spec.Status,
		Sources:     sources,
	}

	if policy == nil {
		policy = DefaultPolicy(nil)
	}
	o.Official = policy.Official(o)
	o.Supported = policy.Supported(o)

	return o, nil
}

// Spec returns the structured record the overlay was built from. It
// is how definitions are copied between catalogs without sharing the
// underlying value.
func (o *Overlay) Spec() Spec {
	sources := make([]Source, len(o.Sources))
	copy(sources, o.Sources)
	return Spec{
		Name:        o.Name,
		Description: o.Description,
		Homepage:    o.Homepage,
		OwnerName:   o.OwnerName,
		OwnerEmail:  o.OwnerEmail,
		Priority:    o.Priority,
		Quality:     o.Quality,
		Status:      o.Status,
		Sources:     sources,
	}
}

// SourceURIs returns the URIs of all sources in declared order.
func (o *Overlay) SourceURIs() []string {
	uris := make([]string, 0, len(o.Sources))
	for _, src := range o.Sources {
		uris = append(uris, src.URI)
	}
	return uris
}

// PrimarySource returns the first, preferred source of the overlay.
func (o *Overlay) PrimarySource() Source {
	return o.Sources[0]
}

// Equal reports whether two overlays carry the same metadata and the
// same sources in the same order.
func (o *Overlay) Equal(other *Overlay) bool {
	if o == nil || other == nil {
		return o == other
	}
	if o.Name != other.Name ||
		o.Description != other.Description ||
		o.Homepage != other.Homepage ||
		o.OwnerName != other.OwnerName ||
		o.OwnerEmail != other.OwnerEmail ||
		o.Priority != other.Priority ||
		o.Quality != other.Quality ||
		o.Status != other.Status {
		return false
	}
	if len(o.Sources) != len(other.Sources) {
		return false
	}
	for i := range o.Sources {
		if o.Sources[i] != other.Sources[i] {
			return false
		}
	}
	return true
}
