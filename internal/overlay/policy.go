package overlay

import "strings"

// Policy decides the official and supported classification of an
// overlay. The rules behind both flags belong to the catalog
// distributor, not to this package, which is why they are injected
// instead of hard-coded.
type Policy interface {
	// Official reports whether the overlay is maintained by the
	// distribution itself.
	Official(o *Overlay) bool

	// Supported reports whether the overlay can be synced with the
	// tooling available on this system.
	Supported(o *Overlay) bool
}

// DefaultPolicy classifies an overlay as official when its status
// field says so, and as supported when every declared source uses one
// of the given types. A nil or empty type set treats every source
// type as supported.
func DefaultPolicy(supportedTypes []SourceType) Policy {
	supported := make(map[SourceType]bool, len(supportedTypes))
	for _, t := range supportedTypes {
		supported[t] = true
	}
	return &defaultPolicy{supported: supported}
}

type defaultPolicy struct {
	supported map[SourceType]bool
}

func (*defaultPolicy) Official(o *Overlay) bool {
	return strings.EqualFold(o.Status, "official")
}

func (p *defaultPolicy) Supported(o *Overlay) bool {
	if len(p.supported) == 0 {
		return true
	}
	for _, src := range o.Sources {
		if !p.supported[src.Type] {
			return false
		}
	}
	return true
}
