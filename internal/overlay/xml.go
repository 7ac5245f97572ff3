package overlay

import (
	"encoding/xml"
	"strings"
)

// Element is the XML representation of one overlay entry. Both the
// <overlay> and the legacy <repo> tag are accepted on the way in; the
// canonical form written back out always uses <overlay>.
type Element struct {
	XMLName     xml.Name
	Name        string          `xml:"name,attr"`
	Description string          `xml:"description,omitempty"`
	Homepage    string          `xml:"homepage,omitempty"`
	Owner       *OwnerElement   `xml:"owner,omitempty"`
	Priority    int             `xml:"priority,omitempty"`
	Quality     string          `xml:"quality,omitempty"`
	Status      string          `xml:"status,omitempty"`
	Sources     []SourceElement `xml:"source"`
}

// OwnerElement carries the contact sub-element of an overlay entry.
type OwnerElement struct {
	Name  string `xml:"name,omitempty"`
	Email string `xml:"email,omitempty"`
}

// SourceElement is one <source> child: a type attribute and the URI
// as text content.
type SourceElement struct {
	Type string `xml:"type,attr"`
	URI  string `xml:",chardata"`
}

// Spec converts a parsed element into the builder intermediate. No
// validation happens here; New rejects malformed records.
func (e *Element) Spec() Spec {
	spec := Spec{
		Name:        e.Name,
		Description: strings.TrimSpace(e.Description),
		Homepage:    strings.TrimSpace(e.Homepage),
		Priority:    e.Priority,
		Quality:     Quality(strings.TrimSpace(e.Quality)),
		Status:      strings.TrimSpace(e.Status),
	}
	if e.Owner != nil {
		spec.OwnerName = strings.TrimSpace(e.Owner.Name)
		spec.OwnerEmail = strings.TrimSpace(e.Owner.Email)
	}
	for _, src := range e.Sources {
		spec.Sources = append(spec.Sources, Source{
			Type: SourceType(src.Type),
			URI:  strings.TrimSpace(src.URI),
		})
	}
	return spec
}

// Element returns the canonical XML representation of the overlay,
// the inverse of constructing it from one.
func (o *Overlay) Element() Element {
	el := Element{
		XMLName:     xml.Name{Local: "overlay"},
		Name:        o.Name,
		Description: o.Description,
		Homepage:    o.Homepage,
		Priority:    o.Priority,
		Quality:     string(o.Quality),
		Status:      o.Status,
	}
	if o.OwnerName != "" || o.OwnerEmail != "" {
		el.Owner = &OwnerElement{Name: o.OwnerName, Email: o.OwnerEmail}
	}
	for _, src := range o.Sources {
		el.Sources = append(el.Sources, SourceElement{Type: string(src.Type), URI: src.URI})
	}
	return el
}
