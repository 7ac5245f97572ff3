package overlay

import (
	"fmt"
	"strings"
)

const (
	nameColumn = 25
	typeColumn = 10

	// summaryOverhead is the fixed number of columns a summary line
	// spends on the name field, the type field and their separators,
	// leaving width-summaryOverhead columns for the primary URI.
	summaryOverhead = 43

	defaultWidth = 80

	descriptionWrap = 70
)

// pad fits text into width columns, space-padding short values and
// truncating long ones with an ellipsis.
func pad(text string, width int) string {
	if len(text) <= width {
		return text + strings.Repeat(" ", width-len(text))
	}
	if width <= 3 {
		return text[:width]
	}
	return text[:width-3] + "..."
}

// ShortSummary renders the one-line listing entry bounded to width
// columns: the padded name, the bracketed type of the primary source
// and its URI.
func (o *Overlay) ShortSummary(width int) string {
	if width <= summaryOverhead {
		width = defaultWidth
	}
	uriWidth := width - summaryOverhead

	src := o.PrimarySource()
	uri := src.URI
	if len(uri) > uriWidth {
		// Compress the well-known list host before truncating.
		uri = strings.Replace(uri, "overlays.gentoo.org", "o.g.o", 1)
	}

	return pad(o.Name, nameColumn) + " [" + pad(src.Type.Label(), typeColumn) + "] (" + pad(uri, uriWidth) + ")"
}

// FullInfo renders the multi-line, human-readable description of the
// overlay: name header, sources, contact, type, priority, quality and
// the wrapped description text.
func (o *Overlay) FullInfo() string {
	var b strings.Builder

	b.WriteString(o.Name + "\n")
	b.WriteString(strings.Repeat("~", len(o.Name)) + "\n")

	for i, src := range o.Sources {
		if i == 0 {
			b.WriteString("Source  : " + src.URI + "\n")
		} else {
			b.WriteString("          " + src.URI + "\n")
		}
	}
	if o.Homepage != "" {
		b.WriteString("Link    : " + o.Homepage + "\n")
	}
	if contact := o.contact(); contact != "" {
		b.WriteString("Contact : " + contact + "\n")
	}
	b.WriteString(fmt.Sprintf("Type    : %s; Priority: %d\n", o.PrimarySource().Type.Label(), o.Priority))
	if o.Quality != "" {
		b.WriteString("Quality : " + string(o.Quality) + "\n")
	}

	if o.Description != "" {
		b.WriteString("\nDescription:\n")
		for _, line := range wrap(o.Description, descriptionWrap) {
			b.WriteString("  " + line + "\n")
		}
	}

	return b.String()
}

func (o *Overlay) contact() string {
	switch {
	case o.OwnerName != "" && o.OwnerEmail != "":
		return o.OwnerName + " <" + o.OwnerEmail + ">"
	case o.OwnerEmail != "":
		return o.OwnerEmail
	default:
		return o.OwnerName
	}
}

// wrap breaks text into lines of at most width columns on word
// boundaries. Words longer than width get a line of their own.
func wrap(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		if len(current)+1+len(word) > width {
			lines = append(lines, current)
			current = word
			continue
		}
		current += " " + word
	}
	return append(lines, current)
}
