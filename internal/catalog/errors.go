package catalog

import "fmt"

// UnknownOverlayError reports a lookup for a name the catalog does
// not contain.
type UnknownOverlayError struct {
	Name string
}

func (e *UnknownOverlayError) Error() string {
	return fmt.Sprintf("overlay %q does not exist", e.Name)
}

// BrokenCatalogError reports a catalog document that is not
// well-formed XML. Line and Column point at the input position the
// parser gave up at.
type BrokenCatalogError struct {
	Origin string
	Line   int
	Column int
	Hint   string
	Err    error
}

func (e *BrokenCatalogError) Error() string {
	msg := fmt.Sprintf("XML parsing failed for %q (line %d, column %d)", e.Origin, e.Line, e.Column)
	if e.Hint != "" {
		msg += "\nHint: " + e.Hint
	}
	return msg
}

func (e *BrokenCatalogError) Unwrap() error {
	return e.Err
}
