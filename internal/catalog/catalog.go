// Package catalog maintains a name-keyed collection of overlays
// loaded from one or more XML overlay lists, and serializes the
// collection back to its canonical XML form.
package catalog

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-logr/logr"
	"github.com/gofrs/flock"

	"github.com/overlay-tools/ovm/internal/overlay"
)

// Version is the schema version written into the root element of a
// serialized catalog.
const Version = "1.0"

// documentXML is the root element of an overlay list. Entries are
// accepted under either the <overlay> or the legacy <repo> tag.
type documentXML struct {
	XMLName  xml.Name          `xml:"repositories"`
	Version  string            `xml:"version,attr"`
	Overlays []overlay.Element `xml:"overlay"`
	Repos    []overlay.Element `xml:"repo"`
}

func (d *documentXML) entries() []overlay.Element {
	entries := make([]overlay.Element, 0, len(d.Overlays)+len(d.Repos))
	entries = append(entries, d.Overlays...)
	return append(entries, d.Repos...)
}

// Catalog is a mutable name→overlay mapping. It is not safe for
// concurrent use; the orchestration layer replaces whole catalogs
// instead of sharing one across writers.
type Catalog struct {
	overlays map[string]*overlay.Overlay
	policy   overlay.Policy
	log      logr.Logger
}

// Option configures a catalog.
type Option func(*Catalog)

// WithPolicy sets the classification policy applied to every overlay
// built by this catalog.
func WithPolicy(policy overlay.Policy) Option {
	return func(c *Catalog) {
		c.policy = policy
	}
}

// WithLogger sets the message sink. The default discards everything.
func WithLogger(log logr.Logger) Option {
	return func(c *Catalog) {
		c.log = log
	}
}

// New creates an empty catalog.
func New(opts ...Option) *Catalog {
	c := &Catalog{
		overlays: make(map[string]*overlay.Overlay),
		log:      logr.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load reads and merges every existing path in order. Paths that do
// not exist are skipped so that a first run against an empty state
// directory works. A document that fails to parse aborts the load for
// that document; entries merged from earlier documents remain.
func (c *Catalog) Load(paths ...string) error {
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				c.log.V(2).Info("overlay list does not exist, skipping", "path", path)
				continue
			}
			return fmt.Errorf("failed to read the overlay list at %q: %w", path, err)
		}
		if err := c.Read(data, path); err != nil {
			return err
		}
	}
	return nil
}

// Read parses an XML overlay list and merges its entries into the
// catalog, overwriting same-named entries wholesale.
func (c *Catalog) Read(text []byte, origin string) error {
	doc, err := parseDocument(text, origin)
	if err != nil {
		return err
	}

	for _, el := range doc.entries() {
		c.log.V(3).Info("parsing overlay entry", "origin", origin, "name", el.Name)
		ovl, err := overlay.New(el.Spec(), c.policy)
		if err != nil {
			return fmt.Errorf("invalid overlay entry in %q: %w", origin, err)
		}
		c.overlays[ovl.Name] = ovl
	}
	return nil
}

// AddNew merges overlay definitions given as raw XML text. It is the
// text twin of AddRecords; both converge on the same builder.
func (c *Catalog) AddNew(xmlText []byte, origin string) error {
	return c.Read(xmlText, origin)
}

// AddRecords merges overlay definitions given as structured records.
func (c *Catalog) AddRecords(specs ...overlay.Spec) error {
	for _, spec := range specs {
		ovl, err := overlay.New(spec, c.policy)
		if err != nil {
			return err
		}
		c.overlays[ovl.Name] = ovl
	}
	return nil
}

// Select returns the overlay stored under name.
func (c *Catalog) Select(name string) (*overlay.Overlay, error) {
	ovl, ok := c.overlays[name]
	if !ok {
		return nil, &UnknownOverlayError{Name: name}
	}
	return ovl, nil
}

// Has reports whether name is present in the catalog.
func (c *Catalog) Has(name string) bool {
	_, ok := c.overlays[name]
	return ok
}

// Remove drops name from the catalog. Removing an absent name is a
// no-op.
func (c *Catalog) Remove(name string) {
	delete(c.overlays, name)
}

// Len returns the number of overlays in the catalog.
func (c *Catalog) Len() int {
	return len(c.overlays)
}

// Entry is one listing row: the rendered text plus the classification
// flags of the overlay it describes.
type Entry struct {
	Text      string
	Supported bool
	Official  bool
}

// List renders every overlay, or only the named ones when filter is
// non-empty. Verbose entries carry the multi-line info block, terse
// ones the width-bounded summary line. Rows come back sorted
// case-insensitively by their text.
func (c *Catalog) List(filter []string, verbose bool, width int) []Entry {
	selected := make(map[string]bool, len(filter))
	for _, name := range filter {
		selected[name] = true
	}

	entries := make([]Entry, 0, len(c.overlays))
	for name, ovl := range c.overlays {
		if len(filter) > 0 && !selected[name] {
			continue
		}
		text := ovl.ShortSummary(width)
		if verbose {
			text = ovl.FullInfo()
		}
		entries = append(entries, Entry{
			Text:      text,
			Supported: ovl.Supported,
			Official:  ovl.Official,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return strings.ToLower(entries[i].Text) < strings.ToLower(entries[j].Text)
	})
	return entries
}

// ListIDs returns the sorted overlay names.
func (c *Catalog) ListIDs() []string {
	ids := make([]string, 0, len(c.overlays))
	for name := range c.overlays {
		ids = append(ids, name)
	}
	sort.Strings(ids)
	return ids
}

// Equal reports whether both catalogs hold the same name→overlay
// mapping.
func (c *Catalog) Equal(other *Catalog) bool {
	if len(c.overlays) != len(other.overlays) {
		return false
	}
	for name, ovl := range c.overlays {
		if !ovl.Equal(other.overlays[name]) {
			return false
		}
	}
	return true
}

// Write serializes the catalog to path as canonical XML: a versioned
// root element with one child per overlay, sorted by name. The
// document is staged in a temporary file and renamed into place so a
// failed write never leaves a truncated catalog behind, and an
// advisory lock serializes writers of the same path.
func (c *Catalog) Write(path string) error {
	doc := documentXML{Version: Version}
	for _, name := range c.ListIDs() {
		doc.Overlays = append(doc.Overlays, c.overlays[name].Element())
	}

	body, err := xml.MarshalIndent(&doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize the overlay list for %q: %w", path, err)
	}
	data := append([]byte(xml.Header), body...)
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to write the overlay list to %q: %w", path, err)
	}

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock the overlay list at %q: %w", path, err)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			c.log.Error(err, "failed to release the overlay list lock", "path", path)
		}
	}()

	if err := writeFileAtomic(path, data); err != nil {
		return fmt.Errorf("failed to write the overlay list to %q: %w", path, err)
	}
	c.log.V(1).Info("wrote overlay list", "path", path, "overlays", len(doc.Overlays))
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func parseDocument(text []byte, origin string) (*documentXML, error) {
	dec := xml.NewDecoder(bytes.NewReader(text))
	var doc documentXML
	if err := dec.Decode(&doc); err != nil {
		line, column := position(text, dec.InputOffset())
		return nil, &BrokenCatalogError{
			Origin: origin,
			Line:   line,
			Column: column,
			Err:    err,
		}
	}
	return &doc, nil
}

// position converts a byte offset into 1-based line and column
// numbers within text.
func position(text []byte, offset int64) (int, int) {
	if offset > int64(len(text)) {
		offset = int64(len(text))
	}
	line, column := 1, 1
	for _, b := range text[:offset] {
		if b == '\n' {
			line++
			column = 1
		} else {
			column++
		}
	}
	return line, column
}
