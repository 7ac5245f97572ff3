package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/overlay-tools/ovm/internal/overlay"
)

const globalOverlaysXML = `<?xml version="1.0" encoding="UTF-8"?>
<repositories version="1.0">
  <overlay name="wrobel">
    <description>Test</description>
    <owner>
      <email>nobody@gentoo.org</email>
    </owner>
    <priority>10</priority>
    <quality>experimental</quality>
    <source type="svn">https://overlays.gentoo.org/svn/dev/wrobel</source>
  </overlay>
  <repo name="wrobel-stable">
    <description>A collection of ebuilds from Gunnar Wrobel [wrobel@gentoo.org].</description>
    <owner>
      <email>nobody@gentoo.org</email>
    </owner>
    <priority>50</priority>
    <quality>experimental</quality>
    <source type="rsync">rsync://gunnarwrobel.de/wrobel-stable</source>
  </repo>
</repositories>
`

func loadGlobalOverlays(t *testing.T) *Catalog {
	t.Helper()

	c := New()
	require.NoError(t, c.Read([]byte(globalOverlaysXML), "global-overlays.xml"))
	return c
}

func TestCatalog_Read(t *testing.T) {
	t.Parallel()

	c := loadGlobalOverlays(t)

	assert.Equal(t, []string{"wrobel", "wrobel-stable"}, c.ListIDs())

	ovl, err := c.Select("wrobel-stable")
	require.NoError(t, err)
	assert.Equal(t, []string{"rsync://gunnarwrobel.de/wrobel-stable"}, ovl.SourceURIs())
	assert.Equal(t, overlay.TypeRsync, ovl.PrimarySource().Type)
	assert.Equal(t, 50, ovl.Priority)
	assert.Equal(t, overlay.QualityExperimental, ovl.Quality)
	assert.Equal(t, "nobody@gentoo.org", ovl.OwnerEmail)
}

func TestCatalog_ReadOverwritesByName(t *testing.T) {
	t.Parallel()

	c := loadGlobalOverlays(t)

	update := `<repositories version="1.0">
  <overlay name="wrobel-stable">
    <description>Moved</description>
    <source type="git">https://example.org/wrobel-stable.git</source>
  </overlay>
</repositories>`
	require.NoError(t, c.Read([]byte(update), "update.xml"))

	ovl, err := c.Select("wrobel-stable")
	require.NoError(t, err)
	assert.Equal(t, "Moved", ovl.Description)
	assert.Equal(t, []string{"https://example.org/wrobel-stable.git"}, ovl.SourceURIs())
	assert.Equal(t, 0, ovl.Priority, "entries are replaced wholesale, not merged")
}

func TestCatalog_ReadBrokenDocument(t *testing.T) {
	t.Parallel()

	c := New()
	err := c.Read([]byte("<repositories version=\"1.0\">\n  <overlay name=\"broken\">\n"), "broken.xml")
	require.Error(t, err)

	var broken *BrokenCatalogError
	require.ErrorAs(t, err, &broken)
	assert.Equal(t, "broken.xml", broken.Origin)
	assert.Greater(t, broken.Line, 1)
	assert.Contains(t, broken.Error(), "XML parsing failed")
	assert.Zero(t, c.Len(), "a broken document contributes nothing")
}

func TestCatalog_ReadRejectsEntryWithoutSources(t *testing.T) {
	t.Parallel()

	c := New()
	err := c.Read([]byte(`<repositories version="1.0">
  <overlay name="no-sources">
    <description>nothing to sync from</description>
  </overlay>
</repositories>`), "no-sources.xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "declares no sources")
}

func TestCatalog_LoadSkipsMissingFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	existing := filepath.Join(dir, "overlays.xml")
	require.NoError(t, os.WriteFile(existing, []byte(globalOverlaysXML), 0o644))

	c := New()
	require.NoError(t, c.Load(filepath.Join(dir, "missing.xml"), existing))
	assert.Equal(t, 2, c.Len())
}

func TestCatalog_SelectUnknown(t *testing.T) {
	t.Parallel()

	c := loadGlobalOverlays(t)

	_, err := c.Select("nonexistent")
	require.Error(t, err)

	var unknown *UnknownOverlayError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "nonexistent", unknown.Name)
	assert.Equal(t, `overlay "nonexistent" does not exist`, err.Error())
}

func TestCatalog_WriteLoadRoundTrip(t *testing.T) {
	t.Parallel()

	original := loadGlobalOverlays(t)

	path := filepath.Join(t.TempDir(), "state", "installed.xml")
	require.NoError(t, original.Write(path))

	reloaded := New()
	require.NoError(t, reloaded.Load(path))
	assert.True(t, original.Equal(reloaded))
	assert.True(t, reloaded.Equal(original))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `<repositories version="1.0">`)
	assert.Contains(t, string(data), `<?xml version="1.0" encoding="UTF-8"?>`)
}

func TestCatalog_WriteIsDeterministic(t *testing.T) {
	t.Parallel()

	c := loadGlobalOverlays(t)
	dir := t.TempDir()

	first := filepath.Join(dir, "a.xml")
	second := filepath.Join(dir, "b.xml")
	require.NoError(t, c.Write(first))
	require.NoError(t, c.Write(second))

	a, err := os.ReadFile(first)
	require.NoError(t, err)
	b, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestCatalog_AddRecords(t *testing.T) {
	t.Parallel()

	c := New()
	require.NoError(t, c.AddRecords(overlay.Spec{
		Name:    "fresh",
		Sources: []overlay.Source{{Type: overlay.TypeGit, URI: "https://example.org/fresh.git"}},
	}))
	assert.True(t, c.Has("fresh"))

	err := c.AddRecords(overlay.Spec{Name: "broken"})
	require.Error(t, err)
	assert.False(t, c.Has("broken"))
}

func TestCatalog_List(t *testing.T) {
	t.Parallel()

	c := loadGlobalOverlays(t)

	entries := c.List(nil, false, 80)
	require.Len(t, entries, 2)
	assert.Equal(t, "wrobel                    [Subversion] (https://o.g.o/svn/dev/wrobel         )", entries[0].Text)
	assert.Equal(t, "wrobel-stable             [Rsync     ] (rsync://gunnarwrobel.de/wrobel-stable)", entries[1].Text)

	verbose := c.List([]string{"wrobel"}, true, 0)
	require.Len(t, verbose, 1)
	assert.Contains(t, verbose[0].Text, "wrobel\n~~~~~~\n")
	assert.Contains(t, verbose[0].Text, "Description:\n  Test\n")
}

func TestCatalog_RemoveAndEqual(t *testing.T) {
	t.Parallel()

	a := loadGlobalOverlays(t)
	b := loadGlobalOverlays(t)
	assert.True(t, a.Equal(b))

	b.Remove("wrobel")
	assert.False(t, a.Equal(b))
	assert.Equal(t, []string{"wrobel-stable"}, b.ListIDs())

	b.Remove("wrobel")
	assert.Equal(t, 1, b.Len(), "removing an absent name is a no-op")
}
