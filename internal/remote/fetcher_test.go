package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/overlay-tools/ovm/internal/catalog"
)

const remoteListXML = `<?xml version="1.0" encoding="UTF-8"?>
<repositories version="1.0">
  <overlay name="wrobel-stable">
    <priority>50</priority>
    <quality>experimental</quality>
    <source type="rsync">rsync://gunnarwrobel.de/wrobel-stable</source>
  </overlay>
</repositories>
`

func newTestServer(handler http.Handler) *httptest.Server {
	server := httptest.NewServer(handler)
	server.Config.SetKeepAlivesEnabled(false)
	return server
}

func TestHTTPFetcher_Fetch(t *testing.T) {
	t.Parallel()

	server := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(remoteListXML))
	}))
	defer server.Close()

	cachePath := filepath.Join(t.TempDir(), "cache", "remotes.xml")
	f := NewHTTPFetcher([]string{server.URL}, cachePath, WithMaxTries(1))
	require.NoError(t, f.Fetch(context.Background()))

	cached := catalog.New()
	require.NoError(t, cached.Load(cachePath))
	assert.Equal(t, []string{"wrobel-stable"}, cached.ListIDs())
}

func TestHTTPFetcher_FetchMergesRemotesInOrder(t *testing.T) {
	t.Parallel()

	first := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(remoteListXML))
	}))
	defer first.Close()

	second := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<repositories version="1.0">
  <overlay name="wrobel-stable">
    <priority>10</priority>
    <source type="git">https://example.org/wrobel-stable.git</source>
  </overlay>
  <overlay name="extra">
    <source type="git">https://example.org/extra.git</source>
  </overlay>
</repositories>`))
	}))
	defer second.Close()

	cachePath := filepath.Join(t.TempDir(), "remotes.xml")
	f := NewHTTPFetcher([]string{first.URL, second.URL}, cachePath, WithMaxTries(1))
	require.NoError(t, f.Fetch(context.Background()))

	cached := catalog.New()
	require.NoError(t, cached.Load(cachePath))
	assert.Equal(t, []string{"extra", "wrobel-stable"}, cached.ListIDs())

	ovl, err := cached.Select("wrobel-stable")
	require.NoError(t, err)
	assert.Equal(t, 10, ovl.Priority, "later remotes overwrite earlier entries")
}

func TestHTTPFetcher_FetchClientErrorDoesNotRetry(t *testing.T) {
	t.Parallel()

	var requests atomic.Int32
	server := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	cachePath := filepath.Join(t.TempDir(), "remotes.xml")
	f := NewHTTPFetcher([]string{server.URL}, cachePath, WithMaxTries(5))
	err := f.Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to fetch the overlay list")
	assert.Equal(t, int32(1), requests.Load(), "4xx responses are permanent failures")

	_, statErr := os.Stat(cachePath)
	assert.True(t, os.IsNotExist(statErr), "a failed fetch must not create the cache")
}

func TestHTTPFetcher_FetchRetriesServerErrors(t *testing.T) {
	t.Parallel()

	var requests atomic.Int32
	server := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if requests.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(remoteListXML))
	}))
	defer server.Close()

	cachePath := filepath.Join(t.TempDir(), "remotes.xml")
	f := NewHTTPFetcher([]string{server.URL}, cachePath, WithMaxTries(2))
	require.NoError(t, f.Fetch(context.Background()))
	assert.Equal(t, int32(2), requests.Load())
}

func TestHTTPFetcher_FetchMalformedList(t *testing.T) {
	t.Parallel()

	server := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<repositories version=\"1.0\"><overlay"))
	}))
	defer server.Close()

	existing := filepath.Join(t.TempDir(), "remotes.xml")
	require.NoError(t, os.WriteFile(existing, []byte(remoteListXML), 0o644))

	f := NewHTTPFetcher([]string{server.URL}, existing, WithMaxTries(1))
	err := f.Fetch(context.Background())
	require.Error(t, err)

	var broken *catalog.BrokenCatalogError
	assert.ErrorAs(t, err, &broken)

	data, readErr := os.ReadFile(existing)
	require.NoError(t, readErr)
	assert.Equal(t, remoteListXML, string(data), "a failed refresh leaves the old cache in place")
}

func TestHTTPFetcher_FetchNoRemotes(t *testing.T) {
	t.Parallel()

	f := NewHTTPFetcher(nil, filepath.Join(t.TempDir(), "remotes.xml"))
	err := f.Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no remote overlay lists configured")
}
