// Package manager is the orchestration layer over the two overlay
// catalogs: the installed list, which is local truth of enabled
// overlays, and the available list, the cached copy of everything the
// remote lists advertise. It answers membership queries, runs batch
// operations across both catalogs and aggregates per-id outcomes.
//
// A manager is not safe for concurrent use. Batch operations process
// their ids strictly in caller order so that results and the error
// queue accumulate deterministically.
package manager

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/go-logr/logr"

	"github.com/overlay-tools/ovm/internal/catalog"
	"github.com/overlay-tools/ovm/internal/config"
	"github.com/overlay-tools/ovm/internal/httpclient"
	"github.com/overlay-tools/ovm/internal/overlay"
	"github.com/overlay-tools/ovm/internal/remote"
	"github.com/overlay-tools/ovm/internal/syncer"
)

// Manager owns the installed and available catalogs and the state of
// the last batch operations.
type Manager struct {
	cfg     *config.Config
	log     logr.Logger
	adapter syncer.Adapter
	fetcher remote.Fetcher

	installed *catalog.Catalog
	available *catalog.Catalog

	errs     []Error
	lastSync *SyncResult
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the message sink. The default discards everything.
func WithLogger(log logr.Logger) Option {
	return func(m *Manager) {
		m.log = log
	}
}

// WithAdapter replaces the sync adapter.
func WithAdapter(adapter syncer.Adapter) Option {
	return func(m *Manager) {
		m.adapter = adapter
	}
}

// WithFetcher replaces the remote list fetcher.
func WithFetcher(fetcher remote.Fetcher) Option {
	return func(m *Manager) {
		m.fetcher = fetcher
	}
}

// New creates a manager and loads both catalogs from their backing
// stores.
func New(cfg *config.Config, opts ...Option) (*Manager, error) {
	m := &Manager{
		cfg: cfg,
		log: logr.Discard(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.adapter == nil {
		m.adapter = syncer.DefaultDispatcher(cfg.AdapterCommands(), m.log)
	}
	if m.fetcher == nil {
		m.fetcher = remote.NewHTTPFetcher(cfg.Remotes, cfg.RemoteCache,
			remote.WithClient(httpclient.NewDefaultClient(0)),
			remote.WithLogger(m.log),
		)
	}

	if err := m.Reload(); err != nil {
		return nil, err
	}
	return m, nil
}

// Reload rebuilds both catalogs from current disk state. Each catalog
// is replaced wholesale: a reference obtained before the reload keeps
// seeing its pre-reload snapshot, never a half-rebuilt one.
func (m *Manager) Reload() error {
	if err := m.reloadAvailable(); err != nil {
		return err
	}
	return m.reloadInstalled()
}

func (m *Manager) newCatalog() *catalog.Catalog {
	return catalog.New(
		catalog.WithPolicy(overlay.DefaultPolicy(m.cfg.SupportedTypes())),
		catalog.WithLogger(m.log),
	)
}

func (m *Manager) reloadInstalled() error {
	cat := m.newCatalog()
	if err := cat.Load(m.cfg.InstalledList); err != nil {
		return fmt.Errorf("failed to load the installed overlay list: %w", err)
	}
	m.installed = cat
	return nil
}

func (m *Manager) reloadAvailable() error {
	cat := m.newCatalog()
	if err := cat.Load(m.cfg.RemoteCache); err != nil {
		return fmt.Errorf("failed to load the available overlay list: %w", err)
	}
	m.available = cat
	return nil
}

// IsRepo reports whether id is listed in the available list.
func (m *Manager) IsRepo(id string) bool {
	return m.available.Has(id)
}

// IsInstalled reports whether id is present in the installed list.
func (m *Manager) IsInstalled(id string) bool {
	return m.installed.Has(id)
}

// normalizeRepos coerces the batch argument into a list of ids. A
// single id and a sequence of ids are both accepted; anything else
// yields an UnsupportedInputError and no work.
func normalizeRepos(repos any) ([]string, error) {
	switch v := repos.(type) {
	case string:
		return []string{v}, nil
	case []string:
		return v, nil
	default:
		return nil, &UnsupportedInputError{Value: repos}
	}
}

func (m *Manager) normalize(repos any, caller string) ([]string, bool) {
	ids, err := normalizeRepos(repos)
	if err != nil {
		m.recordError(CodeUsage, fmt.Sprintf("%s(), %v", caller, err))
		return nil, false
	}
	return ids, true
}

// AddRepos enables the given overlay id or ids, copying each
// definition from the available list into the installed list and
// persisting it. An id already installed is a success without any
// change. Every id is attempted regardless of earlier failures; the
// return value is the conjunction of the per-id outcomes.
func (m *Manager) AddRepos(repos any) bool {
	ids, ok := m.normalize(repos, "AddRepos")
	if !ok {
		return false
	}

	overall := true
	for _, id := range ids {
		if err := m.addRepo(id); err != nil {
			m.classifyRepoError(err, fmt.Sprintf("failed to enable repository %q: %v", id, err))
			overall = false
		}
	}
	return overall
}

func (m *Manager) addRepo(id string) error {
	if m.IsInstalled(id) {
		m.log.V(1).Info("overlay already installed", "id", id)
		return nil
	}
	if !m.IsRepo(id) {
		return &UnknownRepoError{ID: id}
	}

	ovl, err := m.available.Select(id)
	if err != nil {
		return err
	}
	if err := m.installed.AddRecords(ovl.Spec()); err != nil {
		return err
	}
	return m.persistInstalled()
}

// DeleteRepos disables the given overlay id or ids. An id that is not
// installed is a success without any change. Every id is attempted
// regardless of earlier failures.
func (m *Manager) DeleteRepos(repos any) bool {
	ids, ok := m.normalize(repos, "DeleteRepos")
	if !ok {
		return false
	}

	overall := true
	for _, id := range ids {
		if err := m.deleteRepo(id); err != nil {
			m.classifyRepoError(err, fmt.Sprintf("failed to disable repository %q: %v", id, err))
			overall = false
		}
	}
	return overall
}

func (m *Manager) deleteRepo(id string) error {
	if !m.IsInstalled(id) {
		m.log.V(1).Info("overlay not installed, nothing to disable", "id", id)
		return nil
	}
	if !m.IsRepo(id) {
		return &UnknownRepoError{ID: id}
	}

	m.installed.Remove(id)
	return m.persistInstalled()
}

// persistInstalled writes the installed list. On failure the list is
// reloaded from disk so in-memory membership never diverges from the
// persisted truth for an id whose operation failed.
func (m *Manager) persistInstalled() error {
	if err := m.installed.Write(m.cfg.InstalledList); err != nil {
		if rerr := m.reloadInstalled(); rerr != nil {
			m.log.Error(rerr, "failed to reload the installed list after a failed write")
		}
		return err
	}
	return nil
}

// Sync brings the working copies of the given installed overlay id or
// ids up to date from their primary sources. Per-id outcomes are
// classified into successes, advisory warnings and fatals; the batch
// keeps going past fatal entries and the return value is true iff no
// fatal was recorded. The classified lists stay available through
// LastSyncResult.
func (m *Manager) Sync(repos any) bool {
	return m.SyncContext(context.Background(), repos)
}

// SyncContext is Sync with a caller-supplied context handed to the
// sync adapter.
func (m *Manager) SyncContext(ctx context.Context, repos any) bool {
	result := &SyncResult{}
	ids, ok := m.normalize(repos, "Sync")
	if !ok {
		m.lastSync = result
		return false
	}

	for _, id := range ids {
		m.syncOne(ctx, id, result)
	}

	m.lastSync = result
	return result.Overall()
}

func (m *Manager) syncOne(ctx context.Context, id string, result *SyncResult) {
	installed, err := m.installed.Select(id)
	if err != nil {
		result.Fatals = append(result.Fatals, RepoMessage{
			ID:      id,
			Message: fmt.Sprintf("failed to select overlay %q from the installed list: %v", id, err),
		})
		return
	}

	available, err := m.available.Select(id)
	switch {
	case err != nil:
		var unknown *catalog.UnknownOverlayError
		if errors.As(err, &unknown) {
			result.Warnings = append(result.Warnings, RepoMessage{ID: id, Message: renamedWarning(id)})
		} else {
			result.Warnings = append(result.Warnings, RepoMessage{
				ID:      id,
				Message: fmt.Sprintf("failed to select overlay %q from the remote lists: %v", id, err),
			})
		}
	default:
		if warning := driftWarning(id, installed, available); warning != "" {
			result.Warnings = append(result.Warnings, RepoMessage{ID: id, Message: warning})
		}
	}

	dest := filepath.Join(m.cfg.StorageDir, id)
	if err := m.adapter.Sync(ctx, installed.PrimarySource(), dest, m.cfg.Quiet); err != nil {
		result.Fatals = append(result.Fatals, RepoMessage{
			ID:      id,
			Message: fmt.Sprintf("failed to sync overlay %q: %v", id, err),
		})
		return
	}

	result.Success = append(result.Success, RepoMessage{
		ID:      id,
		Message: fmt.Sprintf("successfully synchronized overlay %q", id),
	})
}

// LastSyncResult returns the classified outcome of the most recent
// sync batch, or nil when none ran yet.
func (m *Manager) LastSyncResult() *SyncResult {
	return m.lastSync
}

// GetAllInfo returns the recorded metadata for the given id or ids,
// sourced from the available list. An unknown id contributes an empty
// placeholder record and a queued error; the rest of the batch is
// still processed.
func (m *Manager) GetAllInfo(repos any) map[string]*RepoInfo {
	result := make(map[string]*RepoInfo)
	ids, ok := m.normalize(repos, "GetAllInfo")
	if !ok {
		return result
	}

	for _, id := range ids {
		ovl, err := m.available.Select(id)
		if err != nil {
			m.recordError(CodeUnknownRepo, (&UnknownRepoError{ID: id}).Error())
			result[id] = &RepoInfo{}
			continue
		}
		result[id] = &RepoInfo{
			Name:        ovl.Name,
			OwnerName:   ovl.OwnerName,
			OwnerEmail:  ovl.OwnerEmail,
			Homepage:    ovl.Homepage,
			Description: ovl.Description,
			SrcURIs:     ovl.SourceURIs(),
			SrcType:     ovl.PrimarySource().Type,
			Priority:    ovl.Priority,
			Quality:     ovl.Quality,
			Status:      ovl.Status,
			Official:    ovl.Official,
			Supported:   ovl.Supported,
		}
	}
	return result
}

// GetInfoStr returns the rendered info block and classification flags
// for the given id or ids, with the same unknown-id handling as
// GetAllInfo.
func (m *Manager) GetInfoStr(repos any) map[string]InfoStr {
	result := make(map[string]InfoStr)
	ids, ok := m.normalize(repos, "GetInfoStr")
	if !ok {
		return result
	}

	for _, id := range ids {
		ovl, err := m.available.Select(id)
		if err != nil {
			m.recordError(CodeUnknownRepo, (&UnknownRepoError{ID: id}).Error())
			result[id] = InfoStr{}
			continue
		}
		result[id] = InfoStr{
			Info:      ovl.FullInfo(),
			Official:  ovl.Official,
			Supported: ovl.Supported,
		}
	}
	return result
}

// List renders the installed or the available catalog for display.
func (m *Manager) List(installed, verbose bool) []catalog.Entry {
	cat := m.available
	if installed {
		cat = m.installed
	}
	return cat.List(nil, verbose, m.cfg.Width)
}

// FetchRemoteList refreshes the cached available list from its remote
// locations and reloads the available catalog from the new cache.
// Failures are reported through the error queue and the return value;
// they never propagate past this call.
func (m *Manager) FetchRemoteList() bool {
	return m.FetchRemoteListContext(context.Background())
}

// FetchRemoteListContext is FetchRemoteList with a caller-supplied
// context handed to the fetcher.
func (m *Manager) FetchRemoteListContext(ctx context.Context) bool {
	if err := m.fetcher.Fetch(ctx); err != nil {
		m.recordError(CodeFetch, fmt.Sprintf("failed to fetch the remote overlay list: %v", err))
		return false
	}
	if err := m.reloadAvailable(); err != nil {
		m.recordError(CodeInternal, err.Error())
		return false
	}
	return true
}

// GetAvailable returns the sorted ids of the available list,
// reloading it from disk first when reload is set.
func (m *Manager) GetAvailable(reload bool) ([]string, error) {
	if reload {
		if err := m.reloadAvailable(); err != nil {
			return nil, err
		}
	}
	return m.available.ListIDs(), nil
}

// GetInstalled returns the sorted ids of the installed list,
// reloading it from disk first when reload is set.
func (m *Manager) GetInstalled(reload bool) ([]string, error) {
	if reload {
		if err := m.reloadInstalled(); err != nil {
			return nil, err
		}
	}
	return m.installed.ListIDs(), nil
}

func (m *Manager) classifyRepoError(err error, internalMsg string) {
	var unknown *UnknownRepoError
	if errors.As(err, &unknown) {
		m.recordError(CodeUnknownRepo, unknown.Error())
		return
	}
	m.recordError(CodeInternal, internalMsg)
}

// recordError appends to the error queue and echoes the entry to the
// configured sink.
func (m *Manager) recordError(code int, message string) {
	m.errs = append(m.errs, Error{Code: code, Message: message})
	m.log.Error(nil, message, "code", code)
}

// GetErrors drains and returns the queued errors, oldest first. It
// returns nil when nothing accumulated since the previous drain.
func (m *Manager) GetErrors() []Error {
	if len(m.errs) == 0 {
		return nil
	}
	drained := m.errs
	m.errs = nil
	return drained
}
