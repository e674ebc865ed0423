// Package preview manages the lifecycle of a file preview dialog: fetching
// the content, discarding stale results and releasing temporary content
// exactly once.
package preview

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/me/hackloud/internal/logging"
	"github.com/me/hackloud/pkg/hackloud"
	"github.com/me/hackloud/pkg/model"
)

// AppName is shown in dialog titles.
const AppName = "Mi Disco Duro"

// KeyEscape is the key name that dismisses the dialog.
const KeyEscape = "Escape"

// DismissReason records what closed the dialog.
type DismissReason string

const (
	DismissClose    DismissReason = "close"
	DismissEscape   DismissReason = "escape"
	DismissOutside  DismissReason = "outside_click"
	DismissTeardown DismissReason = "teardown"
)

// Fetcher retrieves and classifies preview content.
// *hackloud.Client satisfies it.
type Fetcher interface {
	FetchFilePreview(ctx context.Context, fileID, token string, meta model.StorageItem) (*model.Preview, error)
}

// State is a snapshot of the dialog.
type State struct {
	Open     bool
	File     *model.StorageItem
	Loading  bool
	Resource *Resource
	Err      string
}

// Title returns the dialog title.
func (s State) Title() string {
	if s.File == nil {
		return AppName
	}
	return fmt.Sprintf("Preview: %s | %s", s.File.Name, AppName)
}

// Option configures a Manager.
type Option func(*Manager)

// WithTempDir sets where binary content is spilled. Defaults to os.TempDir.
func WithTempDir(dir string) Option {
	return func(m *Manager) { m.tempDir = dir }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithOnChange registers fn to receive every state change. fn runs without
// the manager's lock held.
func WithOnChange(fn func(State)) Option {
	return func(m *Manager) { m.onChange = fn }
}

// Manager owns one preview dialog. At most one resource is displayed at a
// time; it is removed from state before it is released.
type Manager struct {
	fetcher  Fetcher
	tempDir  string
	logger   *slog.Logger
	onChange func(State)

	mu      sync.Mutex
	gen     uint64
	open    bool
	file    *model.StorageItem
	loading bool
	res     *Resource
	errMsg  string

	inflight sync.WaitGroup
}

// NewManager returns a closed dialog manager.
func NewManager(fetcher Fetcher, opts ...Option) *Manager {
	m := &Manager{fetcher: fetcher}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = logging.OrDiscard(m.logger).With("component", "preview")
	return m
}

// Open shows the dialog for file and starts fetching its preview. Any
// resource on display is replaced. The returned channel is closed once this
// request has settled, whether its result was applied or discarded.
func (m *Manager) Open(ctx context.Context, file model.StorageItem, token string) <-chan struct{} {
	m.mu.Lock()
	m.gen++
	gen := m.gen
	old := m.res
	m.res = nil
	m.open = true
	m.file = &file
	m.loading = true
	m.errMsg = ""
	st := m.stateLocked()
	m.mu.Unlock()

	m.release(old)
	m.notify(st)

	done := make(chan struct{})
	m.inflight.Add(1)
	go func() {
		defer m.inflight.Done()
		defer close(done)
		m.fetch(ctx, gen, file, token)
	}()
	return done
}

func (m *Manager) fetch(ctx context.Context, gen uint64, file model.StorageItem, token string) {
	res, err := m.load(ctx, file, token)

	m.mu.Lock()
	if gen != m.gen || !m.open {
		m.mu.Unlock()
		m.logger.Debug("discarding stale preview", "file", file.ID, "generation", gen)
		m.release(res)
		return
	}
	m.loading = false
	if err != nil {
		m.errMsg = errorMessage(err)
	} else {
		m.res = res
	}
	st := m.stateLocked()
	m.mu.Unlock()

	if err != nil {
		m.logger.Warn("preview failed", "file", file.ID, "error", err)
	}
	m.notify(st)
}

// load fetches and materializes a preview. A panicking fetcher is reported
// as an error.
func (m *Manager) load(ctx context.Context, file model.StorageItem, token string) (res *Resource, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("preview fetch panicked: %v", r)
		}
	}()
	p, err := m.fetcher.FetchFilePreview(ctx, file.ID, token, file)
	if err != nil {
		return nil, err
	}
	return newResource(m.tempDir, file, p)
}

// Close hides the dialog and releases its resource. Closing a closed dialog
// does nothing.
func (m *Manager) Close() error {
	m.mu.Lock()
	if !m.open {
		m.mu.Unlock()
		return nil
	}
	m.gen++
	old := m.res
	m.res = nil
	m.open = false
	m.file = nil
	m.loading = false
	m.errMsg = ""
	st := m.stateLocked()
	m.mu.Unlock()

	err := old.Release()
	m.notify(st)
	return err
}

// Dismiss closes the dialog for the given reason.
func (m *Manager) Dismiss(reason DismissReason) error {
	m.logger.Debug("dismiss", "reason", string(reason))
	return m.Close()
}

// HandleKey dismisses the dialog on Escape. It reports whether the key was
// consumed.
func (m *Manager) HandleKey(key string) bool {
	if key != KeyEscape || !m.IsOpen() {
		return false
	}
	if err := m.Dismiss(DismissEscape); err != nil {
		m.logger.Warn("release preview", "error", err)
	}
	return true
}

// HandleClick dismisses the dialog when a click lands outside its content.
// It reports whether the click was consumed.
func (m *Manager) HandleClick(inside bool) bool {
	if inside || !m.IsOpen() {
		return false
	}
	if err := m.Dismiss(DismissOutside); err != nil {
		m.logger.Warn("release preview", "error", err)
	}
	return true
}

// Shutdown closes the dialog and waits for in-flight fetches, releasing
// whatever they produce.
func (m *Manager) Shutdown() error {
	err := m.Dismiss(DismissTeardown)
	m.inflight.Wait()
	return err
}

// IsOpen reports whether the dialog is shown.
func (m *Manager) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}

// State returns a snapshot of the dialog.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked()
}

func (m *Manager) stateLocked() State {
	st := State{Open: m.open, Loading: m.loading, Resource: m.res, Err: m.errMsg}
	if m.file != nil {
		f := *m.file
		st.File = &f
	}
	return st
}

func (m *Manager) release(r *Resource) {
	if err := r.Release(); err != nil {
		m.logger.Warn("release preview", "error", err)
	}
}

func (m *Manager) notify(st State) {
	if m.onChange != nil {
		m.onChange(st)
	}
}

func errorMessage(err error) string {
	return "Could not load the preview: " + hackloud.Message(err)
}
