package preview

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sync"
)

// Handle is a temporary file holding binary preview content. The file
// exists until Release is called.
type Handle struct {
	path string

	once     sync.Once
	mu       sync.Mutex
	released bool
}

// newHandle writes data to a new temporary file in dir. The file keeps the
// extension of name so viewers can recognize it.
func newHandle(dir, name string, data []byte) (*Handle, error) {
	f, err := os.CreateTemp(dir, "hackloud-preview-*"+filepath.Ext(name))
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return nil, fmt.Errorf("close temp file: %w", err)
	}
	return &Handle{path: f.Name()}, nil
}

// Path returns the filesystem path of the content.
func (h *Handle) Path() string {
	return h.path
}

// URI returns a file:// URI that a viewer can load.
func (h *Handle) URI() string {
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(h.path)}).String()
}

// Release removes the temporary file. Only the first call has an effect;
// later calls return nil.
func (h *Handle) Release() error {
	if h == nil {
		return nil
	}
	var err error
	h.once.Do(func() {
		err = os.Remove(h.path)
		if errors.Is(err, fs.ErrNotExist) {
			err = nil
		}
		h.mu.Lock()
		h.released = true
		h.mu.Unlock()
	})
	return err
}

// Released reports whether Release has run.
func (h *Handle) Released() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.released
}
