package preview

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/me/hackloud/pkg/hackloud"
	"github.com/me/hackloud/pkg/model"
)

// fakeFetcher serves previews from a map keyed by file id. A gate
// registered for an id holds that fetch until closed.
type fakeFetcher struct {
	mu       sync.Mutex
	previews map[string]*model.Preview
	errs     map[string]error
	gates    map[string]chan struct{}
	calls    map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		previews: map[string]*model.Preview{},
		errs:     map[string]error{},
		gates:    map[string]chan struct{}{},
		calls:    map[string]int{},
	}
}

func (f *fakeFetcher) gate(id string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	g := make(chan struct{})
	f.gates[id] = g
	return g
}

func (f *fakeFetcher) FetchFilePreview(ctx context.Context, fileID, token string, meta model.StorageItem) (*model.Preview, error) {
	f.mu.Lock()
	f.calls[fileID]++
	g := f.gates[fileID]
	delete(f.gates, fileID)
	f.mu.Unlock()

	if g != nil {
		<-g
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if token == "" {
		return nil, hackloud.WrapError("FetchFilePreview", hackloud.ErrNoToken)
	}
	if err := f.errs[fileID]; err != nil {
		return nil, err
	}
	p, ok := f.previews[fileID]
	if !ok {
		return nil, hackloud.NewError("FetchFilePreview", hackloud.KindNotFound, "file not found")
	}
	cp := *p
	return &cp, nil
}

var (
	pngFile  = model.StorageItem{ID: "x", Name: "beach.png", Type: model.ItemFile}
	pdfFile  = model.StorageItem{ID: "y", Name: "cv.pdf", Type: model.ItemFile}
	textFile = model.StorageItem{ID: "t", Name: "notes.txt", Type: model.ItemFile}
	zipFile  = model.StorageItem{ID: "z", Name: "backup.zip", Type: model.ItemFile}
)

func newTestManager(t *testing.T) (*Manager, *fakeFetcher, string) {
	t.Helper()
	f := newFakeFetcher()
	f.previews["x"] = &model.Preview{Kind: model.PreviewImage, ContentType: "image/png", Data: []byte("\x89PNG")}
	f.previews["y"] = &model.Preview{Kind: model.PreviewPDF, ContentType: "application/pdf", Data: []byte("%PDF-1.7")}
	f.previews["t"] = &model.Preview{Kind: model.PreviewText, ContentType: "text/plain", Text: "hola"}
	f.previews["z"] = &model.Preview{Kind: model.PreviewUnsupported, ContentType: "application/zip", Message: "No preview available for this file type"}
	dir := t.TempDir()
	return NewManager(f, WithTempDir(dir)), f, dir
}

func wait(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("preview request never settled")
	}
}

func tempFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestHandleReleaseIdempotent(t *testing.T) {
	dir := t.TempDir()
	h, err := newHandle(dir, "a.png", []byte("data"))
	if err != nil {
		t.Fatalf("newHandle: %v", err)
	}
	if !strings.HasSuffix(h.Path(), ".png") {
		t.Errorf("path %q lost the extension", h.Path())
	}

	if err := h.Release(); err != nil {
		t.Fatalf("first Release: %v", err)
	}
	if err := h.Release(); err != nil {
		t.Errorf("second Release: %v", err)
	}
	if !h.Released() {
		t.Error("Released() = false")
	}
	if files := tempFiles(t, dir); len(files) != 0 {
		t.Errorf("temp files left: %v", files)
	}

	var nilHandle *Handle
	if err := nilHandle.Release(); err != nil {
		t.Errorf("nil Release: %v", err)
	}
}

func TestOpenImageThenClose(t *testing.T) {
	m, _, dir := newTestManager(t)

	wait(t, m.Open(context.Background(), pngFile, "tok"))

	st := m.State()
	if !st.Open || st.Loading || st.Err != "" {
		t.Fatalf("state = %+v", st)
	}
	res := st.Resource
	if res == nil || res.Kind != model.PreviewImage {
		t.Fatalf("resource = %+v, want image", res)
	}
	if !strings.HasPrefix(res.Handle.URI(), "file://") {
		t.Errorf("URI = %q", res.Handle.URI())
	}
	data, err := os.ReadFile(res.Handle.Path())
	if err != nil || string(data) != "\x89PNG" {
		t.Errorf("content = %q, %v", data, err)
	}
	if st.Title() != "Preview: beach.png | Mi Disco Duro" {
		t.Errorf("Title = %q", st.Title())
	}

	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !res.Handle.Released() {
		t.Error("handle not released on close")
	}
	if files := tempFiles(t, dir); len(files) != 0 {
		t.Errorf("temp files left: %v", files)
	}
	if st := m.State(); st.Open || st.Resource != nil || st.Title() != AppName {
		t.Errorf("state after close = %+v", st)
	}
	if err := m.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestOpenSupersededResultDiscarded(t *testing.T) {
	m, f, dir := newTestManager(t)
	ctx := context.Background()
	releaseX := f.gate("x")

	doneX := m.Open(ctx, pngFile, "tok")
	doneY := m.Open(ctx, pdfFile, "tok")
	wait(t, doneY)

	close(releaseX)
	wait(t, doneX)

	st := m.State()
	if st.Resource == nil || st.Resource.File.ID != "y" || st.Resource.Kind != model.PreviewPDF {
		t.Fatalf("displayed = %+v, want pdf for y", st.Resource)
	}
	if st.File.ID != "y" {
		t.Errorf("file = %+v", st.File)
	}
	files := tempFiles(t, dir)
	if len(files) != 1 || !strings.HasSuffix(files[0], ".pdf") {
		t.Errorf("temp files = %v, want only the pdf", files)
	}
}

func TestOpenReplacesDisplayedResource(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	wait(t, m.Open(ctx, pngFile, "tok"))
	first := m.State().Resource

	var mu sync.Mutex
	var sawFirstAfterRelease bool
	m.onChange = func(st State) {
		mu.Lock()
		defer mu.Unlock()
		if st.Resource == first && first.Handle.Released() {
			sawFirstAfterRelease = true
		}
	}

	done := m.Open(ctx, pdfFile, "tok")
	if !first.Handle.Released() {
		t.Error("previous handle not released on replacement")
	}
	if st := m.State(); st.Resource == first {
		t.Error("released resource still displayed")
	}
	wait(t, done)

	mu.Lock()
	defer mu.Unlock()
	if sawFirstAfterRelease {
		t.Error("a state with a released handle was published")
	}
}

func TestFetchErrorShownInline(t *testing.T) {
	m, f, _ := newTestManager(t)
	ctx := context.Background()
	f.errs["x"] = hackloud.NewError("FetchFilePreview", hackloud.KindPreview, "corrupt file")

	wait(t, m.Open(ctx, pngFile, "tok"))

	st := m.State()
	if !st.Open || st.Resource != nil || st.Loading {
		t.Fatalf("state = %+v", st)
	}
	if !strings.Contains(st.Err, "corrupt file") {
		t.Errorf("Err = %q", st.Err)
	}

	delete(f.errs, "x")
	wait(t, m.Open(ctx, pngFile, "tok"))
	if st := m.State(); st.Err != "" || st.Resource == nil {
		t.Errorf("retry state = %+v", st)
	}
	m.Close()
}

func TestFetchPanicIsContained(t *testing.T) {
	m := NewManager(panicFetcher{}, WithTempDir(t.TempDir()))

	wait(t, m.Open(context.Background(), pngFile, "tok"))
	if st := m.State(); st.Err == "" || st.Resource != nil {
		t.Errorf("state = %+v, want error", st)
	}
}

type panicFetcher struct{}

func (panicFetcher) FetchFilePreview(context.Context, string, string, model.StorageItem) (*model.Preview, error) {
	panic("boom")
}

func TestDismissalTriggers(t *testing.T) {
	tests := []struct {
		name    string
		dismiss func(m *Manager) bool
	}{
		{"escape", func(m *Manager) bool { return m.HandleKey(KeyEscape) }},
		{"outside click", func(m *Manager) bool { return m.HandleClick(false) }},
		{"close", func(m *Manager) bool { return m.Dismiss(DismissClose) == nil }},
		{"teardown", func(m *Manager) bool { return m.Shutdown() == nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _, dir := newTestManager(t)
			wait(t, m.Open(context.Background(), pngFile, "tok"))
			h := m.State().Resource.Handle

			if !tt.dismiss(m) {
				t.Fatal("dismissal not handled")
			}
			if m.IsOpen() || !h.Released() {
				t.Errorf("open = %v, released = %v", m.IsOpen(), h.Released())
			}
			if files := tempFiles(t, dir); len(files) != 0 {
				t.Errorf("temp files left: %v", files)
			}
		})
	}
}

func TestIgnoredInputs(t *testing.T) {
	m, _, _ := newTestManager(t)
	if m.HandleKey(KeyEscape) {
		t.Error("Escape consumed while closed")
	}

	wait(t, m.Open(context.Background(), pngFile, "tok"))
	if m.HandleKey("a") {
		t.Error("non-Escape key consumed")
	}
	if m.HandleClick(true) {
		t.Error("inside click consumed")
	}
	if !m.IsOpen() {
		t.Error("dialog closed by ignored input")
	}
	m.Close()
}

func TestResultAfterCloseReleased(t *testing.T) {
	m, f, dir := newTestManager(t)
	release := f.gate("x")

	done := m.Open(context.Background(), pngFile, "tok")
	m.Close()
	close(release)
	wait(t, done)

	if st := m.State(); st.Open || st.Resource != nil {
		t.Errorf("state = %+v", st)
	}
	if files := tempFiles(t, dir); len(files) != 0 {
		t.Errorf("temp files left: %v", files)
	}
}

func TestMissingTokenIsInlineError(t *testing.T) {
	m, _, _ := newTestManager(t)

	wait(t, m.Open(context.Background(), pngFile, ""))
	if st := m.State(); !strings.Contains(st.Err, "token not available") {
		t.Errorf("Err = %q", st.Err)
	}
}

// recorder notes which visitor method ran.
type recorder struct{ got string }

func (r *recorder) Image(*Resource) error       { r.got = "image"; return nil }
func (r *recorder) PDF(*Resource) error         { r.got = "pdf"; return nil }
func (r *recorder) Video(*Resource) error       { r.got = "video"; return nil }
func (r *recorder) Text(*Resource) error        { r.got = "text"; return nil }
func (r *recorder) Unsupported(*Resource) error { r.got = "unsupported"; return nil }

func TestAcceptDispatchesByKind(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	for _, tt := range []struct {
		file model.StorageItem
		want string
	}{
		{pngFile, "image"},
		{pdfFile, "pdf"},
		{textFile, "text"},
		{zipFile, "unsupported"},
	} {
		wait(t, m.Open(ctx, tt.file, "tok"))
		res := m.State().Resource
		if res == nil {
			t.Fatalf("%s: no resource", tt.file.Name)
		}
		var r recorder
		if err := res.Accept(&r); err != nil {
			t.Fatalf("Accept: %v", err)
		}
		if r.got != tt.want {
			t.Errorf("%s dispatched to %s, want %s", tt.file.Name, r.got, tt.want)
		}
	}
	m.Close()

	bogus := &Resource{Kind: "hologram"}
	if err := bogus.Accept(&recorder{}); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestTextAndUnsupportedResources(t *testing.T) {
	m, _, dir := newTestManager(t)
	ctx := context.Background()

	wait(t, m.Open(ctx, textFile, "tok"))
	if res := m.State().Resource; res.Text != "hola" || res.Handle != nil {
		t.Errorf("text resource = %+v", res)
	}

	wait(t, m.Open(ctx, zipFile, "tok"))
	res := m.State().Resource
	if res.Message == "" || res.ContentType != "application/zip" {
		t.Errorf("unsupported resource = %+v", res)
	}
	if files := tempFiles(t, dir); len(files) != 0 {
		t.Errorf("non-binary previews created temp files: %v", files)
	}
	if err := m.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestNewResourceRejectsUnknownKind(t *testing.T) {
	_, err := newResource(t.TempDir(), pngFile, &model.Preview{Kind: "hologram"})
	if err == nil {
		t.Fatal("expected error")
	}
	if _, err := newResource(t.TempDir(), pngFile, nil); err == nil {
		t.Error("expected error for nil preview")
	}
}
