package hackloud

import (
	"context"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/me/hackloud/pkg/model"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		file model.StorageItem
		want model.PreviewKind
	}{
		{"png by extension", model.StorageItem{Name: "beach.png"}, model.PreviewImage},
		{"jpeg declared", model.StorageItem{Name: "x", ContentType: "image/jpeg"}, model.PreviewImage},
		{"pdf", model.StorageItem{Name: "cv.pdf"}, model.PreviewPDF},
		{"mp4", model.StorageItem{Name: "clip.mp4"}, model.PreviewVideo},
		{"markdown", model.StorageItem{Name: "README.md"}, model.PreviewText},
		{"json declared", model.StorageItem{Name: "data", ContentType: "application/json; charset=utf-8"}, model.PreviewText},
		{"octet stream falls back to ext", model.StorageItem{Name: "notes.txt", ContentType: "application/octet-stream"}, model.PreviewText},
		{"zip", model.StorageItem{Name: "backup.zip"}, model.PreviewUnsupported},
		{"no extension", model.StorageItem{Name: "Makefile"}, model.PreviewUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, _ := Classify(tt.file); got != tt.want {
				t.Errorf("Classify(%+v) = %q, want %q", tt.file, got, tt.want)
			}
		})
	}
}

func TestFetchFilePreview_Image(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/storage/files/f1/download" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("\x89PNG"))
	})

	p, err := c.FetchFilePreview(context.Background(), "f1", "tok", model.StorageItem{ID: "f1", Name: "beach.png"})
	if err != nil {
		t.Fatalf("FetchFilePreview: %v", err)
	}
	if p.Kind != model.PreviewImage || string(p.Data) != "\x89PNG" {
		t.Errorf("preview = %+v", p)
	}
}

func TestFetchFilePreview_TextTruncated(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte(strings.Repeat("ñ", 10)))
	})
	c.config.MaxPreviewBytes = 5

	p, err := c.FetchFilePreview(context.Background(), "f2", "tok", model.StorageItem{ID: "f2", Name: "a.txt"})
	if err != nil {
		t.Fatalf("FetchFilePreview: %v", err)
	}
	if p.Kind != model.PreviewText || !p.Truncated {
		t.Fatalf("preview = %+v", p)
	}
	if p.Text != "ññ" {
		t.Errorf("Text = %q, want %q", p.Text, "ññ")
	}
}

func TestFetchFilePreview_UnsupportedSkipsDownload(t *testing.T) {
	var calls atomic.Int32
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	p, err := c.FetchFilePreview(context.Background(), "f3", "tok", model.StorageItem{ID: "f3", Name: "backup.zip", ContentType: "application/zip"})
	if err != nil {
		t.Fatalf("FetchFilePreview: %v", err)
	}
	if p.Kind != model.PreviewUnsupported || p.ContentType != "application/zip" || p.Message == "" {
		t.Errorf("preview = %+v", p)
	}
	if calls.Load() != 0 {
		t.Errorf("expected no download, got %d requests", calls.Load())
	}
}

func TestFetchFilePreview_FailureIsPreviewError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusBadRequest, nil, model.NewValidationError("corrupt file"))
	})

	_, err := c.FetchFilePreview(context.Background(), "f4", "tok", model.StorageItem{ID: "f4", Name: "a.pdf"})
	if !IsPreviewError(err) {
		t.Fatalf("expected preview error, got %v", err)
	}
	if Message(err) != "corrupt file" {
		t.Errorf("Message = %q", Message(err))
	}
}

func TestFetchFilePreview_NotFoundKeepsKind(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusNotFound, nil, model.NewNotFoundError("File", "f5"))
	})

	_, err := c.FetchFilePreview(context.Background(), "f5", "tok", model.StorageItem{ID: "f5", Name: "a.txt"})
	if !IsNotFoundError(err) {
		t.Fatalf("expected not found error, got %v", err)
	}
}
