package preview

import (
	"fmt"

	"github.com/me/hackloud/pkg/model"
)

// Resource is the displayable form of one previewed file.
type Resource struct {
	Kind        model.PreviewKind
	File        model.StorageItem
	ContentType string

	// Handle holds the content of image, pdf and video previews.
	Handle *Handle

	// Text holds the body of text previews.
	Text      string
	Truncated bool

	// Message explains why an unsupported file has no preview.
	Message string
}

// Release frees the resource's temporary content, if any.
func (r *Resource) Release() error {
	if r == nil {
		return nil
	}
	return r.Handle.Release()
}

// Visitor is implemented by everything that renders a Resource. Each kind
// has its own method, so adding a kind breaks every renderer until it
// handles the new kind.
type Visitor interface {
	Image(r *Resource) error
	PDF(r *Resource) error
	Video(r *Resource) error
	Text(r *Resource) error
	Unsupported(r *Resource) error
}

// Accept dispatches r to the visitor method for its kind.
func (r *Resource) Accept(v Visitor) error {
	switch r.Kind {
	case model.PreviewImage:
		return v.Image(r)
	case model.PreviewPDF:
		return v.PDF(r)
	case model.PreviewVideo:
		return v.Video(r)
	case model.PreviewText:
		return v.Text(r)
	case model.PreviewUnsupported:
		return v.Unsupported(r)
	}
	return fmt.Errorf("unknown preview kind %q", r.Kind)
}

// newResource turns a fetched preview into a resource, spilling binary
// content to a temporary file in dir.
func newResource(dir string, file model.StorageItem, p *model.Preview) (*Resource, error) {
	if p == nil {
		return nil, fmt.Errorf("empty preview for %s", file.Name)
	}
	r := &Resource{Kind: p.Kind, File: file, ContentType: p.ContentType}
	switch p.Kind {
	case model.PreviewImage, model.PreviewPDF, model.PreviewVideo:
		h, err := newHandle(dir, file.Name, p.Data)
		if err != nil {
			return nil, err
		}
		r.Handle = h
	case model.PreviewText:
		r.Text = p.Text
		r.Truncated = p.Truncated
	case model.PreviewUnsupported:
		r.Message = p.Message
	default:
		return nil, fmt.Errorf("unknown preview kind %q", p.Kind)
	}
	return r, nil
}
