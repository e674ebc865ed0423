package hackloud

import (
	"context"
	"mime"
	"strings"
	"unicode/utf8"

	"github.com/me/hackloud/pkg/model"
)

// textualTypes are non-text/* MIME types that still render as text.
var textualTypes = map[string]bool{
	"application/json":       true,
	"application/xml":        true,
	"application/javascript": true,
	"application/x-yaml":     true,
	"application/yaml":       true,
	"application/x-sh":       true,
	"application/sql":        true,
}

// textExtensions cover files the mime table does not know as text.
var textExtensions = map[string]bool{
	".txt": true, ".md": true, ".csv": true, ".log": true, ".json": true,
	".yaml": true, ".yml": true, ".xml": true, ".js": true, ".jsx": true,
	".ts": true, ".go": true, ".py": true, ".sh": true, ".sql": true,
	".html": true, ".css": true, ".ini": true, ".toml": true,
}

// ClassifyContentType maps a MIME type to a preview kind.
func ClassifyContentType(contentType string) model.PreviewKind {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt = strings.ToLower(strings.TrimSpace(contentType))
	}
	switch {
	case mt == "":
		return model.PreviewUnsupported
	case strings.HasPrefix(mt, "image/"):
		return model.PreviewImage
	case mt == "application/pdf":
		return model.PreviewPDF
	case strings.HasPrefix(mt, "video/"):
		return model.PreviewVideo
	case strings.HasPrefix(mt, "text/"), textualTypes[mt], strings.HasSuffix(mt, "+json"), strings.HasSuffix(mt, "+xml"):
		return model.PreviewText
	}
	return model.PreviewUnsupported
}

// Classify decides the preview kind of a stored file from its declared
// content type, falling back to its extension.
func Classify(file model.StorageItem) (model.PreviewKind, string) {
	if file.ContentType != "" && file.ContentType != "application/octet-stream" {
		if k := ClassifyContentType(file.ContentType); k != model.PreviewUnsupported {
			return k, file.ContentType
		}
	}
	ext := file.Ext()
	if textExtensions[ext] {
		return model.PreviewText, "text/plain"
	}
	if byExt := mime.TypeByExtension(ext); byExt != "" {
		return ClassifyContentType(byExt), byExt
	}
	return model.PreviewUnsupported, file.ContentType
}

// FetchFilePreview downloads fileID and shapes it into a preview. Files that
// cannot be previewed yield an unsupported preview without downloading.
func (c *Client) FetchFilePreview(ctx context.Context, fileID, token string, meta model.StorageItem) (*model.Preview, error) {
	const op = "FetchFilePreview"

	kind, contentType := Classify(meta)
	if kind == model.PreviewUnsupported {
		if contentType == "" {
			contentType = "unknown"
		}
		return &model.Preview{
			Kind:        model.PreviewUnsupported,
			ContentType: contentType,
			Message:     "No preview available for this file type",
		}, nil
	}

	dl, err := c.DownloadFile(ctx, fileID, token)
	if err != nil {
		e := WrapError(op, err)
		if e.Kind != KindAuth && e.Kind != KindNotFound {
			e.Kind = KindPreview
		}
		if e.Message == "" {
			e.Message = "could not load the preview"
		}
		return nil, e
	}

	if dl.ContentType != "" && meta.ContentType == "" {
		if k := ClassifyContentType(dl.ContentType); k != model.PreviewUnsupported {
			kind, contentType = k, dl.ContentType
		}
	}

	p := &model.Preview{Kind: kind, ContentType: contentType}
	if kind != model.PreviewText {
		p.Data = dl.Data
		return p, nil
	}

	data := dl.Data
	if int64(len(data)) > c.config.MaxPreviewBytes {
		data = data[:c.config.MaxPreviewBytes]
		for i := 0; i < utf8.UTFMax && len(data) > 0 && !utf8.Valid(data); i++ {
			data = data[:len(data)-1]
		}
		p.Truncated = true
	}
	if !utf8.Valid(data) {
		return nil, NewError(op, KindPreview, "file is not valid UTF-8 text")
	}
	p.Text = string(data)
	return p, nil
}
