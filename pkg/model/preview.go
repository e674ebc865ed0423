package model

// PreviewKind is the closed classification of a file's previewable
// representation.
type PreviewKind string

const (
	PreviewImage       PreviewKind = "image"
	PreviewPDF         PreviewKind = "pdf"
	PreviewVideo       PreviewKind = "video"
	PreviewText        PreviewKind = "text"
	PreviewUnsupported PreviewKind = "unsupported"
)

// PreviewKinds lists every kind in display order.
var PreviewKinds = []PreviewKind{PreviewImage, PreviewPDF, PreviewVideo, PreviewText, PreviewUnsupported}

// Valid reports whether k is one of the known kinds.
func (k PreviewKind) Valid() bool {
	switch k {
	case PreviewImage, PreviewPDF, PreviewVideo, PreviewText, PreviewUnsupported:
		return true
	}
	return false
}

// IsBinary reports whether the kind is displayed through a loadable URI
// rather than inline text.
func (k PreviewKind) IsBinary() bool {
	return k == PreviewImage || k == PreviewPDF || k == PreviewVideo
}

// Preview is the payload fetched for a file preview. Data carries the raw
// bytes for binary kinds, Text the decoded body for text, and Message the
// explanation for unsupported files.
type Preview struct {
	Kind        PreviewKind
	ContentType string
	Data        []byte
	Text        string
	Truncated   bool
	Message     string
}
