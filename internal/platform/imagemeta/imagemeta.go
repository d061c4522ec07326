package imagemeta

import (
	"bytes"
	"image"
	"net/http"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Meta describes what could be learned from the leading bytes of an upload.
// Width and Height are zero when the content is not a decodable image.
type Meta struct {
	ContentType string
	Width       int
	Height      int
}

func (m Meta) IsImage() bool {
	return m.Width > 0 && m.Height > 0
}

// Probe sniffs the content type and, for image content, decodes the header
// for pixel dimensions. It never reads more than the bytes it is given, so
// callers can feed it a bounded prefix of a stream.
func Probe(head []byte) Meta {
	m := Meta{ContentType: "application/octet-stream"}
	if len(head) == 0 {
		return m
	}
	m.ContentType = http.DetectContentType(head)
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(head)); err == nil {
		m.Width = cfg.Width
		m.Height = cfg.Height
	}
	return m
}

// HeadCapture is an io.Writer that retains at most limit leading bytes and
// silently discards the rest. Tee an upload stream through one to probe
// metadata without buffering the payload.
type HeadCapture struct {
	limit int
	buf   bytes.Buffer
}

func NewHeadCapture(limit int) *HeadCapture {
	if limit <= 0 {
		limit = 512
	}
	return &HeadCapture{limit: limit}
}

func (h *HeadCapture) Write(p []byte) (int, error) {
	n := len(p)
	if room := h.limit - h.buf.Len(); room > 0 {
		if len(p) > room {
			p = p[:room]
		}
		h.buf.Write(p)
	}
	return n, nil
}

func (h *HeadCapture) Bytes() []byte {
	return h.buf.Bytes()
}
