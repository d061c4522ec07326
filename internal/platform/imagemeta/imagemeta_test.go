package imagemeta

import (
	"bytes"
	"image"
	"image/png"
	"strings"
	"testing"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestProbePNG(t *testing.T) {
	t.Parallel()
	m := Probe(encodePNG(t, 3, 2))
	if m.ContentType != "image/png" {
		t.Fatalf("content type=%q want image/png", m.ContentType)
	}
	if m.Width != 3 || m.Height != 2 {
		t.Fatalf("dims=%dx%d want 3x2", m.Width, m.Height)
	}
	if !m.IsImage() {
		t.Fatalf("expected IsImage")
	}
}

func TestProbeNonImage(t *testing.T) {
	t.Parallel()
	m := Probe([]byte("just some text, definitely not pixels"))
	if !strings.HasPrefix(m.ContentType, "text/plain") {
		t.Fatalf("content type=%q want text/plain prefix", m.ContentType)
	}
	if m.IsImage() {
		t.Fatalf("text should not report dimensions")
	}
}

func TestProbeEmpty(t *testing.T) {
	t.Parallel()
	m := Probe(nil)
	if m.ContentType != "application/octet-stream" {
		t.Fatalf("content type=%q", m.ContentType)
	}
	if m.IsImage() {
		t.Fatalf("empty input should not report dimensions")
	}
}

func TestHeadCaptureCapsRetainedBytes(t *testing.T) {
	t.Parallel()
	hc := NewHeadCapture(8)
	for i := 0; i < 4; i++ {
		n, err := hc.Write([]byte("abcd"))
		if err != nil || n != 4 {
			t.Fatalf("write: n=%d err=%v", n, err)
		}
	}
	if got := string(hc.Bytes()); got != "abcdabcd" {
		t.Fatalf("retained=%q want %q", got, "abcdabcd")
	}
}

func TestHeadCapturePreservesProbe(t *testing.T) {
	t.Parallel()
	raw := encodePNG(t, 5, 4)
	hc := NewHeadCapture(1 << 16)
	if _, err := hc.Write(raw); err != nil {
		t.Fatalf("write: %v", err)
	}
	m := Probe(hc.Bytes())
	if m.Width != 5 || m.Height != 4 {
		t.Fatalf("dims=%dx%d want 5x4", m.Width, m.Height)
	}
}
