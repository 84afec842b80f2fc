package boostrole

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func pngBytes(t *testing.T, width int, height int) []byte {
	t.Helper()

	// noise keeps the encoded size roughly proportional to the pixel count
	rng := rand.New(rand.NewSource(1))
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(rng.Intn(256)), G: uint8(rng.Intn(256)), B: uint8(rng.Intn(256)), A: 255})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}

	return buf.Bytes()
}

func imageServer(t *testing.T, contentType string, body []byte) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		w.Write(body)
	}))
	t.Cleanup(server.Close)

	return server
}

func TestIngestIconPNG(t *testing.T) {
	data := pngBytes(t, 16, 16)
	server := imageServer(t, "image/png", data)

	payload, hash, err := IngestIcon(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("IngestIcon failed: %v", err)
	}

	if !strings.HasPrefix(payload, "data:image/png;base64,") {
		t.Errorf("payload has wrong prefix: %.40s", payload)
	}
	if hash == "" {
		t.Error("expected a content hash")
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(payload, "data:image/png;base64,"))
	if err != nil {
		t.Fatalf("payload is not valid base64: %v", err)
	}
	if !bytes.Equal(decoded, data) {
		t.Error("small image should pass through unmodified")
	}
}

func TestIngestIconScalesOversized(t *testing.T) {
	// a large noisy image compresses badly, which is the point
	data := pngBytes(t, 900, 900)
	if len(data) <= roleIconMaxBytes {
		t.Fatalf("test image too small to trigger scaling: %d bytes", len(data))
	}
	server := imageServer(t, "image/png", data)

	payload, _, err := IngestIcon(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("IngestIcon failed: %v", err)
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(payload, "data:image/png;base64,"))
	if err != nil {
		t.Fatalf("payload is not valid base64: %v", err)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(decoded))
	if err != nil {
		t.Fatalf("scaled payload is not an image: %v", err)
	}
	if format != "png" {
		t.Errorf("scaled image format = %q, want png", format)
	}
	if cfg.Width > roleIconScaleSize || cfg.Height > roleIconScaleSize {
		t.Errorf("scaled image is %dx%d, want at most %dx%d", cfg.Width, cfg.Height, roleIconScaleSize, roleIconScaleSize)
	}
}

func TestIngestIconUnsupportedFormat(t *testing.T) {
	// minimal RIFF/WEBP header, enough for content sniffing
	webp := append([]byte("RIFF\x24\x00\x00\x00WEBPVP8 "), make([]byte, 64)...)
	server := imageServer(t, "", webp)

	_, _, err := IngestIcon(context.Background(), server.URL)

	formatErr, ok := err.(*UnsupportedFormatError)
	if !ok {
		t.Fatalf("expected UnsupportedFormatError, got %v", err)
	}
	if formatErr.Name != "Webp" {
		t.Errorf("format name = %q, want Webp", formatErr.Name)
	}
}

func TestIngestIconRejectsDataURL(t *testing.T) {
	_, _, err := IngestIcon(context.Background(), "data:image/png;base64,AAAA")

	if _, ok := err.(*UnreachableImageError); !ok {
		t.Fatalf("expected UnreachableImageError, got %v", err)
	}
}

func TestIngestIconNonImage(t *testing.T) {
	server := imageServer(t, "text/html", []byte("<html><body>not an image</body></html>"))

	_, _, err := IngestIcon(context.Background(), server.URL)

	if _, ok := err.(*UnreachableImageError); !ok {
		t.Fatalf("expected UnreachableImageError, got %v", err)
	}
}

func TestIngestIconUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(server.Close)

	_, _, err := IngestIcon(context.Background(), server.URL)

	if _, ok := err.(*UnreachableImageError); !ok {
		t.Fatalf("expected UnreachableImageError, got %v", err)
	}
}
