package image

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/ulikunitz/xz"

	"github.com/jmylchreest/swatch/internal/util/imagecache"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		copy(img.Pix[i:], []uint8{10, 20, 30, 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func xzBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		t.Fatalf("failed to create xz writer: %v", err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestFileLoader(t *testing.T) {
	dir := t.TempDir()
	plain := writeFile(t, dir, "a.png", pngBytes(t, 5, 3))
	compressed := writeFile(t, dir, "b.png.xz", xzBytes(t, pngBytes(t, 4, 2)))
	garbage := writeFile(t, dir, "c.png", []byte("not an image"))

	tests := []struct {
		name    string
		path    string
		want    image.Rectangle
		wantErr bool
	}{
		{name: "png", path: plain, want: image.Rect(0, 0, 5, 3)},
		{name: "xz compressed png", path: compressed, want: image.Rect(0, 0, 4, 2)},
		{name: "garbage", path: garbage, wantErr: true},
		{name: "missing", path: filepath.Join(dir, "missing.png"), wantErr: true},
		{name: "directory", path: dir, wantErr: true},
		{name: "empty path", path: "", wantErr: true},
	}

	loader := NewFileLoader()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := loader.Load(tt.path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && img.Bounds() != tt.want {
				t.Errorf("bounds = %v, want %v", img.Bounds(), tt.want)
			}
		})
	}
}

func TestValidateImagePath(t *testing.T) {
	dir := t.TempDir()
	plain := writeFile(t, dir, "a.png", pngBytes(t, 2, 2))
	compressed := writeFile(t, dir, "a.jpg.xz", []byte("unchecked"))
	archive := writeFile(t, dir, "a.tar.xz", []byte("unchecked"))
	garbage := writeFile(t, dir, "b.png", []byte("nope"))

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{name: "png", path: plain},
		{name: "url", path: "https://example.com/x.png"},
		{name: "compressed image", path: compressed},
		{name: "compressed non-image", path: archive, wantErr: true},
		{name: "garbage", path: garbage, wantErr: true},
		{name: "missing", path: filepath.Join(dir, "missing.png"), wantErr: true},
		{name: "empty", path: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateImagePath(tt.path); (err != nil) != tt.wantErr {
				t.Errorf("ValidateImagePath(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
		})
	}
}

func TestAllowedFile(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"photo.png", true},
		{"photo.JPG", true},
		{"photo.jpeg", true},
		{"anim.gif", true},
		{"archive.tar.png", true},
		{"photo.webp", false},
		{"photo.bmp", false},
		{"png", false},
		{"photo.", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AllowedFile(tt.name); got != tt.want {
				t.Errorf("AllowedFile(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestIsImageFile(t *testing.T) {
	for _, name := range []string{"a.jpg", "a.JPEG", "a.png", "a.gif", "a.webp"} {
		if !IsImageFile(name) {
			t.Errorf("IsImageFile(%q) = false, want true", name)
		}
	}
	for _, name := range []string{"a.txt", "a", "a.png.xz"} {
		if IsImageFile(name) {
			t.Errorf("IsImageFile(%q) = true, want false", name)
		}
	}
}

func TestDecode(t *testing.T) {
	img, format, err := Decode(bytes.NewReader(pngBytes(t, 3, 3)))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if format != "png" {
		t.Errorf("format = %s, want png", format)
	}
	if img.Bounds().Dx() != 3 {
		t.Errorf("width = %d, want 3", img.Bounds().Dx())
	}

	if _, _, err := Decode(strings.NewReader("garbage")); err == nil {
		t.Error("Decode() expected error for garbage")
	}
}

func TestSmartLoaderURL(t *testing.T) {
	data := pngBytes(t, 6, 4)
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if !strings.HasPrefix(r.Header.Get("User-Agent"), "swatch/") {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	img, err := NewSmartLoader().LoadContext(context.Background(), srv.URL+"/img.png")
	if err != nil {
		t.Fatalf("LoadContext() error = %v", err)
	}
	if img.Bounds() != image.Rect(0, 0, 6, 4) {
		t.Errorf("bounds = %v", img.Bounds())
	}

	cached := NewSmartLoader().WithCache(imagecache.CacheOptions{Dir: t.TempDir()})
	for range 2 {
		if _, err := cached.Load(srv.URL + "/img.png"); err != nil {
			t.Fatalf("cached Load() error = %v", err)
		}
	}
	if got := hits.Load(); got != 2 {
		t.Errorf("server hits = %d, want 2 (one uncached, one cached)", got)
	}
}

func TestSmartLoaderLocalFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "a.png", pngBytes(t, 2, 2))
	if _, err := NewSmartLoader().Load(path); err != nil {
		t.Errorf("Load() error = %v", err)
	}
}

func TestPreview(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 1200, 300))
	for i := 0; i < len(src.Pix); i += 4 {
		copy(src.Pix[i:], []uint8{200, 100, 50, 255})
	}

	uri, err := Preview(src, 600)
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}

	const prefix = "data:image/jpeg;base64,"
	if !strings.HasPrefix(uri, prefix) {
		t.Fatalf("Preview() = %.40q..., want %s prefix", uri, prefix)
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, prefix))
	if err != nil {
		t.Fatalf("invalid base64: %v", err)
	}
	decoded, err := jpeg.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("preview is not a JPEG: %v", err)
	}
	if decoded.Bounds() != image.Rect(0, 0, 600, 150) {
		t.Errorf("preview bounds = %v, want 600x150", decoded.Bounds())
	}
}

func TestPreviewTransparentIsWhite(t *testing.T) {
	uri, err := Preview(image.NewNRGBA(image.Rect(0, 0, 16, 16)), 600)
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}
	raw, _ := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, "data:image/jpeg;base64,"))
	decoded, err := jpeg.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatal(err)
	}

	r, g, b, _ := decoded.At(8, 8).RGBA()
	if r>>8 < 250 || g>>8 < 250 || b>>8 < 250 {
		t.Errorf("centre = %v, want near white", color.RGBA64{R: uint16(r), G: uint16(g), B: uint16(b), A: 0xffff})
	}
}

func TestPreviewEmpty(t *testing.T) {
	if _, err := Preview(nil, 600); err == nil {
		t.Error("Preview(nil) expected error")
	}
	if _, err := Preview(image.NewRGBA(image.Rectangle{}), 600); err == nil {
		t.Error("Preview(empty) expected error")
	}
}
