package render

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestSanitizeLabel(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"final", "final"},
		{"tick-42", "tick-42"},
		{"frame.0600", "frame.0600"},
		{"growth finished", "growth_finished"},
		{"trees/3", "trees_3"},
		{"budget:100ms", "budget_100ms"},
		{"", "unlabeled"},
		{"   ", "unlabeled"},
	}
	for _, tt := range tests {
		if got := sanitizeLabel(tt.in); got != tt.want {
			t.Errorf("sanitizeLabel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestScreenshotQueue(t *testing.T) {
	r := NewRenderer()
	r.Screenshot("a")
	r.Screenshot("b")
	if len(r.screenshotQueue) != 2 || r.screenshotQueue[0] != "a" || r.screenshotQueue[1] != "b" {
		t.Errorf("queue = %v, want [a b]", r.screenshotQueue)
	}
	if r.ScreenshotDir != "screenshots" {
		t.Errorf("ScreenshotDir = %q, want %q", r.ScreenshotDir, "screenshots")
	}
}

func TestToNRGBAUnpremultiplies(t *testing.T) {
	pixels := []byte{
		255, 0, 0, 255, // opaque red
		64, 32, 0, 128, // half-transparent
		0, 0, 0, 0,     // clear
	}
	img := toNRGBA(pixels, 3, 1)
	want := []byte{
		255, 0, 0, 255,
		127, 63, 0, 128,
		0, 0, 0, 0,
	}
	for i := range want {
		if img.Pix[i] != want[i] {
			t.Fatalf("Pix = %v, want %v", img.Pix, want)
		}
	}
}

func TestWritePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.png")
	src := toNRGBA([]byte{10, 20, 30, 255, 40, 50, 60, 255}, 2, 1)
	if err := writePNG(path, src); err != nil {
		t.Fatalf("writePNG: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 2 || b.Dy() != 1 {
		t.Errorf("bounds = %v, want 2x1", b)
	}

	if err := writePNG(filepath.Join(t.TempDir(), "missing", "out.png"), src); err == nil {
		t.Error("writePNG into a missing directory succeeded")
	}
}
