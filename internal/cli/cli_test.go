package cli

import (
	"bytes"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fpang/skybox-viewer/internal/panorama"
)

func TestFormatDurationShort(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0:00"},
		{7 * time.Second, "0:07"},
		{2*time.Minute + 5*time.Second, "2:05"},
		{time.Hour + 3*time.Minute + 9*time.Second, "1:03:09"},
	}
	for _, tt := range tests {
		if got := FormatDurationShort(tt.d); got != tt.want {
			t.Errorf("FormatDurationShort(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestFormatStyle(t *testing.T) {
	withImage := panorama.Style{ID: 3, Name: "Fantasy", Model: "M3", PreviewImageURL: "https://x/p.jpg"}
	if got, want := FormatStyle(withImage), "   3  Fantasy (Model: M3)  [preview]"; got != want {
		t.Errorf("FormatStyle = %q, want %q", got, want)
	}
	without := panorama.Style{ID: 12, Name: "Sketch", Model: "M2"}
	if got := FormatStyle(without); !strings.HasSuffix(got, "[no preview]") {
		t.Errorf("FormatStyle = %q, want no preview marker", got)
	}
	described := panorama.Style{ID: 5, Name: "Dreamy", Model: "M3", Description: " Soft pastel skies "}
	if got, want := FormatStyle(described), "   5  Dreamy (Model: M3)  [no preview]\n      Soft pastel skies"; got != want {
		t.Errorf("FormatStyle = %q, want %q", got, want)
	}
}

func TestFormatDescriptor(t *testing.T) {
	got := FormatDescriptor(panorama.Descriptor{ImageURL: "https://x/img.jpg", Prompt: "a quiet forest"})
	want := "Prompt: a quiet forest\nImage:  https://x/img.jpg\n"
	if got != want {
		t.Errorf("FormatDescriptor = %q, want %q", got, want)
	}
}

func TestPromptLine(t *testing.T) {
	tests := []struct {
		name  string
		input string
		def   string
		want  string
	}{
		{"typed value", "a quiet forest\n", "", "a quiet forest"},
		{"empty uses default", "\n", "dawn", "dawn"},
		{"eof uses default", "", "dawn", "dawn"},
		{"no trailing newline", "  dusk  ", "", "dusk"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			got := promptLine(strings.NewReader(tt.input), &out, "Prompt", tt.def)
			if got != tt.want {
				t.Errorf("promptLine = %q, want %q", got, tt.want)
			}
			if !strings.HasPrefix(out.String(), "Prompt") {
				t.Errorf("prompt label not written: %q", out.String())
			}
		})
	}
}

func TestSaveFrame(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 2))
	dir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		magic   []byte
		wantErr bool
	}{
		{"png", "frame.png", []byte("\x89PNG"), false},
		{"jpeg", "frame.JPG", []byte{0xff, 0xd8}, false},
		{"webp", "frame.webp", []byte("RIFF"), false},
		{"unsupported", "frame.gif", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			err := SaveFrame(path, img)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("SaveFrame: %v", err)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if !bytes.HasPrefix(data, tt.magic) {
				t.Errorf("file starts with %x, want %x", data[:4], tt.magic)
			}
		})
	}
}

func TestSaveFrameWithoutFrame(t *testing.T) {
	dir := t.TempDir()
	var nilFrame *image.RGBA

	tests := []struct {
		name string
		img  image.Image
	}{
		{"nil interface", nil},
		{"nil rgba", nilFrame},
		{"empty", image.NewRGBA(image.Rect(0, 0, 0, 0))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "frame.png")
			if err := SaveFrame(path, tt.img); err == nil {
				t.Fatal("expected error")
			}
			if _, err := os.Stat(path); !os.IsNotExist(err) {
				t.Errorf("frame file written: %v", err)
			}
		})
	}
}
