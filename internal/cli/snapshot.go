package cli

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/rs/zerolog/log"
)

// SaveFrame encodes img to path. The format follows the extension: .png,
// .jpg/.jpeg or .webp.
func SaveFrame(path string, img image.Image) error {
	if rgba, ok := img.(*image.RGBA); img == nil || (ok && rgba == nil) || img.Bounds().Empty() {
		return fmt.Errorf("no frame to save to %s", path)
	}

	var buf bytes.Buffer
	var err error

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".png":
		err = png.Encode(&buf, img)
	case ".jpg", ".jpeg":
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	case ".webp":
		err = webp.Encode(&buf, img, &webp.Options{Quality: 80, Lossless: false})
	default:
		return fmt.Errorf("unsupported frame format %q (use .png, .jpg or .webp)", ext)
	}
	if err != nil {
		return fmt.Errorf("failed to encode frame: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}

	b := img.Bounds()
	log.Debug().
		Str("path", path).
		Int("width", b.Dx()).
		Int("height", b.Dy()).
		Int("bytes", buf.Len()).
		Msg("Frame saved")
	return nil
}
