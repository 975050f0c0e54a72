package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	stddraw "image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/evanoberholster/imagemeta"
	"github.com/h2non/filetype"
	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	// DefaultMaxTextureWidth mirrors the largest texture common GPUs accept.
	DefaultMaxTextureWidth = 8192

	// maxTextureBytes caps how much image data a single load may read.
	maxTextureBytes = 64 << 20

	// maxTexturePixels caps the decoded size, 16384x8192 at most.
	maxTexturePixels = 16384 * 8192

	// sniffLen is how many leading bytes are inspected for the file type.
	sniffLen = 262

	// defaultOrigin is the page origin presented on cross-origin requests.
	defaultOrigin = "http://localhost"
)

// CrossOriginAnonymous requests images without credentials and requires the
// host to allow pixel access via Access-Control-Allow-Origin.
const CrossOriginAnonymous = "anonymous"

// TextureLoader fetches and decodes panorama images.
type TextureLoader struct {
	HTTPClient *http.Client
	// CrossOrigin is "anonymous" or empty. When set, http(s) loads must be
	// answered with a permissive Access-Control-Allow-Origin header.
	CrossOrigin string
	// Origin is sent as the Origin header on cross-origin requests.
	Origin string
	// MaxWidth downsamples wider images; zero keeps the source size.
	MaxWidth int
}

// NewTextureLoader returns a loader in anonymous cross-origin mode.
func NewTextureLoader() *TextureLoader {
	return &TextureLoader{
		HTTPClient:  &http.Client{Timeout: 60 * time.Second},
		CrossOrigin: CrossOriginAnonymous,
		Origin:      defaultOrigin,
		MaxWidth:    DefaultMaxTextureWidth,
	}
}

// ImageTexture is a decoded RGBA texture.
type ImageTexture struct {
	source string

	mu       sync.RWMutex
	img      *image.RGBA
	width    int
	height   int
	disposed bool

	// CameraMake and CameraModel come from EXIF when the source had it.
	CameraMake  string
	CameraModel string
}

// NewImageTexture wraps an already decoded image.
func NewImageTexture(source string, src image.Image) *ImageTexture {
	b := src.Bounds()
	rgba, ok := src.(*image.RGBA)
	if !ok || b.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		stddraw.Draw(rgba, rgba.Bounds(), src, b.Min, stddraw.Src)
	}
	return &ImageTexture{source: source, img: rgba, width: b.Dx(), height: b.Dy()}
}

// Source returns the URL the texture was loaded from.
func (t *ImageTexture) Source() string { return t.source }

// Size returns the texture dimensions.
func (t *ImageTexture) Size() (int, int) { return t.width, t.height }

// Sample reads the texel at (u, v) with bilinear filtering. u wraps around
// the seam; v is clamped and v = 1 is the top row.
func (t *ImageTexture) Sample(u, v float32) color.RGBA {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.img == nil || t.width == 0 || t.height == 0 {
		return color.RGBA{}
	}

	u -= float32(int(u))
	if u < 0 {
		u++
	}
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}

	fx := u*float32(t.width) - 0.5
	fy := (1-v)*float32(t.height) - 0.5
	x0 := floorInt(fx)
	y0 := floorInt(fy)
	ax := fx - float32(x0)
	ay := fy - float32(y0)

	c00 := t.texel(x0, y0)
	c10 := t.texel(x0+1, y0)
	c01 := t.texel(x0, y0+1)
	c11 := t.texel(x0+1, y0+1)

	lerp := func(a, b, c, d uint8) uint8 {
		top := float32(a)*(1-ax) + float32(b)*ax
		bottom := float32(c)*(1-ax) + float32(d)*ax
		return uint8(top*(1-ay) + bottom*ay + 0.5)
	}
	return color.RGBA{
		R: lerp(c00.R, c10.R, c01.R, c11.R),
		G: lerp(c00.G, c10.G, c01.G, c11.G),
		B: lerp(c00.B, c10.B, c01.B, c11.B),
		A: lerp(c00.A, c10.A, c01.A, c11.A),
	}
}

// texel reads one pixel, wrapping x and clamping y.
func (t *ImageTexture) texel(x, y int) color.RGBA {
	x %= t.width
	if x < 0 {
		x += t.width
	}
	if y < 0 {
		y = 0
	} else if y >= t.height {
		y = t.height - 1
	}
	i := y*t.img.Stride + x*4
	p := t.img.Pix[i : i+4 : i+4]
	return color.RGBA{R: p[0], G: p[1], B: p[2], A: p[3]}
}

// Dispose releases the pixel data.
func (t *ImageTexture) Dispose() {
	t.mu.Lock()
	t.img = nil
	t.disposed = true
	t.mu.Unlock()
}

// Disposed reports whether Dispose was called.
func (t *ImageTexture) Disposed() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.disposed
}

// Load fetches rawURL (http, https, file URL or local path) and decodes it.
func (l *TextureLoader) Load(ctx context.Context, rawURL string) (*ImageTexture, error) {
	startTime := time.Now()

	data, err := l.fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	head := data
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	kind, err := filetype.Match(head)
	if err != nil {
		return nil, fmt.Errorf("sniff image type: %w", err)
	}
	if kind == filetype.Unknown || kind.MIME.Type != "image" {
		return nil, fmt.Errorf("not an image (detected %q)", kind.MIME.Value)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s header: %w", kind.MIME.Value, err)
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > maxTexturePixels {
		return nil, fmt.Errorf("image too large: %dx%d exceeds %d pixels", cfg.Width, cfg.Height, maxTexturePixels)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind.MIME.Value, err)
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("decode %s: empty image", format)
	}

	if l.MaxWidth > 0 && b.Dx() > l.MaxWidth {
		img = downsample(img, l.MaxWidth)
		log.Debug().
			Str("url", rawURL).
			Int("sourceWidth", b.Dx()).
			Int("width", img.Bounds().Dx()).
			Msg("Texture downsampled")
	}

	tex := NewImageTexture(rawURL, img)
	if format == "jpeg" {
		tex.CameraMake, tex.CameraModel = cameraInfo(data)
	}

	log.Debug().
		Str("url", rawURL).
		Str("format", format).
		Int("width", tex.width).
		Int("height", tex.height).
		Str("cameraMake", tex.CameraMake).
		Str("cameraModel", tex.CameraModel).
		Dur("duration", time.Since(startTime)).
		Msg("Texture loaded")
	return tex, nil
}

// fetch reads the raw bytes behind rawURL.
func (l *TextureLoader) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}

	switch u.Scheme {
	case "http", "https":
		return l.fetchHTTP(ctx, rawURL)
	case "file":
		return readFile(u.Path)
	case "":
		return readFile(rawURL)
	default:
		return nil, fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
}

func (l *TextureLoader) fetchHTTP(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if l.CrossOrigin != "" {
		req.Header.Set("Origin", l.origin())
	}

	client := l.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if l.CrossOrigin != "" && !allowsOrigin(resp.Header.Get("Access-Control-Allow-Origin"), l.origin()) {
		return nil, fmt.Errorf("cross-origin access denied: host did not allow origin %s", l.origin())
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxTextureBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(data) > maxTextureBytes {
		return nil, fmt.Errorf("image larger than %d bytes", maxTextureBytes)
	}
	return data, nil
}

func (l *TextureLoader) origin() string {
	if l.Origin != "" {
		return l.Origin
	}
	return defaultOrigin
}

// allowsOrigin reports whether an Access-Control-Allow-Origin value grants
// pixel access to origin.
func allowsOrigin(allow, origin string) bool {
	allow = strings.TrimSpace(allow)
	return allow == "*" || strings.EqualFold(allow, origin)
}

func readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxTextureBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	if len(data) > maxTextureBytes {
		return nil, fmt.Errorf("image larger than %d bytes", maxTextureBytes)
	}
	return data, nil
}

// downsample scales img to maxWidth, preserving the aspect ratio.
func downsample(img image.Image, maxWidth int) image.Image {
	b := img.Bounds()
	h := b.Dy() * maxWidth / b.Dx()
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// cameraInfo reads the EXIF camera make and model, if any. Many 360°
// cameras stamp them into the equirectangular JPEGs they produce.
func cameraInfo(data []byte) (string, string) {
	exifData, err := imagemeta.Decode(bytes.NewReader(data))
	if err != nil {
		return "", ""
	}
	return strings.TrimSpace(exifData.Make), strings.TrimSpace(exifData.Model)
}

func floorInt(f float32) int {
	i := int(f)
	if f < 0 && float32(i) != f {
		i--
	}
	return i
}
