// Package debug writes rendered frames and stencil masks to image files.
package debug

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/HugoSmits86/nativewebp"
	"golang.org/x/image/draw"
)

// Supported capture formats, selected by file extension.
const (
	FormatPNG  = ".png"
	FormatWebP = ".webp"
)

// SaveImage encodes img to path as PNG or WebP, chosen by the extension.
func SaveImage(path string, img image.Image) error {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != FormatPNG && ext != FormatWebP {
		return fmt.Errorf("unsupported image format %q", ext)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating output dir: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	if ext == FormatWebP {
		if err := nativewebp.Encode(f, img, nil); err != nil {
			return fmt.Errorf("encoding WebP: %w", err)
		}
	} else if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encoding PNG: %w", err)
	}
	return f.Close()
}

// Downsample shrinks img by an integer factor with CatmullRom filtering.
// Filtering runs on premultiplied alpha so transparent edges keep their
// colour. A factor below 2 returns img converted to NRGBA.
func Downsample(img image.Image, factor int) *image.NRGBA {
	b := img.Bounds()
	if factor < 2 {
		out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
		return out
	}

	w, h := max(b.Dx()/factor, 1), max(b.Dy()/factor, 1)
	premul := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(premul, premul.Bounds(), img, b.Min, draw.Src)

	small := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(small, small.Bounds(), premul, premul.Bounds(), draw.Src, nil)

	out := image.NewNRGBA(small.Bounds())
	draw.Draw(out, out.Bounds(), small, image.Point{}, draw.Src)
	return out
}

// ScreenshotCapture names and writes viewer screenshots.
type ScreenshotCapture struct {
	outputDir string
	prefix    string
	format    string
	now       func() time.Time
}

// NewScreenshotCapture writes files named prefix_<timestamp><format> into
// outputDir. An empty format means PNG.
func NewScreenshotCapture(outputDir, prefix, format string) *ScreenshotCapture {
	if format == "" {
		format = FormatPNG
	}
	if !strings.HasPrefix(format, ".") {
		format = "." + format
	}
	return &ScreenshotCapture{
		outputDir: outputDir,
		prefix:    prefix,
		format:    strings.ToLower(format),
		now:       time.Now,
	}
}

// SetOutputDir sets the output directory for screenshots.
func (sc *ScreenshotCapture) SetOutputDir(dir string) {
	sc.outputDir = dir
}

// Capture writes img and returns the file name.
func (sc *ScreenshotCapture) Capture(img image.Image) (string, error) {
	filename := sc.GenerateFilename()
	if err := SaveImage(filename, img); err != nil {
		return "", err
	}
	return filename, nil
}

// GenerateFilename generates a screenshot filename without saving.
func (sc *ScreenshotCapture) GenerateFilename() string {
	timestamp := sc.now().Format("2006-01-02_15-04-05.000")
	filename := fmt.Sprintf("%s_%s%s", sc.prefix, timestamp, sc.format)
	if sc.outputDir != "" {
		filename = filepath.Join(sc.outputDir, filename)
	}
	return filename
}
