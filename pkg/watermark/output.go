package watermark

import (
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

// DefaultQuality is the JPEG quality used when saving.
const DefaultQuality = 95

// OutputPath returns <dir>/<name>_watermark/<base> for src.
func OutputPath(src string) string {
	dir, base := filepath.Split(src)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, name+"_watermark", base)
}

// PrepareOutput returns OutputPath(src) after creating its directory.
func PrepareOutput(src string) (string, error) {
	out := OutputPath(src)
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return "", err
	}
	return out, nil
}

// SaveImage encodes img in the format implied by path's extension.
func SaveImage(img image.Image, path string, quality int) error {
	if quality <= 0 {
		quality = DefaultQuality
	}
	return imaging.Save(img, path, imaging.JPEGQuality(quality))
}
