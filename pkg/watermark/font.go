package watermark

import (
	"os"

	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// embeddedTTF is the default face, used whenever it parses.
var embeddedTTF = goregular.TTF

// SystemFontPaths are tried in order when the embedded font fails to load.
var SystemFontPaths = []string{
	"/System/Library/Fonts/Arial.ttf",
	"/Library/Fonts/Arial.ttf",
	`C:\Windows\Fonts\arial.ttf`,
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/liberation/LiberationSans-Regular.ttf",
}

// LoadFace resolves a face of the given size: the embedded Go Regular font,
// then SystemFontPaths, then basicfont, which ignores size. It never fails.
func LoadFace(size int, logger *zap.Logger) font.Face {
	if logger == nil {
		logger = zap.NewNop()
	}

	face, err := parseFace(embeddedTTF, size)
	if err == nil {
		logger.Debug("using embedded Go Regular font")
		return face
	}
	logger.Warn("failed to load embedded font", zap.Error(err))

	for _, p := range SystemFontPaths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		face, err := loadFontFace(p, size)
		if err == nil {
			logger.Debug("using system font", zap.String("path", p))
			return face
		}
		logger.Warn("failed to load font", zap.String("path", p), zap.Error(err))
	}

	logger.Warn("cannot load any scalable font; falling back to built-in bitmap font, requested size is ignored",
		zap.Int("size", size))
	return basicfont.Face7x13
}

func loadFontFace(path string, size int) (font.Face, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseFace(data, size)
}

func parseFace(data []byte, size int) (font.Face, error) {
	fnt, err := opentype.Parse(data)
	if err != nil {
		return nil, err
	}
	return opentype.NewFace(fnt, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
}
