package watermark

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"photowatermark/pkg/photodate"
)

var validExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".tiff": true,
	".bmp":  true,
}

// Options configures Process.
type Options struct {
	Style    Style
	Position Position
	Quality  int
	Logger   *zap.Logger
}

// Result describes a finished run.
type Result struct {
	Text       string
	Source     photodate.Source
	OutputPath string
	Placement  Placement
}

// Process stamps the capture date onto inputPath and writes the result to
// OutputPath(inputPath).
func Process(inputPath string, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	wm, err := NewWatermarker(opts.Style, opts.Position, logger)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(inputPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInputNotFound, inputPath, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrInputNotFound, inputPath)
	}
	if !validExtensions[strings.ToLower(filepath.Ext(inputPath))] {
		logger.Warn("file may not be a supported image format", zap.String("path", inputPath))
	}

	text, src := (&photodate.Resolver{Logger: logger}).Resolve(inputPath)
	logger.Info("using watermark text", zap.String("text", text), zap.String("source", string(src)))

	img, err := imaging.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", inputPath, err)
	}

	marked, pl := wm.Apply(img, text)

	out, err := PrepareOutput(inputPath)
	if err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	if err := SaveImage(marked, out, opts.Quality); err != nil {
		return nil, fmt.Errorf("save %s: %w", out, err)
	}
	logger.Info("watermark saved", zap.String("path", out))

	return &Result{Text: text, Source: src, OutputPath: out, Placement: pl}, nil
}
