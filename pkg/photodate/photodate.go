// Package photodate derives the date string stamped onto a photo.
package photodate

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
	"go.uber.org/zap"
)

// Unknown is returned when neither metadata nor the filesystem yield a date.
const Unknown = "Unknown Date"

// Layout is the output date format.
const Layout = "2006-01-02"

// Source names the tier a date was resolved from.
type Source string

const (
	SourceEXIF    Source = "exif"
	SourceModTime Source = "mtime"
	SourceDefault Source = "default"
)

// captureFields are consulted in order; the first non-empty value wins.
var captureFields = []exif.FieldName{
	exif.DateTimeOriginal,
	exif.DateTime,
	exif.DateTimeDigitized,
}

var timestampLayouts = []string{
	"2006:01:02 15:04:05",
	"2006/01/02 15:04:05",
}

// Record maps the names of ASCII EXIF tags to their values.
type Record map[string]string

// ReadRecord decodes the EXIF block embedded in the file at path. The block
// is bounds-checked before it reaches the decoder.
func ReadRecord(path string) (Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	raw, err := exifPayload(f)
	if err != nil {
		return nil, err
	}
	if err := checkTIFF(raw); err != nil {
		return nil, err
	}

	x, err := exif.Decode(bytes.NewReader(raw))
	if err != nil && (x == nil || exif.IsCriticalError(err)) {
		return nil, err
	}
	rec := Record{}
	if err := x.Walk(recordWalker{rec: rec}); err != nil {
		return nil, err
	}
	if len(rec) == 0 {
		return nil, errors.New("exif block has no tags")
	}
	return rec, nil
}

type recordWalker struct {
	rec Record
}

func (w recordWalker) Walk(name exif.FieldName, tag *tiff.Tag) error {
	if tag.Type != tiff.DTAscii {
		return nil
	}
	val, err := tag.StringVal()
	if err != nil {
		return nil
	}
	w.rec[string(name)] = strings.TrimSpace(strings.Trim(val, "\x00"))
	return nil
}

// CaptureValue returns the first non-empty capture-time field.
func (r Record) CaptureValue() (string, bool) {
	for _, name := range captureFields {
		if v := strings.TrimSpace(r[string(name)]); v != "" {
			return v, true
		}
	}
	return "", false
}

// CaptureTime parses the capture-time field against the accepted layouts.
func (r Record) CaptureTime() (time.Time, bool) {
	raw, ok := r.CaptureValue()
	if !ok {
		return time.Time{}, false
	}
	return parseTimestamp(raw)
}

func parseTimestamp(raw string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Resolver turns an image path into watermark text. The zero value is usable.
type Resolver struct {
	Logger *zap.Logger
}

// Resolve returns the watermark text for path and the tier it came from.
// It never fails: every problem degrades to the next tier.
func (r *Resolver) Resolve(path string) (string, Source) {
	log := r.Logger
	if log == nil {
		log = zap.NewNop()
	}

	rec, err := ReadRecord(path)
	switch {
	case err != nil:
		log.Debug("no usable exif data", zap.String("path", path), zap.Error(err))
	default:
		raw, ok := rec.CaptureValue()
		if !ok {
			log.Debug("exif data has no capture time", zap.String("path", path))
			break
		}
		if t, ok := parseTimestamp(raw); ok {
			return t.Format(Layout), SourceEXIF
		}
		log.Debug("unparseable exif timestamp", zap.String("path", path), zap.String("value", raw))
	}

	info, err := os.Stat(path)
	if err != nil {
		log.Warn("cannot read modification time", zap.String("path", path), zap.Error(err))
		return Unknown, SourceDefault
	}
	return info.ModTime().Format(Layout), SourceModTime
}

// Resolve is shorthand for a Resolver without logging.
func Resolve(path string) string {
	text, _ := (&Resolver{}).Resolve(path)
	return text
}
