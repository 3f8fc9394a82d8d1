// Package testimg builds small images, optionally carrying EXIF tags, for tests.
package testimg

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"os"
	"sort"
	"testing"
)

// EXIF tag IDs used by the date resolver.
const (
	TagDateTime          uint16 = 0x0132
	TagDateTimeOriginal  uint16 = 0x9003
	TagDateTimeDigitized uint16 = 0x9004

	tagExifIFDPointer uint16 = 0x8769
	typeASCII         uint16 = 2
	typeLong          uint16 = 4
)

// Solid returns a w×h image filled with c.
func Solid(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

// JPEG encodes img and splices an APP1 Exif segment holding tags after SOI.
// A nil or empty tags map produces a plain JPEG.
func JPEG(t testing.TB, img image.Image, tags map[uint16]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	raw := buf.Bytes()
	if len(tags) == 0 {
		return raw
	}

	payload := append([]byte("Exif\x00\x00"), TIFF(tags)...)
	seg := []byte{0xFF, 0xE1, 0, 0}
	binary.BigEndian.PutUint16(seg[2:], uint16(len(payload)+2))
	seg = append(seg, payload...)

	out := make([]byte, 0, len(raw)+len(seg))
	out = append(out, raw[:2]...)
	out = append(out, seg...)
	out = append(out, raw[2:]...)
	return out
}

// PNG encodes img without metadata.
func PNG(t testing.TB, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// WriteFile writes data to path, failing the test on error.
func WriteFile(t testing.TB, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

type entry struct {
	tag   uint16
	typ   uint16
	count uint32
	value []byte
}

// TIFF builds a little-endian TIFF structure with DateTime in IFD0 and the
// remaining ASCII tags in an Exif sub-IFD.
func TIFF(tags map[uint16]string) []byte {
	var ifd0, sub []entry
	for tag, val := range tags {
		e := entry{tag: tag, typ: typeASCII, count: uint32(len(val) + 1), value: append([]byte(val), 0)}
		if tag < tagExifIFDPointer {
			ifd0 = append(ifd0, e)
		} else {
			sub = append(sub, e)
		}
	}
	if len(sub) > 0 {
		ifd0 = append(ifd0, entry{tag: tagExifIFDPointer, typ: typeLong, count: 1})
	}
	sort.Slice(ifd0, func(i, j int) bool { return ifd0[i].tag < ifd0[j].tag })
	sort.Slice(sub, func(i, j int) bool { return sub[i].tag < sub[j].tag })

	ifdSize := func(n int) uint32 { return uint32(2 + 12*n + 4) }
	ifd0Off := uint32(8)
	subOff := ifd0Off + ifdSize(len(ifd0))
	dataOff := subOff
	if len(sub) > 0 {
		dataOff += ifdSize(len(sub))
	}

	le := binary.LittleEndian
	var data []byte
	place := func(e entry) []byte {
		field := make([]byte, 4)
		if len(e.value) <= 4 {
			copy(field, e.value)
			return field
		}
		le.PutUint32(field, dataOff+uint32(len(data)))
		data = append(data, e.value...)
		if len(data)%2 == 1 {
			data = append(data, 0)
		}
		return field
	}
	writeIFD := func(entries []entry) []byte {
		out := make([]byte, 2, ifdSize(len(entries)))
		le.PutUint16(out, uint16(len(entries)))
		for _, e := range entries {
			rec := make([]byte, 8)
			le.PutUint16(rec[0:], e.tag)
			le.PutUint16(rec[2:], e.typ)
			le.PutUint32(rec[4:], e.count)
			var field []byte
			if e.tag == tagExifIFDPointer {
				field = make([]byte, 4)
				le.PutUint32(field, subOff)
			} else {
				field = place(e)
			}
			out = append(out, rec...)
			out = append(out, field...)
		}
		return append(out, 0, 0, 0, 0)
	}

	out := []byte{'I', 'I', 42, 0, 8, 0, 0, 0}
	out = append(out, writeIFD(ifd0)...)
	if len(sub) > 0 {
		out = append(out, writeIFD(sub)...)
	}
	return append(out, data...)
}
