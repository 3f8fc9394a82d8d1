package photodate

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var (
	errNoEXIF      = errors.New("no exif block")
	errCorruptEXIF = errors.New("corrupt exif block")
)

var exifPrefix = []byte("Exif\x00\x00")

// Byte size per TIFF field type; types outside this table are rejected.
var tiffTypeSize = map[uint16]uint64{
	1: 1, 2: 1, 3: 2, 4: 4, 5: 8, 6: 1,
	7: 1, 8: 2, 9: 4, 10: 8, 11: 4, 12: 8,
}

// Pointer tags whose value is the offset of a sub-IFD (Exif, GPS, Interop).
var subIFDTags = map[uint16]bool{
	0x8769: true,
	0x8825: true,
	0xA005: true,
}

// exifPayload returns the TIFF structure holding the EXIF tags: the whole
// file for TIFF input, the APP1 Exif segment for JPEG input.
func exifPayload(r io.ReadSeeker) ([]byte, error) {
	head := make([]byte, 4)
	if _, err := io.ReadFull(r, head); err != nil {
		return nil, err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	switch {
	case string(head) == "II*\x00" || string(head) == "MM\x00*":
		return io.ReadAll(r)
	case head[0] == 0xFF && head[1] == 0xD8:
		data := extractJPEGSegment(r, 0xE1, exifPrefix)
		if data == nil {
			return nil, errNoEXIF
		}
		return data, nil
	default:
		return nil, errNoEXIF
	}
}

// extractJPEGSegment finds a JPEG APP segment by marker byte and prefix.
// Returns the segment data after the prefix, or nil.
func extractJPEGSegment(r io.Reader, marker byte, prefix []byte) []byte {
	buf := make([]byte, 2)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil
	}
	if buf[0] != 0xFF || buf[1] != 0xD8 {
		return nil
	}
	for {
		if _, err := io.ReadFull(r, buf[:1]); err != nil || buf[0] != 0xFF {
			return nil
		}
		segMarker := byte(0xFF)
		for segMarker == 0xFF {
			if _, err := io.ReadFull(r, buf[:1]); err != nil {
				return nil
			}
			segMarker = buf[0]
		}
		switch {
		case segMarker == 0xDA || segMarker == 0xD9:
			return nil
		case segMarker == 0x01 || (segMarker >= 0xD0 && segMarker <= 0xD7):
			continue
		}

		if _, err := io.ReadFull(r, buf); err != nil {
			return nil
		}
		segLen := int(binary.BigEndian.Uint16(buf)) - 2
		if segLen < 0 {
			return nil
		}
		data := make([]byte, segLen)
		if _, err := io.ReadFull(r, data); err != nil {
			return nil
		}
		if segMarker == marker && bytes.HasPrefix(data, prefix) {
			return data[len(prefix):]
		}
	}
}

// checkTIFF walks the IFD chain and the Exif, GPS and Interop sub-IFDs. It
// rejects entries whose values run past the end of b, unknown field types
// and IFD cycles.
func checkTIFF(b []byte) error {
	n := uint64(len(b))
	if n < 8 {
		return fmt.Errorf("%w: short header", errCorruptEXIF)
	}
	var order binary.ByteOrder
	switch string(b[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return fmt.Errorf("%w: bad byte order", errCorruptEXIF)
	}
	if order.Uint16(b[2:]) != 42 {
		return fmt.Errorf("%w: bad magic", errCorruptEXIF)
	}

	type ifdRef struct {
		off   uint32
		chain bool
	}
	seen := map[uint32]bool{}
	pending := []ifdRef{{off: order.Uint32(b[4:]), chain: true}}
	for len(pending) > 0 {
		ref := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		off := ref.off
		if off == 0 {
			continue
		}
		if seen[off] {
			return fmt.Errorf("%w: ifd loop at %d", errCorruptEXIF, off)
		}
		seen[off] = true

		if uint64(off)+2 > n {
			return fmt.Errorf("%w: ifd at %d out of range", errCorruptEXIF, off)
		}
		count := uint64(order.Uint16(b[off:]))
		end := uint64(off) + 2 + 12*count + 4
		if end > n {
			return fmt.Errorf("%w: ifd at %d truncated", errCorruptEXIF, off)
		}

		for i := uint64(0); i < count; i++ {
			e := b[uint64(off)+2+12*i:]
			tag := order.Uint16(e[0:])
			typ := order.Uint16(e[2:])
			size, ok := tiffTypeSize[typ]
			if !ok {
				return fmt.Errorf("%w: tag %#04x has unknown type %d", errCorruptEXIF, tag, typ)
			}
			size *= uint64(order.Uint32(e[4:]))
			val := order.Uint32(e[8:])
			if size > 4 && uint64(val)+size > n {
				return fmt.Errorf("%w: tag %#04x value out of range", errCorruptEXIF, tag)
			}
			if subIFDTags[tag] {
				if typ != 4 || size != 4 {
					return fmt.Errorf("%w: tag %#04x is not an ifd pointer", errCorruptEXIF, tag)
				}
				pending = append(pending, ifdRef{off: val})
			}
		}
		// Only the main chain is decoded past its first IFD.
		if ref.chain {
			pending = append(pending, ifdRef{off: order.Uint32(b[end-4:]), chain: true})
		}
	}
	return nil
}
