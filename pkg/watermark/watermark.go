package watermark

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// Margin is the distance in pixels between the text and the image edge.
const Margin = 10

var (
	ErrInvalidStyle  = errors.New("invalid watermark style")
	ErrInputNotFound = errors.New("input image not found")
)

// Position defines the watermark anchor.
type Position string

const (
	BottomRight Position = "bottom-right"
	BottomLeft  Position = "bottom-left"
	TopRight    Position = "top-right"
	TopLeft     Position = "top-left"
	Center      Position = "center"
)

// Positions lists every supported anchor.
var Positions = []Position{TopLeft, TopRight, BottomLeft, BottomRight, Center}

// ParsePosition accepts one of Positions, case-insensitively.
func ParsePosition(s string) (Position, error) {
	p := Position(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Positions {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: unknown position %q", ErrInvalidStyle, s)
}

// Anchor returns the top-left draw coordinate for a text box of textW×textH
// inside a width×height image. Unknown positions anchor bottom-right.
func Anchor(pos Position, width, height, textW, textH int) image.Point {
	switch pos {
	case TopLeft:
		return image.Pt(Margin, Margin)
	case TopRight:
		return image.Pt(width-textW-Margin, Margin)
	case BottomLeft:
		return image.Pt(Margin, height-textH-Margin)
	case Center:
		return image.Pt(floorDiv(width-textW, 2), floorDiv(height-textH, 2))
	default:
		return image.Pt(width-textW-Margin, height-textH-Margin)
	}
}

// floorDiv divides rounding toward negative infinity, so oversized text
// centers the same way on both sides of zero.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// RGB is a text color with channels expected in [0,255].
type RGB [3]int

// ParseColor reads "r,g,b", "r g b", "#rgb" or "#rrggbb".
func ParseColor(raw string) (RGB, error) {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "#") {
		return parseHexColor(s)
	}
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	if len(parts) != 3 {
		return RGB{}, fmt.Errorf("%w: expected format r,g,b, got %q", ErrInvalidStyle, raw)
	}
	var c RGB
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 || v > 255 {
			return RGB{}, fmt.Errorf("%w: invalid channel %q", ErrInvalidStyle, p)
		}
		c[i] = v
	}
	return c, nil
}

func parseHexColor(s string) (RGB, error) {
	str := strings.TrimPrefix(s, "#")
	switch len(str) {
	case 3:
		str = fmt.Sprintf("%c%c%c%c%c%c", str[0], str[0], str[1], str[1], str[2], str[2])
	case 6:
	default:
		return RGB{}, fmt.Errorf("%w: invalid color format %q", ErrInvalidStyle, s)
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(str, "%02x%02x%02x", &r, &g, &b); err != nil {
		return RGB{}, fmt.Errorf("%w: invalid color format %q", ErrInvalidStyle, s)
	}
	return RGB{int(r), int(g), int(b)}, nil
}

func (c RGB) String() string {
	return fmt.Sprintf("%d,%d,%d", c[0], c[1], c[2])
}

// Style holds the text appearance.
type Style struct {
	FontSize int
	Color    RGB
	Opacity  int
}

// DefaultStyle is white text at size 40 and half opacity.
func DefaultStyle() Style {
	return Style{FontSize: 40, Color: RGB{255, 255, 255}, Opacity: 128}
}

// Validate rejects out-of-range parameters.
func (s Style) Validate() error {
	if s.FontSize <= 0 {
		return fmt.Errorf("%w: font size must be greater than 0, got %d", ErrInvalidStyle, s.FontSize)
	}
	for _, ch := range s.Color {
		if ch < 0 || ch > 255 {
			return fmt.Errorf("%w: color channels must be within 0-255, got %s", ErrInvalidStyle, s.Color)
		}
	}
	if s.Opacity < 0 || s.Opacity > 255 {
		return fmt.Errorf("%w: opacity must be within 0-255, got %d", ErrInvalidStyle, s.Opacity)
	}
	return nil
}

func (s Style) fill() color.NRGBA {
	return color.NRGBA{R: uint8(s.Color[0]), G: uint8(s.Color[1]), B: uint8(s.Color[2]), A: uint8(s.Opacity)}
}

// Watermarker stamps text onto images with a fixed style and anchor.
type Watermarker struct {
	style      Style
	pos        Position
	face       font.Face
	background color.NRGBA
	logger     *zap.Logger
}

// NewWatermarker validates style and resolves the font face once.
func NewWatermarker(style Style, pos Position, logger *zap.Logger) (*Watermarker, error) {
	if err := style.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watermarker{
		style:      style,
		pos:        pos,
		face:       LoadFace(style.FontSize, logger),
		background: color.NRGBA{255, 255, 255, 255},
		logger:     logger,
	}, nil
}

// Placement is where the text's inked bounding box landed.
type Placement struct {
	Rect image.Rectangle
}

// Measure returns the inked bounds of text drawn with the dot at the origin.
func Measure(face font.Face, text string) image.Rectangle {
	b, _ := font.BoundString(face, text)
	return image.Rect(b.Min.X.Floor(), b.Min.Y.Floor(), b.Max.X.Ceil(), b.Max.Y.Ceil())
}

// Place computes where text lands inside an image of the given size.
func (w *Watermarker) Place(width, height int, text string) Placement {
	ink := Measure(w.face, text)
	pt := Anchor(w.pos, width, height, ink.Dx(), ink.Dy())
	return Placement{Rect: image.Rectangle{Min: pt, Max: pt.Add(ink.Size())}}
}

// Apply returns a new opaque image with text composited over im.
func (w *Watermarker) Apply(im image.Image, text string) (*image.RGBA, Placement) {
	base := imaging.Clone(im)
	width := base.Bounds().Dx()
	height := base.Bounds().Dy()

	pl := w.Place(width, height, text)
	if pl.Rect.Dx() > width || pl.Rect.Dy() > height {
		w.logger.Warn("watermark text may exceed image size",
			zap.String("text_size", fmt.Sprintf("%dx%d", pl.Rect.Dx(), pl.Rect.Dy())),
			zap.String("image_size", fmt.Sprintf("%dx%d", width, height)))
	}

	overlay := image.NewNRGBA(base.Bounds())
	drawTextAt(overlay, w.face, pl.Rect.Min, text, w.style.fill())
	draw.Draw(base, base.Bounds(), overlay, image.Point{}, draw.Over)

	result := flattenToRGB(base, w.background)
	if sameRGB(im, result) {
		w.logger.Warn("result identical to source; watermark not visible (increase opacity or change color)")
	}
	return result, pl
}

// drawTextAt draws text so its inked bounding box starts at topLeft.
func drawTextAt(dst draw.Image, face font.Face, topLeft image.Point, text string, col color.NRGBA) {
	ink := Measure(face, text)
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(topLeft.X-ink.Min.X, topLeft.Y-ink.Min.Y),
	}
	d.DrawString(text)
}

func flattenToRGB(img image.Image, bg color.NRGBA) *image.RGBA {
	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, &image.Uniform{C: bg}, image.Point{}, draw.Src)
	draw.Draw(rgba, bounds, img, bounds.Min, draw.Over)
	return rgba
}

func sameRGB(a, b image.Image) bool {
	ab := a.Bounds()
	bb := b.Bounds()
	if ab.Dx() != bb.Dx() || ab.Dy() != bb.Dy() {
		return false
	}
	for y := 0; y < ab.Dy(); y++ {
		for x := 0; x < ab.Dx(); x++ {
			ar, ag, abv, _ := a.At(ab.Min.X+x, ab.Min.Y+y).RGBA()
			br, bg, bbv, _ := b.At(bb.Min.X+x, bb.Min.Y+y).RGBA()
			if ar>>8 != br>>8 || ag>>8 != bg>>8 || abv>>8 != bbv>>8 {
				return false
			}
		}
	}
	return true
}
