// Package signature captures and renders customer signatures as PNG images.
//
// A Pad owns one raster and models a single pointer: strokes are
// BeginStroke, any number of ContinueStroke calls, then EndStroke. A Pad is not
// safe for concurrent mutation; callers serialize gesture events.
package signature

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/draw"

	"github.com/fogleman/gg"

	dErrors "dlvery/pkg/domain-errors"
)

const (
	DefaultHeight = 180
	// DefaultWidth is used by Replay when the recorded canvas size is unknown.
	DefaultWidth = 400

	lineWidth   = 2
	strokeColor = "#111827"
	background  = "#ffffff"

	dataURLPrefix = "data:image/png;base64,"
)

// Point is a pointer position in raster coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pad is an in-memory signature surface.
type Pad struct {
	dc     *gg.Context
	active bool
	last   Point
}

// NewPad returns a cleared pad. Non-positive dimensions are clamped to 1 wide
// and DefaultHeight tall.
func NewPad(width, height int) *Pad {
	width, height = normalize(width, height)
	p := &Pad{dc: newContext(width, height)}
	p.Clear()
	return p
}

func normalize(width, height int) (int, int) {
	if width <= 0 {
		width = 1
	}
	if height <= 0 {
		height = DefaultHeight
	}
	return width, height
}

func newContext(width, height int) *gg.Context {
	dc := gg.NewContext(width, height)
	dc.SetLineWidth(lineWidth)
	dc.SetLineCapRound()
	dc.SetLineJoinRound()
	return dc
}

// Width of the raster in pixels.
func (p *Pad) Width() int { return p.dc.Width() }

// Height of the raster in pixels.
func (p *Pad) Height() int { return p.dc.Height() }

// Active reports whether a stroke is in progress.
func (p *Pad) Active() bool { return p.active }

// BeginStroke starts a stroke at pt. Ignored while a stroke is active.
func (p *Pad) BeginStroke(pt Point) {
	if p.active {
		return
	}
	p.active = true
	p.last = pt
}

// ContinueStroke draws a segment from the previous point to pt.
// Ignored when no stroke is active.
func (p *Pad) ContinueStroke(pt Point) {
	if !p.active {
		return
	}
	p.dc.SetHexColor(strokeColor)
	p.dc.MoveTo(p.last.X, p.last.Y)
	p.dc.LineTo(pt.X, pt.Y)
	p.dc.Stroke()
	p.last = pt
}

// EndStroke finishes the current stroke.
func (p *Pad) EndStroke() {
	p.active = false
	p.last = Point{}
}

// Clear paints the whole raster white. It does not end an active stroke.
func (p *Pad) Clear() {
	p.dc.SetHexColor(background)
	p.dc.Clear()
}

// Resize replaces the raster with one of the new size and redraws the previous
// content at the origin before returning. Content beyond the new bounds is
// cropped; newly exposed area is white.
func (p *Pad) Resize(width, height int) {
	width, height = normalize(width, height)
	if width == p.Width() && height == p.Height() {
		return
	}
	snapshot := p.snapshot()
	p.dc = newContext(width, height)
	p.Clear()
	p.dc.DrawImage(snapshot, 0, 0)
}

// snapshot copies the raster so the new context never aliases the old buffer.
func (p *Pad) snapshot() image.Image {
	src := p.dc.Image()
	b := src.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, src, b.Min, draw.Src)
	return dst
}

// Blank reports whether the raster holds nothing but background.
func (p *Pad) Blank() bool {
	img := p.dc.Image()
	b := img.Bounds()
	white := color.RGBAModel.Convert(color.White)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if color.RGBAModel.Convert(img.At(x, y)) != white {
				return false
			}
		}
	}
	return true
}

// ExportPNG encodes the raster. It has no side effects and the output is
// deterministic for identical raster contents.
func (p *Pad) ExportPNG() []byte {
	var buf bytes.Buffer
	// Encoding into a bytes.Buffer cannot fail for an RGBA raster.
	_ = p.dc.EncodePNG(&buf)
	return buf.Bytes()
}

// ExportBase64 returns the PNG as standard base64.
func (p *Pad) ExportBase64() string {
	return base64.StdEncoding.EncodeToString(p.ExportPNG())
}

// ExportDataURL returns the PNG as a data:image/png;base64 URL.
func (p *Pad) ExportDataURL() string {
	return dataURLPrefix + p.ExportBase64()
}

// HasStrokes reports whether any stroke has a segment to draw.
func HasStrokes(strokes [][]Point) bool {
	for _, stroke := range strokes {
		if len(stroke) >= 2 {
			return true
		}
	}
	return false
}

// Replay renders recorded strokes on a fresh pad and returns the PNG. A
// non-positive width selects DefaultWidth. Strokes that leave no ink on the
// raster are rejected with CodeValidation.
func Replay(width, height int, strokes [][]Point) ([]byte, error) {
	if !HasStrokes(strokes) {
		return nil, dErrors.New(dErrors.CodeValidation, "signature needs at least one stroke of two or more points")
	}
	if width <= 0 {
		width = DefaultWidth
	}
	p := NewPad(width, height)
	for _, stroke := range strokes {
		if len(stroke) == 0 {
			continue
		}
		p.BeginStroke(stroke[0])
		for _, pt := range stroke[1:] {
			p.ContinueStroke(pt)
		}
		p.EndStroke()
	}
	if p.Blank() {
		return nil, dErrors.New(dErrors.CodeValidation, "signature strokes leave no ink on the canvas")
	}
	return p.ExportPNG(), nil
}
