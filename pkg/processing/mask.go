package processing

import (
	"errors"
	"fmt"
	"image"
	"image/draw"

	"golang.org/x/image/vector"

	"github.com/xwxf04-crypto/ihc-nuclear-count/pkg/geometry"
)

// ErrRasterize is returned when the mask drawing surface cannot be built or
// the masked image cannot be encoded.
var ErrRasterize = errors.New("mask rasterization failed")

// RasterizeMask applies a closed selection polygon as a clip region over the
// source image at native resolution. Each normalized point (x,y) maps to
// pixel coordinates (x/100*W, y/100*H); the closed path through the mapped
// points becomes an alpha mask and the source is drawn through it. The
// output keeps the source dimensions with everything outside the selection
// fully transparent. Deterministic for fixed inputs.
func RasterizeMask(src image.Image, poly geometry.Polygon) (*image.NRGBA, error) {
	if !poly.Maskable() {
		return nil, fmt.Errorf("%w: polygon must be closed with more than two points", geometry.ErrInvalidSelection)
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: source image has no pixels", ErrRasterize)
	}

	fw, fh := float64(w), float64(h)
	r := vector.NewRasterizer(w, h)
	r.MoveTo(float32(poly.Points[0].X/100*fw), float32(poly.Points[0].Y/100*fh))
	for _, pt := range poly.Points[1:] {
		r.LineTo(float32(pt.X/100*fw), float32(pt.Y/100*fh))
	}
	r.ClosePath()

	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	r.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})

	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.DrawMask(out, out.Bounds(), src, b.Min, mask, image.Point{}, draw.Over)
	return out, nil
}

// BuildMasked decodes an image payload, applies the selection polygon as a
// clip mask, and re-encodes the result losslessly. Returns the derived
// payload and its MIME type.
func BuildMasked(data []byte, poly geometry.Polygon) ([]byte, string, error) {
	img, err := Decode(data)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrRasterize, err)
	}
	masked, err := RasterizeMask(img, poly)
	if err != nil {
		return nil, "", err
	}
	encoded, err := EncodePNG(masked)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrRasterize, err)
	}
	return encoded, "image/png", nil
}
