package processing

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/xwxf04-crypto/ihc-nuclear-count/pkg/geometry"
)

// createTestImage creates a simple test image
func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r := uint8((x * 255) / width)
			g := uint8((y * 255) / height)
			img.Set(x, y, color.RGBA{r, g, 128, 255})
		}
	}

	return img
}

func closedSquare() geometry.Polygon {
	return geometry.Polygon{
		Points: []geometry.Point{{X: 25, Y: 25}, {X: 75, Y: 25}, {X: 75, Y: 75}, {X: 25, Y: 75}},
		Closed: true,
	}
}

func TestRasterizeMaskRequiresMaskablePolygon(t *testing.T) {
	img := createTestImage(100, 100)

	open := geometry.Polygon{Points: []geometry.Point{{X: 10, Y: 10}, {X: 50, Y: 10}, {X: 30, Y: 50}}}
	if _, err := RasterizeMask(img, open); !errors.Is(err, geometry.ErrInvalidSelection) {
		t.Errorf("open polygon: expected ErrInvalidSelection, got %v", err)
	}

	small := geometry.Polygon{Points: []geometry.Point{{X: 10, Y: 10}, {X: 50, Y: 10}}, Closed: true}
	if _, err := RasterizeMask(img, small); !errors.Is(err, geometry.ErrInvalidSelection) {
		t.Errorf("2-point polygon: expected ErrInvalidSelection, got %v", err)
	}
}

func TestRasterizeMaskClipsOutside(t *testing.T) {
	img := createTestImage(200, 100)
	masked, err := RasterizeMask(img, closedSquare())
	if err != nil {
		t.Fatalf("RasterizeMask failed: %v", err)
	}

	if masked.Bounds() != img.Bounds() {
		t.Errorf("masked bounds %v, want source bounds %v", masked.Bounds(), img.Bounds())
	}

	// Center of the square selection: fully opaque, source color.
	if a := masked.NRGBAAt(100, 50).A; a != 255 {
		t.Errorf("inside selection: alpha %d, want 255", a)
	}
	// Corner far outside the selection: fully transparent.
	if a := masked.NRGBAAt(5, 5).A; a != 0 {
		t.Errorf("outside selection: alpha %d, want 0", a)
	}
	if a := masked.NRGBAAt(195, 95).A; a != 0 {
		t.Errorf("outside selection: alpha %d, want 0", a)
	}
}

func TestRasterizeMaskMapsNormalizedToPixels(t *testing.T) {
	// A selection covering the left half in normalized units covers the
	// left half in pixels regardless of resolution.
	poly := geometry.Polygon{
		Points: []geometry.Point{{X: 0, Y: 0}, {X: 50, Y: 0}, {X: 50, Y: 100}, {X: 0, Y: 100}},
		Closed: true,
	}
	img := createTestImage(400, 120)
	masked, err := RasterizeMask(img, poly)
	if err != nil {
		t.Fatalf("RasterizeMask failed: %v", err)
	}

	if a := masked.NRGBAAt(100, 60).A; a != 255 {
		t.Errorf("left half should be kept, alpha %d", a)
	}
	if a := masked.NRGBAAt(300, 60).A; a != 0 {
		t.Errorf("right half should be blanked, alpha %d", a)
	}
}

func TestBuildMaskedDeterministic(t *testing.T) {
	data, err := EncodePNG(createTestImage(120, 90))
	if err != nil {
		t.Fatal(err)
	}

	first, mime, err := BuildMasked(data, closedSquare())
	if err != nil {
		t.Fatalf("BuildMasked failed: %v", err)
	}
	second, _, err := BuildMasked(data, closedSquare())
	if err != nil {
		t.Fatalf("BuildMasked failed: %v", err)
	}

	if mime != "image/png" {
		t.Errorf("masked MIME %q, want image/png", mime)
	}
	if !bytes.Equal(first, second) {
		t.Error("BuildMasked is not deterministic for fixed inputs")
	}
}

func TestBuildMaskedRejectsGarbage(t *testing.T) {
	_, _, err := BuildMasked([]byte("not an image"), closedSquare())
	if !errors.Is(err, ErrRasterize) {
		t.Errorf("expected ErrRasterize, got %v", err)
	}
}

func TestDecodeEncodeRoundTrip(t *testing.T) {
	data, err := EncodePNG(createTestImage(64, 48))
	if err != nil {
		t.Fatal(err)
	}

	img, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if img.Bounds().Dx() != 64 || img.Bounds().Dy() != 48 {
		t.Errorf("decoded %dx%d, want 64x48", img.Bounds().Dx(), img.Bounds().Dy())
	}

	if mime := DetectMIME(data); mime != "image/png" {
		t.Errorf("DetectMIME = %q, want image/png", mime)
	}
}

func TestPrepareForModelDownscales(t *testing.T) {
	data, err := EncodePNG(createTestImage(800, 400))
	if err != nil {
		t.Fatal(err)
	}

	b64, err := PrepareForModel(data, "png", 200, 85)
	if err != nil {
		t.Fatalf("PrepareForModel failed: %v", err)
	}

	raw, err := FromBase64(b64)
	if err != nil {
		t.Fatal(err)
	}
	img, err := Decode(raw)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 200 {
		t.Errorf("long side %d, want 200", img.Bounds().Dx())
	}
}

func BenchmarkRasterizeMask(b *testing.B) {
	img := createTestImage(1024, 768)
	poly := closedSquare()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := RasterizeMask(img, poly); err != nil {
			b.Fatal(err)
		}
	}
}
