// Package processing handles image plumbing for the workstation: decoding
// uploads (PNG/JPEG/WebP), lossless re-encoding, base64 conversion for the
// model wire, and rasterizing a selection polygon into a clipping mask.
package processing

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"net/http"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// Decode decodes an image payload with WebP fallback.
func Decode(data []byte) (image.Image, error) {
	if img, _, err := image.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	return nil, fmt.Errorf("image: unknown or unsupported format")
}

// EncodePNG encodes an image losslessly with alpha preserved.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DetectMIME sniffs the MIME type of an image payload.
func DetectMIME(data []byte) string {
	return http.DetectContentType(data)
}

// ToBase64 encodes a binary payload for the model wire.
func ToBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// FromBase64 decodes a payload received from the model wire or a session
// record.
func FromBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}

// PrepareForModel converts an image payload to base64 for the vision model,
// optionally downscaling so the long side does not exceed maxDim (0 keeps the
// original size). format selects the transfer encoding: "png" for lossless,
// anything else is JPEG at the given quality.
func PrepareForModel(data []byte, format string, maxDim, quality int) (string, error) {
	img, err := Decode(data)
	if err != nil {
		return "", err
	}
	if maxDim > 0 {
		b := img.Bounds()
		w, h := b.Dx(), b.Dy()
		if w > maxDim || h > maxDim {
			if w >= h {
				img = imaging.Resize(img, maxDim, 0, imaging.Lanczos)
			} else {
				img = imaging.Resize(img, 0, maxDim, imaging.Lanczos)
			}
		}
	}

	var buf bytes.Buffer
	switch strings.ToLower(format) {
	case "png":
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(&buf, img); err != nil {
			return "", err
		}
	default: // jpg
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return "", err
		}
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
