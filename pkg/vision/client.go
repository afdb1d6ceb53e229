// Package vision implements the model capability surface: it builds the
// prompts, drives a transport backend, and strictly validates the responses.
// Unlike lenient subject-detection pipelines, a response that does not match
// the expected shape is a hard failure here; counting must never proceed on
// a guessed value.
package vision

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xwxf04-crypto/ihc-nuclear-count/pkg/client"
	"github.com/xwxf04-crypto/ihc-nuclear-count/pkg/processing"
	"github.com/xwxf04-crypto/ihc-nuclear-count/pkg/types"
)

// SendOptions controls how image payloads are re-encoded before hitting the
// model wire. The zero value sends payloads unmodified with their original
// MIME type.
type SendOptions struct {
	Format  string // "png" for lossless, "jpg" for lossy
	MaxDim  int    // longest-side cap in pixels, 0 keeps the original size
	Quality int    // JPEG quality 1-100
}

// Client implements client.VisionClient over a transport backend.
type Client struct {
	backend client.ChatBackend
	send    SendOptions
}

// NewClient wraps a transport backend.
func NewClient(backend client.ChatBackend, send SendOptions) *Client {
	return &Client{backend: backend, send: send}
}

// payload encodes one image for transmission, downscaling and transcoding
// per the send options.
func (c *Client) payload(img []byte, mime string) (string, string, error) {
	if c.send.Format == "" {
		return processing.ToBase64(img), mime, nil
	}
	b64, err := processing.PrepareForModel(img, c.send.Format, c.send.MaxDim, c.send.Quality)
	if err != nil {
		return "", "", fmt.Errorf("preparing model payload: %w", err)
	}
	if strings.EqualFold(c.send.Format, "png") {
		return b64, "image/png", nil
	}
	return b64, "image/jpeg", nil
}

// CheckQuality asks the model whether the image is usable for counting.
func (c *Client) CheckQuality(ctx context.Context, img []byte, mime string) (*types.QualityResult, error) {
	b64, mime, err := c.payload(img, mime)
	if err != nil {
		return nil, err
	}
	resp, err := c.backend.Generate(ctx, client.Request{
		Prompt:   QualityPrompt,
		ImageB64: b64,
		MIME:     mime,
	})
	if err != nil {
		return nil, err
	}
	return parseQualityResult(resp.Text)
}

// CountNuclei performs one counting pass.
func (c *Client) CountNuclei(ctx context.Context, img []byte, mime string) (*types.RawCount, error) {
	b64, mime, err := c.payload(img, mime)
	if err != nil {
		return nil, err
	}
	resp, err := c.backend.Generate(ctx, client.Request{
		Prompt:   CountPrompt,
		ImageB64: b64,
		MIME:     mime,
	})
	if err != nil {
		return nil, err
	}
	return parseRawCount(resp.Text)
}

// EditImage applies a free-text instruction to the whole image.
func (c *Client) EditImage(ctx context.Context, img []byte, mime, instruction string) (*types.EditedImage, error) {
	b64, mime, err := c.payload(img, mime)
	if err != nil {
		return nil, err
	}
	resp, err := c.backend.Generate(ctx, client.Request{
		Prompt:   editPromptPrefix + instruction,
		ImageB64: b64,
		MIME:     mime,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Images) == 0 {
		return nil, fmt.Errorf("%w: edit response carried no image", client.ErrMalformedOutput)
	}
	data := resp.Images[0]
	return &types.EditedImage{Data: data, MIME: processing.DetectMIME(data)}, nil
}

// parseQualityResult validates {is_suitable, feedback, issues} field by
// field.
func parseQualityResult(raw string) (*types.QualityResult, error) {
	fields, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}

	suitable, ok := fields["is_suitable"].(bool)
	if !ok {
		return nil, fmt.Errorf("%w: is_suitable missing or not a boolean", client.ErrMalformedOutput)
	}
	feedback, ok := fields["feedback"].(string)
	if !ok {
		return nil, fmt.Errorf("%w: feedback missing or not a string", client.ErrMalformedOutput)
	}

	result := &types.QualityResult{IsSuitable: suitable, Feedback: feedback, Issues: []string{}}
	rawIssues, ok := fields["issues"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: issues missing or not an array", client.ErrMalformedOutput)
	}
	for _, item := range rawIssues {
		tag, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("%w: issues contains a non-string entry", client.ErrMalformedOutput)
		}
		tag = strings.TrimSpace(tag)
		if tag != "" {
			result.Issues = append(result.Issues, tag)
		}
	}
	return result, nil
}

// parseRawCount validates the three numeric fields of one counting pass.
// A missing field, a non-numeric field, a fractional value, or a negative
// value all reject the whole pass.
func parseRawCount(raw string) (*types.RawCount, error) {
	fields, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}

	count := &types.RawCount{}
	for _, field := range []struct {
		name string
		dst  *int
	}{
		{"positive_count", &count.Positive},
		{"negative_count", &count.Negative},
		{"total_count", &count.Total},
	} {
		v, err := intField(fields, field.name)
		if err != nil {
			return nil, err
		}
		*field.dst = v
	}
	return count, nil
}

func intField(fields map[string]interface{}, name string) (int, error) {
	raw, present := fields[name]
	if !present {
		return 0, fmt.Errorf("%w: %s missing", client.ErrMalformedOutput, name)
	}
	f, ok := raw.(float64)
	if !ok {
		return 0, fmt.Errorf("%w: %s is not a number", client.ErrMalformedOutput, name)
	}
	n := int(f)
	if float64(n) != f {
		return 0, fmt.Errorf("%w: %s is not an integer", client.ErrMalformedOutput, name)
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: %s is negative", client.ErrMalformedOutput, name)
	}
	return n, nil
}

func decodeObject(raw string) (map[string]interface{}, error) {
	raw = sanitizeModelJSON(raw)
	if !strings.HasPrefix(raw, "{") {
		return nil, fmt.Errorf("%w: response is not a JSON object", client.ErrMalformedOutput)
	}
	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", client.ErrMalformedOutput, err)
	}
	return fields, nil
}
