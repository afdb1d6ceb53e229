// Package ollama is the Ollama transport backend for the vision client.
package ollama

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/xwxf04-crypto/ihc-nuclear-count/pkg/client"
)

const defaultTimeout = 300 * time.Second // generous for CPU-only hosts

// Client wraps the Ollama API client for a fixed model.
type Client struct {
	client *api.Client
	model  string
}

// NewClient creates a backend talking to the Ollama server at ollamaURL,
// using the given model for every exchange.
func NewClient(ollamaURL, model string) (*Client, error) {
	parsedURL, err := url.Parse(ollamaURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %v", err)
	}

	// Base URL only; path components like /api/chat are added by the SDK.
	baseURL := &url.URL{
		Scheme: parsedURL.Scheme,
		Host:   parsedURL.Host,
	}

	return &Client{
		client: api.NewClient(baseURL, http.DefaultClient),
		model:  model,
	}, nil
}

// Generate performs one multimodal exchange. Decoding is pinned
// deterministic (temperature 0, fixed seed) so repeated identical requests
// are as reproducible as the provider allows.
func (c *Client) Generate(ctx context.Context, req client.Request) (*client.Response, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultTimeout)
		defer cancel()
	}

	var images []api.ImageData
	if req.ImageB64 != "" {
		imgBytes, err := base64.StdEncoding.DecodeString(req.ImageB64)
		if err != nil {
			return nil, fmt.Errorf("%w: decoding request image: %v", client.ErrModelCall, err)
		}
		images = append(images, api.ImageData(imgBytes))
	}

	streamFalse := false
	chatReq := &api.ChatRequest{
		Model: c.model,
		Messages: []api.Message{
			{
				Role:    "user",
				Content: req.Prompt,
				Images:  images,
			},
		},
		Stream: &streamFalse,
		Options: map[string]any{
			"temperature": 0.0,
			"seed":        1,
		},
		// No Format field: the prompt dictates the response shape and the
		// capability layer validates it.
	}

	resp := &client.Response{}
	err := c.client.Chat(ctx, chatReq, func(r api.ChatResponse) error {
		resp.Text = r.Message.Content
		for _, img := range r.Message.Images {
			resp.Images = append(resp.Images, []byte(img))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: ollama chat: %v", client.ErrModelCall, err)
	}
	if resp.Text == "" && len(resp.Images) == 0 {
		return nil, fmt.Errorf("%w: empty response from ollama", client.ErrModelCall)
	}
	return resp, nil
}
