// Package openaichat is the transport backend for OpenAI-compatible chat
// servers (llama.cpp server, vLLM, hosted gateways).
package openaichat

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/xwxf04-crypto/ihc-nuclear-count/pkg/client"
)

// Message follows the OpenAI chat format. Content is either a string or a
// []ContentPart, so it stays an interface both ways.
type Message struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type ImageURL struct {
	URL string `json:"url"`
}

type ChatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Stream      bool      `json:"stream"`
}

type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
}

type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason,omitempty"`
}

// Client talks to an OpenAI-compatible /v1/chat/completions endpoint for a
// fixed model.
type Client struct {
	http  *resty.Client
	model string
}

// NewClient creates a backend for the server at serverURL.
func NewClient(serverURL, model string) (*Client, error) {
	if serverURL == "" {
		serverURL = "http://localhost:8080"
	}
	httpClient := resty.New().
		SetBaseURL(strings.TrimSuffix(serverURL, "/")).
		SetTimeout(5 * time.Minute)

	return &Client{http: httpClient, model: model}, nil
}

// Generate performs one multimodal exchange with temperature pinned to 0.
// Image payloads the model returns as data URLs in the response content are
// surfaced in Response.Images.
func (c *Client) Generate(ctx context.Context, req client.Request) (*client.Response, error) {
	content := []ContentPart{{Type: "text", Text: req.Prompt}}
	if req.ImageB64 != "" {
		mime := req.MIME
		if mime == "" {
			mime = "image/jpeg"
		}
		content = append(content, ContentPart{
			Type:     "image_url",
			ImageURL: &ImageURL{URL: "data:" + mime + ";base64," + req.ImageB64},
		})
	}

	chatReq := ChatCompletionRequest{
		Model: c.model,
		Messages: []Message{
			{Role: "user", Content: content},
		},
		Temperature: 0,
		MaxTokens:   4096,
		Stream:      false,
	}

	var chatResp ChatCompletionResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(chatReq).
		SetResult(&chatResp).
		Post("/v1/chat/completions")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", client.ErrModelCall, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: server returned status %d: %s", client.ErrModelCall, resp.StatusCode(), resp.String())
	}
	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in response", client.ErrModelCall)
	}

	out := &client.Response{}
	switch content := chatResp.Choices[0].Message.Content.(type) {
	case string:
		collectContent(out, "text", content)
	case []interface{}:
		for _, item := range content {
			part, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			if text, ok := part["text"].(string); ok {
				collectContent(out, "text", text)
			}
			if imgURL, ok := part["image_url"].(map[string]interface{}); ok {
				if u, ok := imgURL["url"].(string); ok {
					collectContent(out, "image", u)
				}
			}
		}
	}

	if out.Text == "" && len(out.Images) == 0 {
		return nil, fmt.Errorf("%w: no content in response", client.ErrModelCall)
	}
	return out, nil
}

// collectContent routes one content fragment into the response, decoding
// data-URL images.
func collectContent(resp *client.Response, kind, value string) {
	if value == "" {
		return
	}
	switch kind {
	case "image":
		if data, ok := decodeDataURL(value); ok {
			resp.Images = append(resp.Images, data)
		}
	default:
		if data, ok := decodeDataURL(value); ok {
			resp.Images = append(resp.Images, data)
			return
		}
		if resp.Text == "" {
			resp.Text = value
		}
	}
}

// decodeDataURL decodes "data:<mime>;base64,<payload>" strings.
func decodeDataURL(s string) ([]byte, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "data:") {
		return nil, false
	}
	idx := strings.Index(s, ";base64,")
	if idx < 0 {
		return nil, false
	}
	data, err := base64.StdEncoding.DecodeString(s[idx+len(";base64,"):])
	if err != nil {
		return nil, false
	}
	return data, true
}
