package openaichat

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/xwxf04-crypto/ihc-nuclear-count/pkg/client"
)

func TestDecodeDataURL(t *testing.T) {
	payload := []byte{1, 2, 3, 4}
	url := "data:image/png;base64," + base64.StdEncoding.EncodeToString(payload)

	data, ok := decodeDataURL(url)
	if !ok || !bytes.Equal(data, payload) {
		t.Errorf("decodeDataURL = (%v, %v)", data, ok)
	}

	for _, bad := range []string{
		"https://example.com/image.png",
		"data:image/png;base64,%%%",
		"data:image/png,rawdata",
		"",
	} {
		if _, ok := decodeDataURL(bad); ok {
			t.Errorf("decodeDataURL(%q) should fail", bad)
		}
	}
}

func TestCollectContentRoutesImagesAndText(t *testing.T) {
	resp := &client.Response{}
	payload := base64.StdEncoding.EncodeToString([]byte{9, 9})

	collectContent(resp, "text", "the verdict")
	collectContent(resp, "text", "data:image/png;base64,"+payload)
	collectContent(resp, "image", "data:image/jpeg;base64,"+payload)

	if resp.Text != "the verdict" {
		t.Errorf("text = %q", resp.Text)
	}
	if len(resp.Images) != 2 {
		t.Errorf("images = %d, want 2", len(resp.Images))
	}
}

func TestNewClientDefaults(t *testing.T) {
	c, err := NewClient("", "test-model")
	if err != nil {
		t.Fatal(err)
	}
	if c.model != "test-model" {
		t.Errorf("model = %q", c.model)
	}
}
