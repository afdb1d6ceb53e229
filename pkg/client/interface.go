// Package client defines the interfaces between the workflow core and the
// vision model provider, plus the error kinds every capability may fail
// with. Implementations live in pkg/vision (capabilities) and pkg/ollama /
// pkg/openaichat (transports).
package client

import (
	"context"

	"github.com/xwxf04-crypto/ihc-nuclear-count/pkg/types"
)

// VisionClient is the capability surface the workflow controller depends on.
// Every method requests deterministic decoding from the provider. Failures
// are ErrModelCall (transport/provider) or ErrMalformedOutput (response
// shape violation); the implementation checks every required field's
// presence and type before accepting a result.
type VisionClient interface {
	// CheckQuality asks whether the image is usable for nuclei counting.
	CheckQuality(ctx context.Context, img []byte, mime string) (*types.QualityResult, error)

	// CountNuclei performs one counting pass. The workflow invokes this
	// twice per analysis with identical parameters.
	CountNuclei(ctx context.Context, img []byte, mime string) (*types.RawCount, error)

	// EditImage applies a free-text instruction to the whole image and
	// returns the edited payload.
	EditImage(ctx context.Context, img []byte, mime, instruction string) (*types.EditedImage, error)
}

// Request is a single prompt+image exchange sent to a transport backend.
type Request struct {
	Prompt   string
	ImageB64 string
	MIME     string
}

// Response is what a transport backend returned: the text content and any
// image payloads the model attached.
type Response struct {
	Text   string
	Images [][]byte
}

// ChatBackend is the transport under the capability layer: one multimodal
// exchange with a concrete provider, deterministic decoding requested.
type ChatBackend interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}
