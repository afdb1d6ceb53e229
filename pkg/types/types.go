package types

import "sync"

// QualityResult is the model's verdict on whether an image (or masked region)
// is usable for nuclei counting. Immutable once returned. A result restored
// from a saved session carries Restored=true instead of a fresh verdict.
type QualityResult struct {
	IsSuitable bool     `json:"is_suitable"`
	Feedback   string   `json:"feedback"`
	Issues     []string `json:"issues"`
	Restored   bool     `json:"restored,omitempty"`
}

// RawCount is a single counting pass as reported by the model.
type RawCount struct {
	Positive int `json:"positive_count"`
	Negative int `json:"negative_count"`
	Total    int `json:"total_count"`
}

// CountResult is the aggregate over the analysis passes.
// Invariant: Total == Positive + Negative.
type CountResult struct {
	Positive int `json:"positive_count"`
	Negative int `json:"negative_count"`
	Total    int `json:"total_count"`
}

// EditedImage is the payload returned by a text-directed image edit.
type EditedImage struct {
	Data []byte
	MIME string
}

// SessionRecord is the single persisted snapshot of the most recent
// successful analysis. Only the ORIGINAL (unmasked) image is persisted.
type SessionRecord struct {
	Result    CountResult `json:"result"`
	ImageB64  string      `json:"image_b64"`
	ImageName string      `json:"image_name"`
	MIMEType  string      `json:"mime_type"`
}

// TrainingExample is a labeled calibration image. Data-only; the core
// workflow never feeds these to the model client.
type TrainingExample struct {
	ID        string `json:"id"`
	ImageB64  string `json:"image_b64"`
	ImageName string `json:"image_name"`
	MIMEType  string `json:"mime_type"`
	Positive  int    `json:"positive_count"`
	Negative  int    `json:"negative_count"`
}

// ImageHandle is an owned reference to a loaded image: the raw payload, its
// MIME type, and an optional release hook for the display resource backing
// it. The hook runs exactly once regardless of how often Release is called.
type ImageHandle struct {
	Data []byte
	MIME string
	Name string

	releaseOnce sync.Once
	release     func()
}

// NewImageHandle wraps an image payload. release may be nil when the handle
// has no display resource to tear down.
func NewImageHandle(data []byte, mime, name string, release func()) *ImageHandle {
	return &ImageHandle{Data: data, MIME: mime, Name: name, release: release}
}

// Release tears down the display resource backing this handle.
func (h *ImageHandle) Release() {
	if h == nil || h.release == nil {
		return
	}
	h.releaseOnce.Do(h.release)
}
