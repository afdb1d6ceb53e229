// Package workflow is the state machine coordinating image acquisition,
// region selection, quality checking, two-pass counting analysis, and
// text-directed editing against an injected vision model client and session
// store.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/xwxf04-crypto/ihc-nuclear-count/pkg/analysis"
	"github.com/xwxf04-crypto/ihc-nuclear-count/pkg/client"
	"github.com/xwxf04-crypto/ihc-nuclear-count/pkg/geometry"
	"github.com/xwxf04-crypto/ihc-nuclear-count/pkg/processing"
	"github.com/xwxf04-crypto/ihc-nuclear-count/pkg/session"
	"github.com/xwxf04-crypto/ihc-nuclear-count/pkg/types"
)

var (
	// ErrNoImage: the operation needs a loaded image.
	ErrNoImage = errors.New("no image loaded")
	// ErrBusy: another model call of this workflow is still outstanding.
	ErrBusy = errors.New("operation already in progress")
	// ErrQualityRequired: analysis is gated behind a successful quality
	// check.
	ErrQualityRequired = errors.New("quality check required before analysis")
	// ErrNoInstruction: edit needs a non-empty instruction.
	ErrNoInstruction = errors.New("edit instruction must not be empty")
	// ErrSuperseded: the operation's image was replaced or cleared while
	// the model call was in flight; its result was discarded.
	ErrSuperseded = errors.New("operation superseded by a reset")
)

// Config holds the tunable workflow constants.
type Config struct {
	// ClosureThreshold is the polygon closure proximity radius in
	// normalized units.
	ClosureThreshold float64
	// Passes is how many identical counting calls one analysis issues.
	Passes int
}

// DefaultConfig returns the stock constants: 2.0-unit closure radius,
// two-pass analysis.
func DefaultConfig() Config {
	return Config{
		ClosureThreshold: geometry.DefaultClosureThreshold,
		Passes:           analysis.DefaultPasses,
	}
}

// Controller owns the workflow state. All methods are safe for use from one
// cooperative event loop; an internal mutex additionally makes them safe
// under Go's scheduler. Exactly one controller owns the image handle and the
// session record at a time.
type Controller struct {
	mu    sync.Mutex
	log   zerolog.Logger
	model client.VisionClient
	store session.Store
	cfg   Config

	// gen is bumped on every hard reset; async completions tagged with an
	// older generation are dropped.
	gen     uint64
	busy    bool
	state   State
	image   *types.ImageHandle
	polygon geometry.Polygon
	drawing bool
	quality *types.QualityResult
	result  *types.CountResult
	lastErr string
}

// New creates a controller in StateEmpty.
func New(model client.VisionClient, store session.Store, cfg Config, log zerolog.Logger) *Controller {
	if cfg.ClosureThreshold <= 0 {
		cfg.ClosureThreshold = geometry.DefaultClosureThreshold
	}
	if cfg.Passes <= 0 {
		cfg.Passes = analysis.DefaultPasses
	}
	return &Controller{
		log:   log,
		model: model,
		store: store,
		cfg:   cfg,
		state: StateEmpty,
	}
}

// LoadImage replaces the current image. This is a hard reset: the previous
// handle's display resource is released, the selection, quality verdict,
// analysis result, and persisted session record are all cleared. No partial
// carry-over between images.
func (c *Controller) LoadImage(data []byte, mime, name string, release func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.resetLocked()
	c.image = types.NewImageHandle(data, mime, name, release)
	c.drawing = true
	c.state = StateImageLoaded
	c.log.Info().Str("image", name).Str("mime", mime).Msg("image loaded")
}

// Reset clears everything back to StateEmpty, releasing the image handle
// and deleting the persisted session record.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
	c.log.Info().Msg("workflow reset")
}

// resetLocked is the shared hard-reset path. Callers hold the mutex.
func (c *Controller) resetLocked() {
	c.gen++
	c.busy = false
	if c.image != nil {
		c.image.Release()
		c.image = nil
	}
	c.polygon = geometry.Polygon{}
	c.drawing = false
	c.quality = nil
	c.result = nil
	c.lastErr = ""
	c.state = StateEmpty
	if err := session.ClearRecord(c.store); err != nil {
		c.log.Warn().Err(err).Msg("session record not cleared")
	}
}

// AddSelectionPoint appends a point to the selection polygon, closing it
// when the point lands within the closure radius of the first point. Valid
// only while drawing is enabled and no model call is outstanding.
func (c *Controller) AddSelectionPoint(pt geometry.Point) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.image == nil {
		return ErrNoImage
	}
	if c.busy {
		return ErrBusy
	}
	if !c.drawing {
		return fmt.Errorf("%w: drawing is not active", geometry.ErrInvalidSelection)
	}
	c.polygon = c.polygon.Append(pt, c.cfg.ClosureThreshold)
	if c.polygon.Closed {
		c.drawing = false
		c.state = StateSelectionClosed
	} else {
		c.state = StateSelecting
	}
	return nil
}

// ClearSelection discards the polygon and re-enables drawing, returning to
// an ImageLoaded-equivalent state. Rejected while a model call is
// outstanding.
func (c *Controller) ClearSelection() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.image == nil {
		return ErrNoImage
	}
	if c.busy {
		return ErrBusy
	}
	c.polygon = geometry.Polygon{}
	c.drawing = true
	c.quality = nil
	c.result = nil
	c.state = StateImageLoaded
	return nil
}

// effectiveInputLocked computes the image the model should see: the masked
// derivative when a closed polygon with more than two points exists and
// drawing is finished, the original otherwise. Callers hold the mutex.
func (c *Controller) effectiveInputLocked() ([]byte, string, error) {
	if !c.drawing && c.polygon.Maskable() {
		return processing.BuildMasked(c.image.Data, c.polygon)
	}
	return c.image.Data, c.image.MIME, nil
}

// RunQualityCheck submits the effective input for a suitability verdict.
// Rejected while a selection is in progress and not yet closed; on failure
// the prior state is preserved and only the error is surfaced.
func (c *Controller) RunQualityCheck(ctx context.Context) (*types.QualityResult, error) {
	c.mu.Lock()
	if err := c.guardModelCallLocked(); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	input, mime, err := c.effectiveInputLocked()
	if err != nil {
		c.lastErr = err.Error()
		c.mu.Unlock()
		return nil, err
	}
	gen := c.gen
	c.busy = true
	c.mu.Unlock()

	quality, err := c.model.CheckQuality(ctx, input, mime)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return nil, ErrSuperseded
	}
	c.busy = false
	if err != nil {
		c.lastErr = err.Error()
		c.log.Error().Err(err).Msg("quality check failed")
		return nil, err
	}
	c.quality = quality
	c.lastErr = ""
	c.state = StateQualityChecked
	c.log.Info().Bool("suitable", quality.IsSuitable).Strs("issues", quality.Issues).Msg("quality check done")
	return quality, nil
}

// RunAnalysis issues the configured number of sequential counting passes
// with identical parameters, reports progress at 0%, after each pass, and
// 100%, aggregates per the round-half-up averaging rule, and persists the
// ORIGINAL image with the aggregate. A failure at any pass aborts the whole
// operation: nothing is averaged, nothing is persisted, the prior result is
// untouched. Requires a prior successful quality check.
func (c *Controller) RunAnalysis(ctx context.Context, onProgress func(percent int)) (*types.CountResult, error) {
	if onProgress == nil {
		onProgress = func(int) {}
	}

	c.mu.Lock()
	if err := c.guardModelCallLocked(); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if c.quality == nil {
		c.mu.Unlock()
		return nil, ErrQualityRequired
	}
	input, mime, err := c.effectiveInputLocked()
	if err != nil {
		c.lastErr = err.Error()
		c.mu.Unlock()
		return nil, err
	}
	gen := c.gen
	prev := c.state
	passes := c.cfg.Passes
	c.busy = true
	c.state = StateAnalyzing
	c.mu.Unlock()

	onProgress(0)
	results := make([]types.RawCount, 0, passes)
	for i := 0; i < passes; i++ {
		// Identical parameters on every pass: same payload, same prompt,
		// deterministic decoding. The second call starts only after the
		// first fully resolves.
		raw, err := c.model.CountNuclei(ctx, input, mime)
		if err != nil {
			return nil, c.failAnalysis(gen, prev, err)
		}
		results = append(results, *raw)
		onProgress((i + 1) * 100 / passes)
	}

	aggregate, err := analysis.Aggregate(results)
	if err != nil {
		return nil, c.failAnalysis(gen, prev, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return nil, ErrSuperseded
	}
	c.busy = false
	c.result = &aggregate
	c.lastErr = ""
	c.state = StateResult
	c.log.Info().
		Int("positive", aggregate.Positive).
		Int("negative", aggregate.Negative).
		Int("total", aggregate.Total).
		Msg("analysis complete")

	rec := types.SessionRecord{
		Result:    aggregate,
		ImageB64:  processing.ToBase64(c.image.Data),
		ImageName: c.image.Name,
		MIMEType:  c.image.MIME,
	}
	if err := session.SaveRecord(c.store, rec); err != nil {
		// Persistence is best-effort: the analysis stands, the session is
		// just not saved.
		c.log.Warn().Err(err).Msg("session not saved")
	}
	return &aggregate, nil
}

// failAnalysis rolls back to the pre-analysis state after a failed pass.
func (c *Controller) failAnalysis(gen uint64, prev State, err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return ErrSuperseded
	}
	c.busy = false
	c.state = prev
	c.lastErr = err.Error()
	c.log.Error().Err(err).Msg("analysis aborted")
	return err
}

// RunEdit applies a free-text instruction to the whole original image; the
// selection mask is never applied to edits. On success the returned image
// replaces the current handle (releasing the prior display resource) and
// the selection, quality, and analysis state are cleared. On failure the
// previous image is kept.
func (c *Controller) RunEdit(ctx context.Context, instruction string) error {
	instruction = strings.TrimSpace(instruction)

	c.mu.Lock()
	// Edits ignore the selection entirely, so a half-drawn polygon does not
	// block them the way it blocks quality checks and analysis.
	if err := c.guardBusyLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	if instruction == "" {
		c.mu.Unlock()
		return ErrNoInstruction
	}
	gen := c.gen
	prev := c.state
	data, mime, name := c.image.Data, c.image.MIME, c.image.Name
	c.busy = true
	c.state = StateEditing
	c.mu.Unlock()

	edited, err := c.model.EditImage(ctx, data, mime, instruction)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return ErrSuperseded
	}
	c.busy = false
	if err != nil {
		c.state = prev
		c.lastErr = err.Error()
		c.log.Error().Err(err).Msg("edit failed")
		return err
	}

	c.image.Release()
	c.image = types.NewImageHandle(edited.Data, edited.MIME, name, nil)
	c.polygon = geometry.Polygon{}
	c.drawing = true
	c.quality = nil
	c.result = nil
	c.lastErr = ""
	c.state = StateImageLoaded
	c.log.Info().Str("image", name).Msg("edit applied")
	return nil
}

// RestoreSession reconstructs the image handle and analysis result from the
// persisted session record, if one exists. The quality verdict becomes a
// synthetic "restored, not re-verified" marker; the model is not consulted.
// Only meaningful at startup, from StateEmpty. Store failures are reported
// but must be treated as non-fatal by the caller.
func (c *Controller) RestoreSession() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateEmpty {
		return false, nil
	}
	rec, ok, err := session.LoadRecord(c.store)
	if err != nil {
		c.log.Warn().Err(err).Msg("session not restored")
		return false, err
	}
	if !ok {
		return false, nil
	}
	data, err := processing.FromBase64(rec.ImageB64)
	if err != nil {
		c.log.Warn().Err(err).Msg("session record image unreadable")
		return false, fmt.Errorf("%w: %v", session.ErrUnavailable, err)
	}

	c.gen++
	c.image = types.NewImageHandle(data, rec.MIMEType, rec.ImageName, nil)
	c.drawing = true
	result := rec.Result
	c.result = &result
	c.quality = &types.QualityResult{
		IsSuitable: true,
		Feedback:   "Restored from a previous session; quality was not re-verified.",
		Issues:     []string{},
		Restored:   true,
	}
	c.state = StateResult
	c.log.Info().Str("image", rec.ImageName).Msg("session restored")
	return true, nil
}

// guardBusyLocked holds the preconditions shared by every model-backed
// operation: an image must be loaded and no call may be outstanding. Callers
// hold the mutex.
func (c *Controller) guardBusyLocked() error {
	if c.image == nil {
		return ErrNoImage
	}
	if c.busy {
		return ErrBusy
	}
	return nil
}

// guardModelCallLocked additionally blocks submission while a selection is
// half-drawn, for the operations that consume the selection. Callers hold
// the mutex.
func (c *Controller) guardModelCallLocked() error {
	if err := c.guardBusyLocked(); err != nil {
		return err
	}
	if c.drawing && !c.polygon.Empty() {
		return fmt.Errorf("%w: selection still being drawn", geometry.ErrInvalidSelection)
	}
	return nil
}

// CurrentImage returns a copy of the loaded image payload and its MIME
// type.
func (c *Controller) CurrentImage() ([]byte, string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.image == nil {
		return nil, "", false
	}
	data := make([]byte, len(c.image.Data))
	copy(data, c.image.Data)
	return data, c.image.MIME, true
}

// Snapshot returns an immutable view of the controller for a rendering
// layer.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		State:     c.state,
		Busy:      c.busy,
		Polygon:   c.polygon.Clone(),
		Drawing:   c.drawing,
		LastError: c.lastErr,
	}
	if c.image != nil {
		snap.HasImage = true
		snap.ImageName = c.image.Name
		snap.ImageMIME = c.image.MIME
	}
	if c.quality != nil {
		quality := *c.quality
		quality.Issues = append([]string(nil), c.quality.Issues...)
		snap.Quality = &quality
	}
	if c.result != nil {
		result := *c.result
		snap.Result = &result
	}
	return snap
}
