// Package ihcnuclearcount orchestrates immunohistochemistry (IHC) nuclei
// counting with a multimodal vision model.
//
// A user loads an IHC image, optionally draws a free-form region of
// interest, and submits the selection (or the whole image) for a quality
// assessment, a two-pass nuclei-counting analysis, or a text-directed edit.
// This package owns the orchestration: turning the polygon selection into a
// masked derivative image, validating and averaging the model's
// probabilistic outputs, and keeping restart-safe session state. The model
// provider and the persistence layer are injected collaborators.
//
// Basic usage:
//
//	ws, err := ihcnuclearcount.New(ihcnuclearcount.Options{
//		Backend:   "ollama",
//		ServerURL: "http://localhost:11434",
//		Model:     "llava:13b",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	data, _ := os.ReadFile("slide.png")
//	ws.Controller.LoadImage(data, "image/png", "slide.png", nil)
//
//	quality, err := ws.Controller.RunQualityCheck(ctx)
//	...
//	result, err := ws.Controller.RunAnalysis(ctx, func(pct int) {
//		fmt.Printf("analysis %d%%\n", pct)
//	})
//
// The package consists of these components:
//
//  1. Geometry (pkg/geometry): the normalized selection polygon
//  2. Processing (pkg/processing): codecs and mask rasterization
//  3. Vision (pkg/vision): prompts and strict response validation
//  4. Transports (pkg/ollama, pkg/openaichat): model providers
//  5. Workflow (pkg/workflow): the coordinating state machine
//  6. Session (pkg/session): best-effort key/value persistence
package ihcnuclearcount

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/xwxf04-crypto/ihc-nuclear-count/internal/config"
	"github.com/xwxf04-crypto/ihc-nuclear-count/internal/logger"
	"github.com/xwxf04-crypto/ihc-nuclear-count/pkg/client"
	"github.com/xwxf04-crypto/ihc-nuclear-count/pkg/ollama"
	"github.com/xwxf04-crypto/ihc-nuclear-count/pkg/openaichat"
	"github.com/xwxf04-crypto/ihc-nuclear-count/pkg/session"
	"github.com/xwxf04-crypto/ihc-nuclear-count/pkg/vision"
	"github.com/xwxf04-crypto/ihc-nuclear-count/pkg/workflow"
)

// Version of the workstation library
const Version = "1.0.0"

// Options configures a Workstation. Zero values fall back to the stock
// configuration.
type Options struct {
	Backend          string // "ollama" or "openai"
	ServerURL        string
	Model            string
	SendFormat       string // payload encoding for the model wire, "png" or "jpg"
	SendMaxDim       int    // longest-side cap in pixels before sending
	SendQuality      int    // JPEG quality when SendFormat is "jpg"
	StoreDir         string // empty: in-memory session store
	ClosureThreshold float64
	Passes           int
	Logger           *zerolog.Logger
}

// Workstation wires the workflow controller to a concrete model backend and
// session store.
type Workstation struct {
	Controller *workflow.Controller
	Store      session.Store

	log zerolog.Logger
}

// New builds a Workstation and attempts a session restore. A restore
// failure is logged, never fatal.
func New(opts Options) (*Workstation, error) {
	defaults := config.Default()
	if opts.Backend == "" {
		opts.Backend = defaults.Model.Backend
	}
	if opts.ServerURL == "" {
		opts.ServerURL = defaults.Model.URL
	}
	if opts.Model == "" {
		opts.Model = defaults.Model.Name
	}
	if opts.SendFormat == "" {
		opts.SendFormat = defaults.Model.SendFormat
	}
	if opts.SendMaxDim <= 0 {
		opts.SendMaxDim = defaults.Model.SendMaxDim
	}
	if opts.SendQuality <= 0 {
		opts.SendQuality = defaults.Model.SendQuality
	}
	if opts.ClosureThreshold <= 0 {
		opts.ClosureThreshold = defaults.Selection.ClosureThreshold
	}
	if opts.Passes <= 0 {
		opts.Passes = defaults.Analysis.Passes
	}

	var log zerolog.Logger
	if opts.Logger != nil {
		log = *opts.Logger
	} else {
		log = logger.New(defaults.Log.Level, defaults.Log.Pretty)
	}

	backend, err := newBackend(opts.Backend, opts.ServerURL, opts.Model)
	if err != nil {
		return nil, err
	}

	var store session.Store
	if opts.StoreDir != "" {
		store = session.NewFileStore(opts.StoreDir)
	} else {
		store = session.NewMemStore()
	}

	model := vision.NewClient(backend, vision.SendOptions{
		Format:  opts.SendFormat,
		MaxDim:  opts.SendMaxDim,
		Quality: opts.SendQuality,
	})
	ctrl := workflow.New(model, store, workflow.Config{
		ClosureThreshold: opts.ClosureThreshold,
		Passes:           opts.Passes,
	}, log)

	if _, err := ctrl.RestoreSession(); err != nil {
		log.Warn().Err(err).Msg("starting without a restored session")
	}

	return &Workstation{Controller: ctrl, Store: store, log: log}, nil
}

func newBackend(name, url, model string) (client.ChatBackend, error) {
	switch name {
	case "ollama":
		return ollama.NewClient(url, model)
	case "openai":
		return openaichat.NewClient(url, model)
	default:
		return nil, fmt.Errorf("unknown backend %q (use \"ollama\" or \"openai\")", name)
	}
}

// Snapshot returns the controller's current state projection.
func (w *Workstation) Snapshot() workflow.Snapshot {
	return w.Controller.Snapshot()
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
