package workflow

import (
	"github.com/xwxf04-crypto/ihc-nuclear-count/pkg/geometry"
	"github.com/xwxf04-crypto/ihc-nuclear-count/pkg/types"
)

// State is the workflow position. Failures of asynchronous steps do not
// park the machine in a dedicated state: the prior state is preserved and
// the failure is surfaced through Snapshot.LastError, so the operation stays
// re-triggerable.
type State int

const (
	// StateEmpty: no image loaded.
	StateEmpty State = iota
	// StateImageLoaded: image present, no selection in progress.
	StateImageLoaded
	// StateSelecting: polygon being drawn, still open.
	StateSelecting
	// StateSelectionClosed: polygon closed, usable as a mask.
	StateSelectionClosed
	// StateQualityChecked: quality verdict stored, analysis unlocked.
	StateQualityChecked
	// StateAnalyzing: counting passes in flight.
	StateAnalyzing
	// StateEditing: edit call in flight.
	StateEditing
	// StateResult: aggregated analysis result available.
	StateResult
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateImageLoaded:
		return "image-loaded"
	case StateSelecting:
		return "selecting"
	case StateSelectionClosed:
		return "selection-closed"
	case StateQualityChecked:
		return "quality-checked"
	case StateAnalyzing:
		return "analyzing"
	case StateEditing:
		return "editing"
	case StateResult:
		return "result"
	default:
		return "unknown"
	}
}

// Snapshot is an immutable projection of the controller for a rendering
// layer. The controller never renders; subscribers read snapshots.
type Snapshot struct {
	State     State
	Busy      bool
	HasImage  bool
	ImageName string
	ImageMIME string
	Polygon   geometry.Polygon
	Drawing   bool
	Quality   *types.QualityResult
	Result    *types.CountResult
	LastError string
}
