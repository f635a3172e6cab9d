package workflow

import (
	"fmt"

	"github.com/benoitkugler/worlddots/dotgrid"
	"github.com/benoitkugler/worlddots/svgdots"
)

// State is the optimize/export state of a session.
type State uint8

const (
	Idle State = iota
	Rendering
	Optimizing
	Optimized
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Rendering:
		return "rendering"
	case Optimizing:
		return "optimizing"
	case Optimized:
		return "optimized"
	default:
		return fmt.Sprintf("<unknown State %d>", uint8(s))
	}
}

// MarshalText writes the lower case state name.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Artifact is the output of one render pass, plus its optimized text
// once requested. Artifacts are immutable: optimization produces a copy.
type Artifact struct {
	ID        string // changes on every render pass
	Document  svgdots.Document
	Original  string
	Optimized string // empty until optimized
	Fallback  bool   // the optimizer failed and Optimized is Original

	Config          dotgrid.Config
	Surface         dotgrid.Surface
	ContainerWidth  float64
	ContainerHeight float64
	Spacing         int
	Checked         int
}

// Dots returns the number of circles.
func (a *Artifact) Dots() int { return len(a.Document.Dots) }

// IsOptimized reports whether an optimization completed for this render.
func (a *Artifact) IsOptimized() bool { return a.Optimized != "" }

// OriginalKB is the size of the serialized document.
func (a *Artifact) OriginalKB() float64 { return svgdots.SizeKB(a.Original) }

// OptimizedKB is the size of the optimized document, 0 until optimized.
func (a *Artifact) OptimizedKB() float64 {
	if !a.IsOptimized() {
		return 0
	}
	return svgdots.SizeKB(a.Optimized)
}

// Icon returns the drawable form of the original document.
func (a *Artifact) Icon() (*svgdots.Icon, error) { return a.Document.Icon() }

// Status is a snapshot of a session.
type Status struct {
	State     State           `json:"state"`
	Progress  int             `json:"progress"`
	Config    dotgrid.Config  `json:"config"`
	Mask      string          `json:"mask"`
	MaskReady bool            `json:"maskReady"`
	Surface   dotgrid.Surface `json:"surface"`

	ContainerWidth  float64 `json:"containerWidth"`
	ContainerHeight float64 `json:"containerHeight"`

	ArtifactID     string  `json:"artifactId,omitempty"`
	Spacing        int     `json:"spacing"`
	Checked        int     `json:"checked"`
	Dots           int     `json:"dots"`
	OriginalKB     float64 `json:"originalKB"`
	OptimizedKB    float64 `json:"optimizedKB"`
	OriginalSize   string  `json:"originalSize"`
	OptimizedSize  string  `json:"optimizedSize,omitempty"`
	SavingsKB      float64 `json:"savingsKB"`
	SavingsPercent float64 `json:"savingsPercent"`
	Fallback       bool    `json:"fallback"`
}

// EventKind names workflow events.
type EventKind string

const (
	EventRendered   EventKind = "rendered"
	EventProgress   EventKind = "progress"
	EventOptimized  EventKind = "optimized"
	EventMaskLoaded EventKind = "maskLoaded"
	EventMaskFailed EventKind = "maskFailed"
)

// Event is published to subscribers after each state change.
type Event struct {
	Kind     EventKind `json:"kind"`
	Progress int       `json:"progress,omitempty"`
	Error    string    `json:"error,omitempty"`
	Status   Status    `json:"status"`
}
