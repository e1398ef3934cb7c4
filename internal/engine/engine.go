package engine

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"

	"github.com/pixelmark/pixelmark/backend-go/internal/annotation"
)

// LifecycleState is the engine's initialization state machine.
// Idle → Loading → Ready | Failed; Failed → Idle is allowed for retry.
type LifecycleState string

const (
	StateIdle    LifecycleState = "idle"
	StateLoading LifecycleState = "loading"
	StateReady   LifecycleState = "ready"
	StateFailed  LifecycleState = "failed"
)

var (
	// ErrAlreadyLoading is returned when Initialize is called re-entrantly
	// while an image load is in flight.
	ErrAlreadyLoading = errors.New("engine: initialize already in progress")

	// ErrContainerNotReady is returned for zero-dimension containers. This is
	// a retryable precondition: callers await layout stabilization and call
	// Initialize again.
	ErrContainerNotReady = errors.New("engine: container has zero dimensions")

	// ErrNoImage is returned when the image context is missing or has no
	// loadable preview URL.
	ErrNoImage = errors.New("engine: image context has no preview URL")
)

// StateDelta is a partial state update pushed to the host through the
// state-change callback. Nil fields are unchanged.
type StateDelta struct {
	Scale                   *float64 `json:"scale,omitempty"`
	StageX                  *float64 `json:"stageX,omitempty"`
	StageY                  *float64 `json:"stageY,omitempty"`
	SelectedAnnotationCount *int     `json:"selectedAnnotationCount,omitempty"`
	TotalAnnotations        *int     `json:"totalAnnotations,omitempty"`
}

// StateFunc receives state deltas. It is the only channel through which the
// engine communicates upward; the engine never touches host-owned state.
type StateFunc func(StateDelta)

// Engine is one interactive annotation canvas session: it owns the stage,
// layers, viewport, and selection for a single image, and emits draw-command
// buffers for the host renderer to execute.
//
// The engine is event-driven: every mutation happens inside a command call.
// A mutex makes commands safe to issue from server goroutines; the only
// internal asynchrony is the image load between Initialize and Ready.
type Engine struct {
	mu      sync.Mutex
	logger  *slog.Logger
	loader  ImageLoader
	onState StateFunc

	state      LifecycleState
	generation uint64
	cancelLoad context.CancelFunc

	containerW float64
	containerH float64

	img     *annotation.ImageContext
	imageW  float64 // natural pixel dimensions
	imageH  float64
	live    []annotation.Annotation // working list; shrinks on delete

	fitScale   float64 // base fit transform, viewport-independent
	fitOffsetX float64
	fitOffsetY float64

	stage    *Stage
	viewport Viewport
}

// NewEngine creates an engine instance. A nil loader falls back to the
// default URL loader; a nil logger falls back to slog.Default().
func NewEngine(loader ImageLoader, logger *slog.Logger) *Engine {
	if loader == nil {
		loader = NewDefaultLoader()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		logger:   logger,
		loader:   loader,
		state:    StateIdle,
		viewport: NewViewport(),
	}
}

// SetStateFunc installs the host's state-change callback.
func (e *Engine) SetStateFunc(f StateFunc) {
	e.mu.Lock()
	e.onState = f
	e.mu.Unlock()
}

// State returns the current lifecycle state.
func (e *Engine) State() LifecycleState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Ready reports whether the engine has a live stage.
func (e *Engine) Ready() bool {
	return e.State() == StateReady
}

// Initialize starts an engine session for the given container dimensions and
// image context. Calling it when already initialized destroys the previous
// stage first; calling it while a load is in flight is rejected. The image
// load is asynchronous: the engine transitions to Ready (or Failed) when the
// decode completes, and a stale completion after Cleanup or re-Initialize is
// discarded via the generation counter.
func (e *Engine) Initialize(containerW, containerH float64, img *annotation.ImageContext) error {
	e.mu.Lock()

	if e.state == StateLoading {
		e.mu.Unlock()
		return ErrAlreadyLoading
	}
	if containerW <= 0 || containerH <= 0 {
		e.mu.Unlock()
		return ErrContainerNotReady
	}
	if img == nil || img.PreviewURL == "" {
		e.mu.Unlock()
		return ErrNoImage
	}

	// Idempotent re-init: never two stages against the same container.
	e.teardownLocked()

	e.generation++
	gen := e.generation
	e.state = StateLoading
	e.containerW = containerW
	e.containerH = containerH
	e.img = img

	ctx, cancel := context.WithCancel(context.Background())
	e.cancelLoad = cancel
	e.mu.Unlock()

	go func() {
		w, h, err := e.loader.Load(ctx, img.PreviewURL)
		e.completeLoad(gen, w, h, err)
	}()

	return nil
}

func (e *Engine) completeLoad(gen uint64, w, h int, err error) {
	e.mu.Lock()

	if gen != e.generation {
		e.mu.Unlock()
		e.logger.Debug("discarding stale image load", "generation", gen)
		return
	}

	if err != nil {
		e.state = StateFailed
		url := e.img.PreviewURL
		e.mu.Unlock()
		e.logger.Error("image load failed", "url", url, "error", err)
		return
	}

	e.imageW = float64(w)
	e.imageH = float64(h)

	e.fitScale = ComputeFitScale(e.imageW, e.imageH, e.containerW, e.containerH)
	e.fitOffsetX, e.fitOffsetY = ComputeCenteredOffset(e.imageW, e.imageH, e.containerW, e.containerH, e.fitScale)

	// Filter the working list down to drawable annotations; malformed
	// records are logged and dropped, never fatal.
	e.live = e.live[:0]
	for _, a := range e.img.Annotations {
		if !a.Valid() {
			e.logger.Warn("skipping malformed annotation",
				"label", a.Label, "shapeType", a.ShapeType, "points", len(a.Points))
			continue
		}
		e.live = append(e.live, a)
	}

	e.stage = newStage(e.containerW, e.containerH)
	e.rebuildDrawablesLocked()
	e.viewport = NewViewport()
	e.state = StateReady

	delta := e.fullDeltaLocked()
	onState := e.onState
	name := e.img.Name
	count := len(e.live)
	e.mu.Unlock()

	e.logger.Info("engine ready", "image", name, "width", w, "height", h, "annotations", count)
	emit(onState, delta)
}

// rebuildDrawablesLocked redraws the full annotation layer for the current
// fit transform. The engine always rebuilds wholesale rather than diffing.
func (e *Engine) rebuildDrawablesLocked() {
	e.stage.AnnotationLayer.Drawables = e.stage.AnnotationLayer.Drawables[:0]
	for i, a := range e.live {
		d := BuildDrawable(a, i, e.fitScale, e.fitOffsetX, e.fitOffsetY, e.logger)
		if d != nil {
			e.stage.AnnotationLayer.Drawables = append(e.stage.AnnotationLayer.Drawables, d)
		}
	}
}

// Resize re-reads the container dimensions, recomputes the fit transform,
// rebuilds the annotation layer, and fits the viewport to the new screen.
// A no-op unless the engine is Ready.
func (e *Engine) Resize(containerW, containerH float64) {
	e.mu.Lock()
	if e.state != StateReady || containerW <= 0 || containerH <= 0 {
		e.mu.Unlock()
		return
	}

	e.containerW = containerW
	e.containerH = containerH
	e.stage.Width = containerW
	e.stage.Height = containerH

	e.fitScale = ComputeFitScale(e.imageW, e.imageH, containerW, containerH)
	e.fitOffsetX, e.fitOffsetY = ComputeCenteredOffset(e.imageW, e.imageH, containerW, containerH, e.fitScale)
	e.rebuildDrawablesLocked()
	e.stage.Transformer.Nodes = nil

	e.viewport = e.viewport.FitToScreen(containerW, containerH, e.imageW*e.fitScale, e.imageH*e.fitScale)

	delta := e.fullDeltaLocked()
	onState := e.onState
	e.mu.Unlock()
	emit(onState, delta)
}

// Cleanup tears the session down: the stage is destroyed, selection cleared,
// and any in-flight image load invalidated. Always safe to call twice or
// when never initialized.
func (e *Engine) Cleanup() {
	e.mu.Lock()
	e.teardownLocked()
	e.state = StateIdle
	e.mu.Unlock()
}

func (e *Engine) teardownLocked() {
	e.generation++ // invalidate any in-flight load
	if e.cancelLoad != nil {
		e.cancelLoad()
		e.cancelLoad = nil
	}
	e.stage.destroy()
	e.stage = nil
	e.img = nil
	e.live = nil
	e.viewport = NewViewport()
}

// --- Viewport commands ---

// WheelZoom zooms toward the pointer. Pointer coordinates are in container
// space.
func (e *Engine) WheelZoom(pointerX, pointerY, deltaY float64) {
	e.applyViewport(func(v Viewport) Viewport {
		return v.WheelZoom(Point{X: pointerX, Y: pointerY}, deltaY)
	})
}

// ZoomIn steps the zoom up, anchored at the stage center.
func (e *Engine) ZoomIn() {
	e.applyViewport(func(v Viewport) Viewport {
		return v.ZoomIn(e.containerW, e.containerH)
	})
}

// ZoomOut steps the zoom down, anchored at the stage center.
func (e *Engine) ZoomOut() {
	e.applyViewport(func(v Viewport) Viewport {
		return v.ZoomOut(e.containerW, e.containerH)
	})
}

// ResetZoom returns to the explicit origin: scale 1, offset (0,0).
func (e *Engine) ResetZoom() {
	e.applyViewport(func(v Viewport) Viewport {
		return v.Reset()
	})
}

// FitToScreen fits the image's base rendered dimensions into the container.
func (e *Engine) FitToScreen() {
	e.applyViewport(func(v Viewport) Viewport {
		return v.FitToScreen(e.containerW, e.containerH, e.imageW*e.fitScale, e.imageH*e.fitScale)
	})
}

// SetStagePosition records a host-native drag position for external
// reporting.
func (e *Engine) SetStagePosition(x, y float64) {
	e.applyViewport(func(v Viewport) Viewport {
		return v.WithPosition(x, y)
	})
}

func (e *Engine) applyViewport(transition func(Viewport) Viewport) {
	e.mu.Lock()
	if e.state != StateReady {
		e.mu.Unlock()
		return
	}
	e.viewport = transition(e.viewport)
	e.stage.X = e.viewport.OffsetX
	e.stage.Y = e.viewport.OffsetY

	delta := StateDelta{
		Scale:  f64(e.viewport.Scale),
		StageX: f64(e.viewport.OffsetX),
		StageY: f64(e.viewport.OffsetY),
	}
	onState := e.onState
	e.mu.Unlock()
	emit(onState, delta)
}

// ViewportState returns the current viewport state.
func (e *Engine) ViewportState() Viewport {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.viewport
}

// ZoomPercentage returns the viewport zoom as a whole percentage.
func (e *Engine) ZoomPercentage() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return int(math.Round(e.viewport.Scale * 100))
}

// --- Queries ---

// AnnotationCount returns the number of live drawable annotations.
func (e *Engine) AnnotationCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.live)
}

// AnnotationSnapshot returns a copy of the live annotations, in order. The
// host wraps this in its save event; the engine never writes anywhere.
func (e *Engine) AnnotationSnapshot() []annotation.Annotation {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]annotation.Annotation, len(e.live))
	copy(out, e.live)
	return out
}

// HitTest returns the drawable ID at the given container coordinates, or ""
// if nothing is hit.
func (e *Engine) HitTest(x, y float64) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateReady {
		return ""
	}
	if d := e.hitTestLocked(x, y); d != nil {
		return d.ID
	}
	return ""
}

// hitTestLocked converts pointer coordinates through the viewport into base
// canvas space and hit-tests the annotation layer.
func (e *Engine) hitTestLocked(x, y float64) *Drawable {
	base := ToImage(Point{X: x, Y: y}, e.viewport.Scale, e.viewport.OffsetX, e.viewport.OffsetY)
	return e.stage.hitTest(base.X, base.Y)
}

// Render compiles the current draw buffer to JSON.
func (e *Engine) Render() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateReady {
		return "[]"
	}
	commands := compileCommands(
		e.stage, e.viewport, e.img.PreviewURL,
		e.imageW*e.fitScale, e.imageH*e.fitScale,
		e.fitOffsetX, e.fitOffsetY,
	)
	result, err := CommandsToJSON(commands)
	if err != nil {
		e.logger.Error("marshal draw commands", "error", err)
	}
	return result
}

// --- helpers ---

func (e *Engine) fullDeltaLocked() StateDelta {
	return StateDelta{
		Scale:                   f64(e.viewport.Scale),
		StageX:                  f64(e.viewport.OffsetX),
		StageY:                  f64(e.viewport.OffsetY),
		SelectedAnnotationCount: intp(len(e.stage.Transformer.Nodes)),
		TotalAnnotations:        intp(len(e.live)),
	}
}

func emit(f StateFunc, d StateDelta) {
	if f != nil {
		f(d)
	}
}

func f64(v float64) *float64 { return &v }
func intp(v int) *int        { return &v }
