package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pixelmark/pixelmark/backend-go/internal/annotation"
)

// blockingLoader holds the load open until released, for exercising the
// in-flight states.
type blockingLoader struct {
	release chan struct{}
}

func (l *blockingLoader) Load(ctx context.Context, _ string) (int, int, error) {
	select {
	case <-l.release:
		return 800, 600, nil
	case <-ctx.Done():
		return 0, 0, ctx.Err()
	}
}

func waitState(t *testing.T, e *Engine, want LifecycleState) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if e.State() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("engine never reached state %q (stuck at %q)", want, e.State())
}

func testImage() *annotation.ImageContext {
	return &annotation.ImageContext{
		ID:         "img_test",
		PreviewURL: "/assets/test.png",
		Name:       "test.png",
		Annotations: []annotation.Annotation{
			{Label: "helmet", ShapeType: annotation.ShapeRectangle, Points: [][2]float64{{10, 10}, {50, 50}}},
			{Label: "bad", ShapeType: annotation.ShapePolygon, Points: [][2]float64{{0, 0}}},
		},
	}
}

func readyEngine(t *testing.T) *Engine {
	t.Helper()
	e := NewEngine(StaticLoader{Width: 800, Height: 600}, discard())
	if err := e.Initialize(800, 600, testImage()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	waitState(t, e, StateReady)
	return e
}

func TestInitializeScenario(t *testing.T) {
	e := readyEngine(t)

	// The malformed polygon is dropped; only the helmet survives.
	if got := e.AnnotationCount(); got != 1 {
		t.Fatalf("AnnotationCount = %d, want 1", got)
	}

	// Image and container are both 800x600: fit scale 1, no offset, so
	// image point (30,30) is canvas point (30,30).
	e.Click(30, 30)
	if got := e.Selection(); got != SelectionSingle {
		t.Fatalf("selection = %q, want single", got)
	}
	if got := e.SelectedID(); got != "anno-0" {
		t.Errorf("selected id = %q, want anno-0", got)
	}

	// Clicking empty canvas deselects.
	e.Click(700, 500)
	if got := e.Selection(); got != SelectionEmpty {
		t.Errorf("selection after empty click = %q, want empty", got)
	}
}

func TestSelectAllThenDeleteSelected(t *testing.T) {
	e := readyEngine(t)

	e.SelectAll()
	if got := e.SelectedCount(); got != 1 {
		t.Fatalf("SelectedCount after select-all = %d, want 1", got)
	}

	e.DeleteSelected()
	if got := e.AnnotationCount(); got != 0 {
		t.Errorf("AnnotationCount after delete = %d, want 0", got)
	}
	if got := e.Selection(); got != SelectionEmpty {
		t.Errorf("selection after delete = %q, want empty", got)
	}

	// Empty selection: delete is a no-op, select-all on zero annotations too.
	e.DeleteSelected()
	e.SelectAll()
	if got := e.SelectedCount(); got != 0 {
		t.Errorf("SelectedCount = %d, want 0", got)
	}
}

func TestDeleteSingleKeepsOthers(t *testing.T) {
	img := testImage()
	img.Annotations = append(img.Annotations, annotation.Annotation{
		Label: "sign", ShapeType: annotation.ShapeRectangle, Points: [][2]float64{{200, 200}, {300, 300}},
	})

	e := NewEngine(StaticLoader{Width: 800, Height: 600}, discard())
	if err := e.Initialize(800, 600, img); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	waitState(t, e, StateReady)

	if got := e.AnnotationCount(); got != 2 {
		t.Fatalf("AnnotationCount = %d, want 2", got)
	}

	e.Click(30, 30) // helmet
	e.DeleteSelected()

	if got := e.AnnotationCount(); got != 1 {
		t.Fatalf("AnnotationCount = %d, want 1", got)
	}
	snap := e.AnnotationSnapshot()
	if len(snap) != 1 || snap[0].Label != "sign" {
		t.Errorf("snapshot = %+v, want only the sign", snap)
	}
}

func TestZoomCommandsClampAndReport(t *testing.T) {
	e := readyEngine(t)

	var lastScale float64
	e.SetStateFunc(func(d StateDelta) {
		if d.Scale != nil {
			lastScale = *d.Scale
		}
	})

	for i := 0; i < 50; i++ {
		e.ZoomIn()
	}
	if got := e.ViewportState().Scale; got != MaxScale {
		t.Errorf("scale after many zoom-ins = %v, want %v", got, MaxScale)
	}
	if lastScale != MaxScale {
		t.Errorf("reported scale = %v, want %v", lastScale, MaxScale)
	}

	for i := 0; i < 100; i++ {
		e.ZoomOut()
	}
	if got := e.ViewportState().Scale; got != MinScale {
		t.Errorf("scale after many zoom-outs = %v, want %v", got, MinScale)
	}

	e.ResetZoom()
	if got := e.ZoomPercentage(); got != 100 {
		t.Errorf("ZoomPercentage after reset = %d, want 100", got)
	}
}

func TestClickRespectsViewportTransform(t *testing.T) {
	e := readyEngine(t)

	// Zoom in at the origin: image point (30,30) now sits at a scaled
	// pointer position.
	e.WheelZoom(0, 0, -1)
	v := e.ViewportState()

	p := ToCanvas(Point{X: 30, Y: 30}, v.Scale, v.OffsetX, v.OffsetY)
	e.Click(p.X, p.Y)
	if got := e.Selection(); got != SelectionSingle {
		t.Errorf("selection = %q, want single after zoomed click", got)
	}
}

func TestInitializePreconditions(t *testing.T) {
	e := NewEngine(StaticLoader{Width: 10, Height: 10}, discard())

	if err := e.Initialize(0, 600, testImage()); !errors.Is(err, ErrContainerNotReady) {
		t.Errorf("zero width: err = %v, want ErrContainerNotReady", err)
	}
	if err := e.Initialize(800, 600, nil); !errors.Is(err, ErrNoImage) {
		t.Errorf("nil image: err = %v, want ErrNoImage", err)
	}
	if err := e.Initialize(800, 600, &annotation.ImageContext{}); !errors.Is(err, ErrNoImage) {
		t.Errorf("empty preview url: err = %v, want ErrNoImage", err)
	}
}

func TestReentrantInitializeRejected(t *testing.T) {
	loader := &blockingLoader{release: make(chan struct{})}
	e := NewEngine(loader, discard())

	if err := e.Initialize(800, 600, testImage()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := e.Initialize(800, 600, testImage()); !errors.Is(err, ErrAlreadyLoading) {
		t.Fatalf("re-entrant Initialize: err = %v, want ErrAlreadyLoading", err)
	}

	close(loader.release)
	waitState(t, e, StateReady)
}

func TestCleanupInvalidatesInFlightLoad(t *testing.T) {
	loader := &blockingLoader{release: make(chan struct{})}
	e := NewEngine(loader, discard())

	if err := e.Initialize(800, 600, testImage()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	e.Cleanup()
	close(loader.release)

	// The stale completion must be a no-op: the engine stays Idle.
	time.Sleep(20 * time.Millisecond)
	if got := e.State(); got != StateIdle {
		t.Errorf("state after cleanup during load = %q, want idle", got)
	}
	if e.Ready() {
		t.Error("engine reports ready after cleanup")
	}
}

func TestCleanupSafety(t *testing.T) {
	e := NewEngine(StaticLoader{Width: 1, Height: 1}, discard())

	// Never initialized, then twice in a row.
	e.Cleanup()
	e.Cleanup()

	e = readyEngine(t)
	e.Cleanup()
	e.Cleanup()
	if e.Ready() {
		t.Error("engine ready after double cleanup")
	}
	if got := e.AnnotationCount(); got != 0 {
		t.Errorf("AnnotationCount after cleanup = %d, want 0", got)
	}
}

func TestDoubleInitializeRecreates(t *testing.T) {
	e := readyEngine(t)
	e.SelectAll()

	if err := e.Initialize(800, 600, testImage()); err != nil {
		t.Fatalf("second Initialize: %v", err)
	}
	waitState(t, e, StateReady)

	// Selection never survives an image change.
	if got := e.Selection(); got != SelectionEmpty {
		t.Errorf("selection after re-init = %q, want empty", got)
	}
	if got := e.AnnotationCount(); got != 1 {
		t.Errorf("AnnotationCount after re-init = %d, want 1", got)
	}
}

func TestFailedLoadAllowsRetry(t *testing.T) {
	e := NewEngine(StaticLoader{Err: errors.New("decode failed")}, discard())

	if err := e.Initialize(800, 600, testImage()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	waitState(t, e, StateFailed)
	if e.Ready() {
		t.Error("engine ready after failed load")
	}

	// Failed is retryable: a fresh Initialize is accepted.
	if err := e.Initialize(800, 600, testImage()); err != nil {
		t.Errorf("retry Initialize: %v", err)
	}
	waitState(t, e, StateFailed)
}

func TestResizeRefitsViewport(t *testing.T) {
	// 1600x1200 natural image in an 800x600 container: fit scale 0.5.
	e := NewEngine(StaticLoader{Width: 1600, Height: 1200}, discard())
	if err := e.Initialize(800, 600, testImage()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	waitState(t, e, StateReady)

	e.ZoomIn()
	e.Resize(400, 300)

	v := e.ViewportState()
	if v.OffsetX != 0 || v.OffsetY != 0 {
		t.Errorf("offset after resize = (%v, %v), want (0, 0)", v.OffsetX, v.OffsetY)
	}
	// Rendered dims track the new fit scale, so fit-to-screen lands at 1.
	if v.Scale != 1 {
		t.Errorf("scale after resize = %v, want 1", v.Scale)
	}
}

func TestRenderBufferShape(t *testing.T) {
	e := readyEngine(t)

	buf := e.Render()
	if buf == "[]" || buf == "" {
		t.Fatal("empty draw buffer for ready engine")
	}

	e.Cleanup()
	if got := e.Render(); got != "[]" {
		t.Errorf("Render after cleanup = %q, want []", got)
	}
}

func TestHitTestQuery(t *testing.T) {
	e := readyEngine(t)

	if got := e.HitTest(30, 30); got != "anno-0" {
		t.Errorf("HitTest(30,30) = %q, want anno-0", got)
	}
	if got := e.HitTest(700, 500); got != "" {
		t.Errorf("HitTest(700,500) = %q, want empty", got)
	}
}

func TestPolygonHitFallsThroughOutsideOutline(t *testing.T) {
	img := &annotation.ImageContext{
		ID:         "img_poly",
		PreviewURL: "/assets/poly.png",
		Annotations: []annotation.Annotation{
			// A triangle whose bounding box includes (90,10) but whose
			// outline does not.
			{Label: "tri", ShapeType: annotation.ShapePolygon, Points: [][2]float64{{0, 0}, {100, 100}, {0, 100}}},
		},
	}
	e := NewEngine(StaticLoader{Width: 800, Height: 600}, discard())
	if err := e.Initialize(800, 600, img); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	waitState(t, e, StateReady)

	if got := e.HitTest(10, 90); got != "anno-0" {
		t.Errorf("inside triangle: HitTest = %q, want anno-0", got)
	}
	if got := e.HitTest(90, 10); got != "" {
		t.Errorf("bbox corner outside outline: HitTest = %q, want empty", got)
	}
}
