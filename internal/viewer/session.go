package viewer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/pixelmark/pixelmark/backend-go/internal/annotation"
	"github.com/pixelmark/pixelmark/backend-go/internal/engine"
)

// ImageProvider resolves image contexts and persists save events. The
// dataset service implements it; tests use fakes.
type ImageProvider interface {
	ImageContext(ctx context.Context, imageID string) (*annotation.ImageContext, error)
	ImageDimensions(ctx context.Context, imageID string) (int, int, error)
	SaveSnapshot(ctx context.Context, imageID string, annotations []annotation.Annotation) (int32, error)
}

// Session drives one engine instance for one connected client. The engine's
// state-change callback is wired straight into the client's send channel, so
// every viewport/selection transition streams a state delta followed by a
// fresh draw buffer.
type Session struct {
	ID       string
	client   *Client
	provider ImageProvider
	logger   *slog.Logger

	engine    *engine.Engine
	imageID   string
	imageName string
	announced atomic.Bool
}

// NewSession binds one client to one image. The image id comes from the
// websocket path and is authorized before the session exists; open commands
// cannot switch it.
func NewSession(id, imageID string, client *Client, provider ImageProvider, logger *slog.Logger) *Session {
	return &Session{
		ID:       id,
		imageID:  imageID,
		client:   client,
		provider: provider,
		logger:   logger,
	}
}

// Handle dispatches one inbound message. Unknown types are logged and
// dropped, matching the tolerant-reader stance of the rest of the protocol.
func (s *Session) Handle(ctx context.Context, msg *Message) {
	switch msg.Type {
	case TypeViewerOpen:
		s.handleOpen(ctx, msg.Payload)
	case TypeViewerResize:
		var p ResizePayload
		if unmarshal(s, msg.Payload, &p) {
			s.engineIfReady().Resize(p.Width, p.Height)
		}
	case TypeViewportWheel:
		var p WheelPayload
		if unmarshal(s, msg.Payload, &p) {
			s.engineIfReady().WheelZoom(p.X, p.Y, p.DeltaY)
		}
	case TypeViewportZoomIn:
		s.engineIfReady().ZoomIn()
	case TypeViewportZoomOut:
		s.engineIfReady().ZoomOut()
	case TypeViewportReset:
		s.engineIfReady().ResetZoom()
	case TypeViewportFit:
		s.engineIfReady().FitToScreen()
	case TypeViewportPan:
		var p PointPayload
		if unmarshal(s, msg.Payload, &p) {
			s.engineIfReady().SetStagePosition(p.X, p.Y)
		}
	case TypeCanvasClick:
		var p PointPayload
		if unmarshal(s, msg.Payload, &p) {
			s.engineIfReady().Click(p.X, p.Y)
		}
	case TypeSelectionAll:
		s.engineIfReady().SelectAll()
	case TypeSelectionClear:
		s.engineIfReady().Deselect()
	case TypeSelectionDelete:
		s.engineIfReady().DeleteSelected()
	case TypeAnnotationsSave:
		s.handleSave(ctx)
	default:
		s.logger.Warn("unknown message type", "type", msg.Type, "session", s.ID)
	}
}

func (s *Session) handleOpen(ctx context.Context, payload json.RawMessage) {
	var p OpenPayload
	if !unmarshal(s, payload, &p) {
		return
	}

	img, err := s.resolveImage(ctx, s.imageID)
	if err != nil {
		s.client.Send(newErrorMessage(fmt.Sprintf("open image: %v", err)))
		return
	}

	w, h, err := s.resolveDimensions(ctx, s.imageID)
	if err != nil {
		s.client.Send(newErrorMessage(fmt.Sprintf("image dimensions: %v", err)))
		return
	}

	// Re-opening (e.g. after a failed load) tears the previous engine down.
	if s.engine != nil {
		s.engine.Cleanup()
	}
	s.announced.Store(false)
	s.imageName = img.Name

	// Dimensions come from the registry, so the engine's load step is a
	// static lookup rather than a re-decode of the preview.
	eng := engine.NewEngine(engine.StaticLoader{Width: w, Height: h}, s.logger)
	eng.SetStateFunc(s.pushState(eng))
	s.engine = eng

	if err := eng.Initialize(p.Width, p.Height, img); err != nil {
		s.client.Send(newErrorMessage(fmt.Sprintf("initialize: %v", err)))
	}
}

func (s *Session) resolveImage(ctx context.Context, imageID string) (*annotation.ImageContext, error) {
	if imageID == PlaygroundImageID {
		return annotation.SampleImage(), nil
	}
	return s.provider.ImageContext(ctx, imageID)
}

func (s *Session) resolveDimensions(ctx context.Context, imageID string) (int, int, error) {
	if imageID == PlaygroundImageID {
		return playgroundImageW, playgroundImageH, nil
	}
	return s.provider.ImageDimensions(ctx, imageID)
}

// pushState forwards every engine state delta, announcing readiness once and
// always following up with the current draw buffer.
func (s *Session) pushState(eng *engine.Engine) engine.StateFunc {
	return func(d engine.StateDelta) {
		if eng.Ready() && s.announced.CompareAndSwap(false, true) {
			s.client.Send(newMessage(TypeViewerReady, ReadyPayload{
				ImageID:          s.imageID,
				ImageName:        s.imageName,
				TotalAnnotations: eng.AnnotationCount(),
				ZoomPercentage:   eng.ZoomPercentage(),
			}))
		}
		s.client.Send(newMessage(TypeViewerState, d))
		s.client.Send(&Message{Type: TypeViewerRender, Payload: json.RawMessage(eng.Render())})
	}
}

func (s *Session) handleSave(ctx context.Context) {
	eng := s.engine
	if eng == nil || !eng.Ready() {
		s.client.Send(newErrorMessage("no image open"))
		return
	}

	snapshot := eng.AnnotationSnapshot()
	if s.imageID == PlaygroundImageID {
		// Playground sessions have nothing to persist; acknowledge anyway.
		s.client.Send(newMessage(TypeViewerSaved, SavedPayload{ImageID: s.imageID}))
		return
	}

	version, err := s.provider.SaveSnapshot(ctx, s.imageID, snapshot)
	if err != nil {
		s.logger.Error("save snapshot failed", "image", s.imageID, "error", err)
		s.client.Send(newErrorMessage("save failed"))
		return
	}

	s.client.Send(newMessage(TypeViewerSaved, SavedPayload{ImageID: s.imageID, Version: version}))
}

// Close tears down the engine. Called when the client disconnects.
func (s *Session) Close() {
	if s.engine != nil {
		s.engine.Cleanup()
	}
}

// engineIfReady returns the live engine or a throwaway one whose commands
// are all no-ops, so command handling needs no nil checks.
func (s *Session) engineIfReady() *engine.Engine {
	if s.engine != nil {
		return s.engine
	}
	return engine.NewEngine(engine.StaticLoader{}, s.logger)
}

func unmarshal(s *Session, data json.RawMessage, v interface{}) bool {
	if err := json.Unmarshal(data, v); err != nil {
		s.client.Send(newErrorMessage("invalid payload"))
		return false
	}
	return true
}
