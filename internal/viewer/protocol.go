package viewer

import (
	"encoding/json"

	"github.com/pixelmark/pixelmark/backend-go/internal/engine"
)

// Message is the JSON envelope for both directions of a viewer session.
type Message struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

const (
	// Commands (client → server)
	TypeViewerOpen      = "viewer.open"
	TypeViewerResize    = "viewer.resize"
	TypeViewportWheel   = "viewport.wheel"
	TypeViewportZoomIn  = "viewport.zoomIn"
	TypeViewportZoomOut = "viewport.zoomOut"
	TypeViewportReset   = "viewport.reset"
	TypeViewportFit     = "viewport.fit"
	TypeViewportPan     = "viewport.pan"
	TypeCanvasClick     = "canvas.click"
	TypeSelectionAll    = "selection.all"
	TypeSelectionClear  = "selection.clear"
	TypeSelectionDelete = "selection.delete"
	TypeAnnotationsSave = "annotations.save"

	// Events (server → client)
	TypeViewerReady  = "viewer.ready"
	TypeViewerState  = "viewer.state"
	TypeViewerRender = "viewer.render"
	TypeViewerSaved  = "viewer.saved"
	TypeError        = "error"
)

// OpenPayload starts the session's engine at the given container size. The
// image itself is fixed by the websocket path.
type OpenPayload struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ResizePayload carries new container dimensions.
type ResizePayload struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// WheelPayload is a wheel-zoom gesture at a pointer position.
type WheelPayload struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	DeltaY float64 `json:"deltaY"`
}

// PointPayload is a pointer position, used for clicks and pan read-back.
type PointPayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ReadyPayload reports a session that reached the Ready state.
type ReadyPayload struct {
	ImageID          string `json:"imageId"`
	ImageName        string `json:"imageName"`
	TotalAnnotations int    `json:"totalAnnotations"`
	ZoomPercentage   int    `json:"zoomPercentage"`
}

// SavedPayload acknowledges a persisted annotation snapshot.
type SavedPayload struct {
	ImageID string `json:"imageId"`
	Version int32  `json:"version"`
}

// ErrorPayload reports a session-level failure. Session errors never close
// the connection; the client may retry.
type ErrorPayload struct {
	Message string `json:"message"`
}

// StatePayload is the engine's partial state delta, forwarded verbatim.
type StatePayload = engine.StateDelta

func newMessage(msgType string, payload interface{}) *Message {
	data, _ := json.Marshal(payload)
	return &Message{Type: msgType, Payload: data}
}

func newErrorMessage(msg string) *Message {
	return newMessage(TypeError, ErrorPayload{Message: msg})
}
