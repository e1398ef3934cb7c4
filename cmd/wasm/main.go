//go:build js && wasm

package main

import (
	"encoding/json"
	"log/slog"
	"syscall/js"

	"github.com/pixelmark/pixelmark/backend-go/internal/annotation"
	"github.com/pixelmark/pixelmark/backend-go/internal/engine"
)

var (
	eng     *engine.Engine
	onState js.Value
)

func main() {
	eng = engine.NewEngine(nil, slog.Default())
	eng.SetStateFunc(pushState)

	// Create the canvas API object
	pixelmarkCanvas := js.Global().Get("Object").New()

	// --- Commands (frontend → backend) ---
	pixelmarkCanvas.Set("initialize", js.FuncOf(initialize))
	pixelmarkCanvas.Set("loadSampleImage", js.FuncOf(loadSampleImage))
	pixelmarkCanvas.Set("resize", js.FuncOf(resize))
	pixelmarkCanvas.Set("cleanup", js.FuncOf(cleanup))
	pixelmarkCanvas.Set("wheelZoom", js.FuncOf(wheelZoom))
	pixelmarkCanvas.Set("zoomIn", js.FuncOf(zoomIn))
	pixelmarkCanvas.Set("zoomOut", js.FuncOf(zoomOut))
	pixelmarkCanvas.Set("resetZoom", js.FuncOf(resetZoom))
	pixelmarkCanvas.Set("fitToScreen", js.FuncOf(fitToScreen))
	pixelmarkCanvas.Set("setStagePosition", js.FuncOf(setStagePosition))
	pixelmarkCanvas.Set("click", js.FuncOf(click))
	pixelmarkCanvas.Set("selectAll", js.FuncOf(selectAll))
	pixelmarkCanvas.Set("deselect", js.FuncOf(deselect))
	pixelmarkCanvas.Set("deleteSelected", js.FuncOf(deleteSelected))
	pixelmarkCanvas.Set("setStateCallback", js.FuncOf(setStateCallback))

	// --- Queries (frontend ← backend) ---
	pixelmarkCanvas.Set("render", js.FuncOf(render))
	pixelmarkCanvas.Set("hitTest", js.FuncOf(hitTest))
	pixelmarkCanvas.Set("getState", js.FuncOf(getState))
	pixelmarkCanvas.Set("getSelection", js.FuncOf(getSelection))
	pixelmarkCanvas.Set("getSelectedId", js.FuncOf(getSelectedID))
	pixelmarkCanvas.Set("getAnnotationCount", js.FuncOf(getAnnotationCount))
	pixelmarkCanvas.Set("getZoomPercentage", js.FuncOf(getZoomPercentage))
	pixelmarkCanvas.Set("getViewport", js.FuncOf(getViewport))
	pixelmarkCanvas.Set("getAnnotations", js.FuncOf(getAnnotations))

	// Register on global scope
	js.Global().Set("pixelmarkCanvas", pixelmarkCanvas)

	// Signal that WASM is ready
	js.Global().Set("pixelmarkWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

func pushState(delta engine.StateDelta) {
	if onState.IsUndefined() || onState.IsNull() {
		return
	}
	data, err := json.Marshal(delta)
	if err != nil {
		return
	}
	onState.Invoke(string(data))
}

// --- Command Handlers ---

func initialize(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return js.ValueOf(map[string]interface{}{"error": "missing container dimensions or image context"})
	}

	containerW := args[0].Float()
	containerH := args[1].Float()

	var img annotation.ImageContext
	if err := json.Unmarshal([]byte(args[2].String()), &img); err != nil {
		return js.ValueOf(map[string]interface{}{"error": "invalid image context: " + err.Error()})
	}

	if err := eng.Initialize(containerW, containerH, &img); err != nil {
		return js.ValueOf(map[string]interface{}{"error": err.Error()})
	}

	return js.ValueOf(map[string]interface{}{"ok": true})
}

func loadSampleImage(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf(map[string]interface{}{"error": "missing container dimensions"})
	}

	containerW := args[0].Float()
	containerH := args[1].Float()

	if err := eng.Initialize(containerW, containerH, annotation.SampleImage()); err != nil {
		return js.ValueOf(map[string]interface{}{"error": err.Error()})
	}

	return js.ValueOf(map[string]interface{}{"ok": true})
}

func resize(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	eng.Resize(args[0].Float(), args[1].Float())
	return nil
}

func cleanup(this js.Value, args []js.Value) interface{} {
	eng.Cleanup()
	return nil
}

func wheelZoom(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return nil
	}
	eng.WheelZoom(args[0].Float(), args[1].Float(), args[2].Float())
	return nil
}

func zoomIn(this js.Value, args []js.Value) interface{} {
	eng.ZoomIn()
	return nil
}

func zoomOut(this js.Value, args []js.Value) interface{} {
	eng.ZoomOut()
	return nil
}

func resetZoom(this js.Value, args []js.Value) interface{} {
	eng.ResetZoom()
	return nil
}

func fitToScreen(this js.Value, args []js.Value) interface{} {
	eng.FitToScreen()
	return nil
}

func setStagePosition(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	eng.SetStagePosition(args[0].Float(), args[1].Float())
	return nil
}

func click(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	eng.Click(args[0].Float(), args[1].Float())
	return nil
}

func selectAll(this js.Value, args []js.Value) interface{} {
	eng.SelectAll()
	return nil
}

func deselect(this js.Value, args []js.Value) interface{} {
	eng.Deselect()
	return nil
}

func deleteSelected(this js.Value, args []js.Value) interface{} {
	eng.DeleteSelected()
	return nil
}

func setStateCallback(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || args[0].Type() != js.TypeFunction {
		onState = js.Undefined()
		return nil
	}
	onState = args[0]
	return nil
}

// --- Query Handlers ---

func render(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.Render())
}

func hitTest(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf("")
	}
	return js.ValueOf(eng.HitTest(args[0].Float(), args[1].Float()))
}

func getState(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(string(eng.State()))
}

func getSelection(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(string(eng.Selection()))
}

func getSelectedID(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.SelectedID())
}

func getAnnotationCount(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.AnnotationCount())
}

func getZoomPercentage(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.ZoomPercentage())
}

func getViewport(this js.Value, args []js.Value) interface{} {
	view := eng.ViewportState()
	data, err := json.Marshal(view)
	if err != nil {
		return js.ValueOf("{}")
	}
	return js.ValueOf(string(data))
}

func getAnnotations(this js.Value, args []js.Value) interface{} {
	data, err := json.Marshal(eng.AnnotationSnapshot())
	if err != nil {
		return js.ValueOf("[]")
	}
	return js.ValueOf(string(data))
}
