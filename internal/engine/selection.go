package engine

// SelectionState describes what the transform-handle widget is attached to.
// The transformer's node list is the single representation of the selection;
// there is no separate id set to keep in sync.
type SelectionState string

const (
	SelectionEmpty  SelectionState = "empty"
	SelectionSingle SelectionState = "single"
	SelectionAll    SelectionState = "all"
)

// Click hit-tests the annotation layer at the given container coordinates
// and transitions the selection: a hit selects that drawable, empty canvas
// deselects.
func (e *Engine) Click(x, y float64) {
	e.mu.Lock()
	if e.state != StateReady {
		e.mu.Unlock()
		return
	}

	if d := e.hitTestLocked(x, y); d != nil {
		e.stage.Transformer.Nodes = []*Drawable{d}
	} else {
		e.stage.Transformer.Nodes = nil
	}

	e.finishSelectionLocked()
}

// SelectAll attaches the transformer to every current drawable. A no-op when
// no annotations exist.
func (e *Engine) SelectAll() {
	e.mu.Lock()
	if e.state != StateReady {
		e.mu.Unlock()
		return
	}

	ds := e.stage.AnnotationLayer.Drawables
	if len(ds) == 0 {
		e.mu.Unlock()
		return
	}

	nodes := make([]*Drawable, len(ds))
	copy(nodes, ds)
	e.stage.Transformer.Nodes = nodes

	e.finishSelectionLocked()
}

// Deselect detaches the transformer.
func (e *Engine) Deselect() {
	e.mu.Lock()
	if e.state != StateReady {
		e.mu.Unlock()
		return
	}

	e.stage.Transformer.Nodes = nil
	e.finishSelectionLocked()
}

// DeleteSelected destroys every drawable in the current selection, removes
// the backing annotations from the working list, and transitions to Empty.
// A no-op with an empty selection. The new total count is reported through
// the state callback.
func (e *Engine) DeleteSelected() {
	e.mu.Lock()
	if e.state != StateReady || len(e.stage.Transformer.Nodes) == 0 {
		e.mu.Unlock()
		return
	}

	doomed := make(map[int]bool, len(e.stage.Transformer.Nodes))
	for _, n := range e.stage.Transformer.Nodes {
		doomed[n.Index] = true
	}

	kept := e.live[:0]
	for i, a := range e.live {
		if !doomed[i] {
			kept = append(kept, a)
		}
	}
	e.live = kept

	e.stage.Transformer.Nodes = nil
	e.rebuildDrawablesLocked()

	delta := StateDelta{
		SelectedAnnotationCount: intp(0),
		TotalAnnotations:        intp(len(e.live)),
	}
	onState := e.onState
	e.mu.Unlock()
	emit(onState, delta)
}

// Selection returns the current selection state.
func (e *Engine) Selection() SelectionState {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateReady {
		return SelectionEmpty
	}
	switch n := len(e.stage.Transformer.Nodes); {
	case n == 0:
		return SelectionEmpty
	case n == len(e.stage.AnnotationLayer.Drawables) && n > 1:
		return SelectionAll
	case n == 1:
		return SelectionSingle
	default:
		return SelectionAll
	}
}

// SelectedCount returns the number of drawables the transformer is attached
// to.
func (e *Engine) SelectedCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateReady {
		return 0
	}
	return len(e.stage.Transformer.Nodes)
}

// SelectedID returns the drawable ID of a single selection, or "".
func (e *Engine) SelectedID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateReady || len(e.stage.Transformer.Nodes) != 1 {
		return ""
	}
	return e.stage.Transformer.Nodes[0].ID
}

// finishSelectionLocked emits the selected-count delta and releases the
// lock. Every selection transition ends here so the overlay layer is redrawn
// with the transformer's new node list.
func (e *Engine) finishSelectionLocked() {
	delta := StateDelta{
		SelectedAnnotationCount: intp(len(e.stage.Transformer.Nodes)),
	}
	onState := e.onState
	e.mu.Unlock()
	emit(onState, delta)
}
