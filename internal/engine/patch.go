package engine

import "pixelgraph/internal/graph"

// Status is the node-visible lifecycle of a derivation.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusProcessing Status = "processing"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
)

// Node data fields the engine sets through the patch sink. The engine never
// mutates node data directly; it emits intent and the editor applies it.
const (
	FieldStatus       = "status"
	FieldError        = "error"
	FieldRects        = "rects"
	FieldSourceWidth  = "sourceWidth"
	FieldSourceHeight = "sourceHeight"
	FieldImageRefs    = "imageRefs"
	FieldImageRef     = "imageRef"
	FieldOutputURL    = "outputUrl"
	FieldInputCount   = "inputCount"
	FieldGridSize     = "gridSize"
)

// PatchSink receives the engine's node-state updates.
type PatchSink interface {
	PatchNode(nodeID graph.NodeID, fields map[string]any)
}

// PatchFunc adapts a function to the PatchSink interface.
type PatchFunc func(nodeID graph.NodeID, fields map[string]any)

// PatchNode calls the wrapped function.
func (f PatchFunc) PatchNode(nodeID graph.NodeID, fields map[string]any) {
	f(nodeID, fields)
}
