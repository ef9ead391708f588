package graph

import (
	"pixelgraph/internal/assetref"
	"pixelgraph/pkg/geometry"
)

// ImageItem is one resolved image value. It is an immutable value type:
// recomputation replaces items wholesale rather than mutating them.
type ImageItem struct {
	ID        string
	Image     assetref.Ref
	Thumbnail assetref.Ref // zero when the producer exposes no preview form

	// Crop, when set, selects a region of Image declared in the
	// SourceWidth x SourceHeight coordinate space (not necessarily the
	// bitmap's natural size; scaling is the crop deriver's concern).
	Crop         *geometry.Rect
	SourceWidth  int
	SourceHeight int
}

// dataString returns the first non-empty string among the named data fields.
func dataString(n *Node, keys ...string) string {
	for _, k := range keys {
		if v, ok := n.Data[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// dataInt reads a numeric data field. JSON numbers arrive as float64.
func dataInt(n *Node, key string) int {
	switch v := n.Data[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

// dataRects reads a list of rect objects from a data field.
func dataRects(n *Node, key string) []geometry.Rect {
	raw, ok := n.Data[key].([]any)
	if !ok {
		return nil
	}
	rects := make([]geometry.Rect, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		r := geometry.Rect{
			X:      floatField(m, "x"),
			Y:      floatField(m, "y"),
			Width:  floatField(m, "width"),
			Height: floatField(m, "height"),
		}
		if !r.Empty() {
			rects = append(rects, r)
		}
	}
	return rects
}

// dataStrings reads a list of strings from a data field.
func dataStrings(n *Node, key string) []string {
	raw, ok := n.Data[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

func floatField(m map[string]any, key string) float64 {
	v, _ := m[key].(float64)
	return v
}
