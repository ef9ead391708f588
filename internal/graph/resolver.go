package graph

import (
	"log/slog"
	"strconv"
	"strings"

	"pixelgraph/internal/assetref"
)

// Generic producer nodes expose their image through a conventional set of
// data fields, tried in priority order: explicit full-resolution data, then
// the canonical URL, then the thumbnail as a last resort.
var genericImageFields = []string{"imageData", "imageUrl", "thumbnailUrl"}

// Resolver walks incoming edges from a consumer node to its producers and
// extracts the image values they expose. Absence of a resolvable image is a
// normal state (node not connected, upstream not yet produced), never an
// error.
type Resolver struct {
	Codec *assetref.Codec
	Log   *slog.Logger
}

func (r *Resolver) log() *slog.Logger {
	if r.Log != nil {
		return r.Log
	}
	return slog.Default()
}

// ResolveImage resolves a single image for the consumer's handle: candidate
// edges are tried in order and the first that yields a non-empty result
// wins.
func (r *Resolver) ResolveImage(g *Graph, consumer NodeID, targetHandle string) (ImageItem, bool) {
	for _, edge := range g.Incoming(consumer, targetHandle) {
		if items := r.extractEdge(g, edge, nil); len(items) > 0 {
			return items[0], true
		}
	}
	return ImageItem{}, false
}

// ResolveImages accumulates image values across all candidate edges, in edge
// order. Used by consumers with fan-in (grid nodes).
func (r *Resolver) ResolveImages(g *Graph, consumer NodeID, targetHandle string) []ImageItem {
	var out []ImageItem
	for _, edge := range g.Incoming(consumer, targetHandle) {
		out = append(out, r.extractEdge(g, edge, nil)...)
	}
	return out
}

// extractEdge dispatches to the producer node's extraction rule. visited
// guards the display-node recursion against cycles.
func (r *Resolver) extractEdge(g *Graph, edge Edge, visited map[NodeID]bool) []ImageItem {
	node := g.Node(edge.Source)
	if node == nil {
		return nil
	}

	switch node.Kind {
	case KindDisplay:
		// A display node only shows an upstream image; resolving to its own
		// empty state would be wrong, so look one more hop upstream.
		if visited[node.ID] {
			return nil
		}
		if visited == nil {
			visited = make(map[NodeID]bool)
		}
		visited[node.ID] = true
		for _, up := range g.Incoming(node.ID, "image") {
			if items := r.extractEdge(g, up, visited); len(items) > 0 {
				return items
			}
		}
		return nil

	case KindSplit:
		return r.extractSplit(node, edge.SourceHandle)

	case KindGrid:
		return r.refItem(node, dataString(node, "outputUrl"))

	case KindFrames:
		return r.extractFrames(node, edge.SourceHandle)

	case KindQuad:
		return r.extractQuad(node, edge.SourceHandle)

	default:
		return r.extractGeneric(node)
	}
}

// extractGeneric applies the conventional field priority for plain producer
// nodes, keeping the thumbnail as a secondary form when one exists.
func (r *Resolver) extractGeneric(node *Node) []ImageItem {
	raw := dataString(node, genericImageFields...)
	ref, ok := r.Codec.Classify(raw)
	if !ok {
		return nil
	}
	item := ImageItem{ID: string(node.ID), Image: ref}
	if thumb, ok := r.Codec.Classify(dataString(node, "thumbnailUrl")); ok && thumb != ref {
		item.Thumbnail = thumb
	}
	return []ImageItem{item}
}

// extractSplit exposes a split node's regions as crop-carrying items against
// its recorded base image: either one numbered output (handle "image{N}",
// 1-based) or the full rect list.
func (r *Resolver) extractSplit(node *Node, sourceHandle string) []ImageItem {
	base, ok := r.Codec.Classify(dataString(node, "imageRef"))
	if !ok {
		return nil
	}
	rects := dataRects(node, "rects")
	if len(rects) == 0 {
		return nil
	}
	srcW := dataInt(node, "sourceWidth")
	srcH := dataInt(node, "sourceHeight")

	if n, ok := indexedHandle(sourceHandle, "image"); ok {
		if n < 1 || n > len(rects) {
			r.log().Debug("split output out of range", "node", node.ID, "handle", sourceHandle, "rects", len(rects))
			return nil
		}
		rect := rects[n-1]
		return []ImageItem{{
			ID:           string(node.ID) + ":image" + strconv.Itoa(n),
			Image:        base,
			Crop:         &rect,
			SourceWidth:  srcW,
			SourceHeight: srcH,
		}}
	}

	items := make([]ImageItem, len(rects))
	for i := range rects {
		rect := rects[i]
		items[i] = ImageItem{
			ID:           string(node.ID) + ":image" + strconv.Itoa(i+1),
			Image:        base,
			Crop:         &rect,
			SourceWidth:  srcW,
			SourceHeight: srcH,
		}
	}
	return items
}

// extractFrames exposes a frame extractor's outputs. The source handle picks
// a single frame ("frame{N}"), the configured range ("range"), or the full
// set ("frames"); an unset handle follows the node's own output mode, which
// legacy edges rely on.
func (r *Resolver) extractFrames(node *Node, sourceHandle string) []ImageItem {
	frames := dataStrings(node, "frames")
	if len(frames) == 0 {
		return nil
	}

	mode := sourceHandle
	if mode == "" {
		switch dataString(node, "outputMode") {
		case "single":
			mode = "frame" + strconv.Itoa(dataInt(node, "frameIndex")+1)
		case "range":
			mode = "range"
		default:
			mode = "frames"
		}
	}

	pick := func(indexes ...int) []ImageItem {
		var items []ImageItem
		for _, i := range indexes {
			if i < 0 || i >= len(frames) {
				continue
			}
			if ref, ok := r.Codec.Classify(frames[i]); ok {
				items = append(items, ImageItem{
					ID:    string(node.ID) + ":frame" + strconv.Itoa(i+1),
					Image: ref,
				})
			}
		}
		return items
	}

	switch {
	case mode == "frames":
		all := make([]int, len(frames))
		for i := range all {
			all[i] = i
		}
		return pick(all...)
	case mode == "range":
		start, end := dataInt(node, "rangeStart"), dataInt(node, "rangeEnd")
		if end < start {
			return nil
		}
		span := make([]int, 0, end-start+1)
		for i := start; i <= end; i++ {
			span = append(span, i)
		}
		return pick(span...)
	default:
		if n, ok := indexedHandle(mode, "frame"); ok {
			return pick(n - 1)
		}
		return nil
	}
}

// extractQuad exposes a four-image generator's numbered outputs plus the
// aggregate of all four.
func (r *Resolver) extractQuad(node *Node, sourceHandle string) []ImageItem {
	if n, ok := indexedHandle(sourceHandle, "img"); ok {
		return r.refItem(node, dataString(node, "img"+strconv.Itoa(n)))
	}
	var items []ImageItem
	for i := 1; i <= 4; i++ {
		items = append(items, r.refItem(node, dataString(node, "img"+strconv.Itoa(i)))...)
	}
	return items
}

// refItem wraps a single raw reference string as an item owned by node.
func (r *Resolver) refItem(node *Node, raw string) []ImageItem {
	ref, ok := r.Codec.Classify(raw)
	if !ok {
		return nil
	}
	return []ImageItem{{ID: string(node.ID), Image: ref}}
}

// indexedHandle parses handles of the form "<prefix><N>".
func indexedHandle(handle, prefix string) (int, bool) {
	rest, found := strings.CutPrefix(handle, prefix)
	if !found || rest == "" {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return n, true
}
