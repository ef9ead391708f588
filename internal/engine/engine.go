// Package engine orchestrates the image lineage pipeline: resolving upstream
// images through the graph, tracking content identity, running segmentation
// or grid compositing, and managing the derived ephemeral assets.
package engine

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"runtime"
	"sync"

	"pixelgraph/internal/assetref"
	"pixelgraph/internal/compose"
	"pixelgraph/internal/crop"
	"pixelgraph/internal/graph"
	"pixelgraph/internal/identity"
	"pixelgraph/internal/imaging"
	"pixelgraph/internal/segment"
	"pixelgraph/internal/store"
	"pixelgraph/pkg/geometry"
)

// Handle names the engine resolves through.
const (
	splitInputHandle = "image"
	gridInputHandle  = "images"
)

// Uploader converts a non-persistable input into a durable remote key. Used
// once per asset, the first time identity tracking needs a stable form.
type Uploader interface {
	Upload(ctx context.Context, blob []byte) (key string, err error)
}

// Config assembles an Engine.
type Config struct {
	Store    store.Store       // nil uses an in-memory store
	Sink     PatchSink         // required
	Codec    *assetref.Codec   // nil uses a zero codec
	Segment  segment.Params    // zero value uses segment.DefaultParams
	Compose  compose.Options   // zero value uses compose.DefaultOptions
	Workers  int               // offload pool size; <0 disables, 0 uses NumCPU
	Uploader Uploader          // optional upload-on-first-use path
	Log      *slog.Logger      // nil uses slog.Default
}

// nodeState is the committed derivation state of one node.
type nodeState struct {
	identityKey string
	assetIDs    []string
}

// Engine runs split and grid derivations for consumer nodes. Safe for
// concurrent use; concurrent requests for different nodes are independent,
// and within one node a newer request supersedes any in flight.
type Engine struct {
	codec    *assetref.Codec
	store    store.Store
	sink     PatchSink
	resolver *graph.Resolver
	deriver  *crop.Deriver
	offload  *Offload
	seg      segment.Params
	comp     compose.Options
	uploader Uploader
	log      *slog.Logger

	mu    sync.Mutex
	seq   map[graph.NodeID]uint64
	nodes map[graph.NodeID]*nodeState
}

// New creates an Engine from the config.
func New(cfg Config) *Engine {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	st := cfg.Store
	if st == nil {
		st = store.NewMemory()
	}
	codec := &assetref.Codec{}
	if cfg.Codec != nil {
		copied := *cfg.Codec
		codec = &copied
	}
	if codec.DisplayResolver == nil {
		codec.DisplayResolver = st.ResolveDisplayURL
	}
	seg := cfg.Segment
	if seg == (segment.Params{}) {
		seg = segment.DefaultParams()
	}
	seg.Log = log
	comp := cfg.Compose
	if comp == (compose.Options{}) {
		comp = compose.DefaultOptions()
	}
	workers := cfg.Workers
	if workers == 0 {
		workers = runtime.NumCPU()
	}
	if workers < 0 {
		workers = 0
	}

	fetcher := &imaging.Fetcher{Codec: codec, Ephemeral: st}
	return &Engine{
		codec:    codec,
		store:    st,
		sink:     cfg.Sink,
		resolver: &graph.Resolver{Codec: codec, Log: log},
		deriver:  &crop.Deriver{Fetcher: fetcher, Log: log},
		offload:  NewOffload(workers),
		seg:      seg,
		comp:     comp,
		uploader: cfg.Uploader,
		log:      log,
		seq:      make(map[graph.NodeID]uint64),
		nodes:    make(map[graph.NodeID]*nodeState),
	}
}

// Close stops the offload pool and the asset store.
func (e *Engine) Close() error {
	e.offload.Close()
	return e.store.Close()
}

// RecomputeSplit resolves the node's upstream image and derives its content
// regions plus per-region ephemeral crops. Absence of an upstream image is a
// normal idle state. A request that is superseded by a newer one for the
// same node discards its work silently.
func (e *Engine) RecomputeSplit(ctx context.Context, g *graph.Graph, nodeID graph.NodeID, desiredCount int) error {
	seq := e.nextSeq(nodeID)

	item, ok := e.resolver.ResolveImage(g, nodeID, splitInputHandle)
	if !ok {
		e.commitClear(nodeID, seq, StatusIdle, "")
		return nil
	}

	item = e.ensurePersistable(ctx, item)
	key := e.itemIdentity(item)
	if e.identityUnchanged(nodeID, key) {
		return nil
	}

	if !e.patchIfCurrent(nodeID, seq, map[string]any{FieldStatus: string(StatusProcessing), FieldError: ""}) {
		return nil
	}

	img, err := e.resolvePixels(ctx, item)
	if err != nil {
		if !e.commitClear(nodeID, seq, StatusFailed, fmt.Sprintf("source image unusable: %v", err)) {
			return nil
		}
		return fmt.Errorf("split %s: %w", nodeID, err)
	}

	var rects []geometry.RectInt
	if err := e.offload.Do(ctx, func() {
		rects = segment.Segment(img, desiredCount, e.seg)
	}); err != nil {
		return fmt.Errorf("split %s: segmentation: %w", nodeID, err)
	}
	if e.superseded(nodeID, seq) {
		return nil
	}

	width := img.Bounds().Dx()
	height := img.Bounds().Dy()

	// Region rects are in the coordinate space of the resolved pixels. When
	// the input itself carried a crop, re-anchor the base on those pixels so
	// per-region crops compose correctly.
	base := item.Image
	if item.Crop != nil {
		if encoded, err := imaging.EncodePNG(img); err == nil {
			base = assetref.Inline(encoded, "image/png")
		}
	}

	// Per-region ephemeral crops. Derivation and storage are best-effort:
	// a failed region shows no preview, a failed put degrades to no reuse.
	assetIDs := make([]string, 0, len(rects))
	refs := make([]string, len(rects))
	for i, r := range rects {
		blob, err := e.deriver.DeriveCrop(ctx, base, r.ToFloat(), width, height)
		if err != nil {
			e.log.Debug("region crop failed", "node", nodeID, "rect", r, "err", err)
			continue
		}
		id, err := e.store.Put(ctx, string(nodeID), blob)
		if err != nil || id == "" {
			e.log.Warn("ephemeral put failed, region kept without preview", "node", nodeID, "err", err)
			refs[i] = assetref.Inline(blob, "image/png").Value
			continue
		}
		assetIDs = append(assetIDs, id)
		refs[i] = assetref.Ephemeral(id).String()
	}

	committed := e.commit(nodeID, seq, key, assetIDs, map[string]any{
		FieldStatus:       string(StatusSucceeded),
		FieldError:        "",
		FieldRects:        rectsToData(rects),
		FieldSourceWidth:  width,
		FieldSourceHeight: height,
		FieldImageRefs:    refs,
		FieldImageRef:     e.persistableForm(base),
	})
	if !committed {
		// A newer request started while this one was deriving; its assets
		// must not outlive it.
		e.deleteAssets(context.WithoutCancel(ctx), assetIDs)
	}
	return nil
}

// RecomputeGrid resolves the node's upstream image set and composites it
// into a single grid canvas.
func (e *Engine) RecomputeGrid(ctx context.Context, g *graph.Graph, nodeID graph.NodeID) error {
	seq := e.nextSeq(nodeID)

	items := e.resolver.ResolveImages(g, nodeID, gridInputHandle)
	if len(items) == 0 {
		e.commitClear(nodeID, seq, StatusIdle, "")
		return nil
	}

	key := ""
	for i := range items {
		items[i] = e.ensurePersistable(ctx, items[i])
		key += e.itemIdentity(items[i]) + "|"
	}
	if e.identityUnchanged(nodeID, key) {
		return nil
	}

	if !e.patchIfCurrent(nodeID, seq, map[string]any{FieldStatus: string(StatusProcessing), FieldError: ""}) {
		return nil
	}

	fetcher := e.deriver.Fetcher
	inputs := make([]compose.Item, len(items))
	for i, item := range items {
		data, err := fetcher.Fetch(ctx, item.Image)
		if err != nil {
			if !e.commitClear(nodeID, seq, StatusFailed, fmt.Sprintf("input %s unusable: %v", item.ID, err)) {
				return nil
			}
			return fmt.Errorf("grid %s: %w", nodeID, err)
		}
		inputs[i] = compose.Item{
			Name:         item.ID,
			Data:         data,
			Crop:         item.Crop,
			SourceWidth:  item.SourceWidth,
			SourceHeight: item.SourceHeight,
		}
	}

	var (
		blob     []byte
		gridSize int
		compErr  error
	)
	if err := e.offload.Do(ctx, func() {
		blob, gridSize, compErr = compose.Composite(ctx, inputs, e.comp)
	}); err != nil {
		return fmt.Errorf("grid %s: composite: %w", nodeID, err)
	}
	if compErr != nil {
		if !e.commitClear(nodeID, seq, StatusFailed, compErr.Error()) {
			return nil
		}
		return fmt.Errorf("grid %s: %w", nodeID, compErr)
	}
	if e.superseded(nodeID, seq) {
		return nil
	}

	var assetIDs []string
	outputRef := ""
	id, err := e.store.Put(ctx, string(nodeID), blob)
	if err != nil || id == "" {
		// Non-fatal: hand the composite back inline even though it could
		// not be persisted for reuse.
		e.log.Warn("ephemeral put failed, returning composite inline", "node", nodeID, "err", err)
		outputRef = assetref.Inline(blob, "image/png").Value
	} else {
		assetIDs = append(assetIDs, id)
		outputRef = assetref.Ephemeral(id).String()
	}

	if !e.commit(nodeID, seq, key, assetIDs, map[string]any{
		FieldStatus:     string(StatusSucceeded),
		FieldError:      "",
		FieldOutputURL:  outputRef,
		FieldInputCount: len(items),
		FieldGridSize:   gridSize,
	}) {
		e.deleteAssets(context.WithoutCancel(ctx), assetIDs)
	}
	return nil
}

// TeardownNode deletes every ephemeral asset the node owns and forgets its
// derivation state.
func (e *Engine) TeardownNode(ctx context.Context, nodeID graph.NodeID) {
	e.mu.Lock()
	delete(e.nodes, nodeID)
	delete(e.seq, nodeID)
	e.mu.Unlock()

	if err := e.store.DeleteOwned(ctx, string(nodeID)); err != nil {
		e.log.Warn("teardown sweep failed", "node", nodeID, "err", err)
	}
}

// resolvePixels fetches and decodes an item, applying its crop when present.
func (e *Engine) resolvePixels(ctx context.Context, item graph.ImageItem) (*image.RGBA, error) {
	data, err := e.deriver.Fetcher.Fetch(ctx, item.Image)
	if err != nil {
		return nil, err
	}
	img, err := imaging.Decode(data)
	if err != nil {
		return nil, err
	}
	if item.Crop != nil {
		return imaging.CropScaled(img, *item.Crop, item.SourceWidth, item.SourceHeight)
	}
	return imaging.ToRGBA(img), nil
}

// ensurePersistable uploads an inline input once so identity tracking and
// later re-resolutions see the same durable key. Without an uploader the
// inline form is kept (it is still stable within the session).
func (e *Engine) ensurePersistable(ctx context.Context, item graph.ImageItem) graph.ImageItem {
	if e.uploader == nil || item.Image.Kind != assetref.KindInline {
		return item
	}
	blob, err := e.codec.DecodeInline(item.Image)
	if err != nil {
		return item
	}
	key, err := e.uploader.Upload(ctx, blob)
	if err != nil || key == "" {
		e.log.Warn("upload-on-first-use failed, keeping inline form", "err", err)
		return item
	}
	item.Image = assetref.Remote(key)
	return item
}

func (e *Engine) itemIdentity(item graph.ImageItem) string {
	if item.Crop != nil {
		return identity.CropKey(e.codec, item.Image, *item.Crop, item.SourceWidth, item.SourceHeight)
	}
	return identity.Key(e.codec, item.Image)
}

func (e *Engine) persistableForm(ref assetref.Ref) string {
	if norm, ok := e.codec.NormalizeToPersistable(ref); ok {
		return norm
	}
	return ref.String()
}

// nextSeq starts a new request for the node, superseding any in flight.
func (e *Engine) nextSeq(nodeID graph.NodeID) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seq[nodeID]++
	return e.seq[nodeID]
}

func (e *Engine) superseded(nodeID graph.NodeID, seq uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.seq[nodeID] != seq
}

func (e *Engine) identityUnchanged(nodeID graph.NodeID, key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := e.nodes[nodeID]
	return st != nil && identity.Same(st.identityKey, key)
}

// commit atomically records the new derivation state and returns whether it
// won (false when a newer request superseded this one). The sink patch is
// emitted under the state lock, so a superseded request can never interleave
// its fields after a fresher commit. The previous generation's assets are
// deleted only after the new state is in place.
func (e *Engine) commit(nodeID graph.NodeID, seq uint64, key string, assetIDs []string, fields map[string]any) bool {
	e.mu.Lock()
	if e.seq[nodeID] != seq {
		e.mu.Unlock()
		return false
	}
	var old []string
	if st := e.nodes[nodeID]; st != nil {
		old = st.assetIDs
	}
	e.nodes[nodeID] = &nodeState{identityKey: key, assetIDs: assetIDs}
	if fields != nil && e.sink != nil {
		e.sink.PatchNode(nodeID, fields)
	}
	e.mu.Unlock()

	e.deleteAssets(context.Background(), old)
	return true
}

// commitClear resets the node to an empty state (idle or failed), clearing
// all outputs and previously owned assets together. Returns false when a
// newer request superseded this one, in which case nothing is emitted and
// the caller must discard its failure silently.
func (e *Engine) commitClear(nodeID graph.NodeID, seq uint64, status Status, errMsg string) bool {
	return e.commit(nodeID, seq, "", nil, map[string]any{
		FieldStatus:       string(status),
		FieldError:        errMsg,
		FieldRects:        nil,
		FieldSourceWidth:  0,
		FieldSourceHeight: 0,
		FieldImageRefs:    nil,
		FieldImageRef:     "",
		FieldOutputURL:    "",
		FieldInputCount:   0,
		FieldGridSize:     0,
	})
}

// patchIfCurrent emits fields only while seq is still the node's newest
// request, under the same lock commits take.
func (e *Engine) patchIfCurrent(nodeID graph.NodeID, seq uint64, fields map[string]any) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.seq[nodeID] != seq {
		return false
	}
	if e.sink != nil {
		e.sink.PatchNode(nodeID, fields)
	}
	return true
}

func (e *Engine) deleteAssets(ctx context.Context, ids []string) {
	for _, id := range ids {
		if err := e.store.Delete(ctx, id); err != nil {
			e.log.Warn("ephemeral delete failed", "asset", id, "err", err)
		}
	}
}

func rectsToData(rects []geometry.RectInt) []map[string]any {
	out := make([]map[string]any, len(rects))
	for i, r := range rects {
		out[i] = map[string]any{
			"x": float64(r.X), "y": float64(r.Y),
			"width": float64(r.Width), "height": float64(r.Height),
		}
	}
	return out
}
