// Package identity derives stable content-identity keys for resolved image
// references. Equality of two keys is the sole signal used to decide whether
// cached split/grid results can be reused or must be recomputed.
package identity

import (
	"fmt"

	"pixelgraph/internal/assetref"
	"pixelgraph/pkg/geometry"
)

// cropKeySeparator joins a base key with its crop qualifier.
const cropKeySeparator = "#crop:"

// Key returns the identity key for a reference. The persistable normalized
// form is preferred so a reference that oscillates between an in-memory form
// and its uploaded remote key (for the same underlying content) does not
// spuriously invalidate results. Purely transient references fall back to
// their raw serialized form, which still compares equal to itself within a
// session.
//
// This is a string-normalization heuristic, not a content hash; see the
// tradeoff note in DESIGN.md.
func Key(c *assetref.Codec, ref assetref.Ref) string {
	if norm, ok := c.NormalizeToPersistable(ref); ok {
		return norm
	}
	return ref.String()
}

// CropKey returns the identity key for a crop of a base reference. The crop
// rectangle and its declared source dimensions are part of the identity, so
// the same base cropped differently (or against a different coordinate
// space) recomputes.
func CropKey(c *assetref.Codec, base assetref.Ref, crop geometry.Rect, sourceWidth, sourceHeight int) string {
	return fmt.Sprintf("%s%s%s@%dx%d", Key(c, base), cropKeySeparator, crop, sourceWidth, sourceHeight)
}

// Same reports whether two keys refer to the same logical image.
func Same(a, b string) bool {
	return a != "" && a == b
}
