// Package assetref classifies and converts the opaque string references the
// editor uses to address images: inline base64 data, session-local ephemeral
// asset ids, and remote object keys or URLs.
package assetref

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
)

// Kind identifies the representation of an asset reference.
type Kind int

const (
	KindInline    Kind = iota // base64 data URL carrying the bytes itself
	KindEphemeral             // id of a session-local derived asset
	KindRemote                // object key or http(s) URL
)

func (k Kind) String() string {
	switch k {
	case KindInline:
		return "inline"
	case KindEphemeral:
		return "ephemeral"
	case KindRemote:
		return "remote"
	default:
		return "unknown"
	}
}

// EphemeralScheme prefixes references to session-local derived assets.
const EphemeralScheme = "ephemeral://"

const dataURLPrefix = "data:"

// Ref is a classified asset reference. For inline refs Value holds the full
// data URL; for ephemeral refs the bare asset id; for remote refs the key or
// URL as given.
type Ref struct {
	Kind  Kind
	Value string
}

// Inline builds an inline reference embedding the given bytes.
func Inline(data []byte, mimeType string) Ref {
	if mimeType == "" {
		mimeType = "image/png"
	}
	return Ref{
		Kind:  KindInline,
		Value: dataURLPrefix + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data),
	}
}

// Ephemeral builds a reference to a session-local asset id.
func Ephemeral(id string) Ref {
	return Ref{Kind: KindEphemeral, Value: id}
}

// Remote builds a reference to a remote object key or URL.
func Remote(keyOrURL string) Ref {
	return Ref{Kind: KindRemote, Value: keyOrURL}
}

// String returns the serialized form of the reference, the inverse of
// Codec.Classify.
func (r Ref) String() string {
	if r.Kind == KindEphemeral {
		return EphemeralScheme + r.Value
	}
	return r.Value
}

// IsZero reports whether the reference is unset.
func (r Ref) IsZero() bool {
	return r.Value == ""
}

// Codec converts between the serialized, persistable, and displayable forms
// of asset references. The zero value is usable; ProxyBase and
// DisplayResolver add the environment-specific pieces.
type Codec struct {
	// ProxyBase, when set, is prepended to remote object keys to produce a
	// renderable URL (the key is query-escaped and appended). It is also
	// recognized during normalization to unwrap proxied URLs back to keys.
	ProxyBase string

	// DisplayResolver maps an ephemeral asset id to a short-lived display
	// URL. Nil means ephemeral refs have no displayable form.
	DisplayResolver func(id string) string
}

// Classify parses a raw string into a Ref. Empty and whitespace-only strings
// are treated as absent. Unrecognized formats are passed through as remote
// keys rather than rejected; Classify never fails on malformed input.
func (c *Codec) Classify(value string) (Ref, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Ref{}, false
	}
	switch {
	case strings.HasPrefix(value, dataURLPrefix):
		return Ref{Kind: KindInline, Value: value}, true
	case strings.HasPrefix(value, EphemeralScheme):
		id := value[len(EphemeralScheme):]
		if id == "" {
			return Ref{}, false
		}
		return Ref{Kind: KindEphemeral, Value: id}, true
	default:
		return Ref{Kind: KindRemote, Value: value}, true
	}
}

// NormalizeToPersistable returns the stable, storage-durable form of the
// reference, or false if the reference only exists in this session. A
// proxy-wrapped URL is resolved back to its underlying object key so the
// same asset normalizes identically before and after proxying.
func (c *Codec) NormalizeToPersistable(ref Ref) (string, bool) {
	switch ref.Kind {
	case KindInline:
		// A data URL carries its own bytes. Durable as-is.
		return ref.Value, true
	case KindEphemeral:
		return "", false
	case KindRemote:
		if key, ok := c.unwrapProxy(ref.Value); ok {
			return key, true
		}
		return ref.Value, true
	default:
		return "", false
	}
}

// ToDisplayable produces a renderable form of the reference: inline data URLs
// pass through, ephemeral ids resolve through DisplayResolver, and bare
// remote keys are wrapped with ProxyBase. Returns false when no displayable
// form exists.
func (c *Codec) ToDisplayable(ref Ref) (string, bool) {
	switch ref.Kind {
	case KindInline:
		return ref.Value, true
	case KindEphemeral:
		if c.DisplayResolver == nil {
			return "", false
		}
		u := c.DisplayResolver(ref.Value)
		return u, u != ""
	case KindRemote:
		if isHTTPURL(ref.Value) {
			return ref.Value, true
		}
		if c.ProxyBase != "" {
			return c.ProxyBase + url.QueryEscape(ref.Value), true
		}
		return ref.Value, true
	default:
		return "", false
	}
}

// DecodeInline extracts the raw bytes from an inline reference.
func (c *Codec) DecodeInline(ref Ref) ([]byte, error) {
	if ref.Kind != KindInline {
		return nil, fmt.Errorf("not an inline reference (%s)", ref.Kind)
	}
	_, payload, ok := strings.Cut(ref.Value, ",")
	if !ok {
		return nil, fmt.Errorf("malformed data URL")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode inline payload: %w", err)
	}
	return data, nil
}

// unwrapProxy recognizes a ProxyBase-wrapped URL and returns the underlying
// object key.
func (c *Codec) unwrapProxy(value string) (string, bool) {
	if c.ProxyBase == "" || !strings.HasPrefix(value, c.ProxyBase) {
		return "", false
	}
	key, err := url.QueryUnescape(value[len(c.ProxyBase):])
	if err != nil || key == "" {
		return "", false
	}
	return key, true
}

func isHTTPURL(value string) bool {
	return strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://")
}
