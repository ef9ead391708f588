package imaging

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"pixelgraph/internal/assetref"
)

// maxFetchBytes bounds how much image data a single fetch will read.
const maxFetchBytes = 128 << 20

// ByteSource resolves session-local asset ids to their stored bytes.
type ByteSource interface {
	Get(ctx context.Context, id string) ([]byte, error)
}

// Fetcher resolves any asset reference to raw image bytes: inline payloads
// decode in place, ephemeral ids go through the session store, and remote
// keys/URLs are fetched over HTTP.
type Fetcher struct {
	Codec     *assetref.Codec
	Ephemeral ByteSource   // nil when no session store is attached
	Client    *http.Client // nil uses a default with a 30s timeout
}

func (f *Fetcher) httpClient() *http.Client {
	if f.Client != nil {
		return f.Client
	}
	return &http.Client{Timeout: 30 * time.Second}
}

// Fetch returns the raw bytes behind a reference.
func (f *Fetcher) Fetch(ctx context.Context, ref assetref.Ref) ([]byte, error) {
	switch ref.Kind {
	case assetref.KindInline:
		return f.Codec.DecodeInline(ref)

	case assetref.KindEphemeral:
		if f.Ephemeral == nil {
			return nil, fmt.Errorf("no session store to resolve ephemeral asset %s", ref.Value)
		}
		data, err := f.Ephemeral.Get(ctx, ref.Value)
		if err != nil {
			return nil, fmt.Errorf("ephemeral asset %s: %w", ref.Value, err)
		}
		return data, nil

	case assetref.KindRemote:
		u, ok := f.Codec.ToDisplayable(ref)
		if !ok {
			return nil, fmt.Errorf("remote reference %q has no fetchable form", ref.Value)
		}
		return f.fetchURL(ctx, u)

	default:
		return nil, fmt.Errorf("unresolvable reference kind %s", ref.Kind)
	}
}

func (f *Fetcher) fetchURL(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", u, err)
	}
	resp, err := f.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %s", u, resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", u, err)
	}
	return data, nil
}
