package assetref

import (
	"bytes"
	"strings"
	"testing"
)

func TestClassify(t *testing.T) {
	var c Codec

	t.Run("empty and whitespace are absent", func(t *testing.T) {
		for _, v := range []string{"", "   ", "\n\t"} {
			if _, ok := c.Classify(v); ok {
				t.Errorf("Classify(%q) ok = true, want false", v)
			}
		}
	})

	t.Run("data URL is inline", func(t *testing.T) {
		ref, ok := c.Classify("data:image/png;base64,aGk=")
		if !ok || ref.Kind != KindInline {
			t.Fatalf("Classify data URL = %+v ok=%v", ref, ok)
		}
	})

	t.Run("ephemeral scheme yields bare id", func(t *testing.T) {
		ref, ok := c.Classify("ephemeral://abc-123")
		if !ok || ref.Kind != KindEphemeral || ref.Value != "abc-123" {
			t.Fatalf("Classify ephemeral = %+v ok=%v", ref, ok)
		}
	})

	t.Run("ephemeral scheme without id is absent", func(t *testing.T) {
		if _, ok := c.Classify("ephemeral://"); ok {
			t.Error("empty ephemeral id should classify as absent")
		}
	})

	t.Run("URLs and bare keys are remote", func(t *testing.T) {
		for _, v := range []string{"https://cdn.example.com/a.png", "assets/session/a.png"} {
			ref, ok := c.Classify(v)
			if !ok || ref.Kind != KindRemote || ref.Value != v {
				t.Errorf("Classify(%q) = %+v ok=%v", v, ref, ok)
			}
		}
	})

	t.Run("surrounding whitespace is trimmed", func(t *testing.T) {
		ref, ok := c.Classify("  assets/a.png  ")
		if !ok || ref.Value != "assets/a.png" {
			t.Errorf("Classify = %+v ok=%v", ref, ok)
		}
	})
}

func TestNormalizeToPersistable(t *testing.T) {
	c := Codec{ProxyBase: "https://app.example.com/api/assets?key="}

	t.Run("inline is durable as-is", func(t *testing.T) {
		ref := Inline([]byte("hi"), "image/png")
		got, ok := c.NormalizeToPersistable(ref)
		if !ok || got != ref.Value {
			t.Errorf("normalize inline = %q ok=%v", got, ok)
		}
	})

	t.Run("ephemeral is transient", func(t *testing.T) {
		if _, ok := c.NormalizeToPersistable(Ephemeral("id1")); ok {
			t.Error("ephemeral refs must not normalize to a persistable form")
		}
	})

	t.Run("proxied URL unwraps to key", func(t *testing.T) {
		got, ok := c.NormalizeToPersistable(Remote("https://app.example.com/api/assets?key=a%2Fb.png"))
		if !ok || got != "a/b.png" {
			t.Errorf("normalize proxied = %q ok=%v", got, ok)
		}
	})

	t.Run("plain key passes through", func(t *testing.T) {
		got, ok := c.NormalizeToPersistable(Remote("a/b.png"))
		if !ok || got != "a/b.png" {
			t.Errorf("normalize key = %q ok=%v", got, ok)
		}
	})
}

// Normalization is idempotent with respect to classification: classifying a
// normalized form and normalizing again yields the same string.
func TestNormalizeIdempotent(t *testing.T) {
	c := Codec{ProxyBase: "https://app.example.com/api/assets?key="}
	inputs := []string{
		"a/b.png",
		"https://cdn.example.com/x.png",
		"https://app.example.com/api/assets?key=a%2Fb.png",
		Inline([]byte("payload"), "image/png").Value,
	}
	for _, in := range inputs {
		ref, ok := c.Classify(in)
		if !ok {
			t.Fatalf("Classify(%q) failed", in)
		}
		norm1, ok := c.NormalizeToPersistable(ref)
		if !ok {
			t.Fatalf("normalize(%q) not persistable", in)
		}
		ref2, ok := c.Classify(norm1)
		if !ok {
			t.Fatalf("re-classify(%q) failed", norm1)
		}
		norm2, ok := c.NormalizeToPersistable(ref2)
		if !ok || norm2 != norm1 {
			t.Errorf("normalize not idempotent for %q: %q then %q", in, norm1, norm2)
		}
	}
}

func TestToDisplayable(t *testing.T) {
	t.Run("remote key wraps with proxy base", func(t *testing.T) {
		c := Codec{ProxyBase: "https://app.example.com/api/assets?key="}
		got, ok := c.ToDisplayable(Remote("a/b.png"))
		if !ok || got != "https://app.example.com/api/assets?key=a%2Fb.png" {
			t.Errorf("ToDisplayable = %q ok=%v", got, ok)
		}
	})

	t.Run("full URL passes through", func(t *testing.T) {
		c := Codec{ProxyBase: "https://app.example.com/api/assets?key="}
		got, ok := c.ToDisplayable(Remote("https://cdn.example.com/x.png"))
		if !ok || got != "https://cdn.example.com/x.png" {
			t.Errorf("ToDisplayable = %q ok=%v", got, ok)
		}
	})

	t.Run("ephemeral resolves through resolver", func(t *testing.T) {
		c := Codec{DisplayResolver: func(id string) string { return "session://view/" + id }}
		got, ok := c.ToDisplayable(Ephemeral("id9"))
		if !ok || got != "session://view/id9" {
			t.Errorf("ToDisplayable = %q ok=%v", got, ok)
		}
	})

	t.Run("ephemeral without resolver has no display form", func(t *testing.T) {
		var c Codec
		if _, ok := c.ToDisplayable(Ephemeral("id9")); ok {
			t.Error("expected no displayable form")
		}
	})
}

func TestInlineRoundTrip(t *testing.T) {
	var c Codec
	payload := []byte{0x89, 'P', 'N', 'G', 0, 1, 2, 3}
	ref := Inline(payload, "image/png")
	if !strings.HasPrefix(ref.Value, "data:image/png;base64,") {
		t.Fatalf("unexpected inline form %q", ref.Value)
	}
	got, err := c.DecodeInline(ref)
	if err != nil {
		t.Fatalf("DecodeInline: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("DecodeInline = %v, want %v", got, payload)
	}
}

func TestEphemeralStringRoundTrip(t *testing.T) {
	var c Codec
	ref := Ephemeral("abc")
	back, ok := c.Classify(ref.String())
	if !ok || back != ref {
		t.Errorf("Classify(String()) = %+v ok=%v, want %+v", back, ok, ref)
	}
}
