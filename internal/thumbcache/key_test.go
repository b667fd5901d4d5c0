package thumbcache

import (
	"strings"
	"testing"
)

func TestKeyUsesURLBasename(t *testing.T) {
	key := Key("https://th.wallhaven.cc/small/x8/x8gjoz.jpg")
	if key != "x8gjoz.jpg" {
		t.Fatalf("key = %q, want x8gjoz.jpg", key)
	}
}

func TestKeyDeterministic(t *testing.T) {
	urls := []string{
		"https://th.wallhaven.cc/small/x8/x8gjoz.jpg",
		"https://example.com/",
		"://not-a-url",
	}
	for _, u := range urls {
		if Key(u) != Key(u) {
			t.Fatalf("key for %q is not deterministic", u)
		}
	}
}

func TestKeyFallbackForEmptyBasename(t *testing.T) {
	for _, u := range []string{"https://example.com", "https://example.com/", "https://example.com/a/b/../.."} {
		key := Key(u)
		if !strings.HasPrefix(key, "thumb_") || !strings.HasSuffix(key, ".jpg") {
			t.Fatalf("fallback key for %q = %q, want thumb_<hash>.jpg", u, key)
		}
	}
}

func TestKeyFallbackForDotBasename(t *testing.T) {
	// A dot-prefixed basename would collide with the temp-file namespace
	// the eviction sweep skips, so it must route to the hashed key.
	key := Key("https://th.example/img/.hidden.jpg")
	if !strings.HasPrefix(key, "thumb_") || !strings.HasSuffix(key, ".jpg") {
		t.Fatalf("dot basename should use hashed key, got %q", key)
	}
}

func TestKeyFallbackForUnparsableURL(t *testing.T) {
	key := Key("://missing-scheme")
	if !strings.HasPrefix(key, "thumb_") {
		t.Fatalf("unparsable URL should use hashed key, got %q", key)
	}
}

func TestKeyFallbacksDifferPerURL(t *testing.T) {
	a := Key("https://one.example/")
	b := Key("https://two.example/")
	if a == b {
		t.Fatalf("distinct URLs produced the same fallback key %q", a)
	}
}
