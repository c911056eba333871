package imagecache

import (
	"fmt"
	"testing"

	"github.com/go-drift/imagecache/pkg/errors"
)

// checkConsistent verifies the index bijection invariant.
func checkConsistent(t *testing.T, a *allPendingLoads) {
	t.Helper()
	if (a.len() == 0) != (len(a.urlToKey) == 0) {
		t.Fatalf("emptiness desync: %d loads, %d url mappings", a.len(), len(a.urlToKey))
	}
	if len(a.loads) != len(a.urlToKey) {
		t.Fatalf("size desync: %d loads, %d url mappings", len(a.loads), len(a.urlToKey))
	}
	for url, key := range a.urlToKey {
		load, ok := a.loads[key]
		if !ok {
			t.Fatalf("url %q maps to key %d with no load", url, key)
		}
		if load.url != url {
			t.Fatalf("key %d load has url %q, mapped from %q", key, load.url, url)
		}
	}
}

func TestGetCachedMissThenHit(t *testing.T) {
	a := newAllPendingLoads()

	result, key, load := a.getCached("https://example.com/a.png")
	if result != cacheMiss {
		t.Fatal("first lookup should miss")
	}
	if load == nil || load.url != "https://example.com/a.png" {
		t.Fatalf("unexpected load: %+v", load)
	}

	result2, key2, load2 := a.getCached("https://example.com/a.png")
	if result2 != cacheHit {
		t.Fatal("second lookup should hit")
	}
	if key2 != key || load2 != load {
		t.Error("hit must return the existing key and load")
	}
	checkConsistent(t, a)
}

func TestLoadKeysAreUniqueAndMonotonic(t *testing.T) {
	a := newAllPendingLoads()

	var prev LoadKey
	for i := 0; i < 20; i++ {
		_, key, _ := a.getCached(fmt.Sprintf("https://example.com/%d.png", i))
		if key <= prev {
			t.Fatalf("key %d not greater than previous %d", key, prev)
		}
		prev = key
	}
	if a.keysIssued() != 20 {
		t.Errorf("keysIssued: got %d, want 20", a.keysIssued())
	}
	checkConsistent(t, a)
}

func TestKeysNotReusedAfterRemove(t *testing.T) {
	a := newAllPendingLoads()

	_, k1, _ := a.getCached("u1")
	a.remove(k1)

	_, k2, _ := a.getCached("u1")
	if k2 == k1 {
		t.Error("a re-requested URL must get a fresh key, never a reused one")
	}
	checkConsistent(t, a)
}

func TestRemoveDetachesBothEntries(t *testing.T) {
	a := newAllPendingLoads()

	_, k1, _ := a.getCached("u1")
	_, _, _ = a.getCached("u2")

	load := a.remove(k1)
	if load == nil || load.url != "u1" {
		t.Fatalf("remove returned %+v", load)
	}
	if _, ok := a.byKey(k1); ok {
		t.Error("removed key still present")
	}
	if _, ok := a.byURL("u1"); ok {
		t.Error("removed url still present")
	}
	if _, ok := a.byURL("u2"); !ok {
		t.Error("unrelated load disturbed by remove")
	}
	checkConsistent(t, a)
}

func TestRemoveUnknownKeyPanics(t *testing.T) {
	errors.SetHandler(&recordingHandler{})
	defer errors.SetHandler(nil)

	a := newAllPendingLoads()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("remove of unknown key must panic")
		}
		if _, ok := r.(*errors.CacheError); !ok {
			t.Fatalf("panic value is %T, want *errors.CacheError", r)
		}
	}()
	a.remove(LoadKey(99))
}

func TestByKeyUnknown(t *testing.T) {
	a := newAllPendingLoads()
	if _, ok := a.byKey(LoadKey(1)); ok {
		t.Error("empty index should not resolve any key")
	}
	if _, ok := a.byURL("u1"); ok {
		t.Error("empty index should not resolve any url")
	}
}

// recordingHandler swallows reported errors during panic tests.
type recordingHandler struct{}

func (recordingHandler) HandleError(*errors.CacheError) {}
func (recordingHandler) HandlePanic(*errors.PanicError) {}
