package catalog

import (
	"sync"
	"testing"

	"github.com/RainOrigami/ModIoManager/modio"
)

func TestCacheGetOrInsertKeepsFirstRecord(t *testing.T) {
	cache := NewCache()

	first := &modio.Mod{ID: 1, Name: "Original"}
	second := &modio.Mod{ID: 1, Name: "Duplicate"}

	if got := cache.GetOrInsert(first); got != first {
		t.Error("Expected insert to return the inserted record")
	}
	if got := cache.GetOrInsert(second); got != first {
		t.Error("Expected a later insert for the same id to return the existing record")
	}

	cached, ok := cache.Get(1)
	if !ok || cached.Name != "Original" {
		t.Errorf("Expected the first record to stay canonical, got %+v", cached)
	}
}

func TestCacheMissingPreservesOrder(t *testing.T) {
	cache := NewCache()
	cache.GetOrInsert(&modio.Mod{ID: 2})
	cache.GetOrInsert(&modio.Mod{ID: 4})

	missing := cache.Missing([]int{5, 4, 3, 2, 1})
	want := []int{5, 3, 1}
	if len(missing) != len(want) {
		t.Fatalf("Expected %v, got %v", want, missing)
	}
	for i := range want {
		if missing[i] != want[i] {
			t.Fatalf("Expected %v, got %v", want, missing)
		}
	}
}

func TestCacheApplyLocalState(t *testing.T) {
	cache := NewCache()
	mod := cache.GetOrInsert(&modio.Mod{ID: 7})

	cache.ApplyLocalState(7, 4711, true)
	if mod.LocalVersion != 4711 || !mod.LocalBroken {
		t.Errorf("Expected local state to be applied, got version=%d broken=%v", mod.LocalVersion, mod.LocalBroken)
	}

	// Unknown ids are ignored.
	cache.ApplyLocalState(99, 1, false)
	if cache.Has(99) {
		t.Error("Expected ApplyLocalState not to create records")
	}
}

func TestCacheAllReturnsCanonicalRecords(t *testing.T) {
	cache := NewCache()
	inserted := map[int]*modio.Mod{
		1: cache.GetOrInsert(&modio.Mod{ID: 1}),
		2: cache.GetOrInsert(&modio.Mod{ID: 2}),
		3: cache.GetOrInsert(&modio.Mod{ID: 3}),
	}

	all := cache.All()
	if len(all) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(all))
	}
	for _, mod := range all {
		if inserted[mod.ID] != mod {
			t.Errorf("Expected record %d to be the shared canonical instance", mod.ID)
		}
	}

	// The returned slice is a snapshot; mutating it must not affect the cache.
	all[0] = nil
	if cache.Len() != 3 {
		t.Errorf("Expected the cache to be unaffected, got %d records", cache.Len())
	}
}

func TestCacheConcurrentInsertConverges(t *testing.T) {
	cache := NewCache()

	var wg sync.WaitGroup
	results := make([]*modio.Mod, 16)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = cache.GetOrInsert(&modio.Mod{ID: 1})
		}()
	}
	wg.Wait()

	if cache.Len() != 1 {
		t.Fatalf("Expected a single record, got %d", cache.Len())
	}
	for _, mod := range results {
		if mod != results[0] {
			t.Fatal("Expected all writers to converge on one canonical record")
		}
	}
}
