package qsys

import (
	"reflect"
	"sync"
	"testing"
)

func TestRegistryGetOrCreate(t *testing.T) {
	var r Registry[string, int]
	calls := 0
	create := func() int { calls++; return calls * 10 }

	v, created := r.GetOrCreate("a", create)
	if !created || v != 10 {
		t.Fatalf("first GetOrCreate() = (%d, %v), want (10, true)", v, created)
	}
	v, created = r.GetOrCreate("a", create)
	if created || v != 10 {
		t.Errorf("second GetOrCreate() = (%d, %v), want (10, false)", v, created)
	}
	if calls != 1 {
		t.Errorf("create called %d times, want 1", calls)
	}
}

func TestRegistrySnapshotsKeepInsertionOrder(t *testing.T) {
	var r Registry[string, int]
	for i, k := range []string{"c", "a", "b"} {
		r.Set(k, i)
	}

	if got, want := r.Keys(), []string{"c", "a", "b"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Keys() = %v, want %v", got, want)
	}
	if got, want := r.Values(), []int{0, 1, 2}; !reflect.DeepEqual(got, want) {
		t.Errorf("Values() = %v, want %v", got, want)
	}

	// Snapshots are copies.
	keys := r.Keys()
	keys[0] = "z"
	if r.Keys()[0] != "c" {
		t.Error("Keys() returned a live view")
	}
}

func TestRegistrySetAndDelete(t *testing.T) {
	var r Registry[string, int]

	if _, replaced := r.Set("a", 1); replaced {
		t.Error("Set() on empty registry reported replace")
	}
	prev, replaced := r.Set("a", 2)
	if !replaced || prev != 1 {
		t.Errorf("Set() = (%d, %v), want (1, true)", prev, replaced)
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}

	r.Set("b", 3)
	v, ok := r.Delete("a")
	if !ok || v != 2 {
		t.Errorf("Delete() = (%d, %v), want (2, true)", v, ok)
	}
	if _, ok := r.Delete("a"); ok {
		t.Error("second Delete() = true")
	}
	if got := r.Keys(); !reflect.DeepEqual(got, []string{"b"}) {
		t.Errorf("Keys() after delete = %v", got)
	}
}

func TestRegistryConcurrentGetOrCreate(t *testing.T) {
	var r Registry[int, *int]
	var wg sync.WaitGroup
	results := make([]*int, 50)

	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = r.GetOrCreate(1, func() *int { v := i; return &v })
		}(i)
	}
	wg.Wait()

	for i, p := range results {
		if p != results[0] {
			t.Fatalf("result %d differs: concurrent GetOrCreate created twice", i)
		}
	}
}
