package hashtable

import (
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
)

func fill(t *testing.T, ht *Hashtable_t, n int) {
	for i := 0; i < n; i++ {
		k := strconv.Itoa(i)
		ht.Set(k, i)
		v, ok := ht.Get(k)
		if !ok {
			t.Fatalf("%v key", k)
		}
		if v != i {
			t.Fatalf("%v val", k)
		}
	}
}

const sz = 10

func TestSimple(t *testing.T) {
	ht := MkHash(sz)
	fill(t, ht, 3*sz)

	for i := 1; i < 3*sz; i++ {
		k0 := strconv.Itoa(0)
		k := strconv.Itoa(i)
		ht.Del(k)

		v, ok := ht.Get(k0)
		if !ok || v != 0 {
			t.Fatalf("%v lost after deletion of %v", k0, k)
		}
		if _, ok := ht.Get(k); ok {
			t.Fatalf("%v still present after Del", k)
		}
	}
}

func TestOverwrite(t *testing.T) {
	ht := MkHash(sz)
	ht.Set("a", 1)
	ht.Set("a", 2)
	v, ok := ht.Get("a")
	if !ok || v != 2 {
		t.Fatalf("overwrite lost: %v %v", v, ok)
	}
}

func TestIter(t *testing.T) {
	ht := MkHash(sz)
	fill(t, ht, 3*sz)

	seen := map[string]bool{}
	ht.Iter(func(k, v interface{}) bool {
		seen[k.(string)] = true
		return true
	})
	if len(seen) != 3*sz {
		t.Fatalf("Iter saw %d keys, want %d", len(seen), 3*sz)
	}
}

const nproc = 4

func TestConcurrentReadWrite(t *testing.T) {
	ht := MkHash(sz)
	fill(t, ht, sz)

	var wg sync.WaitGroup
	var done int32
	for p := 0; p < nproc; p++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for atomic.LoadInt32(&done) == 0 {
				k := strconv.Itoa(id)
				ht.Set(k, id)
				if v, ok := ht.Get(k); !ok || v != id {
					t.Errorf("writer %d: got %v, %v", id, v, ok)
					return
				}
			}
		}(p)
	}
	atomic.StoreInt32(&done, 1)
	wg.Wait()
}
