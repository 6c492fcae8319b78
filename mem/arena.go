package mem

import "sync"

// Arena is a freelist-backed Allocator over a fixed-size backing slice,
// standing in for the bump/freelist physical allocator a real boot
// sequence would build from the multiboot memory map. It's sufficient
// for driving the vm and s5fs packages in tests without real hardware.
type Arena struct {
	mu    sync.Mutex
	pages []Page
	free  []Pa_t
}

// NewArena carves n physical frames out of a Go-managed backing array.
func NewArena(n int) *Arena {
	a := &Arena{pages: make([]Page, n)}
	a.free = make([]Pa_t, n)
	for i := 0; i < n; i++ {
		a.free[i] = Pa_t(i + 1)
	}
	return a
}

func (a *Arena) PageAlloc() (Pa_t, *Page, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.free) == 0 {
		return 0, nil, false
	}
	pa := a.free[len(a.free)-1]
	a.free = a.free[:len(a.free)-1]
	kva := &a.pages[pa-1]
	*kva = Page{}
	return pa, kva, true
}

func (a *Arena) PageFree(pa Pa_t) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.free = append(a.free, pa)
}

func (a *Arena) KVA(pa Pa_t) *Page {
	if pa == 0 {
		return nil
	}
	return &a.pages[pa-1]
}

// NopFlusher satisfies TLBFlusher for environments (tests, the page
// cache's own unit tests) that don't model a real TLB.
type NopFlusher struct{}

func (NopFlusher) FlushRange(uintptr, uintptr) {}
func (NopFlusher) FlushAll()                   {}
