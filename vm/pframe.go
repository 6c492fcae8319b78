package vm

import (
	"sync"

	"goweenix/defs"
	"goweenix/mem"
)

// Pframe is one physical page resident in the page cache, keyed by the
// (memory object, page number) pair that owns it. At most one Pframe
// exists per key at a time.
type Pframe struct {
	mu sync.Mutex

	Obj    Mmobj
	Pageno uintptr

	pa  mem.Pa_t
	kva *mem.Page

	pins  int
	dirty bool
	busy  bool
	cond  *sync.Cond
}

// Addr returns the kernel-virtual address of the frame's backing page.
// Callers must hold a pin or otherwise know the frame cannot be evicted
// concurrently.
func (f *Pframe) Addr() *mem.Page { return f.kva }

// PA returns the frame's physical address, e.g. for installing a PTE.
func (f *Pframe) PA() mem.Pa_t { return f.pa }

func (f *Pframe) waitUntilReady() {
	f.mu.Lock()
	for f.busy {
		f.cond.Wait()
	}
	f.mu.Unlock()
}

type pframeKey struct {
	obj    Mmobj
	pageno uintptr
}

// PageCache is the single, globally-serialized cache of resident
// frames. Lookup and the transient busy state of a frame are protected
// by one lock; a fill in progress drops that lock and blocks concurrent
// lookups on the frame's own busy flag instead of on the whole cache.
type PageCache struct {
	mu     sync.Mutex
	frames map[pframeKey]*Pframe
	alloc  mem.Allocator
}

func NewPageCache(alloc mem.Allocator) *PageCache {
	return &PageCache{
		frames: make(map[pframeKey]*Pframe),
		alloc:  alloc,
	}
}

// Peek returns the resident frame for (obj, pageno) without filling on
// a miss -- the "lookuppage" operation used by shadow-chain traversal.
func (pc *PageCache) Peek(obj Mmobj, pageno uintptr) (*Pframe, bool) {
	pc.mu.Lock()
	f, ok := pc.frames[pframeKey{obj, pageno}]
	pc.mu.Unlock()
	if !ok {
		return nil, false
	}
	f.waitUntilReady()
	return f, true
}

// Get returns the resident frame for (obj, pageno), allocating and
// populating it via obj.FillPage on a miss. At most one fill per key is
// ever in flight; concurrent callers on a missing key block on the new
// frame's busy flag rather than on the cache lock.
func (pc *PageCache) Get(obj Mmobj, pageno uintptr) (*Pframe, defs.Err_t) {
	pc.mu.Lock()
	key := pframeKey{obj, pageno}
	if f, ok := pc.frames[key]; ok {
		pc.mu.Unlock()
		f.waitUntilReady()
		return f, 0
	}

	pa, kva, ok := pc.alloc.PageAlloc()
	if !ok {
		pc.mu.Unlock()
		return nil, -defs.ENOMEM
	}
	f := &Pframe{Obj: obj, Pageno: pageno, pa: pa, kva: kva, busy: true}
	f.cond = sync.NewCond(&f.mu)
	pc.frames[key] = f
	pc.mu.Unlock()

	err := obj.FillPage(f)

	f.mu.Lock()
	f.busy = false
	f.cond.Broadcast()
	f.mu.Unlock()

	if err != 0 {
		pc.mu.Lock()
		delete(pc.frames, key)
		pc.mu.Unlock()
		pc.alloc.PageFree(pa)
		return nil, err
	}
	return f, 0
}

// Pin prevents a frame from being evicted; pins are counted and stack.
func (pc *PageCache) Pin(f *Pframe) {
	f.mu.Lock()
	f.pins++
	f.mu.Unlock()
}

// Unpin reverses a Pin. A frame reaching pins == 0 becomes eligible for
// reclaim once clean.
func (pc *PageCache) Unpin(f *Pframe) {
	f.mu.Lock()
	if f.pins == 0 {
		panic("unpin of unpinned frame")
	}
	f.pins--
	f.mu.Unlock()
}

// Dirty marks the frame dirty and lets the owning object reserve
// backing store for it, e.g. allocate a disk block for a sparse file
// region.
func (pc *PageCache) Dirty(f *Pframe) defs.Err_t {
	f.mu.Lock()
	already := f.dirty
	f.mu.Unlock()
	if already {
		return 0
	}
	if err := f.Obj.DirtyPage(f.Pageno); err != 0 {
		return err
	}
	f.mu.Lock()
	f.dirty = true
	f.mu.Unlock()
	return 0
}

// Clean writes a dirty frame back through its owning object and clears
// the dirty bit. A no-op on an already-clean frame.
func (pc *PageCache) Clean(f *Pframe) defs.Err_t {
	f.mu.Lock()
	if !f.dirty {
		f.mu.Unlock()
		return 0
	}
	f.mu.Unlock()
	if err := f.Obj.CleanPage(f); err != 0 {
		return err
	}
	f.mu.Lock()
	f.dirty = false
	f.mu.Unlock()
	return 0
}

// Evict reclaims every unpinned, clean frame belonging to obj, e.g.
// when the object's last reference drops. Dirty frames are cleaned
// first so no modification is silently lost.
func (pc *PageCache) Evict(obj Mmobj) {
	pc.mu.Lock()
	var victims []pframeKey
	for k, f := range pc.frames {
		if k.obj == obj {
			victims = append(victims, k)
			_ = f
		}
	}
	pc.mu.Unlock()

	for _, k := range victims {
		pc.mu.Lock()
		f, ok := pc.frames[k]
		if !ok {
			pc.mu.Unlock()
			continue
		}
		pc.mu.Unlock()

		f.waitUntilReady()
		pc.Clean(f)

		pc.mu.Lock()
		f.mu.Lock()
		evictable := f.pins == 0
		f.mu.Unlock()
		if evictable {
			delete(pc.frames, k)
		}
		pc.mu.Unlock()
		if evictable {
			pc.alloc.PageFree(f.pa)
		}
	}
}

// chainLookup walks obj -> obj.Shadowed() -> ... looking for an
// existing resident frame, stopping at the first hit. If none of the
// shadows has a resident page yet the bottom object is filled (reading
// from its backing store, or zeroing for an anonymous bottom) and that
// frame is returned. The frame from the bottom is effectively shared
// and must be treated as read-only by callers.
func (pc *PageCache) chainLookup(obj Mmobj, pageno uintptr) (*Pframe, defs.Err_t) {
	for o := obj; o != nil; o = o.Shadowed() {
		if f, ok := pc.Peek(o, pageno); ok {
			return f, 0
		}
	}
	bottom := obj
	for bottom.Shadowed() != nil {
		bottom = bottom.Shadowed()
	}
	return pc.Get(bottom, pageno)
}
