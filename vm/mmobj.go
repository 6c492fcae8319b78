package vm

import (
	"sync"
	"sync/atomic"

	"goweenix/defs"
	"goweenix/mem"
)

// Mmobj is a polymorphic source of pages, identified in the page cache
// by (object, page-number) keys. Every variant below implements the
// same small operation vector; dispatch is data-driven rather than
// inheritance-based, matching the rest of this kernel's capability-
// record style.
type Mmobj interface {
	// FillPage populates a freshly allocated, still-busy frame for one
	// of this object's pages. Called by the page cache on a miss.
	FillPage(f *Pframe) defs.Err_t
	// CleanPage writes a dirty frame back to this object's backing
	// store, if it has one.
	CleanPage(f *Pframe) defs.Err_t
	// DirtyPage lets the object reserve backing store ahead of a write,
	// e.g. allocating a block for a sparse file region.
	DirtyPage(pageno uintptr) defs.Err_t
	// Shadowed returns the object this one overlays, or nil if this is
	// a bottom object (anonymous, block-device, or vnode-backed).
	Shadowed() Mmobj
	// Ref and Unref maintain the object's reference count. Unref
	// reports whether this call dropped the count to zero.
	Ref()
	Unref() bool
}

// refcount is embedded by every Mmobj variant to provide the shared
// reference-counting behavior.
type refcount struct {
	n int32
}

func (r *refcount) Ref() { atomic.AddInt32(&r.n, 1) }

func (r *refcount) Unref() bool {
	return atomic.AddInt32(&r.n, -1) == 0
}

// DropRef releases one reference to o and, if that was the last one,
// reclaims its resident pages and recurses down the shadow chain (or
// runs whatever other teardown the variant needs, via onZero). Every
// caller that holds an Mmobj reference -- vmmap_remove, munmap, fork
// cleanup, process exit -- drops it through here instead of calling
// Unref directly, so the chain never leaks the objects beneath it.
func DropRef(pc *PageCache, o Mmobj) {
	if !o.Unref() {
		return
	}
	pc.Evict(o)
	if z, ok := o.(interface{ onZero() }); ok {
		z.onZero()
	}
	if below := o.Shadowed(); below != nil {
		DropRef(pc, below)
	}
}

// AnonObj is a zero-filled, backless memory object. It is always a
// bottom object: nothing is ever shadowed below an anonymous mapping.
type AnonObj struct {
	refcount
}

func NewAnonObj() *AnonObj { return &AnonObj{refcount: refcount{n: 1}} }

func (a *AnonObj) FillPage(f *Pframe) defs.Err_t {
	*f.kva = mem.Page{}
	return 0
}

func (a *AnonObj) CleanPage(f *Pframe) defs.Err_t      { return 0 }
func (a *AnonObj) DirtyPage(pageno uintptr) defs.Err_t { return 0 }
func (a *AnonObj) Shadowed() Mmobj                     { return nil }

// ShadowObj overlays a shadowed object with locally made copies. Pages
// present in a shadow mask the same page from every object below it;
// the chain is a finite, acyclic sequence ending at one non-shadow
// bottom object by construction, since a shadow only ever points down
// to the object it was created in front of.
type ShadowObj struct {
	refcount
	mu       sync.Mutex
	shadowed Mmobj
	pc       *PageCache
}

// NewShadowObj interposes a fresh shadow in front of shadowed, taking
// the one reference on shadowed that the new shadow needs to keep it
// alive for as long as this shadow exists.
func NewShadowObj(pc *PageCache, shadowed Mmobj) *ShadowObj {
	shadowed.Ref()
	return &ShadowObj{refcount: refcount{n: 1}, shadowed: shadowed, pc: pc}
}

func (s *ShadowObj) Shadowed() Mmobj { return s.shadowed }

// FillPage materializes this shadow's own copy of a page it doesn't
// have resident yet, by walking the chain below it: the first resident
// hit, or the bottom object filled fresh, supplies the source bytes.
func (s *ShadowObj) FillPage(f *Pframe) defs.Err_t {
	src, err := s.pc.chainLookup(s.shadowed, f.Pageno)
	if err != 0 {
		return err
	}
	*f.kva = *src.kva
	return 0
}

// CleanPage is a no-op: a shadow's modified pages stay resident for the
// life of the mapping and are never written to any backing store.
func (s *ShadowObj) CleanPage(f *Pframe) defs.Err_t      { return 0 }
func (s *ShadowObj) DirtyPage(pageno uintptr) defs.Err_t { return 0 }
