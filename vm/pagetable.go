package vm

import (
	"sync"

	"goweenix/defs"
)

// PageTable is a software stand-in for the hardware page directory:
// paging bring-up, the real PTE format, and TLB invalidation are named
// primitives out of scope for this core (see mem.Allocator), so the
// fault handler and fork talk to whichever MapTarget a process installs
// rather than to CR3 directly. PageTable is the one HandleFault and
// do_fork exercise: a page number maps to the physical address and
// protection last installed there.
type PageTable struct {
	mu  sync.Mutex
	ptes map[uintptr]pte
}

type pte struct {
	pa   uintptr
	prot int
}

func NewPageTable() *PageTable {
	return &PageTable{ptes: make(map[uintptr]pte)}
}

func (pt *PageTable) Install(pn uintptr, pa uintptr, prot int) defs.Err_t {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	pt.ptes[pn] = pte{pa: pa, prot: prot}
	return 0
}

func (pt *PageTable) Lookup(pn uintptr) (pa uintptr, prot int, ok bool) {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	e, ok := pt.ptes[pn]
	return e.pa, e.prot, ok
}

// Unmap removes every PTE in [pn, pn+npages), the software equivalent
// of the unmap-then-shootdown step do_fork and do_munmap both require.
func (pt *PageTable) Unmap(pn uintptr, npages uintptr) {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	for i := uintptr(0); i < npages; i++ {
		delete(pt.ptes, pn+i)
	}
}

// Flush is a no-op here; a real pmap would invalidate the hardware TLB
// entry for pn. Kept as a named call site so HandleFault's shootdown
// requirement has somewhere concrete to land.
func (pt *PageTable) Flush(pn uintptr) {}

// Reset drops every PTE at once, the software equivalent of the
// unmap-parent's-user-mappings step fork takes before installing fresh
// shadow objects: every subsequent access refaults and resolves through
// whatever the fault handler finds mapped now.
func (pt *PageTable) Reset() {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	pt.ptes = make(map[uintptr]pte)
}

var _ MapTarget = (*PageTable)(nil)
