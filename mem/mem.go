// Package mem exposes the handful of physical-memory primitives the
// core subsystems are built on top of. The physical frame allocator,
// page tables, and TLB are out of scope for this kernel's core (they
// belong to the boot/paging bring-up layer); this package gives them a
// narrow, named surface so vm and s5fs can be written and read against
// a stable contract without re-implementing an allocator.
package mem

// Pa_t is a physical address.
type Pa_t uintptr

// Page is one physical page's worth of bytes, addressable by the
// kernel through its identity/high-half mapping.
type Page [PGSIZE]byte

const (
	PGSHIFT = 12
	PGSIZE  = 1 << PGSHIFT
)

// Allocator is the physical-frame allocator the rest of the kernel
// consumes. A production kernel backs this with a freelist carved out
// of the memory map the boot loader hands to kernel main; tests back it
// with a plain Go slice arena.
type Allocator interface {
	// PageAlloc returns a zeroed physical frame and its kernel-virtual
	// address, or ok=false if physical memory is exhausted.
	PageAlloc() (pa Pa_t, kva *Page, ok bool)
	// PageFree releases a frame obtained from PageAlloc.
	PageFree(pa Pa_t)
	// KVA returns the kernel-virtual address backing a physical frame
	// previously returned by PageAlloc (the kernel runs direct-mapped).
	KVA(pa Pa_t) *Page
}

// TLBFlusher abstracts the shootdown primitive invariant (4) in the
// concurrency model requires after narrowing or removing any PTE.
type TLBFlusher interface {
	FlushRange(startPage, nPages uintptr)
	FlushAll()
}
