package vm

import "goweenix/defs"

// FaultKind distinguishes why the page-fault handler was invoked, since
// a missing mapping and a present-but-read-only mapping written to
// require entirely different handling.
type FaultKind int

const (
	FaultPresent FaultKind = iota // PTE exists but write permission is missing (COW)
	FaultMissing                  // no PTE at all
)

// MapTarget is the narrow slice of page-table manipulation the fault
// handler needs. A real kernel's pmap code implements this; tests can
// fake it with a plain map.
type MapTarget interface {
	// Install maps page pn to physical address pa with the given
	// protection, replacing any existing mapping.
	Install(pn uintptr, pa uintptr, prot int) defs.Err_t
	// Flush invalidates any stale TLB entry for page pn.
	Flush(pn uintptr)
}

// HandleFault resolves a single page fault at virtual page pn;
// wantWrite is true when the faulting access was a write.
//
// A missing-mapping fault on a readable area just pulls the page into
// the cache and maps it read-only (or read-write, for a non-COW area)
// via the normal chain lookup. A write fault on a MAP_PRIVATE area is
// where copy-on-write actually happens: the top object gets its own
// private copy of the page, pulled from wherever in the chain below it
// the page currently lives, and every subsequent write lands directly
// in that copy without faulting again.
func HandleFault(pc *PageCache, mt MapTarget, vma *Vmarea, pn uintptr, wantWrite bool) defs.Err_t {
	if wantWrite && vma.Prot&defs.PROT_WRITE == 0 {
		return -defs.EFAULT
	}
	if !vma.Contains(pn) {
		return -defs.EFAULT
	}

	objPage := vma.Offset(pn)

	if wantWrite && vma.Flags&defs.MAP_PRIVATE != 0 {
		return copyOnWrite(pc, mt, vma, pn, objPage)
	}

	f, err := pc.chainLookup(vma.Obj, objPage)
	if err != 0 {
		return err
	}
	pc.Pin(f)
	defer pc.Unpin(f)

	prot := vma.Prot
	if vma.Flags&defs.MAP_PRIVATE != 0 {
		prot &^= defs.PROT_WRITE
	}
	if ierr := mt.Install(pn, uintptr(f.PA()), prot); ierr != 0 {
		return ierr
	}
	mt.Flush(pn)
	return 0
}

// copyOnWrite handles a write fault on a private area: it materializes
// the top shadow's own copy of the page (via the object's own FillPage,
// which for a ShadowObj walks the chain below it) and maps that copy
// read-write. Once installed, further writes to this page never fault
// again -- the page is no longer shared with anything below vma.Obj.
func copyOnWrite(pc *PageCache, mt MapTarget, vma *Vmarea, pn, objPage uintptr) defs.Err_t {
	f, err := pc.Get(vma.Obj, objPage)
	if err != 0 {
		return err
	}
	pc.Pin(f)
	defer pc.Unpin(f)

	if derr := pc.Dirty(f); derr != 0 {
		return derr
	}
	if ierr := mt.Install(pn, uintptr(f.PA()), vma.Prot); ierr != 0 {
		return ierr
	}
	mt.Flush(pn)
	return 0
}
