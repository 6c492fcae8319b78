package vm

import "goweenix/defs"

// Vmarea is one mapped region of a process's address space: a run of
// contiguous pages all backed by the same Mmobj at a constant offset,
// sharing one protection and one set of mapping flags. vmmap never
// merges or splits a Vmarea except where do_mmap/do_munmap explicitly
// ask it to.
type Vmarea struct {
	Start  uintptr // first page number covered, inclusive
	Npages uintptr
	Off    uintptr // page offset into Obj where Start maps

	Obj   Mmobj
	Prot  int // PROT_* bits
	Flags int // MAP_SHARED or MAP_PRIVATE, plus MAP_FIXED/MAP_ANON as requested

	Onto VnodeBacking // non-nil only for a file-backed mapping, for lazy re-open on fork
}

// End is the first page number past the area, exclusive.
func (v *Vmarea) End() uintptr { return v.Start + v.Npages }

// Contains reports whether page pn falls within this area.
func (v *Vmarea) Contains(pn uintptr) bool {
	return pn >= v.Start && pn < v.End()
}

// Offset returns the page offset into v.Obj that backs page pn. Callers
// must have already checked Contains.
func (v *Vmarea) Offset(pn uintptr) uintptr {
	return v.Off + (pn - v.Start)
}

// clone produces a private copy of the area for fork, replacing Obj
// with a caller-supplied substitute (a fresh shadow for a MAP_PRIVATE
// area, the same shared object for a MAP_SHARED one).
func (v *Vmarea) clone(obj Mmobj) *Vmarea {
	c := *v
	c.Obj = obj
	return &c
}

func checkProt(prot int) defs.Err_t {
	if prot&^(defs.PROT_READ|defs.PROT_WRITE|defs.PROT_EXEC) != 0 {
		return -defs.EINVAL
	}
	return 0
}
