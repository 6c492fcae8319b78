package vm

import "goweenix/defs"

// DoMmap implements the mmap(2) syscall body: validate the request,
// pick or check the target range, build the right kind of Mmobj for
// the mapping, and install it in the address space. addr is a hint
// (ignored unless MAP_FIXED is set); len and off are in bytes.
func DoMmap(m *Vmmap, pc *PageCache, addr, length uintptr, prot, flags int, onto VnodeBacking, off uintptr) (uintptr, defs.Err_t) {
	if length == 0 ||
		addr&defs.PGOFFSET != 0 || length&defs.PGOFFSET != 0 || off&defs.PGOFFSET != 0 {
		return 0, -defs.EINVAL
	}
	if flags&(defs.MAP_SHARED|defs.MAP_PRIVATE) == 0 ||
		flags&defs.MAP_SHARED != 0 && flags&defs.MAP_PRIVATE != 0 {
		return 0, -defs.EINVAL
	}
	if addr != 0 && (addr < defs.USER_LOW || addr+length > defs.USER_HIGH) {
		return 0, -defs.EINVAL
	}

	npages := (length + defs.PGSIZE - 1) >> defs.PGSHIFT
	startPage := addr >> defs.PGSHIFT
	pageOff := off >> defs.PGSHIFT

	// Construct the bottom object: the vnode's own single cached mmobj,
	// ref'd once more for this mapping's citation, or a fresh anonymous
	// object for a MAP_ANON request. MAP_PRIVATE then interposes a
	// shadow in front of it, so a private write never reaches the
	// vnode's (or another mapper's) object directly; the ref the shadow
	// takes on its way in replaces the one just taken above.
	var base Mmobj
	if onto != nil {
		base = onto.Mmobj()
		base.Ref()
	} else {
		base = NewAnonObj()
	}

	obj := base
	if flags&defs.MAP_PRIVATE != 0 {
		obj = NewShadowObj(pc, base)
		DropRef(pc, base)
	}

	pn, err := m.Map(startPage, npages, pageOff, obj, prot, flags, onto)
	if err != 0 {
		DropRef(pc, obj)
		return 0, err
	}
	return pn << defs.PGSHIFT, 0
}

// DoMunmap implements the munmap(2) syscall body.
func DoMunmap(m *Vmmap, addr, length uintptr) defs.Err_t {
	if length == 0 || addr&defs.PGOFFSET != 0 {
		return -defs.EINVAL
	}
	npages := (length + defs.PGSIZE - 1) >> defs.PGSHIFT
	m.Remove(addr>>defs.PGSHIFT, npages)
	return 0
}
