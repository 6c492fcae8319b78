package vm

import (
	"testing"

	"goweenix/defs"
	"goweenix/mem"
)

// fakeVnode stands in for a fs.Vnode in these tests: a single backing
// byte buffer, plus a cached mmobj so every mapper resolves to the
// same object the way fs.Vnode.Mmobj does.
type fakeVnode struct {
	data   [mem.PGSIZE]uint8
	dirtys int
	mm     Mmobj
}

func (v *fakeVnode) FillPage(off int, f *Pframe) defs.Err_t {
	*f.Addr() = v.data
	return 0
}

func (v *fakeVnode) CleanPage(off int, f *Pframe) defs.Err_t {
	v.data = *f.Addr()
	return 0
}

func (v *fakeVnode) DirtyPage(off int) defs.Err_t {
	v.dirtys++
	return 0
}

func (v *fakeVnode) Release() {}

func (v *fakeVnode) Mmobj() Mmobj {
	if v.mm == nil {
		v.mm = NewVnodeObj(v)
	}
	return v.mm
}

func newMmapFixture() (*PageCache, *Vmmap) {
	pc := NewPageCache(mem.NewArena(64))
	m := NewVmmap(pc, defs.USER_LOW_PAGE, defs.USER_HIGH_PAGE)
	return pc, m
}

func TestDoMmapRejectsUnalignedLength(t *testing.T) {
	pc, m := newMmapFixture()
	_, err := DoMmap(m, pc, 0, 1, defs.PROT_READ, defs.MAP_SHARED|defs.MAP_ANON, nil, 0)
	if err != -defs.EINVAL {
		t.Fatalf("DoMmap(len=1) = %v, want EINVAL", err)
	}
}

func TestDoMmapRejectsOutOfRangeAddr(t *testing.T) {
	pc, m := newMmapFixture()
	addr := uintptr(defs.USER_HIGH) - defs.PGSIZE + 1
	_, err := DoMmap(m, pc, addr, defs.PGSIZE, defs.PROT_READ, defs.MAP_SHARED|defs.MAP_ANON|defs.MAP_FIXED, nil, 0)
	if err != -defs.EINVAL {
		t.Fatalf("DoMmap(addr=%#x) = %v, want EINVAL", addr, err)
	}
}

func TestDoMmapRejectsSharedAndPrivateTogether(t *testing.T) {
	pc, m := newMmapFixture()
	_, err := DoMmap(m, pc, 0, defs.PGSIZE, defs.PROT_READ, defs.MAP_SHARED|defs.MAP_PRIVATE|defs.MAP_ANON, nil, 0)
	if err != -defs.EINVAL {
		t.Fatalf("DoMmap(SHARED|PRIVATE) = %v, want EINVAL", err)
	}
}

func TestDoMmapSharedMappingReusesVnodeObj(t *testing.T) {
	pc, m := newMmapFixture()
	vn := &fakeVnode{}

	a1, err := DoMmap(m, pc, 0, defs.PGSIZE, defs.PROT_READ|defs.PROT_WRITE, defs.MAP_SHARED, vn, 0)
	if err != 0 {
		t.Fatalf("first mmap: %v", err)
	}
	a2, err := DoMmap(m, pc, 0, defs.PGSIZE, defs.PROT_READ|defs.PROT_WRITE, defs.MAP_SHARED, vn, 0)
	if err != 0 {
		t.Fatalf("second mmap: %v", err)
	}

	v1, ok := m.Lookup(a1 >> defs.PGSHIFT)
	if !ok {
		t.Fatalf("lookup first mapping failed")
	}
	v2, ok := m.Lookup(a2 >> defs.PGSHIFT)
	if !ok {
		t.Fatalf("lookup second mapping failed")
	}

	if v1.Obj != v2.Obj {
		t.Fatalf("two MAP_SHARED mappers of the same vnode got distinct objects: %p vs %p", v1.Obj, v2.Obj)
	}
	if v1.Obj != vn.Mmobj() {
		t.Fatalf("shared mapping built a fresh object instead of reusing vn.Mmobj()")
	}
}

func TestDoMmapPrivateMappingInterposesShadow(t *testing.T) {
	pc, m := newMmapFixture()
	vn := &fakeVnode{}

	addr, err := DoMmap(m, pc, 0, defs.PGSIZE, defs.PROT_READ|defs.PROT_WRITE, defs.MAP_PRIVATE, vn, 0)
	if err != 0 {
		t.Fatalf("mmap: %v", err)
	}
	vma, ok := m.Lookup(addr >> defs.PGSHIFT)
	if !ok {
		t.Fatalf("lookup failed")
	}

	shadow, ok := vma.Obj.(*ShadowObj)
	if !ok {
		t.Fatalf("MAP_PRIVATE vma.Obj = %T, want *ShadowObj", vma.Obj)
	}
	if shadow.Shadowed() != vn.Mmobj() {
		t.Fatalf("shadow does not overlay the vnode's own mmobj")
	}
}

func TestPrivateWriteFaultDoesNotDirtyVnode(t *testing.T) {
	pc, m := newMmapFixture()
	vn := &fakeVnode{}

	addr, err := DoMmap(m, pc, 0, defs.PGSIZE, defs.PROT_READ|defs.PROT_WRITE, defs.MAP_PRIVATE, vn, 0)
	if err != 0 {
		t.Fatalf("mmap: %v", err)
	}
	pn := addr >> defs.PGSHIFT
	vma, ok := m.Lookup(pn)
	if !ok {
		t.Fatalf("lookup failed")
	}

	mt := NewPageTable()
	if err := HandleFault(pc, mt, vma, pn, true); err != 0 {
		t.Fatalf("HandleFault: %v", err)
	}

	if vn.dirtys != 0 {
		t.Fatalf("private write fault dirtied the underlying vnode %d times, want 0", vn.dirtys)
	}
}
