package vm

import (
	"goweenix/defs"
	"goweenix/mem"
)

// VnodeBacking is the narrow slice of a vnode's operation vector a
// VnodeObj needs: page-cache fill/dirty/clean delegated through the
// owning file system. Kept separate from the full vnode type so this
// package never has to import the vfs package -- the dependency runs
// the other way, with the vfs layer's Vnode implementing this
// interface and handing itself to NewVnodeObj.
type VnodeBacking interface {
	FillPage(offset int, f *Pframe) defs.Err_t
	DirtyPage(offset int) defs.Err_t
	CleanPage(offset int, f *Pframe) defs.Err_t
	// Release is called once, when the object's last reference drops,
	// so the file system can release whatever it ties to the object.
	Release()
	// Mmobj returns the vnode's single, cached page-cache object. Every
	// mapper of the same vnode resolves to this same object, so they
	// all key into the page cache identically -- a second mmap of an
	// already-mapped file must never mint a second wrapper.
	Mmobj() Mmobj
}

// VnodeObj is the page-cache handle for a regular file's contents.
// fillpage/cleanpage/dirtypage all delegate to the file system through
// the vnode; this object itself holds no file-system-specific state.
type VnodeObj struct {
	refcount
	vn VnodeBacking
}

func NewVnodeObj(vn VnodeBacking) *VnodeObj {
	return &VnodeObj{refcount: refcount{n: 1}, vn: vn}
}

func (v *VnodeObj) FillPage(f *Pframe) defs.Err_t {
	return v.vn.FillPage(int(f.Pageno)*mem.PGSIZE, f)
}

func (v *VnodeObj) CleanPage(f *Pframe) defs.Err_t {
	return v.vn.CleanPage(int(f.Pageno)*mem.PGSIZE, f)
}

func (v *VnodeObj) DirtyPage(pageno uintptr) defs.Err_t {
	return v.vn.DirtyPage(int(pageno) * mem.PGSIZE)
}

func (v *VnodeObj) Shadowed() Mmobj { return nil }

func (v *VnodeObj) onZero() { v.vn.Release() }
