package fs

import (
	"sync"

	"goweenix/defs"
	"goweenix/fdops"
	"goweenix/stat"
)

const (
	FMODE_READ   = 0x1
	FMODE_WRITE  = 0x2
	FMODE_APPEND = 0x4
)

// OpenFile is an open-file description: shared between descriptors
// created by dup and across fork, unlike the Vnode it points at, which
// is shared by every open description of the same file.
type OpenFile struct {
	mu   sync.Mutex
	vn   *Vnode
	c    *Cache
	mode int
	off  int
	refs int32
}

func NewOpenFile(c *Cache, vn *Vnode, mode int) *OpenFile {
	return &OpenFile{vn: vn, c: c, mode: mode, refs: 1}
}

func (f *OpenFile) Close() defs.Err_t {
	f.mu.Lock()
	f.refs--
	drop := f.refs == 0
	f.mu.Unlock()
	if !drop {
		return 0
	}
	return f.c.Vput(f.vn)
}

func (f *OpenFile) Reopen() defs.Err_t {
	f.mu.Lock()
	f.refs++
	f.mu.Unlock()
	return 0
}

func (f *OpenFile) Fstat(st *stat.Stat_t) defs.Err_t {
	return f.vn.Stat(st)
}

func (f *OpenFile) Pathi() defs.Inum_t { return f.vn.Ino }

func (f *OpenFile) Lseek(off int, whence int) (int, defs.Err_t) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch whence {
	case fdops.SEEK_SET:
		if off < 0 {
			return 0, -defs.EINVAL
		}
		f.off = off
	case fdops.SEEK_CUR:
		n := f.off + off
		if n < 0 {
			return 0, -defs.EINVAL
		}
		f.off = n
	case fdops.SEEK_END:
		n := f.vn.Len + off
		if n < 0 {
			return 0, -defs.EINVAL
		}
		f.off = n
	default:
		return 0, -defs.EINVAL
	}
	return f.off, 0
}

func (f *OpenFile) Read(dst []uint8) (int, defs.Err_t) {
	if f.mode&FMODE_READ == 0 {
		return 0, -defs.EPERM
	}
	f.mu.Lock()
	off := f.off
	f.mu.Unlock()

	v := f.vn
	v.Lock()
	n, err := v.ops.Read(v, off, dst)
	v.Unlock()
	if err != 0 {
		return 0, err
	}

	f.mu.Lock()
	f.off += n
	f.mu.Unlock()
	return n, 0
}

func (f *OpenFile) Write(src []uint8) (int, defs.Err_t) {
	if f.mode&FMODE_WRITE == 0 {
		return 0, -defs.EPERM
	}
	f.mu.Lock()
	off := f.off
	if f.mode&FMODE_APPEND != 0 {
		off = f.vn.Len
	}
	f.mu.Unlock()

	v := f.vn
	v.Lock()
	n, err := v.ops.Write(v, off, src)
	v.Unlock()
	if err != 0 {
		return 0, err
	}

	f.mu.Lock()
	f.off = off + n
	f.mu.Unlock()
	return n, 0
}

func (f *OpenFile) Pread(dst []uint8, off int) (int, defs.Err_t) {
	if f.mode&FMODE_READ == 0 {
		return 0, -defs.EPERM
	}
	v := f.vn
	v.Lock()
	defer v.Unlock()
	return v.ops.Read(v, off, dst)
}

func (f *OpenFile) Pwrite(src []uint8, off int) (int, defs.Err_t) {
	if f.mode&FMODE_WRITE == 0 {
		return 0, -defs.EPERM
	}
	v := f.vn
	v.Lock()
	defer v.Unlock()
	return v.ops.Write(v, off, src)
}

// Vnode exposes the backing vnode, e.g. for mmap to pull out the
// vm.Mmobj it should map.
func (f *OpenFile) Vnode() *Vnode { return f.vn }

func (f *OpenFile) Mode() int { return f.mode }
