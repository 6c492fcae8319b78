package s5fs

import (
	"goweenix/defs"
	"goweenix/fs"
	"goweenix/stat"
	"goweenix/ustr"
	"goweenix/vm"
)

// s5FileOps is the operation vector installed on every non-directory
// vnode: regular files, character devices, and block devices all share
// it, though only regular files actually move data through the page
// cache today. Directory-only operations fail with ENOTDIR.
type s5FileOps struct {
	s5PageOps
	fs *S5Fs
}

func (o *s5FileOps) Read(vn *fs.Vnode, off int, dst []uint8) (int, defs.Err_t) {
	return o.fs.s5ReadFile(vn, off, dst)
}

func (o *s5FileOps) Write(vn *fs.Vnode, off int, src []uint8) (int, defs.Err_t) {
	return o.fs.s5WriteFile(vn, off, src)
}

func (o *s5FileOps) Mmap(vn *fs.Vnode) (vm.Mmobj, defs.Err_t) {
	return vn.Mmobj(), 0
}

func (o *s5FileOps) Stat(vn *fs.Vnode, st *stat.Stat_t) defs.Err_t {
	return o.s5PageOps.stat(vn, stat.IFREG, st)
}

func (o *s5FileOps) Lookup(dir *fs.Vnode, name ustr.Ustr) (defs.Inum_t, defs.Err_t) {
	return 0, -defs.ENOTDIR
}
func (o *s5FileOps) Create(dir *fs.Vnode, name ustr.Ustr) (defs.Inum_t, defs.Err_t) {
	return 0, -defs.ENOTDIR
}
func (o *s5FileOps) Mknod(dir *fs.Vnode, name ustr.Ustr, kind int, devid int) (defs.Inum_t, defs.Err_t) {
	return 0, -defs.ENOTDIR
}
func (o *s5FileOps) Mkdir(dir *fs.Vnode, name ustr.Ustr) (defs.Inum_t, defs.Err_t) {
	return 0, -defs.ENOTDIR
}
func (o *s5FileOps) Rmdir(dir *fs.Vnode, name ustr.Ustr) defs.Err_t {
	return -defs.ENOTDIR
}
func (o *s5FileOps) Link(dir *fs.Vnode, target *fs.Vnode, name ustr.Ustr) defs.Err_t {
	return -defs.ENOTDIR
}
func (o *s5FileOps) Unlink(dir *fs.Vnode, name ustr.Ustr) defs.Err_t {
	return -defs.ENOTDIR
}
func (o *s5FileOps) Readdir(dir *fs.Vnode, off int) (ustr.Ustr, defs.Inum_t, int, defs.Err_t) {
	return nil, 0, off, -defs.ENOTDIR
}
