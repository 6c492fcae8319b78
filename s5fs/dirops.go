package s5fs

import (
	"goweenix/defs"
	"goweenix/fs"
	"goweenix/stat"
	"goweenix/ustr"
	"goweenix/vm"
)

// s5DirOps is the operation vector installed on every directory
// vnode: entry creation/removal/lookup and directory-content page
// hooks. Data operations that only make sense on a regular file
// (Read, Write, Mmap) fail with EISDIR, matching the source's nulled
// vnode_ops_t entries but as an explicit error instead of a crash.
type s5DirOps struct {
	s5PageOps
	fs *S5Fs
}

func (d *s5DirOps) Read(vn *fs.Vnode, off int, dst []uint8) (int, defs.Err_t) {
	return 0, -defs.EISDIR
}
func (d *s5DirOps) Write(vn *fs.Vnode, off int, src []uint8) (int, defs.Err_t) {
	return 0, -defs.EISDIR
}
func (d *s5DirOps) Mmap(vn *fs.Vnode) (vm.Mmobj, defs.Err_t) { return nil, -defs.EISDIR }

func (d *s5DirOps) Stat(vn *fs.Vnode, st *stat.Stat_t) defs.Err_t {
	return d.s5PageOps.stat(vn, stat.IFDIR, st)
}

func (d *s5DirOps) Lookup(dir *fs.Vnode, name ustr.Ustr) (defs.Inum_t, defs.Err_t) {
	if name.Isdotdot() {
		return d.fs.s5FindDirent(dir, ustr.DotDot)
	}
	return d.fs.s5FindDirent(dir, name)
}

func (d *s5DirOps) Create(dir *fs.Vnode, name ustr.Ustr) (defs.Inum_t, defs.Err_t) {
	return d.mknod(dir, name, s5TypeData, 0)
}

func (d *s5DirOps) Mknod(dir *fs.Vnode, name ustr.Ustr, kind int, devid int) (defs.Inum_t, defs.Err_t) {
	var t uint32
	switch kind {
	case fs.VNODE_CHR:
		t = s5TypeChr
	case fs.VNODE_BLK:
		t = s5TypeBlk
	default:
		return 0, -defs.EINVAL
	}
	return d.mknod(dir, name, t, devid)
}

func (d *s5DirOps) mknod(dir *fs.Vnode, name ustr.Ustr, t uint32, devid int) (defs.Inum_t, defs.Err_t) {
	if len(name) > S5_NAME_LEN {
		return 0, -defs.ENAMETOOLONG
	}
	if _, err := d.fs.s5FindDirent(dir, name); err != -defs.ENOENT {
		if err == 0 {
			return 0, -defs.EEXIST
		}
		return 0, err
	}

	d.fs.mu.Lock()
	ino, err := d.fs.allocInode(t, devid)
	d.fs.mu.Unlock()
	if err != 0 {
		return 0, err
	}
	if err := d.fs.s5Link(dir, defs.Inum_t(ino), name); err != 0 {
		d.fs.mu.Lock()
		d.fs.freeInode(ino)
		d.fs.mu.Unlock()
		return 0, err
	}
	return defs.Inum_t(ino), 0
}

// Mkdir creates a new directory inode, links it into the parent under
// name, then populates "." (which by convention does not contribute
// to the link count) and ".." pointing back at the parent. A freshly
// made empty directory therefore ends with link count 2: one from the
// parent's directory entry, one from the VFS reference taken by the
// caller's subsequent vget.
func (d *s5DirOps) Mkdir(dir *fs.Vnode, name ustr.Ustr) (defs.Inum_t, defs.Err_t) {
	ino, err := d.mknod(dir, name, s5TypeDir, 0)
	if err != 0 {
		return 0, err
	}

	child := &fs.Vnode{} // scratch handle: enough state for s5Link/s5WriteFile
	child.Ino = ino
	child.Fs = dir.Fs

	if err := d.fs.s5Link(child, ino, ustr.MkUstrDot()); err != 0 {
		return 0, err
	}
	// "." does not contribute to the link count by convention; undo
	// the increment s5Link just applied.
	d.fs.bumpLinkcount(ino, -1)

	if err := d.fs.s5Link(child, dir.Ino, ustr.DotDot); err != 0 {
		return 0, err
	}
	return ino, 0
}

// Rmdir refuses unless the only entries left are "." and "..", then
// removes the child's ".." link to the parent and the parent's link
// to the child.
func (d *s5DirOps) Rmdir(dir *fs.Vnode, name ustr.Ustr) defs.Err_t {
	if name.Isdot() || name.Isdotdot() {
		return -defs.EINVAL
	}
	ino, err := d.fs.s5FindDirent(dir, name)
	if err != 0 {
		return err
	}

	child := &fs.Vnode{Ino: ino, Fs: dir.Fs}
	if in, f, err := d.fs.readOnDiskInode(int(ino)); err == 0 {
		d.fs.putBlock(f)
		child.Len = int(in.Size)
	}

	n := child.Len / s5DirentSize
	buf := make([]uint8, s5DirentSize)
	for i := 0; i < n; i++ {
		if _, err := d.fs.s5ReadFile(child, i*s5DirentSize, buf); err != 0 {
			return err
		}
		e := loadDirent(buf, 0)
		if len(e.Name) == 0 {
			continue
		}
		if !ustr.Ustr(e.Name).Isdot() && !ustr.Ustr(e.Name).Isdotdot() {
			return -defs.ENOTEMPTY
		}
	}

	if err := d.fs.s5RemoveDirent(child, ustr.DotDot); err != 0 {
		return err
	}
	return d.fs.s5RemoveDirent(dir, name)
}

func (d *s5DirOps) Link(dir *fs.Vnode, target *fs.Vnode, name ustr.Ustr) defs.Err_t {
	return d.fs.s5Link(dir, target.Ino, name)
}

func (d *s5DirOps) Unlink(dir *fs.Vnode, name ustr.Ustr) defs.Err_t {
	if name.Isdot() || name.Isdotdot() {
		return -defs.EINVAL
	}
	return d.fs.s5RemoveDirent(dir, name)
}

func (d *s5DirOps) Readdir(dir *fs.Vnode, off int) (ustr.Ustr, defs.Inum_t, int, defs.Err_t) {
	buf := make([]uint8, s5DirentSize)
	for {
		if off+s5DirentSize > dir.Len {
			return nil, 0, off, 0
		}
		if _, err := d.fs.s5ReadFile(dir, off, buf); err != 0 {
			return nil, 0, off, err
		}
		e := loadDirent(buf, 0)
		next := off + s5DirentSize
		if len(e.Name) != 0 {
			return e.Name, defs.Inum_t(e.Ino), next, 0
		}
		off = next
	}
}
