package fs

import (
	"goweenix/bpath"
	"goweenix/defs"
	"goweenix/ustr"
)

// OpenNamev resolves path component by component, starting from root
// (if path is absolute) or from base otherwise, dispatching through
// each directory's Lookup. On the final component, O_CREAT causes a
// missing entry to be created via Create instead of failing with
// ENOENT.
func (vfs *Vfs) OpenNamev(path ustr.Ustr, oflags defs.Fdopt_t, base *Vnode) (*Vnode, defs.Err_t) {
	dir := vfs.Root
	if !path.IsAbsolute() && base != nil {
		dir = base
	}
	dir.ref()

	var pp bpath.Pathparts_t
	pp.Pp_init(path)

	comp, ok := pp.Next()
	if !ok {
		return dir, 0
	}

	for {
		next, ok := pp.Next()
		last := !ok

		if !last {
			ino, err := vfs.lookupLocked(dir, comp)
			if err != 0 {
				vfs.Cache.Vput(dir)
				return nil, err
			}
			child, err := vfs.Cache.Vget(dir.Fs, ino)
			vfs.Cache.Vput(dir)
			if err != 0 {
				return nil, err
			}
			if !child.IsDir() {
				vfs.Cache.Vput(child)
				return nil, -defs.ENOTDIR
			}
			dir = child
			comp = next
			continue
		}

		ino, err := vfs.lookupLocked(dir, comp)
		if err == -defs.ENOENT && oflags&defs.O_CREAT != 0 {
			dir.Lock()
			ino, err = dir.ops.Create(dir, comp)
			dir.Unlock()
		}
		if err != 0 {
			vfs.Cache.Vput(dir)
			return nil, err
		}
		target, err := vfs.Cache.Vget(dir.Fs, ino)
		vfs.Cache.Vput(dir)
		return target, err
	}
}

func (vfs *Vfs) lookupLocked(dir *Vnode, name ustr.Ustr) (defs.Inum_t, defs.Err_t) {
	if !dir.IsDir() {
		return 0, -defs.ENOTDIR
	}
	if name.Isdot() {
		return dir.Ino, 0
	}
	dir.Lock()
	ino, err := dir.ops.Lookup(dir, name)
	dir.Unlock()
	return ino, err
}

// DoOpen implements the VFS-level half of open(2): it resolves the
// path (honoring O_CREAT), rejects a write-mode open of a directory,
// and hands back a fresh OpenFile ready to be installed in a
// process's descriptor table. On any failure the vnode reference
// picked up along the way is released before returning.
func (vfs *Vfs) DoOpen(path ustr.Ustr, oflags defs.Fdopt_t, base *Vnode) (*OpenFile, defs.Err_t) {
	mode, err := openMode(oflags)
	if err != 0 {
		return nil, err
	}

	vn, err := vfs.OpenNamev(path, oflags, base)
	if err != 0 {
		return nil, err
	}
	if vn.IsDir() && mode&FMODE_WRITE != 0 {
		vfs.Cache.Vput(vn)
		return nil, -defs.EISDIR
	}

	return NewOpenFile(vfs.Cache, vn, mode), 0
}

func openMode(oflags defs.Fdopt_t) (int, defs.Err_t) {
	var mode int
	switch oflags & 3 {
	case defs.O_RDONLY:
		mode = FMODE_READ
	case defs.O_WRONLY:
		mode = FMODE_WRITE
	case defs.O_RDWR:
		mode = FMODE_READ | FMODE_WRITE
	default:
		return 0, -defs.EINVAL
	}
	if oflags&defs.O_APPEND != 0 {
		mode |= FMODE_APPEND
	}
	return mode, 0
}
