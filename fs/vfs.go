package fs

import "goweenix/defs"

// Vfs is the top-level handle a process's path resolution goes
// through: the vnode cache shared by every mounted file system, plus
// the root file system's root vnode. Additional mounts are out of
// scope for this core; one root file system is enough to exercise
// every VFS and S5FS operation the spec names.
type Vfs struct {
	Cache *Cache
	Root  *Vnode
	fs    FileSystem
}

func Mount(c *Cache, root FileSystem) (*Vfs, defs.Err_t) {
	rv, err := c.Vget(root, root.RootInum())
	if err != 0 {
		return nil, err
	}
	return &Vfs{Cache: c, Root: rv, fs: root}, 0
}

// Syncer is implemented by a file system that keeps its own cached
// metadata (superblocks, free lists, inode blocks) outside any single
// vnode's content object and so needs an explicit nudge to write it
// back, e.g. before unmounting.
type Syncer interface {
	Sync() defs.Err_t
}

// Sync flushes every dirty vnode content page in the cache, then gives
// the underlying file system a chance to flush its own metadata.
func (vfs *Vfs) Sync() defs.Err_t {
	vfs.Cache.Sync()
	if s, ok := vfs.fs.(Syncer); ok {
		return s.Sync()
	}
	return 0
}
