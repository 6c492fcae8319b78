// Package fs is the virtual file system core: the vnode cache, the
// open-file-description type, path resolution, and the mount table
// that lets a concrete file system (s5fs, eventually others) plug in
// underneath. Nothing in this package knows an on-disk layout; it only
// knows the VnodeOps vector and the per-(fs,ino) cache invariant.
package fs

import (
	"sync"

	"goweenix/defs"
	"goweenix/fdops"
	"goweenix/hashtable"
	"goweenix/limits"
	"goweenix/stat"
	"goweenix/ustr"
	"goweenix/vm"
)

const (
	VNODE_REGDIR  = iota // directory
	VNODE_REGFILE        // regular file
	VNODE_CHR            // character device
	VNODE_BLK            // block device
)

// VnodeOps is the operation vector a concrete file system installs on
// every vnode it hands out. Directory vnodes implement the directory
// half; regular-file vnodes implement the data half; every vnode
// implements the page-cache hooks through vm.VnodeBacking.
type VnodeOps interface {
	FillPage(vn *Vnode, off int, f *vm.Pframe) defs.Err_t
	DirtyPage(vn *Vnode, off int) defs.Err_t
	CleanPage(vn *Vnode, off int, f *vm.Pframe) defs.Err_t

	Read(vn *Vnode, off int, dst []uint8) (int, defs.Err_t)
	Write(vn *Vnode, off int, src []uint8) (int, defs.Err_t)
	Mmap(vn *Vnode) (vm.Mmobj, defs.Err_t)
	Stat(vn *Vnode, st *stat.Stat_t) defs.Err_t

	// Lookup, Create, Mknod, and Mkdir return the inode number of the
	// named entry; the caller turns that into a *Vnode via Cache.Vget.
	Lookup(dir *Vnode, name ustr.Ustr) (defs.Inum_t, defs.Err_t)
	Create(dir *Vnode, name ustr.Ustr) (defs.Inum_t, defs.Err_t)
	Mknod(dir *Vnode, name ustr.Ustr, kind int, devid int) (defs.Inum_t, defs.Err_t)
	Mkdir(dir *Vnode, name ustr.Ustr) (defs.Inum_t, defs.Err_t)
	Rmdir(dir *Vnode, name ustr.Ustr) defs.Err_t
	Link(dir *Vnode, target *Vnode, name ustr.Ustr) defs.Err_t
	Unlink(dir *Vnode, name ustr.Ustr) defs.Err_t
	Readdir(dir *Vnode, off int) (ustr.Ustr, defs.Inum_t, int, defs.Err_t)
}

// FileSystem is what a concrete on-disk (or synthetic) file system
// implements to plug into the VFS. ReadVnode populates a freshly
// allocated Vnode from backing storage on a vget cache miss;
// DeleteVnode is called once the last reference drops and QueryVnode
// reports there are no more on-disk links; QueryVnode reports whether
// any on-disk reference to the inode remains.
type FileSystem interface {
	ID() uintptr
	RootInum() defs.Inum_t
	ReadVnode(vn *Vnode) defs.Err_t
	DeleteVnode(vn *Vnode) defs.Err_t
	QueryVnode(vn *Vnode) (bool, defs.Err_t)
	// OpsFor returns the operation vector for a vnode of the given
	// kind (VNODE_REGDIR, VNODE_REGFILE, ...). Called once ReadVnode
	// has populated the vnode's Kind, so a cache miss never has to
	// guess which vector to install before it knows what it read.
	OpsFor(kind int) VnodeOps
}

// Vnode is the in-memory handle for one file-system object, unique per
// (fs, inode) while any reference is outstanding.
type Vnode struct {
	mu sync.Mutex

	Fs   FileSystem
	Ino  defs.Inum_t
	Kind int
	Len  int
	Devid int

	ops  VnodeOps
	refs int32

	mm   vm.Mmobj
	pc   *vm.PageCache
}

// vkey is the vnode cache key. fs identity is the file system's own
// ID() rather than an interface value so two *Vnode handles for the
// same (fs,ino) always hash and compare equal even across distinct
// FileSystem values.
type vkey struct {
	fsid uintptr
	ino  defs.Inum_t
}

// Cache is the global (fs, ino) -> *Vnode table. vget performs
// look-up-or-insert-and-populate; vput performs decrement-and-maybe-
// drop. There is exactly one live *Vnode per key at any time.
type Cache struct {
	ht *hashtable.Hashtable_t
	pc *vm.PageCache
}

func NewCache(pc *vm.PageCache) *Cache {
	return &Cache{ht: hashtable.MkHash(limits.Syslimit.Vnodes), pc: pc}
}

// Vget returns the unique vnode for (fs, ino), populating it from the
// file system on a cache miss. Every returned vnode has been Ref'd
// once on the caller's behalf; release it with Vput.
func (c *Cache) Vget(f FileSystem, ino defs.Inum_t) (*Vnode, defs.Err_t) {
	key := vkey{f.ID(), ino}
	if v, ok := c.ht.Get(key); ok {
		vn := v.(*Vnode)
		vn.ref()
		return vn, 0
	}

	vn := &Vnode{Fs: f, Ino: ino, refs: 1, pc: c.pc}
	if err := f.ReadVnode(vn); err != 0 {
		return nil, err
	}
	vn.ops = f.OpsFor(vn.Kind)
	vn.mm = vm.NewVnodeObj(vn)

	// Another thread may have raced us to populate the same key; the
	// hash table's Set always wins with whichever value is set last,
	// so only install ours if nobody beat us to it.
	if v, ok := c.ht.Get(key); ok {
		existing := v.(*Vnode)
		existing.ref()
		return existing, 0
	}
	c.ht.Set(key, vn)
	return vn, 0
}

func (v *Vnode) ref() { v.mu.Lock(); v.refs++; v.mu.Unlock() }

// Vput releases one reference. When the last reference drops, it asks
// the file system whether any on-disk link remains; if none does, the
// inode is deleted. Either way the vnode is evicted from the cache.
func (c *Cache) Vput(v *Vnode) defs.Err_t {
	v.mu.Lock()
	v.refs--
	drop := v.refs == 0
	v.mu.Unlock()
	if !drop {
		return 0
	}

	c.ht.Del(vkey{v.Fs.ID(), v.Ino})
	// Write back the vnode's content before it might be reused or
	// deleted; a live mmap on the same object just refills on its next
	// fault.
	c.pc.Evict(v.mm)

	live, err := v.Fs.QueryVnode(v)
	if err != 0 {
		return err
	}
	if !live {
		if err := v.Fs.DeleteVnode(v); err != 0 {
			return err
		}
	}
	return 0
}

// Release implements vm.VnodeBacking. It does nothing: a mapping holds
// a reference on the vnode's Mmobj, not a vget reference on the vnode,
// so there is no vnode reference to give back.
func (v *Vnode) Release() {}

func (v *Vnode) Lock()   { v.mu.Lock() }
func (v *Vnode) Unlock() { v.mu.Unlock() }

func (v *Vnode) Refcount() int32 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.refs
}

func (v *Vnode) IsDir() bool { return v.Kind == VNODE_REGDIR }

func (v *Vnode) Mmobj() vm.Mmobj { return v.mm }

// Vnode implements vm.VnodeBacking by delegating to its file system's
// operation vector, passing itself along so the implementation knows
// which inode's blocks to touch.
func (v *Vnode) FillPage(off int, f *vm.Pframe) defs.Err_t  { return v.ops.FillPage(v, off, f) }
func (v *Vnode) DirtyPage(off int) defs.Err_t               { return v.ops.DirtyPage(v, off) }
func (v *Vnode) CleanPage(off int, f *vm.Pframe) defs.Err_t { return v.ops.CleanPage(v, off, f) }

func (v *Vnode) Stat(st *stat.Stat_t) defs.Err_t { return v.ops.Stat(v, st) }

// Sync writes back every dirty page belonging to a currently cached
// vnode's content object. It walks the whole cache rather than one
// file system's vnodes, since the cache itself doesn't partition by
// file system once a vnode is in it.
func (c *Cache) Sync() {
	c.ht.Iter(func(_, v interface{}) bool {
		vn := v.(*Vnode)
		c.pc.Evict(vn.mm)
		return true
	})
}

var _ fdops.Fdops_i = (*OpenFile)(nil)
