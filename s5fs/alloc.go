package s5fs

import (
	"goweenix/defs"
	"goweenix/util"
	"goweenix/vm"
)

// getBlock pins and returns the page-cache frame for raw block
// blockno, read (or zero-filled, on first touch) through the file
// system's own BlockObj. Callers must putBlock when done.
func (fs *S5Fs) getBlock(blockno int) (*vm.Pframe, defs.Err_t) {
	f, err := fs.pc.Get(fs.devObj, uintptr(blockno))
	if err != 0 {
		return nil, err
	}
	fs.pc.Pin(f)
	return f, 0
}

func (fs *S5Fs) putBlock(f *vm.Pframe) { fs.pc.Unpin(f) }

func (fs *S5Fs) dirtyBlock(f *vm.Pframe) defs.Err_t { return fs.pc.Dirty(f) }

// allocBlock pops the head of the free-block list, threaded through
// each free block's first four bytes, and returns a freshly zeroed
// block number. Requires fs.mu.
func (fs *S5Fs) allocBlock() (uint32, defs.Err_t) {
	if fs.super.FreeBlock == s5EndList {
		return 0, -defs.ENOSPC
	}
	bn := fs.super.FreeBlock

	f, err := fs.getBlock(int(bn))
	if err != 0 {
		return 0, err
	}
	next := uint32(util.Readn(f.Addr()[:], 4, 0))
	fs.putBlock(f)

	fs.super.FreeBlock = next
	if err := fs.writeSuper(); err != 0 {
		return 0, err
	}

	zf, err := fs.getBlock(int(bn))
	if err != 0 {
		return 0, err
	}
	buf := zf.Addr()[:]
	for i := range buf {
		buf[i] = 0
	}
	// write the zeros through at once: file pages reach the device
	// directly, so a dirty copy left here would overwrite them on Sync.
	fs.dirtyBlock(zf)
	fs.pc.Clean(zf)
	fs.putBlock(zf)
	return bn, 0
}

// freeBlock pushes bn back onto the head of the free-block list.
// Requires fs.mu.
func (fs *S5Fs) freeBlock(bn uint32) defs.Err_t {
	f, err := fs.getBlock(int(bn))
	if err != 0 {
		return err
	}
	util.Writen(f.Addr()[:], 4, 0, int(fs.super.FreeBlock))
	fs.dirtyBlock(f)
	fs.putBlock(f)

	fs.super.FreeBlock = bn
	return fs.writeSuper()
}

// allocInode pops an inode off the free-inode list and initializes
// its type, link count, and size. Requires fs.mu.
func (fs *S5Fs) allocInode(kind uint32, devid int) (int, defs.Err_t) {
	if fs.super.FreeInode == s5EndList {
		return 0, -defs.ENOSPC
	}
	ino := int(fs.super.FreeInode)

	blk, off := s5InodeBlock(ino), s5InodeOffset(ino)
	f, err := fs.getBlock(blk)
	if err != 0 {
		return 0, err
	}
	in := loadInode(f.Addr()[:], off)
	fs.super.FreeInode = in.nextFree()

	in = onDiskInode{Type: kind, Size: 0, Linkcount: 0}
	if kind == s5TypeChr || kind == s5TypeBlk {
		in.Indirect = uint32(devid)
	}
	storeInode(f.Addr()[:], off, in)
	fs.dirtyBlock(f)
	fs.putBlock(f)

	if err := fs.writeSuper(); err != 0 {
		return 0, err
	}
	return ino, 0
}

// freeInode releases every data block (direct and indirect) belonging
// to ino, then pushes the inode itself onto the free list. Requires
// fs.mu and the vnode already locked by the caller.
func (fs *S5Fs) freeInode(ino int) defs.Err_t {
	blk, off := s5InodeBlock(ino), s5InodeOffset(ino)
	f, err := fs.getBlock(blk)
	if err != 0 {
		return err
	}
	in := loadInode(f.Addr()[:], off)

	for i := range in.Direct {
		if in.Direct[i] != s5NoBlock {
			if err := fs.freeBlock(in.Direct[i]); err != 0 {
				fs.putBlock(f)
				return err
			}
		}
	}
	if (in.Type == s5TypeData || in.Type == s5TypeDir) && in.Indirect != s5NoBlock {
		indf, err := fs.getBlock(int(in.Indirect))
		if err != 0 {
			fs.putBlock(f)
			return err
		}
		ib := indf.Addr()[:]
		for i := 0; i < s5IndirectCap; i++ {
			bn := uint32(util.Readn(ib, 4, i*4))
			if bn != s5NoBlock {
				fs.freeBlock(bn)
			}
		}
		fs.putBlock(indf)
		fs.freeBlock(in.Indirect)
	}

	freed := onDiskInode{Type: s5TypeFree}
	freed.setNextFree(fs.super.FreeInode)
	storeInode(f.Addr()[:], off, freed)
	fs.dirtyBlock(f)
	fs.putBlock(f)

	fs.super.FreeInode = uint32(ino)
	return fs.writeSuper()
}
