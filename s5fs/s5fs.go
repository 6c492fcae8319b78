package s5fs

import (
	"sync"
	"unsafe"

	"goweenix/defs"
	"goweenix/fs"
	"goweenix/mem"
	"goweenix/util"
	"goweenix/vm"
)

// S5Fs is the System-V-style on-disk file system: a superblock, an
// inode table, and a data region sitting on one block device. It
// implements fs.FileSystem; its vnode operation vectors (one for
// directories, one for everything else) implement fs.VnodeOps.
type S5Fs struct {
	dev    vm.BlockDevice
	devObj *vm.BlockObj
	pc     *vm.PageCache

	mu    sync.Mutex // serializes superblock and free-list mutations
	super s5Super

	dirOps  *s5DirOps
	fileOps *s5FileOps
}

// Mkfs formats a fresh block device in place: writes a superblock with
// an empty inode and block free list and a root directory inode whose
// only entries are "." and "..", both pointing at itself. Formatting
// writes directly through dev rather than through the page cache: it
// runs once, before any S5Fs (and so any cache identity) exists, and
// every block it touches must be visible to whichever BlockObj a later
// OpenS5Fs wraps around the same device.
func Mkfs(dev vm.BlockDevice, pc *vm.PageCache, nblocks, ninodes int) defs.Err_t {
	inodeBlocks := (ninodes + s5InodesPerBlock - 1) / s5InodesPerBlock
	firstData := blockFirstInode + inodeBlocks

	var buf mem.Page

	// zero and thread every inode onto the free list in ascending order,
	// each linking to the next higher one; inode 0 is taken over by the
	// root below and the list head starts at inode 1.
	for b := 0; b < inodeBlocks; b++ {
		buf = mem.Page{}
		for i := 0; i < s5InodesPerBlock; i++ {
			ino := b*s5InodesPerBlock + i
			if ino >= ninodes {
				break
			}
			next := uint32(s5EndList)
			if ino+1 < ninodes {
				next = uint32(ino + 1)
			}
			in := onDiskInode{Type: s5TypeFree}
			in.setNextFree(next)
			storeInode(buf[:], s5InodeOffset(ino), in)
		}
		if err := dev.WriteBlock(blockFirstInode+b, &buf); err != 0 {
			return err
		}
	}

	// thread every data block onto the free list.
	for b := firstData; b < nblocks; b++ {
		buf = mem.Page{}
		next := uint32(s5EndList)
		if b+1 < nblocks {
			next = uint32(b + 1)
		}
		util.Writen(buf[:], 4, 0, int(next))
		if err := dev.WriteBlock(b, &buf); err != 0 {
			return err
		}
	}

	// carve out the root directory inode and its "." / ".." data
	// block by hand, since there is no S5Fs instance yet to call
	// allocInode/s5Link through.
	dirBlock := firstData
	buf = mem.Page{}
	storeDirent(buf[:], 0*s5DirentSize, s5Dirent{Ino: 0, Name: []uint8(".")})
	storeDirent(buf[:], 1*s5DirentSize, s5Dirent{Ino: 0, Name: []uint8("..")})
	if err := dev.WriteBlock(dirBlock, &buf); err != 0 {
		return err
	}

	rootBlk, rootOff := s5InodeBlock(0), s5InodeOffset(0)
	// re-read the block so the free-list links of the other inodes
	// sharing it with the root survive.
	if err := dev.ReadBlock(rootBlk, &buf); err != 0 {
		return err
	}
	root := onDiskInode{
		Type:      s5TypeDir,
		Linkcount: 1, // its own ".." entry
		Size:      uint32(2 * s5DirentSize),
	}
	root.Direct[0] = uint32(dirBlock)
	storeInode(buf[:], rootOff, root)
	if err := dev.WriteBlock(rootBlk, &buf); err != 0 {
		return err
	}

	super := s5Super{
		Magic:       S5_MAGIC,
		Version:     S5_CURRENT_VERSION,
		Ninodes:     uint32(ninodes),
		FreeInode:   1, // inode 0 is claimed by the root directory above
		FreeBlock:   uint32(dirBlock + 1),
		RootInode:   0,
		Nblocks:     uint32(nblocks),
		InodeBlocks: uint32(inodeBlocks),
	}
	buf = mem.Page{}
	storeSuper(buf[:], super)
	return dev.WriteBlock(blockSuper, &buf)
}

// OpenS5Fs mounts an already-formatted device: reads and validates the
// superblock and wires up the vnode operation tables.
func OpenS5Fs(dev vm.BlockDevice, pc *vm.PageCache) (*S5Fs, defs.Err_t) {
	devObj := vm.NewBlockObj(dev)
	f, err := pc.Get(devObj, blockSuper)
	if err != 0 {
		return nil, err
	}
	pc.Pin(f)
	super := loadSuper(f.Addr()[:])
	pc.Unpin(f)
	if cerr := checkSuper(super); cerr != 0 {
		return nil, cerr
	}

	s := &S5Fs{dev: dev, devObj: devObj, pc: pc, super: super}
	s.dirOps = &s5DirOps{s5PageOps: s5PageOps{fs: s}, fs: s}
	s.fileOps = &s5FileOps{s5PageOps: s5PageOps{fs: s}, fs: s}
	return s, 0
}

func (s *S5Fs) writeSuper() defs.Err_t {
	f, err := s.pc.Get(s.devObj, blockSuper)
	if err != 0 {
		return err
	}
	s.pc.Pin(f)
	storeSuper(f.Addr()[:], s.super)
	s.pc.Dirty(f)
	s.pc.Unpin(f)
	return 0
}

// Sync writes back every dirty superblock, inode, and free-list block
// cached through s.devObj. It implements fs.Syncer so fs.Vfs.Sync
// picks it up automatically.
func (s *S5Fs) Sync() defs.Err_t {
	s.pc.Evict(s.devObj)
	return 0
}

func (s *S5Fs) ID() uintptr           { return uintptr(unsafe.Pointer(s)) }
func (s *S5Fs) RootInum() defs.Inum_t { return defs.Inum_t(s.super.RootInode) }

func (s *S5Fs) OpsFor(kind int) fs.VnodeOps {
	if kind == fs.VNODE_REGDIR {
		return s.dirOps
	}
	return s.fileOps
}

func (s *S5Fs) readOnDiskInode(ino int) (onDiskInode, *vm.Pframe, defs.Err_t) {
	f, err := s.getBlock(s5InodeBlock(ino))
	if err != 0 {
		return onDiskInode{}, nil, err
	}
	return loadInode(f.Addr()[:], s5InodeOffset(ino)), f, 0
}

func (s *S5Fs) ReadVnode(vn *fs.Vnode) defs.Err_t {
	in, f, err := s.readOnDiskInode(int(vn.Ino))
	if err != 0 {
		return err
	}
	defer s.putBlock(f)

	switch in.Type {
	case s5TypeDir:
		vn.Kind = fs.VNODE_REGDIR
	case s5TypeData:
		vn.Kind = fs.VNODE_REGFILE
	case s5TypeChr:
		vn.Kind = fs.VNODE_CHR
		vn.Devid = int(in.Indirect)
	case s5TypeBlk:
		vn.Kind = fs.VNODE_BLK
		vn.Devid = int(in.Indirect)
	default:
		return -defs.ENOENT
	}
	vn.Len = int(in.Size)
	return 0
}

func (s *S5Fs) DeleteVnode(vn *fs.Vnode) defs.Err_t {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.freeInode(int(vn.Ino))
}

func (s *S5Fs) QueryVnode(vn *fs.Vnode) (bool, defs.Err_t) {
	in, f, err := s.readOnDiskInode(int(vn.Ino))
	if err != 0 {
		return false, err
	}
	s.putBlock(f)
	return in.Linkcount > 0, 0
}

// s5SeekToBlock translates a byte offset within a vnode's file into a
// disk block number, allocating a block (and the indirect block, if
// needed) on demand when alloc is true. It returns 0 (s5NoBlock) for a
// sparse hole when alloc is false.
func (s *S5Fs) s5SeekToBlock(vn *fs.Vnode, offset int, alloc bool) (uint32, defs.Err_t) {
	blockIdx := offset / S5_BLOCK_SIZE

	s.mu.Lock()
	defer s.mu.Unlock()

	in, f, err := s.readOnDiskInode(int(vn.Ino))
	if err != 0 {
		return 0, err
	}

	if blockIdx < S5_NDIRECT_BLOCKS {
		bn := in.Direct[blockIdx]
		if bn != s5NoBlock || !alloc {
			s.putBlock(f)
			return bn, 0
		}
		nb, err := s.allocBlock()
		if err != 0 {
			s.putBlock(f)
			return 0, err
		}
		in.Direct[blockIdx] = nb
		storeInode(f.Addr()[:], s5InodeOffset(int(vn.Ino)), in)
		s.dirtyBlock(f)
		s.putBlock(f)
		return nb, 0
	}

	indIdx := blockIdx - S5_NDIRECT_BLOCKS
	if indIdx >= s5IndirectCap {
		s.putBlock(f)
		return 0, -defs.EINVAL
	}

	if in.Indirect == s5NoBlock {
		if !alloc {
			s.putBlock(f)
			return 0, 0
		}
		nb, err := s.allocBlock()
		if err != 0 {
			s.putBlock(f)
			return 0, err
		}
		in.Indirect = nb
		storeInode(f.Addr()[:], s5InodeOffset(int(vn.Ino)), in)
		s.dirtyBlock(f)
	}
	s.putBlock(f)

	indf, err := s.getBlock(int(in.Indirect))
	if err != 0 {
		return 0, err
	}
	defer s.putBlock(indf)

	bn := uint32(util.Readn(indf.Addr()[:], 4, indIdx*4))
	if bn != s5NoBlock || !alloc {
		return bn, 0
	}
	nb, err := s.allocBlock()
	if err != 0 {
		return 0, err
	}
	util.Writen(indf.Addr()[:], 4, indIdx*4, int(nb))
	s.dirtyBlock(indf)
	return nb, 0
}

func (s *S5Fs) growLength(vn *fs.Vnode, newLen int) defs.Err_t {
	if newLen <= vn.Len {
		return 0
	}
	ino := int(vn.Ino)
	blk, off := s5InodeBlock(ino), s5InodeOffset(ino)

	s.mu.Lock()
	f, err := s.getBlock(blk)
	if err != 0 {
		s.mu.Unlock()
		return err
	}
	in := loadInode(f.Addr()[:], off)
	in.Size = uint32(newLen)
	storeInode(f.Addr()[:], off, in)
	s.dirtyBlock(f)
	s.putBlock(f)
	s.mu.Unlock()

	vn.Len = newLen
	return 0
}

// s5ReadFile gathers data page by page through the vnode's own page
// cache object, so concurrent mmap faults on the same file see the
// same bytes a read(2) would.
func (s *S5Fs) s5ReadFile(vn *fs.Vnode, off int, dst []uint8) (int, defs.Err_t) {
	if off >= vn.Len {
		return 0, 0
	}
	end := off + len(dst)
	if end > vn.Len {
		end = vn.Len
	}

	n := 0
	for off+n < end {
		pageno := uintptr((off + n) / mem.PGSIZE)
		pageOff := (off + n) % mem.PGSIZE
		f, err := s.pc.Get(vn.Mmobj(), pageno)
		if err != 0 {
			return n, err
		}
		s.pc.Pin(f)
		chunk := mem.PGSIZE - pageOff
		if remain := end - (off + n); chunk > remain {
			chunk = remain
		}
		copy(dst[n:n+chunk], f.Addr()[pageOff:pageOff+chunk])
		s.pc.Unpin(f)
		n += chunk
	}
	return n, 0
}

// s5WriteFile scatters data page by page, extending the file and
// allocating blocks as needed, dirtying every touched page.
func (s *S5Fs) s5WriteFile(vn *fs.Vnode, off int, src []uint8) (int, defs.Err_t) {
	end := off + len(src)
	n := 0
	for off+n < end {
		pageno := uintptr((off + n) / mem.PGSIZE)
		pageOff := (off + n) % mem.PGSIZE
		f, err := s.pc.Get(vn.Mmobj(), pageno)
		if err != 0 {
			return n, err
		}
		s.pc.Pin(f)
		if derr := s.pc.Dirty(f); derr != 0 {
			s.pc.Unpin(f)
			return n, derr
		}
		chunk := mem.PGSIZE - pageOff
		if remain := end - (off + n); chunk > remain {
			chunk = remain
		}
		copy(f.Addr()[pageOff:pageOff+chunk], src[n:n+chunk])
		s.pc.Unpin(f)
		n += chunk
	}
	if growErr := s.growLength(vn, off+n); growErr != 0 {
		return n, growErr
	}
	return n, 0
}
