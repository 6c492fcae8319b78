package s5fs

import (
	"goweenix/defs"
	"goweenix/util"
)

// s5Super mirrors the on-disk superblock at block 1. FreeInode and
// FreeBlock are the heads of the free-inode and free-block lists;
// s5EndList means the list is empty.
type s5Super struct {
	Magic     uint32
	Version   uint32
	Ninodes   uint32
	FreeInode uint32
	FreeBlock uint32
	RootInode uint32
	Nblocks   uint32
	InodeBlocks uint32
}

const (
	soffMagic     = 0
	soffVersion   = 4
	soffNinodes   = 8
	soffFreeInode = 12
	soffFreeBlock = 16
	soffRootInode = 20
	soffNblocks   = 24
	soffInodeBlocks = 28
)

func loadSuper(blk []uint8) s5Super {
	return s5Super{
		Magic:       uint32(util.Readn(blk, 4, soffMagic)),
		Version:     uint32(util.Readn(blk, 4, soffVersion)),
		Ninodes:     uint32(util.Readn(blk, 4, soffNinodes)),
		FreeInode:   uint32(util.Readn(blk, 4, soffFreeInode)),
		FreeBlock:   uint32(util.Readn(blk, 4, soffFreeBlock)),
		RootInode:   uint32(util.Readn(blk, 4, soffRootInode)),
		Nblocks:     uint32(util.Readn(blk, 4, soffNblocks)),
		InodeBlocks: uint32(util.Readn(blk, 4, soffInodeBlocks)),
	}
}

func storeSuper(blk []uint8, s s5Super) {
	util.Writen(blk, 4, soffMagic, int(s.Magic))
	util.Writen(blk, 4, soffVersion, int(s.Version))
	util.Writen(blk, 4, soffNinodes, int(s.Ninodes))
	util.Writen(blk, 4, soffFreeInode, int(s.FreeInode))
	util.Writen(blk, 4, soffFreeBlock, int(s.FreeBlock))
	util.Writen(blk, 4, soffRootInode, int(s.RootInode))
	util.Writen(blk, 4, soffNblocks, int(s.Nblocks))
	util.Writen(blk, 4, soffInodeBlocks, int(s.InodeBlocks))
}

func checkSuper(s s5Super) defs.Err_t {
	if s.Magic != S5_MAGIC || s.Version != S5_CURRENT_VERSION {
		return -defs.EINVAL
	}
	return 0
}
