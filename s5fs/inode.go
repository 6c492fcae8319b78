package s5fs

import "goweenix/util"

// onDiskInode is the packed, fixed-size on-disk inode record. Fields
// are read and written directly against the containing block's bytes
// at s5InodeOffset(ino); nothing about it is ever resident except
// inside the block frame that holds it.
type onDiskInode struct {
	Type      uint32
	Size      uint32
	Linkcount uint32
	Direct    [S5_NDIRECT_BLOCKS]uint32
	Indirect  uint32 // also doubles as devid for chr/blk inodes
}

const (
	offType      = 0
	offSize      = 4
	offLinkcount = 8
	offDirect    = 12
	offIndirect  = offDirect + S5_NDIRECT_BLOCKS*4
)

func loadInode(blk []uint8, off int) onDiskInode {
	var in onDiskInode
	b := blk[off:]
	in.Type = uint32(util.Readn(b, 4, offType))
	in.Size = uint32(util.Readn(b, 4, offSize))
	in.Linkcount = uint32(util.Readn(b, 4, offLinkcount))
	for i := 0; i < S5_NDIRECT_BLOCKS; i++ {
		in.Direct[i] = uint32(util.Readn(b, 4, offDirect+4*i))
	}
	in.Indirect = uint32(util.Readn(b, 4, offIndirect))
	return in
}

func storeInode(blk []uint8, off int, in onDiskInode) {
	b := blk[off:]
	util.Writen(b, 4, offType, int(in.Type))
	util.Writen(b, 4, offSize, int(in.Size))
	util.Writen(b, 4, offLinkcount, int(in.Linkcount))
	for i := 0; i < S5_NDIRECT_BLOCKS; i++ {
		util.Writen(b, 4, offDirect+4*i, int(in.Direct[i]))
	}
	util.Writen(b, 4, offIndirect, int(in.Indirect))
}

// nextFree/setNextFree thread the free-inode list through a free
// inode's own Linkcount field (meaningless while the inode is free).
func (in *onDiskInode) nextFree() uint32     { return in.Linkcount }
func (in *onDiskInode) setNextFree(n uint32) { in.Linkcount = n }
