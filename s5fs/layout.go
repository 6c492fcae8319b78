// Package s5fs is the System-V-style on-disk file system: a 4 KiB
// block device partitioned into a superblock, an inode table, and a
// data region, with singly linked free lists threaded through the
// unused inodes and blocks. It plugs into the fs package by
// implementing fs.FileSystem and fs.VnodeOps.
package s5fs

import "goweenix/mem"

const (
	S5_BLOCK_SIZE = mem.PGSIZE // 4096; one disk block per physical page
	S5_MAGIC      = 0x53354653 // "S5FS" squeezed into 32 bits
	S5_CURRENT_VERSION = 1

	S5_NAME_LEN = 28 // leaves a 32-byte dirent: 4-byte inum + name

	S5_NDIRECT_BLOCKS = 12 // direct block pointers per inode
	s5InodeSize       = 128
	s5InodesPerBlock  = S5_BLOCK_SIZE / s5InodeSize

	s5NoBlock = 0          // sentinel: slot holds no block (sparse)
	s5EndList = 0xffffffff // sentinel: end of a free list

	blockSuper      = 1 // superblock lives at block 1
	blockFirstInode = 2 // inode table starts at block 2

	// Inode types.
	s5TypeFree = 0
	s5TypeData = 1
	s5TypeDir  = 2
	s5TypeChr  = 3
	s5TypeBlk  = 4

	// Indirect-block capacity: block-sized array of uint32 block numbers.
	s5IndirectCap = S5_BLOCK_SIZE / 4
)

// s5InodeBlock gives the block that holds inode ino, block number
// blockFirstInode + ino/s5InodesPerBlock; s5InodeOffset gives the byte
// offset of inode ino within that block.
func s5InodeBlock(ino int) int  { return blockFirstInode + ino/s5InodesPerBlock }
func s5InodeOffset(ino int) int { return (ino % s5InodesPerBlock) * s5InodeSize }
