// Package stat is the fixed-layout structure fstat(2) hands back to a
// caller: mode, size, link count, and block usage. The byte layout
// mirrors how it would be copied out to a user buffer.
package stat

import "unsafe"

type Stat_t struct {
	_dev     uint
	_ino     uint
	_mode    uint
	_size    uint
	_nlink   uint
	_blocks  uint
	_blksize uint
}

func (st *Stat_t) Wdev(v uint)     { st._dev = v }
func (st *Stat_t) Wino(v uint)     { st._ino = v }
func (st *Stat_t) Wmode(v uint)    { st._mode = v }
func (st *Stat_t) Wsize(v uint)    { st._size = v }
func (st *Stat_t) Wnlink(v uint)   { st._nlink = v }
func (st *Stat_t) Wblocks(v uint)  { st._blocks = v }
func (st *Stat_t) Wblksize(v uint) { st._blksize = v }

func (st *Stat_t) Dev() uint     { return st._dev }
func (st *Stat_t) Ino() uint     { return st._ino }
func (st *Stat_t) Mode() uint    { return st._mode }
func (st *Stat_t) Size() uint    { return st._size }
func (st *Stat_t) Nlink() uint   { return st._nlink }
func (st *Stat_t) Blocks() uint  { return st._blocks }
func (st *Stat_t) Blksize() uint { return st._blksize }

// Bytes views the struct as the flat byte buffer a syscall would copy
// out to user space.
func (st *Stat_t) Bytes() []uint8 {
	const sz = unsafe.Sizeof(*st)
	sl := (*[sz]uint8)(unsafe.Pointer(&st._dev))
	return sl[:]
}

const (
	IFMT  = 0170000
	IFREG = 0100000
	IFDIR = 0040000
	IFCHR = 0020000
	IFBLK = 0060000
)
