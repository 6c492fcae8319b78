package vm

import (
	"goweenix/defs"
	"goweenix/mem"
)

// BlockDevice is the abstract capability a raw block device exposes:
// S5_BLOCK_SIZE-byte blocks addressed by block number. Anything that
// can satisfy this -- an AHCI driver, a RAM disk for tests -- can back
// a BlockObj.
type BlockDevice interface {
	ReadBlock(blockno int, dst *mem.Page) defs.Err_t
	WriteBlock(blockno int, src *mem.Page) defs.Err_t
}

// BlockObj maps a raw block device 1:1 into the page cache: page N is
// block N. It is always a bottom object.
type BlockObj struct {
	refcount
	dev BlockDevice
}

func NewBlockObj(dev BlockDevice) *BlockObj {
	return &BlockObj{refcount: refcount{n: 1}, dev: dev}
}

func (b *BlockObj) FillPage(f *Pframe) defs.Err_t {
	return b.dev.ReadBlock(int(f.Pageno), f.kva)
}

func (b *BlockObj) CleanPage(f *Pframe) defs.Err_t {
	return b.dev.WriteBlock(int(f.Pageno), f.kva)
}

func (b *BlockObj) DirtyPage(pageno uintptr) defs.Err_t { return 0 }
func (b *BlockObj) Shadowed() Mmobj                     { return nil }
