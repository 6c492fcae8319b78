package s5fs

import (
	"goweenix/defs"
	"goweenix/mem"
)

// Ramdisk is an in-memory vm.BlockDevice backed by a flat slice of
// pages, used by tests in place of a real AHCI-backed disk.
type Ramdisk struct {
	blocks []mem.Page
}

func NewRamdisk(nblocks int) *Ramdisk {
	return &Ramdisk{blocks: make([]mem.Page, nblocks)}
}

func (r *Ramdisk) ReadBlock(blockno int, dst *mem.Page) defs.Err_t {
	if blockno < 0 || blockno >= len(r.blocks) {
		return -defs.EINVAL
	}
	*dst = r.blocks[blockno]
	return 0
}

func (r *Ramdisk) WriteBlock(blockno int, src *mem.Page) defs.Err_t {
	if blockno < 0 || blockno >= len(r.blocks) {
		return -defs.EINVAL
	}
	r.blocks[blockno] = *src
	return 0
}
