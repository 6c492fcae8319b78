package s5fs

import (
	"goweenix/defs"
	"goweenix/fs"
	"goweenix/stat"
	"goweenix/vm"
)

// s5PageOps implements the fs.VnodeOps page-cache hooks shared by
// directory and regular-file vnodes alike: both kinds of file store
// their content as S5FS data blocks addressed the same way.
type s5PageOps struct {
	fs *S5Fs
}

// FillPage reads the disk block backing offset into f, or zero-fills
// f for a sparse hole (a byte range never written).
func (p *s5PageOps) FillPage(vn *fs.Vnode, offset int, f *vm.Pframe) defs.Err_t {
	bn, err := p.fs.s5SeekToBlock(vn, offset, false)
	if err != 0 {
		return err
	}
	if bn == s5NoBlock {
		*f.Addr() = [S5_BLOCK_SIZE]uint8{}
		return 0
	}
	return p.fs.dev.ReadBlock(int(bn), f.Addr())
}

// DirtyPage ensures the region at offset is backed by an allocated
// block before the caller's write proceeds, turning a sparse hole
// into a real (zeroed) block.
func (p *s5PageOps) DirtyPage(vn *fs.Vnode, offset int) defs.Err_t {
	_, err := p.fs.s5SeekToBlock(vn, offset, true)
	return err
}

// CleanPage writes a dirty page back to its block.
func (p *s5PageOps) CleanPage(vn *fs.Vnode, offset int, f *vm.Pframe) defs.Err_t {
	bn, err := p.fs.s5SeekToBlock(vn, offset, true)
	if err != 0 {
		return err
	}
	return p.fs.dev.WriteBlock(int(bn), f.Addr())
}

// stat fills in the common fields of a stat(2) result; the caller
// supplies the mode's type bits (S_IFDIR / S_IFREG).
func (p *s5PageOps) stat(vn *fs.Vnode, modeBits uint, st *stat.Stat_t) defs.Err_t {
	in, f, err := p.fs.readOnDiskInode(int(vn.Ino))
	if err != 0 {
		return err
	}
	p.fs.putBlock(f)

	st.Wino(uint(vn.Ino))
	st.Wmode(modeBits)
	st.Wsize(uint(vn.Len))
	st.Wnlink(uint(in.Linkcount) + 1) // +1 for this live vnode's own reference
	st.Wblksize(uint(S5_BLOCK_SIZE))
	st.Wblocks(uint(s5InodeBlocks(vn.Len)))
	return 0
}

func s5InodeBlocks(size int) int {
	direct := (size + S5_BLOCK_SIZE - 1) / S5_BLOCK_SIZE
	if direct == 0 {
		return 0
	}
	if direct <= S5_NDIRECT_BLOCKS {
		return direct
	}
	return direct + 1 // plus the indirect block itself
}
