package s5fs

import (
	"goweenix/ustr"
	"goweenix/util"
)

const s5DirentSize = 4 + S5_NAME_LEN

// s5Dirent is a fixed-size directory entry: a 4-byte inode number
// followed by a null-padded name. An entry with an empty name is free.
// Ino == 0 on its own does not mark a free entry: the root is inode 0,
// so the root's "." and "..", and the ".." of every directory made in
// the root, name it.
type s5Dirent struct {
	Ino  uint32
	Name ustr.Ustr
}

func loadDirent(blk []uint8, off int) s5Dirent {
	ino := uint32(util.Readn(blk, 4, off))
	name := ustr.MkUstrSlice(blk[off+4 : off+s5DirentSize])
	cp := make(ustr.Ustr, len(name))
	copy(cp, name)
	return s5Dirent{Ino: ino, Name: cp}
}

func storeDirent(blk []uint8, off int, d s5Dirent) {
	util.Writen(blk, 4, off, int(d.Ino))
	nameField := blk[off+4 : off+s5DirentSize]
	for i := range nameField {
		nameField[i] = 0
	}
	copy(nameField, d.Name)
}

func directsPerBlock() int { return S5_BLOCK_SIZE / s5DirentSize }
