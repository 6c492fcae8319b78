package s5fs

import (
	"goweenix/defs"
	"goweenix/fs"
	"goweenix/ustr"
)

// s5FindDirent linearly scans dir's directory blocks for an entry
// named name, returning its inode number.
func (s *S5Fs) s5FindDirent(dir *fs.Vnode, name ustr.Ustr) (defs.Inum_t, defs.Err_t) {
	n := dir.Len / s5DirentSize
	buf := make([]uint8, s5DirentSize)
	for i := 0; i < n; i++ {
		if _, err := s.s5ReadFile(dir, i*s5DirentSize, buf); err != 0 {
			return 0, err
		}
		d := loadDirent(buf, 0)
		if len(d.Name) != 0 && string(d.Name) == string(name) {
			return defs.Inum_t(d.Ino), 0
		}
	}
	return 0, -defs.ENOENT
}

// s5Link writes a new directory entry (name -> target) into dir,
// reusing the first free slot if one exists, and bumps target's
// on-disk link count.
func (s *S5Fs) s5Link(dir *fs.Vnode, target defs.Inum_t, name ustr.Ustr) defs.Err_t {
	if len(name) > S5_NAME_LEN {
		return -defs.ENAMETOOLONG
	}
	if _, err := s.s5FindDirent(dir, name); err != -defs.ENOENT {
		if err == 0 {
			return -defs.EEXIST
		}
		return err
	}

	buf := make([]uint8, s5DirentSize)
	n := dir.Len / s5DirentSize
	slot := -1
	for i := 0; i < n; i++ {
		if _, err := s.s5ReadFile(dir, i*s5DirentSize, buf); err != 0 {
			return err
		}
		d := loadDirent(buf, 0)
		if d.Ino == 0 && len(d.Name) == 0 {
			slot = i
			break
		}
	}
	if slot == -1 {
		slot = n
	}

	storeDirent(buf, 0, s5Dirent{Ino: uint32(target), Name: name})
	if _, err := s.s5WriteFile(dir, slot*s5DirentSize, buf); err != 0 {
		return err
	}

	return s.bumpLinkcount(target, 1)
}

// s5RemoveDirent clears the entry named name in dir and drops
// target's link count by one. The caller (Unlink/Rmdir) is
// responsible for freeing the inode via vput if the count reaches
// zero and no vnode reference remains.
func (s *S5Fs) s5RemoveDirent(dir *fs.Vnode, name ustr.Ustr) defs.Err_t {
	buf := make([]uint8, s5DirentSize)
	n := dir.Len / s5DirentSize
	for i := 0; i < n; i++ {
		if _, err := s.s5ReadFile(dir, i*s5DirentSize, buf); err != 0 {
			return err
		}
		d := loadDirent(buf, 0)
		if len(d.Name) != 0 && string(d.Name) == string(name) {
			target := defs.Inum_t(d.Ino)
			zero := make([]uint8, s5DirentSize)
			if _, err := s.s5WriteFile(dir, i*s5DirentSize, zero); err != 0 {
				return err
			}
			return s.bumpLinkcount(target, -1)
		}
	}
	return -defs.ENOENT
}

func (s *S5Fs) bumpLinkcount(ino defs.Inum_t, delta int) defs.Err_t {
	blk, off := s5InodeBlock(int(ino)), s5InodeOffset(int(ino))

	s.mu.Lock()
	f, err := s.getBlock(blk)
	if err != 0 {
		s.mu.Unlock()
		return err
	}
	in := loadInode(f.Addr()[:], off)
	in.Linkcount = uint32(int(in.Linkcount) + delta)
	storeInode(f.Addr()[:], off, in)
	s.dirtyBlock(f)
	s.putBlock(f)
	s.mu.Unlock()
	return 0
}
