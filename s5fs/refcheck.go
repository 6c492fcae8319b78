package s5fs

import (
	"goweenix/defs"
	"goweenix/fs"
)

// CheckRefcounts walks the tree reachable from the file system's root
// and compares, for every inode it finds, how many directory entries
// actually name it against the inode's on-disk link count. It returns
// the inodes where those disagree; a healthy file system reports none.
//
// A directory's own "." entry is not counted (an empty directory has
// on-disk link count 1, not 2), and the root's reference from the
// initial Vget call is subtracted back out before comparing, since
// that reference did not come from a directory entry.
func CheckRefcounts(cache *fs.Cache, sfs *S5Fs) ([]defs.Inum_t, defs.Err_t) {
	counts := make([]int, sfs.super.Ninodes)

	root, err := cache.Vget(sfs, sfs.RootInum())
	if err != 0 {
		return nil, err
	}
	if err := calculateRefcounts(cache, sfs, counts, root); err != 0 {
		cache.Vput(root)
		return nil, err
	}
	counts[root.Ino]--
	cache.Vput(root)

	var bad []defs.Inum_t
	for ino := range counts {
		if counts[ino] == 0 {
			continue
		}
		in, f, err := sfs.readOnDiskInode(ino)
		if err != 0 {
			return nil, err
		}
		sfs.putBlock(f)
		if counts[ino] != int(in.Linkcount) {
			bad = append(bad, defs.Inum_t(ino))
		}
	}
	return bad, 0
}

// calculateRefcounts increments counts[vn.Ino] and, the first time a
// given directory is seen, recurses into every non-"." child so each
// inode's count ends up reflecting every directory entry that names
// it, transitively.
func calculateRefcounts(cache *fs.Cache, sfs *S5Fs, counts []int, vn *fs.Vnode) defs.Err_t {
	counts[vn.Ino]++
	if counts[vn.Ino] != 1 || !vn.IsDir() {
		return 0
	}

	off := 0
	for {
		name, ino, next, err := sfs.dirOps.Readdir(vn, off)
		if err != 0 {
			return err
		}
		if name == nil {
			break
		}
		if !name.Isdot() {
			child, err := cache.Vget(sfs, ino)
			if err != 0 {
				return err
			}
			if err := calculateRefcounts(cache, sfs, counts, child); err != 0 {
				cache.Vput(child)
				return err
			}
			cache.Vput(child)
		}
		off = next
	}
	return 0
}
