// Command mkfs builds a standalone S5FS disk image: formatted once by
// this tool and booted from repeatedly, instead of the kernel always
// formatting a fresh ramdisk on every boot.
package main

import (
	iofs "io/fs"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"

	"goweenix/defs"
	"goweenix/fs"
	"goweenix/klog"
	"goweenix/mem"
	"goweenix/s5fs"
	"goweenix/ustr"
	"goweenix/vm"
)

var log = klog.Subsystem("mkfs")

// fileDevice is a vm.BlockDevice backed by a regular host file, one
// S5_BLOCK_SIZE-byte block per mem.PGSIZE-sized slot.
type fileDevice struct {
	f *os.File
}

func openFileDevice(path string) (*fileDevice, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	return &fileDevice{f: f}, nil
}

func (d *fileDevice) ReadBlock(blockno int, dst *mem.Page) defs.Err_t {
	if _, err := d.f.ReadAt(dst[:], int64(blockno)*int64(mem.PGSIZE)); err != nil {
		log.WithError(err).Warnf("read block %d", blockno)
		return -defs.EIO
	}
	return 0
}

func (d *fileDevice) WriteBlock(blockno int, src *mem.Page) defs.Err_t {
	if _, err := d.f.WriteAt(src[:], int64(blockno)*int64(mem.PGSIZE)); err != nil {
		log.WithError(err).Warnf("write block %d", blockno)
		return -defs.EIO
	}
	return 0
}

func main() {
	out := pflag.String("out", "s5fs.img", "path of the image file to create")
	nblocks := pflag.Int("nblocks", 4096, "image size in blocks")
	ninodes := pflag.Int("ninodes", 512, "inode table size")
	seed := pflag.String("seed", "", "optional directory tree to copy into the image root")
	verbose := pflag.BoolP("verbose", "v", false, "enable verbose diagnostic logging")
	pflag.Parse()

	klog.SetVerbose(*verbose)

	if err := run(*out, *nblocks, *ninodes, *seed); err != nil {
		log.Fatalf("mkfs: %+v", err)
	}
}

func run(out string, nblocks, ninodes int, seed string) error {
	dev, err := openFileDevice(out)
	if err != nil {
		return err
	}
	defer dev.f.Close()

	pc := vm.NewPageCache(mem.NewArena(nblocks * 2))
	if errt := s5fs.Mkfs(dev, pc, nblocks, ninodes); errt != 0 {
		return errors.Errorf("s5fs.Mkfs: %v", errt)
	}

	sfs, errt := s5fs.OpenS5Fs(dev, pc)
	if errt != 0 {
		return errors.Errorf("s5fs.OpenS5Fs: %v", errt)
	}

	cache := fs.NewCache(pc)
	root, errt := cache.Vget(sfs, sfs.RootInum())
	if errt != 0 {
		return errors.Errorf("vget root: %v", errt)
	}
	defer cache.Vput(root)

	if seed != "" {
		if err := seedTree(cache, sfs, root, seed); err != nil {
			return errors.Wrapf(err, "seed %s", seed)
		}
	}

	if errt := sfs.Sync(); errt != 0 {
		return errors.Errorf("sync: %v", errt)
	}
	log.Infof("wrote %s (%d blocks, %d inodes)", out, nblocks, ninodes)
	return nil
}

// seedTree walks dir on the host file system and recreates it, file
// contents and all, as children of root inside the image. WalkDir
// visits a directory before its children, so vnodes stays populated
// with every ancestor a later entry needs by the time it is reached.
func seedTree(cache *fs.Cache, sfs *s5fs.S5Fs, root *fs.Vnode, dir string) error {
	vnodes := map[string]*fs.Vnode{".": root}
	defer func() {
		for rel, vn := range vnodes {
			if rel != "." {
				cache.Vput(vn)
			}
		}
	}()

	return filepath.WalkDir(dir, func(path string, d iofs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == dir {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}

		parent := vnodes[filepath.Dir(rel)]
		ops := sfs.OpsFor(parent.Kind)
		name := ustr.Ustr(d.Name())

		if d.IsDir() {
			ino, errt := ops.Mkdir(parent, name)
			if errt != 0 {
				return errors.Errorf("mkdir %s: %v", rel, errt)
			}
			vn, errt := cache.Vget(sfs, ino)
			if errt != 0 {
				return errors.Errorf("vget %s: %v", rel, errt)
			}
			vnodes[rel] = vn
			return nil
		}

		ino, errt := ops.Create(parent, name)
		if errt != 0 {
			return errors.Errorf("create %s: %v", rel, errt)
		}
		vn, errt := cache.Vget(sfs, ino)
		if errt != 0 {
			return errors.Errorf("vget %s: %v", rel, errt)
		}
		defer cache.Vput(vn)

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if _, errt := sfs.OpsFor(vn.Kind).Write(vn, 0, data); errt != 0 {
			return errors.Errorf("write %s: %v", rel, errt)
		}
		return nil
	})
}
