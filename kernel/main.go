// Command kernel wires together the block device, S5FS, VFS, and the
// first process. Early boot (multiboot entry, GDT/IDT, paging bring-up)
// and the scheduler are out of scope for this core; they would hand
// control to Boot once the machine is in 32-bit protected mode with the
// kernel mapped at its high-half virtual base.
package main

import (
	"github.com/spf13/pflag"

	"goweenix/defs"
	"goweenix/fd"
	"goweenix/fdops"
	"goweenix/fs"
	"goweenix/klog"
	"goweenix/mem"
	"goweenix/proc"
	"goweenix/s5fs"
	"goweenix/stat"
	"goweenix/ustr"
	"goweenix/vm"
)

var log = klog.Subsystem("main")

// consoleOps is the minimal stand-in for a tty device so descriptors
// 0/1/2 have somewhere to go; real console/keyboard drivers are out of
// scope.
type consoleOps struct{}

func (consoleOps) Close() defs.Err_t                     { return 0 }
func (consoleOps) Reopen() defs.Err_t                    { return 0 }
func (consoleOps) Fstat(st *stat.Stat_t) defs.Err_t      { return 0 }
func (consoleOps) Lseek(int, int) (int, defs.Err_t)      { return 0, -defs.EINVAL }
func (consoleOps) Pathi() defs.Inum_t                    { return 0 }
func (consoleOps) Read(dst []uint8) (int, defs.Err_t)    { return 0, 0 }
func (consoleOps) Write(src []uint8) (int, defs.Err_t)   { return len(src), 0 }
func (consoleOps) Pread([]uint8, int) (int, defs.Err_t)  { return 0, -defs.EINVAL }
func (consoleOps) Pwrite([]uint8, int) (int, defs.Err_t) { return 0, -defs.EINVAL }

var _ fdops.Fdops_i = consoleOps{}

// Boot formats (if fresh) and mounts the root file system on dev, then
// creates the first process with fds 0/1/2 pre-opened to the console
// and its cwd at the file system root.
func Boot(dev vm.BlockDevice, nblocks, ninodes int, fresh bool) (*proc.Proc_t, *fs.Vfs, defs.Err_t) {
	pc := vm.NewPageCache(mem.NewArena(nblocks * 2))

	if fresh {
		if err := s5fs.Mkfs(dev, pc, nblocks, ninodes); err != 0 {
			return nil, nil, err
		}
	}
	sfs, err := s5fs.OpenS5Fs(dev, pc)
	if err != 0 {
		return nil, nil, err
	}

	cache := fs.NewCache(pc)
	vfs, err := fs.Mount(cache, sfs)
	if err != 0 {
		return nil, nil, err
	}

	rootVn, err := cache.Vget(sfs, sfs.RootInum())
	if err != 0 {
		return nil, nil, err
	}
	cwdFd := &fd.Fd_t{Fops: fs.NewOpenFile(cache, rootVn, fs.FMODE_READ), Perms: fd.FD_READ}
	cwd := fd.MkRootCwd(cwdFd)

	p := proc.NewProc(ustr.Ustr("init"), cwd, pc)
	for i := 0; i < 3; i++ {
		if _, err := p.FdInsert(&fd.Fd_t{Fops: consoleOps{}, Perms: fd.FD_READ | fd.FD_WRITE}); err != 0 {
			return nil, nil, err
		}
	}
	p.NewThread()

	log.Info("booted init process")
	return p, vfs, 0
}

func main() {
	nblocks := pflag.Int("nblocks", 4096, "ramdisk size in blocks")
	ninodes := pflag.Int("ninodes", 512, "inode table size")
	verbose := pflag.BoolP("verbose", "v", false, "enable verbose diagnostic logging")
	pflag.Parse()

	klog.SetVerbose(*verbose)

	dev := s5fs.NewRamdisk(*nblocks)
	_, _, err := Boot(dev, *nblocks, *ninodes, true)
	if err != 0 {
		log.Fatalf("boot: %v", err)
	}
}
