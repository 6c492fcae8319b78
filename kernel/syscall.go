package main

import (
	"goweenix/defs"
	"goweenix/fd"
	"goweenix/fs"
	"goweenix/proc"
	"goweenix/ustr"
	"goweenix/vm"
)

// Syscall_t dispatches the core syscall subset onto a process: open,
// close, read, write, mmap, munmap, fork. Argument validation happens
// here; the work is delegated to fs, vm, and proc. Decoding a trap
// frame's raw register bank into these typed arguments is the
// out-of-scope interrupt-entry primitive; Sys* methods take the
// already-decoded values a real entry stub would have produced.
type Syscall_t struct {
	Vfs *fs.Vfs
}

// cwdVnode returns the directory vnode a relative open should resolve
// against; p's cwd descriptor always wraps a directory OpenFile.
func cwdVnode(p *proc.Proc_t) *fs.Vnode {
	return p.Cwd.Fd.Fops.(*fs.OpenFile).Vnode()
}

func (s *Syscall_t) sysOpen(p *proc.Proc_t, path ustr.Ustr, flags int) int {
	of, err := s.Vfs.DoOpen(path, defs.Fdopt_t(flags), cwdVnode(p))
	if err != 0 {
		return int(err)
	}
	perms := fd.FD_READ
	switch defs.Fdopt_t(flags) & 3 {
	case defs.O_WRONLY:
		perms = fd.FD_WRITE
	case defs.O_RDWR:
		perms = fd.FD_READ | fd.FD_WRITE
	}
	fdn, err := p.FdInsert(&fd.Fd_t{Fops: of, Perms: perms})
	if err != 0 {
		of.Close()
		return int(err)
	}
	return fdn
}

func (s *Syscall_t) sysClose(p *proc.Proc_t, fdn int) int {
	f, ok := p.FdClose(fdn)
	if !ok {
		return int(-defs.EBADF)
	}
	return int(f.Fops.Close())
}

func (s *Syscall_t) sysRead(p *proc.Proc_t, fdn int, dst []uint8, _ int) int {
	f, ok := p.FdGet(fdn)
	if !ok {
		return int(-defs.EBADF)
	}
	n, err := f.Fops.Read(dst)
	if err != 0 {
		return int(err)
	}
	return n
}

func (s *Syscall_t) sysWrite(p *proc.Proc_t, fdn int, src []uint8, _ int) int {
	f, ok := p.FdGet(fdn)
	if !ok {
		return int(-defs.EBADF)
	}
	n, err := f.Fops.Write(src)
	if err != 0 {
		return int(err)
	}
	return n
}

func (s *Syscall_t) sysMmap(p *proc.Proc_t, addrn, lenn, protflags, fdn, off int) int {
	prot := protflags >> 16
	flags := protflags & 0xffff

	var onto vm.VnodeBacking
	if flags&defs.MAP_ANON == 0 {
		f, ok := p.FdGet(fdn)
		if !ok {
			return int(-defs.EBADF)
		}
		of, ok := f.Fops.(*fs.OpenFile)
		if !ok {
			return int(-defs.EACCES)
		}
		if f.Perms&fd.FD_READ == 0 {
			return int(-defs.EACCES)
		}
		if prot&defs.PROT_WRITE != 0 {
			if flags&defs.MAP_SHARED != 0 && of.Mode()&fs.FMODE_WRITE == 0 {
				return int(-defs.EACCES)
			}
			if of.Mode()&fs.FMODE_APPEND != 0 {
				return int(-defs.EACCES)
			}
		}
		onto = of.Vnode()
	}

	addr, err := vm.DoMmap(p.Vm, p.PageCache(), uintptr(addrn), uintptr(lenn), prot, flags, onto, uintptr(off))
	if err != 0 {
		return int(err)
	}
	return int(addr)
}

func (s *Syscall_t) sysMunmap(p *proc.Proc_t, addrn, lenn int) int {
	return int(vm.DoMunmap(p.Vm, uintptr(addrn), uintptr(lenn)))
}

func (s *Syscall_t) sysFork(p *proc.Proc_t) int {
	child, err := proc.DoFork(p)
	if err != 0 {
		return int(err)
	}
	return int(child.Pid)
}
