package main

import (
	"testing"

	"goweenix/defs"
	"goweenix/proc"
	"goweenix/s5fs"
	"goweenix/ustr"
)

func bootTest(t *testing.T) (*Syscall_t, *proc.Proc_t) {
	dev := s5fs.NewRamdisk(256)
	p, vfs, err := Boot(dev, 256, 64, true)
	if err != 0 {
		t.Fatalf("Boot: %v", err)
	}
	return &Syscall_t{Vfs: vfs}, p
}

func TestSyscallOpenWriteReadRoundtrip(t *testing.T) {
	sc, p := bootTest(t)

	fdn := sc.sysOpen(p, ustr.Ustr("hello"), int(defs.O_CREAT|defs.O_RDWR))
	if fdn < 0 {
		t.Fatalf("open: %v", defs.Err_t(fdn))
	}

	if n := sc.sysWrite(p, fdn, []byte("hi"), 0); n != 2 {
		t.Fatalf("write = %d, want 2", n)
	}

	if rc := sc.sysClose(p, fdn); rc != 0 {
		t.Fatalf("close: %v", defs.Err_t(rc))
	}

	fdn = sc.sysOpen(p, ustr.Ustr("hello"), int(defs.O_RDONLY))
	if fdn < 0 {
		t.Fatalf("reopen: %v", defs.Err_t(fdn))
	}
	got := make([]byte, 2)
	if n := sc.sysRead(p, fdn, got, 0); n != 2 || string(got) != "hi" {
		t.Fatalf("read = %d %q, want 2 \"hi\"", n, got)
	}
}

func TestSyscallMmapAnonThenMunmap(t *testing.T) {
	sc, p := bootTest(t)

	protflags := (defs.PROT_READ | defs.PROT_WRITE) << 16
	protflags |= defs.MAP_PRIVATE | defs.MAP_ANON
	addr := sc.sysMmap(p, 0, int(defs.PGSIZE), protflags, -1, 0)
	if addr < 0 {
		t.Fatalf("mmap: %v", defs.Err_t(addr))
	}

	if rc := sc.sysMunmap(p, addr, int(defs.PGSIZE)); rc != 0 {
		t.Fatalf("munmap: %v", defs.Err_t(rc))
	}
}

func TestSyscallForkAssignsFreshPid(t *testing.T) {
	sc, p := bootTest(t)

	childPid := sc.sysFork(p)
	if childPid <= 0 {
		t.Fatalf("fork: %v", defs.Err_t(childPid))
	}
	if int32(childPid) == p.Pid {
		t.Fatalf("child pid == parent pid")
	}
}
