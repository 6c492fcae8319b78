package s5fs

import (
	"testing"

	"goweenix/defs"
	"goweenix/fs"
	"goweenix/mem"
	"goweenix/ustr"
	"goweenix/vm"
)

const testNblocks = 256
const testNinodes = 64

func mkTestFs(t *testing.T) (*S5Fs, *fs.Cache) {
	dev := NewRamdisk(testNblocks)
	pc := vm.NewPageCache(mem.NewArena(testNblocks * 2))
	if err := Mkfs(dev, pc, testNblocks, testNinodes); err != 0 {
		t.Fatalf("Mkfs: %v", err)
	}
	sfs, err := OpenS5Fs(dev, pc)
	if err != 0 {
		t.Fatalf("OpenS5Fs: %v", err)
	}
	return sfs, fs.NewCache(pc)
}

func mustVget(t *testing.T, c *fs.Cache, f fs.FileSystem, ino defs.Inum_t) *fs.Vnode {
	vn, err := c.Vget(f, ino)
	if err != 0 {
		t.Fatalf("Vget(%d): %v", ino, err)
	}
	return vn
}

func TestMkfsRoot(t *testing.T) {
	sfs, c := mkTestFs(t)
	root := mustVget(t, c, sfs, sfs.RootInum())
	defer c.Vput(root)

	if !root.IsDir() {
		t.Fatalf("root is not a directory")
	}
	name, ino, _, err := root.Fs.OpsFor(root.Kind).Readdir(root, 0)
	if err != 0 {
		t.Fatalf("readdir .: %v", err)
	}
	if string(name) != "." || ino != 0 {
		t.Fatalf("first entry = %q/%d, want \"./0\"", name, ino)
	}
}

func TestMkdirLinkCount(t *testing.T) {
	sfs, c := mkTestFs(t)
	root := mustVget(t, c, sfs, sfs.RootInum())
	defer c.Vput(root)

	ops := sfs.OpsFor(root.Kind)
	aIno, err := ops.Mkdir(root, ustr.Ustr("a"))
	if err != 0 {
		t.Fatalf("mkdir a: %v", err)
	}
	a := mustVget(t, c, sfs, aIno)
	defer c.Vput(a)

	if in, f, err := sfs.readOnDiskInode(int(aIno)); err != 0 || in.Linkcount != 1 {
		if err == 0 {
			sfs.putBlock(f)
		}
		t.Fatalf("a linkcount = %d, want 1 (parent entry only)", in.Linkcount)
	} else {
		sfs.putBlock(f)
	}

	bIno, err := sfs.OpsFor(a.Kind).Mkdir(a, ustr.Ustr("b"))
	if err != 0 {
		t.Fatalf("mkdir a/b: %v", err)
	}
	if in, f, err := sfs.readOnDiskInode(int(aIno)); err != 0 || in.Linkcount != 2 {
		if err == 0 {
			sfs.putBlock(f)
		}
		t.Fatalf("a linkcount after mkdir b = %d, want 2 (parent entry + b's ..)", in.Linkcount)
	} else {
		sfs.putBlock(f)
	}

	if err := sfs.OpsFor(a.Kind).Rmdir(a, ustr.Ustr("b")); err != 0 {
		t.Fatalf("rmdir a/b: %v", err)
	}
	if in, f, err := sfs.readOnDiskInode(int(aIno)); err != 0 || in.Linkcount != 1 {
		if err == 0 {
			sfs.putBlock(f)
		}
		t.Fatalf("a linkcount after rmdir b = %d, want 1", in.Linkcount)
	} else {
		sfs.putBlock(f)
	}
	_ = bIno
}

func TestRmdirRefusesNonEmpty(t *testing.T) {
	sfs, c := mkTestFs(t)
	root := mustVget(t, c, sfs, sfs.RootInum())
	defer c.Vput(root)

	ops := sfs.OpsFor(root.Kind)
	aIno, err := ops.Mkdir(root, ustr.Ustr("a"))
	if err != 0 {
		t.Fatalf("mkdir a: %v", err)
	}
	a := mustVget(t, c, sfs, aIno)
	defer c.Vput(a)

	if _, err := sfs.OpsFor(a.Kind).Mkdir(a, ustr.Ustr("b")); err != 0 {
		t.Fatalf("mkdir a/b: %v", err)
	}
	if err := ops.Rmdir(root, ustr.Ustr("a")); err != -defs.ENOTEMPTY {
		t.Fatalf("rmdir non-empty a = %v, want ENOTEMPTY", err)
	}
}

func TestSparseWriteAndRead(t *testing.T) {
	sfs, c := mkTestFs(t)
	root := mustVget(t, c, sfs, sfs.RootInum())
	defer c.Vput(root)

	ops := sfs.OpsFor(root.Kind)
	fIno, err := ops.Create(root, ustr.Ustr("f"))
	if err != 0 {
		t.Fatalf("create f: %v", err)
	}
	f := mustVget(t, c, sfs, fIno)
	defer c.Vput(f)

	fops := sfs.OpsFor(f.Kind)
	at := 3 * mem.PGSIZE
	payload := []uint8("hello, sparse world")
	if n, err := fops.Write(f, at, payload); err != 0 || n != len(payload) {
		t.Fatalf("write at %d: n=%d err=%v", at, n, err)
	}

	hole := make([]uint8, mem.PGSIZE)
	if n, err := fops.Read(f, 0, hole); err != 0 || n != mem.PGSIZE {
		t.Fatalf("read hole: n=%d err=%v", n, err)
	}
	for i, b := range hole {
		if b != 0 {
			t.Fatalf("hole byte %d = %d, want 0", i, b)
		}
	}

	got := make([]uint8, len(payload))
	if n, err := fops.Read(f, at, got); err != 0 || n != len(payload) {
		t.Fatalf("read payload: n=%d err=%v", n, err)
	}
	if string(got) != string(payload) {
		t.Fatalf("read payload = %q, want %q", got, payload)
	}
}

func TestRemountPreservesContent(t *testing.T) {
	dev := NewRamdisk(testNblocks)
	pc := vm.NewPageCache(mem.NewArena(testNblocks * 2))
	if err := Mkfs(dev, pc, testNblocks, testNinodes); err != 0 {
		t.Fatalf("Mkfs: %v", err)
	}

	sfs1, err := OpenS5Fs(dev, pc)
	if err != 0 {
		t.Fatalf("OpenS5Fs: %v", err)
	}
	c1 := fs.NewCache(pc)
	root1 := mustVget(t, c1, sfs1, sfs1.RootInum())
	fIno, err := sfs1.OpsFor(root1.Kind).Create(root1, ustr.Ustr("persist"))
	if err != 0 {
		t.Fatalf("create: %v", err)
	}
	f1 := mustVget(t, c1, sfs1, fIno)
	if _, err := sfs1.OpsFor(f1.Kind).Write(f1, 0, []uint8("durable")); err != 0 {
		t.Fatalf("write: %v", err)
	}
	// Vput flushes each vnode's content as its last reference drops;
	// only the file system's own cached metadata (superblock, free
	// lists, inode blocks) needs an explicit Sync before the "remount".
	c1.Vput(f1)
	c1.Vput(root1)
	if err := sfs1.Sync(); err != 0 {
		t.Fatalf("sync metadata: %v", err)
	}

	// simulate a remount against a fresh page cache over the same device.
	pc2 := vm.NewPageCache(mem.NewArena(testNblocks * 2))
	sfs2, err := OpenS5Fs(dev, pc2)
	if err != 0 {
		t.Fatalf("reopen: %v", err)
	}
	c2 := fs.NewCache(pc2)
	root2 := mustVget(t, c2, sfs2, sfs2.RootInum())
	defer c2.Vput(root2)

	ino, err := sfs2.OpsFor(root2.Kind).Lookup(root2, ustr.Ustr("persist"))
	if err != 0 {
		t.Fatalf("lookup persist: %v", err)
	}
	f2 := mustVget(t, c2, sfs2, ino)
	defer c2.Vput(f2)

	got := make([]uint8, len("durable"))
	if _, err := sfs2.OpsFor(f2.Kind).Read(f2, 0, got); err != 0 {
		t.Fatalf("read after remount: %v", err)
	}
	if string(got) != "durable" {
		t.Fatalf("read after remount = %q, want %q", got, "durable")
	}
}

func TestCheckRefcountsHealthyTree(t *testing.T) {
	sfs, c := mkTestFs(t)
	root := mustVget(t, c, sfs, sfs.RootInum())
	defer c.Vput(root)

	dirOps := sfs.OpsFor(root.Kind)
	aIno, err := dirOps.Mkdir(root, ustr.Ustr("a"))
	if err != 0 {
		t.Fatalf("mkdir a: %v", err)
	}
	a := mustVget(t, c, sfs, aIno)
	defer c.Vput(a)

	if _, err := sfs.OpsFor(a.Kind).Mkdir(a, ustr.Ustr("b")); err != 0 {
		t.Fatalf("mkdir a/b: %v", err)
	}

	bad, err := CheckRefcounts(c, sfs)
	if err != 0 {
		t.Fatalf("CheckRefcounts: %v", err)
	}
	if len(bad) != 0 {
		t.Fatalf("CheckRefcounts on a healthy tree reported mismatches: %v", bad)
	}
}

func TestCheckRefcountsCatchesCorruption(t *testing.T) {
	sfs, c := mkTestFs(t)
	root := mustVget(t, c, sfs, sfs.RootInum())
	defer c.Vput(root)

	aIno, err := sfs.OpsFor(root.Kind).Mkdir(root, ustr.Ustr("a"))
	if err != 0 {
		t.Fatalf("mkdir a: %v", err)
	}

	if err := sfs.bumpLinkcount(aIno, 1); err != 0 {
		t.Fatalf("corrupt linkcount: %v", err)
	}

	bad, err := CheckRefcounts(c, sfs)
	if err != 0 {
		t.Fatalf("CheckRefcounts: %v", err)
	}
	if len(bad) != 1 || bad[0] != aIno {
		t.Fatalf("CheckRefcounts = %v, want [%d]", bad, aIno)
	}
}
