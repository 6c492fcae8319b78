package proc

import (
	"sync/atomic"

	"goweenix/defs"
	"goweenix/fd"
	"goweenix/vm"
)

// DoFork implements fork(2): it clones parent's address space, file
// table, and current thread into a brand new process, as specified by
// the copy-on-write protocol in Vmmap.Clone -- every private area gets
// a fresh shadow in both parent and child, so a write on either side
// never becomes visible to the other.
//
// On any failure after the child process is allocated, everything
// acquired so far (duplicated descriptors) is released and the error
// is returned; parent is left untouched.
func DoFork(parent *Proc_t) (*Proc_t, defs.Err_t) {
	child := &Proc_t{
		Pid:       nextPid(),
		Name:      parent.Name,
		PageTable: vm.NewPageTable(),
		pc:        parent.pc,
	}

	child.Vm = parent.Vm.Clone(parent.pc)

	var copied []int
	parent.fdmu.Lock()
	for i := range parent.Fds {
		f := parent.Fds[i]
		if f == nil {
			continue
		}
		nf, err := fd.Copyfd(f)
		if err != 0 {
			parent.fdmu.Unlock()
			rollback(child, copied)
			return nil, err
		}
		child.Fds[i] = nf
		copied = append(copied, i)
	}
	parent.fdmu.Unlock()

	if parent.Cwd != nil {
		ncwdfd, err := fd.Copyfd(parent.Cwd.Fd)
		if err != 0 {
			rollback(child, copied)
			return nil, err
		}
		child.Cwd = &fd.Cwd_t{Fd: ncwdfd, Path: parent.Cwd.Path}
	}

	child.Heap = parent.Heap

	// The parent's user page-table entries now point at objects a
	// fresh shadow sits in front of; drop every PTE so the parent
	// refaults through the new shadow on its next access, exactly as
	// the child will on its own (entirely empty) page table.
	parent.PageTable.Reset()

	cloneThread(parent, child)

	return child, 0
}

func rollback(child *Proc_t, copied []int) {
	for _, i := range copied {
		child.Fds[i].Fops.Close()
	}
}

// cloneThread lays out the child's first thread so that, on first
// schedule, it resumes in user mode at the same place the parent's
// current thread was about to: a real kernel builds a trampoline frame
// on the new kernel stack that pops the saved user registers; this
// stand-in just copies the parent thread's saved context onto the
// child's own kernel stack and page table.
func cloneThread(parent, child *Proc_t) {
	parent.thmu.Lock()
	var cur *Thread_t
	if len(parent.Threads) > 0 {
		cur = parent.Threads[len(parent.Threads)-1]
	}
	parent.thmu.Unlock()

	t := child.NewThread()
	if cur != nil {
		t.Eip = cur.Eip
		t.Esp = cur.Esp
	}
}

func nextPid() int32 {
	return atomic.AddInt32(&pidCounter, 1)
}
