package vm

import (
	"sync"

	"github.com/google/btree"

	"goweenix/defs"
)

// Vmmap is the ordered, disjoint set of Vmareas making up one address
// space. Areas are kept sorted by starting page number in a btree so
// lookup, insertion, and removal all run in roughly logarithmic time
// even for an address space fragmented into many small mappings.
type Vmmap struct {
	mu   sync.Mutex
	tree *btree.BTreeG[*Vmarea]
	pc   *PageCache

	lowPage, highPage uintptr
}

func vmareaLess(a, b *Vmarea) bool { return a.Start < b.Start }

// NewVmmap creates an empty address space restricted to the page range
// [lowPage, highPage), the user portion of the virtual address space.
func NewVmmap(pc *PageCache, lowPage, highPage uintptr) *Vmmap {
	return &Vmmap{
		tree:     btree.NewG(32, vmareaLess),
		pc:       pc,
		lowPage:  lowPage,
		highPage: highPage,
	}
}

// Lookup returns the area covering page pn, if any.
func (m *Vmmap) Lookup(pn uintptr) (*Vmarea, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lookup(pn)
}

func (m *Vmmap) lookup(pn uintptr) (*Vmarea, bool) {
	var found *Vmarea
	probe := &Vmarea{Start: pn}
	m.tree.DescendLessOrEqual(probe, func(v *Vmarea) bool {
		found = v
		return false
	})
	if found != nil && found.Contains(pn) {
		return found, true
	}
	return nil, false
}

// overlapping calls f for every area that intersects [start, start+npages),
// in increasing order of Start.
func (m *Vmmap) overlapping(start, npages uintptr, f func(*Vmarea) bool) {
	end := start + npages
	// The first area that could overlap is the one whose Start is
	// immediately at or before `start`; walk forward from there.
	var from uintptr = start
	if prev, ok := m.lookup(start); ok {
		from = prev.Start
	}
	m.tree.AscendGreaterOrEqual(&Vmarea{Start: from}, func(v *Vmarea) bool {
		if v.Start >= end {
			return false
		}
		if v.End() > start {
			if !f(v) {
				return false
			}
		}
		return true
	})
}

// findGap locates npages of unused address space, searching upward from
// the bottom of the managed range. It is a simple first-fit scan; good
// enough for a teaching kernel's address space sizes.
func (m *Vmmap) findGap(npages uintptr) (uintptr, defs.Err_t) {
	cursor := m.lowPage
	var fail defs.Err_t
	m.tree.Ascend(func(v *Vmarea) bool {
		if v.Start-cursor >= npages {
			return false
		}
		if v.End() > cursor {
			cursor = v.End()
		}
		return true
	})
	if cursor+npages > m.highPage {
		fail = -defs.ENOMEM
		return 0, fail
	}
	return cursor, 0
}

// Map inserts a new area backed by obj at [start,start+npages) (when
// fixed) or at the first available gap (otherwise), unmapping any
// existing area it overlaps exactly as munmap would first. It returns
// the page number the area actually landed at.
func (m *Vmmap) Map(start, npages, off uintptr, obj Mmobj, prot, flags int, onto VnodeBacking) (uintptr, defs.Err_t) {
	if err := checkProt(prot); err != 0 {
		return 0, err
	}
	if npages == 0 {
		return 0, -defs.EINVAL
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	fixed := flags&defs.MAP_FIXED != 0
	if fixed {
		if start < m.lowPage || start+npages > m.highPage {
			return 0, -defs.EINVAL
		}
		m.removeLocked(start, npages)
	} else {
		g, err := m.findGap(npages)
		if err != 0 {
			return 0, err
		}
		start = g
	}

	m.tree.ReplaceOrInsert(&Vmarea{
		Start:  start,
		Npages: npages,
		Off:    off,
		Obj:    obj,
		Prot:   prot,
		Flags:  flags,
		Onto:   onto,
	})
	return start, 0
}

// Remove unmaps [start, start+npages), splitting or truncating any area
// that only partially overlaps the range and dropping a reference on
// the Mmobj of any area removed in full.
func (m *Vmmap) Remove(start, npages uintptr) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(start, npages)
}

func (m *Vmmap) removeLocked(start, npages uintptr) {
	end := start + npages
	var victims []*Vmarea
	m.overlapping(start, npages, func(v *Vmarea) bool {
		victims = append(victims, v)
		return true
	})

	for _, v := range victims {
		m.tree.Delete(v)

		switch {
		case v.Start >= start && v.End() <= end:
			// fully covered: drop it entirely
			DropRef(m.pc, v.Obj)

		case v.Start < start && v.End() > end:
			// the removed range is a hole in the middle: split into two
			left := v.clone(v.Obj)
			left.Npages = start - v.Start
			v.Obj.Ref() // right's reference; left keeps the one v held
			right := &Vmarea{
				Start:  end,
				Npages: v.End() - end,
				Off:    v.Off + (end - v.Start),
				Obj:    v.Obj,
				Prot:   v.Prot,
				Flags:  v.Flags,
				Onto:   v.Onto,
			}
			m.tree.ReplaceOrInsert(left)
			m.tree.ReplaceOrInsert(right)

		case v.Start < start:
			// truncate the tail
			v.Npages = start - v.Start
			m.tree.ReplaceOrInsert(v)

		default:
			// truncate the head
			shrink := end - v.Start
			v.Off += shrink
			v.Start = end
			v.Npages -= shrink
			m.tree.ReplaceOrInsert(v)
		}
	}
}

// Clone produces the child address space for fork. Every MAP_SHARED
// area is carried over with the object's refcount bumped once more;
// every MAP_PRIVATE area is reparented onto a fresh pair of shadow
// objects -- one installed in the parent's own area, one in the
// child's -- both overlaying the object the parent had mapped a moment
// ago. Neither parent nor child ever again writes directly into that
// shared ancestor: the next write on either side takes a copy-on-write
// fault into its own shadow.
func (m *Vmmap) Clone(pc *PageCache) *Vmmap {
	m.mu.Lock()
	defer m.mu.Unlock()

	child := NewVmmap(pc, m.lowPage, m.highPage)
	var reparent []*Vmarea

	m.tree.Ascend(func(v *Vmarea) bool {
		if v.Flags&defs.MAP_SHARED != 0 {
			v.Obj.Ref()
			child.tree.ReplaceOrInsert(v.clone(v.Obj))
			return true
		}
		reparent = append(reparent, v)
		return true
	})

	for _, v := range reparent {
		parentShadow := NewShadowObj(pc, v.Obj)
		childShadow := NewShadowObj(pc, v.Obj)

		m.tree.ReplaceOrInsert(v.clone(parentShadow))
		child.tree.ReplaceOrInsert(v.clone(childShadow))

		// The original object now has two new owners (both shadows) in
		// addition to whatever reference v itself was holding; drop v's
		// own reference since v no longer exists once replaced above.
		DropRef(pc, v.Obj)
	}

	return child
}

// Areas returns every area in the map, ordered by starting page.
func (m *Vmmap) Areas() []*Vmarea {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Vmarea
	m.tree.Ascend(func(v *Vmarea) bool {
		out = append(out, v)
		return true
	})
	return out
}
