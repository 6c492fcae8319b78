// Package fdops defines the operation vector behind an open file
// descriptor. Regular files, directories, and (eventually) other
// descriptor kinds all implement the same small interface; dispatch
// from the syscall layer is through this vector, not a type switch.
package fdops

import (
	"goweenix/defs"
	"goweenix/stat"
)

type Fdops_i interface {
	Close() defs.Err_t
	Fstat(*stat.Stat_t) defs.Err_t
	Lseek(off int, whence int) (int, defs.Err_t)
	Pathi() defs.Inum_t

	Read(dst []uint8) (int, defs.Err_t)
	Write(src []uint8) (int, defs.Err_t)
	Pread(dst []uint8, off int) (int, defs.Err_t)
	Pwrite(src []uint8, off int) (int, defs.Err_t)

	// Reopen is called with the owning process's fd-table lock held,
	// when a descriptor is duplicated by dup or survives a fork.
	Reopen() defs.Err_t
}

// Seek whence values, matching lseek(2).
const (
	SEEK_SET = 0
	SEEK_CUR = 1
	SEEK_END = 2
)
