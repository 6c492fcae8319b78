// Package limits collects the fixed-capacity numbers the rest of the
// kernel is sized against: vnode cache bucket count, process table
// bucket count, and block-cache page count.
package limits

type Syslimit_t struct {
	// vnode cache hash table bucket count
	Vnodes int
	// process table bucket count
	Sysprocs int
	// simultaneous block-cache pages
	Blocks int
}

var Syslimit *Syslimit_t = mkSysLimit()

func mkSysLimit() *Syslimit_t {
	return &Syslimit_t{
		Vnodes:   4096,
		Sysprocs: 1024,
		Blocks:   16384,
	}
}
