// Package klog is the kernel's diagnostic logger. It replaces the old
// dbg(DBG_VFS, ...) call sites scattered through the subsystems with a
// single structured logger so fields like vnode number or block number
// show up consistently across the vm, fs, and s5fs packages.
package klog

import "github.com/sirupsen/logrus"

var log = logrus.New()

func init() {
	log.SetLevel(logrus.WarnLevel)
}

// SetVerbose turns on debug-level tracing, the equivalent of biscuit's
// DBG_VM | DBG_VFS | DBG_S5FS masks.
func SetVerbose(v bool) {
	if v {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.WarnLevel)
	}
}

// Subsystem tags diagnostic output with the subsystem it came from, the
// rough equivalent of biscuit's DBG_* bit masks.
func Subsystem(name string) *logrus.Entry {
	return log.WithField("subsys", name)
}
