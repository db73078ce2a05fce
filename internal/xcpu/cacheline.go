// Package xcpu exposes CPU layout facts shared by the containers in this
// module.
package xcpu

import (
	"unsafe"

	"golang.org/x/sys/cpu"
)

// LineSize is the size in bytes of a cache line on the host architecture.
// Containers use it to pad header structs so hot arrays start on their own
// line instead of sharing one with bookkeeping fields.
const LineSize = unsafe.Sizeof(cpu.CacheLinePad{})
