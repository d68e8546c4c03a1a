// Package pad provides values that sit alone on a cache line.
package pad

import "golang.org/x/sys/cpu"

// Int64 is a plain int64 padded to prevent false sharing.
// It is meant for state owned by a single goroutine, such as
// a producer's cached view of the slowest consumer.
type Int64 struct {
	_   cpu.CacheLinePad
	Val int64
	_   cpu.CacheLinePad
}
