// Package trampoline hands out small regions of executable memory for
// generated call adapters.
//
// A Pool is a bump allocator over fixed-size pages. Regions are never
// reclaimed individually; Close releases every page at once.
//
//	pool := trampoline.NewPool()
//	defer pool.Close()
//
//	region, err := pool.Allocate(128)
//	err = pool.Write(region, code)
//	// region.Addr is now callable
//
// # Page Sources
//
// On Linux the default PageSource maps each page twice from a memfd: once
// read-write for the emitter and once read-execute for callers, so no
// mapping is ever writable and executable at the same time. AnonSource maps
// a single read-write-execute page for systems without memfd.
//
// # Instruction Cache
//
// On arm64 freshly written code must be cleaned from the data cache and
// invalidated in the instruction cache before it runs. Pool.Write calls the
// configured CacheFlusher over every written region.
package trampoline
