// Package mmap provides anonymous off-heap memory mappings.
//
// The bigarray allocator obtains its backing storage through MapAnon so
// that large per-bucket accumulator arrays live outside the Go garbage
// collector's control. Mappings are created read-write, demand-paged by
// the kernel, and released explicitly via Close.
//
// # Platform Support
//
//   - Unix (Linux, macOS, BSD): mmap(2) with MAP_ANON|MAP_PRIVATE
//   - Windows: VirtualAlloc with MEM_RESERVE|MEM_COMMIT
//
// # Thread Safety
//
// A Mapping is safe for concurrent read access. Close is idempotent and
// protected by an atomic flag, but callers must ensure no goroutine
// touches Bytes() after Close returns.
package mmap
