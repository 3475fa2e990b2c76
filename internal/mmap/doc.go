// Package mmap maps brick data files read-only so a local volume can serve
// payload extents without a copy through kernel buffers.
//
// On Unix the mapping uses mmap(2) and honors madvise(2) hints; on Windows it
// uses MapViewOfFile and hints are ignored. A Mapping may be read from many
// goroutines; no slice obtained from it may be used after Close.
package mmap
