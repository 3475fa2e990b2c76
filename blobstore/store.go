package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist. It maps to
// os.ErrNotExist so errors.Is works with either.
var ErrNotFound = os.ErrNotExist

// BlobStore provides named, immutable blobs.
type BlobStore interface {
	// Open opens a blob for reading.
	Open(ctx context.Context, name string) (Blob, error)
	// Create starts a streaming write. The blob becomes visible on Close.
	Create(ctx context.Context, name string) (WritableBlob, error)
	// Put writes a whole blob atomically.
	Put(ctx context.Context, name string, data []byte) error
	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error
	// List returns the sorted names that start with prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Blob is a read-only handle to a stored blob.
type Blob interface {
	ReadAt(ctx context.Context, p []byte, off int64) (int, error)
	Size() int64
	Close() error
}

// WritableBlob is a blob being written.
type WritableBlob interface {
	io.WriteCloser
	// Abort discards everything written so far.
	Abort() error
}

// Mappable is implemented by blobs that can hand out extents without copying.
type Mappable interface {
	// Extent returns the bytes in [off, off+n). The slice is valid until the
	// blob is closed and must not be modified.
	Extent(off int64, n int) ([]byte, error)
}

// ReadExtent reads exactly n bytes at off. Mappable blobs return a view of
// their memory; other blobs return a fresh buffer.
func ReadExtent(ctx context.Context, b Blob, off int64, n int) ([]byte, error) {
	if m, ok := b.(Mappable); ok {
		return m.Extent(off, n)
	}

	buf := make([]byte, n)
	read, err := b.ReadAt(ctx, buf, off)
	if read == n {
		return buf, nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return nil, fmt.Errorf("read %d bytes at %d: %w", n, off, err)
}

// ReadAll reads a whole blob by name.
func ReadAll(ctx context.Context, s BlobStore, name string) ([]byte, error) {
	b, err := s.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	data, err := ReadExtent(ctx, b, 0, int(b.Size()))
	if err != nil {
		return nil, err
	}
	if _, ok := b.(Mappable); ok {
		// Mapped views die with the blob.
		data = append([]byte(nil), data...)
	}
	return data, nil
}
