// Package blobstore abstracts the storage that holds packed volumes.
//
// A packed volume is two immutable blobs: a manifest and a brick data file
// read by byte extent. Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: local directory, reads through a read-only memory mapping
//   - MemoryStore: in-process map, for tests and synthetic volumes
//   - minio.Store: MinIO and other S3-compatible servers
//   - s3.Store: Amazon S3 with ranged reads and multipart uploads
package blobstore
