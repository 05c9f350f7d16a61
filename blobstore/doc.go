// Package blobstore publishes generated datasets to a location consumers
// can fetch them from.
//
// Store is the interface every backend implements; implementations must be
// safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: a directory on the local file system
//   - MemoryStore: in-process, for tests
//   - s3.Store: Amazon S3 with multipart uploads
//   - minio.Store: MinIO and other S3-compatible services
package blobstore
