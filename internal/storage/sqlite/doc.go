// Package sqlite persists the reference catalog and the result history.
//
// It uses modernc.org/sqlite, a pure Go SQLite implementation, so the binary
// needs no cgo for storage. Two tables matter:
//
//   - reference_records: archive photographs with their descriptors stored
//     as little-endian float32 blobs. LoadIntoIndex bulk-loads them into an
//     in-memory index.Index.
//   - results: one row per located asset, with the contributing evidence as
//     JSON. Store satisfies the pipeline's result sink.
//
// # Schema
//
// The schema is managed through numbered .up.sql migrations embedded from the
// migrations/ directory.
//
// # Thread Safety
//
// All operations are safe for concurrent use. The store keeps a single
// connection in WAL mode.
package sqlite
