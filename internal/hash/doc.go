// Package hash provides the CRC32-Castagnoli checksums used for dataset
// integrity.
//
// The dataset trailer and catalog entries both carry CRC32C. Go's crc32
// package uses SSE4.2 or the ARM CRC extension when available.
//
// For one-shot checksums:
//
//	checksum := hash.CRC32C(data)
//
// For streaming checksums:
//
//	h := hash.NewCRC32C()
//	h.Write(chunk1)
//	h.Write(chunk2)
//	checksum := h.Sum32()
package hash
