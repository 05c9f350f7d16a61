// Package mmap provides read-only memory-mapped file access.
//
//	m, err := mmap.Open("dataset.pgt")
//	if err != nil { ... }
//	defer m.Close()
//
//	data := m.Bytes() // valid until Close
package mmap
