package blobstore

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrAlreadyRegistered is returned when a dataset id is already present in a catalog.
var ErrAlreadyRegistered = errors.New("blobstore: dataset already registered")

// Publication describes one published dataset.
type Publication struct {
	DatasetID string
	Name      string
	URI       string
	Metric    string
	N         int
	P         int
	X         int
	K         int
	Size      int64
	Checksum  uint32
	CreatedAt time.Time
}

// Catalog records publications so consumers can discover them by dataset id.
type Catalog interface {
	Register(ctx context.Context, pub Publication) error
	Lookup(ctx context.Context, datasetID string) (Publication, error)
}

// MemoryCatalog is an in-memory Catalog for testing.
type MemoryCatalog struct {
	mu   sync.RWMutex
	pubs map[string]Publication
}

// NewMemoryCatalog creates an empty catalog.
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{pubs: make(map[string]Publication)}
}

// Register adds pub, failing with ErrAlreadyRegistered on a duplicate id.
func (c *MemoryCatalog) Register(_ context.Context, pub Publication) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.pubs[pub.DatasetID]; ok {
		return ErrAlreadyRegistered
	}
	c.pubs[pub.DatasetID] = pub
	return nil
}

// Lookup returns the publication for datasetID or ErrNotFound.
func (c *MemoryCatalog) Lookup(_ context.Context, datasetID string) (Publication, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	pub, ok := c.pubs[datasetID]
	if !ok {
		return Publication{}, ErrNotFound
	}
	return pub, nil
}
