// Package dataset serializes predicate-filtered ground-truth datasets.
//
// A dataset file is a self-describing binary container of named fields:
//
//	train      n × p  float32   corpus vectors
//	train_ids  n      int64     group identifier per corpus vector
//	test       x × p  float32   query vectors
//	test_ids   x × *  int32     predicate set per query (variable length)
//	neighbors  x × k  int32     neighbor corpus indices, -1 padded
//
// Layout (little endian):
//
//	header   magic "PGT1" | version | dataset id (16) | metric | compression | field count
//	field    name len (u16) | name | dtype (u8) | rows (u64) | cols (u64, 0 = variable) | block
//	block    raw size (u64) | stored size (u64, 0 = raw) | bytes
//	trailer  CRC32C of all preceding bytes
//
// Variable-length fields store rows+1 uint32 offsets followed by the values.
package dataset

import (
	"github.com/google/uuid"
	"github.com/hupe1980/predgt/distance"
)

// Sentinel marks a neighbor slot without a neighbor.
const Sentinel int32 = -1

// Dataset is the immutable bundle written once per generation run.
type Dataset struct {
	ID     uuid.UUID
	Metric distance.Metric
	Dim    int

	Train     [][]float32
	TrainIDs  []int64
	Test      [][]float32
	TestIDs   [][]int32
	Neighbors [][]int32
}

// K returns the neighbor row width, or 0 without queries.
func (d *Dataset) K() int {
	if len(d.Neighbors) == 0 {
		return 0
	}
	return len(d.Neighbors[0])
}

// Dimension returns the vector dimensionality.
func (d *Dataset) Dimension() int { return d.Dim }

// NumTrainVectors returns the corpus size.
func (d *Dataset) NumTrainVectors() int { return len(d.Train) }

// TrainVectors returns the corpus vectors.
func (d *Dataset) TrainVectors() [][]float32 { return d.Train }

// TrainFilters returns the group identifier of every corpus vector.
func (d *Dataset) TrainFilters() []int64 { return d.TrainIDs }

// TestVectors returns the query vectors.
func (d *Dataset) TestVectors() [][]float32 { return d.Test }

// TestFilters returns the predicate set of every query.
func (d *Dataset) TestFilters() [][]int32 { return d.TestIDs }

// NeighborRows returns the neighbor matrix.
func (d *Dataset) NeighborRows() [][]int32 { return d.Neighbors }

// Validate checks the layout contract: consistent dimensionality and row
// counts, fixed-width neighbor rows, non-empty duplicate-free predicate sets,
// and neighbor entries that are either Sentinel or a corpus index.
//
// Predicate identifiers are not range-checked here; that is a generation-time
// concern.
func (d *Dataset) Validate() error {
	if d.Dim <= 0 {
		return shapeErrorf(FieldTrain, "dimension must be positive, got %d", d.Dim)
	}

	n := len(d.Train)
	for i, v := range d.Train {
		if len(v) != d.Dim {
			return shapeErrorf(FieldTrain, "row %d has %d components, want %d", i, len(v), d.Dim)
		}
	}
	if len(d.TrainIDs) != n {
		return shapeErrorf(FieldTrainIDs, "%d entries for %d train vectors", len(d.TrainIDs), n)
	}

	x := len(d.Test)
	for i, v := range d.Test {
		if len(v) != d.Dim {
			return shapeErrorf(FieldTest, "row %d has %d components, want %d", i, len(v), d.Dim)
		}
	}

	if len(d.TestIDs) != x {
		return shapeErrorf(FieldTestIDs, "%d rows for %d queries", len(d.TestIDs), x)
	}
	for i, row := range d.TestIDs {
		if len(row) == 0 {
			return shapeErrorf(FieldTestIDs, "row %d is empty", i)
		}
		seen := make(map[int32]struct{}, len(row))
		for _, g := range row {
			if _, dup := seen[g]; dup {
				return shapeErrorf(FieldTestIDs, "row %d repeats identifier %d", i, g)
			}
			seen[g] = struct{}{}
		}
	}

	if len(d.Neighbors) != x {
		return shapeErrorf(FieldNeighbors, "%d rows for %d queries", len(d.Neighbors), x)
	}
	k := d.K()
	for i, row := range d.Neighbors {
		if len(row) != k {
			return shapeErrorf(FieldNeighbors, "row %d has %d entries, want %d", i, len(row), k)
		}
		for _, id := range row {
			if id != Sentinel && (id < 0 || int(id) >= n) {
				return shapeErrorf(FieldNeighbors, "row %d references corpus index %d outside [0,%d)", i, id, n)
			}
		}
	}

	return nil
}
