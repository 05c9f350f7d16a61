package dataset

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"math/bits"

	"github.com/hupe1980/predgt/distance"
	pgthash "github.com/hupe1980/predgt/internal/hash"
	"github.com/hupe1980/predgt/internal/mmap"
)

// Open memory-maps the dataset file at path and decodes it.
// The returned Dataset does not reference the mapping.
func Open(path string) (*Dataset, error) {
	m, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	defer m.Close()

	return Decode(m.Bytes())
}

// Read decodes a dataset from r.
func Read(r io.Reader) (*Dataset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

// Decode verifies the checksum of data and decodes the dataset it holds.
// Fields with unknown names are skipped.
func Decode(data []byte) (*Dataset, error) {
	if len(data) < headerSize+trailerSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrTruncated, len(data))
	}

	if magic := binary.LittleEndian.Uint32(data[0:]); magic != Magic {
		return nil, fmt.Errorf("%w: got 0x%08x", ErrInvalidMagic, magic)
	}
	if version := binary.LittleEndian.Uint32(data[4:]); version != Version {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidVersion, version)
	}

	body := data[:len(data)-trailerSize]
	want := binary.LittleEndian.Uint32(data[len(data)-trailerSize:])
	if got := pgthash.CRC32C(body); got != want {
		return nil, fmt.Errorf("%w: stored 0x%08x, computed 0x%08x", ErrChecksum, want, got)
	}

	ds := &Dataset{}
	copy(ds.ID[:], data[8:24])
	ds.Metric = distance.Metric(data[24])
	compression := Compression(data[25])
	fieldCount := int(binary.LittleEndian.Uint16(data[26:]))

	seen := make(map[string]bool, fieldCount)
	pos := headerSize
	for range fieldCount {
		f, n, err := decodeField(body[pos:], compression)
		if err != nil {
			return nil, err
		}
		pos += n

		if err := ds.assign(f); err != nil {
			return nil, err
		}
		seen[f.name] = true
	}

	for _, name := range []string{FieldTrain, FieldTrainIDs, FieldTest, FieldTestIDs, FieldNeighbors} {
		if !seen[name] {
			return nil, fmt.Errorf("%w: %s", ErrMissingField, name)
		}
	}

	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return ds, nil
}

type field struct {
	name    string
	dtype   DType
	rows    int
	cols    int
	payload []byte
}

func decodeField(data []byte, c Compression) (field, int, error) {
	var f field

	if len(data) < 2 {
		return f, 0, fmt.Errorf("%w: field name", ErrTruncated)
	}
	nameLen := int(binary.LittleEndian.Uint16(data))
	pos := 2
	if len(data) < pos+nameLen+1+16 {
		return f, 0, fmt.Errorf("%w: field header", ErrTruncated)
	}
	f.name = string(data[pos : pos+nameLen])
	pos += nameLen
	f.dtype = DType(data[pos])
	pos++
	rows := binary.LittleEndian.Uint64(data[pos:])
	cols := binary.LittleEndian.Uint64(data[pos+8:])
	pos += 16

	payload, n, err := decompressBlock(data[pos:], c)
	if err != nil {
		return f, 0, fmt.Errorf("field %q: %w", f.name, err)
	}
	f.payload = payload
	pos += n

	if err := checkFieldSize(f.name, f.dtype, rows, cols, len(payload)); err != nil {
		return f, 0, err
	}
	f.rows = int(rows)
	f.cols = int(cols)

	return f, pos, nil
}

// checkFieldSize bounds the header counts by the payload they describe, so
// no allocation is sized from an unchecked count.
func checkFieldSize(name string, dtype DType, rows, cols uint64, payloadLen int) error {
	size := uint64(dtype.Size())
	if size == 0 {
		return shapeErrorf(name, "unknown dtype %v", dtype)
	}
	have := uint64(payloadLen)

	if cols == 0 {
		// Variable rows: rows+1 offsets precede the values.
		if rows >= have/4 {
			return shapeErrorf(name, "payload has %d bytes, too small for %d rows", payloadLen, rows)
		}
		return nil
	}

	hi, cells := bits.Mul64(rows, cols)
	hi2, want := bits.Mul64(cells, size)
	if hi != 0 || hi2 != 0 || want != have {
		return shapeErrorf(name, "payload has %d bytes, shape %dx%d does not match", payloadLen, rows, cols)
	}
	if cols > math.MaxInt32 {
		return shapeErrorf(name, "%d columns", cols)
	}
	return nil
}

func (d *Dataset) assign(f field) error {
	expect := func(dtype DType) error {
		if f.dtype != dtype {
			return shapeErrorf(f.name, "dtype %v, want %v", f.dtype, dtype)
		}
		return nil
	}

	switch f.name {
	case FieldTrain, FieldTest:
		if err := expect(DTypeFloat32); err != nil {
			return err
		}
		if d.Dim != 0 && d.Dim != f.cols {
			return shapeErrorf(f.name, "dimension %d, other field has %d", f.cols, d.Dim)
		}
		d.Dim = f.cols
		rows := decodeFloat32Rows(f.payload, f.rows, f.cols)
		if f.name == FieldTrain {
			d.Train = rows
		} else {
			d.Test = rows
		}

	case FieldTrainIDs:
		if err := expect(DTypeInt64); err != nil {
			return err
		}
		if f.cols != 1 {
			return shapeErrorf(f.name, "%d columns, want 1", f.cols)
		}
		d.TrainIDs = decodeInt64s(f.payload, f.rows)

	case FieldTestIDs:
		if err := expect(DTypeInt32); err != nil {
			return err
		}
		rows, err := decodeRagged(f.payload, f.rows)
		if err != nil {
			return err
		}
		d.TestIDs = rows

	case FieldNeighbors:
		if err := expect(DTypeInt32); err != nil {
			return err
		}
		d.Neighbors = decodeInt32Rows(f.payload, f.rows, f.cols)
	}

	return nil
}

func decodeFloat32Rows(b []byte, rows, cols int) [][]float32 {
	data := make([]float32, rows*cols)
	for i := range data {
		data[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	out := make([][]float32, rows)
	for i := range out {
		out[i] = data[i*cols : (i+1)*cols : (i+1)*cols]
	}
	return out
}

func decodeInt64s(b []byte, n int) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = int64(binary.LittleEndian.Uint64(b[i*8:]))
	}
	return out
}

func decodeInt32Rows(b []byte, rows, cols int) [][]int32 {
	data := make([]int32, rows*cols)
	for i := range data {
		data[i] = int32(binary.LittleEndian.Uint32(b[i*4:]))
	}
	out := make([][]int32, rows)
	for i := range out {
		out[i] = data[i*cols : (i+1)*cols : (i+1)*cols]
	}
	return out
}

func decodeRagged(b []byte, rows int) ([][]int32, error) {
	offBytes := (rows + 1) * 4
	if len(b) < offBytes {
		return nil, shapeErrorf(FieldTestIDs, "payload too small for %d offsets", rows+1)
	}

	offsets := make([]uint32, rows+1)
	for i := range offsets {
		offsets[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	total := int(offsets[rows])
	if offsets[0] != 0 || len(b) != offBytes+total*4 {
		return nil, shapeErrorf(FieldTestIDs, "offsets do not match payload size")
	}

	values := make([]int32, total)
	for i := range values {
		values[i] = int32(binary.LittleEndian.Uint32(b[offBytes+i*4:]))
	}

	out := make([][]int32, rows)
	for i := range out {
		lo, hi := offsets[i], offsets[i+1]
		if lo > hi || int(hi) > total {
			return nil, shapeErrorf(FieldTestIDs, "row %d has invalid offsets [%d,%d)", i, lo, hi)
		}
		out[i] = values[lo:hi:hi]
	}
	return out, nil
}
