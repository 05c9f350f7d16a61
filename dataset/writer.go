package dataset

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"hash"
	"io"
	"math"
	"os"

	"github.com/google/uuid"
	pgthash "github.com/hupe1980/predgt/internal/hash"
)

type writeOptions struct {
	compression Compression
}

// WriteOption configures the writer.
type WriteOption func(*writeOptions)

// WithCompression selects the block codec for field payloads.
func WithCompression(c Compression) WriteOption {
	return func(o *writeOptions) {
		o.compression = c
	}
}

// checksumWriter wraps an io.Writer, computing a running CRC32C and counting bytes.
type checksumWriter struct {
	w    io.Writer
	hash hash.Hash32
	n    int64
}

func newChecksumWriter(w io.Writer) *checksumWriter {
	return &checksumWriter{w: w, hash: pgthash.NewCRC32C()}
}

func (cw *checksumWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.hash.Write(p[:n])
	cw.n += int64(n)
	return n, err
}

// Write serializes ds to w and returns the number of bytes written.
// ds is validated first; nothing is written for an invalid dataset.
// A dataset without an ID is written with a fresh random one; ds itself is
// not modified.
func Write(w io.Writer, ds *Dataset, optFns ...WriteOption) (int64, error) {
	opts := writeOptions{compression: CompressionNone}
	for _, fn := range optFns {
		fn(&opts)
	}

	if err := ds.Validate(); err != nil {
		return 0, err
	}
	id := ds.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	cw := newChecksumWriter(w)

	header := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(header[0:], Magic)
	binary.LittleEndian.PutUint32(header[4:], Version)
	copy(header[8:24], id[:])
	header[24] = uint8(ds.Metric)
	header[25] = uint8(opts.compression)
	binary.LittleEndian.PutUint16(header[26:], 5)
	if _, err := cw.Write(header); err != nil {
		return cw.n, fmt.Errorf("write header: %w", err)
	}

	k := ds.K()
	fields := []struct {
		name  string
		dtype DType
		rows  int
		cols  int
		data  []byte
	}{
		{FieldTrain, DTypeFloat32, len(ds.Train), ds.Dim, encodeFloat32Rows(ds.Train, ds.Dim)},
		{FieldTrainIDs, DTypeInt64, len(ds.TrainIDs), 1, encodeInt64s(ds.TrainIDs)},
		{FieldTest, DTypeFloat32, len(ds.Test), ds.Dim, encodeFloat32Rows(ds.Test, ds.Dim)},
		{FieldTestIDs, DTypeInt32, len(ds.TestIDs), 0, encodeRagged(ds.TestIDs)},
		{FieldNeighbors, DTypeInt32, len(ds.Neighbors), k, encodeInt32Rows(ds.Neighbors, k)},
	}

	for _, f := range fields {
		block, err := compressBlock(f.data, opts.compression)
		if err != nil {
			return cw.n, fmt.Errorf("compress %s: %w", f.name, err)
		}

		meta := make([]byte, 0, 2+len(f.name)+1+16)
		meta = binary.LittleEndian.AppendUint16(meta, uint16(len(f.name)))
		meta = append(meta, f.name...)
		meta = append(meta, uint8(f.dtype))
		meta = binary.LittleEndian.AppendUint64(meta, uint64(f.rows))
		meta = binary.LittleEndian.AppendUint64(meta, uint64(f.cols))

		if _, err := cw.Write(meta); err != nil {
			return cw.n, fmt.Errorf("write %s: %w", f.name, err)
		}
		if _, err := cw.Write(block); err != nil {
			return cw.n, fmt.Errorf("write %s: %w", f.name, err)
		}
	}

	trailer := binary.LittleEndian.AppendUint32(nil, cw.hash.Sum32())
	n, err := w.Write(trailer)
	total := cw.n + int64(n)
	if err != nil {
		return total, fmt.Errorf("write trailer: %w", err)
	}
	return total, nil
}

// Encode serializes ds into memory.
func Encode(ds *Dataset, optFns ...WriteOption) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := Write(&buf, ds, optFns...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile creates or truncates path and writes ds to it.
// The file is not written atomically; on error its content is undefined.
func WriteFile(path string, ds *Dataset, optFns ...WriteOption) (int64, error) {
	if err := ds.Validate(); err != nil {
		return 0, err
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}

	bw := bufio.NewWriterSize(f, 1<<20)
	n, err := Write(bw, ds, optFns...)
	if err == nil {
		err = bw.Flush()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	return n, err
}

func encodeFloat32Rows(rows [][]float32, dim int) []byte {
	out := make([]byte, 0, len(rows)*dim*4)
	for _, row := range rows {
		for _, v := range row {
			out = binary.LittleEndian.AppendUint32(out, math.Float32bits(v))
		}
	}
	return out
}

func encodeInt64s(vals []int64) []byte {
	out := make([]byte, 0, len(vals)*8)
	for _, v := range vals {
		out = binary.LittleEndian.AppendUint64(out, uint64(v))
	}
	return out
}

func encodeInt32Rows(rows [][]int32, cols int) []byte {
	out := make([]byte, 0, len(rows)*cols*4)
	for _, row := range rows {
		for _, v := range row {
			out = binary.LittleEndian.AppendUint32(out, uint32(v))
		}
	}
	return out
}

// encodeRagged writes len(rows)+1 offsets, then the concatenated values.
func encodeRagged(rows [][]int32) []byte {
	total := 0
	for _, row := range rows {
		total += len(row)
	}

	out := make([]byte, 0, (len(rows)+1)*4+total*4)
	off := uint32(0)
	out = binary.LittleEndian.AppendUint32(out, off)
	for _, row := range rows {
		off += uint32(len(row))
		out = binary.LittleEndian.AppendUint32(out, off)
	}
	for _, row := range rows {
		for _, v := range row {
			out = binary.LittleEndian.AppendUint32(out, uint32(v))
		}
	}
	return out
}
