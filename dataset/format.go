package dataset

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// Magic identifies dataset files (ASCII "PGT1" on disk).
	Magic uint32 = 0x31544750
	// Version is the current file format version.
	Version uint32 = 1

	// headerSize is magic + version + id + metric + compression + field count.
	headerSize = 4 + 4 + 16 + 1 + 1 + 2
	// trailerSize is the CRC32 of everything before it.
	trailerSize = 4
)

// Field names. They are the compatibility contract with dataset consumers.
const (
	FieldTrain     = "train"
	FieldTrainIDs  = "train_ids"
	FieldTest      = "test"
	FieldTestIDs   = "test_ids"
	FieldNeighbors = "neighbors"
)

// DType is the element type of a field.
type DType uint8

const (
	DTypeFloat32 DType = 1
	DTypeInt64   DType = 2
	DTypeInt32   DType = 3
)

func (d DType) String() string {
	switch d {
	case DTypeFloat32:
		return "float32"
	case DTypeInt64:
		return "int64"
	case DTypeInt32:
		return "int32"
	default:
		return fmt.Sprintf("dtype(%d)", uint8(d))
	}
}

// Size returns the element width in bytes.
func (d DType) Size() int {
	switch d {
	case DTypeFloat32, DTypeInt32:
		return 4
	case DTypeInt64:
		return 8
	default:
		return 0
	}
}

// Compression selects the block codec for field payloads.
type Compression uint8

const (
	// CompressionNone stores payloads raw.
	CompressionNone Compression = 0
	// CompressionLZ4 uses LZ4 block compression (fast).
	CompressionLZ4 Compression = 1
	// CompressionZSTD uses ZSTD block compression (better ratio).
	CompressionZSTD Compression = 2
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

// ParseCompression parses "none", "lz4" or "zstd".
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZSTD, nil
	default:
		return 0, fmt.Errorf("unsupported compression %q", s)
	}
}

var (
	ErrInvalidMagic   = errors.New("invalid magic number")
	ErrInvalidVersion = errors.New("unsupported version")
	ErrChecksum       = errors.New("checksum mismatch")
	ErrTruncated      = errors.New("truncated dataset")
	ErrMissingField   = errors.New("missing field")
	ErrInvalidShape   = errors.New("invalid shape")
)

// ShapeError reports a field whose shape violates the layout contract.
type ShapeError struct {
	Field  string
	Reason string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("field %q: %s", e.Field, e.Reason)
}

func (e *ShapeError) Unwrap() error { return ErrInvalidShape }

func shapeErrorf(field, format string, args ...any) error {
	return &ShapeError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
