package dataset

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// ZSTD encoder/decoder pools for efficiency
var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() (*zstd.Encoder, error) {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder), nil
	}
	return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
}

func putZstdEncoder(enc *zstd.Encoder) {
	zstdEncoderPool.Put(enc)
}

func getZstdDecoder() (*zstd.Decoder, error) {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder), nil
	}
	return zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxBlockSize))
}

func putZstdDecoder(dec *zstd.Decoder) {
	zstdDecoderPool.Put(dec)
}

// blockHeader precedes every field payload.
// Format: [RawSize uint64][StoredSize uint64][Data...]
// StoredSize == 0 means the payload is stored raw.
const blockHeaderSize = 16

// maxBlockSize bounds the decoded size of a single block.
const maxBlockSize = 1 << 34

// lz4MaxRatio is the largest expansion an LZ4 block can encode.
const lz4MaxRatio = 255

// compressBlock frames data as a block, compressed with c when that saves at
// least 10%.
func compressBlock(data []byte, c Compression) ([]byte, error) {
	var compressed []byte
	var err error

	switch c {
	case CompressionNone:
	case CompressionLZ4:
		compressed, err = compressLZ4(data)
	case CompressionZSTD:
		compressed, err = compressZSTD(data)
	default:
		return nil, fmt.Errorf("unsupported compression: %v", c)
	}
	if err != nil {
		return nil, err
	}

	if len(compressed) == 0 || float64(len(compressed)) > float64(len(data))*0.9 {
		out := make([]byte, blockHeaderSize+len(data))
		binary.LittleEndian.PutUint64(out[0:], uint64(len(data)))
		binary.LittleEndian.PutUint64(out[8:], 0)
		copy(out[blockHeaderSize:], data)
		return out, nil
	}

	out := make([]byte, blockHeaderSize+len(compressed))
	binary.LittleEndian.PutUint64(out[0:], uint64(len(data)))
	binary.LittleEndian.PutUint64(out[8:], uint64(len(compressed)))
	copy(out[blockHeaderSize:], compressed)
	return out, nil
}

func compressLZ4(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	dst := make([]byte, lz4.CompressBlockBound(len(data)))

	n, err := lz4.CompressBlock(data, dst, nil)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil // Incompressible
	}
	return dst[:n], nil
}

func compressZSTD(data []byte) ([]byte, error) {
	enc, err := getZstdEncoder()
	if err != nil {
		return nil, err
	}
	defer putZstdEncoder(enc)

	return enc.EncodeAll(data, nil), nil
}

// decompressBlock reads one block from data and returns the payload and the
// number of bytes consumed.
func decompressBlock(data []byte, c Compression) ([]byte, int, error) {
	if len(data) < blockHeaderSize {
		return nil, 0, fmt.Errorf("%w: block header", ErrTruncated)
	}

	rawSize := binary.LittleEndian.Uint64(data[0:])
	storedSize := binary.LittleEndian.Uint64(data[8:])
	body := data[blockHeaderSize:]

	if storedSize == 0 {
		if uint64(len(body)) < rawSize {
			return nil, 0, fmt.Errorf("%w: raw block", ErrTruncated)
		}
		return body[:rawSize], blockHeaderSize + int(rawSize), nil
	}

	if uint64(len(body)) < storedSize {
		return nil, 0, fmt.Errorf("%w: compressed block", ErrTruncated)
	}
	compressed := body[:storedSize]
	consumed := blockHeaderSize + int(storedSize)

	if rawSize > maxBlockSize {
		return nil, 0, fmt.Errorf("%w: block of %d bytes exceeds limit", ErrInvalidShape, rawSize)
	}

	switch c {
	case CompressionLZ4:
		if rawSize > storedSize*lz4MaxRatio+16 {
			return nil, 0, fmt.Errorf("%w: %d compressed bytes cannot hold %d", ErrTruncated, storedSize, rawSize)
		}
		out := make([]byte, rawSize)
		n, err := lz4.UncompressBlock(compressed, out)
		if err != nil {
			return nil, 0, err
		}
		if uint64(n) != rawSize {
			return nil, 0, errors.New("decompressed size mismatch")
		}
		return out, consumed, nil

	case CompressionZSTD:
		dec, err := getZstdDecoder()
		if err != nil {
			return nil, 0, err
		}
		defer putZstdDecoder(dec)

		out, err := dec.DecodeAll(compressed, nil)
		if err != nil {
			return nil, 0, err
		}
		if uint64(len(out)) != rawSize {
			return nil, 0, errors.New("decompressed size mismatch")
		}
		return out, consumed, nil

	default:
		return nil, 0, fmt.Errorf("compressed block with compression %v", c)
	}
}
