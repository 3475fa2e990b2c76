// Package compress encodes and decodes stored brick payloads.
//
// Every encoded brick starts with an 8 byte header:
//
//	[UncompressedSize uint32][CompressedSize uint32][Data...]
//
// CompressedSize == 0 means the data is stored raw.
package compress

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/hupe1980/brickstream/model"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

const headerSize = 8

var (
	// ErrCorrupt is returned when an encoded brick cannot be decoded.
	ErrCorrupt = errors.New("compress: corrupt brick")
)

// ZSTD encoder/decoder pools for efficiency
var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func putZstdEncoder(enc *zstd.Encoder) {
	zstdEncoderPool.Put(enc)
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

func putZstdDecoder(dec *zstd.Decoder) {
	zstdDecoderPool.Put(dec)
}

// Encode compresses data with the given algorithm and prepends the header.
// If compression does not help (ratio > 0.9) the data is stored raw.
func Encode(data []byte, c model.Compression) ([]byte, error) {
	var compressed []byte
	var err error

	switch c {
	case model.CompressionNone:
	case model.CompressionLZ4:
		compressed, err = encodeLZ4(data)
	case model.CompressionZSTD:
		compressed = encodeZSTD(data)
	default:
		return nil, fmt.Errorf("compress: unsupported compression %s", c)
	}
	if err != nil {
		return nil, err
	}

	if len(compressed) == 0 || float64(len(compressed)) > float64(len(data))*0.9 {
		out := make([]byte, headerSize+len(data))
		binary.LittleEndian.PutUint32(out[0:], uint32(len(data)))
		binary.LittleEndian.PutUint32(out[4:], 0)
		copy(out[headerSize:], data)
		return out, nil
	}

	out := make([]byte, headerSize+len(compressed))
	binary.LittleEndian.PutUint32(out[0:], uint32(len(data)))
	binary.LittleEndian.PutUint32(out[4:], uint32(len(compressed)))
	copy(out[headerSize:], compressed)
	return out, nil
}

func encodeLZ4(data []byte) ([]byte, error) {
	compressed := make([]byte, lz4.CompressBlockBound(len(data)))
	n, err := lz4.CompressBlock(data, compressed, nil)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil // Incompressible
	}
	return compressed[:n], nil
}

func encodeZSTD(data []byte) []byte {
	enc := getZstdEncoder()
	defer putZstdEncoder(enc)
	return enc.EncodeAll(data, nil)
}

// Decode reverses Encode. The returned slice is owned by the caller.
func Decode(data []byte, c model.Compression) ([]byte, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the header", ErrCorrupt, len(data))
	}

	rawSize := binary.LittleEndian.Uint32(data[0:])
	compressedSize := binary.LittleEndian.Uint32(data[4:])

	if compressedSize == 0 {
		if uint64(len(data)) < headerSize+uint64(rawSize) {
			return nil, fmt.Errorf("%w: truncated raw brick", ErrCorrupt)
		}
		out := make([]byte, rawSize)
		copy(out, data[headerSize:])
		return out, nil
	}

	if uint64(len(data)) < headerSize+uint64(compressedSize) {
		return nil, fmt.Errorf("%w: truncated compressed brick", ErrCorrupt)
	}
	body := data[headerSize : headerSize+compressedSize]

	switch c {
	case model.CompressionLZ4:
		out := make([]byte, rawSize)
		n, err := lz4.UncompressBlock(body, out)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		if uint32(n) != rawSize {
			return nil, fmt.Errorf("%w: decompressed size mismatch", ErrCorrupt)
		}
		return out, nil

	case model.CompressionZSTD:
		dec := getZstdDecoder()
		defer putZstdDecoder(dec)

		out, err := dec.DecodeAll(body, make([]byte, 0, rawSize))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		if uint32(len(out)) != rawSize {
			return nil, fmt.Errorf("%w: decompressed size mismatch", ErrCorrupt)
		}
		return out, nil

	default:
		return nil, fmt.Errorf("%w: compressed body with compression %s", ErrCorrupt, c)
	}
}
