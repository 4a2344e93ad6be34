// Package transport frames aggregation result sets for the wire: a
// self-describing header, a codec-encoded payload with per-result type
// tags, optional block compression and a checksum.
package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/hupe1980/aggo/aggregate"
	"github.com/hupe1980/aggo/codec"
)

// Compression selects the payload compression algorithm.
type Compression uint8

const (
	// CompressionNone stores the payload as-is.
	CompressionNone Compression = 0
	// CompressionLZ4 uses LZ4 block compression (fast, good for hot paths).
	CompressionLZ4 Compression = 1
	// CompressionZSTD uses ZSTD block compression (better ratio).
	CompressionZSTD Compression = 2
)

var (
	envelopeMagic   = [4]byte{'A', 'G', 'E', '0'}
	envelopeVersion = uint8(1)
)

var (
	// ErrBadEnvelope reports a structurally invalid envelope.
	ErrBadEnvelope = errors.New("transport: malformed envelope")
	// ErrChecksum reports payload corruption.
	ErrChecksum = errors.New("transport: payload checksum mismatch")
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

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

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// Options configure one Encode call.
type Options struct {
	Codec       codec.Codec
	Compression Compression
}

// Option customizes encoding.
type Option func(*Options)

// WithCodec selects the payload codec. Defaults to codec.Default.
func WithCodec(c codec.Codec) Option {
	return func(o *Options) { o.Codec = c }
}

// WithCompression selects the payload compression.
func WithCompression(c Compression) Option {
	return func(o *Options) { o.Compression = c }
}

// Encode frames a result set. The envelope records the codec name, so
// Decode needs no out-of-band configuration.
//
// Layout: magic | version | compression | len(codec) | codec |
// rawLen uint32 | payloadLen uint32 | payload | crc32c(payload).
func Encode(aggs aggregate.Internals, opts ...Option) ([]byte, error) {
	o := Options{Codec: codec.Default, Compression: CompressionNone}
	for _, opt := range opts {
		opt(&o)
	}

	raw, err := o.Codec.Marshal(aggs)
	if err != nil {
		return nil, fmt.Errorf("transport: encode payload: %w", err)
	}

	payload, compression, err := compress(raw, o.Compression)
	if err != nil {
		return nil, err
	}

	name := o.Codec.Name()
	out := make([]byte, 0, 7+len(name)+8+len(payload)+4)
	out = append(out, envelopeMagic[:]...)
	out = append(out, envelopeVersion, byte(compression), byte(len(name)))
	out = append(out, name...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(raw)))
	out = binary.LittleEndian.AppendUint32(out, uint32(len(payload)))
	out = append(out, payload...)
	out = binary.LittleEndian.AppendUint32(out, crc32.Checksum(payload, castagnoli))
	return out, nil
}

func compress(raw []byte, c Compression) ([]byte, Compression, error) {
	switch c {
	case CompressionNone:
		return raw, CompressionNone, nil
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(raw)))
		n, err := lz4.CompressBlock(raw, buf, nil)
		if err != nil {
			return nil, 0, fmt.Errorf("transport: lz4 compress: %w", err)
		}
		if n == 0 {
			// Incompressible, store raw.
			return raw, CompressionNone, nil
		}
		return buf[:n], CompressionLZ4, nil
	case CompressionZSTD:
		enc := getZstdEncoder()
		defer zstdEncoderPool.Put(enc)
		return enc.EncodeAll(raw, nil), CompressionZSTD, nil
	default:
		return nil, 0, fmt.Errorf("transport: unknown compression %d", c)
	}
}

// Decode reconstructs a typed result set from an envelope.
func Decode(data []byte) (aggregate.Internals, error) {
	if len(data) < 7 || [4]byte(data[:4]) != envelopeMagic {
		return nil, ErrBadEnvelope
	}
	if data[4] != envelopeVersion {
		return nil, fmt.Errorf("transport: unsupported envelope version %d", data[4])
	}
	compression := Compression(data[5])
	nameLen := int(data[6])

	rest := data[7:]
	if len(rest) < nameLen+8 {
		return nil, ErrBadEnvelope
	}
	name := string(rest[:nameLen])
	rest = rest[nameLen:]

	rawLen := binary.LittleEndian.Uint32(rest[0:4])
	payloadLen := binary.LittleEndian.Uint32(rest[4:8])
	rest = rest[8:]
	if uint32(len(rest)) < payloadLen+4 {
		return nil, ErrBadEnvelope
	}
	payload := rest[:payloadLen]

	sum := binary.LittleEndian.Uint32(rest[payloadLen : payloadLen+4])
	if crc32.Checksum(payload, castagnoli) != sum {
		return nil, ErrChecksum
	}

	raw, err := decompress(payload, compression, rawLen)
	if err != nil {
		return nil, err
	}

	c, ok := codec.ByName(name)
	if !ok {
		return nil, fmt.Errorf("transport: unknown codec [%s]", name)
	}

	var aggs aggregate.Internals
	if err := c.Unmarshal(raw, &aggs); err != nil {
		return nil, fmt.Errorf("transport: decode payload: %w", err)
	}
	return aggs, nil
}

func decompress(payload []byte, c Compression, rawLen uint32) ([]byte, error) {
	switch c {
	case CompressionNone:
		return payload, nil
	case CompressionLZ4:
		raw := make([]byte, rawLen)
		n, err := lz4.UncompressBlock(payload, raw)
		if err != nil {
			return nil, fmt.Errorf("transport: lz4 decompress: %w", err)
		}
		if uint32(n) != rawLen {
			return nil, ErrBadEnvelope
		}
		return raw, nil
	case CompressionZSTD:
		dec := getZstdDecoder()
		defer zstdDecoderPool.Put(dec)
		raw, err := dec.DecodeAll(payload, make([]byte, 0, rawLen))
		if err != nil {
			return nil, fmt.Errorf("transport: zstd decompress: %w", err)
		}
		if uint32(len(raw)) != rawLen {
			return nil, ErrBadEnvelope
		}
		return raw, nil
	default:
		return nil, fmt.Errorf("transport: unknown compression %d", c)
	}
}
