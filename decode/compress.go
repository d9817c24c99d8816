package decode

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"sync"

	snappy "github.com/eapache/go-xerial-snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Decompressor unwraps one record payload.
type Decompressor func(data []byte) ([]byte, error)

// Supported compression schemes.
const (
	SchemeNone   = "none"
	SchemeGzip   = "gzip"
	SchemeSnappy = "snappy"
	SchemeLZ4    = "lz4"
	SchemeZstd   = "zstd"
)

// KnownScheme reports whether name is a scheme this package can unwrap.
// The empty string means uncompressed.
func KnownScheme(name string) bool {
	switch name {
	case "", SchemeNone, SchemeGzip, SchemeSnappy, SchemeLZ4, SchemeZstd:
		return true
	}
	return false
}

func forScheme(name string) (Decompressor, error) {
	switch name {
	case "", SchemeNone:
		return func(data []byte) ([]byte, error) { return data, nil }, nil
	case SchemeGzip:
		return gunzip, nil
	case SchemeSnappy:
		return snappy.Decode, nil
	case SchemeLZ4:
		return unlz4, nil
	case SchemeZstd:
		return unzstd, nil
	}
	return nil, fmt.Errorf("decode: unsupported compression scheme %q", name)
}

func gunzip(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func unlz4(data []byte) ([]byte, error) {
	return io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
}

// A single zstd decoder handles all payloads; DecodeAll is safe for
// concurrent use.
var (
	zstdOnce    sync.Once
	zstdDecoder *zstd.Decoder
	zstdErr     error
)

func unzstd(data []byte) ([]byte, error) {
	zstdOnce.Do(func() {
		zstdDecoder, zstdErr = zstd.NewReader(nil)
	})
	if zstdErr != nil {
		return nil, zstdErr
	}
	return zstdDecoder.DecodeAll(data, nil)
}
