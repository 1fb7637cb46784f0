package common

import (
	"bytes"

	"github.com/klauspost/compress/zstd"
)

func init() {
	zstdEncoder, zstdDecoder = newZstdEncoder(), newZstdDecoder()
}

func newZstdDecoder() *zstd.Decoder {
	opts := []zstd.DOption{
		zstd.WithDecoderConcurrency(2),
		zstd.WithDecoderLowmem(true),
	}
	dec, err := zstd.NewReader(nil, opts...)
	if err != nil {
		panic(err)
	}
	return dec
}

// Snapshots are small and sent every tick, speed matters more than ratio.
func newZstdEncoder() *zstd.Encoder {
	opts := []zstd.EOption{
		zstd.WithEncoderLevel(zstd.SpeedFastest),
		zstd.WithWindowSize(1 << 16),
	}
	enc, err := zstd.NewWriter(nil, opts...)
	if err != nil {
		panic(err)
	}
	return enc
}

var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder

	CompressionVersionZero   = []byte{0, 0, 0, 0}
	CompressionVersionLatest = CompressionVersionZero
)

func Compress(b []byte) []byte {
	b = zstdEncoder.EncodeAll(b, make([]byte, 0, len(b)))
	return append(append([]byte{}, CompressionVersionLatest...), b...)
}

// Decompress returns nil for anything not produced by Compress.
func Decompress(b []byte) []byte {
	header := len(CompressionVersionLatest)
	if len(b) < header*2 {
		return nil
	}
	if !bytes.Equal(b[:header], CompressionVersionZero) {
		return nil
	}
	b, err := zstdDecoder.DecodeAll(b[header:], nil)
	if err != nil {
		return nil
	}
	return b
}
