package modloader

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// Largest depacked module accepted.
const maxDepackedSize = 64 << 20

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

var zstdDecPool = sync.Pool{
	New: func() any {
		dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxDepackedSize), zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil
		}
		return dec
	},
}

// isPacked reports whether data starts with a compression signature Load knows how to undo.
func isPacked(data []byte) bool {
	return bytes.HasPrefix(data, zstdMagic)
}

// depack decompresses a zstd-packed module in memory.
// Output larger than maxDepackedSize is rejected.
func depack(data []byte) ([]byte, error) {
	dec, ok := zstdDecPool.Get().(*zstd.Decoder)
	if !ok || dec == nil {
		return nil, fmt.Errorf("zstd decoder unavailable")
	}
	defer zstdDecPool.Put(dec)

	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decode: %w", err)
	}
	if len(out) > maxDepackedSize {
		return nil, fmt.Errorf("depacked size %d exceeds %d bytes", len(out), maxDepackedSize)
	}
	return out, nil
}
