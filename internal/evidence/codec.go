// Copyright (c) 2026 DEX-OS Team
// DEX-OS Trust Core - audit evidence and security management
// This source code is licensed under the MIT license found in the LICENSE file.

package evidence

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// codec compresses stored content. EncodeAll and DecodeAll are safe for
// concurrent use, so one codec serves the whole store.
type codec struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func newCodec() (*codec, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("could not create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		_ = enc.Close()
		return nil, fmt.Errorf("could not create zstd decoder: %w", err)
	}
	return &codec{enc: enc, dec: dec}, nil
}

func (c *codec) compress(content []byte) []byte {
	return c.enc.EncodeAll(content, make([]byte, 0, len(content)/2+16))
}

func (c *codec) decompress(stored []byte) ([]byte, error) {
	return c.dec.DecodeAll(stored, nil)
}

func (c *codec) close() {
	_ = c.enc.Close()
	c.dec.Close()
}
