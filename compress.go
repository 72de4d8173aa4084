/*
 * Copyright 2025 ChronoDB Project Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package chronodb

import (
	"fmt"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
)

// Compression selects the codec applied to request bodies. The codec name is
// sent as the Content-Encoding header.
type Compression string

const (
	CompressionNone   Compression = "identity"
	CompressionZstd   Compression = "zstd"
	CompressionSnappy Compression = "snappy"
)

// zstdEncoder and zstdDecoder are safe for concurrent EncodeAll/DecodeAll use.
var (
	zstdEncoder, _ = zstd.NewWriter(nil)
	zstdDecoder, _ = zstd.NewReader(nil)
)

// compressBody encodes the body with the configured codec and returns the
// encoded bytes. Identity returns the body unchanged.
func compressBody(c Compression, body []byte) ([]byte, error) {
	switch c {
	case CompressionNone, "":
		return body, nil
	case CompressionZstd:
		return zstdEncoder.EncodeAll(body, nil), nil
	case CompressionSnappy:
		return snappy.Encode(nil, body), nil
	default:
		return nil, fmt.Errorf("unrecognized compression: %s", c)
	}
}

// decompressBody reverses compressBody. The server does this on its side;
// the client only needs it for loopback tests.
func decompressBody(c Compression, body []byte) ([]byte, error) {
	switch c {
	case CompressionNone, "":
		return body, nil
	case CompressionZstd:
		return zstdDecoder.DecodeAll(body, nil)
	case CompressionSnappy:
		return snappy.Decode(nil, body)
	default:
		return nil, fmt.Errorf("unrecognized compression: %s", c)
	}
}
