// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package codec

import (
	"bytes"

	"github.com/vmihailenco/msgpack/v5"
)

// Msgpack encodes values using MessagePack. Map keys are sorted to keep the
// encoding deterministic.
type Msgpack[V any] struct{}

func (Msgpack[V]) Encode(value V) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(value); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (Msgpack[V]) Decode(data []byte) (V, error) {
	var res V
	if err := msgpack.Unmarshal(data, &res); err != nil {
		return res, &DecodeError{Codec: "msgpack", Data: data, Err: err}
	}
	return res, nil
}
