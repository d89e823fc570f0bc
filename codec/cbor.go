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
	"github.com/fxamacker/cbor/v2"
)

var cborEncMode = func() cbor.EncMode {
	mode, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return mode
}()

// Cbor encodes values using the core deterministic CBOR encoding.
type Cbor[V any] struct{}

func (Cbor[V]) Encode(value V) ([]byte, error) {
	return cborEncMode.Marshal(value)
}

func (Cbor[V]) Decode(data []byte) (V, error) {
	var res V
	if err := cbor.Unmarshal(data, &res); err != nil {
		return res, &DecodeError{Codec: "cbor", Data: data, Err: err}
	}
	return res, nil
}
