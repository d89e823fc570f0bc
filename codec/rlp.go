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
	"github.com/ethereum/go-ethereum/rlp"
)

// Rlp encodes values using Ethereum's recursive length prefix encoding. It
// supports structs, byte slices, strings, and unsigned integers.
type Rlp[V any] struct{}

func (Rlp[V]) Encode(value V) ([]byte, error) {
	return rlp.EncodeToBytes(value)
}

func (Rlp[V]) Decode(data []byte) (V, error) {
	var res V
	if err := rlp.DecodeBytes(data, &res); err != nil {
		return res, &DecodeError{Codec: "rlp", Data: data, Err: err}
	}
	return res, nil
}
