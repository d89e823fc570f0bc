// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package codec defines the boundary between typed substate values and the
// opaque byte payloads kept by the substate store.
package codec

import (
	"fmt"
)

// Codec converts values of type V to and from their payload encoding.
// Encodings must be deterministic: equal values produce equal payloads.
type Codec[V any] interface {
	Encode(value V) ([]byte, error)
	Decode(data []byte) (V, error)
}

// DecodeError reports a payload that could not be decoded. It carries the
// offending bytes for diagnosis. A decode error signals corrupted or
// incompatible ledger content and is fatal to the transaction observing it.
type DecodeError struct {
	Codec string
	Data  []byte
	Err   error
}

func (e *DecodeError) Error() string {
	const maxShown = 64
	data := e.Data
	suffix := ""
	if len(data) > maxShown {
		data, suffix = data[:maxShown], "..."
	}
	return fmt.Sprintf("failed to decode %s payload 0x%x%s: %v", e.Codec, data, suffix, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Raw is the identity codec for callers operating on payload bytes.
type Raw struct{}

func (Raw) Encode(value []byte) ([]byte, error) {
	return value, nil
}

func (Raw) Decode(data []byte) ([]byte, error) {
	return data, nil
}
