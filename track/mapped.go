// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package track

import (
	"fmt"

	"github.com/radixdlt/radixdlt-scrypto-sub020/codec"
	"github.com/radixdlt/radixdlt-scrypto-sub020/common"
	"github.com/radixdlt/radixdlt-scrypto-sub020/common/immutable"
)

// GetTyped reads a substate through the track and decodes it. Decoding
// failures are recorded by the track, which can then no longer be finalized
// successfully.
func GetTyped[V any](t *Track, valueCodec codec.Codec[V], node common.NodeId, partition common.PartitionNumber, key common.SubstateKey) (V, bool, error) {
	var res V
	data, found, err := t.GetSubstate(node, partition, key)
	if err != nil || !found {
		return res, false, err
	}
	res, err = valueCodec.Decode(data.ToBytes())
	if err != nil {
		return res, false, t.fail(fmt.Errorf("failed to read %v: %w", CanonicalSubstateKey{node, partition, key}, err))
	}
	return res, true, nil
}

// SetTyped encodes a value and writes it through the track.
func SetTyped[V any](t *Track, valueCodec codec.Codec[V], node common.NodeId, partition common.PartitionNumber, key common.SubstateKey, value V) error {
	data, err := valueCodec.Encode(value)
	if err != nil {
		return fmt.Errorf("failed to encode value of %v: %w", CanonicalSubstateKey{node, partition, key}, err)
	}
	return t.SetSubstate(node, partition, key, immutable.NewBytes(data))
}
