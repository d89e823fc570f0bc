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
	"bytes"
	"sort"
	"testing"

	"github.com/radixdlt/radixdlt-scrypto-sub020/backend"
	"github.com/radixdlt/radixdlt-scrypto-sub020/codec"
	"github.com/radixdlt/radixdlt-scrypto-sub020/common"
	"github.com/radixdlt/radixdlt-scrypto-sub020/common/immutable"
	"github.com/radixdlt/radixdlt-scrypto-sub020/dbkey"
)

// This fuzzer applies a random sequence of operations to a track on top of a
// pre-populated store. A shadow map mimics the visible content of the
// partition and is compared after every operation. After finalizing, the
// committed store content has to match the shadow map on success and the
// original content on failure.

type trackOpType byte

const (
	opGet trackOpType = iota
	opSet
	opRemove
	opDeletePartition
	opScan
	numTrackOps
)

const fuzzKeys = 8

func FuzzTrack_RandomOps(f *testing.F) {
	f.Add([]byte{byte(opGet), 0, 1})
	f.Add([]byte{byte(opSet), 1, byte(opGet), 1, byte(opRemove), 1, byte(opScan), 0, 1})
	f.Add([]byte{byte(opDeletePartition), 0, byte(opSet), 2, byte(opScan), 0, 0})
	f.Add([]byte{byte(opRemove), 0, byte(opSet), 0, byte(opSet), 3, byte(opDeletePartition), 0, byte(opGet), 3, 1})

	f.Fuzz(func(t *testing.T, data []byte) {
		if len(data) == 0 {
			return
		}
		success := data[len(data)-1]%2 == 1
		data = data[:len(data)-1]

		db := newTestDatabase(t)
		original := map[uint8][]byte{}
		for i := uint8(0); i < fuzzKeys; i += 2 {
			original[i] = []byte{0xA0 + i}
			store(t, db, node1, 0, common.FieldKey(i), string(original[i]))
		}
		shadow := map[uint8][]byte{}
		for k, v := range original {
			shadow[k] = v
		}

		track := NewTrack(db, nil)
		for len(data) >= 2 {
			op, arg := trackOpType(data[0]%byte(numTrackOps)), data[1]
			data = data[2:]
			key := arg % fuzzKeys
			switch op {
			case opGet:
				value, found := mustGet(t, track, node1, 0, common.FieldKey(key))
				want, exists := shadow[key]
				if found != exists || !bytes.Equal(value.ToBytes(), want) {
					t.Fatalf("get %d: got %v/%t, wanted %x/%t", key, value, found, want, exists)
				}
			case opSet:
				value := []byte{arg}
				if err := track.SetSubstate(node1, 0, common.FieldKey(key), immutable.NewBytes(value)); err != nil {
					t.Fatalf("failed to set %d: %v", key, err)
				}
				shadow[key] = value
			case opRemove:
				value, found, err := track.RemoveSubstate(node1, 0, common.FieldKey(key))
				if err != nil {
					t.Fatalf("failed to remove %d: %v", key, err)
				}
				want, exists := shadow[key]
				if found != exists || !bytes.Equal(value.ToBytes(), want) {
					t.Fatalf("remove %d: got %v/%t, wanted %x/%t", key, value, found, want, exists)
				}
				delete(shadow, key)
			case opDeletePartition:
				if err := track.DeletePartition(node1, 0); err != nil {
					t.Fatalf("failed to delete partition: %v", err)
				}
				shadow = map[uint8][]byte{}
			case opScan:
				keys, err := track.ScanKeys(node1, 0, common.FieldKind, fuzzKeys)
				if err != nil {
					t.Fatalf("failed to scan keys: %v", err)
				}
				if got, want := sortedFieldKeys(keys), sortedShadowKeys(shadow); !bytes.Equal(got, want) {
					t.Fatalf("scan: got %v, wanted %v", got, want)
				}
			}
		}

		changes, _, err := track.Finalize(success)
		if err != nil {
			t.Fatalf("failed to finalize: %v", err)
		}
		commit(t, db, changes)

		want := original
		if success {
			want = shadow
		}
		for i := uint8(0); i < fuzzKeys; i++ {
			value, found, err := backend.GetMapped[[]byte](db, dbkey.SpreadPrefixKeyMapper{}, codec.Raw{}, node1, 0, common.FieldKey(i))
			if err != nil {
				t.Fatalf("failed to read %d: %v", i, err)
			}
			expected, exists := want[i]
			if found != exists || !bytes.Equal(value, expected) {
				t.Errorf("committed %d: got %x/%t, wanted %x/%t", i, value, found, expected, exists)
			}
		}
	})
}

func sortedFieldKeys(keys []common.SubstateKey) []byte {
	res := make([]byte, 0, len(keys))
	for _, key := range keys {
		res = append(res, byte(key.(common.FieldKey)))
	}
	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })
	return res
}

func sortedShadowKeys(shadow map[uint8][]byte) []byte {
	res := make([]byte, 0, len(shadow))
	for key := range shadow {
		res = append(res, key)
	}
	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })
	return res
}
