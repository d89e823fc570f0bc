// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package dbkey

import (
	"bytes"

	"github.com/radixdlt/radixdlt-scrypto-sub020/common"
)

// HashPrefixLength is the number of hash bytes prepended to spread keys.
const HashPrefixLength = 20

const sortPrefixLength = 2

// SpreadPrefixKeyMapper prefixes keys with a truncated blake2b hash of
// themselves. Keys chosen by callers, which may be adversarial, are thereby
// distributed uniformly across the key space, while the original key remains
// recoverable by stripping the prefix. Field keys are passed through as they
// are selected from a small fixed set. Sorted keys keep their sort prefix
// in front of the hash to preserve iteration order across prefixes.
type SpreadPrefixKeyMapper struct{}

func (SpreadPrefixKeyMapper) ToDbPartitionKey(node common.NodeId, partition common.PartitionNumber) common.DbPartitionKey {
	key := make([]byte, 0, common.NodeIdLength+1)
	key = append(key, node[:]...)
	key = append(key, byte(partition))
	return common.DbPartitionKey(toHashPrefixed(key))
}

func (SpreadPrefixKeyMapper) FromDbPartitionKey(key common.DbPartitionKey) (common.NodeId, common.PartitionNumber) {
	raw := fromHashPrefixed(key)
	if len(raw) != common.NodeIdLength+1 {
		malformed("partition key %x has %d bytes after the hash prefix, expected %d", []byte(key), len(raw), common.NodeIdLength+1)
	}
	var node common.NodeId
	copy(node[:], raw)
	return node, common.PartitionNumber(raw[common.NodeIdLength])
}

func (m SpreadPrefixKeyMapper) ToDbSortKey(key common.SubstateKey) common.DbSortKey {
	switch key := key.(type) {
	case common.FieldKey:
		return m.FieldToDbSortKey(key)
	case common.MapKey:
		return m.MapToDbSortKey(key)
	case common.SortedKey:
		return m.SortedToDbSortKey(key)
	}
	panic("unsupported substate key type")
}

func (m SpreadPrefixKeyMapper) FromDbSortKey(key common.DbSortKey, kind common.SubstateKeyKind) common.SubstateKey {
	switch kind {
	case common.FieldKind:
		return m.FieldFromDbSortKey(key)
	case common.MapKind:
		return m.MapFromDbSortKey(key)
	case common.SortedKind:
		return m.SortedFromDbSortKey(key)
	}
	malformed("unknown substate key kind %v", kind)
	return nil
}

func (SpreadPrefixKeyMapper) FieldToDbSortKey(key common.FieldKey) common.DbSortKey {
	return common.DbSortKey{byte(key)}
}

func (SpreadPrefixKeyMapper) FieldFromDbSortKey(key common.DbSortKey) common.FieldKey {
	if len(key) != 1 {
		malformed("field sort key %x has %d bytes, expected 1", []byte(key), len(key))
	}
	return common.FieldKey(key[0])
}

func (SpreadPrefixKeyMapper) MapToDbSortKey(key common.MapKey) common.DbSortKey {
	return common.DbSortKey(toHashPrefixed(key))
}

func (SpreadPrefixKeyMapper) MapFromDbSortKey(key common.DbSortKey) common.MapKey {
	return common.MapKey(fromHashPrefixed(key))
}

func (SpreadPrefixKeyMapper) SortedToDbSortKey(key common.SortedKey) common.DbSortKey {
	res := make([]byte, 0, sortPrefixLength+HashPrefixLength+len(key.Key))
	res = append(res, key.Prefix[:]...)
	res = append(res, toHashPrefixed(key.Key)...)
	return common.DbSortKey(res)
}

func (SpreadPrefixKeyMapper) SortedFromDbSortKey(key common.DbSortKey) common.SortedKey {
	if len(key) < sortPrefixLength {
		malformed("sorted sort key %x is shorter than the sort prefix", []byte(key))
	}
	res := common.SortedKey{Key: fromHashPrefixed(key[sortPrefixLength:])}
	copy(res.Prefix[:], key[:sortPrefixLength])
	return res
}

func toHashPrefixed(key []byte) []byte {
	hash := common.Blake2b256(key)
	res := make([]byte, 0, HashPrefixLength+len(key))
	res = append(res, hash[:HashPrefixLength]...)
	return append(res, key...)
}

// fromHashPrefixed strips the hash prefix, verifying that it matches the
// remaining bytes.
func fromHashPrefixed(key []byte) []byte {
	if len(key) < HashPrefixLength {
		malformed("key %x is shorter than the hash prefix", key)
	}
	raw := key[HashPrefixLength:]
	hash := common.Blake2b256(raw)
	if !bytes.Equal(hash[:HashPrefixLength], key[:HashPrefixLength]) {
		malformed("key %x has an invalid hash prefix", key)
	}
	return bytes.Clone(raw)
}
