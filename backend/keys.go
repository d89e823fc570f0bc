// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package backend

import (
	"encoding/binary"
	"fmt"

	"github.com/radixdlt/radixdlt-scrypto-sub020/common"
)

// TableSpace divides the key space of flat key-value stores into tables. The
// table space is the first byte of every key.
type TableSpace byte

const (
	// EntryTable holds substate entries keyed by
	// table || uvarint(len(partition)) || partition || sort key.
	EntryTable TableSpace = 'e'
	// MetaTable holds database metadata such as the schema and the last
	// commit version.
	MetaTable TableSpace = 'm'
)

var (
	SchemaMetaKey  = MetaKey("schema")
	VersionMetaKey = MetaKey("version")
)

// MetaKey builds the key of a metadata record.
func MetaKey(name string) []byte {
	return append([]byte{byte(MetaTable)}, name...)
}

// EntryPrefix is the common prefix of the keys of all entries of a partition.
func EntryPrefix(partition common.DbPartitionKey) []byte {
	res := make([]byte, 0, 1+binary.MaxVarintLen64+len(partition))
	res = append(res, byte(EntryTable))
	res = binary.AppendUvarint(res, uint64(len(partition)))
	return append(res, partition...)
}

// EntryKey builds the flat key of an entry.
func EntryKey(partition common.DbPartitionKey, key common.DbSortKey) []byte {
	return append(EntryPrefix(partition), key...)
}

// SplitEntryKey is the inverse of EntryKey.
func SplitEntryKey(raw []byte) (common.DbPartitionKey, common.DbSortKey, error) {
	if len(raw) == 0 || raw[0] != byte(EntryTable) {
		return nil, nil, fmt.Errorf("key %x is not an entry key", raw)
	}
	length, n := binary.Uvarint(raw[1:])
	if n <= 0 || uint64(len(raw)-1-n) < length {
		return nil, nil, fmt.Errorf("entry key %x has an invalid partition length", raw)
	}
	start := 1 + n
	end := start + int(length)
	return common.DbPartitionKey(raw[start:end]), common.DbSortKey(raw[end:]), nil
}

// PrefixUpperBound returns the smallest key greater than all keys with the
// given prefix, or nil if there is no such key.
func PrefixUpperBound(prefix []byte) []byte {
	res := append([]byte{}, prefix...)
	for i := len(res) - 1; i >= 0; i-- {
		if res[i] < 0xff {
			res[i]++
			return res[:i+1]
		}
	}
	return nil
}

// EncodeEntryValue prefixes a value with the version of its commit.
func EncodeEntryValue(version Version, value []byte) []byte {
	res := make([]byte, 8, 8+len(value))
	binary.BigEndian.PutUint64(res, uint64(version))
	return append(res, value...)
}

// DecodeEntryValue is the inverse of EncodeEntryValue.
func DecodeEntryValue(raw []byte) (Version, []byte, error) {
	if len(raw) < 8 {
		return 0, nil, fmt.Errorf("entry value %x is too short", raw)
	}
	return Version(binary.BigEndian.Uint64(raw)), raw[8:], nil
}

// EncodeVersion and DecodeVersion convert the persisted last commit version.
func EncodeVersion(version Version) []byte {
	return binary.BigEndian.AppendUint64(nil, uint64(version))
}

func DecodeVersion(raw []byte) (Version, error) {
	if len(raw) != 8 {
		return 0, fmt.Errorf("invalid version encoding %x", raw)
	}
	return Version(binary.BigEndian.Uint64(raw)), nil
}
