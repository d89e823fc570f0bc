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
	"fmt"

	"github.com/radixdlt/radixdlt-scrypto-sub020/codec"
	"github.com/radixdlt/radixdlt-scrypto-sub020/common"
	"github.com/radixdlt/radixdlt-scrypto-sub020/dbkey"
)

// The functions below access a SubstateDatabase in terms of nodes,
// partitions, substate keys, and typed values. Decoding failures are reported
// as *codec.DecodeError.

// GetMapped reads and decodes a single substate. A missing substate is
// reported by ok == false.
func GetMapped[V any](
	db SubstateDatabase,
	mapper dbkey.DatabaseKeyMapper,
	valueCodec codec.Codec[V],
	node common.NodeId,
	partition common.PartitionNumber,
	key common.SubstateKey,
) (value V, ok bool, err error) {
	data, _, found, err := db.GetSubstate(mapper.ToDbPartitionKey(node, partition), mapper.ToDbSortKey(key))
	if err != nil || !found {
		return value, false, err
	}
	value, err = valueCodec.Decode(data)
	if err != nil {
		return value, false, err
	}
	return value, true, nil
}

// ListMapped provides a lazy iterator over all substates of a partition in
// database order. The keys of the partition are expected to be of the given
// kind. The iterator must be released after use.
func ListMapped[V any](
	db SubstateDatabase,
	mapper dbkey.DatabaseKeyMapper,
	valueCodec codec.Codec[V],
	node common.NodeId,
	partition common.PartitionNumber,
	kind common.SubstateKeyKind,
) (*MappedIterator[V], error) {
	return listMapped(db, mapper, valueCodec, node, partition, kind, nil)
}

// ListMappedFrom is like ListMapped but starts at the first substate whose
// database sort key is not less than the one of the given key.
func ListMappedFrom[V any](
	db SubstateDatabase,
	mapper dbkey.DatabaseKeyMapper,
	valueCodec codec.Codec[V],
	node common.NodeId,
	partition common.PartitionNumber,
	from common.SubstateKey,
) (*MappedIterator[V], error) {
	return listMapped(db, mapper, valueCodec, node, partition, from.Kind(), mapper.ToDbSortKey(from))
}

func listMapped[V any](
	db SubstateDatabase,
	mapper dbkey.DatabaseKeyMapper,
	valueCodec codec.Codec[V],
	node common.NodeId,
	partition common.PartitionNumber,
	kind common.SubstateKeyKind,
	from common.DbSortKey,
) (*MappedIterator[V], error) {
	iter, err := db.ListEntriesFrom(mapper.ToDbPartitionKey(node, partition), from)
	if err != nil {
		return nil, err
	}
	return &MappedIterator[V]{
		iter:   iter,
		mapper: mapper,
		codec:  valueCodec,
		kind:   kind,
	}, nil
}

// PutMapped encodes and commits a single substate directly to the database,
// bypassing any transaction overlay. It is intended for genesis and tooling.
func PutMapped[V any](
	db SubstateDatabase,
	mapper dbkey.DatabaseKeyMapper,
	valueCodec codec.Codec[V],
	node common.NodeId,
	partition common.PartitionNumber,
	key common.SubstateKey,
	value V,
) error {
	data, err := valueCodec.Encode(value)
	if err != nil {
		return fmt.Errorf("failed to encode value of %v: %w", key, err)
	}
	updates := common.DatabaseUpdates{}
	updates.AppendSet(mapper.ToDbPartitionKey(node, partition), mapper.ToDbSortKey(key), data)
	return db.Commit(&updates)
}

// DeleteMapped removes a single substate directly from the database.
func DeleteMapped(
	db SubstateDatabase,
	mapper dbkey.DatabaseKeyMapper,
	node common.NodeId,
	partition common.PartitionNumber,
	key common.SubstateKey,
) error {
	updates := common.DatabaseUpdates{}
	updates.AppendDelete(mapper.ToDbPartitionKey(node, partition), mapper.ToDbSortKey(key))
	return db.Commit(&updates)
}

// PartitionId names a partition in business terms.
type PartitionId struct {
	Node      common.NodeId
	Partition common.PartitionNumber
}

// ListPartitions lists all non-empty partitions of a database.
func ListPartitions(db SubstateDatabase, mapper dbkey.DatabaseKeyMapper) ([]PartitionId, error) {
	keys, err := db.ListPartitionKeys()
	if err != nil {
		return nil, err
	}
	res := make([]PartitionId, 0, len(keys))
	for _, key := range keys {
		node, partition, err := dbkey.TryFromDbPartitionKey(mapper, key)
		if err != nil {
			return nil, err
		}
		res = append(res, PartitionId{Node: node, Partition: partition})
	}
	return res, nil
}

// MappedIterator decodes the entries of an EntryIterator. It is forward-only
// and cannot be restarted. Iteration stops at the first decoding failure,
// which is then reported by Err.
type MappedIterator[V any] struct {
	iter   EntryIterator
	mapper dbkey.DatabaseKeyMapper
	codec  codec.Codec[V]
	kind   common.SubstateKeyKind
	key    common.SubstateKey
	value  V
	err    error
}

func (it *MappedIterator[V]) Next() bool {
	if it.err != nil || !it.iter.Next() {
		return false
	}
	key, err := dbkey.TryFromDbSortKey(it.mapper, it.iter.Key(), it.kind)
	if err != nil {
		it.err = err
		return false
	}
	value, err := it.codec.Decode(it.iter.Value())
	if err != nil {
		it.err = err
		return false
	}
	it.key, it.value = key, value
	return true
}

func (it *MappedIterator[V]) Key() common.SubstateKey {
	return it.key
}

func (it *MappedIterator[V]) Value() V {
	return it.value
}

func (it *MappedIterator[V]) Version() Version {
	return it.iter.Version()
}

func (it *MappedIterator[V]) Err() error {
	if it.err != nil {
		return it.err
	}
	return it.iter.Err()
}

func (it *MappedIterator[V]) Release() {
	it.iter.Release()
}
