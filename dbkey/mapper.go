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
	"fmt"

	"github.com/radixdlt/radixdlt-scrypto-sub020/common"
)

// ErrMalformedKey is reported by the TryFrom* conversions for database keys
// which could not have been produced by the mapper.
const ErrMalformedKey = common.ConstError("malformed database key")

// DatabaseKeyMapper converts between the business addressing of substates,
// (node, partition, substate key), and the keys used by the durable store.
// Conversions are bijective for every key produced by the mapper.
type DatabaseKeyMapper interface {
	// ToDbPartitionKey maps a node and one of its partitions to a partition key.
	ToDbPartitionKey(node common.NodeId, partition common.PartitionNumber) common.DbPartitionKey
	// FromDbPartitionKey is the inverse of ToDbPartitionKey. It panics on
	// keys not produced by ToDbPartitionKey.
	FromDbPartitionKey(key common.DbPartitionKey) (common.NodeId, common.PartitionNumber)

	// ToDbSortKey maps a substate key of any shape to a sort key.
	ToDbSortKey(key common.SubstateKey) common.DbSortKey
	// FromDbSortKey is the inverse of ToDbSortKey for the expected shape. It
	// panics on keys not produced by ToDbSortKey for that shape.
	FromDbSortKey(key common.DbSortKey, kind common.SubstateKeyKind) common.SubstateKey

	FieldToDbSortKey(key common.FieldKey) common.DbSortKey
	FieldFromDbSortKey(key common.DbSortKey) common.FieldKey
	MapToDbSortKey(key common.MapKey) common.DbSortKey
	MapFromDbSortKey(key common.DbSortKey) common.MapKey
	SortedToDbSortKey(key common.SortedKey) common.DbSortKey
	SortedFromDbSortKey(key common.DbSortKey) common.SortedKey
}

// TryFromDbPartitionKey converts a partition key of unknown origin, reporting
// an ErrMalformedKey instead of panicking if it was not produced by the mapper.
func TryFromDbPartitionKey(mapper DatabaseKeyMapper, key common.DbPartitionKey) (node common.NodeId, partition common.PartitionNumber, err error) {
	err = recoverMalformed(func() {
		node, partition = mapper.FromDbPartitionKey(key)
	})
	return
}

// TryFromDbSortKey converts a sort key of unknown origin, reporting an
// ErrMalformedKey instead of panicking if it was not produced by the mapper.
func TryFromDbSortKey(mapper DatabaseKeyMapper, key common.DbSortKey, kind common.SubstateKeyKind) (res common.SubstateKey, err error) {
	err = recoverMalformed(func() {
		res = mapper.FromDbSortKey(key, kind)
	})
	return
}

func recoverMalformed(convert func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(malformedKeyPanic); ok {
				err = fmt.Errorf("%w: %s", ErrMalformedKey, string(e))
				return
			}
			panic(r)
		}
	}()
	convert()
	return nil
}

// malformedKeyPanic is the value the mapper panics with on malformed input.
type malformedKeyPanic string

func (p malformedKeyPanic) String() string {
	return string(p)
}

func malformed(format string, args ...any) {
	panic(malformedKeyPanic(fmt.Sprintf(format, args...)))
}
