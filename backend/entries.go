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

import "github.com/radixdlt/radixdlt-scrypto-sub020/common"

// Entry is a materialized database entry.
type Entry struct {
	Key     common.DbSortKey
	Value   []byte
	Version Version
}

// NewSliceIterator creates an EntryIterator over entries already sorted by key.
func NewSliceIterator(entries []Entry) EntryIterator {
	return &sliceIterator{entries: entries, pos: -1}
}

type sliceIterator struct {
	entries []Entry
	pos     int
}

func (it *sliceIterator) Next() bool {
	if it.pos+1 >= len(it.entries) {
		it.pos = len(it.entries)
		return false
	}
	it.pos++
	return true
}

func (it *sliceIterator) Key() common.DbSortKey {
	return it.entries[it.pos].Key
}

func (it *sliceIterator) Value() []byte {
	return it.entries[it.pos].Value
}

func (it *sliceIterator) Version() Version {
	return it.entries[it.pos].Version
}

func (it *sliceIterator) Err() error {
	return nil
}

func (it *sliceIterator) Release() {
	it.entries = nil
}

// CollectEntries drains an iterator into a slice and releases it.
func CollectEntries(iter EntryIterator) ([]Entry, error) {
	defer iter.Release()
	var res []Entry
	for iter.Next() {
		res = append(res, Entry{
			Key:     append(common.DbSortKey{}, iter.Key()...),
			Value:   append([]byte{}, iter.Value()...),
			Version: iter.Version(),
		})
	}
	return res, iter.Err()
}
