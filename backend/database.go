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
	"io"

	"github.com/radixdlt/radixdlt-scrypto-sub020/common"
)

//go:generate mockgen -source database.go -destination database_mocks.go -package backend

// Version identifies the commit which last wrote an entry. Versions are
// assigned by the database in increasing order starting at 1; 0 is never
// assigned to a stored entry.
type Version uint64

// SubstateDatabase is the durable, ordered key-value store holding committed
// ledger state. Entries are grouped into partitions identified by partition
// keys and ordered within a partition by their sort keys.
//
// Implementations support multiple concurrent readers. Commits are atomic
// and must not be issued concurrently.
type SubstateDatabase interface {
	// GetSubstate fetches the value of an entry. Missing entries are reported
	// by found == false, not by an error.
	GetSubstate(partition common.DbPartitionKey, key common.DbSortKey) (value []byte, version Version, found bool, err error)

	// ListEntries provides an iterator over all entries of the given
	// partition ordered by sort key, reflecting the state at the time of the
	// call. The iterator must be released after use.
	ListEntries(partition common.DbPartitionKey) (EntryIterator, error)

	// ListEntriesFrom is like ListEntries but starts at the first entry with
	// a sort key not less than from. A nil from starts at the first entry.
	ListEntriesFrom(partition common.DbPartitionKey, from common.DbSortKey) (EntryIterator, error)

	// Commit atomically applies the given updates. Either all of them become
	// visible, or none of them.
	Commit(updates *common.DatabaseUpdates) error

	// ListPartitionKeys lists the keys of all non-empty partitions in order.
	ListPartitionKeys() ([]common.DbPartitionKey, error)

	common.MemoryFootprintProvider
	io.Closer
}

// EntryIterator is a forward-only cursor over the entries of a partition.
// Key, Value, and Version are valid after Next returned true.
type EntryIterator interface {
	Next() bool
	Key() common.DbSortKey
	Value() []byte
	Version() Version
	// Err reports the error that stopped the iteration, if any.
	Err() error
	Release()
}
