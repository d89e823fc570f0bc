// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package memory

import (
	"sync"
	"unsafe"

	"github.com/inconshreveable/log15"
	"github.com/radixdlt/radixdlt-scrypto-sub020/backend"
	"github.com/radixdlt/radixdlt-scrypto-sub020/common"
	"github.com/radixdlt/radixdlt-scrypto-sub020/dbkey"
)

type partition = common.SortedMap[common.DbSortKey, entry]

type entry struct {
	value   []byte
	version backend.Version
}

// Database is an in-memory backend.SubstateDatabase. Content is lost when
// the instance is dropped.
type Database struct {
	mu         sync.RWMutex
	partitions *common.SortedMap[common.DbPartitionKey, *partition]
	checker    backend.AccessChecker
	version    backend.Version
	closed     bool
	log        log15.Logger
}

// NewDatabase creates an empty database accepting the partitions of the given
// schema. A nil schema accepts all partitions.
func NewDatabase(schema *backend.Schema, mapper dbkey.DatabaseKeyMapper) (*Database, error) {
	if schema != nil {
		if err := schema.Check(); err != nil {
			return nil, err
		}
	}
	return &Database{
		partitions: common.NewSortedMap[common.DbPartitionKey, *partition](16, common.DbPartitionKeyComparator{}),
		checker:    backend.NewAccessChecker(schema, mapper),
		log:        common.NewLogger("memory-db"),
	}, nil
}

func (db *Database) GetSubstate(partitionKey common.DbPartitionKey, key common.DbSortKey) ([]byte, backend.Version, bool, error) {
	if err := db.checker.CheckAccess(partitionKey); err != nil {
		return nil, 0, false, err
	}
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.closed {
		return nil, 0, false, backend.ErrClosed
	}
	p, found := db.partitions.Get(partitionKey)
	if !found {
		return nil, 0, false, nil
	}
	e, found := p.Get(key)
	if !found {
		return nil, 0, false, nil
	}
	return e.value, e.version, true, nil
}

func (db *Database) ListEntries(partitionKey common.DbPartitionKey) (backend.EntryIterator, error) {
	return db.ListEntriesFrom(partitionKey, nil)
}

func (db *Database) ListEntriesFrom(partitionKey common.DbPartitionKey, from common.DbSortKey) (backend.EntryIterator, error) {
	if err := db.checker.CheckIteration(partitionKey); err != nil {
		return nil, err
	}
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.closed {
		return nil, backend.ErrClosed
	}
	p, found := db.partitions.Get(partitionKey)
	if !found {
		return backend.NewSliceIterator(nil), nil
	}
	// entries are copied to decouple the iterator from later commits
	tail := p.GetEntries()[p.Seek(from):]
	entries := make([]backend.Entry, 0, len(tail))
	for _, e := range tail {
		entries = append(entries, backend.Entry{Key: e.Key, Value: e.Val.value, Version: e.Val.version})
	}
	return backend.NewSliceIterator(entries), nil
}

func (db *Database) Commit(updates *common.DatabaseUpdates) error {
	if err := db.checker.CheckUpdates(updates); err != nil {
		return err
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return backend.ErrClosed
	}
	db.version++
	if err := updates.ApplyTo(&committer{db: db}); err != nil {
		return err
	}
	db.log.Debug("committed updates", "version", db.version, "partitions", len(updates.Partitions))
	return nil
}

func (db *Database) ListPartitionKeys() ([]common.DbPartitionKey, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.closed {
		return nil, backend.ErrClosed
	}
	res := make([]common.DbPartitionKey, 0, db.partitions.Size())
	db.partitions.ForEach(func(key common.DbPartitionKey, _ *partition) {
		res = append(res, key)
	})
	return res, nil
}

// GetVersion returns the version of the last commit.
func (db *Database) GetVersion() backend.Version {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.version
}

func (db *Database) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.closed = true
	db.partitions.Clear()
	return nil
}

func (db *Database) GetMemoryFootprint() *common.MemoryFootprint {
	db.mu.RLock()
	defer db.mu.RUnlock()
	mf := common.NewMemoryFootprint(unsafe.Sizeof(*db))
	mf.AddChild("partitionIndex", db.partitions.GetMemoryFootprint())
	var payload uintptr
	db.partitions.ForEach(func(key common.DbPartitionKey, p *partition) {
		payload += uintptr(len(key)) + p.GetMemoryFootprint().Total()
		p.ForEach(func(key common.DbSortKey, e entry) {
			payload += uintptr(len(key) + len(e.value))
		})
	})
	mf.AddChild("partitions", common.NewMemoryFootprint(payload))
	return mf
}

// committer applies updates while holding the write lock.
type committer struct {
	db *Database
}

func (c *committer) ResetPartition(key common.DbPartitionKey) error {
	c.db.partitions.Remove(key)
	return nil
}

func (c *committer) SetEntry(partitionKey common.DbPartitionKey, key common.DbSortKey, value []byte) error {
	p, found := c.db.partitions.Get(partitionKey)
	if !found {
		p = common.NewSortedMap[common.DbSortKey, entry](8, common.DbSortKeyComparator{})
		c.db.partitions.Put(append(common.DbPartitionKey{}, partitionKey...), p)
	}
	p.Put(append(common.DbSortKey{}, key...), entry{
		value:   append([]byte{}, value...),
		version: c.db.version,
	})
	return nil
}

func (c *committer) DeleteEntry(partitionKey common.DbPartitionKey, key common.DbSortKey) error {
	p, found := c.db.partitions.Get(partitionKey)
	if !found {
		return nil
	}
	p.Remove(key)
	if p.Size() == 0 {
		c.db.partitions.Remove(partitionKey)
	}
	return nil
}
