// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package overlay

import (
	"bytes"
	"sync"
	"unsafe"

	"github.com/inconshreveable/log15"
	"github.com/radixdlt/radixdlt-scrypto-sub020/backend"
	"github.com/radixdlt/radixdlt-scrypto-sub020/common"
	"github.com/radixdlt/radixdlt-scrypto-sub020/dbkey"
)

// ErrNotMergeable is reported when committing an unmergeable overlay into
// its root database.
const ErrNotMergeable = common.ConstError("overlay is not mergeable")

// Options configures an overlay. The schema restricts the partitions
// accepted by the overlay on top of the checks of the root database.
type Options struct {
	Schema *backend.Schema
	Mapper dbkey.DatabaseKeyMapper
}

type stagedEntry struct {
	value   []byte
	delete  bool
	version backend.Version
}

// stagedPartition holds the updates of a partition committed to the overlay.
// If reset is set, entries of the root are hidden and deletes are dropped
// instead of being staged.
type stagedPartition struct {
	reset   bool
	entries *common.SortedMap[common.DbSortKey, stagedEntry]
}

func newStagedPartition() *stagedPartition {
	return &stagedPartition{
		entries: common.NewSortedMap[common.DbSortKey, stagedEntry](8, common.DbSortKeyComparator{}),
	}
}

// Database is a backend.SubstateDatabase staging all commits in memory on
// top of a root database. Reads merge the staged updates with the content of
// the root. The root is only modified by CommitIntoRoot.
type Database struct {
	root      backend.SubstateDatabase
	mergeable bool
	owned     bool
	checker   backend.AccessChecker

	mu      sync.RWMutex
	staged  *common.SortedMap[common.DbPartitionKey, *stagedPartition]
	version backend.Version
	closed  bool
	log     log15.Logger
}

// NewUnmergeable creates an overlay which never modifies the given root,
// e.g. for previewing the effects of transactions.
func NewUnmergeable(root backend.SubstateDatabase, options Options) (*Database, error) {
	return newDatabase(root, options, false, false)
}

// NewMergeable creates an overlay which can commit its staged updates into
// the given root. The root stays owned by the caller.
func NewMergeable(root backend.SubstateDatabase, options Options) (*Database, error) {
	return newDatabase(root, options, true, false)
}

// NewOwned creates a mergeable overlay taking ownership of the root; closing
// the overlay closes the root.
func NewOwned(root backend.SubstateDatabase, options Options) (*Database, error) {
	return newDatabase(root, options, true, true)
}

func newDatabase(root backend.SubstateDatabase, options Options, mergeable, owned bool) (*Database, error) {
	if options.Schema != nil {
		if err := options.Schema.Check(); err != nil {
			return nil, err
		}
	}
	mapper := options.Mapper
	if mapper == nil {
		mapper = dbkey.SpreadPrefixKeyMapper{}
	}
	return &Database{
		root:      root,
		mergeable: mergeable,
		owned:     owned,
		checker:   backend.NewAccessChecker(options.Schema, mapper),
		staged:    common.NewSortedMap[common.DbPartitionKey, *stagedPartition](16, common.DbPartitionKeyComparator{}),
		log:       common.NewLogger("overlay-db", "mergeable", mergeable),
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
	if p, found := db.staged.Get(partitionKey); found {
		if e, found := p.entries.Get(key); found {
			if e.delete {
				return nil, 0, false, nil
			}
			return e.value, e.version, true, nil
		}
		if p.reset {
			return nil, 0, false, nil
		}
	}
	return db.root.GetSubstate(partitionKey, key)
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
	p, found := db.staged.Get(partitionKey)
	if !found {
		return db.root.ListEntriesFrom(partitionKey, from)
	}
	// the merged view is materialized to decouple it from later commits
	entries, err := db.merge(partitionKey, p, from)
	if err != nil {
		return nil, err
	}
	return backend.NewSliceIterator(entries), nil
}

// merge combines the staged entries of a partition starting at from with the
// content of the root. Must be called with the lock held.
func (db *Database) merge(partitionKey common.DbPartitionKey, p *stagedPartition, from common.DbSortKey) ([]backend.Entry, error) {
	staged := p.entries.GetEntries()[p.entries.Seek(from):]
	var underlying []backend.Entry
	if !p.reset {
		iter, err := db.root.ListEntriesFrom(partitionKey, from)
		if err != nil {
			return nil, err
		}
		if underlying, err = backend.CollectEntries(iter); err != nil {
			return nil, err
		}
	}
	res := make([]backend.Entry, 0, len(staged)+len(underlying))
	i, j := 0, 0
	for i < len(staged) || j < len(underlying) {
		var cmp int
		switch {
		case i == len(staged):
			cmp = 1
		case j == len(underlying):
			cmp = -1
		default:
			cmp = bytes.Compare(staged[i].Key, underlying[j].Key)
		}
		if cmp > 0 {
			res = append(res, underlying[j])
			j++
			continue
		}
		if cmp == 0 {
			j++
		}
		if e := staged[i].Val; !e.delete {
			res = append(res, backend.Entry{Key: staged[i].Key, Value: e.value, Version: e.version})
		}
		i++
	}
	return res, nil
}

// Commit stages the given updates in the overlay. Later commits take
// precedence over earlier ones; a reset replaces everything staged for the
// partition.
func (db *Database) Commit(updates *common.DatabaseUpdates) error {
	if err := db.checker.CheckUpdates(updates); err != nil {
		return err
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return backend.ErrClosed
	}
	version, err := db.rootVersion()
	if err != nil {
		return err
	}
	db.version = max(db.version, version) + 1
	if err := updates.ApplyTo(&stager{db: db}); err != nil {
		return err
	}
	db.log.Debug("staged updates", "version", db.version, "partitions", len(updates.Partitions))
	return nil
}

func (db *Database) rootVersion() (backend.Version, error) {
	switch root := db.root.(type) {
	case interface{ GetVersion() backend.Version }:
		return root.GetVersion(), nil
	case interface {
		GetVersion() (backend.Version, error)
	}:
		return root.GetVersion()
	}
	return 0, nil
}

// ListPartitionKeys lists the partitions of the root and of the overlay
// holding at least one entry, in order.
func (db *Database) ListPartitionKeys() ([]common.DbPartitionKey, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.closed {
		return nil, backend.ErrClosed
	}
	underlying, err := db.root.ListPartitionKeys()
	if err != nil {
		return nil, err
	}
	res := make([]common.DbPartitionKey, 0, len(underlying)+db.staged.Size())
	staged := db.staged.GetEntries()
	i, j := 0, 0
	for i < len(staged) || j < len(underlying) {
		var cmp int
		switch {
		case i == len(staged):
			cmp = 1
		case j == len(underlying):
			cmp = -1
		default:
			cmp = bytes.Compare(staged[i].Key, underlying[j])
		}
		if cmp > 0 {
			res = append(res, underlying[j])
			j++
			continue
		}
		if cmp == 0 {
			j++
		}
		entries, err := db.merge(staged[i].Key, staged[i].Val, nil)
		if err != nil {
			return nil, err
		}
		if len(entries) > 0 {
			res = append(res, staged[i].Key)
		}
		i++
	}
	return res, nil
}

// DatabaseUpdates returns the updates staged in this overlay, normalized and
// ready to be committed to a database.
func (db *Database) DatabaseUpdates() *common.DatabaseUpdates {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.databaseUpdates()
}

func (db *Database) databaseUpdates() *common.DatabaseUpdates {
	res := &common.DatabaseUpdates{}
	db.staged.ForEach(func(partitionKey common.DbPartitionKey, p *stagedPartition) {
		if p.reset {
			res.AppendReset(partitionKey)
		}
		p.entries.ForEach(func(key common.DbSortKey, e stagedEntry) {
			if e.delete {
				res.AppendDelete(partitionKey, key)
			} else {
				res.AppendSet(partitionKey, key, e.value)
			}
		})
	})
	return res
}

// CommitIntoRoot commits the staged updates into the root database and
// clears the overlay. On failure the staged updates are retained.
func (db *Database) CommitIntoRoot() error {
	if !db.mergeable {
		return ErrNotMergeable
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return backend.ErrClosed
	}
	updates := db.databaseUpdates()
	if updates.IsEmpty() {
		return nil
	}
	if err := db.root.Commit(updates); err != nil {
		return err
	}
	db.staged.Clear()
	db.log.Debug("committed overlay into root", "partitions", len(updates.Partitions))
	return nil
}

// Close drops the staged updates. The root is only closed if it is owned by
// the overlay.
func (db *Database) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return nil
	}
	db.closed = true
	db.staged.Clear()
	if db.owned {
		return db.root.Close()
	}
	return nil
}

func (db *Database) GetMemoryFootprint() *common.MemoryFootprint {
	db.mu.RLock()
	defer db.mu.RUnlock()
	mf := common.NewMemoryFootprint(unsafe.Sizeof(*db))
	mf.AddChild("partitionIndex", db.staged.GetMemoryFootprint())
	var payload uintptr
	db.staged.ForEach(func(key common.DbPartitionKey, p *stagedPartition) {
		payload += uintptr(len(key)) + unsafe.Sizeof(*p) + p.entries.GetMemoryFootprint().Total()
		p.entries.ForEach(func(key common.DbSortKey, e stagedEntry) {
			payload += uintptr(len(key) + len(e.value))
		})
	})
	mf.AddChild("staged", common.NewMemoryFootprint(payload))
	if db.owned {
		mf.AddChild("root", db.root.GetMemoryFootprint())
	}
	return mf
}

// stager merges updates into the staged partitions while holding the write
// lock.
type stager struct {
	db *Database
}

func (s *stager) partition(key common.DbPartitionKey) *stagedPartition {
	p, found := s.db.staged.Get(key)
	if !found {
		p = newStagedPartition()
		s.db.staged.Put(append(common.DbPartitionKey{}, key...), p)
	}
	return p
}

func (s *stager) ResetPartition(key common.DbPartitionKey) error {
	p := s.partition(key)
	p.reset = true
	p.entries.Clear()
	return nil
}

func (s *stager) SetEntry(partitionKey common.DbPartitionKey, key common.DbSortKey, value []byte) error {
	s.partition(partitionKey).entries.Put(append(common.DbSortKey{}, key...), stagedEntry{
		value:   append([]byte{}, value...),
		version: s.db.version,
	})
	return nil
}

func (s *stager) DeleteEntry(partitionKey common.DbPartitionKey, key common.DbSortKey) error {
	p := s.partition(partitionKey)
	if p.reset {
		p.entries.Remove(key)
		return nil
	}
	p.entries.Put(append(common.DbSortKey{}, key...), stagedEntry{delete: true, version: s.db.version})
	return nil
}
