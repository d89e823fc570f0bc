// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package avax

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/database/memdb"
	"github.com/ava-labs/avalanchego/database/prefixdb"
	"github.com/ava-labs/avalanchego/database/versiondb"
	"github.com/inconshreveable/log15"
	"github.com/radixdlt/radixdlt-scrypto-sub020/backend"
	"github.com/radixdlt/radixdlt-scrypto-sub020/common"
	"github.com/radixdlt/radixdlt-scrypto-sub020/dbkey"
)

// storePrefix namespaces the substate store within a shared database.
var storePrefix = []byte("substates")

// Database is a backend.SubstateDatabase on top of an avalanchego database.
// The store occupies its own prefix of the underlying database, so the
// underlying database may be shared with other components. Commits are staged
// in a versiondb and flushed atomically.
type Database struct {
	base     database.Database
	checker  backend.AccessChecker
	commitMu sync.Mutex
	version  backend.Version
	log      log15.Logger
}

type Options struct {
	Schema *backend.Schema
	Mapper dbkey.DatabaseKeyMapper
}

// NewMemory creates a database backed by an in-memory avalanchego database.
func NewMemory(options Options) (*Database, error) {
	return New(memdb.New(), options)
}

// New wraps the given avalanchego database.
func New(db database.Database, options Options) (*Database, error) {
	base := prefixdb.New(storePrefix, db)

	stored, err := base.Get(backend.SchemaMetaKey)
	if errors.Is(err, database.ErrNotFound) {
		stored, err = nil, nil
	}
	if err != nil {
		return nil, err
	}
	schema, toPersist, err := backend.ResolveSchema(stored, options.Schema)
	if err != nil {
		return nil, err
	}
	if toPersist != nil {
		if err := base.Put(backend.SchemaMetaKey, toPersist); err != nil {
			return nil, err
		}
	}

	var version backend.Version
	raw, err := base.Get(backend.VersionMetaKey)
	if err == nil {
		if version, err = backend.DecodeVersion(raw); err != nil {
			return nil, err
		}
	} else if !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}

	return &Database{
		base:    base,
		checker: backend.NewAccessChecker(schema, options.Mapper),
		version: version,
		log:     common.NewLogger("avax-db"),
	}, nil
}

func (db *Database) GetSubstate(partition common.DbPartitionKey, key common.DbSortKey) ([]byte, backend.Version, bool, error) {
	if err := db.checker.CheckAccess(partition); err != nil {
		return nil, 0, false, err
	}
	raw, err := db.base.Get(backend.EntryKey(partition, key))
	if errors.Is(err, database.ErrNotFound) {
		return nil, 0, false, nil
	}
	if err != nil {
		return nil, 0, false, err
	}
	version, value, err := backend.DecodeEntryValue(raw)
	if err != nil {
		return nil, 0, false, err
	}
	return value, version, true, nil
}

func (db *Database) ListEntries(partition common.DbPartitionKey) (backend.EntryIterator, error) {
	return db.ListEntriesFrom(partition, nil)
}

func (db *Database) ListEntriesFrom(partition common.DbPartitionKey, from common.DbSortKey) (backend.EntryIterator, error) {
	if err := db.checker.CheckIteration(partition); err != nil {
		return nil, err
	}
	prefix := backend.EntryPrefix(partition)
	return &entryIterator{
		iter:      db.base.NewIteratorWithStartAndPrefix(backend.EntryKey(partition, from), prefix),
		prefixLen: len(prefix),
	}, nil
}

func (db *Database) Commit(updates *common.DatabaseUpdates) error {
	if err := db.checker.CheckUpdates(updates); err != nil {
		return err
	}
	db.commitMu.Lock()
	defer db.commitMu.Unlock()

	version := db.version + 1
	staged := versiondb.New(db.base)
	writer := &stagingWriter{base: db.base, staged: staged, version: version}
	if err := updates.ApplyTo(writer); err != nil {
		staged.Abort()
		return err
	}
	if err := staged.Put(backend.VersionMetaKey, backend.EncodeVersion(version)); err != nil {
		staged.Abort()
		return err
	}
	if err := staged.Commit(); err != nil {
		return fmt.Errorf("failed to commit version %d: %w", version, err)
	}
	db.version = version
	db.log.Debug("committed updates", "version", version, "partitions", len(updates.Partitions))
	return nil
}

func (db *Database) ListPartitionKeys() ([]common.DbPartitionKey, error) {
	tablePrefix := []byte{byte(backend.EntryTable)}
	var res []common.DbPartitionKey
	start := tablePrefix
	for {
		iter := db.base.NewIteratorWithStartAndPrefix(start, tablePrefix)
		if !iter.Next() {
			err := iter.Error()
			iter.Release()
			return res, err
		}
		partition, _, err := backend.SplitEntryKey(iter.Key())
		if err != nil {
			iter.Release()
			return nil, err
		}
		partition = append(common.DbPartitionKey{}, partition...)
		iter.Release()
		res = append(res, partition)
		if start = backend.PrefixUpperBound(backend.EntryPrefix(partition)); start == nil {
			return res, nil
		}
	}
}

// GetVersion returns the version of the last commit.
func (db *Database) GetVersion() backend.Version {
	db.commitMu.Lock()
	defer db.commitMu.Unlock()
	return db.version
}

func (db *Database) Close() error {
	return db.base.Close()
}

func (db *Database) GetMemoryFootprint() *common.MemoryFootprint {
	return common.NewMemoryFootprint(unsafe.Sizeof(*db))
}

type stagingWriter struct {
	base    database.Database
	staged  *versiondb.Database
	version backend.Version
}

func (w *stagingWriter) ResetPartition(partition common.DbPartitionKey) error {
	iter := w.base.NewIteratorWithPrefix(backend.EntryPrefix(partition))
	defer iter.Release()
	for iter.Next() {
		if err := w.staged.Delete(append([]byte{}, iter.Key()...)); err != nil {
			return err
		}
	}
	return iter.Error()
}

func (w *stagingWriter) SetEntry(partition common.DbPartitionKey, key common.DbSortKey, value []byte) error {
	return w.staged.Put(backend.EntryKey(partition, key), backend.EncodeEntryValue(w.version, value))
}

func (w *stagingWriter) DeleteEntry(partition common.DbPartitionKey, key common.DbSortKey) error {
	return w.staged.Delete(backend.EntryKey(partition, key))
}

type entryIterator struct {
	iter      database.Iterator
	prefixLen int
	key       common.DbSortKey
	value     []byte
	version   backend.Version
	err       error
}

func (it *entryIterator) Next() bool {
	if it.err != nil || !it.iter.Next() {
		return false
	}
	version, value, err := backend.DecodeEntryValue(it.iter.Value())
	if err != nil {
		it.err = err
		return false
	}
	it.key = common.DbSortKey(it.iter.Key()[it.prefixLen:])
	it.value = value
	it.version = version
	return true
}

func (it *entryIterator) Key() common.DbSortKey {
	return it.key
}

func (it *entryIterator) Value() []byte {
	return it.value
}

func (it *entryIterator) Version() backend.Version {
	return it.version
}

func (it *entryIterator) Err() error {
	if it.err != nil {
		return it.err
	}
	return it.iter.Error()
}

func (it *entryIterator) Release() {
	it.iter.Release()
}
