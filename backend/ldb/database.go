// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package ldb

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"github.com/inconshreveable/log15"
	"github.com/radixdlt/radixdlt-scrypto-sub020/backend"
	"github.com/radixdlt/radixdlt-scrypto-sub020/common"
	"github.com/radixdlt/radixdlt-scrypto-sub020/dbkey"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// Database is a backend.SubstateDatabase persisting its content in a
// LevelDB instance. Entries are stored in a flat key space using the layout
// defined by backend.EntryKey; values are prefixed by their version.
type Database struct {
	db       *leveldb.DB
	checker  backend.AccessChecker
	commitMu sync.Mutex
	version  backend.Version
	sync     bool
	log      log15.Logger
}

// Options configure a LevelDB-backed database.
type Options struct {
	// Schema restricts the accepted partitions; see backend.ResolveSchema
	// for how it is reconciled with the schema of an existing database.
	Schema *backend.Schema
	Mapper dbkey.DatabaseKeyMapper
	// Sync forces an fsync on every commit.
	Sync bool
}

// Open opens or creates a database in the given directory.
func Open(directory string, options Options) (*Database, error) {
	log := common.NewLogger("ldb", "dir", directory)
	db, err := leveldb.OpenFile(directory, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open LevelDB in %s: %w", directory, err)
	}
	res, err := initialize(db, options, log)
	if err != nil {
		return nil, errors.Join(err, db.Close())
	}
	log.Debug("opened database", "version", res.version)
	return res, nil
}

func initialize(db *leveldb.DB, options Options, log log15.Logger) (*Database, error) {
	stored, err := db.Get(backend.SchemaMetaKey, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
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
		if err := db.Put(backend.SchemaMetaKey, toPersist, &opt.WriteOptions{Sync: true}); err != nil {
			return nil, err
		}
	}

	var version backend.Version
	raw, err := db.Get(backend.VersionMetaKey, nil)
	if err == nil {
		if version, err = backend.DecodeVersion(raw); err != nil {
			return nil, err
		}
	} else if !errors.Is(err, leveldb.ErrNotFound) {
		return nil, err
	}

	return &Database{
		db:      db,
		checker: backend.NewAccessChecker(schema, options.Mapper),
		version: version,
		sync:    options.Sync,
		log:     log,
	}, nil
}

func (db *Database) GetSubstate(partition common.DbPartitionKey, key common.DbSortKey) ([]byte, backend.Version, bool, error) {
	if err := db.checker.CheckAccess(partition); err != nil {
		return nil, 0, false, err
	}
	raw, err := db.db.Get(backend.EntryKey(partition, key), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, 0, false, nil
		}
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
	keyRange := util.BytesPrefix(prefix)
	keyRange.Start = backend.EntryKey(partition, from)
	return &entryIterator{
		iter:      db.db.NewIterator(keyRange, nil),
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
	batch := &batchWriter{db: db.db, batch: new(leveldb.Batch), version: version}
	if err := updates.ApplyTo(batch); err != nil {
		return err
	}
	batch.batch.Put(backend.VersionMetaKey, backend.EncodeVersion(version))
	if err := db.db.Write(batch.batch, &opt.WriteOptions{Sync: db.sync}); err != nil {
		return fmt.Errorf("failed to write commit %d: %w", version, err)
	}
	db.version = version
	db.log.Debug("committed updates", "version", version, "operations", batch.batch.Len())
	return nil
}

func (db *Database) ListPartitionKeys() ([]common.DbPartitionKey, error) {
	iter := db.db.NewIterator(util.BytesPrefix([]byte{byte(backend.EntryTable)}), nil)
	defer iter.Release()
	var res []common.DbPartitionKey
	for ok := iter.First(); ok; {
		partition, _, err := backend.SplitEntryKey(iter.Key())
		if err != nil {
			return nil, err
		}
		partition = append(common.DbPartitionKey{}, partition...)
		res = append(res, partition)
		next := backend.PrefixUpperBound(backend.EntryPrefix(partition))
		if next == nil {
			break
		}
		ok = iter.Seek(next)
	}
	return res, iter.Error()
}

// GetVersion returns the version of the last commit.
func (db *Database) GetVersion() backend.Version {
	db.commitMu.Lock()
	defer db.commitMu.Unlock()
	return db.version
}

func (db *Database) Close() error {
	db.log.Debug("closing database", "version", db.version)
	return db.db.Close()
}

func (db *Database) GetMemoryFootprint() *common.MemoryFootprint {
	mf := common.NewMemoryFootprint(unsafe.Sizeof(*db))
	var stats leveldb.DBStats
	if err := db.db.Stats(&stats); err == nil {
		mf.AddChild("blockCache", common.NewMemoryFootprint(uintptr(stats.BlockCacheSize)))
	}
	return mf
}

// batchWriter collects the updates of a commit in a LevelDB batch.
type batchWriter struct {
	db      *leveldb.DB
	batch   *leveldb.Batch
	version backend.Version
}

func (w *batchWriter) ResetPartition(partition common.DbPartitionKey) error {
	iter := w.db.NewIterator(util.BytesPrefix(backend.EntryPrefix(partition)), nil)
	defer iter.Release()
	for iter.Next() {
		w.batch.Delete(append([]byte{}, iter.Key()...))
	}
	return iter.Error()
}

func (w *batchWriter) SetEntry(partition common.DbPartitionKey, key common.DbSortKey, value []byte) error {
	w.batch.Put(backend.EntryKey(partition, key), backend.EncodeEntryValue(w.version, value))
	return nil
}

func (w *batchWriter) DeleteEntry(partition common.DbPartitionKey, key common.DbSortKey) error {
	w.batch.Delete(backend.EntryKey(partition, key))
	return nil
}

type entryIterator struct {
	iter      iterator.Iterator
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
