// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package bolt

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
	"unsafe"

	"github.com/inconshreveable/log15"
	"github.com/radixdlt/radixdlt-scrypto-sub020/backend"
	"github.com/radixdlt/radixdlt-scrypto-sub020/common"
	"github.com/radixdlt/radixdlt-scrypto-sub020/dbkey"
	bbolt "go.etcd.io/bbolt"
)

// FileName is the name of the database file within the database directory.
const FileName = "substates.bolt"

var (
	metaBucket       = []byte("meta")
	partitionsBucket = []byte("partitions")
	schemaKey        = []byte("schema")
	versionKey       = []byte("version")
)

// Database is a backend.SubstateDatabase persisting its content in a Bolt
// file. Every partition is a nested bucket of the partitions bucket, keyed by
// sort key; values are prefixed by their version.
//
// Iterators hold a read transaction until released. They must be released
// before committing from the same goroutine.
type Database struct {
	db      *bbolt.DB
	checker backend.AccessChecker
	log     log15.Logger
}

// Options configure a Bolt-backed database.
type Options struct {
	Schema *backend.Schema
	Mapper dbkey.DatabaseKeyMapper
	// NoSync skips the fsync after each commit. Intended for tests.
	NoSync bool
}

// Open opens or creates a database in the given directory.
func Open(directory string, options Options) (*Database, error) {
	if err := os.MkdirAll(directory, 0700); err != nil {
		return nil, err
	}
	path := filepath.Join(directory, FileName)
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second, NoSync: options.NoSync})
	if err != nil {
		return nil, fmt.Errorf("failed to open Bolt database %s: %w", path, err)
	}
	var schema *backend.Schema
	err = db.Update(func(tx *bbolt.Tx) error {
		meta, err := tx.CreateBucketIfNotExists(metaBucket)
		if err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists(partitionsBucket); err != nil {
			return err
		}
		var stored []byte
		if raw := meta.Get(schemaKey); raw != nil {
			stored = append([]byte{}, raw...)
		}
		var toPersist []byte
		schema, toPersist, err = backend.ResolveSchema(stored, options.Schema)
		if err != nil {
			return err
		}
		if toPersist != nil {
			return meta.Put(schemaKey, toPersist)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Join(err, db.Close())
	}
	res := &Database{
		db:      db,
		checker: backend.NewAccessChecker(schema, options.Mapper),
		log:     common.NewLogger("bolt", "path", path),
	}
	res.log.Debug("opened database")
	return res, nil
}

func (db *Database) GetSubstate(partition common.DbPartitionKey, key common.DbSortKey) (value []byte, version backend.Version, found bool, err error) {
	if err := db.checker.CheckAccess(partition); err != nil {
		return nil, 0, false, err
	}
	err = db.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(partitionsBucket).Bucket(partition)
		if bucket == nil {
			return nil
		}
		raw := bucket.Get(key)
		if raw == nil {
			return nil
		}
		v, payload, err := backend.DecodeEntryValue(raw)
		if err != nil {
			return err
		}
		value, version, found = append([]byte{}, payload...), v, true
		return nil
	})
	return
}

func (db *Database) ListEntries(partition common.DbPartitionKey) (backend.EntryIterator, error) {
	return db.ListEntriesFrom(partition, nil)
}

func (db *Database) ListEntriesFrom(partition common.DbPartitionKey, from common.DbSortKey) (backend.EntryIterator, error) {
	if err := db.checker.CheckIteration(partition); err != nil {
		return nil, err
	}
	tx, err := db.db.Begin(false)
	if err != nil {
		return nil, err
	}
	it := &entryIterator{tx: tx, from: from}
	if bucket := tx.Bucket(partitionsBucket).Bucket(partition); bucket != nil {
		it.cursor = bucket.Cursor()
	}
	return it, nil
}

func (db *Database) Commit(updates *common.DatabaseUpdates) error {
	if err := db.checker.CheckUpdates(updates); err != nil {
		return err
	}
	var version backend.Version
	err := db.db.Update(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(metaBucket)
		if raw := meta.Get(versionKey); raw != nil {
			v, err := backend.DecodeVersion(raw)
			if err != nil {
				return err
			}
			version = v
		}
		version++
		writer := &txWriter{partitions: tx.Bucket(partitionsBucket), version: version}
		if err := updates.ApplyTo(writer); err != nil {
			return err
		}
		if err := writer.dropEmptyPartitions(); err != nil {
			return err
		}
		return meta.Put(versionKey, backend.EncodeVersion(version))
	})
	if err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	db.log.Debug("committed updates", "version", version, "partitions", len(updates.Partitions))
	return nil
}

func (db *Database) ListPartitionKeys() ([]common.DbPartitionKey, error) {
	var res []common.DbPartitionKey
	err := db.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(partitionsBucket).ForEach(func(k, v []byte) error {
			if v == nil {
				res = append(res, append(common.DbPartitionKey{}, k...))
			}
			return nil
		})
	})
	return res, err
}

// GetVersion returns the version of the last commit.
func (db *Database) GetVersion() (backend.Version, error) {
	var version backend.Version
	err := db.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(metaBucket).Get(versionKey)
		if raw == nil {
			return nil
		}
		var err error
		version, err = backend.DecodeVersion(raw)
		return err
	})
	return version, err
}

func (db *Database) Close() error {
	db.log.Debug("closing database")
	return db.db.Close()
}

func (db *Database) GetMemoryFootprint() *common.MemoryFootprint {
	return common.NewMemoryFootprint(unsafe.Sizeof(*db))
}

type txWriter struct {
	partitions *bbolt.Bucket
	version    backend.Version
	touched    [][]byte
}

func (w *txWriter) ResetPartition(partition common.DbPartitionKey) error {
	err := w.partitions.DeleteBucket(partition)
	if errors.Is(err, bbolt.ErrBucketNotFound) {
		return nil
	}
	return err
}

func (w *txWriter) SetEntry(partition common.DbPartitionKey, key common.DbSortKey, value []byte) error {
	bucket, err := w.partitions.CreateBucketIfNotExists(partition)
	if err != nil {
		return err
	}
	return bucket.Put(key, backend.EncodeEntryValue(w.version, value))
}

func (w *txWriter) DeleteEntry(partition common.DbPartitionKey, key common.DbSortKey) error {
	bucket := w.partitions.Bucket(partition)
	if bucket == nil {
		return nil
	}
	if n := len(w.touched); n == 0 || !bytes.Equal(w.touched[n-1], partition) {
		w.touched = append(w.touched, partition)
	}
	return bucket.Delete(key)
}

// dropEmptyPartitions removes partitions emptied by deletions so that only
// non-empty partitions are listed.
func (w *txWriter) dropEmptyPartitions() error {
	for _, partition := range w.touched {
		bucket := w.partitions.Bucket(partition)
		if bucket == nil {
			continue
		}
		if k, _ := bucket.Cursor().First(); k == nil {
			if err := w.partitions.DeleteBucket(partition); err != nil {
				return err
			}
		}
	}
	return nil
}

type entryIterator struct {
	tx      *bbolt.Tx
	cursor  *bbolt.Cursor
	from    common.DbSortKey
	started bool
	key     common.DbSortKey
	value   []byte
	version backend.Version
	err     error
}

func (it *entryIterator) Next() bool {
	if it.cursor == nil || it.err != nil {
		return false
	}
	var k, v []byte
	if !it.started {
		if len(it.from) > 0 {
			k, v = it.cursor.Seek(it.from)
		} else {
			k, v = it.cursor.First()
		}
		it.started = true
	} else {
		k, v = it.cursor.Next()
	}
	if k == nil {
		it.cursor = nil
		return false
	}
	version, value, err := backend.DecodeEntryValue(v)
	if err != nil {
		it.err = err
		return false
	}
	it.key, it.value, it.version = k, value, version
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
	return it.err
}

func (it *entryIterator) Release() {
	if it.tx != nil {
		_ = it.tx.Rollback()
		it.tx = nil
		it.cursor = nil
	}
}
