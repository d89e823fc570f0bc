// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package backend_test

import (
	"testing"

	"github.com/radixdlt/radixdlt-scrypto-sub020/backend"
	"github.com/radixdlt/radixdlt-scrypto-sub020/backend/avax"
	"github.com/radixdlt/radixdlt-scrypto-sub020/backend/bolt"
	"github.com/radixdlt/radixdlt-scrypto-sub020/backend/ldb"
	"github.com/radixdlt/radixdlt-scrypto-sub020/backend/memory"
	"github.com/radixdlt/radixdlt-scrypto-sub020/backend/overlay"
	"github.com/radixdlt/radixdlt-scrypto-sub020/common"
	"github.com/radixdlt/radixdlt-scrypto-sub020/dbkey"
	"github.com/stretchr/testify/require"
)

type databaseFactory func(t *testing.T, dir string, schema *backend.Schema) (backend.SubstateDatabase, error)

// persistent factories reopen the content of dir; others ignore it.
var databaseFactories = map[string]struct {
	open       databaseFactory
	persistent bool
}{
	"memory": {func(t *testing.T, dir string, schema *backend.Schema) (backend.SubstateDatabase, error) {
		return memory.NewDatabase(schema, mapper)
	}, false},
	"ldb": {func(t *testing.T, dir string, schema *backend.Schema) (backend.SubstateDatabase, error) {
		return ldb.Open(dir, ldb.Options{Schema: schema, Mapper: mapper})
	}, true},
	"bolt": {func(t *testing.T, dir string, schema *backend.Schema) (backend.SubstateDatabase, error) {
		return bolt.Open(dir, bolt.Options{Schema: schema, Mapper: mapper, NoSync: true})
	}, true},
	"avax": {func(t *testing.T, dir string, schema *backend.Schema) (backend.SubstateDatabase, error) {
		return avax.NewMemory(avax.Options{Schema: schema, Mapper: mapper})
	}, false},
	"overlay": {func(t *testing.T, dir string, schema *backend.Schema) (backend.SubstateDatabase, error) {
		root, err := memory.NewDatabase(schema, mapper)
		if err != nil {
			return nil, err
		}
		t.Cleanup(func() { root.Close() })
		return overlay.NewMergeable(root, overlay.Options{Schema: schema, Mapper: mapper})
	}, false},
}

var (
	mapper = dbkey.SpreadPrefixKeyMapper{}
	nodeA  = common.NodeId{0xa}
	nodeB  = common.NodeId{0xb}
)

func forEachDatabase(t *testing.T, schema *backend.Schema, test func(t *testing.T, db backend.SubstateDatabase)) {
	for name, factory := range databaseFactories {
		t.Run(name, func(t *testing.T) {
			db, err := factory.open(t, t.TempDir(), schema)
			require.NoError(t, err)
			defer func() {
				require.NoError(t, db.Close())
			}()
			test(t, db)
		})
	}
}

func set(partition common.DbPartitionKey, key common.DbSortKey, value []byte) *common.DatabaseUpdates {
	updates := &common.DatabaseUpdates{}
	updates.AppendSet(partition, key, value)
	return updates
}

func TestDatabase_MissingEntriesAreNotFound(t *testing.T) {
	forEachDatabase(t, nil, func(t *testing.T, db backend.SubstateDatabase) {
		_, _, found, err := db.GetSubstate(mapper.ToDbPartitionKey(nodeA, 0), common.DbSortKey{1})
		require.NoError(t, err)
		require.False(t, found)
	})
}

func TestDatabase_CommittedEntriesCanBeRead(t *testing.T) {
	forEachDatabase(t, nil, func(t *testing.T, db backend.SubstateDatabase) {
		partition := mapper.ToDbPartitionKey(nodeA, 0)
		require.NoError(t, db.Commit(set(partition, common.DbSortKey{1}, []byte{10})))

		value, version, found, err := db.GetSubstate(partition, common.DbSortKey{1})
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, []byte{10}, value)
		require.Equal(t, backend.Version(1), version)

		require.NoError(t, db.Commit(set(partition, common.DbSortKey{1}, []byte{11})))
		value, version, found, err = db.GetSubstate(partition, common.DbSortKey{1})
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, []byte{11}, value)
		require.Equal(t, backend.Version(2), version)
	})
}

func TestDatabase_DeletedEntriesAreGone(t *testing.T) {
	forEachDatabase(t, nil, func(t *testing.T, db backend.SubstateDatabase) {
		partition := mapper.ToDbPartitionKey(nodeA, 0)
		require.NoError(t, db.Commit(set(partition, common.DbSortKey{1}, []byte{10})))

		updates := &common.DatabaseUpdates{}
		updates.AppendDelete(partition, common.DbSortKey{1})
		updates.AppendDelete(partition, common.DbSortKey{2})
		require.NoError(t, db.Commit(updates))

		_, _, found, err := db.GetSubstate(partition, common.DbSortKey{1})
		require.NoError(t, err)
		require.False(t, found)

		partitions, err := db.ListPartitionKeys()
		require.NoError(t, err)
		require.Empty(t, partitions)
	})
}

func TestDatabase_ListEntriesIsOrderedAndLimitedToPartition(t *testing.T) {
	forEachDatabase(t, nil, func(t *testing.T, db backend.SubstateDatabase) {
		a := mapper.ToDbPartitionKey(nodeA, 0)
		b := mapper.ToDbPartitionKey(nodeB, 0)
		updates := &common.DatabaseUpdates{}
		updates.AppendSet(a, common.DbSortKey{3}, []byte{3})
		updates.AppendSet(a, common.DbSortKey{1}, []byte{1})
		updates.AppendSet(a, common.DbSortKey{2, 0}, []byte{2})
		updates.AppendSet(b, common.DbSortKey{0}, []byte{0})
		updates.Normalize()
		require.NoError(t, db.Commit(updates))

		iter, err := db.ListEntries(a)
		require.NoError(t, err)
		entries, err := backend.CollectEntries(iter)
		require.NoError(t, err)
		require.Len(t, entries, 3)
		require.Equal(t, common.DbSortKey{1}, entries[0].Key)
		require.Equal(t, common.DbSortKey{2, 0}, entries[1].Key)
		require.Equal(t, common.DbSortKey{3}, entries[2].Key)
		require.Equal(t, []byte{2}, entries[1].Value)
		require.Equal(t, backend.Version(1), entries[2].Version)

		iter, err = db.ListEntries(mapper.ToDbPartitionKey(nodeA, 1))
		require.NoError(t, err)
		entries, err = backend.CollectEntries(iter)
		require.NoError(t, err)
		require.Empty(t, entries)
	})
}

func TestDatabase_ListEntriesFromStartsAtKey(t *testing.T) {
	forEachDatabase(t, nil, func(t *testing.T, db backend.SubstateDatabase) {
		a := mapper.ToDbPartitionKey(nodeA, 0)
		updates := &common.DatabaseUpdates{}
		for _, key := range []common.DbSortKey{{1}, {2}, {2, 0}, {4}} {
			updates.AppendSet(a, key, key)
		}
		updates.AppendSet(mapper.ToDbPartitionKey(nodeB, 0), common.DbSortKey{5}, []byte{5})
		updates.Normalize()
		require.NoError(t, db.Commit(updates))

		collect := func(from common.DbSortKey) []common.DbSortKey {
			iter, err := db.ListEntriesFrom(a, from)
			require.NoError(t, err)
			entries, err := backend.CollectEntries(iter)
			require.NoError(t, err)
			keys := []common.DbSortKey{}
			for _, entry := range entries {
				keys = append(keys, entry.Key)
			}
			return keys
		}
		require.Equal(t, []common.DbSortKey{{1}, {2}, {2, 0}, {4}}, collect(nil))
		require.Equal(t, []common.DbSortKey{{2}, {2, 0}, {4}}, collect(common.DbSortKey{2}))
		require.Equal(t, []common.DbSortKey{{4}}, collect(common.DbSortKey{3}))
		require.Equal(t, []common.DbSortKey{}, collect(common.DbSortKey{9}))
	})
}

func TestDatabase_ResetDropsPreviousEntriesOnly(t *testing.T) {
	forEachDatabase(t, nil, func(t *testing.T, db backend.SubstateDatabase) {
		partition := mapper.ToDbPartitionKey(nodeA, 3)
		updates := &common.DatabaseUpdates{}
		updates.AppendSet(partition, common.DbSortKey{1}, []byte{1})
		updates.AppendSet(partition, common.DbSortKey{2}, []byte{2})
		require.NoError(t, db.Commit(updates))

		updates = &common.DatabaseUpdates{}
		updates.AppendReset(partition)
		updates.AppendSet(partition, common.DbSortKey{2}, []byte{22})
		require.NoError(t, db.Commit(updates))

		iter, err := db.ListEntries(partition)
		require.NoError(t, err)
		entries, err := backend.CollectEntries(iter)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		require.Equal(t, common.DbSortKey{2}, entries[0].Key)
		require.Equal(t, []byte{22}, entries[0].Value)
	})
}

func TestDatabase_ListPartitionKeys(t *testing.T) {
	forEachDatabase(t, nil, func(t *testing.T, db backend.SubstateDatabase) {
		updates := &common.DatabaseUpdates{}
		for _, node := range []common.NodeId{nodeA, nodeB} {
			for _, partition := range []common.PartitionNumber{0, 1, 64} {
				for i := byte(0); i < 3; i++ {
					updates.AppendSet(mapper.ToDbPartitionKey(node, partition), common.DbSortKey{i}, []byte{i})
				}
			}
		}
		updates.Normalize()
		require.NoError(t, db.Commit(updates))

		keys, err := db.ListPartitionKeys()
		require.NoError(t, err)
		require.Len(t, keys, 6)
		for i := 1; i < len(keys); i++ {
			require.Less(t, keys[i-1].String(), keys[i].String())
		}

		partitions, err := backend.ListPartitions(db, mapper)
		require.NoError(t, err)
		require.Len(t, partitions, 6)
	})
}

func TestDatabase_IteratorIsNotAffectedByLaterCommits(t *testing.T) {
	for name, factory := range databaseFactories {
		if name == "bolt" {
			// open read transactions block commits needing to grow the file
			continue
		}
		t.Run(name, func(t *testing.T) {
			db, err := factory.open(t, t.TempDir(), nil)
			require.NoError(t, err)
			defer db.Close()
			partition := mapper.ToDbPartitionKey(nodeA, 0)
			require.NoError(t, db.Commit(set(partition, common.DbSortKey{1}, []byte{1})))

			iter, err := db.ListEntries(partition)
			require.NoError(t, err)
			require.NoError(t, db.Commit(set(partition, common.DbSortKey{2}, []byte{2})))

			entries, err := backend.CollectEntries(iter)
			require.NoError(t, err)
			require.Len(t, entries, 1)
		})
	}
}

func TestDatabase_UnnormalizedUpdatesAreRejected(t *testing.T) {
	forEachDatabase(t, nil, func(t *testing.T, db backend.SubstateDatabase) {
		partition := mapper.ToDbPartitionKey(nodeA, 0)
		updates := &common.DatabaseUpdates{}
		updates.AppendSet(partition, common.DbSortKey{2}, []byte{2})
		updates.AppendSet(partition, common.DbSortKey{1}, []byte{1})
		require.Error(t, db.Commit(updates))

		_, _, found, err := db.GetSubstate(partition, common.DbSortKey{2})
		require.NoError(t, err)
		require.False(t, found)
	})
}

func TestDatabase_SchemaIsEnforced(t *testing.T) {
	schema := &backend.Schema{Partitions: []backend.PartitionSchema{
		{Number: 0, Kind: common.FieldKind},
		{Number: 1, Kind: common.MapKind, Iterable: true},
	}}
	forEachDatabase(t, schema, func(t *testing.T, db backend.SubstateDatabase) {
		unknown := mapper.ToDbPartitionKey(nodeA, 2)
		_, _, _, err := db.GetSubstate(unknown, common.DbSortKey{1})
		require.ErrorIs(t, err, backend.ErrUnknownPartition)

		err = db.Commit(set(unknown, common.DbSortKey{1}, []byte{1}))
		require.ErrorIs(t, err, backend.ErrUnknownPartition)

		_, err = db.ListEntries(mapper.ToDbPartitionKey(nodeA, 0))
		require.ErrorIs(t, err, backend.ErrIterationNotAllowed)

		iter, err := db.ListEntries(mapper.ToDbPartitionKey(nodeA, 1))
		require.NoError(t, err)
		iter.Release()
	})
}

func TestDatabase_PersistentContentSurvivesReopening(t *testing.T) {
	for name, factory := range databaseFactories {
		if !factory.persistent {
			continue
		}
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			partition := mapper.ToDbPartitionKey(nodeA, 0)

			db, err := factory.open(t, dir, nil)
			require.NoError(t, err)
			require.NoError(t, db.Commit(set(partition, common.DbSortKey{1}, []byte{1})))
			require.NoError(t, db.Close())

			db, err = factory.open(t, dir, nil)
			require.NoError(t, err)
			require.NoError(t, db.Commit(set(partition, common.DbSortKey{2}, []byte{2})))
			value, version, found, err := db.GetSubstate(partition, common.DbSortKey{1})
			require.NoError(t, err)
			require.True(t, found)
			require.Equal(t, []byte{1}, value)
			require.Equal(t, backend.Version(1), version)
			_, version, _, err = db.GetSubstate(partition, common.DbSortKey{2})
			require.NoError(t, err)
			require.Equal(t, backend.Version(2), version)
			require.NoError(t, db.Close())
		})
	}
}

func TestDatabase_ReopeningWithIncompatibleSchemaFails(t *testing.T) {
	for name, factory := range databaseFactories {
		if !factory.persistent {
			continue
		}
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			schema := &backend.Schema{Partitions: []backend.PartitionSchema{{Number: 0}}}
			db, err := factory.open(t, dir, schema)
			require.NoError(t, err)
			require.NoError(t, db.Close())

			other := &backend.Schema{Partitions: []backend.PartitionSchema{{Number: 1}}}
			_, err = factory.open(t, dir, other)
			require.ErrorIs(t, err, backend.ErrIncompatibleConfiguration)

			db, err = factory.open(t, dir, nil)
			require.NoError(t, err)
			_, _, _, err = db.GetSubstate(mapper.ToDbPartitionKey(nodeA, 1), common.DbSortKey{0})
			require.ErrorIs(t, err, backend.ErrUnknownPartition)
			require.NoError(t, db.Close())
		})
	}
}

func TestDatabase_MemoryFootprintIsReported(t *testing.T) {
	forEachDatabase(t, nil, func(t *testing.T, db backend.SubstateDatabase) {
		require.NotNil(t, db.GetMemoryFootprint())
		require.Greater(t, db.GetMemoryFootprint().Total(), uintptr(0))
	})
}
