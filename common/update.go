// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package common

import (
	"bytes"
	"fmt"
	"sort"
)

//go:generate mockgen -source update.go -destination update_mocks.go -package common

// DatabaseUpdates summarizes the effective changes to a substate database
// produced by a committed transaction. Changes are grouped by partition; a
// partition may be reset, which drops all of its existing entries before the
// entry updates of the same partition are applied.
//
// An example use would look like this:
//
//	updates := DatabaseUpdates{}
//	updates.AppendSet(partition, sortKey, value)
//	updates.AppendDelete(partition, otherKey)
//	...
//	// Optionally, check that the provided data is valid (sorted and unique).
//	err := updates.Check()
//
// Valid instances can then be forwarded to a database for committing.
type DatabaseUpdates struct {
	Partitions []PartitionUpdates
}

// PartitionUpdates lists the changes of a single partition.
type PartitionUpdates struct {
	PartitionKey DbPartitionKey
	Reset        bool
	Entries      []EntryUpdate
}

// EntryUpdate is the change of a single entry: either a new value or, if
// Delete is set, the removal of the entry.
type EntryUpdate struct {
	SortKey DbSortKey
	Value   []byte
	Delete  bool
}

func (e EntryUpdate) String() string {
	if e.Delete {
		return fmt.Sprintf("%v: delete", e.SortKey)
	}
	return fmt.Sprintf("%v: set 0x%x", e.SortKey, e.Value)
}

// IsEmpty is true if there is no change covered by this update.
func (u *DatabaseUpdates) IsEmpty() bool {
	for _, partition := range u.Partitions {
		if partition.Reset || len(partition.Entries) > 0 {
			return false
		}
	}
	return true
}

// AppendSet registers a new value for the given entry.
func (u *DatabaseUpdates) AppendSet(partition DbPartitionKey, key DbSortKey, value []byte) {
	p := u.partition(partition)
	p.Entries = append(p.Entries, EntryUpdate{SortKey: key, Value: value})
}

// AppendDelete registers the removal of the given entry.
func (u *DatabaseUpdates) AppendDelete(partition DbPartitionKey, key DbSortKey) {
	p := u.partition(partition)
	p.Entries = append(p.Entries, EntryUpdate{SortKey: key, Delete: true})
}

// AppendReset registers the removal of all entries of the given partition
// present before this update. Entry updates of the same partition registered
// in this update remain effective.
func (u *DatabaseUpdates) AppendReset(partition DbPartitionKey) {
	u.partition(partition).Reset = true
}

func (u *DatabaseUpdates) partition(key DbPartitionKey) *PartitionUpdates {
	// updates are usually appended partition by partition
	if n := len(u.Partitions); n > 0 && bytes.Equal(u.Partitions[n-1].PartitionKey, key) {
		return &u.Partitions[n-1]
	}
	u.Partitions = append(u.Partitions, PartitionUpdates{PartitionKey: key})
	return &u.Partitions[len(u.Partitions)-1]
}

// Normalize sorts partitions and entries and merges duplicates. For entries
// registered multiple times the last registration wins.
func (u *DatabaseUpdates) Normalize() {
	sort.SliceStable(u.Partitions, func(i, j int) bool {
		return bytes.Compare(u.Partitions[i].PartitionKey, u.Partitions[j].PartitionKey) < 0
	})
	res := u.Partitions[:0]
	for _, cur := range u.Partitions {
		if n := len(res); n > 0 && bytes.Equal(res[n-1].PartitionKey, cur.PartitionKey) {
			res[n-1].Reset = res[n-1].Reset || cur.Reset
			res[n-1].Entries = append(res[n-1].Entries, cur.Entries...)
			continue
		}
		res = append(res, cur)
	}
	for i := range res {
		res[i].Entries = sortUniqueKeepLast(res[i].Entries)
	}
	u.Partitions = res
}

func sortUniqueKeepLast(list []EntryUpdate) []EntryUpdate {
	if len(list) <= 1 {
		return list
	}
	sort.SliceStable(list, func(i, j int) bool {
		return bytes.Compare(list[i].SortKey, list[j].SortKey) < 0
	})
	j := 0
	for i := 1; i < len(list); i++ {
		if bytes.Equal(list[j].SortKey, list[i].SortKey) {
			list[j] = list[i]
		} else {
			j++
			list[j] = list[i]
		}
	}
	return list[:j+1]
}

// Check verifies that partitions and entries are sorted and unique.
func (u *DatabaseUpdates) Check() error {
	for i := 0; i+1 < len(u.Partitions); i++ {
		if bytes.Compare(u.Partitions[i].PartitionKey, u.Partitions[i+1].PartitionKey) >= 0 {
			return fmt.Errorf("partition updates are not in order or unique")
		}
	}
	for _, partition := range u.Partitions {
		for i := 0; i+1 < len(partition.Entries); i++ {
			if bytes.Compare(partition.Entries[i].SortKey, partition.Entries[i+1].SortKey) >= 0 {
				return fmt.Errorf("entry updates of partition %v are not in order or unique", partition.PartitionKey)
			}
		}
	}
	return nil
}

// ApplyTo applies this update to the provided target in a standardized
// order: partitions in the listed order, and within each partition the reset
// first followed by the entry updates. It is intended to be utilized by
// database implementations to simplify the processing of updates.
func (u *DatabaseUpdates) ApplyTo(target UpdateTarget) error {
	for _, partition := range u.Partitions {
		if partition.Reset {
			if err := target.ResetPartition(partition.PartitionKey); err != nil {
				return err
			}
		}
		for _, entry := range partition.Entries {
			var err error
			if entry.Delete {
				err = target.DeleteEntry(partition.PartitionKey, entry.SortKey)
			} else {
				err = target.SetEntry(partition.PartitionKey, entry.SortKey, entry.Value)
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// UpdateTarget is an interface for database implementations offering
// individual mutation functions instead of a single commit function. It is
// the parameter type of the ApplyTo function above.
type UpdateTarget interface {
	// ResetPartition removes all entries of the given partition.
	ResetPartition(DbPartitionKey) error
	// SetEntry sets the value of an entry.
	SetEntry(DbPartitionKey, DbSortKey, []byte) error
	// DeleteEntry removes an entry; removing a missing entry is a no-op.
	DeleteEntry(DbPartitionKey, DbSortKey) error
}
