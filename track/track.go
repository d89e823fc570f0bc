// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package track

import (
	"bytes"
	"errors"
	"fmt"
	"unsafe"

	"github.com/inconshreveable/log15"
	"github.com/radixdlt/radixdlt-scrypto-sub020/backend"
	"github.com/radixdlt/radixdlt-scrypto-sub020/common"
	"github.com/radixdlt/radixdlt-scrypto-sub020/common/immutable"
	"github.com/radixdlt/radixdlt-scrypto-sub020/dbkey"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

const (
	// ErrFinalized is reported by all operations on a finalized track.
	ErrFinalized = common.ConstError("track has been finalized")
	// ErrNodeAlreadyTracked is reported when creating a node which has been
	// accessed or created before in the same transaction.
	ErrNodeAlreadyTracked = common.ConstError("node is already tracked")
)

// Track is the overlay recording all reads and writes of substates performed
// by a single transaction on top of a SubstateDatabase. Slots are loaded
// lazily from the database on first access and all modifications are kept in
// memory until the transaction is finalized. The database itself is never
// modified by the track.
//
// A Track is owned by a single transaction and must not be used
// concurrently.
type Track struct {
	db     backend.SubstateDatabase
	mapper dbkey.DatabaseKeyMapper

	nodes     map[common.NodeId]*TrackedNode
	nodeOrder []common.NodeId // in order of first access

	// forceWrites holds snapshots of slots to be retained on revert.
	forceWrites map[slotId]*TrackedSubstate
	transients  map[slotId]struct{}

	onIOAccess IOAccessHandler

	// A list of errors encountered during database interactions or while
	// decoding payloads.
	errors []error

	finalized bool
	log       log15.Logger
}

type slotId struct {
	node      common.NodeId
	partition common.PartitionNumber
	key       string
}

func newSlotId(node common.NodeId, partition common.PartitionNumber, key common.DbSortKey) slotId {
	return slotId{node: node, partition: partition, key: string(key)}
}

// Substate is a substate key together with a value.
type Substate struct {
	Key   common.SubstateKey
	Value immutable.Bytes
}

// NodeSubstates lists the initial substates of a node per partition.
type NodeSubstates map[common.PartitionNumber][]Substate

// NewTrack creates an empty track on top of the given database. If mapper is
// nil, the SpreadPrefixKeyMapper is used.
func NewTrack(db backend.SubstateDatabase, mapper dbkey.DatabaseKeyMapper) *Track {
	if mapper == nil {
		mapper = dbkey.SpreadPrefixKeyMapper{}
	}
	return &Track{
		db:          db,
		mapper:      mapper,
		nodes:       map[common.NodeId]*TrackedNode{},
		forceWrites: map[slotId]*TrackedSubstate{},
		transients:  map[slotId]struct{}{},
		log:         common.NewLogger("track"),
	}
}

// SetIOAccessHandler registers a callback notified about every database
// access and every change of the size of a tracked slot. An error returned
// by the handler aborts the operation triggering it.
func (t *Track) SetIOAccessHandler(handler IOAccessHandler) {
	t.onIOAccess = handler
}

// Mapper returns the key mapper used to address database entries.
func (t *Track) Mapper() dbkey.DatabaseKeyMapper {
	return t.mapper
}

// TrackedNode provides access to the tracked state of a node.
func (t *Track) TrackedNode(node common.NodeId) (*TrackedNode, bool) {
	res, found := t.nodes[node]
	return res, found
}

// NodeIds lists all tracked nodes in order of their first access.
func (t *Track) NodeIds() []common.NodeId {
	return append([]common.NodeId{}, t.nodeOrder...)
}

// Check reports all errors encountered while accessing the database or
// decoding payloads. A track reporting errors can not be committed.
func (t *Track) Check() error {
	return errors.Join(t.errors...)
}

func (t *Track) fail(err error) error {
	t.errors = append(t.errors, err)
	return err
}

func (t *Track) notify(access IOAccess) error {
	if t.onIOAccess == nil {
		return nil
	}
	return t.onIOAccess(access)
}

func (t *Track) notifyUpdate(node common.NodeId, partition common.PartitionNumber, key common.SubstateKey, oldSize, newSize int) error {
	return t.notify(TrackSubstateUpdated{
		Substate: CanonicalSubstateKey{Node: node, Partition: partition, Key: key},
		OldSize:  oldSize,
		NewSize:  newSize,
	})
}

func (t *Track) getOrCreateNode(node common.NodeId) *TrackedNode {
	res, found := t.nodes[node]
	if !found {
		res = NewTrackedNode(false)
		t.nodes[node] = res
		t.nodeOrder = append(t.nodeOrder, node)
	}
	return res
}

// CreateNode registers a node created by the current transaction together
// with its initial substates. The store is never consulted for new nodes.
func (t *Track) CreateNode(node common.NodeId, substates NodeSubstates) error {
	if t.finalized {
		return ErrFinalized
	}
	if _, found := t.nodes[node]; found {
		return fmt.Errorf("%w: %v", ErrNodeAlreadyTracked, node)
	}
	tracked := NewTrackedNode(true)
	t.nodes[node] = tracked
	t.nodeOrder = append(t.nodeOrder, node)

	partitions := maps.Keys(substates)
	slices.Sort(partitions)
	for _, partition := range partitions {
		tp := tracked.getOrCreatePartition(partition)
		for _, substate := range substates[partition] {
			tp.Put(t.mapper.ToDbSortKey(substate.Key), &TrackedSubstate{
				Key:   substate.Key,
				Value: New{Value: substate.Value},
			})
			if err := t.notifyUpdate(node, partition, substate.Key, Untracked, substate.Value.Len()); err != nil {
				return err
			}
		}
	}
	return nil
}

// lookup returns the slot of the given substate, loading it from the store
// if necessary. For new nodes, slots are never loaded and nil is returned if
// the slot is not tracked.
func (t *Track) lookup(node common.NodeId, partition common.PartitionNumber, key common.SubstateKey) (*TrackedSubstate, common.DbSortKey, error) {
	tn := t.getOrCreateNode(node)
	tp := tn.getOrCreatePartition(partition)
	sortKey := t.mapper.ToDbSortKey(key)
	if res, found := tp.Get(sortKey); found {
		return res, sortKey, nil
	}
	if tn.IsNew {
		return nil, sortKey, nil
	}
	res, err := t.load(node, partition, tp, key, sortKey)
	return res, sortKey, err
}

func (t *Track) load(
	node common.NodeId,
	partition common.PartitionNumber,
	tp *TrackedPartition,
	key common.SubstateKey,
	sortKey common.DbSortKey,
) (*TrackedSubstate, error) {
	substate := CanonicalSubstateKey{Node: node, Partition: partition, Key: key}
	res := &TrackedSubstate{Key: key, Value: ReadNonExistent}

	_, transient := t.transients[newSlotId(node, partition, sortKey)]
	if !transient && !tp.reset {
		value, version, found, err := t.db.GetSubstate(t.mapper.ToDbPartitionKey(node, partition), sortKey)
		if err != nil {
			return nil, t.fail(fmt.Errorf("failed to load substate %v: %w", substate, err))
		}
		res.readFromStore = true
		res.Version = version
		var access IOAccess = ReadFromDbNotFound{Substate: substate}
		if found {
			res.Value = ReadExistent(immutable.NewBytes(value))
			access = ReadFromDb{Substate: substate, Size: len(value)}
		}
		if err := t.notify(access); err != nil {
			return nil, err
		}
	}

	tp.Put(sortKey, res)
	if err := t.notifyUpdate(node, partition, key, Untracked, Size(res.Value)); err != nil {
		return nil, err
	}
	return res, nil
}

// GetSubstate returns the current value of a substate, if present.
func (t *Track) GetSubstate(node common.NodeId, partition common.PartitionNumber, key common.SubstateKey) (immutable.Bytes, bool, error) {
	if t.finalized {
		return immutable.Bytes{}, false, ErrFinalized
	}
	substate, _, err := t.lookup(node, partition, key)
	if err != nil || substate == nil {
		return immutable.Bytes{}, false, err
	}
	value, found := Get(substate.Value)
	return value, found, nil
}

// SetSubstate assigns a new value to a substate.
func (t *Track) SetSubstate(node common.NodeId, partition common.PartitionNumber, key common.SubstateKey, value immutable.Bytes) error {
	if t.finalized {
		return ErrFinalized
	}
	substate, sortKey, err := t.lookup(node, partition, key)
	if err != nil {
		return err
	}
	if substate == nil {
		// an unknown substate of a node created in this transaction
		tp := t.nodes[node].getOrCreatePartition(partition)
		tp.Put(sortKey, &TrackedSubstate{Key: key, Value: New{Value: value}})
		return t.notifyUpdate(node, partition, key, Untracked, value.Len())
	}
	oldSize := Size(substate.Value)
	substate.Value = Set(substate.Value, value)
	return t.notifyUpdate(node, partition, key, oldSize, Size(substate.Value))
}

// RemoveSubstate deletes a substate and returns the value it had before.
func (t *Track) RemoveSubstate(node common.NodeId, partition common.PartitionNumber, key common.SubstateKey) (immutable.Bytes, bool, error) {
	if t.finalized {
		return immutable.Bytes{}, false, ErrFinalized
	}
	substate, _, err := t.lookup(node, partition, key)
	if err != nil || substate == nil {
		return immutable.Bytes{}, false, err
	}
	oldSize := Size(substate.Value)
	next, value, found := Take(substate.Value)
	substate.Value = next
	if err := t.notifyUpdate(node, partition, key, oldSize, Size(next)); err != nil {
		return immutable.Bytes{}, false, err
	}
	return value, found, nil
}

// DeletePartition removes all substates of a partition. Stored entries of the
// partition are no longer visible to the transaction and are dropped on
// commit.
func (t *Track) DeletePartition(node common.NodeId, partition common.PartitionNumber) error {
	if t.finalized {
		return ErrFinalized
	}
	tp := t.getOrCreateNode(node).getOrCreatePartition(partition)
	type removal struct {
		key              common.SubstateKey
		oldSize, newSize int
	}
	var removed []removal
	tp.ForEach(func(_ common.DbSortKey, substate *TrackedSubstate) {
		oldSize := Size(substate.Value)
		next, _, found := Take(substate.Value)
		substate.Value = next
		if found {
			removed = append(removed, removal{substate.Key, oldSize, Size(next)})
		}
	})
	tp.reset = true
	for _, r := range removed {
		if err := t.notifyUpdate(node, partition, r.key, r.oldSize, r.newSize); err != nil {
			return err
		}
	}
	return nil
}

// MarkAsTransient flags a substate as transient. Transient substates are
// never loaded from nor committed to the store.
func (t *Track) MarkAsTransient(node common.NodeId, partition common.PartitionNumber, key common.SubstateKey) {
	t.transients[newSlotId(node, partition, t.mapper.ToDbSortKey(key))] = struct{}{}
}

func (t *Track) isTransient(node common.NodeId, partition common.PartitionNumber, key common.DbSortKey) bool {
	_, found := t.transients[newSlotId(node, partition, key)]
	return found
}

// ForceWrite records the current state of a substate such that it survives
// a revert of the transaction. It is used for changes which have to be
// committed even for failing transactions, e.g. fee payments.
func (t *Track) ForceWrite(node common.NodeId, partition common.PartitionNumber, key common.SubstateKey) error {
	if t.finalized {
		return ErrFinalized
	}
	substate, sortKey, err := t.lookup(node, partition, key)
	if err != nil || substate == nil {
		return err
	}
	t.forceWrites[newSlotId(node, partition, sortKey)] = substate.clone()
	return nil
}

// ScanKeys lists up to limit keys of present substates of a partition. Keys
// of tracked slots are listed first, followed by stored keys not tracked.
// Scanned keys are not tracked.
func (t *Track) ScanKeys(node common.NodeId, partition common.PartitionNumber, kind common.SubstateKeyKind, limit uint32) ([]common.SubstateKey, error) {
	if t.finalized {
		return nil, ErrFinalized
	}
	tn := t.getOrCreateNode(node)
	tp := tn.getOrCreatePartition(partition)

	res := []common.SubstateKey{}
	tp.ForEach(func(_ common.DbSortKey, substate *TrackedSubstate) {
		if uint32(len(res)) >= limit {
			return
		}
		if _, found := Get(substate.Value); found {
			res = append(res, substate.Key)
		}
	})
	if uint32(len(res)) >= limit || tn.IsNew || tp.reset {
		return res, nil
	}

	err := t.scanStore(node, partition, tp, kind, nil, func(entry backend.Entry, key common.SubstateKey) bool {
		if _, tracked := tp.Get(entry.Key); !tracked {
			res = append(res, key)
		}
		return uint32(len(res)) < limit
	})
	return res, err
}

// DrainSubstates removes up to limit present substates of a partition and
// returns them. Tracked slots are drained first, followed by stored entries
// not tracked so far.
func (t *Track) DrainSubstates(node common.NodeId, partition common.PartitionNumber, kind common.SubstateKeyKind, limit uint32) ([]Substate, error) {
	if t.finalized {
		return nil, ErrFinalized
	}
	tn := t.getOrCreateNode(node)
	tp := tn.getOrCreatePartition(partition)

	var drained []*TrackedSubstate
	tp.ForEach(func(_ common.DbSortKey, substate *TrackedSubstate) {
		if uint32(len(drained)) >= limit {
			return
		}
		if _, found := Get(substate.Value); found {
			drained = append(drained, substate)
		}
	})
	res := make([]Substate, 0, len(drained))
	for _, substate := range drained {
		oldSize := Size(substate.Value)
		next, value, _ := Take(substate.Value)
		substate.Value = next
		if err := t.notifyUpdate(node, partition, substate.Key, oldSize, Size(next)); err != nil {
			return nil, err
		}
		res = append(res, Substate{Key: substate.Key, Value: value})
	}
	if uint32(len(res)) >= limit || tn.IsNew || tp.reset {
		return res, nil
	}

	// Stored entries are collected before being tracked, since tracking may
	// trigger callbacks which must not run while the store is iterated.
	var loaded []*TrackedSubstate
	var loadedKeys []common.DbSortKey
	err := t.scanStore(node, partition, tp, kind, nil, func(entry backend.Entry, key common.SubstateKey) bool {
		if _, tracked := tp.Get(entry.Key); !tracked {
			value := immutable.NewBytes(entry.Value)
			loaded = append(loaded, &TrackedSubstate{
				Key:           key,
				Value:         ReadExistAndWrite{Original: value, Write: Delete},
				Version:       entry.Version,
				readFromStore: true,
			})
			loadedKeys = append(loadedKeys, entry.Key)
		}
		return uint32(len(res)+len(loaded)) < limit
	})
	if err != nil {
		return nil, err
	}
	for i, substate := range loaded {
		tp.Put(loadedKeys[i], substate)
		if err := t.notifyUpdate(node, partition, substate.Key, Untracked, Size(substate.Value)); err != nil {
			return nil, err
		}
		original := substate.Value.(ReadExistAndWrite).Original
		res = append(res, Substate{Key: substate.Key, Value: original})
	}
	return res, nil
}

// ScanSortedSubstates lists up to limit present substates of a sorted
// partition in database order, merging stored entries with the changes of
// this transaction. Scanned entries are not tracked.
func (t *Track) ScanSortedSubstates(node common.NodeId, partition common.PartitionNumber, limit uint32) ([]Substate, error) {
	return t.scanSorted(node, partition, nil, limit)
}

// ScanSortedSubstatesFrom is like ScanSortedSubstates but skips all
// substates ordered before from. Passing the key following the last result
// of a previous scan pages through a partition.
func (t *Track) ScanSortedSubstatesFrom(node common.NodeId, partition common.PartitionNumber, from common.SortedKey, limit uint32) ([]Substate, error) {
	return t.scanSorted(node, partition, t.mapper.ToDbSortKey(from), limit)
}

func (t *Track) scanSorted(node common.NodeId, partition common.PartitionNumber, from common.DbSortKey, limit uint32) ([]Substate, error) {
	if t.finalized {
		return nil, ErrFinalized
	}
	tn := t.getOrCreateNode(node)
	tp := tn.getOrCreatePartition(partition)

	tracked := tp.substates.GetEntries()
	tracked = tracked[tp.substates.Seek(from):]

	var stored []backend.Entry
	var storedKeys []common.SubstateKey
	if !tn.IsNew && !tp.reset {
		// Every tracked slot may hide one stored entry, so this many entries
		// are sufficient to produce limit results.
		needed := uint64(limit) + uint64(len(tracked))
		err := t.scanStore(node, partition, tp, common.SortedKind, from, func(entry backend.Entry, key common.SubstateKey) bool {
			stored = append(stored, entry)
			storedKeys = append(storedKeys, key)
			return uint64(len(stored)) < needed
		})
		if err != nil {
			return nil, err
		}
	}

	res := []Substate{}
	i, j := 0, 0
	for uint32(len(res)) < limit && (i < len(stored) || j < len(tracked)) {
		order := 0
		switch {
		case i >= len(stored):
			order = 1
		case j >= len(tracked):
			order = -1
		default:
			order = bytes.Compare(stored[i].Key, tracked[j].Key)
		}
		if order < 0 {
			res = append(res, Substate{Key: storedKeys[i], Value: immutable.NewBytes(stored[i].Value)})
			i++
			continue
		}
		if order == 0 {
			// the tracked slot supersedes the stored entry
			i++
		}
		if value, found := Get(tracked[j].Val.Value); found {
			res = append(res, Substate{Key: tracked[j].Val.Key, Value: value})
		}
		j++
	}
	return res, nil
}

// scanStore visits the stored entries of a partition in order until the
// visitor returns false. Every visited entry is reported as a database read
// and the number of visited entries is recorded as a range read of the
// partition.
func (t *Track) scanStore(
	node common.NodeId,
	partition common.PartitionNumber,
	tp *TrackedPartition,
	kind common.SubstateKeyKind,
	from common.DbSortKey,
	visit func(backend.Entry, common.SubstateKey) bool,
) error {
	iter, err := t.db.ListEntriesFrom(t.mapper.ToDbPartitionKey(node, partition), from)
	if err != nil {
		return t.fail(fmt.Errorf("failed to list partition %v/%d: %w", node, partition, err))
	}
	var entries []backend.Entry
	var keys []common.SubstateKey
	more := true
	for more && iter.Next() {
		entry := backend.Entry{
			Key:     append(common.DbSortKey{}, iter.Key()...),
			Value:   append([]byte{}, iter.Value()...),
			Version: iter.Version(),
		}
		key, err := dbkey.TryFromDbSortKey(t.mapper, entry.Key, kind)
		if err != nil {
			iter.Release()
			return t.fail(fmt.Errorf("invalid key %v in partition %v/%d: %w", entry.Key, node, partition, err))
		}
		entries = append(entries, entry)
		keys = append(keys, key)
		more = visit(entry, key)
	}
	err = iter.Err()
	iter.Release()
	if err != nil {
		return t.fail(fmt.Errorf("failed to list partition %v/%d: %w", node, partition, err))
	}

	tp.recordRangeRead(uint32(len(entries)))
	for i, entry := range entries {
		substate := CanonicalSubstateKey{Node: node, Partition: partition, Key: keys[i]}
		if err := t.notify(ReadFromDb{Substate: substate, Size: len(entry.Value)}); err != nil {
			return err
		}
	}
	return nil
}

// GetTrackedSubstateInfo classifies the state of a substate without
// accessing the store.
func (t *Track) GetTrackedSubstateInfo(node common.NodeId, partition common.PartitionNumber, key common.SubstateKey) TrackedSubstateInfo {
	tn, found := t.nodes[node]
	if !found {
		return Unmodified
	}
	tp, found := tn.Partition(partition)
	if !found {
		return Unmodified
	}
	substate, found := tp.Get(t.mapper.ToDbSortKey(key))
	if !found {
		return Unmodified
	}
	switch substate.Value.(type) {
	case New, Garbage:
		return Created
	case WriteOnly, ReadExistAndWrite, ReadNonExistAndWrite:
		return Updated
	}
	return Unmodified
}

// GetCommitInfo summarizes the store writes the transaction would perform if
// committed in its current state.
func (t *Track) GetCommitInfo() ([]StoreCommit, error) {
	if t.finalized {
		return nil, ErrFinalized
	}
	res := []StoreCommit{}
	for _, node := range t.nodeOrder {
		tn := t.nodes[node]
		for _, partition := range tn.PartitionNumbers() {
			tp := tn.partitions[partition]
			for _, entry := range tp.substates.GetEntries() {
				if t.isTransient(node, partition, entry.Key) {
					continue
				}
				substate := CanonicalSubstateKey{Node: node, Partition: partition, Key: entry.Val.Key}
				commit, found, err := t.commitInfo(tn, substate, entry.Key, entry.Val.Value)
				if err != nil {
					return nil, err
				}
				if found {
					res = append(res, commit)
				}
			}
		}
	}
	return res, nil
}

func (t *Track) commitInfo(tn *TrackedNode, substate CanonicalSubstateKey, sortKey common.DbSortKey, value TrackedSubstateValue) (StoreCommit, bool, error) {
	switch v := value.(type) {
	case New:
		return StoreCommit{Kind: CommitInsert, Substate: substate, Size: v.Value.Len()}, true, nil
	case ReadNonExistAndWrite:
		return StoreCommit{Kind: CommitInsert, Substate: substate, Size: v.Value.Len()}, true, nil
	case ReadExistAndWrite:
		if v.Write.Delete {
			return StoreCommit{Kind: CommitDelete, Substate: substate, OldSize: v.Original.Len()}, true, nil
		}
		return StoreCommit{Kind: CommitUpdate, Substate: substate, Size: v.Write.Value.Len(), OldSize: v.Original.Len()}, true, nil
	case WriteOnly:
		oldSize, existed := 0, false
		if !tn.IsNew {
			stored, _, found, err := t.db.GetSubstate(t.mapper.ToDbPartitionKey(substate.Node, substate.Partition), sortKey)
			if err != nil {
				return StoreCommit{}, false, t.fail(fmt.Errorf("failed to load substate %v: %w", substate, err))
			}
			oldSize, existed = len(stored), found
		}
		switch {
		case v.Write.Delete && existed:
			return StoreCommit{Kind: CommitDelete, Substate: substate, OldSize: oldSize}, true, nil
		case v.Write.Delete:
			return StoreCommit{}, false, nil
		case existed:
			return StoreCommit{Kind: CommitUpdate, Substate: substate, Size: v.Write.Value.Len(), OldSize: oldSize}, true, nil
		}
		return StoreCommit{Kind: CommitInsert, Substate: substate, Size: v.Write.Value.Len()}, true, nil
	}
	return StoreCommit{}, false, nil
}

func (t *Track) GetMemoryFootprint() *common.MemoryFootprint {
	mf := common.NewMemoryFootprint(unsafe.Sizeof(*t))
	for _, node := range t.nodeOrder {
		mf.AddChild(node.String(), t.nodes[node].GetMemoryFootprint())
	}
	var forced uintptr
	for id, substate := range t.forceWrites {
		forced += unsafe.Sizeof(id) + uintptr(len(id.key)) + unsafe.Sizeof(*substate) + uintptr(Size(substate.Value))
	}
	mf.AddChild("forceWrites", common.NewMemoryFootprint(forced))
	return mf
}

func partitionName(partition common.PartitionNumber) string {
	return fmt.Sprintf("partition-%d", partition)
}
