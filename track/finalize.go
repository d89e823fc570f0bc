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
	"fmt"

	"github.com/radixdlt/radixdlt-scrypto-sub020/backend"
	"github.com/radixdlt/radixdlt-scrypto-sub020/common"
	"github.com/radixdlt/radixdlt-scrypto-sub020/common/immutable"
	"github.com/radixdlt/radixdlt-scrypto-sub020/dbkey"
)

// StateChanges are the effective modifications of a finalized transaction,
// ordered by node (in order of first access), partition, and sort key.
type StateChanges struct {
	Nodes []NodeChanges
}

type NodeChanges struct {
	Node       common.NodeId
	Partitions []PartitionChanges
}

// PartitionChanges lists the changes of a partition. If Reset is set, all
// entries stored before the transaction are to be removed before the listed
// substate changes are applied.
type PartitionChanges struct {
	Partition common.PartitionNumber
	Reset     bool
	Substates []SubstateChange
}

// SubstateChange either sets a new value or, if Delete is set, removes the
// substate.
type SubstateChange struct {
	Key    common.SubstateKey
	Value  immutable.Bytes
	Delete bool
}

func (c SubstateChange) String() string {
	if c.Delete {
		return fmt.Sprintf("%v: delete", c.Key)
	}
	return fmt.Sprintf("%v: set %v", c.Key, c.Value)
}

// IsEmpty is true if there are no changes at all.
func (c *StateChanges) IsEmpty() bool {
	return len(c.Nodes) == 0
}

// CreateDatabaseUpdates converts the changes into a normalized update which
// can be committed to a SubstateDatabase.
func (c *StateChanges) CreateDatabaseUpdates(mapper dbkey.DatabaseKeyMapper) *common.DatabaseUpdates {
	res := &common.DatabaseUpdates{}
	for _, node := range c.Nodes {
		for _, partition := range node.Partitions {
			key := mapper.ToDbPartitionKey(node.Node, partition.Partition)
			if partition.Reset {
				res.AppendReset(key)
			}
			for _, change := range partition.Substates {
				if change.Delete {
					res.AppendDelete(key, mapper.ToDbSortKey(change.Key))
				} else {
					res.AppendSet(key, mapper.ToDbSortKey(change.Key), change.Value.ToBytes())
				}
			}
		}
	}
	res.Normalize()
	return res
}

// StateDependencies lists the stored state a transaction has observed.
type StateDependencies struct {
	Reads      []SubstateRead
	RangeReads []RangeRead
}

// SubstateRead is a substate loaded from the store. If Existed is false, the
// store had no value for it; otherwise Version is the version of the value
// read.
type SubstateRead struct {
	Substate CanonicalSubstateKey
	Existed  bool
	Version  backend.Version
}

// RangeRead is a partition scanned in the store, together with the largest
// number of entries visited by a single scan.
type RangeRead struct {
	Node      common.NodeId
	Partition common.PartitionNumber
	Count     uint32
}

// Finalize ends the transaction and produces its effective changes and the
// state it depends on. If success is false, all changes except forced writes
// are reverted. A successful transaction which encountered database or
// decoding errors can not be finalized. Finalize may only be called once.
func (t *Track) Finalize(success bool) (*StateChanges, *StateDependencies, error) {
	if t.finalized {
		return nil, nil, ErrFinalized
	}
	if success {
		if err := t.Check(); err != nil {
			return nil, nil, fmt.Errorf("failed to finalize track: %w", err)
		}
	} else {
		t.revertNonForceWriteChanges()
	}
	t.finalized = true
	t.dropTransients()

	changes := t.collectChanges()
	dependencies := t.collectDependencies()
	t.log.Debug("Finalized track", "success", success, "nodes", len(changes.Nodes), "reads", len(dependencies.Reads), "rangeReads", len(dependencies.RangeReads))
	return changes, dependencies, nil
}

func (t *Track) revertNonForceWriteChanges() {
	for _, node := range t.nodeOrder {
		t.nodes[node].RevertWrites()
	}
	for id, substate := range t.forceWrites {
		t.getOrCreateNode(id.node).getOrCreatePartition(id.partition).Put(common.DbSortKey(id.key), substate)
	}
	t.forceWrites = map[slotId]*TrackedSubstate{}
}

func (t *Track) dropTransients() {
	for id := range t.transients {
		if tn, found := t.nodes[id.node]; found {
			if tp, found := tn.Partition(id.partition); found {
				tp.Remove(common.DbSortKey(id.key))
			}
		}
	}
}

func (t *Track) collectChanges() *StateChanges {
	res := &StateChanges{}
	for _, node := range t.nodeOrder {
		tn := t.nodes[node]
		nodeChanges := NodeChanges{Node: node}
		for _, partition := range tn.PartitionNumbers() {
			tp := tn.partitions[partition]
			changes := PartitionChanges{Partition: partition, Reset: tp.reset}
			tp.ForEach(func(_ common.DbSortKey, substate *TrackedSubstate) {
				if change, found := flatten(substate); found {
					changes.Substates = append(changes.Substates, change)
				}
			})
			if changes.Reset || len(changes.Substates) > 0 {
				nodeChanges.Partitions = append(nodeChanges.Partitions, changes)
			}
		}
		if len(nodeChanges.Partitions) > 0 {
			res.Nodes = append(res.Nodes, nodeChanges)
		}
	}
	return res
}

func flatten(substate *TrackedSubstate) (SubstateChange, bool) {
	switch v := substate.Value.(type) {
	case New:
		return SubstateChange{Key: substate.Key, Value: v.Value}, true
	case ReadNonExistAndWrite:
		return SubstateChange{Key: substate.Key, Value: v.Value}, true
	case ReadExistAndWrite:
		return flattenWrite(substate.Key, v.Write), true
	case WriteOnly:
		return flattenWrite(substate.Key, v.Write), true
	}
	return SubstateChange{}, false
}

func flattenWrite(key common.SubstateKey, write Write) SubstateChange {
	if write.Delete {
		return SubstateChange{Key: key, Delete: true}
	}
	return SubstateChange{Key: key, Value: write.Value}
}

func (t *Track) collectDependencies() *StateDependencies {
	res := &StateDependencies{}
	for _, node := range t.nodeOrder {
		tn := t.nodes[node]
		for _, partition := range tn.PartitionNumbers() {
			tp := tn.partitions[partition]
			tp.ForEach(func(_ common.DbSortKey, substate *TrackedSubstate) {
				if !substate.readFromStore {
					return
				}
				existed := false
				switch v := substate.Value.(type) {
				case ReadOnly:
					existed = v.Existent
				case ReadExistAndWrite:
					existed = true
				}
				res.Reads = append(res.Reads, SubstateRead{
					Substate: CanonicalSubstateKey{Node: node, Partition: partition, Key: substate.Key},
					Existed:  existed,
					Version:  substate.Version,
				})
			})
			if tp.RangeRead > 0 {
				res.RangeReads = append(res.RangeReads, RangeRead{Node: node, Partition: partition, Count: tp.RangeRead})
			}
		}
	}
	return res
}
