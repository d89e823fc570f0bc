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
	"unsafe"

	"github.com/radixdlt/radixdlt-scrypto-sub020/common"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// TrackedPartition is the set of tracked slots of a single partition, kept
// in the order of their database sort keys.
type TrackedPartition struct {
	substates *common.SortedMap[common.DbSortKey, *TrackedSubstate]
	// RangeRead is the largest number of stored entries visited by a single
	// scan of this partition.
	RangeRead uint32
	// reset is set if the partition was deleted in this transaction. Stored
	// entries of a reset partition are no longer visible.
	reset bool
}

func NewTrackedPartition() *TrackedPartition {
	return &TrackedPartition{
		substates: common.NewSortedMap[common.DbSortKey, *TrackedSubstate](4, common.DbSortKeyComparator{}),
	}
}

// Get returns the slot for the given sort key, if tracked.
func (p *TrackedPartition) Get(key common.DbSortKey) (*TrackedSubstate, bool) {
	return p.substates.Get(key)
}

// Put starts tracking a slot, replacing any slot present for the same key.
func (p *TrackedPartition) Put(key common.DbSortKey, substate *TrackedSubstate) {
	p.substates.Put(key, substate)
}

// Remove stops tracking the slot with the given key.
func (p *TrackedPartition) Remove(key common.DbSortKey) bool {
	return p.substates.Remove(key)
}

// Size returns the number of tracked slots.
func (p *TrackedPartition) Size() int {
	return p.substates.Size()
}

// ForEach visits all slots in sort key order.
func (p *TrackedPartition) ForEach(visit func(common.DbSortKey, *TrackedSubstate)) {
	p.substates.ForEach(visit)
}

// IsReset is true if the partition has been deleted in this transaction.
func (p *TrackedPartition) IsReset() bool {
	return p.reset
}

func (p *TrackedPartition) recordRangeRead(count uint32) {
	if count > p.RangeRead {
		p.RangeRead = count
	}
}

// RevertWrites undoes the modifications of all slots.
func (p *TrackedPartition) RevertWrites() {
	p.reset = false
	p.substates.ForEach(func(_ common.DbSortKey, substate *TrackedSubstate) {
		substate.Value = RevertWrites(substate.Value)
	})
}

func (p *TrackedPartition) GetMemoryFootprint() *common.MemoryFootprint {
	mf := common.NewMemoryFootprint(unsafe.Sizeof(*p))
	mf.AddChild("index", p.substates.GetMemoryFootprint())
	var payload uintptr
	p.substates.ForEach(func(key common.DbSortKey, substate *TrackedSubstate) {
		payload += uintptr(len(key)) + unsafe.Sizeof(*substate) + uintptr(Size(substate.Value))
	})
	mf.AddChild("substates", common.NewMemoryFootprint(payload))
	return mf
}

// TrackedNode groups the tracked partitions of a node.
type TrackedNode struct {
	partitions map[common.PartitionNumber]*TrackedPartition
	// IsNew is set for nodes created in this transaction. Such nodes have no
	// stored state, so the store is never consulted for them.
	IsNew bool
}

func NewTrackedNode(isNew bool) *TrackedNode {
	return &TrackedNode{
		partitions: map[common.PartitionNumber]*TrackedPartition{},
		IsNew:      isNew,
	}
}

// Partition returns the tracked partition with the given number, if any.
func (n *TrackedNode) Partition(partition common.PartitionNumber) (*TrackedPartition, bool) {
	res, found := n.partitions[partition]
	return res, found
}

func (n *TrackedNode) getOrCreatePartition(partition common.PartitionNumber) *TrackedPartition {
	res, found := n.partitions[partition]
	if !found {
		res = NewTrackedPartition()
		n.partitions[partition] = res
	}
	return res
}

// PartitionNumbers lists the numbers of all tracked partitions in order.
func (n *TrackedNode) PartitionNumbers() []common.PartitionNumber {
	res := maps.Keys(n.partitions)
	slices.Sort(res)
	return res
}

// RevertWrites undoes the modifications of all partitions.
func (n *TrackedNode) RevertWrites() {
	for _, partition := range n.partitions {
		partition.RevertWrites()
	}
}

func (n *TrackedNode) GetMemoryFootprint() *common.MemoryFootprint {
	mf := common.NewMemoryFootprint(unsafe.Sizeof(*n))
	for _, number := range n.PartitionNumbers() {
		mf.AddChild(partitionName(number), n.partitions[number].GetMemoryFootprint())
	}
	return mf
}
