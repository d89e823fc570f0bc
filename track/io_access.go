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

	"github.com/radixdlt/radixdlt-scrypto-sub020/common"
)

// CanonicalSubstateKey is the full business address of a substate.
type CanonicalSubstateKey struct {
	Node      common.NodeId
	Partition common.PartitionNumber
	Key       common.SubstateKey
}

func (k CanonicalSubstateKey) String() string {
	return fmt.Sprintf("%v/%d/%v", k.Node, k.Partition, k.Key)
}

// IOAccess describes an access of the track to the store or a change of the
// amount of data held by the track. It is one of ReadFromDb,
// ReadFromDbNotFound, or TrackSubstateUpdated.
type IOAccess interface {
	isIOAccess()
}

// IOAccessHandler is notified about IOAccess events. A non-nil error aborts
// the operation causing the event.
type IOAccessHandler func(IOAccess) error

// ReadFromDb reports a value of Size bytes read from the store.
type ReadFromDb struct {
	Substate CanonicalSubstateKey
	Size     int
}

// ReadFromDbNotFound reports a lookup of a substate missing in the store.
type ReadFromDbNotFound struct {
	Substate CanonicalSubstateKey
}

// Untracked is the OldSize of a TrackSubstateUpdated event for a slot
// tracked for the first time.
const Untracked = -1

// TrackSubstateUpdated reports a change of the number of bytes held by a
// slot.
type TrackSubstateUpdated struct {
	Substate CanonicalSubstateKey
	OldSize  int
	NewSize  int
}

func (ReadFromDb) isIOAccess()           {}
func (ReadFromDbNotFound) isIOAccess()   {}
func (TrackSubstateUpdated) isIOAccess() {}

// TrackedSubstateInfo classifies the state of a substate in a transaction.
type TrackedSubstateInfo int

const (
	// Unmodified substates have not been touched or only been read.
	Unmodified TrackedSubstateInfo = iota
	// Created substates belong to a node created in this transaction.
	Created
	// Updated substates existed before and have been written.
	Updated
)

func (i TrackedSubstateInfo) String() string {
	switch i {
	case Unmodified:
		return "unmodified"
	case Created:
		return "created"
	case Updated:
		return "updated"
	}
	return fmt.Sprintf("TrackedSubstateInfo(%d)", int(i))
}

type StoreCommitKind int

const (
	CommitInsert StoreCommitKind = iota
	CommitUpdate
	CommitDelete
)

func (k StoreCommitKind) String() string {
	switch k {
	case CommitInsert:
		return "insert"
	case CommitUpdate:
		return "update"
	case CommitDelete:
		return "delete"
	}
	return fmt.Sprintf("StoreCommitKind(%d)", int(k))
}

// StoreCommit describes a single store write a transaction would perform.
// Size is the size of the written value, OldSize the size of the replaced
// one; each is zero if not applicable.
type StoreCommit struct {
	Kind     StoreCommitKind
	Substate CanonicalSubstateKey
	Size     int
	OldSize  int
}

func (c StoreCommit) String() string {
	return fmt.Sprintf("%v %v (size %d, old size %d)", c.Kind, c.Substate, c.Size, c.OldSize)
}
