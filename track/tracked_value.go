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
)

// TrackedSubstateValue is the state of a single substate slot within a
// transaction. It is one of
//
//	New                   created in this transaction, nothing stored below
//	ReadOnly              loaded from the store, not modified
//	ReadExistAndWrite     loaded as existing, then updated or deleted
//	ReadNonExistAndWrite  loaded as missing, then created
//	WriteOnly             modified without having been loaded
//	Garbage               created and removed again in this transaction
//
// The variants are plain values; all transitions are implemented by the
// functions Get, Set, Take, and RevertWrites below.
type TrackedSubstateValue interface {
	fmt.Stringer
	isTrackedSubstateValue()
}

// Write is the effect of a write on a slot: either an update to Value or,
// if Delete is set, the removal of the substate.
type Write struct {
	Value  immutable.Bytes
	Delete bool
}

// Update creates a write setting the given value.
func Update(value immutable.Bytes) Write {
	return Write{Value: value}
}

// Delete is the write removing a substate.
var Delete = Write{Delete: true}

func (w Write) String() string {
	if w.Delete {
		return "Delete"
	}
	return fmt.Sprintf("Update(%v)", w.Value)
}

type New struct {
	Value immutable.Bytes
}

// ReadOnly is the state of a slot loaded from the store. If Existent is
// false, the store had no value for the slot.
type ReadOnly struct {
	Value    immutable.Bytes
	Existent bool
}

// ReadExistent creates the read-only state of a slot found in the store.
func ReadExistent(value immutable.Bytes) ReadOnly {
	return ReadOnly{Value: value, Existent: true}
}

// ReadNonExistent is the read-only state of a slot missing in the store.
var ReadNonExistent = ReadOnly{}

type ReadExistAndWrite struct {
	Original immutable.Bytes
	Write    Write
}

type ReadNonExistAndWrite struct {
	Value immutable.Bytes
}

type WriteOnly struct {
	Write Write
}

type Garbage struct{}

func (New) isTrackedSubstateValue()                  {}
func (ReadOnly) isTrackedSubstateValue()             {}
func (ReadExistAndWrite) isTrackedSubstateValue()    {}
func (ReadNonExistAndWrite) isTrackedSubstateValue() {}
func (WriteOnly) isTrackedSubstateValue()            {}
func (Garbage) isTrackedSubstateValue()              {}

func (v New) String() string {
	return fmt.Sprintf("New(%v)", v.Value)
}

func (v ReadOnly) String() string {
	if !v.Existent {
		return "ReadOnly(NonExistent)"
	}
	return fmt.Sprintf("ReadOnly(Existent(%v))", v.Value)
}

func (v ReadExistAndWrite) String() string {
	return fmt.Sprintf("ReadExistAndWrite(%v, %v)", v.Original, v.Write)
}

func (v ReadNonExistAndWrite) String() string {
	return fmt.Sprintf("ReadNonExistAndWrite(%v)", v.Value)
}

func (v WriteOnly) String() string {
	return fmt.Sprintf("WriteOnly(%v)", v.Write)
}

func (Garbage) String() string {
	return "Garbage"
}

// Get returns the current value of a slot, if there is any.
func Get(v TrackedSubstateValue) (immutable.Bytes, bool) {
	switch v := v.(type) {
	case New:
		return v.Value, true
	case ReadOnly:
		return v.Value, v.Existent
	case ReadExistAndWrite:
		return v.Write.Value, !v.Write.Delete
	case ReadNonExistAndWrite:
		return v.Value, true
	case WriteOnly:
		return v.Write.Value, !v.Write.Delete
	case Garbage:
		return immutable.Bytes{}, false
	}
	panic(fmt.Sprintf("unknown tracked substate value %T", v))
}

// Set returns the state of a slot after assigning the given value.
func Set(v TrackedSubstateValue, value immutable.Bytes) TrackedSubstateValue {
	switch v := v.(type) {
	case New:
		return New{Value: value}
	case ReadOnly:
		if v.Existent {
			return ReadExistAndWrite{Original: v.Value, Write: Update(value)}
		}
		return ReadNonExistAndWrite{Value: value}
	case ReadExistAndWrite:
		return ReadExistAndWrite{Original: v.Original, Write: Update(value)}
	case ReadNonExistAndWrite:
		return ReadNonExistAndWrite{Value: value}
	case WriteOnly:
		return WriteOnly{Write: Update(value)}
	case Garbage:
		return WriteOnly{Write: Update(value)}
	}
	panic(fmt.Sprintf("unknown tracked substate value %T", v))
}

// Take returns the state of a slot after removing its value, together with
// the value present before the removal.
func Take(v TrackedSubstateValue) (TrackedSubstateValue, immutable.Bytes, bool) {
	switch v := v.(type) {
	case New:
		return Garbage{}, v.Value, true
	case ReadOnly:
		if v.Existent {
			return ReadExistAndWrite{Original: v.Value, Write: Delete}, v.Value, true
		}
		return v, immutable.Bytes{}, false
	case ReadExistAndWrite:
		return ReadExistAndWrite{Original: v.Original, Write: Delete}, v.Write.Value, !v.Write.Delete
	case ReadNonExistAndWrite:
		return ReadNonExistent, v.Value, true
	case WriteOnly:
		return Garbage{}, v.Write.Value, !v.Write.Delete
	case Garbage:
		return v, immutable.Bytes{}, false
	}
	panic(fmt.Sprintf("unknown tracked substate value %T", v))
}

// RevertWrites returns the state of a slot after undoing all modifications
// of the current transaction. Reads are retained.
func RevertWrites(v TrackedSubstateValue) TrackedSubstateValue {
	switch v := v.(type) {
	case New, WriteOnly:
		return Garbage{}
	case ReadOnly, Garbage:
		return v
	case ReadExistAndWrite:
		return ReadExistent(v.Original)
	case ReadNonExistAndWrite:
		return ReadNonExistent
	}
	panic(fmt.Sprintf("unknown tracked substate value %T", v))
}

// Size is the number of payload bytes held by a slot. For slots holding an
// original and a written value, both are counted.
func Size(v TrackedSubstateValue) int {
	switch v := v.(type) {
	case New:
		return v.Value.Len()
	case ReadOnly:
		return v.Value.Len()
	case ReadExistAndWrite:
		return v.Original.Len() + v.Write.size()
	case ReadNonExistAndWrite:
		return v.Value.Len()
	case WriteOnly:
		return v.Write.size()
	case Garbage:
		return 0
	}
	panic(fmt.Sprintf("unknown tracked substate value %T", v))
}

func (w Write) size() int {
	if w.Delete {
		return 0
	}
	return w.Value.Len()
}

// TrackedSubstate is a slot of a tracked partition.
type TrackedSubstate struct {
	Key   common.SubstateKey
	Value TrackedSubstateValue
	// Version is the store version of the value loaded into this slot.
	Version backend.Version
	// readFromStore is set if the store was consulted for this slot, which
	// makes the transaction depend on what was found.
	readFromStore bool
}

func (s *TrackedSubstate) String() string {
	return fmt.Sprintf("%v: %v", s.Key, s.Value)
}

func (s *TrackedSubstate) clone() *TrackedSubstate {
	res := *s
	return &res
}
