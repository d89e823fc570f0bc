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
	"encoding/binary"
	"fmt"
)

// NodeIdLength is the number of bytes of a NodeId.
const NodeIdLength = 30

// NodeId identifies a node (an entity such as a component, a package or a
// vault) in the ledger state. Node ids are allocated by the execution layer;
// this module only ever copies and compares them.
type NodeId [NodeIdLength]byte

// NodeIdFromBytes converts a slice of exactly NodeIdLength bytes into a NodeId.
func NodeIdFromBytes(data []byte) (NodeId, error) {
	var id NodeId
	if len(data) != NodeIdLength {
		return id, fmt.Errorf("invalid node id length %d, expected %d", len(data), NodeIdLength)
	}
	copy(id[:], data)
	return id, nil
}

func (n NodeId) String() string {
	return fmt.Sprintf("%x", n[:])
}

// Compare orders node ids lexicographically by their bytes.
func (n NodeId) Compare(other NodeId) int {
	return bytes.Compare(n[:], other[:])
}

// PartitionNumber selects one of the up to 256 partitions of a node.
type PartitionNumber uint8

// SubstateKeyKind names the shape of a SubstateKey.
type SubstateKeyKind uint8

const (
	FieldKind SubstateKeyKind = iota
	MapKind
	SortedKind
)

func (k SubstateKeyKind) String() string {
	switch k {
	case FieldKind:
		return "field"
	case MapKind:
		return "map"
	case SortedKind:
		return "sorted"
	}
	return fmt.Sprintf("SubstateKeyKind(%d)", uint8(k))
}

// ParseSubstateKeyKind is the inverse of SubstateKeyKind.String.
func ParseSubstateKeyKind(s string) (SubstateKeyKind, error) {
	switch s {
	case "field":
		return FieldKind, nil
	case "map":
		return MapKind, nil
	case "sorted":
		return SortedKind, nil
	}
	return 0, fmt.Errorf("unknown substate key kind %q", s)
}

// SubstateKey addresses a substate within a partition. The set of
// implementations is closed: FieldKey, MapKey, and SortedKey.
type SubstateKey interface {
	Kind() SubstateKeyKind
	String() string
	isSubstateKey()
}

// FieldKey selects a field of a partition with a fixed layout.
type FieldKey uint8

// MapKey is an arbitrary-length key of a key-value partition.
type MapKey []byte

// SortedKey is the key of an ordered collection. Entries of a sorted
// partition are iterated in the order of Prefix, interpreted as a big-endian
// unsigned 16-bit integer.
type SortedKey struct {
	Prefix [2]byte
	Key    []byte
}

// NewSortedKey creates a sorted key from a numeric sort prefix.
func NewSortedKey(prefix uint16, key []byte) SortedKey {
	res := SortedKey{Key: key}
	binary.BigEndian.PutUint16(res.Prefix[:], prefix)
	return res
}

// SortPrefix returns the numeric value of the key's sort prefix.
func (k SortedKey) SortPrefix() uint16 {
	return binary.BigEndian.Uint16(k.Prefix[:])
}

func (FieldKey) Kind() SubstateKeyKind  { return FieldKind }
func (MapKey) Kind() SubstateKeyKind    { return MapKind }
func (SortedKey) Kind() SubstateKeyKind { return SortedKind }

func (FieldKey) isSubstateKey()  {}
func (MapKey) isSubstateKey()    {}
func (SortedKey) isSubstateKey() {}

func (k FieldKey) String() string {
	return fmt.Sprintf("Field(%d)", uint8(k))
}

func (k MapKey) String() string {
	return fmt.Sprintf("Map(%x)", []byte(k))
}

func (k SortedKey) String() string {
	return fmt.Sprintf("Sorted(%d, %x)", k.SortPrefix(), k.Key)
}

// SubstateKeysEqual compares two substate keys by shape and content.
func SubstateKeysEqual(a, b SubstateKey) bool {
	switch a := a.(type) {
	case FieldKey:
		b, ok := b.(FieldKey)
		return ok && a == b
	case MapKey:
		b, ok := b.(MapKey)
		return ok && bytes.Equal(a, b)
	case SortedKey:
		b, ok := b.(SortedKey)
		return ok && a.Prefix == b.Prefix && bytes.Equal(a.Key, b.Key)
	}
	return false
}

// DbPartitionKey is the database representation of a (node, partition) pair.
type DbPartitionKey []byte

func (k DbPartitionKey) String() string {
	return fmt.Sprintf("%x", []byte(k))
}

// DbSortKey is the database representation of a SubstateKey. Entries of a
// partition are stored and iterated in the byte order of their sort keys.
type DbSortKey []byte

func (k DbSortKey) String() string {
	return fmt.Sprintf("%x", []byte(k))
}

// DbSortKeyComparator orders sort keys lexicographically.
type DbSortKeyComparator struct{}

func (DbSortKeyComparator) Compare(a, b *DbSortKey) int {
	return bytes.Compare(*a, *b)
}

// DbPartitionKeyComparator orders partition keys lexicographically.
type DbPartitionKeyComparator struct{}

func (DbPartitionKeyComparator) Compare(a, b *DbPartitionKey) int {
	return bytes.Compare(*a, *b)
}

// Hash is a 32-byte cryptographic digest.
type Hash [32]byte

func (h Hash) String() string {
	return fmt.Sprintf("%x", h[:])
}
