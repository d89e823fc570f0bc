// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package backend

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/radixdlt/radixdlt-scrypto-sub020/common"
	"github.com/radixdlt/radixdlt-scrypto-sub020/dbkey"
	"github.com/vmihailenco/msgpack/v5"
)

// Schema declares the partitions a database accepts. A database without a
// schema accepts every partition and allows iterating all of them.
type Schema struct {
	Partitions []PartitionSchema `msgpack:"partitions"`
}

// PartitionSchema describes the partitions with a given number, across all
// nodes.
type PartitionSchema struct {
	Number   common.PartitionNumber `msgpack:"number"`
	Kind     common.SubstateKeyKind `msgpack:"kind"`
	Iterable bool                   `msgpack:"iterable"`
}

// Lookup finds the declaration of the given partition number.
func (s *Schema) Lookup(partition common.PartitionNumber) (PartitionSchema, bool) {
	for _, cur := range s.Partitions {
		if cur.Number == partition {
			return cur, true
		}
	}
	return PartitionSchema{}, false
}

// Check verifies that partition numbers are declared at most once.
func (s *Schema) Check() error {
	seen := map[common.PartitionNumber]bool{}
	for _, cur := range s.Partitions {
		if seen[cur.Number] {
			return fmt.Errorf("partition %d declared multiple times", cur.Number)
		}
		seen[cur.Number] = true
	}
	return nil
}

func (s *Schema) normalized() Schema {
	res := Schema{Partitions: append([]PartitionSchema{}, s.Partitions...)}
	sort.Slice(res.Partitions, func(i, j int) bool {
		return res.Partitions[i].Number < res.Partitions[j].Number
	})
	return res
}

// Equal compares schemas ignoring the order of declarations.
func (s *Schema) Equal(other *Schema) bool {
	if s == nil || other == nil {
		return s == other
	}
	a, b := s.normalized(), other.normalized()
	if len(a.Partitions) != len(b.Partitions) {
		return false
	}
	for i := range a.Partitions {
		if a.Partitions[i] != b.Partitions[i] {
			return false
		}
	}
	return true
}

// EncodeSchema produces the persisted form of a schema. A nil schema is
// encoded as an empty payload.
func EncodeSchema(schema *Schema) ([]byte, error) {
	if schema == nil {
		return []byte{}, nil
	}
	normalized := schema.normalized()
	return msgpack.Marshal(&normalized)
}

// DecodeSchema is the inverse of EncodeSchema.
func DecodeSchema(data []byte) (*Schema, error) {
	if len(data) == 0 {
		return nil, nil
	}
	res := &Schema{}
	if err := msgpack.Unmarshal(data, res); err != nil {
		return nil, fmt.Errorf("failed to decode persisted schema: %w", err)
	}
	return res, nil
}

// ResolveSchema reconciles the schema requested when opening a database
// with the one persisted by a previous run. A nil stored payload denotes an
// uninitialized database, in which case the requested schema is returned
// with its encoding for persisting. If the database has been initialized, a
// nil requested schema adopts the stored one; any other mismatch is an
// ErrIncompatibleConfiguration.
func ResolveSchema(stored []byte, requested *Schema) (schema *Schema, toPersist []byte, err error) {
	if requested != nil {
		if err := requested.Check(); err != nil {
			return nil, nil, err
		}
	}
	if stored == nil {
		encoded, err := EncodeSchema(requested)
		if err != nil {
			return nil, nil, err
		}
		return requested, encoded, nil
	}
	existing, err := DecodeSchema(stored)
	if err != nil {
		return nil, nil, err
	}
	if requested == nil {
		return existing, nil, nil
	}
	if !existing.Equal(requested) {
		return nil, nil, fmt.Errorf("%w: stored schema %v, requested %v", ErrIncompatibleConfiguration, existing, requested)
	}
	return existing, nil, nil
}

// AccessChecker validates partition accesses against a schema. A checker
// without a schema accepts everything.
type AccessChecker struct {
	schema *Schema
	mapper dbkey.DatabaseKeyMapper
}

func NewAccessChecker(schema *Schema, mapper dbkey.DatabaseKeyMapper) AccessChecker {
	if mapper == nil {
		mapper = dbkey.SpreadPrefixKeyMapper{}
	}
	return AccessChecker{schema: schema, mapper: mapper}
}

// Schema returns the schema enforced by this checker, nil if there is none.
func (c AccessChecker) Schema() *Schema {
	return c.schema
}

// CheckAccess reports an ErrUnknownPartition if the partition is not declared.
func (c AccessChecker) CheckAccess(partition common.DbPartitionKey) error {
	_, err := c.lookup(partition)
	return err
}

// CheckIteration additionally reports ErrIterationNotAllowed for
// partitions not declared as iterable.
func (c AccessChecker) CheckIteration(partition common.DbPartitionKey) error {
	decl, err := c.lookup(partition)
	if err != nil {
		return err
	}
	if decl != nil && !decl.Iterable {
		return fmt.Errorf("%w: partition %d", ErrIterationNotAllowed, decl.Number)
	}
	return nil
}

// CheckUpdates verifies that the updates are normalized and that all
// partitions touched by them are declared.
func (c AccessChecker) CheckUpdates(updates *common.DatabaseUpdates) error {
	if err := updates.Check(); err != nil {
		return err
	}
	for _, partition := range updates.Partitions {
		if err := c.CheckAccess(partition.PartitionKey); err != nil {
			return err
		}
	}
	return nil
}

func (c AccessChecker) lookup(partition common.DbPartitionKey) (*PartitionSchema, error) {
	if c.schema == nil {
		return nil, nil
	}
	_, number, err := dbkey.TryFromDbPartitionKey(c.mapper, partition)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknownPartition, err)
	}
	decl, found := c.schema.Lookup(number)
	if !found {
		return nil, fmt.Errorf("%w: partition %d", ErrUnknownPartition, number)
	}
	return &decl, nil
}

// ParsePartitionSchema parses a partition declaration of the form
// "<number>:<kind>" or "<number>:<kind>:iterable", e.g. "64:map:iterable".
func ParsePartitionSchema(s string) (PartitionSchema, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return PartitionSchema{}, fmt.Errorf("invalid partition declaration %q", s)
	}
	number, err := strconv.ParseUint(parts[0], 10, 8)
	if err != nil {
		return PartitionSchema{}, fmt.Errorf("invalid partition number in %q: %w", s, err)
	}
	kind, err := common.ParseSubstateKeyKind(parts[1])
	if err != nil {
		return PartitionSchema{}, err
	}
	res := PartitionSchema{Number: common.PartitionNumber(number), Kind: kind}
	if len(parts) == 3 {
		if parts[2] != "iterable" {
			return PartitionSchema{}, fmt.Errorf("invalid partition option %q in %q", parts[2], s)
		}
		res.Iterable = true
	}
	return res, nil
}

func (p PartitionSchema) String() string {
	if p.Iterable {
		return fmt.Sprintf("%d:%v:iterable", p.Number, p.Kind)
	}
	return fmt.Sprintf("%d:%v", p.Number, p.Kind)
}
