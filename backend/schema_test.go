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
	"errors"
	"testing"

	"github.com/radixdlt/radixdlt-scrypto-sub020/common"
	"github.com/radixdlt/radixdlt-scrypto-sub020/dbkey"
)

func testSchema() *Schema {
	return &Schema{Partitions: []PartitionSchema{
		{Number: 0, Kind: common.FieldKind, Iterable: false},
		{Number: 64, Kind: common.MapKind, Iterable: true},
	}}
}

func TestSchema_EqualIgnoresOrder(t *testing.T) {
	a := testSchema()
	b := &Schema{Partitions: []PartitionSchema{a.Partitions[1], a.Partitions[0]}}
	if !a.Equal(b) {
		t.Errorf("schemas should be equal")
	}
	b.Partitions[0].Iterable = false
	if a.Equal(b) {
		t.Errorf("schemas should differ")
	}
	if a.Equal(nil) || !(*Schema)(nil).Equal(nil) {
		t.Errorf("unexpected comparison result with nil")
	}
}

func TestSchema_CheckDetectsDuplicates(t *testing.T) {
	schema := &Schema{Partitions: []PartitionSchema{{Number: 1}, {Number: 1}}}
	if err := schema.Check(); err == nil {
		t.Errorf("duplicate partition declaration should be detected")
	}
}

func TestSchema_EncodingIsReversible(t *testing.T) {
	encoded, err := EncodeSchema(testSchema())
	if err != nil {
		t.Fatalf("failed to encode schema: %v", err)
	}
	decoded, err := DecodeSchema(encoded)
	if err != nil {
		t.Fatalf("failed to decode schema: %v", err)
	}
	if !decoded.Equal(testSchema()) {
		t.Errorf("unexpected decoded schema %v", decoded)
	}

	encoded, err = EncodeSchema(nil)
	if err != nil {
		t.Fatalf("failed to encode nil schema: %v", err)
	}
	if decoded, err := DecodeSchema(encoded); err != nil || decoded != nil {
		t.Errorf("unexpected decoded nil schema: %v, %v", decoded, err)
	}
}

func TestResolveSchema(t *testing.T) {
	encoded, err := EncodeSchema(testSchema())
	if err != nil {
		t.Fatalf("failed to encode schema: %v", err)
	}
	other := &Schema{Partitions: []PartitionSchema{{Number: 5}}}

	t.Run("uninitialized database persists requested schema", func(t *testing.T) {
		schema, toPersist, err := ResolveSchema(nil, testSchema())
		if err != nil || !schema.Equal(testSchema()) || toPersist == nil {
			t.Errorf("unexpected result: %v, %v, %v", schema, toPersist, err)
		}
	})
	t.Run("initialized database adopts stored schema", func(t *testing.T) {
		schema, toPersist, err := ResolveSchema(encoded, nil)
		if err != nil || !schema.Equal(testSchema()) || toPersist != nil {
			t.Errorf("unexpected result: %v, %v, %v", schema, toPersist, err)
		}
	})
	t.Run("matching schema is accepted", func(t *testing.T) {
		if _, _, err := ResolveSchema(encoded, testSchema()); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
	t.Run("different schema is rejected", func(t *testing.T) {
		if _, _, err := ResolveSchema(encoded, other); !errors.Is(err, ErrIncompatibleConfiguration) {
			t.Errorf("unexpected error: %v", err)
		}
	})
	t.Run("schema-less database rejects a schema", func(t *testing.T) {
		if _, _, err := ResolveSchema([]byte{}, other); !errors.Is(err, ErrIncompatibleConfiguration) {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestAccessChecker_ReportsErrorKinds(t *testing.T) {
	mapper := dbkey.SpreadPrefixKeyMapper{}
	checker := NewAccessChecker(testSchema(), mapper)
	var node common.NodeId

	fields := mapper.ToDbPartitionKey(node, 0)
	entries := mapper.ToDbPartitionKey(node, 64)
	unknown := mapper.ToDbPartitionKey(node, 1)

	if err := checker.CheckAccess(fields); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := checker.CheckIteration(entries); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := checker.CheckIteration(fields); !errors.Is(err, ErrIterationNotAllowed) {
		t.Errorf("unexpected error: %v", err)
	}
	if err := checker.CheckAccess(unknown); !errors.Is(err, ErrUnknownPartition) {
		t.Errorf("unexpected error: %v", err)
	}
	if err := checker.CheckAccess(common.DbPartitionKey{1, 2}); !errors.Is(err, ErrUnknownPartition) {
		t.Errorf("unexpected error for malformed key: %v", err)
	}

	updates := common.DatabaseUpdates{}
	updates.AppendSet(unknown, common.DbSortKey{1}, nil)
	if err := checker.CheckUpdates(&updates); !errors.Is(err, ErrUnknownPartition) {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAccessChecker_WithoutSchemaAcceptsEverything(t *testing.T) {
	checker := NewAccessChecker(nil, nil)
	if err := checker.CheckIteration(common.DbPartitionKey{1, 2, 3}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestParsePartitionSchema(t *testing.T) {
	tests := []struct {
		input string
		want  PartitionSchema
	}{
		{"0:field", PartitionSchema{Number: 0, Kind: common.FieldKind}},
		{"64:map:iterable", PartitionSchema{Number: 64, Kind: common.MapKind, Iterable: true}},
		{"255:sorted", PartitionSchema{Number: 255, Kind: common.SortedKind}},
	}
	for _, test := range tests {
		got, err := ParsePartitionSchema(test.input)
		if err != nil {
			t.Errorf("failed to parse %q: %v", test.input, err)
			continue
		}
		if got != test.want {
			t.Errorf("parsing %q gave %v, wanted %v", test.input, got, test.want)
		}
		if got.String() != test.input {
			t.Errorf("printing %v gave %q", got, got.String())
		}
	}
	for _, input := range []string{"", "0", "256:map", "1:list", "1:map:sorted", "1:map:iterable:x"} {
		if _, err := ParsePartitionSchema(input); err == nil {
			t.Errorf("parsing %q should fail", input)
		}
	}
}
