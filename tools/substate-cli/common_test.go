// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/radixdlt/radixdlt-scrypto-sub020/backend"
	"github.com/radixdlt/radixdlt-scrypto-sub020/backend/memory"
	"github.com/radixdlt/radixdlt-scrypto-sub020/codec"
	"github.com/radixdlt/radixdlt-scrypto-sub020/common"
	"github.com/radixdlt/radixdlt-scrypto-sub020/common/interrupt"
	"github.com/radixdlt/radixdlt-scrypto-sub020/dbkey"
	"github.com/radixdlt/radixdlt-scrypto-sub020/state"
)

func TestParseSubstateKey_ParsesAllKinds(t *testing.T) {
	tests := []struct {
		kind  common.SubstateKeyKind
		input string
		want  common.SubstateKey
	}{
		{common.FieldKind, "0", common.FieldKey(0)},
		{common.FieldKind, "255", common.FieldKey(255)},
		{common.MapKind, "0x", common.MapKey{}},
		{common.MapKind, "0x0102", common.MapKey{1, 2}},
		{common.SortedKind, "7:0xff", common.NewSortedKey(7, []byte{0xff})},
	}
	for _, test := range tests {
		got, err := parseSubstateKey(test.kind, test.input)
		if err != nil {
			t.Fatalf("failed to parse %q: %v", test.input, err)
		}
		if got.String() != test.want.String() {
			t.Errorf("parsing %q: got %v, wanted %v", test.input, got, test.want)
		}
		if formatted := formatSubstateKey(got); formatted != test.input {
			t.Errorf("formatting %v: got %q, wanted %q", got, formatted, test.input)
		}
	}
}

func TestParseSubstateKey_RejectsInvalidInput(t *testing.T) {
	tests := []struct {
		kind  common.SubstateKeyKind
		input string
	}{
		{common.FieldKind, "256"},
		{common.FieldKind, "x"},
		{common.MapKind, "0102"},
		{common.SortedKind, "0x01"},
		{common.SortedKind, "70000:0x01"},
	}
	for _, test := range tests {
		if _, err := parseSubstateKey(test.kind, test.input); err == nil {
			t.Errorf("parsing %q as %v should fail", test.input, test.kind)
		}
	}
}

func TestParseNodeId_RequiresFullLength(t *testing.T) {
	full := "0x" + strings.Repeat("ab", common.NodeIdLength)
	id, err := parseNodeId(full)
	if err != nil {
		t.Fatalf("failed to parse node id: %v", err)
	}
	if !bytes.Equal(id[:], bytes.Repeat([]byte{0xab}, common.NodeIdLength)) {
		t.Errorf("unexpected node id %v", id)
	}
	if _, err := parseNodeId("0xabab"); err == nil {
		t.Errorf("short node ids should be rejected")
	}
}

func TestParsePartition_RejectsLargeNumbers(t *testing.T) {
	if p, err := parsePartition(64); err != nil || p != 64 {
		t.Errorf("unexpected result %v, %v", p, err)
	}
	if _, err := parsePartition(256); err == nil {
		t.Errorf("partition 256 should be rejected")
	}
}

func TestSync_TargetMatchesSource(t *testing.T) {
	mapper := dbkey.SpreadPrefixKeyMapper{}
	newDb := func() backend.SubstateDatabase {
		db, err := memory.NewDatabase(nil, mapper)
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		return db
	}
	put := func(db backend.SubstateDatabase, node byte, partition common.PartitionNumber, key common.SubstateKey, value byte) {
		if err := backend.PutMapped[[]byte](db, mapper, codec.Raw{}, common.NodeId{node}, partition, key, []byte{value}); err != nil {
			t.Fatalf("failed to write: %v", err)
		}
	}

	source, target := newDb(), newDb()
	put(source, 1, 0, common.FieldKey(0), 1)
	put(source, 1, 0, common.FieldKey(1), 2)
	put(source, 2, 64, common.MapKey{7}, 3)
	// overwritten, partially stale, and completely stale target content
	put(target, 1, 0, common.FieldKey(0), 9)
	put(target, 1, 0, common.FieldKey(2), 9)
	put(target, 3, 1, common.FieldKey(0), 9)

	if err := syncDatabases(context.Background(), source, target); err != nil {
		t.Fatalf("failed to sync: %v", err)
	}

	want, count, err := computeContentHash(source)
	if err != nil {
		t.Fatal(err)
	}
	got, _, err := computeContentHash(target)
	if err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Errorf("unexpected number of source entries %d", count)
	}
	if want != got {
		t.Errorf("content hashes differ after sync")
	}
	partitions, err := backend.ListPartitions(target, mapper)
	if err != nil {
		t.Fatal(err)
	}
	if len(partitions) != 2 {
		t.Errorf("stale partitions should be removed, got %v", partitions)
	}
}

func TestSync_StopsWhenCanceled(t *testing.T) {
	mapper := dbkey.SpreadPrefixKeyMapper{}
	source, _ := memory.NewDatabase(nil, mapper)
	target, _ := memory.NewDatabase(nil, mapper)
	if err := backend.PutMapped[[]byte](source, mapper, codec.Raw{}, common.NodeId{1}, 0, common.FieldKey(0), []byte{1}); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := syncDatabases(ctx, source, target); !errors.Is(err, interrupt.ErrCanceled) {
		t.Errorf("unexpected error %v", err)
	}
	if keys, _ := target.ListPartitionKeys(); len(keys) != 0 {
		t.Errorf("canceled sync should not write, got %v", keys)
	}
}

func TestComputeContentHash_DependsOnContent(t *testing.T) {
	mapper := dbkey.SpreadPrefixKeyMapper{}
	a, _ := memory.NewDatabase(nil, mapper)
	b, _ := memory.NewDatabase(nil, mapper)
	empty, _, _ := computeContentHash(a)
	if err := backend.PutMapped[[]byte](b, mapper, codec.Raw{}, common.NodeId{1}, 0, common.FieldKey(0), []byte{1}); err != nil {
		t.Fatal(err)
	}
	other, _, _ := computeContentHash(b)
	if empty == other {
		t.Errorf("different content should have different hashes")
	}
}

func TestLoadParameters_DefaultsToSyncedLevelDb(t *testing.T) {
	params, err := loadParameters("", "", "/data")
	if err != nil {
		t.Fatalf("failed to load parameters: %v", err)
	}
	if params.Variant != state.LevelDbVariant || params.Directory != "/data" || !params.Sync || params.Schema != nil {
		t.Errorf("unexpected parameters %+v", params)
	}
}

func TestLoadParameters_ConfigFileAndEnvironmentAreLayered(t *testing.T) {
	file := filepath.Join(t.TempDir(), "substate.yaml")
	content := "variant: go-bolt\nsync: false\nlog-level: warn\npartitions:\n  - 0:field\n  - 64:map:iterable\n"
	if err := os.WriteFile(file, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SUBSTATE_LOG_LEVEL", "debug")

	params, err := loadParameters(file, "", "/data")
	if err != nil {
		t.Fatalf("failed to load parameters: %v", err)
	}
	if params.Variant != state.BoltVariant {
		t.Errorf("unexpected variant %v", params.Variant)
	}
	if params.Sync {
		t.Errorf("sync should be disabled by the config file")
	}
	if params.LogLevel != "debug" {
		t.Errorf("environment should override the config file, got %q", params.LogLevel)
	}
	if params.Schema == nil || len(params.Schema.Partitions) != 2 {
		t.Errorf("unexpected schema %v", params.Schema)
	}

	params, err = loadParameters(file, string(state.MemoryVariant), "/other")
	if err != nil {
		t.Fatalf("failed to load parameters: %v", err)
	}
	if params.Variant != state.MemoryVariant || params.Directory != "/other" {
		t.Errorf("command line arguments should take precedence, got %+v", params)
	}
}

func TestLoadParameters_MissingConfigFileIsReported(t *testing.T) {
	if _, err := loadParameters(filepath.Join(t.TempDir(), "missing.yaml"), "", "/data"); err == nil {
		t.Errorf("missing config file should be reported")
	}
}

func TestParseValueFormat_ValuesRoundTrip(t *testing.T) {
	tests := []struct {
		codec string
		input string
		want  string
	}{
		{"raw", "0x0102", "0x0102"},
		{"msgpack", "42", "42"},
		{"msgpack", "hello", "hello"},
		{"cbor", "42", "42"},
		{"cbor", "hello", "hello"},
		{"rlp", "hello", "0x68656c6c6f"},
	}
	for _, test := range tests {
		format, err := parseValueFormat(test.codec)
		if err != nil {
			t.Fatalf("failed to parse codec %q: %v", test.codec, err)
		}
		encoded, err := format.Parse(test.input)
		if err != nil {
			t.Fatalf("failed to parse %q with %s: %v", test.input, test.codec, err)
		}
		got, err := format.Format(encoded)
		if err != nil {
			t.Fatalf("failed to format %x with %s: %v", encoded, test.codec, err)
		}
		if got != test.want {
			t.Errorf("%s: got %q, wanted %q", test.codec, got, test.want)
		}
	}
}

func TestParseValueFormat_RejectsUnknownCodecsAndCorruptValues(t *testing.T) {
	if _, err := parseValueFormat("json"); err == nil {
		t.Errorf("unknown codec should be rejected")
	}
	format, err := parseValueFormat("cbor")
	if err != nil {
		t.Fatal(err)
	}
	var decodeErr *codec.DecodeError
	if _, err := format.Format([]byte{0xff, 0xff}); !errors.As(err, &decodeErr) {
		t.Errorf("corrupt values should produce decode errors, got %v", err)
	}
}
