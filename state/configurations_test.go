// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package state_test

import (
	"errors"
	"testing"

	"github.com/radixdlt/radixdlt-scrypto-sub020/backend"
	"github.com/radixdlt/radixdlt-scrypto-sub020/common"
	"github.com/radixdlt/radixdlt-scrypto-sub020/dbkey"
	"github.com/radixdlt/radixdlt-scrypto-sub020/state"
)

func TestStateConfigs_ContainsConfigurations(t *testing.T) {
	factories := state.GetAllRegisteredDatabaseFactories()
	for _, variant := range []state.Variant{state.MemoryVariant, state.LevelDbVariant, state.BoltVariant, state.AvaxMemDbVariant} {
		if _, found := factories[variant]; !found {
			t.Errorf("no factory registered for %v", variant)
		}
	}
}

func TestStateConfigs_AllVariantsCanBeOpenedAndClosed(t *testing.T) {
	for variant := range state.GetAllRegisteredDatabaseFactories() {
		variant := variant
		t.Run(string(variant), func(t *testing.T) {
			t.Parallel()
			db, err := state.OpenDatabase(state.Parameters{
				Variant:   variant,
				Directory: t.TempDir(),
			})
			if err != nil {
				t.Fatalf("failed to open database: %v", err)
			}
			if err := db.Close(); err != nil {
				t.Errorf("failed to close database: %v", err)
			}
		})
	}
}

func TestStateConfigs_SchemaIsForwardedToTheDatabase(t *testing.T) {
	for variant := range state.GetAllRegisteredDatabaseFactories() {
		variant := variant
		t.Run(string(variant), func(t *testing.T) {
			db, err := state.OpenDatabase(state.Parameters{
				Variant:   variant,
				Directory: t.TempDir(),
				Schema: &backend.Schema{Partitions: []backend.PartitionSchema{
					{Number: 0, Kind: common.FieldKind},
				}},
			})
			if err != nil {
				t.Fatalf("failed to open database: %v", err)
			}
			defer db.Close()
			err = backend.DeleteMapped(db, dbkey.SpreadPrefixKeyMapper{}, common.NodeId{1}, 1, common.FieldKey(0))
			if !errors.Is(err, backend.ErrUnknownPartition) {
				t.Errorf("undeclared partition should be rejected, got %v", err)
			}
		})
	}
}

func TestStateConfigs_UnknownVariantIsUnsupported(t *testing.T) {
	_, err := state.OpenDatabase(state.Parameters{Variant: "go-file"})
	if !errors.Is(err, state.UnsupportedConfiguration) {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestStateConfigs_PersistentVariantsRequireDirectory(t *testing.T) {
	for _, variant := range []state.Variant{state.LevelDbVariant, state.BoltVariant} {
		if _, err := state.OpenDatabase(state.Parameters{Variant: variant}); !errors.Is(err, state.UnsupportedConfiguration) {
			t.Errorf("opening %v without directory should fail, got %v", variant, err)
		}
	}
}

func TestStateConfigs_InvalidLogLevelIsUnsupported(t *testing.T) {
	_, err := state.OpenDatabase(state.Parameters{LogLevel: "loud"})
	if !errors.Is(err, state.UnsupportedConfiguration) {
		t.Errorf("unexpected error: %v", err)
	}
}
