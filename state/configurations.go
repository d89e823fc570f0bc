// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package state

import (
	"fmt"

	"github.com/radixdlt/radixdlt-scrypto-sub020/backend"
	"github.com/radixdlt/radixdlt-scrypto-sub020/common"
	"github.com/radixdlt/radixdlt-scrypto-sub020/dbkey"
	"golang.org/x/exp/maps"
)

// ----------------------------------------------------------------------------
//                        for state users
// ----------------------------------------------------------------------------

// Parameters struct defining configuration parameters for state instances.
type Parameters struct {
	Variant   Variant
	Directory string // required by persistent variants
	// Schema restricts the partitions accepted by the database. If nil, the
	// schema of an existing database is adopted, and new databases accept
	// all partitions.
	Schema   *backend.Schema
	LogLevel string // one of crit, error, warn, info, debug; empty keeps the current level
	Sync     bool   // sync every commit to disk, supported by persistent variants
	Mapper   dbkey.DatabaseKeyMapper
}

// UnsupportedConfiguration is the error returned if unsupported configuration
// parameters have been specified. The text may contain further details regarding the
// unsupported feature.
const UnsupportedConfiguration = common.ConstError("unsupported configuration")

// OpenDatabase opens the substate database described by the given parameters.
// If the requested configuration is not supported, the error is an
// UnsupportedConfiguration error.
func OpenDatabase(params Parameters) (backend.SubstateDatabase, error) {
	// Enforce default values.
	if params.Variant == "" {
		params.Variant = MemoryVariant
	}
	if params.Mapper == nil {
		params.Mapper = dbkey.SpreadPrefixKeyMapper{}
	}
	if params.LogLevel != "" {
		if err := common.SetLogLevel(params.LogLevel); err != nil {
			return nil, fmt.Errorf("%w: %v", UnsupportedConfiguration, err)
		}
	}
	factory, found := databaseFactoryRegistry[params.Variant]
	if !found {
		return nil, fmt.Errorf("%w: no registered implementation for variant %q", UnsupportedConfiguration, params.Variant)
	}
	return factory(params)
}

// ----------------------------------------------------------------------------
//                      for state implementations
// ----------------------------------------------------------------------------

type Variant string

const (
	MemoryVariant    Variant = "memory"
	LevelDbVariant   Variant = "go-ldb"
	BoltVariant      Variant = "go-bolt"
	AvaxMemDbVariant Variant = "avax-memdb"
)

type DatabaseFactory func(params Parameters) (backend.SubstateDatabase, error)

var databaseFactoryRegistry = map[Variant]DatabaseFactory{}

func RegisterDatabaseFactory(variant Variant, factory DatabaseFactory) {
	if _, found := databaseFactoryRegistry[variant]; found {
		panic(fmt.Sprintf("attempted to register multiple factories for %v", variant))
	}
	databaseFactoryRegistry[variant] = factory
}

func GetAllRegisteredDatabaseFactories() map[Variant]DatabaseFactory {
	return maps.Clone(databaseFactoryRegistry)
}
