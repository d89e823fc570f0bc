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
	"github.com/radixdlt/radixdlt-scrypto-sub020/backend/avax"
	"github.com/radixdlt/radixdlt-scrypto-sub020/backend/bolt"
	"github.com/radixdlt/radixdlt-scrypto-sub020/backend/ldb"
	"github.com/radixdlt/radixdlt-scrypto-sub020/backend/memory"
)

func init() {
	RegisterDatabaseFactory(MemoryVariant, newMemoryDatabase)
	RegisterDatabaseFactory(LevelDbVariant, newLevelDbDatabase)
	RegisterDatabaseFactory(BoltVariant, newBoltDatabase)
	RegisterDatabaseFactory(AvaxMemDbVariant, newAvaxMemDbDatabase)
}

func newMemoryDatabase(params Parameters) (backend.SubstateDatabase, error) {
	return memory.NewDatabase(params.Schema, params.Mapper)
}

func newLevelDbDatabase(params Parameters) (backend.SubstateDatabase, error) {
	if params.Directory == "" {
		return nil, fmt.Errorf("%w: variant %v requires a directory", UnsupportedConfiguration, params.Variant)
	}
	return ldb.Open(params.Directory, ldb.Options{
		Schema: params.Schema,
		Mapper: params.Mapper,
		Sync:   params.Sync,
	})
}

func newBoltDatabase(params Parameters) (backend.SubstateDatabase, error) {
	if params.Directory == "" {
		return nil, fmt.Errorf("%w: variant %v requires a directory", UnsupportedConfiguration, params.Variant)
	}
	return bolt.Open(params.Directory, bolt.Options{
		Schema: params.Schema,
		Mapper: params.Mapper,
		NoSync: !params.Sync,
	})
}

func newAvaxMemDbDatabase(params Parameters) (backend.SubstateDatabase, error) {
	return avax.NewMemory(avax.Options{
		Schema: params.Schema,
		Mapper: params.Mapper,
	})
}
