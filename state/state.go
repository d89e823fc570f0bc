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
	"sync"
	"unsafe"

	"github.com/google/uuid"
	"github.com/inconshreveable/log15"
	"github.com/radixdlt/radixdlt-scrypto-sub020/backend"
	"github.com/radixdlt/radixdlt-scrypto-sub020/backend/overlay"
	"github.com/radixdlt/radixdlt-scrypto-sub020/common"
	"github.com/radixdlt/radixdlt-scrypto-sub020/dbkey"
	"github.com/radixdlt/radixdlt-scrypto-sub020/track"
)

// Transaction is the body of a transaction. It accesses the substate store
// exclusively through the given track. Returning an error aborts the
// transaction, in which case only forced writes are committed.
type Transaction func(*track.Track) error

// Receipt summarizes the outcome of an executed transaction.
type Receipt struct {
	TxId         uuid.UUID
	Success      bool
	Err          error // the reason of a failure, nil on success
	Changes      *track.StateChanges
	Dependencies *track.StateDependencies
}

// State executes transactions on top of a substate database. Transactions
// may be executed concurrently, each one on its own track; their commits are
// serialized.
type State struct {
	db       backend.SubstateDatabase
	mapper   dbkey.DatabaseKeyMapper
	commitMu sync.Mutex
	log      log15.Logger
}

// NewState opens the database described by the given parameters and creates
// a state on top of it.
func NewState(params Parameters) (*State, error) {
	db, err := OpenDatabase(params)
	if err != nil {
		return nil, err
	}
	mapper := params.Mapper
	if mapper == nil {
		mapper = dbkey.SpreadPrefixKeyMapper{}
	}
	return &State{
		db:     db,
		mapper: mapper,
		log:    common.NewLogger("state", "variant", params.Variant),
	}, nil
}

// Database provides direct access to the underlying database, e.g. for the
// mapped accessors of the backend package.
func (s *State) Database() backend.SubstateDatabase {
	return s.db
}

func (s *State) Mapper() dbkey.DatabaseKeyMapper {
	return s.mapper
}

// Execute runs the given transaction on a fresh track and commits its
// effective changes. A failing transaction is not an error of Execute; it is
// reported through the receipt. Errors are returned if the changes could not
// be committed.
func (s *State) Execute(tx Transaction) (*Receipt, error) {
	return s.execute(s.db, tx)
}

// Preview runs the given transaction like Execute but stages its changes in
// an overlay which is dropped afterwards. The database is not modified.
func (s *State) Preview(tx Transaction) (*Receipt, error) {
	db, err := overlay.NewUnmergeable(s.db, overlay.Options{Mapper: s.mapper})
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return s.execute(db, tx)
}

func (s *State) execute(db backend.SubstateDatabase, tx Transaction) (*Receipt, error) {
	receipt := &Receipt{TxId: uuid.New()}
	log := s.log.New("tx", receipt.TxId)

	tr := track.NewTrack(db, s.mapper)
	receipt.Err = tx(tr)
	receipt.Success = receipt.Err == nil

	changes, dependencies, err := tr.Finalize(receipt.Success)
	if err != nil && receipt.Success {
		// the transaction observed corrupted state or failed store accesses
		log.Warn("Aborting transaction", "err", err)
		receipt.Success, receipt.Err = false, err
		changes, dependencies, err = tr.Finalize(false)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to finalize transaction %v: %w", receipt.TxId, err)
	}
	receipt.Changes, receipt.Dependencies = changes, dependencies

	if !changes.IsEmpty() {
		s.commitMu.Lock()
		err = db.Commit(changes.CreateDatabaseUpdates(s.mapper))
		s.commitMu.Unlock()
		if err != nil {
			return nil, fmt.Errorf("failed to commit transaction %v: %w", receipt.TxId, err)
		}
	}
	log.Debug("Executed transaction", "success", receipt.Success, "nodes", len(changes.Nodes), "reads", len(dependencies.Reads))
	return receipt, nil
}

func (s *State) GetMemoryFootprint() *common.MemoryFootprint {
	mf := common.NewMemoryFootprint(unsafe.Sizeof(*s))
	mf.AddChild("database", s.db.GetMemoryFootprint())
	return mf
}

func (s *State) Close() error {
	return s.db.Close()
}
