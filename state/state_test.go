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
	"github.com/radixdlt/radixdlt-scrypto-sub020/codec"
	"github.com/radixdlt/radixdlt-scrypto-sub020/common"
	"github.com/radixdlt/radixdlt-scrypto-sub020/common/immutable"
	"github.com/radixdlt/radixdlt-scrypto-sub020/state"
	"github.com/radixdlt/radixdlt-scrypto-sub020/track"
)

var (
	account  = common.NodeId{0xA1}
	feeVault = common.NodeId{0xF0}
)

const balanceField = common.FieldKey(0)

func newState(t *testing.T, variant state.Variant) *state.State {
	t.Helper()
	s, err := state.NewState(state.Parameters{Variant: variant, Directory: t.TempDir()})
	if err != nil {
		t.Fatalf("failed to create state: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("failed to close state: %v", err)
		}
	})
	return s
}

func readBalance(t *testing.T, s *state.State, node common.NodeId) (uint64, bool) {
	t.Helper()
	balance, found, err := backend.GetMapped[uint64](s.Database(), s.Mapper(), codec.Msgpack[uint64]{}, node, 0, balanceField)
	if err != nil {
		t.Fatalf("failed to read balance: %v", err)
	}
	return balance, found
}

func transfer(amount, fee uint64) state.Transaction {
	return func(tr *track.Track) error {
		c := codec.Msgpack[uint64]{}
		paid, _, err := track.GetTyped[uint64](tr, c, feeVault, 0, balanceField)
		if err != nil {
			return err
		}
		if err := track.SetTyped[uint64](tr, c, feeVault, 0, balanceField, paid+fee); err != nil {
			return err
		}
		if err := tr.ForceWrite(feeVault, 0, balanceField); err != nil {
			return err
		}
		balance, found, err := track.GetTyped[uint64](tr, c, account, 0, balanceField)
		if err != nil {
			return err
		}
		if !found || balance < amount {
			return errors.New("insufficient balance")
		}
		return track.SetTyped[uint64](tr, c, account, 0, balanceField, balance-amount)
	}
}

func TestState_SuccessfulTransactionsAreCommitted(t *testing.T) {
	for variant := range state.GetAllRegisteredDatabaseFactories() {
		t.Run(string(variant), func(t *testing.T) {
			s := newState(t, variant)
			if err := backend.PutMapped[uint64](s.Database(), s.Mapper(), codec.Msgpack[uint64]{}, account, 0, balanceField, 100); err != nil {
				t.Fatal(err)
			}
			receipt, err := s.Execute(transfer(30, 1))
			if err != nil {
				t.Fatalf("failed to execute: %v", err)
			}
			if !receipt.Success || receipt.Err != nil {
				t.Errorf("transaction should succeed, got %v", receipt.Err)
			}
			if balance, _ := readBalance(t, s, account); balance != 70 {
				t.Errorf("unexpected balance %d", balance)
			}
			if fee, _ := readBalance(t, s, feeVault); fee != 1 {
				t.Errorf("unexpected fee %d", fee)
			}
			if len(receipt.Dependencies.Reads) != 2 {
				t.Errorf("unexpected dependencies %+v", receipt.Dependencies)
			}
		})
	}
}

func TestState_PreviewDoesNotModifyDatabase(t *testing.T) {
	for variant := range state.GetAllRegisteredDatabaseFactories() {
		t.Run(string(variant), func(t *testing.T) {
			s := newState(t, variant)
			if err := backend.PutMapped[uint64](s.Database(), s.Mapper(), codec.Msgpack[uint64]{}, account, 0, balanceField, 100); err != nil {
				t.Fatal(err)
			}
			receipt, err := s.Preview(transfer(30, 1))
			if err != nil {
				t.Fatalf("failed to preview: %v", err)
			}
			if !receipt.Success || receipt.Changes.IsEmpty() {
				t.Errorf("preview should succeed with changes, got %v", receipt.Err)
			}
			if balance, _ := readBalance(t, s, account); balance != 100 {
				t.Errorf("unexpected balance %d", balance)
			}
			if _, found := readBalance(t, s, feeVault); found {
				t.Errorf("fee should not be charged by a preview")
			}
		})
	}
}

func TestState_FailedTransactionsOnlyCommitForcedWrites(t *testing.T) {
	s := newState(t, state.MemoryVariant)
	if err := backend.PutMapped[uint64](s.Database(), s.Mapper(), codec.Msgpack[uint64]{}, account, 0, balanceField, 10); err != nil {
		t.Fatal(err)
	}
	receipt, err := s.Execute(transfer(30, 1))
	if err != nil {
		t.Fatalf("failed to execute: %v", err)
	}
	if receipt.Success || receipt.Err == nil {
		t.Errorf("transaction should fail")
	}
	if balance, _ := readBalance(t, s, account); balance != 10 {
		t.Errorf("unexpected balance %d", balance)
	}
	if fee, _ := readBalance(t, s, feeVault); fee != 1 {
		t.Errorf("fee should be charged, got %d", fee)
	}
}

func TestState_TransactionsWithCorruptedReadsAreAborted(t *testing.T) {
	s := newState(t, state.MemoryVariant)
	if err := backend.PutMapped[[]byte](s.Database(), s.Mapper(), codec.Raw{}, account, 0, balanceField, []byte{0xc1}); err != nil {
		t.Fatal(err)
	}
	receipt, err := s.Execute(func(tr *track.Track) error {
		// decoding errors are recorded by the track
		track.GetTyped[uint64](tr, codec.Msgpack[uint64]{}, account, 0, balanceField)
		return tr.SetSubstate(account, 1, balanceField, immutable.NewBytes([]byte{1}))
	})
	if err != nil {
		t.Fatalf("failed to execute: %v", err)
	}
	var decodeErr *codec.DecodeError
	if receipt.Success || !errors.As(receipt.Err, &decodeErr) {
		t.Errorf("transaction should be aborted, got %t, %v", receipt.Success, receipt.Err)
	}
	if !receipt.Changes.IsEmpty() {
		t.Errorf("aborted transaction should have no changes, got %+v", receipt.Changes)
	}
}

func TestState_ReceiptsHaveUniqueIds(t *testing.T) {
	s := newState(t, state.MemoryVariant)
	noop := func(*track.Track) error { return nil }
	a, err := s.Execute(noop)
	if err != nil {
		t.Fatal(err)
	}
	b, err := s.Execute(noop)
	if err != nil {
		t.Fatal(err)
	}
	if a.TxId == b.TxId {
		t.Errorf("transaction ids should differ")
	}
}

func TestState_ProvidesMemoryFootprint(t *testing.T) {
	s := newState(t, state.MemoryVariant)
	if mf := s.GetMemoryFootprint(); mf.Total() == 0 {
		t.Errorf("empty memory footprint")
	}
}
