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
	reflect "reflect"

	common "github.com/radixdlt/radixdlt-scrypto-sub020/common"
	gomock "go.uber.org/mock/gomock"
)

// MockSubstateDatabase is a mock of SubstateDatabase interface.
type MockSubstateDatabase struct {
	ctrl     *gomock.Controller
	recorder *MockSubstateDatabaseMockRecorder
}

// MockSubstateDatabaseMockRecorder is the mock recorder for MockSubstateDatabase.
type MockSubstateDatabaseMockRecorder struct {
	mock *MockSubstateDatabase
}

// NewMockSubstateDatabase creates a new mock instance.
func NewMockSubstateDatabase(ctrl *gomock.Controller) *MockSubstateDatabase {
	mock := &MockSubstateDatabase{ctrl: ctrl}
	mock.recorder = &MockSubstateDatabaseMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockSubstateDatabase) EXPECT() *MockSubstateDatabaseMockRecorder {
	return m.recorder
}

// Close mocks base method.
func (m *MockSubstateDatabase) Close() error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Close")
	ret0, _ := ret[0].(error)
	return ret0
}

// Close indicates an expected call of Close.
func (mr *MockSubstateDatabaseMockRecorder) Close() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Close", reflect.TypeOf((*MockSubstateDatabase)(nil).Close))
}

// Commit mocks base method.
func (m *MockSubstateDatabase) Commit(updates *common.DatabaseUpdates) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Commit", updates)
	ret0, _ := ret[0].(error)
	return ret0
}

// Commit indicates an expected call of Commit.
func (mr *MockSubstateDatabaseMockRecorder) Commit(updates any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Commit", reflect.TypeOf((*MockSubstateDatabase)(nil).Commit), updates)
}

// GetMemoryFootprint mocks base method.
func (m *MockSubstateDatabase) GetMemoryFootprint() *common.MemoryFootprint {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetMemoryFootprint")
	ret0, _ := ret[0].(*common.MemoryFootprint)
	return ret0
}

// GetMemoryFootprint indicates an expected call of GetMemoryFootprint.
func (mr *MockSubstateDatabaseMockRecorder) GetMemoryFootprint() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetMemoryFootprint", reflect.TypeOf((*MockSubstateDatabase)(nil).GetMemoryFootprint))
}

// GetSubstate mocks base method.
func (m *MockSubstateDatabase) GetSubstate(partition common.DbPartitionKey, key common.DbSortKey) ([]byte, Version, bool, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetSubstate", partition, key)
	ret0, _ := ret[0].([]byte)
	ret1, _ := ret[1].(Version)
	ret2, _ := ret[2].(bool)
	ret3, _ := ret[3].(error)
	return ret0, ret1, ret2, ret3
}

// GetSubstate indicates an expected call of GetSubstate.
func (mr *MockSubstateDatabaseMockRecorder) GetSubstate(partition, key any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetSubstate", reflect.TypeOf((*MockSubstateDatabase)(nil).GetSubstate), partition, key)
}

// ListEntries mocks base method.
func (m *MockSubstateDatabase) ListEntries(partition common.DbPartitionKey) (EntryIterator, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ListEntries", partition)
	ret0, _ := ret[0].(EntryIterator)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// ListEntries indicates an expected call of ListEntries.
func (mr *MockSubstateDatabaseMockRecorder) ListEntries(partition any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ListEntries", reflect.TypeOf((*MockSubstateDatabase)(nil).ListEntries), partition)
}

// ListEntriesFrom mocks base method.
func (m *MockSubstateDatabase) ListEntriesFrom(partition common.DbPartitionKey, from common.DbSortKey) (EntryIterator, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ListEntriesFrom", partition, from)
	ret0, _ := ret[0].(EntryIterator)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// ListEntriesFrom indicates an expected call of ListEntriesFrom.
func (mr *MockSubstateDatabaseMockRecorder) ListEntriesFrom(partition, from any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ListEntriesFrom", reflect.TypeOf((*MockSubstateDatabase)(nil).ListEntriesFrom), partition, from)
}

// ListPartitionKeys mocks base method.
func (m *MockSubstateDatabase) ListPartitionKeys() ([]common.DbPartitionKey, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ListPartitionKeys")
	ret0, _ := ret[0].([]common.DbPartitionKey)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// ListPartitionKeys indicates an expected call of ListPartitionKeys.
func (mr *MockSubstateDatabaseMockRecorder) ListPartitionKeys() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ListPartitionKeys", reflect.TypeOf((*MockSubstateDatabase)(nil).ListPartitionKeys))
}

// MockEntryIterator is a mock of EntryIterator interface.
type MockEntryIterator struct {
	ctrl     *gomock.Controller
	recorder *MockEntryIteratorMockRecorder
}

// MockEntryIteratorMockRecorder is the mock recorder for MockEntryIterator.
type MockEntryIteratorMockRecorder struct {
	mock *MockEntryIterator
}

// NewMockEntryIterator creates a new mock instance.
func NewMockEntryIterator(ctrl *gomock.Controller) *MockEntryIterator {
	mock := &MockEntryIterator{ctrl: ctrl}
	mock.recorder = &MockEntryIteratorMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockEntryIterator) EXPECT() *MockEntryIteratorMockRecorder {
	return m.recorder
}

// Err mocks base method.
func (m *MockEntryIterator) Err() error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Err")
	ret0, _ := ret[0].(error)
	return ret0
}

// Err indicates an expected call of Err.
func (mr *MockEntryIteratorMockRecorder) Err() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Err", reflect.TypeOf((*MockEntryIterator)(nil).Err))
}

// Key mocks base method.
func (m *MockEntryIterator) Key() common.DbSortKey {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Key")
	ret0, _ := ret[0].(common.DbSortKey)
	return ret0
}

// Key indicates an expected call of Key.
func (mr *MockEntryIteratorMockRecorder) Key() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Key", reflect.TypeOf((*MockEntryIterator)(nil).Key))
}

// Next mocks base method.
func (m *MockEntryIterator) Next() bool {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Next")
	ret0, _ := ret[0].(bool)
	return ret0
}

// Next indicates an expected call of Next.
func (mr *MockEntryIteratorMockRecorder) Next() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Next", reflect.TypeOf((*MockEntryIterator)(nil).Next))
}

// Release mocks base method.
func (m *MockEntryIterator) Release() {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "Release")
}

// Release indicates an expected call of Release.
func (mr *MockEntryIteratorMockRecorder) Release() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Release", reflect.TypeOf((*MockEntryIterator)(nil).Release))
}

// Value mocks base method.
func (m *MockEntryIterator) Value() []byte {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Value")
	ret0, _ := ret[0].([]byte)
	return ret0
}

// Value indicates an expected call of Value.
func (mr *MockEntryIteratorMockRecorder) Value() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Value", reflect.TypeOf((*MockEntryIterator)(nil).Value))
}

// Version mocks base method.
func (m *MockEntryIterator) Version() Version {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Version")
	ret0, _ := ret[0].(Version)
	return ret0
}

// Version indicates an expected call of Version.
func (mr *MockEntryIteratorMockRecorder) Version() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Version", reflect.TypeOf((*MockEntryIterator)(nil).Version))
}
