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
	reflect "reflect"

	gomock "go.uber.org/mock/gomock"
)

// MockUpdateTarget is a mock of UpdateTarget interface.
type MockUpdateTarget struct {
	ctrl     *gomock.Controller
	recorder *MockUpdateTargetMockRecorder
}

// MockUpdateTargetMockRecorder is the mock recorder for MockUpdateTarget.
type MockUpdateTargetMockRecorder struct {
	mock *MockUpdateTarget
}

// NewMockUpdateTarget creates a new mock instance.
func NewMockUpdateTarget(ctrl *gomock.Controller) *MockUpdateTarget {
	mock := &MockUpdateTarget{ctrl: ctrl}
	mock.recorder = &MockUpdateTargetMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockUpdateTarget) EXPECT() *MockUpdateTargetMockRecorder {
	return m.recorder
}

// DeleteEntry mocks base method.
func (m *MockUpdateTarget) DeleteEntry(arg0 DbPartitionKey, arg1 DbSortKey) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "DeleteEntry", arg0, arg1)
	ret0, _ := ret[0].(error)
	return ret0
}

// DeleteEntry indicates an expected call of DeleteEntry.
func (mr *MockUpdateTargetMockRecorder) DeleteEntry(arg0, arg1 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "DeleteEntry", reflect.TypeOf((*MockUpdateTarget)(nil).DeleteEntry), arg0, arg1)
}

// ResetPartition mocks base method.
func (m *MockUpdateTarget) ResetPartition(arg0 DbPartitionKey) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ResetPartition", arg0)
	ret0, _ := ret[0].(error)
	return ret0
}

// ResetPartition indicates an expected call of ResetPartition.
func (mr *MockUpdateTargetMockRecorder) ResetPartition(arg0 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ResetPartition", reflect.TypeOf((*MockUpdateTarget)(nil).ResetPartition), arg0)
}

// SetEntry mocks base method.
func (m *MockUpdateTarget) SetEntry(arg0 DbPartitionKey, arg1 DbSortKey, arg2 []byte) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "SetEntry", arg0, arg1, arg2)
	ret0, _ := ret[0].(error)
	return ret0
}

// SetEntry indicates an expected call of SetEntry.
func (mr *MockUpdateTargetMockRecorder) SetEntry(arg0, arg1, arg2 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "SetEntry", reflect.TypeOf((*MockUpdateTarget)(nil).SetEntry), arg0, arg1, arg2)
}
