// Mock of the Rank interface in collab.go.
//
// Hand-authored to the shape mockgen would emit: the Go toolchain (and so
// `go generate`) cannot be invoked in this environment, so this mirrors
// mockgen's own output for the Rank interface instead of running it.

package memctrl_test

import (
	reflect "reflect"

	gomock "go.uber.org/mock/gomock"

	signal "github.com/sarchlab/dramctrl/memctrl/signal"
)

// MockRank is a mock of the memctrl.Rank interface.
type MockRank struct {
	ctrl     *gomock.Controller
	recorder *MockRankMockRecorder
}

// MockRankMockRecorder is the mock recorder for MockRank.
type MockRankMockRecorder struct {
	mock *MockRank
}

// NewMockRank creates a new mock instance.
func NewMockRank(ctrl *gomock.Controller) *MockRank {
	mock := &MockRank{ctrl: ctrl}
	mock.recorder = &MockRankMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockRank) EXPECT() *MockRankMockRecorder {
	return m.recorder
}

// ReceiveFromBus mocks base method.
func (m *MockRank) ReceiveFromBus(pkt *signal.BusPacket) {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "ReceiveFromBus", pkt)
}

// ReceiveFromBus indicates an expected call of ReceiveFromBus.
func (mr *MockRankMockRecorder) ReceiveFromBus(pkt interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ReceiveFromBus",
		reflect.TypeOf((*MockRank)(nil).ReceiveFromBus), pkt)
}

// PowerDown mocks base method.
func (m *MockRank) PowerDown() {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "PowerDown")
}

// PowerDown indicates an expected call of PowerDown.
func (mr *MockRankMockRecorder) PowerDown() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "PowerDown",
		reflect.TypeOf((*MockRank)(nil).PowerDown))
}

// PowerUp mocks base method.
func (m *MockRank) PowerUp() {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "PowerUp")
}

// PowerUp indicates an expected call of PowerUp.
func (mr *MockRankMockRecorder) PowerUp() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "PowerUp",
		reflect.TypeOf((*MockRank)(nil).PowerUp))
}

// RefreshWaiting mocks base method.
func (m *MockRank) RefreshWaiting() bool {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "RefreshWaiting")
	ret0, _ := ret[0].(bool)
	return ret0
}

// RefreshWaiting indicates an expected call of RefreshWaiting.
func (mr *MockRankMockRecorder) RefreshWaiting() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "RefreshWaiting",
		reflect.TypeOf((*MockRank)(nil).RefreshWaiting))
}

// SetRefreshWaiting mocks base method.
func (m *MockRank) SetRefreshWaiting(arg0 bool) {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "SetRefreshWaiting", arg0)
}

// SetRefreshWaiting indicates an expected call of SetRefreshWaiting.
func (mr *MockRankMockRecorder) SetRefreshWaiting(arg0 interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "SetRefreshWaiting",
		reflect.TypeOf((*MockRank)(nil).SetRefreshWaiting), arg0)
}
