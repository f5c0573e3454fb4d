// Package mocks holds mockgen-style generated mocks for this
// module's external collaborator interfaces
// (causalprobe.AgentResponseProvider, ledger.Sink, ledger.Store),
// hand-authored in the shape `mockgen` would emit since the toolchain
// is not run as part of this build.
package mocks

import (
	"context"
	"reflect"
	"time"

	"github.com/logos-42/MultiAgentOracle-sub000/causalprobe"
	"github.com/logos-42/MultiAgentOracle-sub000/ledger"
	"github.com/logos-42/MultiAgentOracle-sub000/reputation"
	"go.uber.org/mock/gomock"
)

// MockAgentResponseProvider is a mock of the AgentResponseProvider interface.
type MockAgentResponseProvider struct {
	ctrl     *gomock.Controller
	recorder *MockAgentResponseProviderMockRecorder
}

// MockAgentResponseProviderMockRecorder is the mock recorder for MockAgentResponseProvider.
type MockAgentResponseProviderMockRecorder struct {
	mock *MockAgentResponseProvider
}

// NewMockAgentResponseProvider creates a new mock instance.
func NewMockAgentResponseProvider(ctrl *gomock.Controller) *MockAgentResponseProvider {
	mock := &MockAgentResponseProvider{ctrl: ctrl}
	mock.recorder = &MockAgentResponseProviderMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockAgentResponseProvider) EXPECT() *MockAgentResponseProviderMockRecorder {
	return m.recorder
}

// Query mocks base method.
func (m *MockAgentResponseProvider) Query(ctx context.Context, agent causalprobe.AgentID, prompt string) (causalprobe.NumericResponse, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Query", ctx, agent, prompt)
	ret0, _ := ret[0].(causalprobe.NumericResponse)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Query indicates an expected call of Query.
func (mr *MockAgentResponseProviderMockRecorder) Query(ctx, agent, prompt interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Query", reflect.TypeOf((*MockAgentResponseProvider)(nil).Query), ctx, agent, prompt)
}

// MockSink is a mock of the ledger.Sink interface.
type MockSink struct {
	ctrl     *gomock.Controller
	recorder *MockSinkMockRecorder
}

// MockSinkMockRecorder is the mock recorder for MockSink.
type MockSinkMockRecorder struct {
	mock *MockSink
}

// NewMockSink creates a new mock instance.
func NewMockSink(ctrl *gomock.Controller) *MockSink {
	mock := &MockSink{ctrl: ctrl}
	mock.recorder = &MockSinkMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockSink) EXPECT() *MockSinkMockRecorder {
	return m.recorder
}

// Record mocks base method.
func (m *MockSink) Record(ctx context.Context, record ledger.ConsensusRecord) (ledger.Ack, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Record", ctx, record)
	ret0, _ := ret[0].(ledger.Ack)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Record indicates an expected call of Record.
func (mr *MockSinkMockRecorder) Record(ctx, record interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Record", reflect.TypeOf((*MockSink)(nil).Record), ctx, record)
}

// MockStore is a mock of the ledger.Store interface.
type MockStore struct {
	ctrl     *gomock.Controller
	recorder *MockStoreMockRecorder
}

// MockStoreMockRecorder is the mock recorder for MockStore.
type MockStoreMockRecorder struct {
	mock *MockStore
}

// NewMockStore creates a new mock instance.
func NewMockStore(ctrl *gomock.Controller) *MockStore {
	mock := &MockStore{ctrl: ctrl}
	mock.recorder = &MockStoreMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockStore) EXPECT() *MockStoreMockRecorder {
	return m.recorder
}

// LoadAll mocks base method.
func (m *MockStore) LoadAll(ctx context.Context) (map[causalprobe.AgentID]reputation.Record, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "LoadAll", ctx)
	ret0, _ := ret[0].(map[causalprobe.AgentID]reputation.Record)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// LoadAll indicates an expected call of LoadAll.
func (mr *MockStoreMockRecorder) LoadAll(ctx interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "LoadAll", reflect.TypeOf((*MockStore)(nil).LoadAll), ctx)
}

// Save mocks base method.
func (m *MockStore) Save(ctx context.Context, record reputation.Record) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Save", ctx, record)
	ret0, _ := ret[0].(error)
	return ret0
}

// Save indicates an expected call of Save.
func (mr *MockStoreMockRecorder) Save(ctx, record interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Save", reflect.TypeOf((*MockStore)(nil).Save), ctx, record)
}

// Delete mocks base method.
func (m *MockStore) Delete(ctx context.Context, agent causalprobe.AgentID) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Delete", ctx, agent)
	ret0, _ := ret[0].(error)
	return ret0
}

// Delete indicates an expected call of Delete.
func (mr *MockStoreMockRecorder) Delete(ctx, agent interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Delete", reflect.TypeOf((*MockStore)(nil).Delete), ctx, agent)
}

// LoadHistory mocks base method.
func (m *MockStore) LoadHistory(ctx context.Context, agent causalprobe.AgentID, start, end time.Time) ([]reputation.UpdateEntry, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "LoadHistory", ctx, agent, start, end)
	ret0, _ := ret[0].([]reputation.UpdateEntry)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// LoadHistory indicates an expected call of LoadHistory.
func (mr *MockStoreMockRecorder) LoadHistory(ctx, agent, start, end interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "LoadHistory", reflect.TypeOf((*MockStore)(nil).LoadHistory), ctx, agent, start, end)
}
