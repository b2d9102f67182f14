package tx

import (
	"context"
	"fmt"
	"sync"
)

// mockSession is a hand-rolled Session that records every call it receives,
// in order, so tests can assert exact call sequences without a real
// database.
type mockSession struct {
	mu   sync.Mutex
	log  []string
	name string

	active   bool
	released bool

	failBegin      error
	failCommit     error
	failSavepoint  string // name that fails Savepoint
	failReleaseSP  string // name that fails ReleaseSavepoint
	failRollbackSP string // name that fails RollbackToSavepoint
}

func newMockSession(name string) *mockSession {
	return &mockSession{name: name}
}

func (m *mockSession) record(s string) {
	m.mu.Lock()
	m.log = append(m.log, s)
	m.mu.Unlock()
}

func (m *mockSession) calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.log))
	copy(out, m.log)
	return out
}

func (m *mockSession) Connect(ctx context.Context) error {
	m.record("connect")
	return nil
}

func (m *mockSession) Begin(ctx context.Context, isolation IsolationLevel) error {
	m.record(fmt.Sprintf("begin:%s", isolation))
	if m.failBegin != nil {
		return m.failBegin
	}
	m.active = true
	return nil
}

func (m *mockSession) SetReadOnly(ctx context.Context) error {
	m.record("set_read_only")
	return nil
}

func (m *mockSession) Savepoint(ctx context.Context, name string) error {
	m.record("savepoint:" + name)
	if name == m.failSavepoint {
		return fmt.Errorf("savepoint %s failed", name)
	}
	return nil
}

func (m *mockSession) ReleaseSavepoint(ctx context.Context, name string) error {
	m.record("release_savepoint:" + name)
	if name == m.failReleaseSP {
		return fmt.Errorf("release savepoint %s failed", name)
	}
	return nil
}

func (m *mockSession) RollbackToSavepoint(ctx context.Context, name string) error {
	m.record("rollback_to_savepoint:" + name)
	if name == m.failRollbackSP {
		return fmt.Errorf("rollback to savepoint %s failed", name)
	}
	return nil
}

func (m *mockSession) Commit(ctx context.Context) error {
	m.record("commit")
	if m.failCommit != nil {
		return m.failCommit
	}
	m.active = false
	return nil
}

func (m *mockSession) Rollback(ctx context.Context) error {
	m.record("rollback")
	m.active = false
	return nil
}

func (m *mockSession) Release(ctx context.Context) error {
	m.record("release")
	m.released = true
	return nil
}

func (m *mockSession) Execute(ctx context.Context, statement string) error {
	m.record("execute:" + statement)
	return nil
}

func (m *mockSession) IsTransactionActive() bool {
	return m.active
}

func (m *mockSession) IsReleased() bool {
	return m.released
}

func (m *mockSession) EntityManager() any {
	return m
}

// mockDataSource hands out mockSessions and lets tests force NewSession to
// fail.
type mockDataSource struct {
	mu          sync.Mutex
	sessions    []*mockSession
	failNewSess error
	initialized bool
}

func newMockDataSource() *mockDataSource {
	return &mockDataSource{initialized: true}
}

func (d *mockDataSource) NewSession(ctx context.Context) (Session, error) {
	if d.failNewSess != nil {
		return nil, d.failNewSess
	}
	s := newMockSession(fmt.Sprintf("session-%d", len(d.sessions)))
	d.mu.Lock()
	d.sessions = append(d.sessions, s)
	d.mu.Unlock()
	return s, nil
}

func (d *mockDataSource) PoolStatus(ctx context.Context) PoolStatus {
	return PoolStatus{Initialized: d.initialized, HasMetadata: true}
}

func (d *mockDataSource) lastSession() *mockSession {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.sessions) == 0 {
		return nil
	}
	return d.sessions[len(d.sessions)-1]
}

func (d *mockDataSource) allSessions() []*mockSession {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*mockSession, len(d.sessions))
	copy(out, d.sessions)
	return out
}

// mockMetadataProvider resolves a single fixed name to one DataSource.
type mockMetadataProvider struct {
	name string
	ds   DataSource
	ok   bool
}

func newMockMetadataProvider(ds DataSource) *mockMetadataProvider {
	return &mockMetadataProvider{name: "DB", ds: ds, ok: true}
}

func (p *mockMetadataProvider) GetMetaData(name string) (Metadata, bool) {
	if name != p.name || !p.ok {
		return Metadata{}, false
	}
	return Metadata{DataSource: p.ds, IsInitialized: true}, true
}
