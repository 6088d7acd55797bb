package cart

import (
	"context"
	"sync"

	"github.com/fjod/go_storefront/internal/cart/storage"
)

type mockStorage struct {
	m         sync.Mutex
	data      map[string][]byte
	loadErr   error
	saveErr   error
	loadCalls int
	saveCalls int

	// when set, Load reports on loadEntered and waits for loadGate to close
	loadGate    chan struct{}
	loadEntered chan struct{}
}

func newMockStorage() *mockStorage {
	return &mockStorage{data: make(map[string][]byte)}
}

func (m *mockStorage) Load(_ context.Context, sessionID string) ([]byte, error) {
	m.m.Lock()
	m.loadCalls++
	gate, entered := m.loadGate, m.loadEntered
	m.m.Unlock()
	if gate != nil {
		entered <- struct{}{}
		<-gate
	}

	m.m.Lock()
	defer m.m.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	d, ok := m.data[sessionID]
	if !ok {
		return nil, storage.ErrSnapshotNotFound
	}
	return d, nil
}

func (m *mockStorage) Save(_ context.Context, sessionID string, snapshot []byte) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.saveCalls++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.data[sessionID] = append([]byte(nil), snapshot...)
	return nil
}

func (m *mockStorage) Delete(_ context.Context, sessionID string) error {
	m.m.Lock()
	defer m.m.Unlock()
	delete(m.data, sessionID)
	return nil
}

func (m *mockStorage) setSaveErr(err error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.saveErr = err
}

func (m *mockStorage) loads() int {
	m.m.Lock()
	defer m.m.Unlock()
	return m.loadCalls
}
