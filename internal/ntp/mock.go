package ntp

import (
	"context"
	"sync"
)

// MockQuerier is a scriptable Querier for Discipline Loop tests: it lets a
// test pin per-server responses, errors, and call counts without standing
// up real UDP sockets.
type MockQuerier struct {
	mu         sync.Mutex
	responses  map[string]Sample
	errors     map[string]error
	callCounts map[string]int
}

// NewMockQuerier creates an empty MockQuerier.
func NewMockQuerier() *MockQuerier {
	return &MockQuerier{
		responses:  make(map[string]Sample),
		errors:     make(map[string]error),
		callCounts: make(map[string]int),
	}
}

// SetResponse configures server to return sample on the next and all
// subsequent queries, until changed.
func (m *MockQuerier) SetResponse(server string, sample Sample) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[server] = sample
	delete(m.errors, server)
}

// SetError configures server to fail every query with err.
func (m *MockQuerier) SetError(server string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[server] = err
	delete(m.responses, server)
}

// CallCount returns how many times server has been queried.
func (m *MockQuerier) CallCount(server string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCounts[server]
}

// Query implements Querier.
func (m *MockQuerier) Query(ctx context.Context, server string) (Sample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCounts[server]++

	if err, ok := m.errors[server]; ok {
		return Sample{}, err
	}
	if sample, ok := m.responses[server]; ok {
		return sample, nil
	}
	return Sample{}, newSampleError(ErrorKindNetwork, server, nil)
}
