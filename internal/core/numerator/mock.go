package numerator

import (
	"context"
	"sync"

	"scrapdesk/internal/core/tenant"
)

// MockGenerator is an in-memory Generator for unit tests.
// Counters are keyed by tenant and sequence; the Func fields override behavior.
type MockGenerator struct {
	NextFunc func(ctx context.Context, seq string) (int64, error)

	mu       sync.Mutex
	counters map[string]int64
}

func (m *MockGenerator) key(ctx context.Context, seq string) string {
	return tenant.GetTenantID(ctx) + ":" + seq
}

// Next implements Generator.
func (m *MockGenerator) Next(ctx context.Context, seq string) (int64, error) {
	if m.NextFunc != nil {
		return m.NextFunc(ctx, seq)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counters == nil {
		m.counters = make(map[string]int64)
	}
	k := m.key(ctx, seq)
	m.counters[k]++
	return m.counters[k], nil
}

// Peek implements Generator.
func (m *MockGenerator) Peek(ctx context.Context, seq string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[m.key(ctx, seq)] + 1, nil
}

// Sync implements Generator.
func (m *MockGenerator) Sync(ctx context.Context, seq string, floor int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counters == nil {
		m.counters = make(map[string]int64)
	}
	k := m.key(ctx, seq)
	if m.counters[k] < floor {
		m.counters[k] = floor
	}
	return nil
}

// Set forces the counter, simulating a rollback in tests.
func (m *MockGenerator) Set(ctx context.Context, seq string, value int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counters == nil {
		m.counters = make(map[string]int64)
	}
	m.counters[m.key(ctx, seq)] = value
}

var _ Generator = (*MockGenerator)(nil)
