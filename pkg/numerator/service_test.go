package numerator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scrapdesk/internal/core/tenant"
)

type mockRow struct {
	val int64
	err error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.err != nil {
		return m.err
	}
	if len(dest) > 0 {
		if ptr, ok := dest[0].(*int64); ok {
			*ptr = m.val
		}
	}
	return nil
}

// mockQuerier simulates sys_sequences keyed by (tenant_id, sequence_type).
type mockQuerier struct {
	mu   sync.Mutex
	vals map[string]int64
	err  error
}

func newMockQuerier() *mockQuerier {
	return &mockQuerier{vals: make(map[string]int64)}
}

func (m *mockQuerier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return &mockRow{err: m.err}
	}

	key := args[0].(string) + "/" + args[1].(string)
	switch {
	case strings.Contains(sql, "GREATEST"):
		m.vals[key] = max(m.vals[key], args[2].(int64))
	case strings.Contains(sql, "INSERT"):
		m.vals[key]++
	default:
		return &mockRow{val: m.vals[key] + 1}
	}
	return &mockRow{val: m.vals[key]}
}

func tenantCtx(id string) context.Context {
	return tenant.WithTenantID(context.Background(), id)
}

func TestNext(t *testing.T) {
	q := newMockQuerier()
	svc := New(q)
	ctx := tenantCtx("t1")

	for want := int64(1); want <= 3; want++ {
		got, err := svc.Next(ctx, "invoice.purchase")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	t.Run("sequences are independent", func(t *testing.T) {
		got, err := svc.Next(ctx, "invoice.sale")
		require.NoError(t, err)
		assert.Equal(t, int64(1), got)
	})

	t.Run("tenants are independent", func(t *testing.T) {
		got, err := svc.Next(tenantCtx("t2"), "invoice.purchase")
		require.NoError(t, err)
		assert.Equal(t, int64(1), got)
	})
}

func TestPeek_DoesNotConsume(t *testing.T) {
	svc := New(newMockQuerier())
	ctx := tenantCtx("t1")

	n, err := svc.Peek(ctx, "invoice.sale")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = svc.Peek(ctx, "invoice.sale")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	next, err := svc.Next(ctx, "invoice.sale")
	require.NoError(t, err)
	assert.Equal(t, int64(1), next)

	n, err = svc.Peek(ctx, "invoice.sale")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestSync(t *testing.T) {
	svc := New(newMockQuerier())
	ctx := tenantCtx("t1")

	require.NoError(t, svc.Sync(ctx, "invoice.purchase", 40))
	n, err := svc.Next(ctx, "invoice.purchase")
	require.NoError(t, err)
	assert.Equal(t, int64(41), n)

	require.NoError(t, svc.Sync(ctx, "invoice.purchase", 10))
	n, err = svc.Next(ctx, "invoice.purchase")
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)

	assert.Error(t, svc.Sync(ctx, "invoice.purchase", -1))
}

func TestRequiresTenant(t *testing.T) {
	svc := New(newMockQuerier())

	_, err := svc.Next(context.Background(), "invoice.sale")
	assert.ErrorIs(t, err, tenant.ErrNoTenantInContext)
	_, err = svc.Peek(context.Background(), "invoice.sale")
	assert.ErrorIs(t, err, tenant.ErrNoTenantInContext)
}

func TestQueryError(t *testing.T) {
	q := newMockQuerier()
	q.err = errors.New("connection reset")
	svc := NewWithResolver(func(context.Context) Querier { return q })

	_, err := svc.Next(tenantCtx("t1"), "invoice.sale")
	assert.ErrorIs(t, err, q.err)
}

func TestNext_ConcurrentCallersGetDistinctNumbers(t *testing.T) {
	svc := New(newMockQuerier())
	ctx := tenantCtx("t1")

	const n = 50
	got := make([]int64, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got[i], _ = svc.Next(ctx, "invoice.purchase")
		}()
	}
	wg.Wait()

	seen := make(map[int64]bool, n)
	for _, v := range got {
		assert.False(t, seen[v], "duplicate %d", v)
		seen[v] = true
	}
	assert.Len(t, seen, n)
	assert.True(t, seen[1] && seen[n])
}
