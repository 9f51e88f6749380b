package invoicing

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
)

// counterQueryer emulates the database's serialized counter upsert: every
// call advances the tenant's counter atomically, exactly like the
// ON CONFLICT .. DO UPDATE .. RETURNING statement does.
type counterQueryer struct {
	mu       sync.Mutex
	counters map[int64]int64
}

type counterRow struct {
	value int64
	err   error
}

func (r counterRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*int64)) = r.value
	return nil
}

func (q *counterQueryer) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	q.mu.Lock()
	defer q.mu.Unlock()
	tenantID := args[0].(int64)
	q.counters[tenantID]++
	return counterRow{value: q.counters[tenantID]}
}

func TestNextNumberStrictlyIncreasing(t *testing.T) {
	q := &counterQueryer{counters: make(map[int64]int64)}
	ctx := context.Background()

	var previous int64
	for i := 0; i < 10; i++ {
		n, err := NextNumber(ctx, q, 1)
		require.NoError(t, err)
		require.Greater(t, n, previous)
		previous = n
	}
}

func TestNextNumberPerTenantSequences(t *testing.T) {
	q := &counterQueryer{counters: make(map[int64]int64)}
	ctx := context.Background()

	a1, err := NextNumber(ctx, q, 1)
	require.NoError(t, err)
	b1, err := NextNumber(ctx, q, 2)
	require.NoError(t, err)
	a2, err := NextNumber(ctx, q, 1)
	require.NoError(t, err)

	require.Equal(t, int64(1), a1)
	require.Equal(t, int64(1), b1)
	require.Equal(t, int64(2), a2)
}

func TestNextNumberDistinctUnderConcurrency(t *testing.T) {
	q := &counterQueryer{counters: make(map[int64]int64)}
	ctx := context.Background()

	const callers = 64
	results := make(chan int64, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := NextNumber(ctx, q, 7)
			require.NoError(t, err)
			results <- n
		}()
	}
	wg.Wait()
	close(results)

	var numbers []int64
	for n := range results {
		numbers = append(numbers, n)
	}
	require.Len(t, numbers, callers)

	sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })
	for i := 1; i < len(numbers); i++ {
		require.NotEqual(t, numbers[i-1], numbers[i], "two orders received the same invoice number")
	}
}
