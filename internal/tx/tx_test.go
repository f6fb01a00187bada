package tx_test

import (
	"context"
	"sync"
	"testing"

	"github.com/jrsteele09/go-property-market/internal/tx"
	"github.com/stretchr/testify/require"
)

func TestLockingSerialises(t *testing.T) {
	var m tx.Locking
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.RunInTx(context.Background(), func(ctx context.Context) error {
				v := counter
				counter = v + 1
				return nil
			})
		}()
	}
	wg.Wait()
	require.Equal(t, 50, counter)
}

func TestLockingNested(t *testing.T) {
	var m tx.Locking
	calls := 0
	err := m.RunInTx(context.Background(), func(ctx context.Context) error {
		calls++
		return m.RunInTx(ctx, func(context.Context) error {
			calls++
			return nil
		})
	})
	require.NoError(t, err)
	require.Equal(t, 2, calls)
}
