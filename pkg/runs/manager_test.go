package runs_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/techtrends/internal/adapters/redis"
	"github.com/aretw0/techtrends/pkg/adapters/memory"
	"github.com/aretw0/techtrends/pkg/domain"
	"github.com/aretw0/techtrends/pkg/runs"
)

func TestManager_SerializesSameRun(t *testing.T) {
	mgr := runs.NewManager(memory.NewStore())
	ctx := context.Background()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := mgr.WithLock(ctx, "run-1", func(ctx context.Context) error {
				n := atomic.AddInt32(&inside, 1)
				for {
					cur := atomic.LoadInt32(&maxInside)
					if n <= cur || atomic.CompareAndSwapInt32(&maxInside, cur, n) {
						break
					}
				}
				time.Sleep(2 * time.Millisecond)
				atomic.AddInt32(&inside, -1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInside)
}

func TestManager_DeleteUnknownRun(t *testing.T) {
	mgr := runs.NewManager(memory.NewStore())
	err := mgr.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrRunNotFound)
}

func TestManager_Summaries(t *testing.T) {
	store := memory.NewStore()
	mgr := runs.NewManager(store)
	ctx := context.Background()

	older := domain.NewState("older", domain.Params{Fields: []domain.Tag{domain.TagAI}, Format: domain.FormatPDF})
	older.UpdatedAt = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := domain.NewState("newer", domain.Params{Fields: []domain.Tag{domain.TagEnergy}, Format: domain.FormatMarkdown})
	newer.UpdatedAt = time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	newer = newer.Fail(domain.StageResearch, assert.AnError)

	require.NoError(t, mgr.Save(ctx, "older", &older))
	require.NoError(t, mgr.Save(ctx, "newer", &newer))

	sums, err := mgr.Summaries(ctx)
	require.NoError(t, err)
	require.Len(t, sums, 2)
	assert.Equal(t, "newer", sums[0].RunID)
	assert.Equal(t, domain.StageResearch, sums[0].FailedStage)
	assert.Equal(t, "older", sums[1].RunID)
	assert.Equal(t, domain.FormatPDF, sums[1].Format)
}

func TestManager_DistributedLock(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	defer client.Close()

	locker := redis.NewLocker(client, "test:")
	a := runs.NewManager(memory.NewStore(), runs.WithLocker(locker))
	b := runs.NewManager(memory.NewStore(), runs.WithLocker(locker))
	ctx := context.Background()

	held := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_ = a.WithLock(ctx, "run-1", func(context.Context) error {
			close(held)
			<-done
			return nil
		})
	}()
	<-held

	short, cancel := context.WithTimeout(ctx, 250*time.Millisecond)
	defer cancel()
	err = b.WithLock(short, "run-1", func(context.Context) error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(done)
	require.Eventually(t, func() bool {
		return b.WithLock(ctx, "run-1", func(context.Context) error { return nil }) == nil
	}, 2*time.Second, 50*time.Millisecond)
}
