package projection

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCheckpointStore_SaveAndLoad(t *testing.T) {
	store := NewMemoryCheckpointStore()
	ctx := context.Background()

	checkpoint := NewCheckpoint("cart-summary", 42, "evt-42", time.Now())
	require.NoError(t, store.Save(ctx, checkpoint))

	loaded, err := store.Load(ctx, "cart-summary")
	require.NoError(t, err)
	assert.Equal(t, checkpoint.ProjectionName, loaded.ProjectionName)
	assert.Equal(t, checkpoint.Position, loaded.Position)
	assert.Equal(t, checkpoint.LastEventID, loaded.LastEventID)
}

func TestMemoryCheckpointStore_LoadNotFound(t *testing.T) {
	store := NewMemoryCheckpointStore()

	_, err := store.Load(context.Background(), "missing-view")
	assert.ErrorIs(t, err, ErrCheckpointNotFound)
}

func TestMemoryCheckpointStore_SaveInvalid(t *testing.T) {
	store := NewMemoryCheckpointStore()
	ctx := context.Background()

	assert.ErrorIs(t, store.Save(ctx, nil), ErrInvalidCheckpoint)
	assert.ErrorIs(t, store.Save(ctx, &Checkpoint{Position: 10}), ErrInvalidCheckpoint)
}

// 重复保存覆盖旧位置
func TestMemoryCheckpointStore_SaveOverwrites(t *testing.T) {
	store := NewMemoryCheckpointStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, NewCheckpoint("cart-summary", 42, "evt-42", time.Now())))
	require.NoError(t, store.Save(ctx, NewCheckpoint("cart-summary", 43, "evt-43", time.Now())))

	loaded, err := store.Load(ctx, "cart-summary")
	require.NoError(t, err)
	assert.Equal(t, int64(43), loaded.Position)
	assert.Equal(t, "evt-43", loaded.LastEventID)
	assert.Equal(t, 1, store.Count())
}

// 外部修改保存过或加载到的检查点不应影响存储内的数据
func TestMemoryCheckpointStore_Isolation(t *testing.T) {
	store := NewMemoryCheckpointStore()
	ctx := context.Background()

	saved := NewCheckpoint("cart-summary", 42, "evt-42", time.Now())
	require.NoError(t, store.Save(ctx, saved))
	saved.Position = 999

	loaded, err := store.Load(ctx, "cart-summary")
	require.NoError(t, err)
	assert.Equal(t, int64(42), loaded.Position)

	loaded.Position = 888
	again, err := store.Load(ctx, "cart-summary")
	require.NoError(t, err)
	assert.Equal(t, int64(42), again.Position)
}

func TestMemoryCheckpointStore_Delete(t *testing.T) {
	store := NewMemoryCheckpointStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, NewCheckpoint("cart-summary", 42, "evt-42", time.Now())))
	require.NoError(t, store.Delete(ctx, "cart-summary"))

	_, err := store.Load(ctx, "cart-summary")
	assert.ErrorIs(t, err, ErrCheckpointNotFound)

	// 删除不存在的检查点不报错
	assert.NoError(t, store.Delete(ctx, "missing-view"))
}

func TestMemoryCheckpointStore_ConcurrentAccess(t *testing.T) {
	store := NewMemoryCheckpointStore()
	ctx := context.Background()

	const goroutines = 100

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func(idx int) {
			defer wg.Done()
			_ = store.Save(ctx, NewCheckpoint("cart-summary", int64(idx), fmt.Sprintf("evt-%d", idx), time.Now()))
		}(i)
	}
	wg.Wait()

	loaded, err := store.Load(ctx, "cart-summary")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, loaded.Position, int64(0))
	assert.Less(t, loaded.Position, int64(goroutines))
}

func BenchmarkMemoryCheckpointStore_Save(b *testing.B) {
	store := NewMemoryCheckpointStore()
	ctx := context.Background()
	checkpoint := NewCheckpoint("cart-summary", 42, "evt-42", time.Now())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = store.Save(ctx, checkpoint)
	}
}
