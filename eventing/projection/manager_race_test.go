package projection

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foodcart/eventing"
	"foodcart/eventing/store"
	"foodcart/messaging"
)

// 多个 goroutine 并发通过 projectionEventHandler 投递同一事件，
// 验证状态计数与 handler 内部锁在 -race 下无竞态。
func TestProjectionEventHandler_ConcurrentHandleEvent(t *testing.T) {
	eventStore := store.NewMemoryEventStore()
	eventBus := &stubEventBus{}
	manager := NewProjectionManager(eventStore, eventBus)

	proj := newStubProjection("cart-summary", []string{"ProductSelected"})
	require.NoError(t, manager.RegisterProjection(proj))
	require.NoError(t, manager.StartProjection("cart-summary"))

	evt := &eventing.Event{
		Message: messaging.Message{
			ID:        "evt-1",
			Type:      "ProductSelected",
			Timestamp: time.Now(),
			Metadata:  make(map[string]any),
		},
	}

	manager.mutex.RLock()
	handler := manager.handlers["cart-summary"]["ProductSelected"]
	manager.mutex.RUnlock()
	require.NotNil(t, handler)

	const (
		goroutines = 16
		perGor     = 50
	)

	ctx := context.Background()
	var wg sync.WaitGroup
	wg.Add(goroutines)

	for g := 0; g < goroutines; g++ {
		go func() {
			defer wg.Done()
			for i := 0; i < perGor; i++ {
				_ = handler.HandleEvent(ctx, evt)
			}
		}()
	}

	wg.Wait()

	status, err := manager.GetProjectionStatus("cart-summary")
	require.NoError(t, err)
	assert.Equal(t, int64(goroutines*perGor), status.ProcessedEvents)
}
