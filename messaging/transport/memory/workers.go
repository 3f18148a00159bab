package memory

import (
	"context"
	"fmt"
)

// Start 启动 worker 池，重复启动报错
func (t *MemoryTransport) Start(ctx context.Context) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.running {
		return fmt.Errorf("memory transport is already running")
	}
	t.running = true

	for i := 0; i < t.workerCount; i++ {
		t.wg.Add(1)
		go t.worker(ctx)
	}
	return nil
}

// Close 停止接收新消息，排空队列后等待全部 worker 退出
func (t *MemoryTransport) Close() error {
	t.mutex.Lock()
	if !t.running {
		t.mutex.Unlock()
		return fmt.Errorf("memory transport is not running")
	}
	t.running = false
	queue := t.queue
	t.mutex.Unlock()

	// 关闭队列而不是中断 worker，缓冲中的消息会被消费完
	close(queue)
	t.wg.Wait()
	return nil
}

func (t *MemoryTransport) worker(ctx context.Context) {
	defer t.wg.Done()

	for {
		select {
		case message, ok := <-t.queue:
			if !ok {
				return
			}
			t.dispatch(ctx, message)
		case <-ctx.Done():
			return
		}
	}
}
