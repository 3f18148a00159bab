package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock 可推进的测试时钟
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newViewCache(maxSize int, ttl time.Duration) (*Cache[string, int], *fakeClock) {
	clock := newFakeClock()
	c := New[string, int](Config{
		Name:    "cart_view",
		MaxSize: maxSize,
		TTL:     ttl,
	})
	c.now = clock.Now
	return c, clock
}

// TestCache_SetGet 测试基本读写
func TestCache_SetGet(t *testing.T) {
	c, _ := newViewCache(10, time.Minute)

	c.Set("deluxe-burger", 3)
	c.Set("fries", 1)

	value, found := c.Get("deluxe-burger")
	require.True(t, found)
	assert.Equal(t, 3, value)

	value, found = c.Get("fries")
	require.True(t, found)
	assert.Equal(t, 1, value)

	_, found = c.Get("milkshake")
	assert.False(t, found)
	assert.Equal(t, 2, c.Size())
}

// TestCache_SetOverwrite 测试重复写入刷新值
func TestCache_SetOverwrite(t *testing.T) {
	c, _ := newViewCache(10, time.Minute)

	c.Set("deluxe-burger", 1)
	c.Set("deluxe-burger", 5)

	value, found := c.Get("deluxe-burger")
	require.True(t, found)
	assert.Equal(t, 5, value)
	assert.Equal(t, 1, c.Size())
}

// TestCache_TTLExpiry 测试过期条目在读取时被移除
func TestCache_TTLExpiry(t *testing.T) {
	c, clock := newViewCache(10, time.Minute)

	c.Set("cart-1", 2)

	clock.Advance(59 * time.Second)
	_, found := c.Get("cart-1")
	assert.True(t, found, "TTL 内应命中")

	clock.Advance(2 * time.Minute)
	_, found = c.Get("cart-1")
	assert.False(t, found, "过期后应未命中")
	assert.Equal(t, 0, c.Size())

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Expires)
}

// TestCache_SetRefreshesTTL 测试重复写入重置过期时间
func TestCache_SetRefreshesTTL(t *testing.T) {
	c, clock := newViewCache(10, time.Minute)

	c.Set("cart-1", 1)
	clock.Advance(45 * time.Second)
	c.Set("cart-1", 2)
	clock.Advance(45 * time.Second)

	value, found := c.Get("cart-1")
	require.True(t, found)
	assert.Equal(t, 2, value)
}

// TestCache_LRUEviction 测试容量满后淘汰最久未访问条目
func TestCache_LRUEviction(t *testing.T) {
	c, _ := newViewCache(3, time.Minute)

	c.Set("cart-1", 1)
	c.Set("cart-2", 2)
	c.Set("cart-3", 3)

	// 访问 cart-1，使 cart-2 成为最久未访问
	_, found := c.Get("cart-1")
	require.True(t, found)

	c.Set("cart-4", 4)

	_, found = c.Get("cart-2")
	assert.False(t, found, "cart-2 应被淘汰")
	_, found = c.Get("cart-1")
	assert.True(t, found)
	_, found = c.Get("cart-4")
	assert.True(t, found)

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Evictions)
	assert.Equal(t, 3, stats.Size)
}

// TestCache_Delete 测试删除
func TestCache_Delete(t *testing.T) {
	c, _ := newViewCache(10, time.Minute)

	c.Set("cart-1", 1)

	assert.True(t, c.Delete("cart-1"))
	assert.False(t, c.Delete("cart-1"), "重复删除应返回 false")

	_, found := c.Get("cart-1")
	assert.False(t, found)
}

// TestCache_Clear 测试清空
func TestCache_Clear(t *testing.T) {
	c, _ := newViewCache(10, time.Minute)

	for i := 0; i < 5; i++ {
		c.Set(fmt.Sprintf("cart-%d", i), i)
	}
	require.Equal(t, 5, c.Size())

	c.Clear()

	assert.Equal(t, 0, c.Size())
	_, found := c.Get("cart-0")
	assert.False(t, found)
}

// TestCache_OnEvict 测试淘汰回调
func TestCache_OnEvict(t *testing.T) {
	var evicted []string
	clock := newFakeClock()
	c := New[string, int](Config{
		Name:    "cart_view",
		MaxSize: 2,
		TTL:     time.Minute,
		OnEvict: func(key, value any) {
			evicted = append(evicted, key.(string))
		},
	})
	c.now = clock.Now

	c.Set("cart-1", 1)
	c.Set("cart-2", 2)
	c.Set("cart-3", 3) // 淘汰 cart-1

	c.Delete("cart-2")

	clock.Advance(2 * time.Minute)
	c.Get("cart-3") // 过期移除

	assert.Equal(t, []string{"cart-1", "cart-2", "cart-3"}, evicted)
}

// TestCache_Stats 测试统计计数
func TestCache_Stats(t *testing.T) {
	c, _ := newViewCache(10, time.Minute)

	c.Set("cart-1", 1)

	c.Get("cart-1")
	c.Get("cart-1")
	c.Get("missing")

	stats := c.Stats()
	assert.Equal(t, uint64(2), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, 1, stats.Size)
}

// TestCache_Defaults 测试零值配置的兜底
func TestCache_Defaults(t *testing.T) {
	c := New[string, string](Config{Name: "defaults"})

	assert.Equal(t, 1024, c.config.MaxSize)
	assert.Equal(t, 5*time.Minute, c.config.TTL)
}

// TestCache_ConcurrentAccess 测试并发读写安全
func TestCache_ConcurrentAccess(t *testing.T) {
	c, _ := newViewCache(100, time.Minute)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("cart-%d", i%50)
				c.Set(key, g*1000+i)
				c.Get(key)
				if i%10 == 0 {
					c.Delete(key)
				}
			}
		}(g)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Size(), 50)
}
