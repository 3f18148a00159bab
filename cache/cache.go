package cache

import (
	"container/list"
	"sync"
	"time"
)

// Config 缓存配置
type Config struct {
	// Name 缓存名称，用于日志和统计
	Name string

	// MaxSize 最大条目数，超出后按 LRU 淘汰
	MaxSize int

	// TTL 条目存活时间，写入后超过该时长视为过期
	TTL time.Duration

	// OnEvict 条目被淘汰或过期移除时的回调
	OnEvict func(key, value any)
}

// CacheStats 缓存统计
type CacheStats struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
	Expires   uint64 `json:"expires"`
	Size      int    `json:"size"`
}

// Cache 带 TTL 的 LRU 缓存
//
// 过期检查在读取时惰性进行，不启动后台清理协程。
// 所有方法并发安全。
type Cache[K comparable, V any] struct {
	mu      sync.Mutex
	config  Config
	entries map[K]*list.Element
	lru     *list.List
	stats   CacheStats

	// now 注入时钟，测试用
	now func() time.Time
}

type entry[K comparable, V any] struct {
	key       K
	value     V
	writtenAt time.Time
}

// New 创建缓存
func New[K comparable, V any](config Config) *Cache[K, V] {
	if config.MaxSize <= 0 {
		config.MaxSize = 1024
	}
	if config.TTL <= 0 {
		config.TTL = 5 * time.Minute
	}
	return &Cache[K, V]{
		config:  config,
		entries: make(map[K]*list.Element),
		lru:     list.New(),
		now:     time.Now,
	}
}

// Get 读取缓存值
//
// 命中会刷新 LRU 位置，过期条目在此处被移除并计入 Expires。
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		c.stats.Misses++
		var zero V
		return zero, false
	}

	ent := elem.Value.(*entry[K, V])
	if c.now().Sub(ent.writtenAt) > c.config.TTL {
		c.remove(elem, ent)
		c.stats.Expires++
		c.stats.Misses++
		var zero V
		return zero, false
	}

	c.lru.MoveToFront(elem)
	c.stats.Hits++
	return ent.value, true
}

// Set 写入缓存值
//
// 重复写入同一键会刷新值和 TTL；容量满时淘汰最久未访问的条目。
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		ent := elem.Value.(*entry[K, V])
		ent.value = value
		ent.writtenAt = c.now()
		c.lru.MoveToFront(elem)
		return
	}

	if c.lru.Len() >= c.config.MaxSize {
		oldest := c.lru.Back()
		if oldest != nil {
			c.remove(oldest, oldest.Value.(*entry[K, V]))
			c.stats.Evictions++
		}
	}

	elem := c.lru.PushFront(&entry[K, V]{
		key:       key,
		value:     value,
		writtenAt: c.now(),
	})
	c.entries[key] = elem
}

// Delete 删除指定键，返回是否存在
func (c *Cache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return false
	}
	c.remove(elem, elem.Value.(*entry[K, V]))
	return true
}

// Clear 清空全部条目，统计计数保留
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.config.OnEvict != nil {
		for elem := c.lru.Front(); elem != nil; elem = elem.Next() {
			ent := elem.Value.(*entry[K, V])
			c.config.OnEvict(ent.key, ent.value)
		}
	}
	c.entries = make(map[K]*list.Element)
	c.lru.Init()
}

// Size 返回当前条目数，包含尚未被惰性移除的过期条目
func (c *Cache[K, V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Stats 返回统计快照
func (c *Cache[K, V]) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.Size = c.lru.Len()
	return stats
}

// remove 从索引和 LRU 链表中移除条目，调用方需持锁
func (c *Cache[K, V]) remove(elem *list.Element, ent *entry[K, V]) {
	delete(c.entries, ent.key)
	c.lru.Remove(elem)
	if c.config.OnEvict != nil {
		c.config.OnEvict(ent.key, ent.value)
	}
}
