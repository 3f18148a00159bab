package main

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// 可选实现的取值
const (
	transportMemory = "memory"
	transportSync   = "sync"
	transportNATS   = "nats"

	storeMemory = "memory"
	storeSQLite = "sqlite"
	storeRedis  = "redis"
)

// Config 服务进程配置，全部来自环境变量
type Config struct {
	HTTPHost string `env:"FOODCART_HTTP_HOST" envDefault:"0.0.0.0"`
	HTTPPort int    `env:"FOODCART_HTTP_PORT" envDefault:"8080"`

	ReadTimeout     time.Duration `env:"FOODCART_HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"FOODCART_HTTP_WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout     time.Duration `env:"FOODCART_HTTP_IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"FOODCART_SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// 消息传输：memory（进程内异步）、sync（进程内同步）、nats（JetStream）
	Transport   string        `env:"FOODCART_TRANSPORT" envDefault:"memory"`
	QueueSize   int           `env:"FOODCART_QUEUE_SIZE" envDefault:"1024"`
	WorkerCount int           `env:"FOODCART_WORKER_COUNT" envDefault:"4"`
	NATSURL     string        `env:"FOODCART_NATS_URL" envDefault:"nats://127.0.0.1:4222"`
	NATSStream  string        `env:"FOODCART_NATS_STREAM" envDefault:"FOODCART"`
	NATSAckWait time.Duration `env:"FOODCART_NATS_ACK_WAIT" envDefault:"30s"`

	// 事件存储：memory、sqlite
	EventStore      string `env:"FOODCART_EVENT_STORE" envDefault:"memory"`
	SQLitePath      string `env:"FOODCART_SQLITE_PATH" envDefault:"foodcart.db"`
	EventTable      string `env:"FOODCART_EVENT_TABLE" envDefault:"event_store"`
	CheckpointTable string `env:"FOODCART_CHECKPOINT_TABLE" envDefault:"projection_checkpoints"`

	// 视图存储：memory、sqlite、redis
	ViewStore     string `env:"FOODCART_VIEW_STORE" envDefault:"memory"`
	ViewTable     string `env:"FOODCART_VIEW_TABLE" envDefault:"food_cart_views"`
	RedisAddr     string `env:"FOODCART_REDIS_ADDR" envDefault:"127.0.0.1:6379"`
	RedisPassword string `env:"FOODCART_REDIS_PASSWORD"`
	RedisDB       int    `env:"FOODCART_REDIS_DB" envDefault:"0"`

	// 视图读缓存（对 sqlite/redis 后端有意义；memory 后端本身就在进程内）
	ViewCacheEnabled bool          `env:"FOODCART_VIEW_CACHE" envDefault:"false"`
	ViewCacheSize    int           `env:"FOODCART_VIEW_CACHE_SIZE" envDefault:"1024"`
	ViewCacheTTL     time.Duration `env:"FOODCART_VIEW_CACHE_TTL" envDefault:"30s"`
}

func loadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	switch cfg.Transport {
	case transportMemory, transportSync, transportNATS:
	default:
		return nil, fmt.Errorf("unsupported transport %q", cfg.Transport)
	}
	switch cfg.EventStore {
	case storeMemory, storeSQLite:
	default:
		return nil, fmt.Errorf("unsupported event store %q", cfg.EventStore)
	}
	switch cfg.ViewStore {
	case storeMemory, storeSQLite, storeRedis:
	default:
		return nil, fmt.Errorf("unsupported view store %q", cfg.ViewStore)
	}
	return cfg, nil
}

func (c *Config) httpAddr() string {
	return fmt.Sprintf("%s:%d", c.HTTPHost, c.HTTPPort)
}
