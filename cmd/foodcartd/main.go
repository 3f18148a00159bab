// foodcartd 启动食品购物车服务：命令端（事件溯源聚合）+ 查询端（视图投影）+ HTTP 接口。
//
// 全部基础设施通过环境变量选择，默认配置零依赖（内存传输 + 内存存储），
// 生产部署可切换 NATS JetStream、SQLite 事件存储与 Redis 视图存储。
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/redis/go-redis/v9"
	_ "modernc.org/sqlite"

	"foodcart/api"
	appeventsourced "foodcart/app/eventsourced"
	"foodcart/cart"
	"foodcart/cart/view"
	deventsourced "foodcart/domain/eventsourced"
	"foodcart/eventing/bus"
	"foodcart/eventing/projection"
	"foodcart/eventing/store"
	sqlstore "foodcart/eventing/store/sql"
	httpx "foodcart/http"
	"foodcart/http/basic"
	"foodcart/logging"
	"foodcart/messaging"
	"foodcart/messaging/middleware"
	memorytransport "foodcart/messaging/transport/memory"
	natstransport "foodcart/messaging/transport/natsjetstream"
	synctransport "foodcart/messaging/transport/sync"
)

func main() {
	logger := logging.ComponentLogger("foodcartd")
	cfg, err := loadConfig()
	if err != nil {
		logger.Error(context.Background(), "invalid configuration", logging.Error(err))
		os.Exit(1)
	}
	if err := run(context.Background(), cfg, logger); err != nil {
		logger.Error(context.Background(), "service exited with error", logging.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *Config, logger logging.Logger) error {
	cart.RegisterGlobalEventTypes()

	transport, err := buildTransport(cfg)
	if err != nil {
		return err
	}
	messageBus := messaging.NewMessageBus(transport)
	messageBus.Use(middleware.NewTracingMiddleware())
	eventBus := bus.NewEventBus(messageBus)

	var db *sql.DB
	if cfg.EventStore == storeSQLite || cfg.ViewStore == storeSQLite {
		db, err = openSQLite(cfg.SQLitePath)
		if err != nil {
			return err
		}
		defer db.Close()
	}

	eventStore, err := buildEventStore(ctx, cfg, db)
	if err != nil {
		return err
	}

	adapter, err := appeventsourced.NewDomainEventStore(appeventsourced.DomainEventStoreOptions{
		AggregateType: cart.AggregateType,
		EventStore:    eventStore,
		EventBus:      eventBus,
		PublishEvents: true,
	})
	if err != nil {
		return err
	}
	repo, err := deventsourced.NewEventSourcedRepository[*cart.FoodCart](cart.AggregateType, cart.NewFoodCart, adapter)
	if err != nil {
		return err
	}
	cartService, err := cart.NewFoodCartService(repo, &cart.FoodCartServiceOptions{
		Logger: logging.ComponentLogger("cart.service"),
	})
	if err != nil {
		return err
	}

	viewStore, closeViews, err := buildViewStore(ctx, cfg, db)
	if err != nil {
		return err
	}
	defer closeViews()
	if cfg.ViewCacheEnabled {
		viewStore, err = view.NewCachedViewStore(viewStore, view.CachedViewStoreConfig{
			MaxSize: cfg.ViewCacheSize,
			TTL:     cfg.ViewCacheTTL,
		})
		if err != nil {
			return err
		}
	}

	proj, err := view.NewFoodCartProjection(viewStore, nil)
	if err != nil {
		return err
	}
	projectionManager := projection.NewProjectionManager(eventStore, eventBus)
	if cfg.EventStore == storeSQLite {
		checkpoints := projection.NewSQLCheckpointStore(db, cfg.CheckpointTable)
		if err := checkpoints.Init(ctx); err != nil {
			return fmt.Errorf("init checkpoint schema: %w", err)
		}
		projectionManager.WithCheckpointStore(checkpoints)
	}
	registrar := deventsourced.NewProjectionRegistrar(projectionManager)
	if err := registrar.Register(proj); err != nil {
		return err
	}
	notifier, err := cart.NewOrderConfirmedNotifier(logging.ComponentLogger("cart.notifier"))
	if err != nil {
		return err
	}
	if err := eventBus.SubscribeHandler(ctx, notifier); err != nil {
		return fmt.Errorf("subscribe order confirmed notifier: %w", err)
	}
	// 落后于检查点的事件先补放，再进入实时订阅；
	// 无检查点存储时直接启动
	if cfg.EventStore == storeSQLite {
		if err := projectionManager.ResumeFromCheckpoint(ctx, view.ProjectionName); err != nil {
			return fmt.Errorf("resume projection from checkpoint: %w", err)
		}
	} else if err := projectionManager.StartProjection(view.ProjectionName); err != nil {
		return err
	}

	controller, err := api.NewFoodCartController(cartService, viewStore, logging.ComponentLogger("api.foodcart"))
	if err != nil {
		return err
	}
	httpServer := basic.NewHTTPServer(&httpx.WebConfig{
		Host:         cfg.HTTPHost,
		Port:         cfg.HTTPPort,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	})
	httpServer.Use(basic.CorrelationMiddleware())
	controller.RegisterRoutes(httpServer)
	httpServer.GET("/internal/stats", statsHandler(transport, projectionManager))

	logger.Info(ctx, "foodcart service configured",
		logging.String("transport", cfg.Transport),
		logging.String("event_store", cfg.EventStore),
		logging.String("view_store", cfg.ViewStore),
		logging.String("http_addr", cfg.httpAddr()))

	serverManager := basic.NewManager().
		WithLogger(logger).
		WithShutdownTimeout(cfg.ShutdownTimeout).
		WithServers(
			&transportServer{transport: transport, kind: cfg.Transport},
			&httpRunner{server: httpServer, addr: cfg.httpAddr()},
		)

	return serverManager.Run(ctx)
}

func buildTransport(cfg *Config) (messaging.Transport, error) {
	switch cfg.Transport {
	case transportMemory:
		return memorytransport.NewMemoryTransport(cfg.QueueSize, cfg.WorkerCount), nil
	case transportSync:
		return synctransport.NewSyncTransport(), nil
	case transportNATS:
		return natstransport.NewTransport(natstransport.Config{
			URL:     cfg.NATSURL,
			Stream:  cfg.NATSStream,
			AckWait: cfg.NATSAckWait,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported transport %q", cfg.Transport)
	}
}

func buildEventStore(ctx context.Context, cfg *Config, db *sql.DB) (store.IEventStore, error) {
	switch cfg.EventStore {
	case storeMemory:
		return store.NewMemoryEventStore(), nil
	case storeSQLite:
		es := sqlstore.NewSQLEventStore(db, cfg.EventTable)
		if err := es.Init(ctx); err != nil {
			return nil, fmt.Errorf("init event store schema: %w", err)
		}
		return es, nil
	default:
		return nil, fmt.Errorf("unsupported event store %q", cfg.EventStore)
	}
}

func buildViewStore(ctx context.Context, cfg *Config, db *sql.DB) (view.IViewStore, func(), error) {
	noop := func() {}
	switch cfg.ViewStore {
	case storeMemory:
		return view.NewMemoryViewStore(), noop, nil
	case storeSQLite:
		vs, err := view.NewSQLViewStore(db, cfg.ViewTable)
		if err != nil {
			return nil, noop, err
		}
		if err := vs.Init(ctx); err != nil {
			return nil, noop, fmt.Errorf("init view store schema: %w", err)
		}
		return vs, noop, nil
	case storeRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, noop, fmt.Errorf("connect redis %s: %w", cfg.RedisAddr, err)
		}
		vs, err := view.NewRedisViewStore(client, "")
		if err != nil {
			_ = client.Close()
			return nil, noop, err
		}
		return vs, func() { _ = client.Close() }, nil
	default:
		return nil, noop, fmt.Errorf("unsupported view store %q", cfg.ViewStore)
	}
}

// SQLite 单连接即可，也顺带规避并发写锁
func openSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// statsHandler 暴露传输层与投影的运行统计，供运维排查使用
func statsHandler(transport messaging.Transport, manager *projection.ProjectionManager) httpx.HttpHandler {
	utils := &basic.HttpUtils{}
	return func(ctx httpx.IHttpContext) error {
		return utils.WriteSuccessResponse(ctx, map[string]any{
			"transport":   transport.Stats(),
			"projections": manager.GetAllProjectionStatuses(),
		})
	}
}

// transportServer 将消息传输适配为可被 Manager 管理的 Server
type transportServer struct {
	transport messaging.Transport
	kind      string
}

func (s *transportServer) Start(ctx context.Context) error { return s.transport.Start(ctx) }
func (s *transportServer) Close() error                    { return s.transport.Close() }
func (s *transportServer) Name() string                    { return "transport-" + s.kind }

// httpRunner 将阻塞式 HTTP 服务适配为可被 Manager 管理的 Server
type httpRunner struct {
	server *basic.HttpServer
	addr   string
}

func (r *httpRunner) Start(ctx context.Context) error {
	err := r.server.Start(r.addr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (r *httpRunner) Close() error {
	return r.server.Stop(context.Background())
}

func (r *httpRunner) Name() string { return "http-" + r.addr }
