package basic

import (
	"context"
	"errors"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"foodcart/logging"
)

// Server 可被 Manager 托管的服务生命周期接口
type Server interface {
	// Start 阻塞运行直到出错或被关闭
	Start(ctx context.Context) error
	Close() error
	Name() string
}

// Manager 统一托管多个 Server：并发启动、信号监听、反序优雅关闭
type Manager struct {
	logger          logging.Logger
	servers         []Server
	shutdownTimeout time.Duration
}

// NewManager 创建服务管理器
func NewManager() *Manager {
	return &Manager{
		logger:          logging.GetLogger(),
		shutdownTimeout: 10 * time.Second,
	}
}

// WithLogger 设置日志实现（同时作为全局默认）
func (m *Manager) WithLogger(l logging.Logger) *Manager {
	if l != nil {
		m.logger = l
		logging.SetLogger(l)
	}
	return m
}

// WithServers 批量托管 Server
func (m *Manager) WithServers(svcs ...Server) *Manager {
	m.servers = append(m.servers, svcs...)
	return m
}

// WithShutdownTimeout 配置优雅退出超时
func (m *Manager) WithShutdownTimeout(d time.Duration) *Manager {
	if d > 0 {
		m.shutdownTimeout = d
	}
	return m
}

// Run 启动全部 Server，收到 SIGINT/SIGTERM 或任一 Server 出错时整体退出
func (m *Manager) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	m.logger.Info(ctx, "starting manager", logging.Int("servers", len(m.servers)))

	var wg sync.WaitGroup
	errCh := make(chan error, len(m.servers))

	startAt := time.Now()
	for _, s := range m.servers {
		srv := s
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.logger.Info(ctx, "server starting", logging.String("name", srv.Name()))
			if err := srv.Start(ctx); err != nil {
				m.logger.Error(ctx, "server start error", logging.String("name", srv.Name()), logging.Error(err))
				errCh <- err
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		m.logger.Info(context.Background(), "shutdown signal received")
	case err := <-errCh:
		runErr = err
		cancel()
	}

	// 后启动的先关闭
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), m.shutdownTimeout)
	defer cancelShutdown()

	var closeErrors []error
	for i := len(m.servers) - 1; i >= 0; i-- {
		s := m.servers[i]
		t0 := time.Now()
		if err := s.Close(); err != nil {
			m.logger.Warn(shutdownCtx, "server close error", logging.String("name", s.Name()), logging.Error(err))
			closeErrors = append(closeErrors, err)
		} else {
			m.logger.Info(shutdownCtx, "server closed", logging.String("name", s.Name()), logging.Int64("ms", time.Since(t0).Milliseconds()))
		}
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()

	select {
	case <-done:
		m.logger.Info(shutdownCtx, "manager stopped", logging.Int64("ms", time.Since(startAt).Milliseconds()))
	case <-shutdownCtx.Done():
		m.logger.Warn(shutdownCtx, "manager shutdown timeout", logging.Int64("timeout_ms", m.shutdownTimeout.Milliseconds()))
	}

	if len(closeErrors) > 0 {
		runErr = errors.Join(append([]error{runErr}, closeErrors...)...)
	}
	return runErr
}
