package container

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/phoe8lin/hugeorders/infrastructure/logger"
)

// Lifecycle 生命周期接口
type Lifecycle interface {
	Name() string
	Start(ctx context.Context) error
	Stop() error
	Health() error
}

// LifecycleManager 生命周期管理器
type LifecycleManager struct {
	components []Lifecycle
	mu         sync.RWMutex
}

// NewLifecycleManager 创建新的生命周期管理器
func NewLifecycleManager() *LifecycleManager {
	return &LifecycleManager{
		components: make([]Lifecycle, 0),
	}
}

// Register 注册组件
func (m *LifecycleManager) Register(component Lifecycle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.components = append(m.components, component)
}

// StartAll 按顺序启动所有组件
func (m *LifecycleManager) StartAll(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i, component := range m.components {
		if err := component.Start(ctx); err != nil {
			// 启动失败，回滚已启动的组件
			for j := i - 1; j >= 0; j-- {
				_ = m.components[j].Stop()
			}
			return fmt.Errorf("start %s failed: %w", component.Name(), err)
		}
	}
	return nil
}

// StopAll 逆序停止所有组件，汇总全部错误
func (m *LifecycleManager) StopAll() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var errs error
	for i := len(m.components) - 1; i >= 0; i-- {
		errs = multierr.Append(errs, m.components[i].Stop())
	}
	return errs
}

// CheckHealth 检查所有组件健康状态
func (m *LifecycleManager) CheckHealth() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var errs error
	for _, component := range m.components {
		if err := component.Health(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s unhealthy: %w", component.Name(), err))
		}
	}
	return errs
}

// httpServerComponent HTTP服务器组件
type httpServerComponent struct {
	name    string
	handler http.Handler
	addr    string
	logger  *logger.Logger

	mu      sync.Mutex
	server  *http.Server
	started bool
	failed  error
}

func (h *httpServerComponent) Name() string { return h.name }

func (h *httpServerComponent) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.started {
		return nil
	}

	srv := &http.Server{
		Addr:              h.addr,
		Handler:           h.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	h.server = srv
	h.failed = nil

	// 在后台启动服务器
	go func() {
		h.logger.Info("http server listening", zap.String("component", h.name), zap.String("addr", h.addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.logger.LogError(err, map[string]interface{}{
				"component": h.name,
				"action":    "listen",
			})
			h.mu.Lock()
			h.failed = err
			h.mu.Unlock()
		}
	}()

	h.started = true
	return nil
}

func (h *httpServerComponent) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.started || h.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	h.started = false
	if err := h.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("%s shutdown failed: %w", h.name, err)
	}

	h.logger.Info("http server stopped", zap.String("component", h.name))
	return nil
}

func (h *httpServerComponent) Health() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.failed != nil {
		return h.failed
	}
	if !h.started {
		return fmt.Errorf("%s not started", h.name)
	}
	return nil
}

// taskComponent 后台循环组件：Start 派生可取消的 ctx 运行 run，Stop 取消并等待退出。
type taskComponent struct {
	name   string
	run    func(ctx context.Context) error
	logger *logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

func (t *taskComponent) Name() string { return t.name }

func (t *taskComponent) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancel != nil {
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	t.cancel, t.done, t.err = cancel, done, nil

	go func() {
		defer close(done)
		err := t.run(runCtx)
		if err != nil && !errors.Is(err, context.Canceled) {
			t.logger.LogError(err, map[string]interface{}{"component": t.name, "action": "run"})
		}
		t.mu.Lock()
		t.err = err
		t.mu.Unlock()
	}()
	return nil
}

func (t *taskComponent) Stop() error {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.cancel = nil
	t.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		return fmt.Errorf("%s did not stop within 10s", t.name)
	}
	t.logger.Info("component stopped", zap.String("component", t.name))
	return nil
}

func (t *taskComponent) Health() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancel == nil {
		return fmt.Errorf("%s not started", t.name)
	}
	select {
	case <-t.done:
		if t.err != nil {
			return fmt.Errorf("%s exited: %w", t.name, t.err)
		}
		return fmt.Errorf("%s exited", t.name)
	default:
		return nil
	}
}
