// Package danqing 是一个实时消息网关框架。
//
// 它在 Gin 之上提供一条 WebSocket 长连接通道: 浏览器端所有实时请求
// 复用同一条连接, 按事件名路由到注册的处理器; 同步请求内联执行并立即
// 回包, 异步请求进入后台任务队列, 完成后以相同请求 id 推送结果。
// 业务功能以 Module 为单位挂载, 每个 Module 向事件路由表注册自己的
// 处理器集合。
package danqing

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tokmz/danqing/pkg/logger"
	"github.com/tokmz/danqing/pkg/state"
	"github.com/tokmz/danqing/pkg/tracing"
	"github.com/tokmz/danqing/pkg/ws"
)

// Module 业务功能模块。
// Register 在服务启动前调用, 向路由表注册本模块的事件处理器。
type Module interface {
	// Name 模块名, 用于日志与重复挂载检查
	Name() string

	// Register 注册事件处理器
	Register(r *ws.Router) error
}

// Server 网关服务器
type Server struct {
	config  *Config
	engine  *gin.Engine
	server  *http.Server
	manager *ws.Manager
	store   state.Store
	log     logger.Logger
	metrics *ws.AtomicMetrics
	modules map[string]Module
}

// New 创建网关服务器, 选项覆盖默认配置
func New(opts ...Option) (*Server, error) {
	config := defaultConfig()
	for _, opt := range opts {
		opt(config)
	}

	// 日志器: 未注入时按模式选择
	log := config.Logger
	if log == nil {
		var err error
		if config.Mode == gin.ReleaseMode {
			log, err = logger.NewProduction()
		} else {
			log, err = logger.NewDevelopment()
		}
		if err != nil {
			return nil, err
		}
	}

	// 状态存储: 默认内存驱动
	store := config.Store
	if store == nil {
		var err error
		store, err = state.New(config.State)
		if err != nil {
			return nil, err
		}
	}

	// 链路追踪: 初始化全局 TracerProvider, 存储操作套上追踪装饰器
	if config.Tracing != nil {
		if _, err := tracing.NewTracerProvider(config.Tracing); err != nil {
			return nil, err
		}
		store = state.NewTracing(store)
	}

	metrics := ws.NewAtomicMetrics()
	wsOpts := append([]ws.Option{
		ws.WithLogger(ws.NewZapLogger(zapFrom(log))),
		ws.WithMetrics(metrics),
	}, config.WS...)
	manager, err := ws.NewManager(wsOpts...)
	if err != nil {
		return nil, err
	}

	gin.SetMode(config.Mode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	if config.Tracing != nil {
		engine.Use(tracing.Middleware(tracing.WithFilter(func(c *gin.Context) bool {
			return c.Request.URL.Path != "/healthz"
		})))
	}
	if config.TrustedProxies != nil {
		if err := engine.SetTrustedProxies(config.TrustedProxies); err != nil {
			log.Warn("设置信任代理失败", zap.Error(err))
		}
	}

	s := &Server{
		config:  config,
		engine:  engine,
		manager: manager,
		store:   store,
		log:     log,
		metrics: metrics,
		modules: make(map[string]Module),
	}
	s.bindPresence()
	s.registerRoutes()
	return s, nil
}

// Manager 返回底层 WebSocket 网关
func (s *Server) Manager() *ws.Manager {
	return s.manager
}

// Router 返回事件路由表
func (s *Server) Router() *ws.Router {
	return s.manager.Router()
}

// Engine 返回底层 Gin 实例, 用于挂载额外的 HTTP 路由
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Store 返回状态存储
func (s *Server) Store() state.Store {
	return s.store
}

// Metrics 返回网关指标收集器
func (s *Server) Metrics() *ws.AtomicMetrics {
	return s.metrics
}

// Use 注册全局 HTTP 中间件
func (s *Server) Use(middlewares ...gin.HandlerFunc) {
	s.engine.Use(middlewares...)
}

// Mount 挂载业务模块并注册其事件处理器, 模块名不可重复
func (s *Server) Mount(mods ...Module) error {
	for _, mod := range mods {
		if _, ok := s.modules[mod.Name()]; ok {
			return fmt.Errorf("danqing: module %q already mounted", mod.Name())
		}
		if err := mod.Register(s.manager.Router()); err != nil {
			return err
		}
		s.modules[mod.Name()] = mod
		s.log.Info("模块已挂载", zap.String("module", mod.Name()))
	}
	return nil
}

// registerRoutes 注册网关内置路由
func (s *Server) registerRoutes() {
	s.engine.GET(s.config.WSPath, func(c *gin.Context) {
		// 升级失败时 HandleUpgrade 已写响应
		_ = s.manager.HandleUpgrade(c.Writer, c.Request)
	})
	s.engine.GET("/healthz", func(c *gin.Context) {
		if err := s.store.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":           "ok",
			"online":           s.manager.Online(),
			"connections":      s.metrics.Connections(),
			"messages":         s.metrics.Messages(),
			"invalid_messages": s.metrics.InvalidMessages(),
			"unknown_events":   s.metrics.UnknownEvents(),
			"dropped_messages": s.metrics.DroppedMessages(),
		})
	})
}

// bindPresence 将连接生命周期同步到状态存储
func (s *Server) bindPresence() {
	bus := s.manager.Events()
	bus.Subscribe(ws.EventClientConnected, func(e ws.Event) {
		if e.User == "" {
			return
		}
		if err := s.store.Online(context.Background(), e.User, e.ConnID); err != nil {
			s.log.Warn("在线状态写入失败", zap.String("user", e.User), zap.Error(err))
		}
	})
	offline := func(e ws.Event) {
		if e.User == "" {
			return
		}
		if err := s.store.Offline(context.Background(), e.User, e.ConnID); err != nil {
			s.log.Warn("在线状态清理失败", zap.String("user", e.User), zap.Error(err))
		}
	}
	bus.Subscribe(ws.EventClientDisconnected, offline)
	bus.Subscribe(ws.EventClientLogout, offline)
}

// Run 启动服务器并阻塞直到收到退出信号, 随后优雅关机
func (s *Server) Run(addr ...string) error {
	address := s.config.Addr
	if len(addr) > 0 && addr[0] != "" {
		address = addr[0]
	}

	s.manager.Run()

	s.server = &http.Server{
		Addr:           address,
		Handler:        s.engine,
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		IdleTimeout:    s.config.IdleTimeout,
		MaxHeaderBytes: s.config.MaxHeaderBytes,
	}

	if s.config.Banner {
		printBanner(address, s.manager.Router().Events())
	}

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errChan:
		return err
	case <-quit:
		s.log.Info("收到退出信号, 正在关闭服务器")
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	return s.Shutdown(ctx)
}

// Shutdown 优雅关机: 停止接受新请求, 排空任务队列, 关闭所有连接与存储
func (s *Server) Shutdown(ctx context.Context) error {
	if s.config.BeforeShutdown != nil {
		s.config.BeforeShutdown()
	}

	g, ctx := errgroup.WithContext(ctx)
	if s.server != nil {
		g.Go(func() error {
			return s.server.Shutdown(ctx)
		})
	}
	g.Go(func() error {
		return s.manager.Shutdown(ctx)
	})
	err := g.Wait()

	if cerr := s.store.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if s.config.Tracing != nil {
		if terr := tracing.Shutdown(ctx); terr != nil && err == nil {
			err = terr
		}
	}

	if s.config.AfterShutdown != nil {
		s.config.AfterShutdown()
	}
	s.log.Info("服务器已退出")
	return err
}

// zapFrom 取出 logger 底层的 zap 实例, 供子系统适配
func zapFrom(log logger.Logger) *zap.Logger {
	type zapper interface{ Zap() *zap.Logger }
	if z, ok := log.(zapper); ok {
		return z.Zap()
	}
	l, _ := zap.NewProduction()
	return l
}
