package danqing

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tokmz/danqing/pkg/config"
	"github.com/tokmz/danqing/pkg/logger"
	"github.com/tokmz/danqing/pkg/state"
	"github.com/tokmz/danqing/pkg/tracing"
	"github.com/tokmz/danqing/pkg/ws"
)

// Config 服务器配置
type Config struct {
	// Mode 运行模式：debug, release, test
	Mode string

	// Addr 监听地址，默认 ":7860"
	Addr string

	// WSPath WebSocket 升级路径，默认 "/ws"
	WSPath string

	// ReadTimeout 读取超时
	ReadTimeout time.Duration

	// WriteTimeout 写入超时。
	// 0 表示不限制: WebSocket 长连接在全局写超时下会被中途切断
	WriteTimeout time.Duration

	// IdleTimeout 空闲超时
	IdleTimeout time.Duration

	// MaxHeaderBytes 最大请求头字节数
	MaxHeaderBytes int

	// ShutdownTimeout 优雅关机超时，默认 30 秒
	ShutdownTimeout time.Duration

	// BeforeShutdown 关机前回调
	BeforeShutdown func()

	// AfterShutdown 关机后回调
	AfterShutdown func()

	// TrustedProxies 信任的代理 IP
	TrustedProxies []string

	// Banner 是否打印启动 banner
	Banner bool

	// WS 传递给底层网关的选项
	WS []ws.Option

	// Tracing 链路追踪配置, nil 表示关闭。
	// 开启后在 HTTP 层安装追踪中间件, 并为状态存储套上追踪装饰器
	Tracing *tracing.Config

	// State 状态存储配置, Store 非空时忽略
	State *state.Config

	// Store 注入已构建的状态存储
	Store state.Store

	// Logger 注入已构建的日志器
	Logger logger.Logger
}

// Option 配置选项函数
type Option func(*Config)

// defaultConfig 返回默认配置
func defaultConfig() *Config {
	return &Config{
		Mode:            gin.DebugMode,
		Addr:            ":7860",
		WSPath:          "/ws",
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    0,
		IdleTimeout:     120 * time.Second,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: 30 * time.Second,
		Banner:          true,
		State:           state.DefaultConfig(),
	}
}

// WithMode 设置运行模式
func WithMode(mode string) Option {
	return func(c *Config) { c.Mode = mode }
}

// WithAddr 设置监听地址
func WithAddr(addr string) Option {
	return func(c *Config) { c.Addr = addr }
}

// WithWSPath 设置 WebSocket 升级路径
func WithWSPath(path string) Option {
	return func(c *Config) { c.WSPath = path }
}

// WithShutdownTimeout 设置优雅关机超时
func WithShutdownTimeout(d time.Duration) Option {
	return func(c *Config) { c.ShutdownTimeout = d }
}

// WithShutdownHooks 设置关机前后回调
func WithShutdownHooks(before, after func()) Option {
	return func(c *Config) {
		c.BeforeShutdown = before
		c.AfterShutdown = after
	}
}

// WithTrustedProxies 设置信任的代理 IP
func WithTrustedProxies(proxies []string) Option {
	return func(c *Config) { c.TrustedProxies = proxies }
}

// WithBanner 设置是否打印启动 banner
func WithBanner(enable bool) Option {
	return func(c *Config) { c.Banner = enable }
}

// WithWS 追加底层网关选项
func WithWS(opts ...ws.Option) Option {
	return func(c *Config) { c.WS = append(c.WS, opts...) }
}

// WithTracing 开启链路追踪
func WithTracing(cfg *tracing.Config) Option {
	return func(c *Config) { c.Tracing = cfg }
}

// WithState 设置状态存储配置
func WithState(cfg *state.Config) Option {
	return func(c *Config) { c.State = cfg }
}

// WithStore 注入已构建的状态存储
func WithStore(store state.Store) Option {
	return func(c *Config) { c.Store = store }
}

// WithLogger 注入已构建的日志器
func WithLogger(log logger.Logger) Option {
	return func(c *Config) { c.Logger = log }
}

// FromFile 从配置文件加载选项, 文件中的键覆盖默认值。
// 支持 yaml/json/toml; 追加的 opts 透传给底层 pkg/config,
// 例如 config.WithAutoWatch(true) 可开启文件变更监控。
func FromFile(path string, opts ...config.Option) (Option, error) {
	cfg := config.New(append([]config.Option{config.WithConfigFile(path)}, opts...)...)
	if err := cfg.Load(); err != nil {
		return nil, err
	}
	return func(c *Config) {
		if v := cfg.GetString("server.mode"); v != "" {
			c.Mode = v
		}
		if v := cfg.GetString("server.addr"); v != "" {
			c.Addr = v
		}
		if v := cfg.GetString("server.ws_path"); v != "" {
			c.WSPath = v
		}
		if v := cfg.GetDuration("server.shutdown_timeout"); v > 0 {
			c.ShutdownTimeout = v
		}
		if v := cfg.GetInt("gateway.max_connections"); v > 0 {
			c.WS = append(c.WS, ws.WithMaxConnections(v))
		}
		if v := cfg.GetInt("gateway.workers"); v > 0 {
			c.WS = append(c.WS, ws.WithWorkers(v))
		}
		if v := cfg.GetInt("gateway.job_queue_size"); v > 0 {
			c.WS = append(c.WS, ws.WithJobQueueSize(v))
		}
		if origins := cfg.GetStringSlice("gateway.allowed_origins"); len(origins) > 0 {
			c.WS = append(c.WS, ws.WithOriginWhitelist(origins...))
		}
		if cfg.IsSet("log") {
			var lopts []logger.Option
			if lv, err := logger.ParseLevel(cfg.GetString("log.level")); err == nil {
				lopts = append(lopts, logger.WithLevel(lv))
			}
			if f := logger.Format(cfg.GetString("log.format")); f.IsValid() {
				lopts = append(lopts, logger.WithFormat(f))
			}
			if file := cfg.GetString("log.file"); file != "" {
				rc := logger.DefaultRotateConfig()
				rc.Filename = file
				lopts = append(lopts, logger.WithRotateOutput(rc))
			}
			if log, err := logger.NewWithOptions(lopts...); err == nil {
				c.Logger = log
			}
		}
		if cfg.GetBool("tracing.enabled") {
			tc := tracing.DefaultConfig()
			if v := cfg.GetString("tracing.service_name"); v != "" {
				tc.ServiceName = v
			}
			if v := cfg.GetString("tracing.exporter"); v != "" {
				tc.ExporterType = v
			}
			if v := cfg.GetString("tracing.endpoint"); v != "" {
				tc.ExporterEndpoint = v
			}
			if v := cfg.GetFloat64("tracing.sampling_rate"); v > 0 {
				tc.SamplingRate = v
			}
			c.Tracing = tc
		}
		if v := cfg.GetString("state.driver"); v == string(state.DriverRedis) {
			rc := state.DefaultRedisConfig()
			if addr := cfg.GetString("state.redis.addr"); addr != "" {
				rc.Addr = addr
			}
			rc.Password = cfg.GetString("state.redis.password")
			rc.DB = cfg.GetInt("state.redis.db")
			c.State = state.DefaultConfig()
			c.State.Driver = state.DriverRedis
			c.State.Redis = rc
		}
	}, nil
}
