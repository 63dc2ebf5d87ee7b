// Package config 基于 viper 的配置装载器, 网关用它读取
// server/gateway/state/tracing 各段配置, 并支持文件变更监控与保护模式。
package config

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/viper"
)

// Config 配置装载器。
// 所有读取方法线程安全, 监控开启后文件变更会实时反映到读取结果。
type Config struct {
	viper *viper.Viper
	mu    sync.RWMutex

	// 配置文件定位: file 非空时直接使用, 否则按 name/fileType/paths 搜索
	file     string
	name     string
	fileType string
	paths    []string

	// 变更监控
	protected bool        // 保护模式: 文件被外部改动后自动恢复
	autoWatch bool        // Load 成功后自动开启监控
	watching  bool        // 监控是否生效
	restoring atomic.Bool // 正在恢复文件, 抑制恢复写入触发的二次事件
	onChange  func()      // 非保护模式下的变更回调
	onError   func(error) // 恢复失败等错误的回调
	snap      *snapshot

	defaults       map[string]any    // 键缺省值, 如 "gateway.workers": 2
	envPrefix      string            // 环境变量前缀, 如 DANQING
	envKeyReplacer *strings.Replacer // 环境变量键名替换器
}

// New 创建配置装载器, 需调用 Load 后才能读取
func New(opts ...Option) *Config {
	c := &Config{
		viper: viper.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load 定位并读取配置文件。
// 按选项写入缺省值与环境变量绑定, 保护模式下保存文件快照,
// autoWatch 开启时随即启动变更监控。
func (c *Config) Load() error {
	c.mu.Lock()

	for k, v := range c.defaults {
		c.viper.SetDefault(k, v)
	}

	if c.envPrefix != "" {
		c.viper.SetEnvPrefix(c.envPrefix)
		c.viper.AutomaticEnv()
	}
	if c.envKeyReplacer != nil {
		c.viper.SetEnvKeyReplacer(c.envKeyReplacer)
	}

	if c.file != "" {
		c.viper.SetConfigFile(c.file)
	} else {
		if c.name != "" {
			c.viper.SetConfigName(c.name)
		}
		if c.fileType != "" {
			c.viper.SetConfigType(c.fileType)
		}
		for _, path := range c.paths {
			c.viper.AddConfigPath(path)
		}
	}

	if err := c.viper.ReadInConfig(); err != nil {
		c.mu.Unlock()
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return fmt.Errorf("%w: %w", ErrConfigNotFound, err)
		}
		return fmt.Errorf("%w: %w", ErrConfigReadFailed, err)
	}

	var snapErr error
	if c.protected {
		snapErr = c.saveSnapshot()
	}

	if c.autoWatch {
		c.startWatch()
	}

	c.mu.Unlock()

	// 快照错误在释放锁后报告, 避免在锁内调用用户回调
	if snapErr != nil {
		c.reportError(snapErr)
	}

	return nil
}

// Get 泛型读取, 类型不符时返回零值
func Get[T any](c *Config, key string) T {
	c.mu.RLock()
	defer c.mu.RUnlock()

	val := c.viper.Get(key)
	if val == nil {
		var zero T
		return zero
	}
	if v, ok := val.(T); ok {
		return v
	}
	var zero T
	return zero
}

// GetString 读取字符串, 如 "server.addr"
func (c *Config) GetString(key string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.viper.GetString(key)
}

// GetInt 读取整数, 如 "gateway.workers"
func (c *Config) GetInt(key string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.viper.GetInt(key)
}

// GetInt64 读取 int64
func (c *Config) GetInt64(key string) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.viper.GetInt64(key)
}

// GetFloat64 读取 float64, 如 "tracing.sampling_rate"
func (c *Config) GetFloat64(key string) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.viper.GetFloat64(key)
}

// GetBool 读取布尔值, 如 "tracing.enabled"
func (c *Config) GetBool(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.viper.GetBool(key)
}

// GetDuration 读取时间间隔, 如 "server.shutdown_timeout"
func (c *Config) GetDuration(key string) time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.viper.GetDuration(key)
}

// GetStringSlice 读取字符串切片, 如 "gateway.allowed_origins"
func (c *Config) GetStringSlice(key string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.viper.GetStringSlice(key)
}

// GetStringMap 读取字符串键映射
func (c *Config) GetStringMap(key string) map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.viper.GetStringMap(key)
}

// GetStringMapString 读取字符串到字符串的映射
func (c *Config) GetStringMapString(key string) map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.viper.GetStringMapString(key)
}

// Set 运行时覆盖配置值, 优先级高于文件内容
func (c *Config) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.viper.Set(key, value)
}

// IsSet 检查配置键是否存在
func (c *Config) IsSet(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.viper.IsSet(key)
}

// AllSettings 获取全部配置
func (c *Config) AllSettings() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.viper.AllSettings()
}

// Sub 截取子树为独立实例, 如 Sub("state.redis")。
// 返回的实例是只读轻量副本, 不继承监控与保护模式; 键不存在时返回 nil
func (c *Config) Sub(key string) *Config {
	c.mu.RLock()
	defer c.mu.RUnlock()

	sub := c.viper.Sub(key)
	if sub == nil {
		return nil
	}
	return &Config{viper: sub}
}

// Unmarshal 将全部配置反序列化到结构体
func (c *Config) Unmarshal(rawVal any) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.viper.Unmarshal(rawVal)
}

// UnmarshalKey 将指定键下的配置反序列化到结构体
func (c *Config) UnmarshalKey(key string, rawVal any) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.viper.UnmarshalKey(key, rawVal)
}

// Close 停止监控并释放资源
func (c *Config) Close() {
	c.StopWatch()
}

// Viper 暴露底层 viper 实例。
// 直接操作不受本类型的并发锁保护, 调用方自行确保线程安全
func (c *Config) Viper() *viper.Viper {
	return c.viper
}
