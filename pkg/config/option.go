package config

import "strings"

// Option 配置选项函数
type Option func(*Config)

// WithConfigFile 指定配置文件完整路径, 如 "config.yaml"
func WithConfigFile(path string) Option {
	return func(c *Config) {
		c.file = path
	}
}

// WithConfigName 设置配置文件名, 不含扩展名
func WithConfigName(name string) Option {
	return func(c *Config) {
		c.name = name
	}
}

// WithConfigType 设置配置文件类型, 如 yaml/json/toml
func WithConfigType(typ string) Option {
	return func(c *Config) {
		c.fileType = typ
	}
}

// WithConfigPaths 设置配置文件搜索路径
func WithConfigPaths(paths ...string) Option {
	return func(c *Config) {
		c.paths = paths
	}
}

// WithProtected 开启保护模式。
// 保护模式下配置文件被外部修改后自动恢复为加载时的内容
func WithProtected(protected bool) Option {
	return func(c *Config) {
		c.protected = protected
	}
}

// WithAutoWatch 设置 Load 成功后自动开启文件监控
func WithAutoWatch(watch bool) Option {
	return func(c *Config) {
		c.autoWatch = watch
	}
}

// WithOnChange 设置变更回调, 仅在非保护模式下触发
func WithOnChange(fn func()) Option {
	return func(c *Config) {
		c.onChange = fn
	}
}

// WithOnError 设置错误回调, 文件恢复失败等场景触发
func WithOnError(fn func(error)) Option {
	return func(c *Config) {
		c.onError = fn
	}
}

// WithDefaults 设置键缺省值, 文件未提供时生效
func WithDefaults(defaults map[string]any) Option {
	return func(c *Config) {
		c.defaults = defaults
	}
}

// WithEnvPrefix 设置环境变量前缀并开启环境变量绑定
func WithEnvPrefix(prefix string) Option {
	return func(c *Config) {
		c.envPrefix = prefix
	}
}

// WithEnvKeyReplacer 设置环境变量键名替换器,
// 如 strings.NewReplacer(".", "_") 将 server.addr 映射为 SERVER_ADDR
func WithEnvKeyReplacer(r *strings.Replacer) Option {
	return func(c *Config) {
		c.envKeyReplacer = r
	}
}
