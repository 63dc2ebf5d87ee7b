package logger

import "go.uber.org/zap/zapcore"

// Config 日志配置。
// 网关默认走 NewDevelopment/NewProduction 预设, 需要文件输出或
// 采样等能力时用 NewWithOptions 细调
type Config struct {
	Level  Level  // 日志级别, 默认 InfoLevel
	Format Format // 输出格式, 默认 json

	// 输出目标, 可多选: 控制台 / 普通文件 / 轮转文件
	Console bool
	File    string        // 空则不输出到文件
	Rotate  *RotateConfig // nil 则不轮转

	Sampling   *SamplingConfig // nil 则不采样
	BufferSize int             // 写缓冲大小, 默认 256KB

	EnableCaller     bool // 记录调用位置
	EnableStacktrace bool // Error 及以上记录堆栈

	EncoderConfig *zapcore.EncoderConfig // 自定义编码配置
	Hooks         []Hook
}

// setDefaults 设置默认值
func (c *Config) setDefaults() {
	if c.Level == 0 {
		c.Level = InfoLevel
	}
	if c.Format == "" {
		c.Format = JSONFormat
	}
	if c.BufferSize == 0 {
		c.BufferSize = 256 * 1024
	}
	// 未指定任何输出目标时落到控制台
	if !c.Console && c.File == "" && c.Rotate == nil {
		c.Console = true
	}
	c.EnableCaller = true
	c.EnableStacktrace = true
}
