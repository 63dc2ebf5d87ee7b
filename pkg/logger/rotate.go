package logger

// RotateConfig 文件轮转配置, 由 lumberjack 执行切割
type RotateConfig struct {
	Filename   string // 日志文件路径
	MaxSize    int    // 单文件上限, MB
	MaxAge     int    // 保留天数
	MaxBackups int    // 保留文件个数
	LocalTime  bool   // 文件名时间戳使用本地时间
	Compress   bool   // 切割后压缩
}

// DefaultRotateConfig 网关默认轮转配置, 写入 logs/danqing.log
func DefaultRotateConfig() *RotateConfig {
	return &RotateConfig{
		Filename:   "logs/danqing.log",
		MaxSize:    100,
		MaxAge:     30,
		MaxBackups: 10,
		LocalTime:  true,
	}
}

// setDefaults 设置默认值
func (r *RotateConfig) setDefaults() {
	if r.MaxSize == 0 {
		r.MaxSize = 100
	}
	if r.MaxAge == 0 {
		r.MaxAge = 30
	}
	if r.MaxBackups == 0 {
		r.MaxBackups = 10
	}
	r.LocalTime = true
}
