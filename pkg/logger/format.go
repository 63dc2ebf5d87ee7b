package logger

// Format 日志输出格式
type Format string

const (
	// JSONFormat 结构化 JSON, 生产模式使用
	JSONFormat Format = "json"
	// ConsoleFormat 面向终端的可读格式, 开发模式使用
	ConsoleFormat Format = "console"
)

// String 返回格式名称
func (f Format) String() string {
	return string(f)
}

// IsValid 检查格式是否有效, 供配置文件 log.format 校验
func (f Format) IsValid() bool {
	return f == JSONFormat || f == ConsoleFormat
}
