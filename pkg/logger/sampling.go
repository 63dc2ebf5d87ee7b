package logger

// SamplingConfig 日志采样配置。
// 消息分发等高频路径的日志量随连接数线性增长, 采样避免日志成为瓶颈
type SamplingConfig struct {
	Initial    int // 每秒前 N 条必定记录
	Thereafter int // 之后每 M 条记录 1 条
}

// setDefaults 设置默认值
func (s *SamplingConfig) setDefaults() {
	if s.Initial == 0 {
		s.Initial = 100
	}
	if s.Thereafter == 0 {
		s.Thereafter = 100
	}
}
