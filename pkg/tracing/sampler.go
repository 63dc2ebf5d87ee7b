package tracing

import (
	"os"
	"strconv"

	"go.opentelemetry.io/otel/sdk/trace"
)

// newSampler 按配置创建采样器。
// OTEL_TRACES_SAMPLER 环境变量优先于配置文件, 便于部署时临时调整采样
func newSampler(cfg *Config) trace.Sampler {
	if samplerType := os.Getenv("OTEL_TRACES_SAMPLER"); samplerType != "" {
		return samplerFromEnv(samplerType)
	}

	switch cfg.SamplingType {
	case "always":
		return trace.AlwaysSample()
	case "never":
		return trace.NeverSample()
	case "ratio":
		return trace.TraceIDRatioBased(cfg.SamplingRate)
	default:
		// parent_based: 跟随上游采样决定, 根 Span 按比例采样
		return trace.ParentBased(trace.TraceIDRatioBased(cfg.SamplingRate))
	}
}

// samplerFromEnv 解析 OTEL 规范的采样器名称
func samplerFromEnv(samplerType string) trace.Sampler {
	switch samplerType {
	case "always_on":
		return trace.AlwaysSample()
	case "always_off":
		return trace.NeverSample()
	case "traceidratio":
		return trace.TraceIDRatioBased(samplingRatioFromEnv())
	case "parentbased_always_off":
		return trace.ParentBased(trace.NeverSample())
	case "parentbased_traceidratio":
		return trace.ParentBased(trace.TraceIDRatioBased(samplingRatioFromEnv()))
	default:
		return trace.ParentBased(trace.AlwaysSample())
	}
}

// samplingRatioFromEnv 读取 OTEL_TRACES_SAMPLER_ARG, 非法值回退全量采样
func samplingRatioFromEnv() float64 {
	ratioStr := os.Getenv("OTEL_TRACES_SAMPLER_ARG")
	if ratioStr == "" {
		return 1.0
	}

	ratio, err := strconv.ParseFloat(ratioStr, 64)
	if err != nil || ratio < 0 || ratio > 1 {
		return 1.0
	}
	return ratio
}
