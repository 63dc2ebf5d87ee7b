package danqing

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("写入配置文件失败: %v", err)
	}
	return path
}

func TestFromFile(t *testing.T) {
	path := writeConfigFile(t, `
server:
  mode: release
  addr: ":9000"
  ws_path: "/gateway"
  shutdown_timeout: 5s
gateway:
  max_connections: 100
  workers: 4
  job_queue_size: 32
tracing:
  enabled: true
  service_name: gateway-test
  exporter: noop
  sampling_rate: 0.5
`)

	opt, err := FromFile(path)
	if err != nil {
		t.Fatalf("FromFile() error = %v", err)
	}
	cfg := defaultConfig()
	opt(cfg)

	if cfg.Mode != gin.ReleaseMode {
		t.Errorf("Mode = %q, want release", cfg.Mode)
	}
	if cfg.Addr != ":9000" {
		t.Errorf("Addr = %q, want :9000", cfg.Addr)
	}
	if cfg.WSPath != "/gateway" {
		t.Errorf("WSPath = %q, want /gateway", cfg.WSPath)
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 5s", cfg.ShutdownTimeout)
	}
	// gateway 段转为网关选项
	if len(cfg.WS) != 3 {
		t.Errorf("len(WS) = %d, want 3", len(cfg.WS))
	}
	if cfg.Tracing == nil {
		t.Fatal("Tracing 应被启用")
	}
	if cfg.Tracing.ServiceName != "gateway-test" {
		t.Errorf("Tracing.ServiceName = %q, want gateway-test", cfg.Tracing.ServiceName)
	}
	if cfg.Tracing.ExporterType != "noop" {
		t.Errorf("Tracing.ExporterType = %q, want noop", cfg.Tracing.ExporterType)
	}
	if cfg.Tracing.SamplingRate != 0.5 {
		t.Errorf("Tracing.SamplingRate = %v, want 0.5", cfg.Tracing.SamplingRate)
	}
}

func TestFromFileDefaults(t *testing.T) {
	path := writeConfigFile(t, "server:\n  addr: \":9001\"\n")

	opt, err := FromFile(path)
	if err != nil {
		t.Fatalf("FromFile() error = %v", err)
	}
	cfg := defaultConfig()
	opt(cfg)

	// 缺省键不覆盖默认值
	if cfg.Addr != ":9001" {
		t.Errorf("Addr = %q, want :9001", cfg.Addr)
	}
	if cfg.Mode != gin.DebugMode {
		t.Errorf("Mode = %q, want debug", cfg.Mode)
	}
	if cfg.WSPath != "/ws" {
		t.Errorf("WSPath = %q, want /ws", cfg.WSPath)
	}
	if cfg.Tracing != nil {
		t.Error("未配置 tracing 段时应保持关闭")
	}
}

func TestFromFileLogger(t *testing.T) {
	path := writeConfigFile(t, `
log:
  level: warn
  format: json
`)

	opt, err := FromFile(path)
	if err != nil {
		t.Fatalf("FromFile() error = %v", err)
	}
	cfg := defaultConfig()
	opt(cfg)

	if cfg.Logger == nil {
		t.Fatal("log 段应构建日志器")
	}
}

func TestFromFileMissing(t *testing.T) {
	if _, err := FromFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("不存在的配置文件应返回错误")
	}
}
