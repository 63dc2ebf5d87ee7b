package state

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestStore(t *testing.T) Store {
	t.Helper()
	s, err := NewWithOptions(WithMemory(&MemoryConfig{CleanupInterval: time.Minute}))
	if err != nil {
		t.Fatalf("NewWithOptions() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestMemoryOnlineOffline(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Online(ctx, "alice", "c1"); err != nil {
		t.Fatalf("Online() error = %v", err)
	}
	if err := s.Online(ctx, "alice", "c2"); err != nil {
		t.Fatalf("Online() error = %v", err)
	}

	online, err := s.IsOnline(ctx, "alice")
	if err != nil || !online {
		t.Errorf("IsOnline(alice) = %v, %v, want true", online, err)
	}

	conns, err := s.Connections(ctx, "alice")
	if err != nil {
		t.Fatalf("Connections() error = %v", err)
	}
	if len(conns) != 2 {
		t.Errorf("Connections(alice) len = %d, want 2", len(conns))
	}

	if err := s.Offline(ctx, "alice", "c1"); err != nil {
		t.Fatalf("Offline() error = %v", err)
	}
	if conns, _ = s.Connections(ctx, "alice"); len(conns) != 1 {
		t.Errorf("Connections(alice) len = %d, want 1", len(conns))
	}

	// 最后一个连接下线后用户离线
	_ = s.Offline(ctx, "alice", "c2")
	if online, _ = s.IsOnline(ctx, "alice"); online {
		t.Error("IsOnline(alice) = true after last Offline, want false")
	}
	if conns, _ = s.Connections(ctx, "alice"); conns != nil {
		t.Errorf("Connections(alice) = %v, want nil", conns)
	}

	// 重复下线为空操作
	if err := s.Offline(ctx, "alice", "c2"); err != nil {
		t.Errorf("duplicate Offline() error = %v", err)
	}
}

func TestMemoryInterrupt(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if got, _ := s.Interrupted(ctx, "alice"); got {
		t.Error("Interrupted(alice) = true before Interrupt, want false")
	}

	if err := s.Interrupt(ctx, "alice", 0); err != nil {
		t.Fatalf("Interrupt() error = %v", err)
	}
	if got, _ := s.Interrupted(ctx, "alice"); !got {
		t.Error("Interrupted(alice) = false after Interrupt, want true")
	}
	// 其他用户不受影响
	if got, _ := s.Interrupted(ctx, "bob"); got {
		t.Error("Interrupted(bob) = true, want false")
	}

	if err := s.ClearInterrupt(ctx, "alice"); err != nil {
		t.Fatalf("ClearInterrupt() error = %v", err)
	}
	if got, _ := s.Interrupted(ctx, "alice"); got {
		t.Error("Interrupted(alice) = true after ClearInterrupt, want false")
	}
}

func TestMemoryInterruptTTL(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Interrupt(ctx, "alice", 30*time.Millisecond); err != nil {
		t.Fatalf("Interrupt() error = %v", err)
	}
	if got, _ := s.Interrupted(ctx, "alice"); !got {
		t.Fatal("Interrupted(alice) = false right after Interrupt")
	}

	time.Sleep(60 * time.Millisecond)
	if got, _ := s.Interrupted(ctx, "alice"); got {
		t.Error("中断标记应在 TTL 到期后自动清除")
	}
}

func TestMemoryClose(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_ = s.Online(ctx, "alice", "c1")
	_ = s.Interrupt(ctx, "alice", 0)
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if online, _ := s.IsOnline(ctx, "alice"); online {
		t.Error("IsOnline(alice) = true after Close, want false")
	}
	if got, _ := s.Interrupted(ctx, "alice"); got {
		t.Error("Interrupted(alice) = true after Close, want false")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr bool
	}{
		{"default", DefaultConfig(), false},
		{"unknown driver", &Config{Driver: "etcd"}, true},
		{"redis without config", &Config{Driver: DriverRedis}, true},
		{"redis standalone without addr", &Config{Driver: DriverRedis, Redis: &RedisConfig{Mode: RedisStandalone}}, true},
		{"redis cluster too few nodes", &Config{Driver: DriverRedis, Redis: &RedisConfig{Mode: RedisCluster, Addrs: []string{"a", "b"}}}, true},
		{"redis sentinel without master", &Config{Driver: DriverRedis, Redis: &RedisConfig{Mode: RedisSentinel, Addrs: []string{"a"}}}, true},
		{"memory without config", &Config{Driver: DriverMemory}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrStateInvalidConfig) {
				t.Errorf("Validate() error = %v, want ErrStateInvalidConfig", err)
			}
		})
	}
}

func TestNewNilConfig(t *testing.T) {
	s, err := New(nil)
	if err != nil {
		t.Fatalf("New(nil) error = %v", err)
	}
	defer s.Close()
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}
