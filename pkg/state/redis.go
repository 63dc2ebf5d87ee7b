package state

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisStore Redis 状态存储实现。
// 连接集合用 Set 结构, 中断标记用带 TTL 的 String 键。
type redisStore struct {
	client       redis.UniversalClient
	keyPrefix    string
	interruptTTL time.Duration
}

// newRedisStore 创建 Redis 状态存储
func newRedisStore(cfg *Config) (Store, error) {
	if cfg.Redis == nil {
		return nil, fmt.Errorf("%w: redis config is required", ErrStateInvalidConfig)
	}

	var client redis.UniversalClient

	switch cfg.Redis.Mode {
	case RedisStandalone, "":
		client = redis.NewClient(&redis.Options{
			Addr:         cfg.Redis.Addr,
			Username:     cfg.Redis.Username,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			MaxRetries:   cfg.Redis.MaxRetries,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})

	case RedisCluster:
		if len(cfg.Redis.Addrs) == 0 {
			return nil, fmt.Errorf("%w: cluster mode requires addrs", ErrStateInvalidConfig)
		}
		client = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:        cfg.Redis.Addrs,
			Username:     cfg.Redis.Username,
			Password:     cfg.Redis.Password,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			MaxRetries:   cfg.Redis.MaxRetries,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})

	case RedisSentinel:
		if len(cfg.Redis.Addrs) == 0 {
			return nil, fmt.Errorf("%w: sentinel mode requires addrs", ErrStateInvalidConfig)
		}
		if cfg.Redis.MasterName == "" {
			return nil, fmt.Errorf("%w: sentinel mode requires master name", ErrStateInvalidConfig)
		}
		client = redis.NewFailoverClient(&redis.FailoverOptions{
			MasterName:    cfg.Redis.MasterName,
			SentinelAddrs: cfg.Redis.Addrs,
			Username:      cfg.Redis.Username,
			Password:      cfg.Redis.Password,
			DB:            cfg.Redis.DB,
			PoolSize:      cfg.Redis.PoolSize,
			MinIdleConns:  cfg.Redis.MinIdleConns,
			MaxRetries:    cfg.Redis.MaxRetries,
			DialTimeout:   cfg.Redis.DialTimeout,
			ReadTimeout:   cfg.Redis.ReadTimeout,
			WriteTimeout:  cfg.Redis.WriteTimeout,
		})

	default:
		return nil, fmt.Errorf("%w: unsupported redis mode: %s", ErrStateInvalidConfig, cfg.Redis.Mode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStateConnection, err)
	}

	return &redisStore{
		client:       client,
		keyPrefix:    cfg.KeyPrefix,
		interruptTTL: cfg.InterruptTTL,
	}, nil
}

func (r *redisStore) connsKey(user string) string {
	return r.keyPrefix + "conns:" + user
}

func (r *redisStore) interruptKey(user string) string {
	return r.keyPrefix + "interrupt:" + user
}

// Online 记录用户连接上线
func (r *redisStore) Online(ctx context.Context, user, connID string) error {
	if err := r.client.SAdd(ctx, r.connsKey(user), connID).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrStateOperation, err)
	}
	return nil
}

// Offline 移除用户连接, Set 为空时 Redis 自动删除键
func (r *redisStore) Offline(ctx context.Context, user, connID string) error {
	if err := r.client.SRem(ctx, r.connsKey(user), connID).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrStateOperation, err)
	}
	return nil
}

// Connections 返回用户连接列表
func (r *redisStore) Connections(ctx context.Context, user string) ([]string, error) {
	ids, err := r.client.SMembers(ctx, r.connsKey(user)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStateOperation, err)
	}
	return ids, nil
}

// IsOnline 用户是否在线
func (r *redisStore) IsOnline(ctx context.Context, user string) (bool, error) {
	n, err := r.client.SCard(ctx, r.connsKey(user)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrStateOperation, err)
	}
	return n > 0, nil
}

// Interrupt 置中断标记
func (r *redisStore) Interrupt(ctx context.Context, user string, ttl time.Duration) error {
	if ttl == 0 {
		ttl = r.interruptTTL
	}
	if err := r.client.Set(ctx, r.interruptKey(user), "1", ttl).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrStateOperation, err)
	}
	return nil
}

// Interrupted 查询中断标记
func (r *redisStore) Interrupted(ctx context.Context, user string) (bool, error) {
	n, err := r.client.Exists(ctx, r.interruptKey(user)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrStateOperation, err)
	}
	return n > 0, nil
}

// ClearInterrupt 清除中断标记
func (r *redisStore) ClearInterrupt(ctx context.Context, user string) error {
	if err := r.client.Del(ctx, r.interruptKey(user)).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrStateOperation, err)
	}
	return nil
}

// Ping 检查连接
func (r *redisStore) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrStateConnection, err)
	}
	return nil
}

// Close 关闭连接
func (r *redisStore) Close() error {
	return r.client.Close()
}
