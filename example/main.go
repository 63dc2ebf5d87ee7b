package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tokmz/danqing"
	"github.com/tokmz/danqing/middleware"
	"github.com/tokmz/danqing/pkg/auth"
	"github.com/tokmz/danqing/pkg/config"
	"github.com/tokmz/danqing/pkg/state"
	"github.com/tokmz/danqing/pkg/tracing"
	"github.com/tokmz/danqing/pkg/ws"
)

// pingModule 连通性测试模块
type pingModule struct{}

func (pingModule) Name() string { return "ping" }

func (pingModule) Register(r *ws.Router) error {
	r.Register("ping", func(ctx context.Context, c *ws.Client, e *ws.Envelope) (any, error) {
		return "pong", nil
	})
	return nil
}

// generateModule 模拟长耗时生成任务: 异步执行, 进度广播, 支持中断
type generateModule struct {
	server *danqing.Server
}

func (generateModule) Name() string { return "generate" }

type generateReq struct {
	Prompt string `json:"prompt"`
	Steps  int    `json:"steps"`
}

func (m generateModule) Register(r *ws.Router) error {
	r.Register("generate", ws.Handle(func(ctx context.Context, c *ws.Client, req generateReq) (any, error) {
		store := m.server.Store()
		user := c.UserID
		taskID := uuid.NewString()

		steps := req.Steps
		if steps <= 0 {
			steps = 20
		}
		for i := 1; i <= steps; i++ {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(100 * time.Millisecond):
			}

			// 协作式中断: 命中标记则停止并清除
			if interrupted, _ := store.Interrupted(ctx, user); interrupted {
				_ = store.ClearInterrupt(ctx, user)
				return map[string]any{"task_id": taskID, "status": "interrupted", "step": i}, nil
			}

			m.server.Manager().Broadcast(&ws.Push{
				Name:   "generate.progress",
				Status: fmt.Sprintf("%d/%d", i, steps),
				Data:   map[string]any{"task_id": taskID, "prompt": req.Prompt},
				User:   user,
			})
		}
		return map[string]any{"task_id": taskID, "status": "done"}, nil
	}))

	r.Register("interrupt", func(ctx context.Context, c *ws.Client, e *ws.Envelope) (any, error) {
		if err := m.server.Store().Interrupt(ctx, c.UserID, 0); err != nil {
			return nil, err
		}
		return "ok", nil
	})
	return nil
}

// echoModule 回显模块, 演示原始信封处理器
type echoModule struct{}

func (echoModule) Name() string { return "echo" }

func (echoModule) Register(r *ws.Router) error {
	r.Register("echo", func(ctx context.Context, c *ws.Client, e *ws.Envelope) (any, error) {
		var payload any
		if err := json.Unmarshal(e.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil
	})
	return nil
}

func main() {
	// 链路追踪: stdout 导出器, 便于本地观察
	traceCfg := tracing.DefaultConfig()
	traceCfg.ServiceName = "danqing-example"
	traceCfg.ExporterType = "stdout"

	jwt, err := auth.New("example-secret", auth.WithIssuer("danqing-example"))
	if err != nil {
		log.Fatalf("初始化凭证器失败: %v", err)
	}

	opts := []danqing.Option{
		danqing.WithAddr(":7860"),
		danqing.WithTracing(traceCfg),
		danqing.WithState(state.DefaultConfig()),
		danqing.WithWS(
			ws.WithAuthenticator(jwt),
			ws.WithAllowAllOrigins(),
			ws.WithWorkers(2),
		),
	}

	// 配置文件存在时覆盖默认值, 并监控其后续变更
	if fileOpt, err := danqing.FromFile("config.yaml", config.WithAutoWatch(true)); err == nil {
		opts = append(opts, fileOpt)
	}

	server, err := danqing.New(opts...)
	if err != nil {
		log.Fatalf("创建服务器失败: %v", err)
	}
	server.Use(
		middleware.CORS(),
		middleware.DefaultLogger(),
		middleware.RateLimiter(&middleware.RateLimiterConfig{
			RequestsPerSecond: 50,
			Burst:             100,
			ExcludePaths:      []string{"/ws", "/healthz"},
		}),
	)

	// 简易登录: 发放连接凭证
	server.Engine().POST("/login", func(c *gin.Context) {
		var req struct {
			User string `json:"user" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		token, err := jwt.Generate(req.User)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": token})
	})

	if err := server.Mount(
		pingModule{},
		echoModule{},
		generateModule{server: server},
	); err != nil {
		log.Fatalf("挂载模块失败: %v", err)
	}

	if err := server.Run(); err != nil {
		log.Fatalf("服务器退出: %v", err)
	}
}
