// Package ws 提供基于 WebSocket 的实时消息网关。
//
// 核心组件:
//   - Manager: 网关入口, 负责连接升级、认证、消息分发与推送
//   - Pool: 活跃连接池, 按连接 ID 索引
//   - Sessions: 用户会话索引, 一个用户可持有多个连接(多标签页)
//   - Router: 事件名到处理器的路由表, 支持用户级覆盖与中间件
//   - Client: 单个 WebSocket 连接的封装, 读写分离双协程
//
// 消息协议为 JSON 信封: {"name": 事件名, "data": 载荷, "await": 是否同步, "id": 请求标识}。
// await 为 true 时处理器在读循环内同步执行并立即回包; 为 false 时任务进入
// 后台队列, 先回 queued 确认, 完成后再以相同 id 推送结果。
//
// 基本用法:
//
//	manager, err := ws.NewManager(
//		ws.WithMaxConnections(10000),
//		ws.WithWorkers(2),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//	manager.Router().Register("ping", func(ctx context.Context, c *ws.Client, e *ws.Envelope) (any, error) {
//		return "pong", nil
//	})
//	manager.Run()
//	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		manager.HandleUpgrade(w, r)
//	})
package ws
