package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// newTestManager 启动网关与测试服务器, 返回网关和 ws 地址
func newTestManager(t *testing.T, opts ...Option) (*Manager, string) {
	t.Helper()
	m, err := NewManager(append([]Option{WithAllowAllOrigins()}, opts...)...)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	m.Run()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = m.HandleUpgrade(w, r)
	}))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = m.Shutdown(ctx)
		srv.Close()
	})
	return m, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readReply(t *testing.T, conn *websocket.Conn) Reply {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	var r Reply
	if err := json.Unmarshal(raw, &r); err != nil {
		t.Fatalf("unmarshal reply %s: %v", raw, err)
	}
	return r
}

// waitOnline 等待指定数量的连接完成注册
func waitOnline(t *testing.T, m *Manager, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if m.Online() == n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("online = %d, want %d", m.Online(), n)
}

func TestManagerAwaitDispatch(t *testing.T) {
	m, url := newTestManager(t)
	m.Router().Register("ping", func(ctx context.Context, c *Client, e *Envelope) (any, error) {
		return "pong", nil
	})

	conn := dial(t, url)
	msg := `{"name":"ping","data":{},"await":true,"id":"req-1"}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}

	r := readReply(t, conn)
	if r.ID != "req-1" {
		t.Errorf("reply id = %q, want req-1", r.ID)
	}
	if r.Name != ReplyName {
		t.Errorf("reply name = %q, want %q", r.Name, ReplyName)
	}
	if r.Data != "pong" {
		t.Errorf("reply data = %v, want pong", r.Data)
	}
}

func TestManagerAsyncDispatch(t *testing.T) {
	m, url := newTestManager(t)
	m.Router().Register("txt2img", func(ctx context.Context, c *Client, e *Envelope) (any, error) {
		// 留出时间让入队确认先行送达
		time.Sleep(50 * time.Millisecond)
		return map[string]string{"image": "done"}, nil
	})

	conn := dial(t, url)
	msg := `{"name":"txt2img","data":{"prompt":"sunset"},"await":false,"id":"req-2"}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}

	ack := readReply(t, conn)
	if ack.ID != "req-2" {
		t.Errorf("ack id = %q, want req-2", ack.ID)
	}
	status, ok := ack.Data.(map[string]any)
	if !ok || status["status"] != "queued" {
		t.Errorf("ack data = %v, want queued", ack.Data)
	}

	result := readReply(t, conn)
	if result.ID != "req-2" {
		t.Errorf("result id = %q, want req-2", result.ID)
	}
	data, ok := result.Data.(map[string]any)
	if !ok || data["image"] != "done" {
		t.Errorf("result data = %v", result.Data)
	}
}

func TestManagerJobEventCarriesUser(t *testing.T) {
	auth := AuthenticatorFunc(func(r *http.Request) (string, error) {
		return r.URL.Query().Get("user"), nil
	})
	m, url := newTestManager(t, WithAuthenticator(auth))
	m.Router().Register("txt2img", func(ctx context.Context, c *Client, e *Envelope) (any, error) {
		return "done", nil
	})

	events := make(chan Event, 1)
	m.Events().Subscribe(EventJobCompleted, func(e Event) {
		select {
		case events <- e:
		default:
		}
	})

	conn := dial(t, url+"?user=alice")
	msg := `{"name":"txt2img","data":{},"id":"r1"}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}

	select {
	case e := <-events:
		if e.User != "alice" {
			t.Errorf("completion event user = %q, want alice", e.User)
		}
		if e.Name != "txt2img" {
			t.Errorf("completion event name = %q, want txt2img", e.Name)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("completion event not published")
	}
}

func TestManagerAsyncHandlerError(t *testing.T) {
	m, url := newTestManager(t)
	m.Router().Register("txt2img", func(ctx context.Context, c *Client, e *Envelope) (any, error) {
		time.Sleep(50 * time.Millisecond)
		return nil, errors.New("model not loaded")
	})

	conn := dial(t, url)
	msg := `{"name":"txt2img","data":{},"id":"req-3"}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}

	_ = readReply(t, conn) // 入队确认
	result := readReply(t, conn)
	if result.ID != "req-3" {
		t.Errorf("result id = %q, want req-3", result.ID)
	}
	if result.Data != "model not loaded" {
		t.Errorf("result data = %v, want error text", result.Data)
	}
}

func TestManagerUnknownEvent(t *testing.T) {
	_, url := newTestManager(t)

	conn := dial(t, url)
	msg := `{"name":"nope","data":{},"await":true,"id":"req-4"}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}

	r := readReply(t, conn)
	if r.ID != "req-4" {
		t.Errorf("reply id = %q, want req-4", r.ID)
	}
	text, _ := r.Data.(string)
	if !strings.Contains(text, "unknown event") {
		t.Errorf("reply data = %v, want unknown event error", r.Data)
	}
}

func TestManagerHandlerPanic(t *testing.T) {
	m, url := newTestManager(t)
	m.Router().Register("boom", func(ctx context.Context, c *Client, e *Envelope) (any, error) {
		panic("exploded")
	})
	m.Router().Register("ping", func(ctx context.Context, c *Client, e *Envelope) (any, error) {
		return "pong", nil
	})

	conn := dial(t, url)
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"name":"boom","data":{},"await":true,"id":"r1"}`)); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}
	r := readReply(t, conn)
	text, _ := r.Data.(string)
	if !strings.Contains(text, "panic") {
		t.Errorf("reply data = %v, want panic error text", r.Data)
	}

	// 连接应保持可用
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"name":"ping","data":{},"await":true,"id":"r2"}`)); err != nil {
		t.Fatalf("WriteMessage() after panic error = %v", err)
	}
	if r := readReply(t, conn); r.Data != "pong" {
		t.Errorf("reply after panic = %v, want pong", r.Data)
	}
}

func TestManagerMalformedMessage(t *testing.T) {
	m, url := newTestManager(t)
	m.Router().Register("ping", func(ctx context.Context, c *Client, e *Envelope) (any, error) {
		return "pong", nil
	})

	conn := dial(t, url)
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`not json at all`)); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"name":"","data":{}}`)); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}

	// 无效消息被丢弃, 连接保持打开, 后续合法消息正常处理
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"name":"ping","data":{},"await":true,"id":"r1"}`)); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}
	r := readReply(t, conn)
	if r.ID != "r1" || r.Data != "pong" {
		t.Errorf("reply = %+v, want pong for r1", r)
	}
}

func TestManagerMetricsCounters(t *testing.T) {
	metrics := NewAtomicMetrics()
	m, url := newTestManager(t, WithMetrics(metrics))
	m.Router().Register("ping", func(ctx context.Context, c *Client, e *Envelope) (any, error) {
		return "pong", nil
	})

	conn := dial(t, url)
	waitOnline(t, m, 1)
	if got := metrics.Connections(); got != 1 {
		t.Errorf("Connections() = %d, want 1", got)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"name":"ping","data":{},"await":true,"id":"r1"}`)); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}
	readReply(t, conn)
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`not json`)); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"name":"nope","data":{},"await":true,"id":"r2"}`)); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}
	readReply(t, conn)

	// 计数在读协程中累加, 轮询等待
	waitMetrics := func(name string, get func() int64, want int64) {
		t.Helper()
		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) {
			if get() >= want {
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
		t.Errorf("%s = %d, want >= %d", name, get(), want)
	}
	waitMetrics("Messages()", metrics.Messages, 2)
	waitMetrics("InvalidMessages()", metrics.InvalidMessages, 1)
	waitMetrics("UnknownEvents()", metrics.UnknownEvents, 1)

	_ = conn.Close()
	waitOnline(t, m, 0)
	deadline := time.Now().Add(2 * time.Second)
	for metrics.Connections() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := metrics.Connections(); got != 0 {
		t.Errorf("Connections() after close = %d, want 0", got)
	}
}

func TestManagerLogout(t *testing.T) {
	_, url := newTestManager(t)

	conn := dial(t, url)
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"name":"logout","data":{},"id":"r1"}`)); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}

	r := readReply(t, conn)
	if r.ID != "r1" || r.Data != "ok" {
		t.Errorf("logout ack = %+v, want ok for r1", r)
	}

	// 确认后连接应被服务端关闭
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("connection should be closed after logout")
	}
}

func TestManagerAuth(t *testing.T) {
	auth := AuthenticatorFunc(func(r *http.Request) (string, error) {
		user := r.URL.Query().Get("user")
		if user == "" {
			return "", ErrAuthFailed
		}
		return user, nil
	})
	m, url := newTestManager(t, WithAuthenticator(auth))

	t.Run("rejected", func(t *testing.T) {
		_, resp, err := websocket.DefaultDialer.Dial(url, nil)
		if err == nil {
			t.Fatal("Dial() should fail without credentials")
		}
		if resp == nil || resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("status = %v, want 401", resp)
		}
	})

	t.Run("accepted", func(t *testing.T) {
		conn := dial(t, url+"?user=alice")
		waitOnline(t, m, 1)
		if !m.Sessions().Online("alice") {
			t.Error("alice should be online")
		}
		_ = conn.Close()
	})
}

func TestManagerCapacity(t *testing.T) {
	m, url := newTestManager(t, WithMaxConnections(1))

	_ = dial(t, url)
	waitOnline(t, m, 1)

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("Dial() should fail at capacity")
	}
	if resp == nil || resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %v, want 503", resp)
	}
}

func TestManagerBroadcastToUser(t *testing.T) {
	auth := AuthenticatorFunc(func(r *http.Request) (string, error) {
		return r.URL.Query().Get("user"), nil
	})
	m, url := newTestManager(t, WithAuthenticator(auth))

	alice1 := dial(t, url+"?user=alice")
	alice2 := dial(t, url+"?user=alice")
	bob := dial(t, url+"?user=bob")
	waitOnline(t, m, 3)

	m.Broadcast(&Push{Name: "generate.progress", User: "alice", Data: map[string]int{"step": 3}})

	for i, conn := range []*websocket.Conn{alice1, alice2} {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("alice conn %d: ReadMessage() error = %v", i, err)
		}
		var p Push
		if err := json.Unmarshal(raw, &p); err != nil {
			t.Fatalf("unmarshal push %s: %v", raw, err)
		}
		if p.Name != "generate.progress" {
			t.Errorf("push name = %q, want generate.progress", p.Name)
		}
	}

	// bob 不应收到定向推送
	_ = bob.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, _, err := bob.ReadMessage(); err == nil {
		t.Error("bob should not receive alice's push")
	}
}

func TestManagerBroadcastAll(t *testing.T) {
	m, url := newTestManager(t)

	conns := make([]*websocket.Conn, 3)
	for i := range conns {
		conns[i] = dial(t, url)
	}
	waitOnline(t, m, 3)

	m.Broadcast(&Push{Name: "model.changed", Data: "v1-5-pruned"})

	for i, conn := range conns {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("conn %d: ReadMessage() error = %v", i, err)
		}
		var p Push
		if err := json.Unmarshal(raw, &p); err != nil {
			t.Fatalf("unmarshal push %s: %v", raw, err)
		}
		if p.Data != "v1-5-pruned" {
			t.Errorf("conn %d: push data = %v", i, p.Data)
		}
	}
}

func TestManagerBroadcastFaultIsolation(t *testing.T) {
	m, url := newTestManager(t)

	conns := make([]*websocket.Conn, 3)
	for i := range conns {
		conns[i] = dial(t, url)
	}
	waitOnline(t, m, 3)

	// 第一个客户端底层断开, 服务端可能尚未感知
	_ = conns[0].Close()

	m.Broadcast(&Push{Name: "model.changed", Data: "v2-1"})

	for i := 1; i < 3; i++ {
		_ = conns[i].SetReadDeadline(time.Now().Add(2 * time.Second))
		_, raw, err := conns[i].ReadMessage()
		if err != nil {
			t.Fatalf("conn %d: ReadMessage() error = %v (失效连接不应影响其他接收方)", i, err)
		}
		var p Push
		if err := json.Unmarshal(raw, &p); err != nil {
			t.Fatalf("unmarshal push %s: %v", raw, err)
		}
		if p.Data != "v2-1" {
			t.Errorf("conn %d: push data = %v", i, p.Data)
		}
	}

	// 失效连接最终被清理
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if m.Online() == 2 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Errorf("online = %d, want 2 after dead connection cleanup", m.Online())
}

func TestManagerConcurrentCorrelation(t *testing.T) {
	m, url := newTestManager(t)
	m.Router().Register("square", func(ctx context.Context, c *Client, e *Envelope) (any, error) {
		var req struct {
			N int `json:"n"`
		}
		if err := json.Unmarshal(e.Data, &req); err != nil {
			return nil, err
		}
		time.Sleep(10 * time.Millisecond)
		return req.N * req.N, nil
	})

	conn := dial(t, url)

	const count = 8
	for i := 0; i < count; i++ {
		msg := fmt.Sprintf(`{"name":"square","data":{"n":%d},"id":"req-%d"}`, i, i)
		if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
			t.Fatalf("WriteMessage(%d) error = %v", i, err)
		}
	}

	// 每个请求各有一条入队确认和一条结果, 按 id 关联
	results := make(map[string]float64)
	acks := 0
	for len(results) < count || acks < count {
		r := readReply(t, conn)
		if data, ok := r.Data.(map[string]any); ok && data["status"] == "queued" {
			acks++
			continue
		}
		n, ok := r.Data.(float64)
		if !ok {
			t.Fatalf("reply data = %v (%T)", r.Data, r.Data)
		}
		results[r.ID] = n
	}

	for i := 0; i < count; i++ {
		id := fmt.Sprintf("req-%d", i)
		want := float64(i * i)
		if got, ok := results[id]; !ok || got != want {
			t.Errorf("results[%s] = %v, want %v", id, got, want)
		}
	}
}

func TestManagerSendPersonal(t *testing.T) {
	m, url := newTestManager(t)

	conn := dial(t, url)
	waitOnline(t, m, 1)

	var target string
	m.pool.Range(func(c *Client) bool {
		target = c.ID
		return false
	})

	if err := m.SendPersonal(&Push{Name: "notice", Data: "hello", Target: target}); err != nil {
		t.Fatalf("SendPersonal() error = %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	var p Push
	if err := json.Unmarshal(raw, &p); err != nil {
		t.Fatalf("unmarshal push %s: %v", raw, err)
	}
	if p.Name != "notice" || p.Data != "hello" {
		t.Errorf("push = %+v", p)
	}

	if err := m.SendPersonal(&Push{Name: "notice", Target: "missing"}); err != ErrClientNotFound {
		t.Errorf("SendPersonal(missing) error = %v, want ErrClientNotFound", err)
	}
	if err := m.SendPersonal(&Push{Name: "notice"}); err != ErrClientNotFound {
		t.Errorf("SendPersonal(no target) error = %v, want ErrClientNotFound", err)
	}
}

func TestManagerUserScopedHandler(t *testing.T) {
	auth := AuthenticatorFunc(func(r *http.Request) (string, error) {
		return r.URL.Query().Get("user"), nil
	})
	m, url := newTestManager(t, WithAuthenticator(auth))

	m.Router().Register("render", func(ctx context.Context, c *Client, e *Envelope) (any, error) {
		return "global", nil
	})
	m.Router().RegisterUser("alice", "render", func(ctx context.Context, c *Client, e *Envelope) (any, error) {
		return "alice-override", nil
	})

	msg := `{"name":"render","data":{},"await":true,"id":"r1"}`

	alice := dial(t, url+"?user=alice")
	if err := alice.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}
	if r := readReply(t, alice); r.Data != "alice-override" {
		t.Errorf("alice reply = %v, want alice-override", r.Data)
	}

	bob := dial(t, url+"?user=bob")
	if err := bob.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}
	if r := readReply(t, bob); r.Data != "global" {
		t.Errorf("bob reply = %v, want global", r.Data)
	}
}

func TestManagerShutdownRejectsUpgrade(t *testing.T) {
	m, err := NewManager(WithAllowAllOrigins())
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	m.Run()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := m.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	if err := m.HandleUpgrade(rec, req); err != ErrManagerClosed {
		t.Errorf("HandleUpgrade() error = %v, want ErrManagerClosed", err)
	}
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}

	if err := m.Shutdown(ctx); err != ErrManagerClosed {
		t.Errorf("second Shutdown() error = %v, want ErrManagerClosed", err)
	}
}

func TestManagerValidation(t *testing.T) {
	if _, err := NewManager(WithWorkers(-1)); err == nil {
		t.Error("NewManager(WithWorkers(-1)) should fail")
	}
	if _, err := NewManager(WithAuthRequired(true)); err == nil {
		t.Error("NewManager(WithAuthRequired) without authenticator should fail")
	}
}
