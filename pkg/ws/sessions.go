package ws

import "sync"

// Sessions 用户会话索引。
// 一个用户可同时持有多个连接(多标签页), 一个连接至多归属一个用户。
// 用户最后一个连接解绑后清理用户条目, 保证空集合不残留。
type Sessions struct {
	mu     sync.RWMutex
	byUser map[string]map[string]*Client
}

// NewSessions 创建会话索引
func NewSessions() *Sessions {
	return &Sessions{byUser: make(map[string]map[string]*Client)}
}

// Bind 将连接绑定到用户名下。连接此前已绑定其他用户时先解除旧绑定。
func (s *Sessions) Bind(user string, c *Client) {
	if user == "" || c == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if old := c.UserID; old != "" && old != user {
		s.unbindLocked(old, c.ID)
	}
	c.UserID = user
	set, ok := s.byUser[user]
	if !ok {
		set = make(map[string]*Client)
		s.byUser[user] = set
	}
	set[c.ID] = c
}

// Unbind 解除连接与用户的绑定, 重复解绑为空操作
func (s *Sessions) Unbind(c *Client) {
	if c == nil || c.UserID == "" {
		return
	}
	s.mu.Lock()
	s.unbindLocked(c.UserID, c.ID)
	s.mu.Unlock()
}

func (s *Sessions) unbindLocked(user, connID string) {
	if set, ok := s.byUser[user]; ok {
		delete(set, connID)
		if len(set) == 0 {
			delete(s.byUser, user)
		}
	}
}

// List 返回用户的全部连接快照, 用户不在线时返回空切片
func (s *Sessions) List(user string) []*Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set, ok := s.byUser[user]
	if !ok {
		return nil
	}
	clients := make([]*Client, 0, len(set))
	for _, c := range set {
		clients = append(clients, c)
	}
	return clients
}

// Count 用户当前连接数
func (s *Sessions) Count(user string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byUser[user])
}

// Online 用户是否至少有一个连接在线
func (s *Sessions) Online(user string) bool {
	return s.Count(user) > 0
}

// Users 返回当前在线用户列表
func (s *Sessions) Users() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]string, 0, len(s.byUser))
	for user := range s.byUser {
		users = append(users, user)
	}
	return users
}
