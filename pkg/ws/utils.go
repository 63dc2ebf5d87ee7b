package ws

import "github.com/google/uuid"

// generateID 生成连接唯一标识
func generateID() string {
	return uuid.NewString()
}
