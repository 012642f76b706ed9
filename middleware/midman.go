package middleware

import (
	"sync"

	"github.com/gin-gonic/gin"
)

// MiddlewareManager 可以自由注册中间件, mounted once on the engine as a
// single handler.
type MiddlewareManager struct {
	mu    sync.RWMutex
	names []string
	mids  []gin.HandlerFunc
}

func NewManager() *MiddlewareManager {
	return &MiddlewareManager{}
}

// Add 注册一个中间件
func (m *MiddlewareManager) Add(name string, h gin.HandlerFunc) *MiddlewareManager {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.names = append(m.names, name)
	m.mids = append(m.mids, h)
	return m
}

func (m *MiddlewareManager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.names...)
}

// Handlers returns a snapshot suitable for engine.Use.
func (m *MiddlewareManager) Handlers() []gin.HandlerFunc {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]gin.HandlerFunc(nil), m.mids...)
}
