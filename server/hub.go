package server

import (
	"sync"
)

// Broadcaster 屏蔽网络层的事件出口，核心逻辑只依赖这个接口，
// 测试时注入假实现即可脱离真实 WebSocket
type Broadcaster interface {
	// BroadcastAll 发给所有在线连接
	BroadcastAll(event string, payload any)
	// BroadcastAllExcept 发给除 exceptID 外的所有在线连接（全局聊天用）
	BroadcastAllExcept(exceptID, event string, payload any)
	// SendTo 发给单个连接，连接不存在时静默丢弃
	SendTo(connID, event string, payload any)
}

// Hub 在线连接注册表，广播调度的唯一事实来源
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*PlayerSession

	metrics *ServerMetrics
}

func NewHub(metrics *ServerMetrics) *Hub {
	return &Hub{
		sessions: make(map[string]*PlayerSession),
		metrics:  metrics,
	}
}

// Register 连接建立时登记会话
func (h *Hub) Register(s *PlayerSession) {
	h.mu.Lock()
	h.sessions[s.ID] = s
	h.mu.Unlock()
}

// Unregister 连接断开时注销会话
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	delete(h.sessions, connID)
	h.mu.Unlock()
}

// Session 查找在线会话
func (h *Hub) Session(connID string) (*PlayerSession, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.sessions[connID]
	return s, ok
}

// OnlineCount 当前在线连接数
func (h *Hub) OnlineCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

func (h *Hub) BroadcastAll(event string, payload any) {
	h.BroadcastAllExcept("", event, payload)
}

func (h *Hub) BroadcastAllExcept(exceptID, event string, payload any) {
	b, err := EncodeEvent(event, payload)
	if err != nil {
		Log.Errorf("encode %s failed: %v", event, err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, s := range h.sessions {
		if id == exceptID || s.Conn == nil {
			continue
		}
		s.Conn.Enqueue(b)
		h.metrics.IncBroadcasts()
	}
}

func (h *Hub) SendTo(connID, event string, payload any) {
	b, err := EncodeEvent(event, payload)
	if err != nil {
		Log.Errorf("encode %s failed: %v", event, err)
		return
	}
	h.mu.RLock()
	s, ok := h.sessions[connID]
	h.mu.RUnlock()
	if !ok || s.Conn == nil {
		return
	}
	s.Conn.Enqueue(b)
	h.metrics.IncBroadcasts()
}
