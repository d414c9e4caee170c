package server

import (
	"sync/atomic"
)

// ServerMetrics 记录运行期关键指标（用于监控与调试）
type ServerMetrics struct {
	TotalConnections int64 // 累计接入连接数
	ActionsHandled   int64 // 处理过的对局动作数
	MatchesStarted   int64 // 开局次数
	MatchesFinished  int64 // 完局次数
	EventsSent       int64 // 发出的事件帧数
	SendDropped      int64 // 因发送队列满被丢弃的帧数
}

func (m *ServerMetrics) IncConnections()    { atomic.AddInt64(&m.TotalConnections, 1) }
func (m *ServerMetrics) IncActions()        { atomic.AddInt64(&m.ActionsHandled, 1) }
func (m *ServerMetrics) IncMatchesStarted() { atomic.AddInt64(&m.MatchesStarted, 1) }
func (m *ServerMetrics) IncMatchesDone()    { atomic.AddInt64(&m.MatchesFinished, 1) }
func (m *ServerMetrics) IncBroadcasts()     { atomic.AddInt64(&m.EventsSent, 1) }
func (m *ServerMetrics) IncSendDropped()    { atomic.AddInt64(&m.SendDropped, 1) }

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *ServerMetrics) Snapshot() map[string]any {
	return map[string]any{
		"total_connections": atomic.LoadInt64(&m.TotalConnections),
		"actions_handled":   atomic.LoadInt64(&m.ActionsHandled),
		"matches_started":   atomic.LoadInt64(&m.MatchesStarted),
		"matches_finished":  atomic.LoadInt64(&m.MatchesFinished),
		"events_sent":       atomic.LoadInt64(&m.EventsSent),
		"send_dropped":      atomic.LoadInt64(&m.SendDropped),
	}
}
