package server

import (
	"encoding/json"
	"path/filepath"
	"testing"
)

func newTestGateway(t *testing.T, n int) (*Gateway, []*fakeSender, []*PlayerSession) {
	t.Helper()
	hub, senders, sessions := newTestHub(t, n)
	rooms := NewRoomRegistry()
	rankings := NewRankingStore(filepath.Join(t.TempDir(), "rankings.json"))
	engine := NewEngine(hub, rooms, rankings, &ServerMetrics{})
	return NewGateway(hub, rooms, engine, &ServerMetrics{}), senders, sessions
}

func envelope(t *testing.T, msgType string, payload any) Envelope {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	return Envelope{Type: msgType, Data: data}
}

// countEvents 统计某类事件的帧数
func countEvents(t *testing.T, s *fakeSender, event string) int {
	t.Helper()
	n := 0
	for _, env := range s.decodeAll(t) {
		if env.Type == event {
			n++
		}
	}
	return n
}

// 房间聊天只发给同房其他成员：发送者本地回显，房外玩家不可见
func TestRoomChatScopedToRoommates(t *testing.T) {
	g, senders, sessions := newTestGateway(t, 3)
	host, mate, outsider := sessions[0], sessions[1], sessions[2]
	host.SetNickname("Host")

	g.dispatch(host, envelope(t, MsgCreateRoom, CreateRoomRequest{RoomName: "Arena1", Character: 1}))
	g.dispatch(mate, envelope(t, MsgJoinRoom, JoinRoomRequest{RoomID: host.RoomID}))
	if mate.RoomID != host.RoomID {
		t.Fatalf("join failed: %+v", senders[1].decodeAll(t))
	}
	_ = outsider // 留在大厅
	for _, s := range senders {
		s.frames = nil
	}

	g.dispatch(host, envelope(t, MsgChatMessage, ChatRequest{Message: "gl hf", Type: "room"}))

	if got := countEvents(t, senders[1], EventChatMessage); got != 1 {
		t.Fatalf("roommate got %d chat frames, want 1", got)
	}
	var msg ChatMessageEvent
	for _, env := range senders[1].decodeAll(t) {
		if env.Type == EventChatMessage {
			if err := json.Unmarshal(env.Data, &msg); err != nil {
				t.Fatal(err)
			}
		}
	}
	if msg.Sender != "Host" || msg.Content != "gl hf" || msg.Type != "room" {
		t.Fatalf("chat payload = %+v", msg)
	}
	if got := countEvents(t, senders[0], EventChatMessage); got != 0 {
		t.Fatalf("sender got %d chat frames, want 0", got)
	}
	if got := countEvents(t, senders[2], EventChatMessage); got != 0 {
		t.Fatalf("outsider got %d chat frames, want 0", got)
	}
}

// 全体聊天发给除发送者外的所有在线玩家，房间归属无关
func TestAllChatReachesEveryoneButSender(t *testing.T) {
	g, senders, sessions := newTestGateway(t, 3)
	g.dispatch(sessions[0], envelope(t, MsgCreateRoom, CreateRoomRequest{RoomName: "Arena1", Character: 1}))
	for _, s := range senders {
		s.frames = nil
	}

	g.dispatch(sessions[0], envelope(t, MsgChatMessage, ChatRequest{Message: "anyone up?", Type: "all"}))

	if got := countEvents(t, senders[0], EventChatMessage); got != 0 {
		t.Fatalf("sender got %d chat frames, want 0", got)
	}
	for i, s := range senders[1:] {
		if got := countEvents(t, s, EventChatMessage); got != 1 {
			t.Fatalf("player %d got %d chat frames, want 1", i+1, got)
		}
	}
}
