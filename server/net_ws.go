package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ClientConn 负责发送（写）数据到客户端的轻量包装
type ClientConn struct {
	ws      *websocket.Conn
	send    chan []byte
	done    chan struct{}
	closing sync.Once
	metrics *ServerMetrics
}

func NewClientConn(ws *websocket.Conn, metrics *ServerMetrics) *ClientConn {
	return &ClientConn{
		ws:      ws,
		send:    make(chan []byte, 64),
		done:    make(chan struct{}),
		metrics: metrics,
	}
}

// Enqueue 将要发送的消息压入队列（非阻塞，满则丢弃，绝不拖累引擎）
func (c *ClientConn) Enqueue(b []byte) {
	select {
	case c.send <- b:
	default:
		if c.metrics != nil {
			c.metrics.IncSendDropped()
		}
	}
}

// Close 关闭底层连接并让写协程退出；send 通道不关闭，避免并发写入踩到已关通道
func (c *ClientConn) Close() {
	c.closing.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

// writePump 独立协程，负责从 send 队列写出到 WS
func (c *ClientConn) writePump() {
	defer c.ws.Close()
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// 演示环境：允许所有来源（生产环境需严格限制）
		return true
	},
}

// Gateway WebSocket 接入层：连接生命周期 + 入站消息分发
type Gateway struct {
	hub     *Hub
	rooms   *RoomRegistry
	engine  *Engine
	metrics *ServerMetrics
}

func NewGateway(hub *Hub, rooms *RoomRegistry, engine *Engine, metrics *ServerMetrics) *Gateway {
	return &Gateway{hub: hub, rooms: rooms, engine: engine, metrics: metrics}
}

// HandleWS WebSocket 接入：每条连接分配一个会话，读写各一协程
func (g *Gateway) HandleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		Log.Warnf("upgrade error: %v", err)
		return
	}

	conn := NewClientConn(ws, g.metrics)
	sess := NewPlayerSession(uuid.NewString(), conn)
	g.hub.Register(sess)
	g.metrics.IncConnections()
	Log.Infof("player connected: %s (online %d)", sess.ID, g.hub.OnlineCount())
	g.hub.BroadcastAll(EventOnlineCount, g.hub.OnlineCount())

	go conn.writePump()
	go g.readPump(conn, sess)
}

// readPump 读取客户端消息并分发，连接断开时做隐式退房
func (g *Gateway) readPump(c *ClientConn, sess *PlayerSession) {
	defer g.onDisconnect(sess)
	defer c.Close()
	c.ws.SetReadLimit(1 << 20) // 1MB
	_ = c.ws.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(60 * time.Second))
	})

	for {
		_, payload, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(60 * time.Second))
		var env Envelope
		if err := json.Unmarshal(payload, &env); err != nil {
			continue // 坏帧直接跳过
		}
		g.dispatch(sess, env)
	}
}

func (g *Gateway) dispatch(sess *PlayerSession, env Envelope) {
	switch env.Type {
	case MsgPing:
		var ts int64
		_ = json.Unmarshal(env.Data, &ts)
		g.hub.SendTo(sess.ID, EventPong, ts)

	case MsgSetNickname:
		var req SetNicknameRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			return
		}
		sess.SetNickname(req.Nickname)
		g.hub.SendTo(sess.ID, EventNicknameSet, NicknameSetEvent{Success: true, Nickname: req.Nickname})
		g.hub.SendTo(sess.ID, EventSystemMessage, fmt.Sprintf("%s joined the lobby", req.Nickname))

	case MsgCreateRoom:
		var req CreateRoomRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			return
		}
		if sess.RoomID != "" {
			g.hub.SendTo(sess.ID, EventError, "leave your current room first")
			return
		}
		room := g.rooms.Create(sess, req.RoomName, req.Character)
		snap := room.Snapshot()
		g.hub.SendTo(sess.ID, EventRoomCreated, RoomEvent{RoomID: room.ID, Room: snap})
		g.hub.SendTo(sess.ID, EventRoomUpdate, snap)
		g.hub.BroadcastAll(EventRoomListUpdate, nil)
		Log.Infof("room created: %s (%q) by %s", room.ID, req.RoomName, sess.ID)

	case MsgJoinRoom:
		var req JoinRoomRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			return
		}
		if sess.RoomID != "" {
			g.hub.SendTo(sess.ID, EventError, "leave your current room first")
			return
		}
		room, err := g.rooms.Join(req.RoomID, sess)
		if err != nil {
			g.hub.SendTo(sess.ID, EventError, err.Error())
			return
		}
		snap := room.Snapshot()
		g.hub.SendTo(sess.ID, EventRoomJoined, RoomEvent{RoomID: room.ID, Room: snap})
		g.broadcastRoom(room, EventRoomUpdate, snap)
		g.hub.BroadcastAll(EventRoomListUpdate, nil)

	case MsgLeaveRoom:
		g.leaveRoom(sess, false)

	case MsgToggleReady:
		room, ok := g.rooms.Get(sess.RoomID)
		if !ok {
			return
		}
		if room.ToggleReady(sess.ID) {
			g.broadcastRoom(room, EventRoomUpdate, room.Snapshot())
		}

	case MsgChangeCharacter:
		var req ChangeCharacterRequest
		if err := json.Unmarshal(env.Data, &req); err != nil || !ValidCharacter(req.Character) {
			return
		}
		if room, ok := g.rooms.Get(sess.RoomID); ok {
			if room.ChangeCharacter(sess.ID, req.Character) {
				g.broadcastRoom(room, EventRoomUpdate, room.Snapshot())
			}
			return
		}
		sess.SetCharacter(req.Character)

	case MsgStartGame:
		room, ok := g.rooms.Get(sess.RoomID)
		if !ok {
			return
		}
		match, err := room.Start(sess.ID)
		if err != nil {
			// 只有“未全员准备”会回告发起者，其余前置条件不满足时静默
			if err == ErrNotAllReady {
				g.hub.SendTo(sess.ID, EventError, err.Error())
			}
			return
		}
		g.metrics.IncMatchesStarted()
		g.broadcastRoom(room, EventGameStart, match)
		Log.Infof("match started: room=%s", room.ID)

	case MsgGameAction:
		var act GameAction
		if err := json.Unmarshal(env.Data, &act); err != nil {
			return
		}
		room, ok := g.rooms.Get(sess.RoomID)
		if !ok {
			return
		}
		g.engine.ApplyAction(room, sess.ID, act)

	case MsgChatMessage:
		var req ChatRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			return
		}
		msg := ChatMessageEvent{
			Sender:    sess.Nickname(),
			Content:   req.Message,
			Type:      req.Type,
			Timestamp: time.Now().UnixMilli(),
		}
		if req.Type == "room" && sess.RoomID != "" {
			if room, ok := g.rooms.Get(sess.RoomID); ok {
				g.broadcastRoomExcept(room, sess.ID, EventChatMessage, msg)
			}
			return
		}
		// 全体聊天不回发给发送者，客户端本地回显
		g.hub.BroadcastAllExcept(sess.ID, EventChatMessage, msg)
	}
}

// leaveRoom 把会话移出当前房间；announce 用于断线场景，给剩余成员补一条系统消息
func (g *Gateway) leaveRoom(sess *PlayerSession, announce bool) {
	room, left := g.rooms.Leave(sess)
	if !left {
		return
	}
	sess.SetReady(false)
	if room != nil {
		g.broadcastRoom(room, EventRoomUpdate, room.Snapshot())
		if announce {
			g.broadcastRoom(room, EventSystemMessage, fmt.Sprintf("%s left the room", sess.Nickname()))
		}
	}
	// 房间人数变化影响所有人的大厅视图
	g.hub.BroadcastAll(EventRoomListUpdate, nil)
}

func (g *Gateway) onDisconnect(sess *PlayerSession) {
	g.hub.Unregister(sess.ID)
	Log.Infof("player disconnected: %s (online %d)", sess.ID, g.hub.OnlineCount())
	g.leaveRoom(sess, true)
	g.hub.BroadcastAll(EventOnlineCount, g.hub.OnlineCount())
}

// broadcastRoom 发给房间全体成员（调用方不持有 room.mu）
func (g *Gateway) broadcastRoom(room *Room, event string, payload any) {
	for _, id := range room.MemberIDs() {
		g.hub.SendTo(id, event, payload)
	}
}

func (g *Gateway) broadcastRoomExcept(room *Room, exceptID, event string, payload any) {
	for _, id := range room.MemberIDs() {
		if id == exceptID {
			continue
		}
		g.hub.SendTo(id, event, payload)
	}
}
