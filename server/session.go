package server

import "sync"

// Sender 抽象连接的发送端，便于在测试中用假实现替换真实 WebSocket
type Sender interface {
	Enqueue(b []byte)
	Close()
}

// PlayerSession 每条连接的身份状态，由连接自身独占拥有；
// 房间的成员列表只持有引用快照。
// 可变身份字段（昵称、选角、准备标记）会被房间快照和结算定时器并发读取，
// 统一经由内部互斥锁访问；RoomID 只在连接自身的读协程上读写，不需要锁
type PlayerSession struct {
	ID     string // 连接唯一标识
	Conn   Sender
	RoomID string // 为空表示不在任何房间

	mu        sync.Mutex
	nickname  string // 为空表示尚未设置
	character int    // 1 或 2
	ready     bool
}

// NewPlayerSession 建立连接时创建，默认选择角色1
func NewPlayerSession(id string, conn Sender) *PlayerSession {
	return &PlayerSession{ID: id, character: 1, Conn: conn}
}

func (s *PlayerSession) Nickname() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nickname
}

func (s *PlayerSession) SetNickname(nick string) {
	s.mu.Lock()
	s.nickname = nick
	s.mu.Unlock()
}

func (s *PlayerSession) Character() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.character
}

func (s *PlayerSession) SetCharacter(char int) {
	s.mu.Lock()
	s.character = char
	s.mu.Unlock()
}

func (s *PlayerSession) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

func (s *PlayerSession) SetReady(v bool) {
	s.mu.Lock()
	s.ready = v
	s.mu.Unlock()
}

func (s *PlayerSession) ToggleReady() {
	s.mu.Lock()
	s.ready = !s.ready
	s.mu.Unlock()
}

// Info 导出为房间快照里的成员条目
func (s *PlayerSession) Info() RoomPlayerInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return RoomPlayerInfo{
		ID:        s.ID,
		Nickname:  s.nickname,
		Character: s.character,
		Ready:     s.ready,
	}
}
