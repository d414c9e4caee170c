package server

import (
	"strconv"
	"sync"
	"time"
)

// RoomRegistry 管理全部房间的生命周期：创建、查找、销毁
type RoomRegistry struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{rooms: make(map[string]*Room)}
}

// Create 新建房间：分配时间派生的唯一编号，owner 成为唯一成员兼房主
func (m *RoomRegistry) Create(owner *PlayerSession, name string, character int) *Room {
	if ValidCharacter(character) {
		owner.SetCharacter(character)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id := strconv.FormatInt(time.Now().UnixNano(), 10)
	for i := 1; ; i++ {
		if _, exists := m.rooms[id]; !exists {
			break
		}
		id = strconv.FormatInt(time.Now().UnixNano(), 10) + "-" + strconv.Itoa(i)
	}
	room := NewRoom(id, name, owner)
	m.rooms[id] = room
	owner.RoomID = id
	return room
}

// Get 查找房间
func (m *RoomRegistry) Get(id string) (*Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[id]
	return r, ok
}

// Join 加入指定房间；不存在或已满时返回错误且不改动任何状态
func (m *RoomRegistry) Join(id string, s *PlayerSession) (*Room, error) {
	m.mu.RLock()
	room, ok := m.rooms[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrRoomNotFound
	}
	if err := room.Join(s); err != nil {
		return nil, err
	}
	s.RoomID = id
	return room, nil
}

// Leave 将连接移出其所在房间；最后一人离开时房间随之销毁
// 返回仍然存活的房间（已空并删除时为 nil）
func (m *RoomRegistry) Leave(s *PlayerSession) (*Room, bool) {
	if s.RoomID == "" {
		return nil, false
	}
	m.mu.Lock()
	room, ok := m.rooms[s.RoomID]
	if !ok {
		s.RoomID = ""
		m.mu.Unlock()
		return nil, false
	}
	removed, empty := room.Leave(s.ID)
	if empty {
		delete(m.rooms, s.RoomID)
	}
	m.mu.Unlock()

	s.RoomID = ""
	if !removed {
		return nil, false
	}
	if empty {
		return nil, true
	}
	return room, true
}

// List 大厅房间列表（与 /api/rooms 共用）
func (m *RoomRegistry) List() []RoomListEntry {
	m.mu.RLock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mu.RUnlock()

	entries := make([]RoomListEntry, 0, len(rooms))
	for _, r := range rooms {
		entries = append(entries, r.ListEntry())
	}
	return entries
}
