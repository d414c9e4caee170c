package server

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// RoomState 房间生命周期状态，直接用于线上协议字段
type RoomState string

const (
	StateWaiting  RoomState = "waiting"
	StatePlaying  RoomState = "playing"
	StateFinished RoomState = "finished"
)

var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrRoomFull         = errors.New("room is full")
	ErrNotHost          = errors.New("only the host can start the game")
	ErrNotEnoughPlayers = errors.New("need two players to start")
	ErrNotAllReady      = errors.New("not all players are ready")
)

// PlayerState 对局内单个玩家的权威状态，按加入顺序落在 player1/player2 槽位
type PlayerState struct {
	Health  int     `json:"health"`
	Bullets int     `json:"bullets"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Char    int     `json:"char"`
}

// MatchData 一局比赛的完整权威状态
type MatchData struct {
	Player1 PlayerState `json:"player1"`
	Player2 PlayerState `json:"player2"`
}

// defaultMatchData 等待状态下的占位对局数据；startGame 时按实际选角重建
func defaultMatchData() MatchData {
	return MatchData{
		Player1: PlayerState{Health: 100, Bullets: 3, X: 100, Y: 300, Char: 1},
		Player2: PlayerState{Health: 70, Bullets: 3, X: 700, Y: 300, Char: 2},
	}
}

// Room 房间实体：权威对局状态 + 成员列表，所有改动必须持有 mu
// 两个玩家的输入来自独立连接，靠这把锁串行化
type Room struct {
	mu sync.Mutex

	ID     string
	Name   string
	HostID string

	// 成员按加入顺序排列（≤2），下标即 player1/player2 槽位
	Players []*PlayerSession

	State     RoomState
	Match     MatchData
	StartTime time.Time

	// 延迟效果的防护令牌：开局和重置时递增，
	// 定时器触发时若发现代数不符则直接丢弃
	generation uint64
}

// NewRoom 创建房间，owner 成为唯一成员兼房主
func NewRoom(id, name string, owner *PlayerSession) *Room {
	return &Room{
		ID:      id,
		Name:    name,
		HostID:  owner.ID,
		Players: []*PlayerSession{owner},
		State:   StateWaiting,
		Match:   defaultMatchData(),
	}
}

// Join 追加成员，满员返回 ErrRoomFull 且不改动房间
func (r *Room) Join(s *PlayerSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Players) >= 2 {
		return ErrRoomFull
	}
	r.Players = append(r.Players, s)
	return nil
}

// Leave 移除成员；若房主离开则由剩余成员顺位接任
// 返回值 empty 表示房间已无人，调用方应将其从注册表删除
func (r *Room) Leave(connID string) (removed, empty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, p := range r.Players {
		if p.ID == connID {
			r.Players = append(r.Players[:i], r.Players[i+1:]...)
			removed = true
			break
		}
	}
	if !removed {
		return false, len(r.Players) == 0
	}
	if len(r.Players) == 0 {
		return true, true
	}
	if r.HostID == connID {
		r.HostID = r.Players[0].ID
	}
	return true, false
}

// ToggleReady 翻转准备标记，仅 Waiting 状态合法
func (r *Room) ToggleReady(connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.State != StateWaiting {
		return false
	}
	for _, p := range r.Players {
		if p.ID == connID {
			p.ToggleReady()
			return true
		}
	}
	return false
}

// ChangeCharacter 切换选角，仅 Waiting 状态合法
func (r *Room) ChangeCharacter(connID string, char int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.State != StateWaiting || !ValidCharacter(char) {
		return false
	}
	for _, p := range r.Players {
		if p.ID == connID {
			p.SetCharacter(char)
			return true
		}
	}
	return false
}

// Start 开局：要求调用者是房主、满两人且全员准备；
// 成功后按选角重建对局数据并返回其快照用于 gameStart 广播
func (r *Room) Start(connID string) (MatchData, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.State != StateWaiting {
		return MatchData{}, ErrNotEnoughPlayers
	}
	if r.HostID != connID {
		return MatchData{}, ErrNotHost
	}
	if len(r.Players) != 2 {
		return MatchData{}, ErrNotEnoughPlayers
	}
	for _, p := range r.Players {
		if !p.Ready() {
			return MatchData{}, ErrNotAllReady
		}
	}

	c1 := r.Players[0].Character()
	c2 := r.Players[1].Character()
	r.Match = MatchData{
		Player1: PlayerState{Health: StatsFor(c1).MaxHealth, Bullets: 3, X: 100, Y: 300, Char: c1},
		Player2: PlayerState{Health: StatsFor(c2).MaxHealth, Bullets: 3, X: 700, Y: 300, Char: c2},
	}
	r.State = StatePlaying
	r.StartTime = time.Now()
	r.generation++
	return r.Match, nil
}

// Snapshot 导出房间快照（roomUpdate 载荷）
func (r *Room) Snapshot() *RoomInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Room) snapshotLocked() *RoomInfo {
	info := &RoomInfo{
		ID:        r.ID,
		Name:      r.Name,
		Host:      r.HostID,
		Players:   make([]RoomPlayerInfo, 0, len(r.Players)),
		GameState: r.State,
	}
	for _, p := range r.Players {
		info.Players = append(info.Players, p.Info())
	}
	return info
}

// ListEntry 导出大厅列表条目
func (r *Room) ListEntry() RoomListEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.Players)
	return RoomListEntry{
		ID:      r.ID,
		Name:    r.Name,
		Players: fmt.Sprintf("%d/2", n),
		IsFull:  n >= 2,
	}
}

// MemberIDs 成员连接标识快照，供房间范围广播使用
func (r *Room) MemberIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.Players))
	for _, p := range r.Players {
		ids = append(ids, p.ID)
	}
	return ids
}

// slotOf 按加入顺序把连接解析为槽位下标（0=player1，1=player2），未找到返回 -1
// 调用方必须已持有 r.mu
func (r *Room) slotOf(connID string) int {
	for i, p := range r.Players {
		if p.ID == connID {
			return i
		}
	}
	return -1
}

// stateOf 取槽位对应的对局状态指针，调用方必须已持有 r.mu
func (r *Room) stateOf(slot int) *PlayerState {
	if slot == 0 {
		return &r.Match.Player1
	}
	return &r.Match.Player2
}

// slotKey 槽位在协议中的名字
func slotKey(slot int) string {
	if slot == 0 {
		return "player1"
	}
	return "player2"
}
