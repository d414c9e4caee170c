package server

import "encoding/json"

// 入站消息类型（客户端 → 服务端）
const (
	MsgSetNickname     = "setNickname"
	MsgCreateRoom      = "createRoom"
	MsgJoinRoom        = "joinRoom"
	MsgLeaveRoom       = "leaveRoom"
	MsgToggleReady     = "toggleReady"
	MsgChangeCharacter = "changeCharacter"
	MsgStartGame       = "startGame"
	MsgGameAction      = "gameAction"
	MsgChatMessage     = "chatMessage"
	MsgPing            = "ping"
)

// 出站事件类型（服务端 → 客户端）
const (
	EventNicknameSet    = "nicknameSet"
	EventSystemMessage  = "systemMessage"
	EventRoomListUpdate = "roomListUpdate"
	EventRoomCreated    = "roomCreated"
	EventRoomJoined     = "roomJoined"
	EventRoomUpdate     = "roomUpdate"
	EventGameStart      = "gameStart"
	EventGameUpdate     = "gameUpdate"
	EventAttackHit      = "attackHit"
	EventPlayerHit      = "playerHit"
	EventSpecialAttack  = "specialAttack"
	EventReloadComplete = "reloadComplete"
	EventGameEnd        = "gameEnd"
	EventChatMessage    = "chatMessage"
	EventOnlineCount    = "onlineCount"
	EventError          = "error"
	EventPong           = "pong"
)

// Envelope 统一消息信封：所有 WebSocket 文本帧均为 {"type":"...","data":{...}}
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// EncodeEvent 将事件打包为信封字节串
func EncodeEvent(typ string, payload any) ([]byte, error) {
	env := Envelope{Type: typ}
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		env.Data = b
	}
	return json.Marshal(env)
}

// ---- 入站载荷 ----

type SetNicknameRequest struct {
	Nickname string `json:"nickname"`
}

type CreateRoomRequest struct {
	RoomName  string `json:"roomName"`
	Character int    `json:"character"`
}

type JoinRoomRequest struct {
	RoomID string `json:"roomId"`
}

type ChangeCharacterRequest struct {
	Character int `json:"character"`
}

// GameAction 对局内动作：move / attack / reload
// dx、dy 取 {-1,0,1}；mouseX、mouseY 仅对远程攻击有意义
type GameAction struct {
	Type   string  `json:"type"`
	Dx     float64 `json:"dx"`
	Dy     float64 `json:"dy"`
	MouseX float64 `json:"mouseX"`
	MouseY float64 `json:"mouseY"`
}

const (
	ActionMove   = "move"
	ActionAttack = "attack"
	ActionReload = "reload"
)

type ChatRequest struct {
	Message string `json:"message"`
	Type    string `json:"type"` // "all" 或 "room"
}

// ping/pong 的载荷就是客户端时间戳本身，不包结构体

// ---- 出站载荷 ----

type NicknameSetEvent struct {
	Success  bool   `json:"success"`
	Nickname string `json:"nickname"`
}

type RoomEvent struct {
	RoomID string    `json:"roomId"`
	Room   *RoomInfo `json:"room"`
}

// RoomInfo 房间快照，发给房间成员用于刷新大厅/等待界面
type RoomInfo struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Host      string           `json:"host"`
	Players   []RoomPlayerInfo `json:"players"`
	GameState RoomState        `json:"gameState"`
}

type RoomPlayerInfo struct {
	ID        string `json:"id"`
	Nickname  string `json:"nickname"`
	Character int    `json:"character"`
	Ready     bool   `json:"ready"`
}

// RoomListEntry 大厅房间列表条目（/api/rooms 同款）
type RoomListEntry struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Players string `json:"players"` // "n/2"
	IsFull  bool   `json:"isFull"`
}

type AttackHitEvent struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Attacker string  `json:"attacker"`
	Target   string  `json:"target"`
	Special  bool    `json:"special,omitempty"`
}

type PlayerHitEvent struct {
	Target  string `json:"target"`
	Damage  int    `json:"damage"`
	Special bool   `json:"special,omitempty"`
}

type SpecialAttackEvent struct {
	Player string `json:"player"`
	Damage int    `json:"damage"`
	Hit    bool   `json:"hit"`
}

type ReloadCompleteEvent struct {
	Player string `json:"player"`
}

type GameEndEvent struct {
	Winner   string `json:"winner"`
	Loser    string `json:"loser"`
	GameTime int64  `json:"gameTime"` // 毫秒
}

type ChatMessageEvent struct {
	Sender    string `json:"sender"`
	Content   string `json:"content"`
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}
