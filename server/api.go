package server

import (
	"encoding/json"
	"net/http"
)

// API HTTP 只读/辅助接口：大厅用轮询方式拉房间列表与排行榜
type API struct {
	rooms    *RoomRegistry
	rankings *RankingStore
	metrics  *ServerMetrics
}

func NewAPI(rooms *RoomRegistry, rankings *RankingStore, metrics *ServerMetrics) *API {
	return &API{rooms: rooms, rankings: rankings, metrics: metrics}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// HandleRooms 房间列表
// GET /api/rooms -> [{id,name,players:"n/2",isFull}]
func (a *API) HandleRooms(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, a.rooms.List())
}

// HandleRankings 排行榜
// GET  /api/rankings           -> 胜场前 10 名
// POST /api/rankings {nickname} -> 手动给昵称记一个胜场（对局结束自动记胜的兜底入口）
func (a *API) HandleRankings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, a.rankings.TopN(10))
	case http.MethodPost:
		var body struct {
			Nickname string `json:"nickname"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Nickname == "" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "nickname is required"})
			return
		}
		wins := a.rankings.RecordWin(body.Nickname)
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "wins": wins})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleMetrics 输出运行指标
// GET /metrics
func (a *API) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, a.metrics.Snapshot())
}
