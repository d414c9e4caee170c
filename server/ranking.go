package server

import (
	"encoding/json"
	"os"
	"sort"
	"sync"
)

// RankingEntry /api/rankings 的一行
type RankingEntry struct {
	Rank     int    `json:"rank"`
	Nickname string `json:"nickname"`
	Wins     int    `json:"wins"`
}

// RankingStore 昵称 → 胜场数的持久化计数器。
// 每次变更整文件重写；文件读写失败只记日志，绝不让进程崩溃
type RankingStore struct {
	mu   sync.Mutex
	path string
	wins map[string]int
}

// NewRankingStore 启动时加载排行文件，读不到就从空表开始
func NewRankingStore(path string) *RankingStore {
	s := &RankingStore{path: path, wins: make(map[string]int)}
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			Log.Warnf("load rankings %s failed: %v", path, err)
		}
		return s
	}
	if err := json.Unmarshal(data, &s.wins); err != nil {
		Log.Warnf("parse rankings %s failed: %v", path, err)
		s.wins = make(map[string]int)
	}
	return s
}

// RecordWin 给昵称加一个胜场并落盘，返回累计胜场
func (s *RankingStore) RecordWin(nickname string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wins[nickname]++
	s.saveLocked()
	return s.wins[nickname]
}

// Wins 查询单个昵称的胜场
func (s *RankingStore) Wins(nickname string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wins[nickname]
}

// TopN 按胜场降序取前 n 名；胜场相同按昵称字典序，保证输出稳定
func (s *RankingStore) TopN(n int) []RankingEntry {
	s.mu.Lock()
	entries := make([]RankingEntry, 0, len(s.wins))
	for nick, w := range s.wins {
		entries = append(entries, RankingEntry{Nickname: nick, Wins: w})
	}
	s.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Wins != entries[j].Wins {
			return entries[i].Wins > entries[j].Wins
		}
		return entries[i].Nickname < entries[j].Nickname
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// saveLocked 整文件重写，调用方必须已持有 s.mu
func (s *RankingStore) saveLocked() {
	data, err := json.MarshalIndent(s.wins, "", "  ")
	if err != nil {
		Log.Errorf("marshal rankings failed: %v", err)
		return
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		Log.Errorf("save rankings %s failed: %v", s.path, err)
	}
}
