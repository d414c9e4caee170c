package server

import (
	"math"
	"time"
)

// specialAttackDelay 第三发子弹打出后到特殊攻击结算的间隔
const specialAttackDelay = 100 * time.Millisecond

// matchResetDelay 完局后回到等待状态的延迟（测试中会调短）
var matchResetDelay = 5 * time.Second

// Engine 战斗模拟器：对局内动作的唯一解算入口
// 所有对房间状态的改动都在 room.mu 之下进行；
// 延迟效果（特殊攻击、换弹、完局重置）触发时重新取锁并校验房间仍处于预期状态
type Engine struct {
	out      Broadcaster
	rooms    *RoomRegistry
	rankings *RankingStore
	metrics  *ServerMetrics
}

func NewEngine(out Broadcaster, rooms *RoomRegistry, rankings *RankingStore, metrics *ServerMetrics) *Engine {
	return &Engine{out: out, rooms: rooms, rankings: rankings, metrics: metrics}
}

// ApplyAction 解算一次对局动作。房间不在对局中、或连接不是房间成员时静默忽略
func (e *Engine) ApplyAction(room *Room, connID string, act GameAction) {
	room.mu.Lock()
	defer room.mu.Unlock()
	if room.State != StatePlaying {
		return
	}
	slot := room.slotOf(connID)
	if slot < 0 {
		return
	}
	e.metrics.IncActions()

	switch act.Type {
	case ActionMove:
		e.applyMove(room, slot, act)
	case ActionAttack:
		e.applyAttack(room, slot, act)
	case ActionReload:
		e.applyReload(room, slot)
	default:
		return
	}

	e.checkGameEnd(room)
	e.broadcastMatch(room)
}

// applyMove 按角色步长移动一格，写入前裁剪到场地边界
func (e *Engine) applyMove(room *Room, slot int, act GameAction) {
	ps := room.stateOf(slot)
	st := StatsFor(ps.Char)
	ps.X = clampX(ps.X + clampDir(act.Dx)*st.MoveSpeed)
	ps.Y = clampY(ps.Y + clampDir(act.Dy)*st.MoveSpeed)
}

// applyAttack 普通攻击：没有子弹时静默忽略；打空最后一发时预约特殊攻击
func (e *Engine) applyAttack(room *Room, slot int, act GameAction) {
	ps := room.stateOf(slot)
	opp := room.stateOf(1 - slot)
	if ps.Bullets <= 0 {
		return
	}
	ps.Bullets--
	st := StatsFor(ps.Char)

	var aimX, aimY float64
	hit := false
	if ps.Char == 1 {
		// 远程：弹道沿瞄准方向最多飞行 AttackRange，路径上取首个命中
		aimX, aimY = normalize(act.MouseX-ps.X, act.MouseY-ps.Y)
		travel := math.Hypot(act.MouseX-ps.X, act.MouseY-ps.Y)
		if travel > st.AttackRange {
			travel = st.AttackRange
		}
		tx := ps.X + aimX*travel
		ty := ps.Y + aimY*travel
		hit = pathHits(ps.X, ps.Y, tx, ty, st.AttackSteps, opp.X, opp.Y, st.HitRadius)
	} else {
		// 冲刺：先位移后判定，对自己的移动轨迹采样
		aimX, aimY = normalize(act.Dx, act.Dy)
		oldX, oldY := ps.X, ps.Y
		ps.X = clampX(ps.X + aimX*st.DashDistance)
		ps.Y = clampY(ps.Y + aimY*st.DashDistance)
		hit = pathHits(oldX, oldY, ps.X, ps.Y, st.AttackSteps, opp.X, opp.Y, st.HitRadius)
	}

	if hit {
		e.roomEmit(room, EventAttackHit, AttackHitEvent{
			X: opp.X, Y: opp.Y,
			Attacker: slotKey(slot), Target: slotKey(1 - slot),
		})
		opp.Health = max(0, opp.Health-st.AttackDamage)
		e.roomEmit(room, EventPlayerHit, PlayerHitEvent{
			Target: slotKey(1 - slot), Damage: st.AttackDamage,
		})
	}

	// 弹药耗尽：用本次攻击捕获的瞄准向量，100ms 后追加一次特殊攻击结算
	if ps.Bullets == 0 {
		roomID, gen := room.ID, room.generation
		time.AfterFunc(specialAttackDelay, func() {
			e.resolveSpecial(roomID, slot, aimX, aimY, gen)
		})
	}
}

// resolveSpecial 特殊攻击的延迟结算。
// 房间可能已被销毁、对局可能已结束，先校验再动手；不满足条件时整个效果作废
func (e *Engine) resolveSpecial(roomID string, slot int, aimX, aimY float64, gen uint64) {
	room, ok := e.rooms.Get(roomID)
	if !ok {
		return
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	if room.State != StatePlaying || room.generation != gen {
		return
	}

	ps := room.stateOf(slot)
	opp := room.stateOf(1 - slot)
	st := StatsFor(ps.Char)

	oldX, oldY := ps.X, ps.Y
	ps.X = clampX(ps.X + aimX*st.SpecialDistance)
	ps.Y = clampY(ps.Y + aimY*st.SpecialDistance)
	hit := pathHits(oldX, oldY, ps.X, ps.Y, st.SpecialSteps, opp.X, opp.Y, st.SpecialRadius)

	if hit {
		if ps.Char == 1 {
			// 命中后沿瞄准方向击退
			opp.X = clampX(opp.X + aimX*st.KnockbackDist)
			opp.Y = clampY(opp.Y + aimY*st.KnockbackDist)
		} else {
			// 抓取：把对手放到自己身后固定距离处
			opp.X = clampX(ps.X - aimX*st.GrabDist)
			opp.Y = clampY(ps.Y - aimY*st.GrabDist)
		}
		e.roomEmit(room, EventAttackHit, AttackHitEvent{
			X: opp.X, Y: opp.Y,
			Attacker: slotKey(slot), Target: slotKey(1 - slot),
			Special: true,
		})
		opp.Health = max(0, opp.Health-st.SpecialDamage)
		e.roomEmit(room, EventPlayerHit, PlayerHitEvent{
			Target: slotKey(1 - slot), Damage: st.SpecialDamage, Special: true,
		})
	}

	e.checkGameEnd(room)
	e.broadcastMatch(room)
	// 无论是否命中都通知客户端播放特殊攻击表现
	e.roomEmit(room, EventSpecialAttack, SpecialAttackEvent{
		Player: slotKey(slot), Damage: st.SpecialDamage, Hit: hit,
	})
}

// applyReload 预约换弹。重复触发只是再排一个定时器，后到的覆盖先到的效果
func (e *Engine) applyReload(room *Room, slot int) {
	ps := room.stateOf(slot)
	st := StatsFor(ps.Char)
	roomID := room.ID
	time.AfterFunc(st.ReloadTime, func() {
		e.completeReload(roomID, slot)
	})
}

// completeReload 换弹完成。只要房间还在就补满子弹——
// 对局结束不取消换弹定时器，弹药可能补进等待状态的房间（下次开局会覆盖）
func (e *Engine) completeReload(roomID string, slot int) {
	room, ok := e.rooms.Get(roomID)
	if !ok {
		return
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	room.stateOf(slot).Bullets = 3
	e.broadcastMatch(room)
	e.roomEmit(room, EventReloadComplete, ReloadCompleteEvent{Player: slotKey(slot)})
}

// checkGameEnd 终局检测：任一方血量归零则结束对局并记胜场。
// player1 先被检查，双方同时归零时由 player2 获胜（沿用既有线上行为）
// 调用方必须已持有 room.mu
func (e *Engine) checkGameEnd(room *Room) {
	if room.State != StatePlaying {
		return
	}
	p1 := &room.Match.Player1
	p2 := &room.Match.Player2
	if p1.Health > 0 && p2.Health > 0 {
		return
	}

	room.State = StateFinished
	room.generation++ // 悬而未决的特殊攻击就此作废
	e.metrics.IncMatchesDone()

	winnerSlot := 0
	if p1.Health <= 0 {
		winnerSlot = 1
	}
	if len(room.Players) == 2 {
		winnerNick := room.Players[winnerSlot].Nickname()
		loserNick := room.Players[1-winnerSlot].Nickname()
		wins := e.rankings.RecordWin(winnerNick)
		e.roomEmit(room, EventGameEnd, GameEndEvent{
			Winner:   winnerNick,
			Loser:    loserNick,
			GameTime: time.Since(room.StartTime).Milliseconds(),
		})
		Log.Infof("match finished: room=%s winner=%s wins=%d", room.ID, winnerNick, wins)
	}

	roomID, gen := room.ID, room.generation
	time.AfterFunc(matchResetDelay, func() {
		e.resetMatch(roomID, gen)
	})
}

// resetMatch 完局 5 秒后把房间送回等待状态，对局数据恢复默认值。
// 期间房间可能已销毁甚至重开，一切以校验为准
func (e *Engine) resetMatch(roomID string, gen uint64) {
	room, ok := e.rooms.Get(roomID)
	if !ok {
		return
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	if room.State != StateFinished || room.generation != gen {
		return
	}
	room.State = StateWaiting
	room.Match = defaultMatchData()
	room.generation++
}

// roomEmit 发给房间全体成员。调用方已持有 room.mu，直接遍历成员表
func (e *Engine) roomEmit(room *Room, event string, payload any) {
	for _, p := range room.Players {
		e.out.SendTo(p.ID, event, payload)
	}
}

func (e *Engine) broadcastMatch(room *Room) {
	e.roomEmit(room, EventGameUpdate, room.Match)
}

// pathHits 沿 from→to 的线段均匀采样 steps 次，检测是否有采样点进入目标半径
// 取路径顺序上的首个命中，而不是空间最近点
func pathHits(fromX, fromY, toX, toY float64, steps int, targetX, targetY, radius float64) bool {
	for i := 1; i <= steps; i++ {
		t := float64(i) / float64(steps)
		x := fromX + (toX-fromX)*t
		y := fromY + (toY-fromY)*t
		if math.Hypot(x-targetX, y-targetY) <= radius {
			return true
		}
	}
	return false
}

// normalize 归一化方向向量，零向量原样返回
func normalize(dx, dy float64) (float64, float64) {
	l := math.Hypot(dx, dy)
	if l == 0 {
		return 0, 0
	}
	return dx / l, dy / l
}

// clampDir 把输入方向压到 {-1,0,1}
func clampDir(d float64) float64 {
	if d > 0 {
		return 1
	}
	if d < 0 {
		return -1
	}
	return 0
}
