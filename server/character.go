package server

import "time"

// 竞技场边界：800×600 画布减去 25px 边距，所有坐标写入都裁剪到该矩形
const (
	ArenaMinX = 25.0
	ArenaMaxX = 775.0
	ArenaMinY = 25.0
	ArenaMaxY = 575.0
)

// CharacterStats 角色固定属性表（契约值，运行期不可调）
type CharacterStats struct {
	MaxHealth int
	MoveSpeed float64 // 每次 move 动作的位移步长

	// 普通攻击
	AttackDamage int
	AttackRange  float64 // 远程弹道最大射程（仅角色1）
	DashDistance float64 // 普攻冲刺距离（仅角色2）
	AttackSteps  int     // 路径采样次数
	HitRadius    float64 // 命中判定半径

	// 弹药耗尽触发的特殊攻击
	SpecialDamage   int
	SpecialDistance float64
	SpecialSteps    int
	SpecialRadius   float64
	KnockbackDist   float64 // 角色1：命中后沿瞄准方向击退对手
	GrabDist        float64 // 角色2：命中后把对手拉到身后的距离

	ReloadTime time.Duration
}

var characterTable = map[int]CharacterStats{
	1: {
		MaxHealth:       100,
		MoveSpeed:       10,
		AttackDamage:    15,
		AttackRange:     400,
		AttackSteps:     20,
		HitRadius:       30,
		SpecialDamage:   40,
		SpecialDistance: 80,
		SpecialSteps:    30,
		SpecialRadius:   40,
		KnockbackDist:   60,
		ReloadTime:      2000 * time.Millisecond,
	},
	2: {
		MaxHealth:       70,
		MoveSpeed:       15,
		AttackDamage:    12,
		DashDistance:    50,
		AttackSteps:     25,
		HitRadius:       35,
		SpecialDamage:   35,
		SpecialDistance: 100,
		SpecialSteps:    35,
		SpecialRadius:   40,
		GrabDist:        80,
		ReloadTime:      3000 * time.Millisecond,
	},
}

// StatsFor 查表取角色属性，未知编号回落到角色1
func StatsFor(char int) CharacterStats {
	if s, ok := characterTable[char]; ok {
		return s
	}
	return characterTable[1]
}

// ValidCharacter 判断角色编号是否在选择范围内
func ValidCharacter(char int) bool {
	_, ok := characterTable[char]
	return ok
}

func clampX(x float64) float64 {
	if x < ArenaMinX {
		return ArenaMinX
	}
	if x > ArenaMaxX {
		return ArenaMaxX
	}
	return x
}

func clampY(y float64) float64 {
	if y < ArenaMinY {
		return ArenaMinY
	}
	if y > ArenaMaxY {
		return ArenaMaxY
	}
	return y
}
