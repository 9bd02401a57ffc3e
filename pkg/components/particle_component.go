package components

import "github.com/gonewx/particlesim/pkg/vmath"

// Flags 粒子状态标志位
// 低 26 位保存生成序号，高位是状态标志
type Flags uint32

const (
	// FlagCounterMask 生成序号所占的位
	FlagCounterMask Flags = 0x03FFFFFF

	FlagFreeze               Flags = 0x04000000 // 停止一切更新
	FlagIgnoreCollisions     Flags = 0x08000000 // 不再参与碰撞检测
	FlagFreezeTranslation    Flags = 0x10000000 // 位置不再积分
	FlagFreezeRotation       Flags = 0x20000000 // 旋转不再积分
	FlagDelayCollisions      Flags = 0x40000000 // 碰撞延迟尚未结束
	FlagCollisionHasOccurred Flags = 0x80000000 // 至少发生过一次碰撞

	// CollisionIgnoreCheck 任一标志存在时碰撞模块跳过该粒子
	CollisionIgnoreCheck = FlagFreeze | FlagIgnoreCollisions | FlagFreezeTranslation | FlagFreezeRotation
)

// Has reports whether any bit of mask is set.
func (f Flags) Has(mask Flags) bool {
	return f&mask != 0
}

func (f *Flags) Set(mask Flags) {
	*f |= mask
}

func (f *Flags) Clear(mask Flags) {
	*f &^= mask
}

// Counter returns the spawn sequence number stored in the low bits.
func (f Flags) Counter() uint32 {
	return uint32(f & FlagCounterMask)
}

// Particle 单个粒子的运行时状态
// 由 ParticleStore 持有，每帧被各个模块原地修改
//
// Base* 字段是每帧重置时的基准值：Velocity、Size 和 RotationRate 在每帧开始时
// 从对应的 Base 字段恢复，再由模块叠加本帧的效果
type Particle struct {
	// Position (世界坐标，local space 发射器为组件空间)
	OldLocation vmath.Vec3
	Location    vmath.Vec3

	// Velocity (单位/秒)
	BaseVelocity vmath.Vec3
	Velocity     vmath.Vec3

	// Rotation (弧度)
	Rotation         float64
	BaseRotationRate float64
	RotationRate     float64

	// Size (缩放)
	BaseSize vmath.Vec3
	Size     vmath.Vec3

	// Lifecycle (生命周期)
	RelativeTime       float64 // 0..1, >1 表示已经死亡
	OneOverMaxLifetime float64

	Flags Flags
}

// Speed returns the length of the current velocity.
func (p *Particle) Speed() float64 {
	return p.Velocity.Size()
}
