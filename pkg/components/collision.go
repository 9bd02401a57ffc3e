package components

import "github.com/gonewx/particlesim/pkg/vmath"

// CollisionPayload 碰撞模块的每粒子数据
// 在粒子生成时采样，命中时修改，随粒子销毁
type CollisionPayload struct {
	UsedDampingFactor         vmath.Vec3
	UsedDampingFactorRotation vmath.Vec3
	UsedCollisions            int     // 剩余可碰撞次数
	Delay                     float64 // 与 RelativeTime 比较
}

// CollisionInstancePayload 碰撞模块的每发射器实例数据
type CollisionInstancePayload struct {
	// LODBoundsCheckCount 为 0 时重新计算观察者是否在扩展包围盒内
	LODBoundsCheckCount uint8
	// ObserverInRange 上一次包围盒检查的结果
	ObserverInRange bool
}
