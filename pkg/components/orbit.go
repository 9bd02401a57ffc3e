package components

import "github.com/gonewx/particlesim/pkg/vmath"

// OrbitPayload 一个 orbit 层的每粒子数据
type OrbitPayload struct {
	BaseOffset     vmath.Vec3
	Offset         vmath.Vec3
	PreviousOffset vmath.Vec3 // 本帧更新前的 Offset，用于插值

	Rotation vmath.Vec3 // 圈数，1 = 360 度

	BaseRotationRate vmath.Vec3
	RotationRate     vmath.Vec3
}
