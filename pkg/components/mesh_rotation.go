package components

import "github.com/gonewx/particlesim/pkg/vmath"

// MeshRotationPayload mesh 粒子的三轴旋转
type MeshRotationPayload struct {
	InitialRotation vmath.Vec3
	Rotation        vmath.Vec3
	RotationRate    vmath.Vec3
}
