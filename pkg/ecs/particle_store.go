// Package ecs 提供粒子的紧凑存储：粒子槽位数组加上按类型分开的 payload 数组。
//
// payload 按 PayloadKind 和槽位下标访问，不依赖模块指针或反射。
package ecs

import "github.com/gonewx/particlesim/pkg/components"

// PayloadKind 标识一种每粒子 payload
type PayloadKind int

const (
	PayloadCollision PayloadKind = iota
	PayloadOrbit
	PayloadMeshRotation
)

func (k PayloadKind) String() string {
	switch k {
	case PayloadCollision:
		return "collision"
	case PayloadOrbit:
		return "orbit"
	case PayloadMeshRotation:
		return "meshRotation"
	default:
		return "unknown"
	}
}

// Layout 声明一个发射器实例需要哪些 payload
type Layout struct {
	Collision    bool
	OrbitLayers  int
	MeshRotation bool
}

// Has reports whether the layout allocates the given payload kind.
func (l Layout) Has(kind PayloadKind) bool {
	switch kind {
	case PayloadCollision:
		return l.Collision
	case PayloadOrbit:
		return l.OrbitLayers > 0
	case PayloadMeshRotation:
		return l.MeshRotation
	}
	return false
}

// ParticleStore 管理一个发射器实例的所有粒子
//
// indices[:active] 是活跃粒子的槽位，indices[active:] 是空闲槽位。
// 删除粒子时与最后一个活跃槽位交换，因此遍历时允许删除的循环必须倒序进行。
type ParticleStore struct {
	layout    Layout
	maxActive int // 0 表示不限制

	particles []components.Particle
	indices   []int
	active    int
	counter   uint32 // 生成序号

	collision    []components.CollisionPayload
	orbit        [][]components.OrbitPayload // [layer][slot]
	meshRotation []components.MeshRotationPayload
}

// NewParticleStore 创建一个新的 ParticleStore 实例
// 参数: capacity - 初始槽位数量, maxActive - 活跃粒子上限（0 表示不限制）
func NewParticleStore(layout Layout, capacity, maxActive int) *ParticleStore {
	if capacity <= 0 {
		capacity = 16
	}
	if maxActive > 0 && capacity > maxActive {
		capacity = maxActive
	}
	s := &ParticleStore{
		layout:    layout,
		maxActive: maxActive,
		orbit:     make([][]components.OrbitPayload, layout.OrbitLayers),
	}
	s.grow(capacity)
	return s
}

func (s *ParticleStore) grow(n int) {
	start := len(s.particles)
	s.particles = append(s.particles, make([]components.Particle, n)...)
	for i := 0; i < n; i++ {
		s.indices = append(s.indices, start+i)
	}
	if s.layout.Collision {
		s.collision = append(s.collision, make([]components.CollisionPayload, n)...)
	}
	for l := range s.orbit {
		s.orbit[l] = append(s.orbit[l], make([]components.OrbitPayload, n)...)
	}
	if s.layout.MeshRotation {
		s.meshRotation = append(s.meshRotation, make([]components.MeshRotationPayload, n)...)
	}
}

func (s *ParticleStore) Layout() Layout {
	return s.layout
}

// Len 返回活跃粒子数量
func (s *ParticleStore) Len() int {
	return s.active
}

// Cap 返回已分配的槽位数量
func (s *ParticleStore) Cap() int {
	return len(s.particles)
}

// SlotAt 返回第 i 个活跃粒子的槽位
func (s *ParticleStore) SlotAt(i int) int {
	return s.indices[i]
}

// At 返回第 i 个活跃粒子
func (s *ParticleStore) At(i int) *components.Particle {
	return &s.particles[s.indices[i]]
}

// Particle 按槽位返回粒子
func (s *ParticleStore) Particle(slot int) *components.Particle {
	return &s.particles[slot]
}

// Collision 返回槽位的碰撞 payload，布局中没有碰撞 payload 时 panic
func (s *ParticleStore) Collision(slot int) *components.CollisionPayload {
	return &s.collision[slot]
}

// Orbit 返回指定 orbit 层的 payload
func (s *ParticleStore) Orbit(layer, slot int) *components.OrbitPayload {
	return &s.orbit[layer][slot]
}

func (s *ParticleStore) OrbitLayers() int {
	return len(s.orbit)
}

func (s *ParticleStore) HasMeshRotation() bool {
	return s.layout.MeshRotation
}

// MeshRotation 返回槽位的 mesh 旋转 payload
func (s *ParticleStore) MeshRotation(slot int) *components.MeshRotationPayload {
	return &s.meshRotation[slot]
}

// Spawn 激活一个新粒子并清零它的所有 payload
// 达到 maxActive 时返回 false
func (s *ParticleStore) Spawn() (int, bool) {
	if s.maxActive > 0 && s.active >= s.maxActive {
		return 0, false
	}
	if s.active == len(s.particles) {
		n := len(s.particles)
		if s.maxActive > 0 && n*2 > s.maxActive {
			s.grow(s.maxActive - n)
		} else {
			s.grow(n)
		}
	}

	slot := s.indices[s.active]
	s.active++

	s.particles[slot] = components.Particle{}
	s.particles[slot].Flags = components.Flags(s.counter) & components.FlagCounterMask
	s.counter++

	if s.layout.Collision {
		s.collision[slot] = components.CollisionPayload{}
	}
	for l := range s.orbit {
		s.orbit[l][slot] = components.OrbitPayload{}
	}
	if s.layout.MeshRotation {
		s.meshRotation[slot] = components.MeshRotationPayload{}
	}
	return slot, true
}

// KillAt 删除第 i 个活跃粒子，返回它的槽位
// 最后一个活跃粒子被换到位置 i
func (s *ParticleStore) KillAt(i int) int {
	last := s.active - 1
	slot := s.indices[i]
	s.indices[i], s.indices[last] = s.indices[last], s.indices[i]
	s.active--
	return slot
}

// KillAll 删除所有粒子
func (s *ParticleStore) KillAll() {
	s.active = 0
}

// Spawned 返回累计生成的粒子数量
func (s *ParticleStore) Spawned() uint32 {
	return s.counter
}
