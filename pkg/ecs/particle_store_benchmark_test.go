package ecs

import "testing"

// ========== 辅助函数：创建测试数据 ==========

// setupBenchmarkStore 创建指定数量的活跃粒子
func setupBenchmarkStore(count int, layout Layout) *ParticleStore {
	s := NewParticleStore(layout, count, 0)
	for i := 0; i < count; i++ {
		slot, _ := s.Spawn()
		s.Particle(slot).RelativeTime = float64(i%100) / 100
	}
	return s
}

// ========== 基准测试：遍历 ==========

// BenchmarkIterate_1000 测试遍历 1000 个粒子并读取碰撞 payload
func BenchmarkIterate_1000(b *testing.B) {
	s := setupBenchmarkStore(1000, Layout{Collision: true, OrbitLayers: 2})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		sum := 0
		for j := s.Len() - 1; j >= 0; j-- {
			sum += s.Collision(s.SlotAt(j)).UsedCollisions
		}
		_ = sum
	}
}

// ========== 基准测试：生成与删除 ==========

// BenchmarkSpawnKill 测试满负荷下的生成/删除循环
func BenchmarkSpawnKill(b *testing.B) {
	s := setupBenchmarkStore(1000, Layout{Collision: true, OrbitLayers: 2, MeshRotation: true})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.KillAt(i % s.Len())
		s.Spawn()
	}
}

// BenchmarkGrow 测试从小容量开始增长
func BenchmarkGrow(b *testing.B) {
	for i := 0; i < b.N; i++ {
		s := NewParticleStore(Layout{Collision: true}, 1, 0)
		for j := 0; j < 4096; j++ {
			s.Spawn()
		}
	}
}
