package client

import (
	"math"
	"sort"

	"voxelarena/protocol"
)

// Shape 方块几何参数，只在工厂里给一次
type Shape struct {
	Unit float64 // 单位立方体边长
}

// Material 材质参数，所有实例共享同一份值
type Material struct {
	Shading   string
	Roughness float64
}

// Transform 每个实例独立的轻量变换
type Transform struct {
	Position protocol.Vec3
	Scale    float64
}

// TerrainInstance 一个地形方块的可渲染实例；值类型，实例之间不共享引用
type TerrainInstance struct {
	Key       string
	Transform Transform
	Color     string
	Material  Material
}

// HalfExtent 实例半边长
func (t TerrainInstance) HalfExtent(shape Shape) float64 {
	return t.Transform.Scale * shape.Unit / 2
}

// BlockFactory 显式的方块工厂：形状与材质构造一次，按方块生成实例
type BlockFactory struct {
	Shape    Shape
	Material Material
}

func DefaultBlockFactory() BlockFactory {
	return BlockFactory{
		Shape:    Shape{Unit: 1},
		Material: Material{Shading: "phong", Roughness: 0.6},
	}
}

// Instance 为一个地形方块生成实例
func (f BlockFactory) Instance(key string, b protocol.TerrainBlock) TerrainInstance {
	unit := f.Shape.Unit
	if unit <= 0 {
		unit = 1
	}
	return TerrainInstance{
		Key:       key,
		Transform: Transform{Position: b.Position, Scale: b.Size / unit},
		Color:     b.Color,
		Material:  f.Material,
	}
}

// InstantiateTerrain 按 key 排序生成全部实例
func (f BlockFactory) InstantiateTerrain(t protocol.Terrain) []TerrainInstance {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]TerrainInstance, 0, len(keys))
	for _, k := range keys {
		out = append(out, f.Instance(k, t[k]))
	}
	return out
}

// TerrainProbe 基于地形快照的向下射线检测：方块顶面 + y=0 地面
type TerrainProbe struct {
	shape  Shape
	blocks []TerrainInstance
}

func NewTerrainProbe(shape Shape, blocks []TerrainInstance) *TerrainProbe {
	if shape.Unit <= 0 {
		shape.Unit = 1
	}
	return &TerrainProbe{shape: shape, blocks: blocks}
}

// CastDown 从 origin 竖直向下投射长度 maxDist 的射线，返回最近命中距离
func (p *TerrainProbe) CastDown(origin protocol.Vec3, maxDist float64) (float64, bool) {
	best := math.Inf(1)
	if origin.Y >= 0 {
		best = origin.Y
	}
	for _, b := range p.blocks {
		half := b.HalfExtent(p.shape)
		c := b.Transform.Position
		if math.Abs(origin.X-c.X) > half || math.Abs(origin.Z-c.Z) > half {
			continue
		}
		top := c.Y + half
		if top > origin.Y {
			continue
		}
		if d := origin.Y - top; d < best {
			best = d
		}
	}
	if best <= maxDist {
		return best, true
	}
	return 0, false
}
