package protocol

import "math"

// Vec3 三维坐标
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Finite 三个分量均为有限值
func (v Vec3) Finite() bool {
	return isFinite(v.X) && isFinite(v.Y) && isFinite(v.Z)
}

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z} }

func (v Vec3) Scale(k float64) Vec3 { return Vec3{X: v.X * k, Y: v.Y * k, Z: v.Z * k} }

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// PlayerState 玩家位姿：由所属客户端写入，协调端只做转发
// Position 为指针，用来区分“缺失”与零向量
type PlayerState struct {
	Identity string `json:"identity"`
	Color    string `json:"color"`
	Position *Vec3  `json:"position"`
}

// StateTable identity -> 最新的 PlayerState（后写覆盖）
type StateTable map[string]PlayerState

// TerrainBlock 地形方块，生成后整局不变
type TerrainBlock struct {
	Position Vec3    `json:"position"`
	Size     float64 `json:"size"`
	Color    string  `json:"color"`
}

// Terrain key -> TerrainBlock
type Terrain map[string]TerrainBlock

// GraphNode 图演示中的节点，Owner 为可翻转的归属标记
type GraphNode struct {
	ID    int   `json:"id"`
	Owner bool  `json:"owner"`
	Links []int `json:"links"`
}
