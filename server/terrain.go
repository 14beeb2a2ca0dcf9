package server

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/aquilax/go-perlin"
	"github.com/google/uuid"

	"voxelarena/config"
	"voxelarena/protocol"
)

// terrainNamespace 方块 key 的 UUIDv5 命名空间：同一种子生成相同的 key
var terrainNamespace = uuid.MustParse("6f1c0a52-2d4b-4c59-9a0e-6a1d3b8f7e21")

const (
	noiseScale = 0.01 // 高度场的平滑程度
	maxLevels  = 4    // 方块最多堆叠层数
)

// GenerateTerrain 生成障碍物地形：x/z 随机散布，高度层由 Perlin 噪声决定。
// 同一 WorldConfig 总是得到同样的结果。
func GenerateTerrain(cfg config.WorldConfig) protocol.Terrain {
	rng := rand.New(rand.NewSource(cfg.Seed))
	noise := perlin.NewPerlin(2, 2, 3, cfg.Seed)

	terrain := make(protocol.Terrain, cfg.TerrainBlocks)
	half := cfg.Extent / 2
	for i := 0; i < cfg.TerrainBlocks; i++ {
		size := cfg.MinBlockSize + rng.Float64()*(cfg.MaxBlockSize-cfg.MinBlockSize)
		x := rng.Float64()*cfg.Extent - half
		z := rng.Float64()*cfg.Extent - half

		// Noise2D 返回约 [-1,1]，映射到 [0,1]
		h := clamp01((noise.Noise2D(x*noiseScale, z*noiseScale) + 1) / 2)
		level := math.Floor(h * maxLevels)

		key := uuid.NewSHA1(terrainNamespace, []byte(fmt.Sprintf("%d:%d", cfg.Seed, i))).String()
		terrain[key] = protocol.TerrainBlock{
			Position: protocol.Vec3{X: x, Y: size/2 + level*size, Z: z},
			Size:     size,
			Color:    terrainColor(h, rng),
		}
	}
	return terrain
}

// terrainColor 高处偏暖、低处偏冷，叠加少量随机扰动
func terrainColor(h float64, rng *rand.Rand) string {
	hue := 0.6 - 0.5*h + (rng.Float64()-0.5)*0.1
	return hslToHex(hue, 0.75, 0.5+0.25*rng.Float64())
}

func hslToHex(h, s, l float64) string {
	h = h - math.Floor(h)
	c := (1 - math.Abs(2*l-1)) * s
	x := c * (1 - math.Abs(math.Mod(h*6, 2)-1))
	m := l - c/2
	var r, g, b float64
	switch int(h * 6) {
	case 0:
		r, g, b = c, x, 0
	case 1:
		r, g, b = x, c, 0
	case 2:
		r, g, b = 0, c, x
	case 3:
		r, g, b = 0, x, c
	case 4:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	return fmt.Sprintf("#%02x%02x%02x", toByte(r+m), toByte(g+m), toByte(b+m))
}

func toByte(v float64) int {
	return int(math.Round(clamp01(v) * 255))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func copyTerrain(t protocol.Terrain) protocol.Terrain {
	out := make(protocol.Terrain, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}
