package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxelarena/protocol"
)

func sampleTerrain() protocol.Terrain {
	return protocol.Terrain{
		"b": {Position: protocol.Vec3{X: 10, Y: 5, Z: 10}, Size: 10, Color: "#112233"},
		"a": {Position: protocol.Vec3{X: -20, Y: 2, Z: 0}, Size: 4, Color: "#445566"},
	}
}

func TestInstantiateTerrainOnePerBlock(t *testing.T) {
	f := DefaultBlockFactory()
	insts := f.InstantiateTerrain(sampleTerrain())

	require.Len(t, insts, 2)
	assert.Equal(t, "a", insts[0].Key)
	assert.Equal(t, "b", insts[1].Key)
	assert.Equal(t, 10.0, insts[1].Transform.Scale)
	assert.Equal(t, protocol.Vec3{X: 10, Y: 5, Z: 10}, insts[1].Transform.Position)
	assert.Equal(t, "#112233", insts[1].Color)
	assert.Equal(t, f.Material, insts[0].Material)
}

func TestInstanceScaleFollowsUnit(t *testing.T) {
	f := BlockFactory{Shape: Shape{Unit: 2}}
	inst := f.Instance("k", protocol.TerrainBlock{Size: 8})
	assert.Equal(t, 4.0, inst.Transform.Scale)
	assert.Equal(t, 4.0, inst.HalfExtent(f.Shape))
}

func TestTerrainProbe(t *testing.T) {
	f := DefaultBlockFactory()
	probe := NewTerrainProbe(f.Shape, f.InstantiateTerrain(sampleTerrain()))

	// 方块 b 顶面 y=10
	d, hit := probe.CastDown(protocol.Vec3{X: 12, Y: 11, Z: 8}, 2)
	assert.True(t, hit)
	assert.InDelta(t, 1, d, 1e-9)

	// 方块外只剩地面
	d, hit = probe.CastDown(protocol.Vec3{X: 100, Y: 1.5, Z: 100}, 2)
	assert.True(t, hit)
	assert.InDelta(t, 1.5, d, 1e-9)

	_, hit = probe.CastDown(protocol.Vec3{X: 100, Y: 30, Z: 100}, 2)
	assert.False(t, hit)

	// 位于方块内部时顶面在上方，不算命中
	_, hit = probe.CastDown(protocol.Vec3{X: 10, Y: 6, Z: 10}, 2)
	assert.False(t, hit)
}
