package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxelarena/protocol"
)

// recordScene 记录场景调用
type recordScene struct {
	localColor string
	terrain    []TerrainInstance
	spawned    []string
	moved      []string
	removed    []string
}

func (s *recordScene) SetLocalColor(c string) { s.localColor = c }
func (s *recordScene) AddTerrain(inst TerrainInstance) { s.terrain = append(s.terrain, inst) }
func (s *recordScene) SpawnRemote(e RemoteEntity) { s.spawned = append(s.spawned, e.Identity) }
func (s *recordScene) MoveRemote(e RemoteEntity) { s.moved = append(s.moved, e.Identity) }
func (s *recordScene) RemoveRemote(identity string) { s.removed = append(s.removed, identity) }

func state(id, color string, x float64) protocol.PlayerState {
	return protocol.PlayerState{Identity: id, Color: color, Position: &protocol.Vec3{X: x}}
}

func TestReconcileIsIdempotent(t *testing.T) {
	scene := &recordScene{}
	cache := NewRemoteEntityCache(scene)
	table := protocol.StateTable{
		"A": state("A", "#ff0000", 1),
		"B": state("B", "#00ff00", 2),
	}

	cache.Reconcile(table, "")
	first := cache.Snapshot()
	cache.Reconcile(table, "")

	assert.Equal(t, first, cache.Snapshot())
	assert.Len(t, scene.spawned, 2)
	assert.Empty(t, scene.moved)
	assert.Empty(t, scene.removed)
}

func TestReconcileIgnoresLocalIdentity(t *testing.T) {
	cache := NewRemoteEntityCache(nil)
	cache.Reconcile(protocol.StateTable{
		"A": state("A", "#ff0000", 1),
		"B": state("B", "#00ff00", 2),
	}, "A")

	_, ok := cache.Get("A")
	assert.False(t, ok)
	assert.Equal(t, 1, cache.Len())
}

func TestReconcileUpdatesPositionOnly(t *testing.T) {
	scene := &recordScene{}
	cache := NewRemoteEntityCache(scene)
	cache.Reconcile(protocol.StateTable{"B": state("B", "#00ff00", 2)}, "A")
	cache.Reconcile(protocol.StateTable{"B": state("B", "#0000ff", 5)}, "A")

	b, ok := cache.Get("B")
	require.True(t, ok)
	assert.Equal(t, protocol.Vec3{X: 5}, b.Position)
	assert.Equal(t, "#00ff00", b.Color)
	assert.Equal(t, []string{"B"}, scene.moved)
}

func TestReconcileRemovesAbsentEntries(t *testing.T) {
	scene := &recordScene{}
	cache := NewRemoteEntityCache(scene)
	cache.Reconcile(protocol.StateTable{
		"B": state("B", "", 2),
		"C": state("C", "", 3),
	}, "A")
	cache.Reconcile(protocol.StateTable{"B": state("B", "", 2)}, "A")

	assert.Equal(t, 1, cache.Len())
	assert.Equal(t, []string{"C"}, scene.removed)
}

func TestReconcileSkipsEntriesWithoutPosition(t *testing.T) {
	cache := NewRemoteEntityCache(nil)
	cache.Reconcile(protocol.StateTable{"B": {Identity: "B"}}, "A")
	assert.Zero(t, cache.Len())
}

func TestRemoveAndClear(t *testing.T) {
	scene := &recordScene{}
	cache := NewRemoteEntityCache(scene)
	cache.Reconcile(protocol.StateTable{
		"B": state("B", "", 2),
		"C": state("C", "", 3),
	}, "")

	assert.True(t, cache.Remove("B"))
	assert.False(t, cache.Remove("B"))
	cache.Clear()
	assert.Zero(t, cache.Len())
	assert.ElementsMatch(t, []string{"B", "C"}, scene.removed)
}
