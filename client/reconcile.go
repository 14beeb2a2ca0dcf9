package client

import "voxelarena/protocol"

// RemoteEntity 远端玩家在本地的代理
type RemoteEntity struct {
	Identity string
	Color    string
	Position protocol.Vec3
}

// RemoteEntityCache identity -> 远端代理
type RemoteEntityCache struct {
	entities map[string]*RemoteEntity
	scene    Scene
}

func NewRemoteEntityCache(scene Scene) *RemoteEntityCache {
	if scene == nil {
		scene = NopScene{}
	}
	return &RemoteEntityCache{entities: make(map[string]*RemoteEntity), scene: scene}
}

// Reconcile 用一份完整状态表对齐本地缓存：
// 未见过的身份创建代理；已有的只覆盖位置；表中缺失的代理被移除；本地身份始终忽略。
// 对同一张表重复调用结果不变。
func (c *RemoteEntityCache) Reconcile(table protocol.StateTable, local string) {
	for id, st := range table {
		if id == local || st.Position == nil {
			continue
		}
		if e, ok := c.entities[id]; ok {
			if e.Position != *st.Position {
				e.Position = *st.Position
				c.scene.MoveRemote(*e)
			}
			continue
		}
		e := &RemoteEntity{Identity: id, Color: st.Color, Position: *st.Position}
		c.entities[id] = e
		c.scene.SpawnRemote(*e)
	}
	for id := range c.entities {
		if _, ok := table[id]; !ok || id == local {
			c.Remove(id)
		}
	}
}

// Remove 拆除一个代理
func (c *RemoteEntityCache) Remove(id string) bool {
	if _, ok := c.entities[id]; !ok {
		return false
	}
	delete(c.entities, id)
	c.scene.RemoveRemote(id)
	return true
}

// Clear 拆除全部代理
func (c *RemoteEntityCache) Clear() {
	for id := range c.entities {
		c.Remove(id)
	}
}

func (c *RemoteEntityCache) Get(id string) (RemoteEntity, bool) {
	e, ok := c.entities[id]
	if !ok {
		return RemoteEntity{}, false
	}
	return *e, true
}

func (c *RemoteEntityCache) Len() int { return len(c.entities) }

// Snapshot 返回缓存副本
func (c *RemoteEntityCache) Snapshot() map[string]RemoteEntity {
	out := make(map[string]RemoteEntity, len(c.entities))
	for id, e := range c.entities {
		out[id] = *e
	}
	return out
}
