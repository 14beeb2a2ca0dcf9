package server

import (
	"hash/fnv"
	"sort"
	"sync"

	"voxelarena/config"
)

// WorldManager 管理多个世界的生命周期，每个世界是一个独立的协调端
type WorldManager struct {
	mu     sync.RWMutex
	worlds map[string]*World
	cfg    *config.Config
}

func NewWorldManager(cfg *config.Config) *WorldManager {
	return &WorldManager{worlds: make(map[string]*World), cfg: cfg}
}

// GetOrCreateWorld 获取或创建世界，并确保事件循环已启动
func (m *WorldManager) GetOrCreateWorld(name string) *World {
	m.mu.RLock()
	w, ok := m.worlds[name]
	m.mu.RUnlock()
	if ok {
		return w
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if w, ok = m.worlds[name]; ok {
		return w
	}
	w = NewWorld(name, m.worldConfig(name), m.cfg.Sync)
	m.worlds[name] = w
	w.Start()
	return w
}

// Lookup 只查找，不创建
func (m *WorldManager) Lookup(name string) (*World, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.worlds[name]
	return w, ok
}

// Names 已创建的世界名（有序）
func (m *WorldManager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.worlds))
	for name := range m.worlds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// StopAll 停止全部世界
func (m *WorldManager) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.worlds {
		w.Stop()
	}
}

// worldConfig 默认世界直接使用配置种子，其他世界由名字派生种子
func (m *WorldManager) worldConfig(name string) config.WorldConfig {
	wc := m.cfg.World
	if name != m.cfg.Server.DefaultWorld {
		h := fnv.New64a()
		_, _ = h.Write([]byte(name))
		wc.Seed ^= int64(h.Sum64())
	}
	return wc
}
