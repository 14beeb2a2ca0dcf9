package server

import (
	"errors"
	"fmt"
	"math/rand"

	"voxelarena/config"
	"voxelarena/logging"
	"voxelarena/protocol"
)

// World 协调端：持有地形、连接登记与共享状态表，所有修改都在单个事件循环协程内完成
type World struct {
	Name string

	terrain  protocol.Terrain
	table    protocol.StateTable
	sessions map[Peer]*session
	owners   map[string]Peer // identity -> 持有该身份的连接

	departurePolicy string
	greeting        string

	newID   IDGenerator
	rng     *rand.Rand
	metrics *WorldMetrics
	loop    *loop
}

// maxIDAttempts 身份碰撞时的最大重抽次数
const maxIDAttempts = 16

// WorldOption 可选构造参数
type WorldOption func(*World)

// WithIDGenerator 替换身份生成器（测试用）
func WithIDGenerator(gen IDGenerator) WorldOption {
	return func(w *World) { w.newID = gen }
}

// WithSeed 固定颜色分配的随机源
func WithSeed(seed int64) WorldOption {
	return func(w *World) { w.rng = rand.New(rand.NewSource(seed)) }
}

// NewWorld 创建世界并一次性生成地形
func NewWorld(name string, worldCfg config.WorldConfig, syncCfg config.SyncConfig, opts ...WorldOption) *World {
	w := &World{
		Name:            name,
		terrain:         GenerateTerrain(worldCfg),
		table:           make(protocol.StateTable),
		sessions:        make(map[Peer]*session),
		owners:          make(map[string]Peer),
		departurePolicy: syncCfg.DeparturePolicy,
		greeting:        syncCfg.Greeting,
		newID:           NewKSUID,
		rng:             rand.New(rand.NewSource(worldCfg.Seed)),
		metrics:         newWorldMetrics(name),
		loop:            newLoop(syncCfg.EventQueue),
	}
	if w.departurePolicy == "" {
		w.departurePolicy = config.DepartureBroadcast
	}
	for _, opt := range opts {
		opt(w)
	}
	logging.Log.Infof("world %s: generated %d terrain blocks", name, len(w.terrain))
	return w
}

// Start 启动事件循环
func (w *World) Start() {
	w.loop.start(func() { w.metrics.SetPlayers(len(w.table)) })
}

// Stop 停止事件循环并关闭全部连接
func (w *World) Stop() {
	w.loop.call(func() {
		for p := range w.sessions {
			p.Close()
		}
	})
	w.loop.stop()
}

// Join 新连接接入（在事件循环中处理）
func (w *World) Join(p Peer) { w.loop.post(func() { w.HandleConnect(p) }) }

// Deliver 读协程上报一条入站消息
func (w *World) Deliver(p Peer, raw []byte) {
	w.loop.post(func() { _ = w.HandleMessage(p, raw) })
}

// Leave 请求在事件循环中移除连接；阻塞写入保证移除一定生效
func (w *World) Leave(p Peer) { w.loop.post(func() { w.HandleDisconnect(p) }) }

// HandleConnect 广播问候语，并只向新连接下发完整地形快照
func (w *World) HandleConnect(p Peer) {
	w.sessions[p] = &session{peer: p}
	w.metrics.IncConnections(1)
	logging.Log.Debugf("world %s: conn %d connected (%d total)", w.Name, p.ID(), len(w.sessions))

	w.broadcast(protocol.TypeGreeting, w.greeting, nil)
	w.send(p, protocol.TypeLoadup, w.terrain)
}

// HandleMessage 处理一条入站消息；返回的错误已单播给发送方并记录日志
func (w *World) HandleMessage(p Peer, raw []byte) error {
	s, ok := w.sessions[p]
	if !ok {
		return nil
	}
	env, err := protocol.Decode(raw)
	if err != nil {
		return w.reject(s, decodeError(raw, err))
	}

	switch env.Type {
	case protocol.TypeIDRequest:
		if err := w.assignIdentity(s); err != nil {
			return w.reject(s, err)
		}
		return nil
	case protocol.TypeClientUpdate, protocol.TypePlayerMove:
		if err := w.applyUpdate(s, env); err != nil {
			return w.reject(s, err)
		}
		return nil
	default:
		return w.reject(s, fmt.Errorf("%w: %q", ErrUnknownMessage, env.Type))
	}
}

// assignIdentity 为连接分配身份与颜色；已分配的连接重复请求时返回原身份
func (w *World) assignIdentity(s *session) error {
	if !s.assigned() {
		id := w.newID()
		for tries := 1; w.identityTaken(id); tries++ {
			if tries >= maxIDAttempts {
				logging.Log.Errorf("world %s: conn %d: no free identity after %d attempts", w.Name, s.peer.ID(), tries)
				return fmt.Errorf("%w: generator exhausted", ErrIdentityUnavailable)
			}
			id = w.newID()
		}
		s.identity = id
		s.color = randomColor(w.rng)
		w.owners[id] = s.peer
		w.metrics.IncIssued()
		logging.Log.Infof("world %s: conn %d assigned identity %s color %s", w.Name, s.peer.ID(), id, s.color)
	}
	w.send(s.peer, protocol.TypeIDResponse, protocol.IDResponse{Identity: s.identity, Color: s.color})
	// 让后加入的客户端立即看到已有玩家
	w.send(s.peer, protocol.TypeState, w.table)
	return nil
}

// identityTaken 身份在连接存活期间不得复用
func (w *World) identityTaken(id string) bool {
	if id == "" {
		return true
	}
	_, ok := w.owners[id]
	return ok
}

// applyUpdate 校验身份绑定与位置后写入共享表（后写覆盖），再广播给除发送方外的所有连接
func (w *World) applyUpdate(s *session, env protocol.Envelope) error {
	if !s.assigned() {
		return fmt.Errorf("%w: conn %d has no identity", ErrUnauthorizedUpdate, s.peer.ID())
	}
	st, err := decodeUpdate(env)
	if err != nil {
		return err
	}
	if st.Identity != s.identity {
		return fmt.Errorf("%w: conn %d bound to %s claimed %q", ErrUnauthorizedUpdate, s.peer.ID(), s.identity, st.Identity)
	}
	if st.Color == "" {
		st.Color = s.color
	}
	pos := *st.Position
	st.Position = &pos
	w.table[s.identity] = st
	w.metrics.IncAccepted()

	w.broadcast(protocol.TypeState, w.table, s.peer)
	return nil
}

// HandleDisconnect 同步删除该连接的表项；按离开策略决定是否立即通知其余连接
func (w *World) HandleDisconnect(p Peer) {
	s, ok := w.sessions[p]
	if !ok {
		return
	}
	delete(w.sessions, p)
	p.Close()
	w.metrics.IncConnections(-1)

	if !s.assigned() {
		logging.Log.Debugf("world %s: conn %d left before identity assignment", w.Name, p.ID())
		return
	}
	delete(w.table, s.identity)
	delete(w.owners, s.identity)
	w.metrics.IncDepartures()
	logging.Log.Infof("world %s: %s departed (%d players left)", w.Name, s.identity, len(w.table))

	if w.departurePolicy == config.DepartureBroadcast {
		w.broadcast(protocol.TypeDeparted, protocol.Departed{Identity: s.identity}, nil)
		w.broadcast(protocol.TypeState, w.table, nil)
	}
}

// reject 记录并单播拒绝原因
func (w *World) reject(s *session, err error) error {
	code := errorCode(err)
	w.metrics.IncRejected(code)
	if errors.Is(err, ErrUnauthorizedUpdate) {
		logging.Log.Warnf("world %s: %v", w.Name, err)
	} else {
		logging.Log.Debugf("world %s: dropped message from conn %d: %v", w.Name, s.peer.ID(), err)
	}
	w.send(s.peer, protocol.TypeError, protocol.ErrorPayload{Code: code, Message: err.Error()})
	return err
}

func (w *World) send(p Peer, msgType string, payload any) {
	b, err := protocol.Encode(msgType, payload)
	if err != nil {
		logging.Log.Errorf("world %s: %v", w.Name, err)
		return
	}
	if !p.Enqueue(b) {
		w.metrics.IncSendDropped()
	}
}

// broadcast 编码一次，扇出到除 except 外的所有连接（非阻塞）
func (w *World) broadcast(msgType string, payload any, except Peer) {
	b, err := protocol.Encode(msgType, payload)
	if err != nil {
		logging.Log.Errorf("world %s: %v", w.Name, err)
		return
	}
	for p := range w.sessions {
		if p == except {
			continue
		}
		if !p.Enqueue(b) {
			w.metrics.IncSendDropped()
		}
	}
	w.metrics.IncBroadcast(msgType)
}

// Snapshot 返回共享状态表的副本
func (w *World) Snapshot() protocol.StateTable {
	out := make(protocol.StateTable)
	w.loop.call(func() {
		for k, v := range w.table {
			pos := *v.Position
			v.Position = &pos
			out[k] = v
		}
	})
	return out
}

// Terrain 返回地形副本（地形不可变，无需进入事件循环）
func (w *World) Terrain() protocol.Terrain { return copyTerrain(w.terrain) }

// Connections 当前连接数
func (w *World) Connections() int {
	var n int
	w.loop.call(func() { n = len(w.sessions) })
	return n
}

// DeparturePolicy 当前离开策略
func (w *World) DeparturePolicy() string {
	var p string
	w.loop.call(func() { p = w.departurePolicy })
	return p
}

// SetDeparturePolicy 运行期切换离开策略
func (w *World) SetDeparturePolicy(policy string) error {
	if policy != config.DepartureBroadcast && policy != config.DepartureLazy {
		return fmt.Errorf("unknown departure policy %q", policy)
	}
	w.loop.call(func() { w.departurePolicy = policy })
	return nil
}

// Metrics 返回指标
func (w *World) Metrics() *WorldMetrics { return w.metrics }
