package server

import (
	"errors"
	"fmt"
	"math/rand"

	"voxelarena/config"
	"voxelarena/logging"
	"voxelarena/protocol"
)

// GraphBoard 图演示：节点只有一个可翻转的归属标记，认领是匿名的，无需连接身份。
// 任何变化都把整张图广播给所有连接（包括发送方）。
type GraphBoard struct {
	nodes map[int]*protocol.GraphNode
	peers map[Peer]struct{}
	loop  *loop
}

// NewGraphBoard 按配置随机生成节点与连线
func NewGraphBoard(cfg config.GraphConfig, queue int) *GraphBoard {
	return &GraphBoard{
		nodes: GenerateGraph(cfg),
		peers: make(map[Peer]struct{}),
		loop:  newLoop(queue),
	}
}

// GenerateGraph 生成无自环、无重边的随机图
func GenerateGraph(cfg config.GraphConfig) map[int]*protocol.GraphNode {
	rng := rand.New(rand.NewSource(cfg.Seed))
	nodes := make(map[int]*protocol.GraphNode, cfg.Nodes)
	for i := 0; i < cfg.Nodes; i++ {
		nodes[i] = &protocol.GraphNode{ID: i, Links: []int{}}
	}
	if cfg.Nodes < 2 {
		return nodes
	}
	maxLinks := cfg.Nodes * (cfg.Nodes - 1) / 2
	want := cfg.Links
	if want > maxLinks {
		want = maxLinks
	}
	seen := make(map[[2]int]bool)
	for len(seen) < want {
		a, b := rng.Intn(cfg.Nodes), rng.Intn(cfg.Nodes)
		if a == b {
			continue
		}
		if a > b {
			a, b = b, a
		}
		if seen[[2]int{a, b}] {
			continue
		}
		seen[[2]int{a, b}] = true
		nodes[a].Links = append(nodes[a].Links, b)
	}
	return nodes
}

func (g *GraphBoard) Start() { g.loop.start(nil) }

func (g *GraphBoard) Stop() {
	g.loop.call(func() {
		for p := range g.peers {
			p.Close()
		}
	})
	g.loop.stop()
}

func (g *GraphBoard) Join(p Peer) {
	g.loop.post(func() { g.peers[p] = struct{}{} })
}

func (g *GraphBoard) Deliver(p Peer, raw []byte) {
	g.loop.post(func() { _ = g.HandleMessage(p, raw) })
}

func (g *GraphBoard) Leave(p Peer) {
	g.loop.post(func() {
		if _, ok := g.peers[p]; ok {
			delete(g.peers, p)
			p.Close()
		}
	})
}

// HandleMessage connect-user 单播整张图；claim 翻转节点归属后广播给所有连接
func (g *GraphBoard) HandleMessage(p Peer, raw []byte) error {
	if _, ok := g.peers[p]; !ok {
		return nil
	}
	env, err := protocol.Decode(raw)
	if err != nil {
		return g.reject(p, fmt.Errorf("%w: %v", ErrMalformedMessage, err))
	}
	switch env.Type {
	case protocol.TypeConnectUser:
		g.send(p)
		return nil
	case protocol.TypeClaim:
		var c protocol.Claim
		if err := env.Into(&c); err != nil {
			return g.reject(p, fmt.Errorf("%w: %v", ErrMalformedMessage, err))
		}
		n, ok := g.nodes[c.ID]
		if !ok {
			return g.reject(p, fmt.Errorf("%w: %d", ErrUnknownNode, c.ID))
		}
		n.Owner = !n.Owner
		logging.Log.Debugf("graph: node %d owner=%v", n.ID, n.Owner)
		g.broadcast()
		return nil
	default:
		return g.reject(p, fmt.Errorf("%w: %q", ErrUnknownMessage, env.Type))
	}
}

// Nodes 返回节点副本
func (g *GraphBoard) Nodes() map[int]protocol.GraphNode {
	out := make(map[int]protocol.GraphNode)
	g.loop.call(func() {
		for id, n := range g.nodes {
			cp := *n
			cp.Links = append([]int(nil), n.Links...)
			out[id] = cp
		}
	})
	return out
}

func (g *GraphBoard) encodeGraph() []byte {
	b, err := protocol.Encode(protocol.TypeUpdateGraph, g.nodes)
	if err != nil {
		logging.Log.Errorf("graph: %v", err)
		return nil
	}
	return b
}

func (g *GraphBoard) send(p Peer) {
	if b := g.encodeGraph(); b != nil {
		p.Enqueue(b)
	}
}

func (g *GraphBoard) broadcast() {
	b := g.encodeGraph()
	if b == nil {
		return
	}
	for p := range g.peers {
		p.Enqueue(b)
	}
}

func (g *GraphBoard) reject(p Peer, err error) error {
	level := logging.Log.Debugf
	if errors.Is(err, ErrUnknownNode) {
		level = logging.Log.Warnf
	}
	level("graph: conn %d: %v", p.ID(), err)
	if b, encErr := protocol.Encode(protocol.TypeError, protocol.ErrorPayload{Code: errorCode(err), Message: err.Error()}); encErr == nil {
		p.Enqueue(b)
	}
	return err
}
