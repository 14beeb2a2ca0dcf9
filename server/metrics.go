package server

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	promConnections = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "voxelarena",
		Name:      "connections",
		Help:      "Open websocket connections per world.",
	}, []string{"world"})
	promPlayers = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "voxelarena",
		Name:      "players",
		Help:      "Entries in the shared state table per world.",
	}, []string{"world"})
	promUpdates = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "voxelarena",
		Name:      "updates_total",
		Help:      "Pose updates by outcome.",
	}, []string{"world", "outcome"})
	promSendDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "voxelarena",
		Name:      "send_dropped_total",
		Help:      "Outbound messages dropped because a send queue was full.",
	}, []string{"world"})
	promBroadcasts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "voxelarena",
		Name:      "broadcasts_total",
		Help:      "Fan-out broadcasts by message type.",
	}, []string{"world", "type"})
)

func init() {
	prometheus.MustRegister(promConnections, promPlayers, promUpdates, promSendDropped, promBroadcasts)
}

// WorldMetrics 记录世界运行期的关键指标（用于监控与调试）
type WorldMetrics struct {
	world string

	Connections      int64 // 当前连接数
	IdentitiesIssued int64 // 已分配的身份数
	UpdatesAccepted  int64 // 被接受的位姿上报
	Unauthorized     int64 // 未分配身份或身份不匹配的上报
	InvalidStates    int64 // 位置缺失/非有限值的上报
	Malformed        int64 // 无法解析的消息
	Broadcasts       int64 // 广播次数
	SendDropped      int64 // 因发送队列满被丢弃的消息
	Departures       int64 // 已分配身份的连接断开次数
}

func newWorldMetrics(world string) *WorldMetrics {
	return &WorldMetrics{world: world}
}

func (m *WorldMetrics) IncConnections(delta int64) {
	atomic.AddInt64(&m.Connections, delta)
	promConnections.WithLabelValues(m.world).Add(float64(delta))
}

func (m *WorldMetrics) IncIssued() { atomic.AddInt64(&m.IdentitiesIssued, 1) }

func (m *WorldMetrics) IncAccepted() {
	atomic.AddInt64(&m.UpdatesAccepted, 1)
	promUpdates.WithLabelValues(m.world, "accepted").Inc()
}

// IncRejected 按错误码归类被拒绝的上报
func (m *WorldMetrics) IncRejected(code string) {
	switch code {
	case "unauthorized_update":
		atomic.AddInt64(&m.Unauthorized, 1)
	case "invalid_state":
		atomic.AddInt64(&m.InvalidStates, 1)
	default:
		atomic.AddInt64(&m.Malformed, 1)
	}
	promUpdates.WithLabelValues(m.world, code).Inc()
}

func (m *WorldMetrics) IncBroadcast(msgType string) {
	atomic.AddInt64(&m.Broadcasts, 1)
	promBroadcasts.WithLabelValues(m.world, msgType).Inc()
}

func (m *WorldMetrics) IncSendDropped() {
	atomic.AddInt64(&m.SendDropped, 1)
	promSendDropped.WithLabelValues(m.world).Inc()
}

func (m *WorldMetrics) IncDepartures() { atomic.AddInt64(&m.Departures, 1) }

func (m *WorldMetrics) SetPlayers(n int) {
	promPlayers.WithLabelValues(m.world).Set(float64(n))
}

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *WorldMetrics) Snapshot() map[string]any {
	return map[string]any{
		"connections":       atomic.LoadInt64(&m.Connections),
		"identities_issued": atomic.LoadInt64(&m.IdentitiesIssued),
		"updates_accepted":  atomic.LoadInt64(&m.UpdatesAccepted),
		"unauthorized":      atomic.LoadInt64(&m.Unauthorized),
		"invalid_states":    atomic.LoadInt64(&m.InvalidStates),
		"malformed":         atomic.LoadInt64(&m.Malformed),
		"broadcasts":        atomic.LoadInt64(&m.Broadcasts),
		"send_dropped":      atomic.LoadInt64(&m.SendDropped),
		"departures":        atomic.LoadInt64(&m.Departures),
	}
}
