package client

import (
	"time"

	"voxelarena/protocol"
)

// Emitter 固定间隔节流：每个窗口最多发送一次。
// 窗口内第一次请求开启窗口，之后的请求直接丢弃（不排队）；
// 窗口结束时读取当下最新的位姿发送，而不是请求时的历史采样。
type Emitter struct {
	interval time.Duration
	pose     func() protocol.Vec3
	emit     func(protocol.Vec3)

	armed    bool
	deadline time.Time
	dropped  int
}

func NewEmitter(interval time.Duration, pose func() protocol.Vec3, emit func(protocol.Vec3)) *Emitter {
	return &Emitter{interval: interval, pose: pose, emit: emit}
}

// Request 请求一次上报
func (e *Emitter) Request(now time.Time) {
	if e.armed {
		e.dropped++
		return
	}
	e.armed = true
	e.deadline = now.Add(e.interval)
}

// Flush 窗口到期则发送，返回是否发送
func (e *Emitter) Flush(now time.Time) bool {
	if !e.armed || now.Before(e.deadline) {
		return false
	}
	e.armed = false
	e.emit(e.pose())
	return true
}

// Dropped 被丢弃的请求数
func (e *Emitter) Dropped() int { return e.dropped }

// Reset 取消未发送的窗口（断线重连时）
func (e *Emitter) Reset() { e.armed = false }
