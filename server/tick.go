package server

import (
	"sync/atomic"
	"time"
)

// statsInterval 周期性采样指标（连接数、表大小）
const statsInterval = time.Second

// loop 单协程事件循环：所有状态修改都在此协程内串行执行，handler 之间不会交错
type loop struct {
	events  chan func()
	quit    chan struct{}
	done    chan struct{}
	running atomic.Bool
}

func newLoop(queue int) *loop {
	return &loop{
		events: make(chan func(), queue),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// start 启动事件循环；onTick 在每个 statsInterval 于循环内调用
func (l *loop) start(onTick func()) {
	if l.running.Swap(true) {
		return
	}
	go func() {
		defer close(l.done)
		ticker := time.NewTicker(statsInterval)
		defer ticker.Stop()
		for {
			select {
			case fn := <-l.events:
				fn()
			case <-ticker.C:
				if onTick != nil {
					onTick()
				}
			case <-l.quit:
				return
			}
		}
	}()
}

// post 投递事件；阻塞直到入队或循环已停止。未启动时直接在调用方执行（测试用）
func (l *loop) post(fn func()) bool {
	if !l.running.Load() {
		fn()
		return true
	}
	select {
	case l.events <- fn:
		return true
	case <-l.quit:
		return false
	}
}

// call 投递并等待执行完成
func (l *loop) call(fn func()) {
	if !l.running.Load() {
		fn()
		return
	}
	finished := make(chan struct{})
	if !l.post(func() { fn(); close(finished) }) {
		return
	}
	select {
	case <-finished:
	case <-l.done:
	}
}

func (l *loop) stop() {
	if !l.running.Load() {
		return
	}
	select {
	case <-l.quit:
	default:
		close(l.quit)
	}
	<-l.done
}
