package client

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"voxelarena/protocol"
)

func TestEmitterCoalescesBurstIntoOneEmission(t *testing.T) {
	pos := protocol.Vec3{}
	var sent []protocol.Vec3
	e := NewEmitter(100*time.Millisecond, func() protocol.Vec3 { return pos }, func(v protocol.Vec3) { sent = append(sent, v) })

	start := time.Unix(0, 0)
	for i := 0; i < 10; i++ {
		now := start.Add(time.Duration(i) * 5 * time.Millisecond)
		pos = protocol.Vec3{X: float64(i)}
		e.Request(now)
		e.Flush(now)
	}
	assert.Empty(t, sent, "window not elapsed yet")
	assert.Equal(t, 9, e.Dropped())

	assert.True(t, e.Flush(start.Add(100*time.Millisecond)))
	assert.Equal(t, []protocol.Vec3{{X: 9}}, sent, "payload is the pose at flush time")

	assert.False(t, e.Flush(start.Add(200*time.Millisecond)), "nothing pending")
}

func TestEmitterAtMostOncePerWindow(t *testing.T) {
	count := 0
	e := NewEmitter(100*time.Millisecond, func() protocol.Vec3 { return protocol.Vec3{} }, func(protocol.Vec3) { count++ })

	start := time.Unix(0, 0)
	// 60Hz 持续请求一秒
	for i := 0; i <= 60; i++ {
		now := start.Add(time.Duration(i) * time.Second / 60)
		e.Request(now)
		e.Flush(now)
	}
	assert.GreaterOrEqual(t, count, 8)
	assert.LessOrEqual(t, count, 10)
}

func TestEmitterReset(t *testing.T) {
	count := 0
	e := NewEmitter(time.Millisecond, func() protocol.Vec3 { return protocol.Vec3{} }, func(protocol.Vec3) { count++ })
	now := time.Unix(0, 0)
	e.Request(now)
	e.Reset()
	assert.False(t, e.Flush(now.Add(time.Second)))
	assert.Zero(t, count)
}
