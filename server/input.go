package server

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"

	"voxelarena/protocol"
)

// Peer 协调端视角下的一条连接：只负责把编码好的消息送出去
type Peer interface {
	ID() uint64
	// Enqueue 非阻塞入队，队列满时丢弃并返回 false
	Enqueue(b []byte) bool
	Close()
}

// Sink 接收读协程上报的入站数据与断开事件
type Sink interface {
	Deliver(p Peer, raw []byte)
	Leave(p Peer)
}

// wireUpdate 入站位姿的线上形态：坐标逐个可缺失，缺失与 0 分开
type wireUpdate struct {
	Identity string        `json:"identity"`
	Color    string        `json:"color"`
	Position *wirePosition `json:"position"`
}

type wirePosition struct {
	X *json.Number `json:"x"`
	Y *json.Number `json:"y"`
	Z *json.Number `json:"z"`
}

// nonFiniteLiteral 匹配 position 内的 NaN/Infinity 字面量（标准 JSON 不允许，整帧会解析失败）
var nonFiniteLiteral = regexp.MustCompile(`"position"\s*:\s*\{[^}]*:\s*[-+]?(?i:nan|inf|infinity)\b`)

// decodeError 把帧解析失败归类：坐标为非有限字面量算 invalid_state，其余算 malformed
func decodeError(raw []byte, err error) error {
	if nonFiniteLiteral.Match(raw) {
		return fmt.Errorf("%w: non-finite position: %v", ErrInvalidState, err)
	}
	return fmt.Errorf("%w: %v", ErrMalformedMessage, err)
}

// decodeUpdate 解析并校验一条位姿上报；x/y/z 必须齐全且为有限值
// 示例：{"type":"client_update","payload":{"identity":"...","color":"#ff0000","position":{"x":1,"y":0,"z":0}}}
func decodeUpdate(env protocol.Envelope) (protocol.PlayerState, error) {
	var w wireUpdate
	if err := env.Into(&w); err != nil {
		return protocol.PlayerState{}, decodeError(env.Payload, err)
	}
	st := protocol.PlayerState{Identity: w.Identity, Color: w.Color}
	if w.Position == nil {
		return st, fmt.Errorf("%w: missing position", ErrInvalidState)
	}
	var pos protocol.Vec3
	for _, c := range []struct {
		name string
		in   *json.Number
		out  *float64
	}{{"x", w.Position.X, &pos.X}, {"y", w.Position.Y, &pos.Y}, {"z", w.Position.Z, &pos.Z}} {
		if c.in == nil {
			return st, fmt.Errorf("%w: missing position.%s", ErrInvalidState, c.name)
		}
		f, err := strconv.ParseFloat(c.in.String(), 64)
		if err != nil {
			return st, fmt.Errorf("%w: position.%s: %v", ErrInvalidState, c.name, err)
		}
		*c.out = f
	}
	if !pos.Finite() {
		return st, fmt.Errorf("%w: non-finite position %+v", ErrInvalidState, pos)
	}
	st.Position = &pos
	return st, nil
}
