package protocol

import (
	"encoding/json"
	"fmt"
)

// 消息类型（WebSocket 文本帧内的 JSON 信封）
const (
	TypeIDRequest    = "id_req"
	TypeIDResponse   = "id_res"
	TypeLoadup       = "loadup"
	TypeGreeting     = "greeting"
	TypeClientUpdate = "client_update"
	TypePlayerMove   = "player_move"
	TypeState        = "state"
	TypeDeparted     = "departed"
	TypeError        = "error"

	// 图演示
	TypeConnectUser = "connect-user"
	TypeUpdateGraph = "update-graph"
	TypeClaim       = "claim"
)

// Envelope 入站信封，payload 延迟解析
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// outEnvelope 出站信封
type outEnvelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// IDResponse id_res 载荷
type IDResponse struct {
	Identity string `json:"identity"`
	Color    string `json:"color"`
}

// Departed 玩家离开事件
type Departed struct {
	Identity string `json:"identity"`
}

// ErrorPayload 拒绝原因（仅单播给发送方）
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Claim 图节点认领
type Claim struct {
	ID int `json:"id"`
}

// Encode 编码一条出站消息
func Encode(msgType string, payload any) ([]byte, error) {
	b, err := json.Marshal(outEnvelope{Type: msgType, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", msgType, err)
	}
	return b, nil
}

// Decode 解析信封
func Decode(b []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return Envelope{}, err
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("missing message type")
	}
	return env, nil
}

// Into 将 payload 解析到 v；空 payload 视为错误
func (e Envelope) Into(v any) error {
	if len(e.Payload) == 0 || string(e.Payload) == "null" {
		return fmt.Errorf("%s: empty payload", e.Type)
	}
	return json.Unmarshal(e.Payload, v)
}
