package server

import "errors"

// 入站消息被拒绝的原因；均不会修改共享状态表
var (
	ErrUnauthorizedUpdate  = errors.New("unauthorized update")
	ErrInvalidState        = errors.New("invalid state")
	ErrMalformedMessage    = errors.New("malformed message")
	ErrUnknownMessage      = errors.New("unknown message type")
	ErrUnknownNode         = errors.New("unknown node")
	ErrIdentityUnavailable = errors.New("identity unavailable")
)

// errorCode 映射为线上 error 消息中的 code
func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrUnauthorizedUpdate):
		return "unauthorized_update"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrMalformedMessage):
		return "malformed"
	case errors.Is(err, ErrUnknownMessage):
		return "unknown_type"
	case errors.Is(err, ErrUnknownNode):
		return "unknown_node"
	case errors.Is(err, ErrIdentityUnavailable):
		return "identity_unavailable"
	default:
		return "internal"
	}
}
