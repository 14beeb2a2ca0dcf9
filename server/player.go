package server

import (
	"fmt"
	"math/rand"

	"github.com/segmentio/ksuid"
)

// IDGenerator 生成不透明的唯一身份标识
type IDGenerator func() string

// NewKSUID 默认身份生成器
func NewKSUID() string {
	return ksuid.New().String()
}

// session 一条连接在协调端的登记信息；identity 为空表示尚未分配
type session struct {
	peer     Peer
	identity string
	color    string
}

func (s *session) assigned() bool { return s.identity != "" }

// randomColor 生成 #rrggbb 颜色
func randomColor(rng *rand.Rand) string {
	return fmt.Sprintf("#%06x", rng.Intn(0x1000000))
}
