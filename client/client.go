package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"voxelarena/logging"
	"voxelarena/protocol"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendQueue  = 64
)

// ErrSendQueueFull 发送队列满，消息被丢弃
var ErrSendQueueFull = errors.New("send queue full")

// Client 通过 WebSocket 连接协调端；入站消息与模拟 tick 在同一个循环协程内处理
type Client struct {
	URL      string
	TickRate int
	// OnTick 每个模拟 tick 前在循环协程内调用（读输入等）
	OnTick func(s *Session, now time.Time)

	session *Session
	log     *zap.SugaredLogger
}

// New 创建客户端；scene 可为 nil
func New(url string, scene Scene, opts Options) *Client {
	c := &Client{URL: url, TickRate: 60, log: logging.Named("client")}
	c.session = NewSession(nil, scene, opts)
	return c
}

func (c *Client) Session() *Session { return c.session }

// chanSender 编码后非阻塞写入发送队列
type chanSender chan []byte

func (q chanSender) Send(msgType string, payload any) error {
	b, err := protocol.Encode(msgType, payload)
	if err != nil {
		return err
	}
	select {
	case q <- b:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// Run 建立一次连接并运行到 ctx 取消或连接断开
func (c *Client) Run(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.URL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.URL, err)
	}
	defer conn.Close()
	c.log.Infof("connected to %s", c.URL)

	out := make(chanSender, sendQueue)
	inbound := make(chan []byte, sendQueue)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)

	go c.readLoop(conn, inbound, readErr, done)
	writeErr := make(chan error, 1)
	go c.writeLoop(conn, out, writeErr, done)

	c.session.out = out
	c.session.Reset()
	if err := c.session.OnConnect(); err != nil {
		return err
	}

	rate := c.TickRate
	if rate <= 0 {
		rate = 60
	}
	ticker := time.NewTicker(time.Second / time.Duration(rate))
	defer ticker.Stop()
	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client shutting down"),
				time.Now().Add(writeWait))
			return ctx.Err()
		case raw := <-inbound:
			if err := c.session.Handle(raw); err != nil {
				c.log.Warnf("handle message: %v", err)
			}
		case err := <-readErr:
			return err
		case err := <-writeErr:
			return err
		case now := <-ticker.C:
			if c.OnTick != nil {
				c.OnTick(c.session, now)
			}
			c.session.Step(now, now.Sub(last).Seconds())
			last = now
		}
	}
}

// RunWithRetry 断线后按 backoff 重连，直到 ctx 取消
func (c *Client) RunWithRetry(ctx context.Context, backoff time.Duration) error {
	for {
		err := c.Run(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warnf("connection lost: %v; retrying in %s", err, backoff)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
}

func (c *Client) readLoop(conn *websocket.Conn, inbound chan<- []byte, errc chan<- error, done <-chan struct{}) {
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error { conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			errc <- err
			return
		}
		select {
		case inbound <- msg:
		case <-done:
			return
		}
	}
}

func (c *Client) writeLoop(conn *websocket.Conn, out <-chan []byte, errc chan<- error, done <-chan struct{}) {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-done:
			return
		case msg := <-out:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				errc <- err
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				errc <- err
				return
			}
		}
	}
}
