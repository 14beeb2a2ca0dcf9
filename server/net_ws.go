package server

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"voxelarena/logging"
)

var connSeq uint64

// ClientConn 负责发送（写）数据到客户端的轻量包装
type ClientConn struct {
	id   uint64
	ws   *websocket.Conn
	send chan []byte
	// closed 只在事件循环协程内读写
	closed bool

	writeTimeout time.Duration
	readTimeout  time.Duration
}

func NewClientConn(ws *websocket.Conn, queue int, writeTimeout, readTimeout time.Duration) *ClientConn {
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	if readTimeout <= 0 {
		readTimeout = 60 * time.Second
	}
	return &ClientConn{
		id:           atomic.AddUint64(&connSeq, 1),
		ws:           ws,
		send:         make(chan []byte, queue),
		writeTimeout: writeTimeout,
		readTimeout:  readTimeout,
	}
}

func (c *ClientConn) ID() uint64 { return c.id }

// Enqueue 将要发送的消息压入队列（非阻塞，满则丢弃）
func (c *ClientConn) Enqueue(b []byte) bool {
	if c.closed {
		return false
	}
	select {
	case c.send <- b:
		return true
	default:
		// 为了实时性丢弃，避免慢连接阻塞事件循环
		return false
	}
}

// Close 关闭发送队列；写协程退出时关闭底层连接。只在事件循环内调用
func (c *ClientConn) Close() {
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// writePump 独立协程，负责从 send 队列写出到 WS
func (c *ClientConn) writePump() {
	ticker := time.NewTicker(c.readTimeout * 9 / 10)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump 读取客户端消息并交给 sink；退出时通知 sink 在事件循环中移除该连接
func (c *ClientConn) readPump(sink Sink) {
	defer c.ws.Close()
	defer sink.Leave(c)
	c.ws.SetReadLimit(1 << 20) // 1MB
	c.ws.SetReadDeadline(time.Now().Add(c.readTimeout))
	c.ws.SetPongHandler(func(string) error { c.ws.SetReadDeadline(time.Now().Add(c.readTimeout)); return nil })

	for {
		_, payload, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.Log.Debugf("conn %d read error: %v", c.id, err)
			}
			return
		}
		sink.Deliver(c, payload)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// 演示环境：允许所有来源
		return true
	},
}

// serveConn 升级连接并接入 sink；join 在读写协程启动前执行，保证 connect 先于任何消息处理
func (s *Server) serveConn(w http.ResponseWriter, r *http.Request, sink Sink, join func(Peer)) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Log.Warnf("upgrade error: %v", err)
		return
	}
	client := NewClientConn(ws, s.cfg.Sync.SendQueue, s.cfg.Sync.WriteTimeout, s.cfg.Sync.ReadTimeout)
	join(client)

	go client.writePump()
	go client.readPump(sink)
}

// HandleWS 世界 WebSocket 接入：/ws?world=world-1
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	world := s.worlds.GetOrCreateWorld(s.worldName(r))
	s.serveConn(w, r, world, world.Join)
}

// HandleGraphWS 图演示 WebSocket 接入
func (s *Server) HandleGraphWS(w http.ResponseWriter, r *http.Request) {
	s.serveConn(w, r, s.graph, s.graph.Join)
}
