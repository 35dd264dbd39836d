// Package realtime 实现了实时通信层：在线状态注册表、频道中继与跨实例桥接。
package realtime

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

// Connection 封装了一条 WebSocket 连接，出站写入统一经过带缓冲的发送通道，
// 可安全地被多个 goroutine 并发调用。
type Connection struct {
	id  string
	key string

	ws     *websocket.Conn
	send   chan []byte
	once   sync.Once
	closed chan struct{}
}

// NewConnection 为指定参与者创建一条连接。
// key 是参与者标识，形如 "user:42" 或 "expert:7"。
func NewConnection(key string, ws *websocket.Conn) *Connection {
	return &Connection{
		id:     uuid.NewString(),
		key:    key,
		ws:     ws,
		send:   make(chan []byte, 128),
		closed: make(chan struct{}),
	}
}

// SessionID 返回连接的唯一标识。
func (c *Connection) SessionID() string {
	return c.id
}

// ParticipantKey 返回连接所属参与者的标识。
func (c *Connection) ParticipantKey() string {
	return c.key
}

// Start 启动写循环。每条连接只能调用一次。
func (c *Connection) Start() {
	go c.writeLoop()
}

// Send 将载荷排入发送队列。客户端消费过慢导致缓冲占满时，
// 连接会被关闭以保证背压有界。
// Send 与 Close 可以并发调用：关闭只通过 closed 通道发信号，
// send 通道从不关闭，写循环退出后残留的载荷随连接一起丢弃。
func (c *Connection) Send(payload []byte) error {
	select {
	case <-c.closed:
		return errors.New("连接已关闭")
	default:
	}

	select {
	case <-c.closed:
		return errors.New("连接已关闭")
	case c.send <- payload:
		return nil
	default:
		c.Close(websocket.CloseGoingAway, "发送缓冲已满")
		return errors.New("发送缓冲超限")
	}
}

// Close 终止连接并停止写循环。
func (c *Connection) Close(code int, reason string) {
	c.once.Do(func() {
		close(c.closed)
		_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
		_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
		_ = c.ws.Close()
	})
}

func (c *Connection) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.closed:
			return
		case msg := <-c.send:
			if err := c.writeMessage(msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.writePing(); err != nil {
				return
			}
		}
	}
}

func (c *Connection) writeMessage(payload []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, payload)
}

func (c *Connection) writePing() error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.PingMessage, nil)
}
