// Package realtime 实现了实时通信层：在线状态注册表、频道中继与跨实例桥接。
package realtime

import (
	"context"
	"encoding/json"

	"mindful-path-go/pkg/log"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// Relay 是协调器与 WebSocket 处理器共同依赖的中继能力。
// 单实例部署直接使用 *Hub；多实例部署使用 *Bridge，
// 由共享的 Redis Pub/Sub 层完成跨实例投递。
type Relay interface {
	Attach(conn Session)
	Detach(conn Session)
	Lookup(key string) (Session, bool)
	Join(room string, conn Session)
	Leave(room string, conn Session)
	Broadcast(room string, payload []byte) int
	Notify(key string, payload []byte) bool
	Shutdown()
}

var _ Relay = (*Hub)(nil)
var _ Relay = (*Bridge)(nil)

// envelope 是经由 Redis 频道转发的跨实例投递信封。
type envelope struct {
	Origin  string          `json:"origin"`
	Kind    string          `json:"kind"` // broadcast 或 notify
	Room    string          `json:"room,omitempty"`
	Key     string          `json:"key,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

// Bridge 将本地 Hub 与 Redis Pub/Sub 连接起来：
// 每次广播 / 点对点投递都同时在本地执行并发布到共享频道，
// 其余实例的订阅者收到后向各自的本地成员投递。
type Bridge struct {
	hub      *Hub
	rdb      *redis.Client
	channel  string
	instance string
}

// NewBridge 创建一个跨实例中继桥。channel 是各实例共享的 Redis 频道名。
func NewBridge(hub *Hub, rdb *redis.Client, channel string) *Bridge {
	return &Bridge{
		hub:      hub,
		rdb:      rdb,
		channel:  channel,
		instance: uuid.NewString(),
	}
}

// Start 启动订阅循环。ctx 取消后循环退出。
func (b *Bridge) Start(ctx context.Context) {
	sub := b.rdb.Subscribe(ctx, b.channel)
	go func() {
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-sub.Channel():
				if !ok {
					return
				}
				b.dispatch([]byte(msg.Payload))
			}
		}
	}()
	log.Infof("中继桥已订阅 Redis 频道 '%s'，实例 %s", b.channel, b.instance)
}

func (b *Bridge) dispatch(raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Warnf("无法解析中继信封: %v", err)
		return
	}
	// 跳过本实例发布的信封，本地投递已经完成
	if env.Origin == b.instance {
		return
	}
	switch env.Kind {
	case "broadcast":
		b.hub.Broadcast(env.Room, env.Payload)
	case "notify":
		b.hub.Notify(env.Key, env.Payload)
	}
}

func (b *Bridge) publish(env envelope) {
	env.Origin = b.instance
	raw, err := json.Marshal(env)
	if err != nil {
		log.Warnf("无法序列化中继信封: %v", err)
		return
	}
	if err := b.rdb.Publish(context.Background(), b.channel, raw).Err(); err != nil {
		// 发布失败只影响其他实例上的接收方，本地投递不受影响
		log.Warnf("发布中继信封失败: %v", err)
	}
}

func (b *Bridge) Attach(conn Session)                 { b.hub.Attach(conn) }
func (b *Bridge) Detach(conn Session)                 { b.hub.Detach(conn) }
func (b *Bridge) Lookup(key string) (Session, bool)   { return b.hub.Lookup(key) }
func (b *Bridge) Join(room string, conn Session)      { b.hub.Join(room, conn) }
func (b *Bridge) Leave(room string, conn Session)     { b.hub.Leave(room, conn) }
func (b *Bridge) Shutdown()                           { b.hub.Shutdown() }

// Broadcast 本地投递后将载荷发布到共享频道。返回值为本实例的投递数。
func (b *Bridge) Broadcast(room string, payload []byte) int {
	delivered := b.hub.Broadcast(room, payload)
	b.publish(envelope{Kind: "broadcast", Room: room, Payload: payload})
	return delivered
}

// Notify 本地投递后将载荷发布到共享频道，目标可能挂在其他实例上。
// 返回值仅反映本实例的投递结果。
func (b *Bridge) Notify(key string, payload []byte) bool {
	delivered := b.hub.Notify(key, payload)
	b.publish(envelope{Kind: "notify", Key: key, Payload: payload})
	return delivered
}
