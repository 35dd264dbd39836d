// Package realtime 实现了实时通信层：在线状态注册表、频道中继与跨实例桥接。
package realtime

import (
	"fmt"
	"sync"

	"mindful-path-go/pkg/metrics"
)

// Session 是可挂接到 Hub 的连接需要满足的最小接口。
type Session interface {
	SessionID() string
	ParticipantKey() string
	Send(payload []byte) error
	Close(code int, reason string)
}

// ParticipantKey 由角色与数据库 ID 派生参与者标识。
// 同一参与者的标识在重连前后保持不变，在线状态映射以它为键。
func ParticipantKey(role string, id uint) string {
	return fmt.Sprintf("%s:%d", role, id)
}

// Hub 维护在线状态注册表与频道成员关系：
// 每个参与者至多保留一条活跃连接（后注册者覆盖先注册者），
// 频道是纯内存的连接分组，随最后一名成员离开而消失。
type Hub struct {
	mu           sync.RWMutex
	sessions     map[string]Session            // sessionID -> 连接
	participants map[string]string             // 参与者标识 -> sessionID
	rooms        map[string]map[string]Session // 频道名 -> sessionID -> 连接
	sessionRooms map[string]map[string]struct{}
}

// NewHub 创建一个初始化完毕的 Hub。
func NewHub() *Hub {
	return &Hub{
		sessions:     make(map[string]Session),
		participants: make(map[string]string),
		rooms:        make(map[string]map[string]Session),
		sessionRooms: make(map[string]map[string]struct{}),
	}
}

// Attach 为参与者注册一条连接。若该参与者已有旧连接，
// 先完成替换再关闭旧连接，保证任一时刻至多一条活跃连接。
func (h *Hub) Attach(conn Session) {
	var previous Session

	h.mu.Lock()
	if existingID, ok := h.participants[conn.ParticipantKey()]; ok {
		if existing := h.sessions[existingID]; existing != nil {
			previous = existing
			h.detachLocked(existingID)
		}
	}

	h.sessions[conn.SessionID()] = conn
	h.participants[conn.ParticipantKey()] = conn.SessionID()
	h.sessionRooms[conn.SessionID()] = make(map[string]struct{})
	h.mu.Unlock()

	metrics.LiveConnections.Inc()

	if previous != nil {
		previous.Close(4001, "连接已被新会话替换")
	}
}

// Detach 在断开时移除连接及其全部频道成员关系。
// 连接已被新会话替换时这里是无害的空操作。
func (h *Hub) Detach(conn Session) {
	h.mu.Lock()
	_, tracked := h.sessions[conn.SessionID()]
	h.detachLocked(conn.SessionID())
	h.mu.Unlock()

	if tracked {
		metrics.LiveConnections.Dec()
	}
}

// Lookup 返回参与者当前的活跃连接。不在线是正常结果，返回 false，
// 调用方应将其视为静默空操作而非错误。
func (h *Hub) Lookup(key string) (Session, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	sessionID, ok := h.participants[key]
	if !ok {
		return nil, false
	}
	conn := h.sessions[sessionID]
	return conn, conn != nil
}

// Join 将连接加入指定频道。
func (h *Hub) Join(room string, conn Session) {
	h.mu.Lock()
	if _, ok := h.sessions[conn.SessionID()]; !ok {
		h.mu.Unlock()
		return
	}

	members := h.rooms[room]
	if members == nil {
		members = make(map[string]Session)
		h.rooms[room] = members
	}
	members[conn.SessionID()] = conn

	memberships := h.sessionRooms[conn.SessionID()]
	if memberships == nil {
		memberships = make(map[string]struct{})
		h.sessionRooms[conn.SessionID()] = memberships
	}
	memberships[room] = struct{}{}
	h.mu.Unlock()
}

// Leave 将连接移出指定频道。
func (h *Hub) Leave(room string, conn Session) {
	h.mu.Lock()
	h.leaveLocked(room, conn.SessionID())
	h.mu.Unlock()
}

// Broadcast 将载荷投递给频道内当前的全部成员（包含发送者自身的回显）。
// 返回成功投递的连接数。
func (h *Hub) Broadcast(room string, payload []byte) int {
	h.mu.RLock()
	members := h.rooms[room]
	if len(members) == 0 {
		h.mu.RUnlock()
		return 0
	}

	delivered := 0
	for _, conn := range members {
		if err := conn.Send(payload); err == nil {
			delivered++
		}
	}
	h.mu.RUnlock()

	metrics.RelayedMessages.Add(float64(delivered))
	return delivered
}

// Notify 将载荷点对点投递给指定参与者的当前连接。
// 目标不在线时返回 false，调用方按无操作处理。
func (h *Hub) Notify(key string, payload []byte) bool {
	conn, ok := h.Lookup(key)
	if !ok {
		return false
	}
	return conn.Send(payload) == nil
}

// Shutdown 关闭全部连接并清空 Hub 状态。
func (h *Hub) Shutdown() {
	h.mu.Lock()
	sessions := make([]Session, 0, len(h.sessions))
	for _, conn := range h.sessions {
		sessions = append(sessions, conn)
	}
	h.sessions = make(map[string]Session)
	h.participants = make(map[string]string)
	h.rooms = make(map[string]map[string]Session)
	h.sessionRooms = make(map[string]map[string]struct{})
	h.mu.Unlock()

	for _, conn := range sessions {
		conn.Close(1001, "服务停机")
	}
}

func (h *Hub) detachLocked(sessionID string) {
	conn, ok := h.sessions[sessionID]
	if !ok {
		return
	}
	delete(h.sessions, sessionID)

	if current, ok := h.participants[conn.ParticipantKey()]; ok && current == sessionID {
		delete(h.participants, conn.ParticipantKey())
	}

	for room := range h.sessionRooms[sessionID] {
		h.leaveLocked(room, sessionID)
	}
	delete(h.sessionRooms, sessionID)
}

func (h *Hub) leaveLocked(room, sessionID string) {
	members := h.rooms[room]
	if members == nil {
		return
	}
	delete(members, sessionID)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
	if memberships, ok := h.sessionRooms[sessionID]; ok {
		delete(memberships, room)
	}
}
