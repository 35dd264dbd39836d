// Package realtime 实现了实时通信层：在线状态注册表、频道中继与跨实例桥接。
package realtime

import "encoding/json"

// 客户端入站事件类型。每条连接由独立的读循环按顺序分发这些事件，
// 不同连接之间并发处理。
const (
	EventRegister     = "register"
	EventJoinRoom     = "join_room"
	EventChatMessage  = "chat_message"
	EventInitiateCall = "initiate_call"
	EventCallSignal   = "call_signal"
	EventLeaveSession = "leave_session"
)

// ClientEvent 是 WebSocket 入站消息的类型化联合。Type 决定哪些字段有效。
type ClientEvent struct {
	Type string `json:"type"`
	// join_room / chat_message
	Room    string `json:"room,omitempty"`
	Message string `json:"message,omitempty"`
	// leave_session
	ConversationID uint `json:"conversationId,omitempty"`
	// initiate_call / call_signal：信令载荷原样透传，不落库
	TargetRole string          `json:"targetRole,omitempty"`
	TargetID   uint            `json:"targetId,omitempty"`
	Signal     json.RawMessage `json:"signal,omitempty"`
}
