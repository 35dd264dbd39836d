// Package tasks defines the structure for events that are sent to Kafka.
package tasks

// 会话生命周期事件类型。
const (
	EventEnqueued      = "enqueued"
	EventClaimed       = "claimed"
	EventSessionClosed = "session_closed"
)

// SessionEvent represents a queue/session lifecycle event on the audit stream.
// session_closed 事件同时驱动归档管道：消费者读出会话与消息，
// 将完整记录写入对象存储并建立检索索引。
type SessionEvent struct {
	Type           string `json:"type"`
	UserID         uint   `json:"user_id,omitempty"`
	ExpertID       uint   `json:"expert_id,omitempty"`
	ConversationID uint   `json:"conversation_id,omitempty"`
	// WaitSeconds 仅在 claimed 事件中有效，DurationSeconds 仅在 session_closed 中有效。
	WaitSeconds     int64 `json:"wait_seconds,omitempty"`
	DurationSeconds int64 `json:"duration_seconds,omitempty"`
	OccurredAt      int64 `json:"occurred_at"`
}
