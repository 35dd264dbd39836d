// Package model 定义了与数据库表对应的 Go 结构体。
package model

import (
	"fmt"
	"time"
)

// Conversation 对应于数据库中的 'counselled_by' 表，
// 是一次用户-专家咨询会话的持久记录。
// (user_id, expert_id, date, start_time) 上的唯一约束防止同一认领瞬间产生重复会话。
type Conversation struct {
	ID        uint      `gorm:"column:conversation_id;primaryKey;autoIncrement" json:"conversationId"`
	UserID    uint      `gorm:"not null;uniqueIndex:uniq_session" json:"userId"`
	ExpertID  uint      `gorm:"not null;uniqueIndex:uniq_session" json:"expertId"`
	Date      time.Time `gorm:"type:date;not null;uniqueIndex:uniq_session" json:"date"`
	StartTime string    `gorm:"type:time;not null;uniqueIndex:uniq_session" json:"startTime"`
	// Duration 记录会话时长（秒）。NULL 表示会话尚未结束。
	Duration *int64 `json:"duration"`
}

func (Conversation) TableName() string {
	return "counselled_by"
}

// RoomName 返回会话 ID 对应的实时频道名。频道名由会话 ID 确定性派生，
// 双方客户端各自凭此名字加入同一频道。
func RoomName(conversationID uint) string {
	return fmt.Sprintf("session_%d", conversationID)
}

// Room 返回该会话对应的实时频道名。
func (c *Conversation) Room() string {
	return RoomName(c.ID)
}

// StartedAt 将 Date 与 StartTime 合并为会话开始时刻。
func (c *Conversation) StartedAt() (time.Time, error) {
	t, err := time.ParseInLocation("15:04:05", c.StartTime, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("无法解析会话开始时间 '%s': %w", c.StartTime, err)
	}
	d := c.Date
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.Local), nil
}

// Message 对应于数据库中的 'messages' 表。消息只追加，从不修改或删除，
// 每条消息归属于唯一一个会话。
type Message struct {
	ID             uint      `gorm:"column:message_id;primaryKey;autoIncrement" json:"messageId"`
	ConversationID uint      `gorm:"not null;index" json:"conversationId"`
	Sender         string    `gorm:"type:varchar(50);not null" json:"sender"`
	Message        string    `gorm:"type:text;not null" json:"message"`
	SentAt         time.Time `gorm:"autoCreateTime" json:"sentAt"`
}

func (Message) TableName() string {
	return "messages"
}
