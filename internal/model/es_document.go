// Package model 定义了与数据库表对应的 Go 结构体。
package model

import "time"

// MessageDocument 是写入 Elasticsearch 检索索引的消息文档。
// 会话关闭后由归档管道批量写入。
type MessageDocument struct {
	ConversationID uint      `json:"conversation_id"`
	Sender         string    `json:"sender"`
	Message        string    `json:"message"`
	SentAt         time.Time `json:"sent_at"`
}
