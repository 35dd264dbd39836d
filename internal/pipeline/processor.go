// Package pipeline 实现了会话归档管道：消费会话事件，
// 将已结束会话的完整记录写入对象存储并建立检索索引。
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"mindful-path-go/internal/config"
	"mindful-path-go/internal/model"
	"mindful-path-go/internal/repository"
	"mindful-path-go/pkg/es"
	"mindful-path-go/pkg/log"
	"mindful-path-go/pkg/storage"
	"mindful-path-go/pkg/tasks"
)

// Processor 处理 Kafka 会话事件。实现 kafka.EventProcessor 接口。
type Processor struct {
	convRepo repository.ConversationRepository
	esCfg    config.ElasticsearchConfig
	minioCfg config.MinIOConfig
}

// NewProcessor 创建一个新的归档处理器。
func NewProcessor(convRepo repository.ConversationRepository, esCfg config.ElasticsearchConfig, minioCfg config.MinIOConfig) *Processor {
	return &Processor{
		convRepo: convRepo,
		esCfg:    esCfg,
		minioCfg: minioCfg,
	}
}

// transcript 是写入对象存储的会话归档格式。
type transcript struct {
	Conversation model.Conversation `json:"conversation"`
	Messages     []model.Message    `json:"messages"`
}

// Process 按事件类型分发。入队与认领事件目前仅作为审计流消费，
// 会话关闭事件触发归档与索引。
func (p *Processor) Process(ctx context.Context, event tasks.SessionEvent) error {
	switch event.Type {
	case tasks.EventSessionClosed:
		return p.archive(ctx, event.ConversationID)
	default:
		return nil
	}
}

// archive 将指定会话的记录与消息写入 MinIO，并把消息批量写入 ES 检索索引。
func (p *Processor) archive(ctx context.Context, conversationID uint) error {
	conv, err := p.convRepo.FindByID(conversationID)
	if err != nil {
		return fmt.Errorf("读取会话 %d 失败: %w", conversationID, err)
	}
	messages, err := p.convRepo.FindMessages(conversationID)
	if err != nil {
		return fmt.Errorf("读取会话 %d 的消息失败: %w", conversationID, err)
	}

	// 1. 归档完整记录到对象存储
	body, err := json.Marshal(transcript{Conversation: *conv, Messages: messages})
	if err != nil {
		return err
	}
	objectName := fmt.Sprintf("transcripts/session_%d.json", conversationID)
	if err := storage.PutObject(ctx, p.minioCfg.BucketName, objectName, "application/json", body); err != nil {
		return fmt.Errorf("归档会话 %d 失败: %w", conversationID, err)
	}

	// 2. 写入检索索引
	docs := make([]model.MessageDocument, 0, len(messages))
	for _, m := range messages {
		docs = append(docs, model.MessageDocument{
			ConversationID: m.ConversationID,
			Sender:         m.Sender,
			Message:        m.Message,
			SentAt:         m.SentAt,
		})
	}
	if err := es.IndexMessages(ctx, p.esCfg.IndexName, docs); err != nil {
		return fmt.Errorf("索引会话 %d 的消息失败: %w", conversationID, err)
	}

	log.Infof("会话 %d 归档完成: %d 条消息, 对象 %s", conversationID, len(messages), objectName)
	return nil
}
