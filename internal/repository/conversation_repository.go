// Package repository 定义了与数据库进行数据交换的接口和实现。
package repository

import (
	"errors"

	"mindful-path-go/internal/model"

	"gorm.io/gorm"
)

// ConversationRepository 定义了会话记录与消息日志的持久化操作。
// 消息日志只追加：消息一旦写入既不修改也不删除。
type ConversationRepository interface {
	Create(conv *model.Conversation) error
	FindByID(conversationID uint) (*model.Conversation, error)
	Close(conversationID uint, seconds int64) error
	AppendMessage(msg *model.Message) error
	FindMessages(conversationID uint) ([]model.Message, error)
	FindAll() ([]model.Conversation, error)
	FindByUser(userID uint) ([]model.Conversation, error)
	FindByExpert(expertID uint) ([]model.Conversation, error)
}

// conversationRepository 是 ConversationRepository 接口的 GORM 实现。
type conversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository 创建一个新的 ConversationRepository 实例。
func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

// Create 插入一条新的会话记录。
// (user_id, expert_id, date, start_time) 唯一约束冲突时返回 ErrDuplicateSession。
func (r *conversationRepository) Create(conv *model.Conversation) error {
	if err := r.db.Create(conv).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateSession
		}
		return err
	}
	return nil
}

// FindByID 根据会话 ID 查找会话记录。
func (r *conversationRepository) FindByID(conversationID uint) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.db.First(&conv, conversationID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUnknownConversation
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// Close 写入会话时长（秒）。重复调用时后写者胜出。
func (r *conversationRepository) Close(conversationID uint, seconds int64) error {
	res := r.db.Model(&model.Conversation{}).
		Where("conversation_id = ?", conversationID).
		Update("duration", seconds)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUnknownConversation
	}
	return nil
}

// AppendMessage 向消息日志追加一条消息。
// 所属会话不存在时返回 ErrUnknownConversation。
func (r *conversationRepository) AppendMessage(msg *model.Message) error {
	var count int64
	err := r.db.Model(&model.Conversation{}).
		Where("conversation_id = ?", msg.ConversationID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrUnknownConversation
	}
	return r.db.Create(msg).Error
}

// FindMessages 返回指定会话的全部消息，按接受顺序排列。
func (r *conversationRepository) FindMessages(conversationID uint) ([]model.Message, error) {
	var messages []model.Message
	err := r.db.Where("conversation_id = ?", conversationID).
		Order("sent_at ASC, message_id ASC").
		Find(&messages).Error
	return messages, err
}

// FindAll 返回全部会话记录，供管理端查看。
func (r *conversationRepository) FindAll() ([]model.Conversation, error) {
	var convs []model.Conversation
	err := r.db.Order("conversation_id DESC").Find(&convs).Error
	return convs, err
}

// FindByUser 返回指定用户参与过的全部会话记录。
func (r *conversationRepository) FindByUser(userID uint) ([]model.Conversation, error) {
	var convs []model.Conversation
	err := r.db.Where("user_id = ?", userID).
		Order("conversation_id DESC").
		Find(&convs).Error
	return convs, err
}

// FindByExpert 返回指定专家参与过的全部会话记录。
func (r *conversationRepository) FindByExpert(expertID uint) ([]model.Conversation, error) {
	var convs []model.Conversation
	err := r.db.Where("expert_id = ?", expertID).
		Order("conversation_id DESC").
		Find(&convs).Error
	return convs, err
}
