// Package repository 定义了与数据库进行数据交换的接口和实现。
package repository

import (
	"errors"

	"mindful-path-go/internal/model"

	"gorm.io/gorm"
)

// QueueRepository 接口定义了排队数据的持久化操作。
type QueueRepository interface {
	Enqueue(entry *model.QueueEntry) error
	FindWaiting() ([]model.QueueEntry, error)
	FindWaitingByUser(userID uint) (*model.QueueEntry, error)
	MarkClaimed(userID uint, seconds int64) (*model.QueueEntry, error)
}

// queueRepository 是 QueueRepository 接口的 GORM 实现。
type queueRepository struct {
	db *gorm.DB
}

// NewQueueRepository 创建一个新的 QueueRepository 实例。
func NewQueueRepository(db *gorm.DB) QueueRepository {
	return &queueRepository{db: db}
}

// Enqueue 插入一条新的排队记录。
// 若该用户已有 duration 为空的记录，返回 ErrAlreadyQueued。
func (r *queueRepository) Enqueue(entry *model.QueueEntry) error {
	var count int64
	err := r.db.Model(&model.QueueEntry{}).
		Where("user_id = ? AND duration IS NULL", entry.UserID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrAlreadyQueued
	}
	if err := r.db.Create(entry).Error; err != nil {
		// 复合主键冲突说明同一瞬间的记录已存在，同样视为重复入队
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrAlreadyQueued
		}
		return err
	}
	return nil
}

// FindWaiting 返回所有仍在等待的排队记录，按 (date, start_time) 升序排列，
// 即先入队者优先。
func (r *queueRepository) FindWaiting() ([]model.QueueEntry, error) {
	var entries []model.QueueEntry
	err := r.db.Where("duration IS NULL").
		Order("date ASC, start_time ASC").
		Find(&entries).Error
	return entries, err
}

// FindWaitingByUser 返回指定用户当前的待认领记录，不存在时返回 ErrNotWaiting。
func (r *queueRepository) FindWaitingByUser(userID uint) (*model.QueueEntry, error) {
	var entry model.QueueEntry
	err := r.db.Where("user_id = ? AND duration IS NULL", userID).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotWaiting
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// MarkClaimed 以单条条件更新完成认领：
//
//	UPDATE queue SET duration = ? WHERE user_id = ? AND duration IS NULL
//
// 影响行数为零即认领失败（已被并发专家认领或从未入队），返回 ErrNotWaiting。
// 认领必须走这条原子更新，绝不能拆成先读后写两步。
func (r *queueRepository) MarkClaimed(userID uint, seconds int64) (*model.QueueEntry, error) {
	res := r.db.Model(&model.QueueEntry{}).
		Where("user_id = ? AND duration IS NULL", userID).
		Update("duration", seconds)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotWaiting
	}

	var entry model.QueueEntry
	err := r.db.Where("user_id = ? AND duration = ?", userID, seconds).
		Order("date DESC, start_time DESC").
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}
