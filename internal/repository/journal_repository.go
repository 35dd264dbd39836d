// Package repository 定义了与数据库进行数据交换的接口和实现。
package repository

import (
	"time"

	"mindful-path-go/internal/model"

	"gorm.io/gorm"
)

// JournalRepository 接口定义了用户日记的持久化操作。
type JournalRepository interface {
	Create(entry *model.JournalEntry) error
	UpdateForDay(userID uint, day time.Time, title, text, mood string) (*model.JournalEntry, error)
	FindByDay(userID uint, day time.Time) (*model.JournalEntry, error)
}

// journalRepository 是 JournalRepository 接口的 GORM 实现。
type journalRepository struct {
	db *gorm.DB
}

// NewJournalRepository 创建一个新的 JournalRepository 实例。
func NewJournalRepository(db *gorm.DB) JournalRepository {
	return &journalRepository{db: db}
}

// Create 插入一篇新的日记。(user_id, journal_date) 唯一约束保证每天至多一篇。
func (r *journalRepository) Create(entry *model.JournalEntry) error {
	return r.db.Create(entry).Error
}

// UpdateForDay 更新用户在指定日期的日记；该日期没有日记时返回 gorm.ErrRecordNotFound。
func (r *journalRepository) UpdateForDay(userID uint, day time.Time, title, text, mood string) (*model.JournalEntry, error) {
	res := r.db.Model(&model.JournalEntry{}).
		Where("user_id = ? AND journal_date = ?", userID, day.Format("2006-01-02")).
		Updates(map[string]interface{}{"title": title, "journal_text": text, "mood": mood})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.FindByDay(userID, day)
}

// FindByDay 返回用户在指定日期的日记。
func (r *journalRepository) FindByDay(userID uint, day time.Time) (*model.JournalEntry, error) {
	var entry model.JournalEntry
	err := r.db.Where("user_id = ? AND journal_date = ?", userID, day.Format("2006-01-02")).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}
