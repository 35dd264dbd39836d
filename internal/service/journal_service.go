// Package service 包含了应用的业务逻辑层。
package service

import (
	"errors"
	"fmt"
	"time"

	"mindful-path-go/internal/model"
	"mindful-path-go/internal/repository"

	"gorm.io/gorm"
)

// ErrNoJournalEntry 表示指定日期没有日记。
var ErrNoJournalEntry = errors.New("该日期没有日记")

// JournalService 接口定义了用户日记的业务操作。
// 每位用户每天至多一篇日记，且只能更新当天的日记。
type JournalService interface {
	CreateToday(userID uint, title, text, mood string) error
	UpdateToday(userID uint, title, text, mood string) (*model.JournalEntry, error)
	GetByDate(userID uint, date string) (*model.JournalEntry, error)
}

type journalService struct {
	repo repository.JournalRepository
	now  func() time.Time
}

// NewJournalService 创建一个新的 JournalService 实例。
func NewJournalService(repo repository.JournalRepository) JournalService {
	return &journalService{repo: repo, now: time.Now}
}

// CreateToday 为当天创建一篇日记。(user_id, journal_date) 的唯一约束
// 阻止同一天的重复创建。
func (s *journalService) CreateToday(userID uint, title, text, mood string) error {
	now := s.now()
	entry := &model.JournalEntry{
		UserID:      userID,
		JournalDate: time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local),
		Title:       title,
		JournalText: text,
		Mood:        mood,
	}
	if err := s.repo.Create(entry); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errors.New("今天的日记已存在")
		}
		return err
	}
	return nil
}

// UpdateToday 更新当天的日记；历史日记不可修改。
func (s *journalService) UpdateToday(userID uint, title, text, mood string) (*model.JournalEntry, error) {
	entry, err := s.repo.UpdateForDay(userID, s.now(), title, text, mood)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoJournalEntry
	}
	return entry, err
}

// GetByDate 返回指定日期的日记，date 为空时取当天。
func (s *journalService) GetByDate(userID uint, date string) (*model.JournalEntry, error) {
	day := s.now()
	if date != "" {
		parsed, err := time.ParseInLocation("2006-01-02", date, time.Local)
		if err != nil {
			return nil, fmt.Errorf("无效的日期 '%s': %w", date, err)
		}
		day = parsed
	}
	entry, err := s.repo.FindByDay(userID, day)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoJournalEntry
	}
	return entry, err
}
