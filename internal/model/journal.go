// Package model 定义了与数据库表对应的 Go 结构体。
package model

import "time"

// JournalEntry 对应于数据库中的 'journal_entries' 表。
// (user_id, journal_date) 上的唯一约束保证每位用户每天至多一篇日记。
type JournalEntry struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      uint      `gorm:"not null;uniqueIndex:uniq_journal_day" json:"userId"`
	JournalDate time.Time `gorm:"type:date;not null;uniqueIndex:uniq_journal_day" json:"journalDate"`
	Title       string    `gorm:"type:varchar(255)" json:"title"`
	JournalText string    `gorm:"type:text;not null" json:"journalText"`
	Mood        string    `gorm:"type:varchar(50)" json:"mood"`
}

func (JournalEntry) TableName() string {
	return "journal_entries"
}
