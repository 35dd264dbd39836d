// Package model 定义了与数据库表对应的 Go 结构体。
package model

import (
	"fmt"
	"time"
)

// QueueEntry 对应于数据库中的 'queue' 表，代表一条用户排队记录。
// 自然主键为 (user_id, date, start_time)。Duration 为空表示仍在等待；
// 专家认领时被一次性写入实际等待秒数。记录从不删除，整表即等待时长审计日志。
type QueueEntry struct {
	UserID    uint      `gorm:"column:user_id;primaryKey" json:"userId"`
	Date      time.Time `gorm:"type:date;primaryKey" json:"date"`
	StartTime string    `gorm:"type:time;primaryKey" json:"startTime"`
	// Duration 记录等待时长（秒）。NULL 表示该用户尚未被认领。
	Duration *int64 `json:"duration"`
}

func (QueueEntry) TableName() string {
	return "queue"
}

// StartedAt 将 Date 与 StartTime 合并为入队时刻。
func (q *QueueEntry) StartedAt() (time.Time, error) {
	t, err := time.ParseInLocation("15:04:05", q.StartTime, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("无法解析排队开始时间 '%s': %w", q.StartTime, err)
	}
	d := q.Date
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.Local), nil
}
