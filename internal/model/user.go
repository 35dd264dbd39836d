// Package model 定义了与数据库表对应的 Go 结构体。
package model

import "time"

// 参与者角色常量，与 JWT claims 中的 role 字段保持一致。
const (
	RoleUser   = "user"
	RoleExpert = "expert"
	RoleAdmin  = "admin"
)

// User 对应于数据库中的 'users' 表，代表一个寻求咨询的普通用户。
type User struct {
	ID         uint      `gorm:"column:user_id;primaryKey;autoIncrement" json:"userId"`
	UserName   string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"userName"`
	Email      string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"email"`
	Password   string    `gorm:"type:varchar(255);not null" json:"-"`
	Age        *int      `json:"age"`
	Profession string    `gorm:"type:varchar(255)" json:"profession"`
	Name       string    `gorm:"type:varchar(255)" json:"name"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (User) TableName() string {
	return "users"
}

// Expert 对应于数据库中的 'counselling_experts' 表，代表一名咨询专家。
// 专家账号由管理员创建，密码为系统生成后下发。
type Expert struct {
	ID            uint      `gorm:"column:expert_id;primaryKey;autoIncrement" json:"expertId"`
	UserName      string    `gorm:"type:varchar(255);not null" json:"userName"`
	Email         string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"email"`
	Password      string    `gorm:"type:varchar(255);not null" json:"-"`
	Name          string    `gorm:"type:varchar(255);not null" json:"name"`
	ApplicationID *uint     `json:"applicationId"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (Expert) TableName() string {
	return "counselling_experts"
}
