// Package model 定义了与数据库表对应的 Go 结构体。
package model

import "time"

// CounsellorApplication 对应于数据库中的 'counsellor_applications' 表。
// 申请由公开表单提交，后续的审核流程不在本服务范围内。
type CounsellorApplication struct {
	ID               uint      `gorm:"column:application_id;primaryKey;autoIncrement" json:"applicationId"`
	FullName         string    `gorm:"type:varchar(100);not null" json:"fullName"`
	Email            string    `gorm:"type:varchar(255);not null" json:"email"`
	Phone            string    `gorm:"type:varchar(50)" json:"phone"`
	Location         string    `gorm:"type:varchar(255)" json:"location"`
	Education        string    `gorm:"type:text" json:"education"`
	Certifications   string    `gorm:"type:text" json:"certifications"`
	YearsExperience  int       `json:"yearsExperience"`
	AreasOfExpertise string    `gorm:"type:text" json:"areasOfExpertise"`
	ResumeURL        string    `gorm:"type:varchar(255)" json:"resumeUrl"`
	CoverLetter      string    `gorm:"type:text" json:"coverLetter"`
	ProfileImageURL  string    `gorm:"type:varchar(255)" json:"profileImageUrl"`
	Status           string    `gorm:"type:varchar(50);default:'pending'" json:"status"`
	AppliedAt        time.Time `gorm:"autoCreateTime" json:"appliedAt"`
}

func (CounsellorApplication) TableName() string {
	return "counsellor_applications"
}
