// Package repository 定义了与数据库进行数据交换的接口和实现。
package repository

import (
	"mindful-path-go/internal/model"

	"gorm.io/gorm"
)

// ApplicationRepository 接口定义了咨询师申请的持久化操作。
type ApplicationRepository interface {
	Create(app *model.CounsellorApplication) error
	FindAll() ([]model.CounsellorApplication, error)
}

type applicationRepository struct {
	db *gorm.DB
}

// NewApplicationRepository 创建一个新的 ApplicationRepository 实例。
func NewApplicationRepository(db *gorm.DB) ApplicationRepository {
	return &applicationRepository{db: db}
}

func (r *applicationRepository) Create(app *model.CounsellorApplication) error {
	return r.db.Create(app).Error
}

func (r *applicationRepository) FindAll() ([]model.CounsellorApplication, error) {
	var apps []model.CounsellorApplication
	err := r.db.Order("applied_at DESC").Find(&apps).Error
	return apps, err
}
