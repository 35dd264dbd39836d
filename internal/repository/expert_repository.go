// Package repository 定义了与数据库进行数据交换的接口和实现。
package repository

import (
	"mindful-path-go/internal/model"

	"gorm.io/gorm"
)

// ExpertRepository 接口定义了咨询专家数据的持久化操作。
type ExpertRepository interface {
	Create(expert *model.Expert) error
	FindByEmail(email string) (*model.Expert, error)
	FindByID(expertID uint) (*model.Expert, error)
	FindAll() ([]model.Expert, error)
}

// expertRepository 是 ExpertRepository 接口的 GORM 实现。
type expertRepository struct {
	db *gorm.DB
}

// NewExpertRepository 创建一个新的 ExpertRepository 实例。
func NewExpertRepository(db *gorm.DB) ExpertRepository {
	return &expertRepository{db: db}
}

// Create 在数据库中创建一个新的专家记录。
func (r *expertRepository) Create(expert *model.Expert) error {
	return r.db.Create(expert).Error
}

// FindByEmail 根据邮箱从数据库中查找一个专家。
func (r *expertRepository) FindByEmail(email string) (*model.Expert, error) {
	var expert model.Expert
	err := r.db.Where("email = ?", email).First(&expert).Error
	if err != nil {
		return nil, err
	}
	return &expert, nil
}

// FindByID 根据专家 ID 从数据库中查找一个专家。
func (r *expertRepository) FindByID(expertID uint) (*model.Expert, error) {
	var expert model.Expert
	err := r.db.First(&expert, expertID).Error
	if err != nil {
		return nil, err
	}
	return &expert, nil
}

// FindAll 从数据库中检索所有专家记录。
func (r *expertRepository) FindAll() ([]model.Expert, error) {
	var experts []model.Expert
	err := r.db.Find(&experts).Error
	return experts, err
}
