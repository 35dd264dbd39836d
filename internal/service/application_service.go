// Package service 包含了应用的业务逻辑层。
package service

import (
	"mindful-path-go/internal/model"
	"mindful-path-go/internal/repository"
)

// ApplicationService 接口定义了咨询师申请的业务操作。
// 申请的审核流程不在本服务范围内，这里只负责提交与查看。
type ApplicationService interface {
	Submit(app *model.CounsellorApplication) error
	List() ([]model.CounsellorApplication, error)
}

type applicationService struct {
	repo repository.ApplicationRepository
}

// NewApplicationService 创建一个新的 ApplicationService 实例。
func NewApplicationService(repo repository.ApplicationRepository) ApplicationService {
	return &applicationService{repo: repo}
}

func (s *applicationService) Submit(app *model.CounsellorApplication) error {
	app.Status = "pending"
	return s.repo.Create(app)
}

func (s *applicationService) List() ([]model.CounsellorApplication, error) {
	return s.repo.FindAll()
}
