// Package service 包含了应用的业务逻辑层。
package service

import (
	"mindful-path-go/internal/model"
	"mindful-path-go/internal/repository"
	"mindful-path-go/pkg/hash"
	"mindful-path-go/pkg/token"
)

// AdminService 接口定义了管理端的业务操作。
type AdminService interface {
	ListUsers() ([]model.User, error)
	ListExperts() ([]model.Expert, error)
	ListConversations() ([]model.Conversation, error)
	CreateExpert(userName, email, name string, applicationID *uint) (*model.Expert, string, error)
}

type adminService struct {
	userRepo   repository.UserRepository
	expertRepo repository.ExpertRepository
	convRepo   repository.ConversationRepository
}

// NewAdminService 创建一个新的 AdminService 实例。
func NewAdminService(userRepo repository.UserRepository, expertRepo repository.ExpertRepository, convRepo repository.ConversationRepository) AdminService {
	return &adminService{
		userRepo:   userRepo,
		expertRepo: expertRepo,
		convRepo:   convRepo,
	}
}

func (s *adminService) ListUsers() ([]model.User, error) {
	return s.userRepo.FindAll()
}

func (s *adminService) ListExperts() ([]model.Expert, error) {
	return s.expertRepo.FindAll()
}

func (s *adminService) ListConversations() ([]model.Conversation, error) {
	return s.convRepo.FindAll()
}

// CreateExpert 创建一个专家账号，密码由系统生成并以明文返回一次，
// 供管理员线下告知专家。库中只保存哈希。
func (s *adminService) CreateExpert(userName, email, name string, applicationID *uint) (*model.Expert, string, error) {
	generated := token.GenerateRandomString(6) // 12 位十六进制
	hashed, err := hash.HashPassword(generated)
	if err != nil {
		return nil, "", err
	}

	expert := &model.Expert{
		UserName:      userName,
		Email:         email,
		Password:      hashed,
		Name:          name,
		ApplicationID: applicationID,
	}
	if err := s.expertRepo.Create(expert); err != nil {
		return nil, "", err
	}
	return expert, generated, nil
}
