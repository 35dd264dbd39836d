// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"errors"
	"time"

	"mindful-path-go/internal/model"
	"mindful-path-go/internal/repository"
	"mindful-path-go/pkg/database"
	"mindful-path-go/pkg/hash"
	"mindful-path-go/pkg/log"
	"mindful-path-go/pkg/token"

	"gorm.io/gorm"
)

// TokenPair 是一次签发的 access/refresh 令牌对。
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// AuthService 接口定义了用户与专家的注册登录及令牌相关的业务操作。
type AuthService interface {
	RegisterUser(userName, email, password string) (*model.User, *TokenPair, error)
	LoginUser(email, password string) (*TokenPair, error)
	LoginExpert(email, password string) (*TokenPair, error)
	LoginAdmin(key string) (string, error)
	RefreshToken(refreshTokenString string) (*TokenPair, error)
	Logout(tokenString string) error
	IsBlacklisted(tokenString string) bool
}

// authService 是 AuthService 接口的实现。
type authService struct {
	userRepo    repository.UserRepository
	expertRepo  repository.ExpertRepository
	jwtManager  *token.JWTManager
	adminSecret string
}

// NewAuthService 创建一个新的 AuthService 实例。
func NewAuthService(userRepo repository.UserRepository, expertRepo repository.ExpertRepository, jwtManager *token.JWTManager, adminSecret string) AuthService {
	return &authService{
		userRepo:    userRepo,
		expertRepo:  expertRepo,
		jwtManager:  jwtManager,
		adminSecret: adminSecret,
	}
}

// RegisterUser 处理用户注册的业务逻辑。
func (s *authService) RegisterUser(userName, email, password string) (*model.User, *TokenPair, error) {
	// 1. 检查邮箱是否已注册
	if _, err := s.userRepo.FindByEmail(email); err == nil {
		return nil, nil, errors.New("邮箱已被注册")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, err
	}

	// 2. 检查用户名是否被占用
	if _, err := s.userRepo.FindByUserName(userName); err == nil {
		return nil, nil, errors.New("用户名已被占用")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, err
	}

	// 3. 对密码进行哈希处理
	hashedPassword, err := hash.HashPassword(password)
	if err != nil {
		return nil, nil, err
	}

	newUser := &model.User{
		UserName: userName,
		Email:    email,
		Password: hashedPassword,
	}
	if err := s.userRepo.Create(newUser); err != nil {
		return nil, nil, err
	}

	pair, err := s.issuePair(newUser.ID, newUser.Email, model.RoleUser)
	if err != nil {
		return nil, nil, err
	}
	return newUser, pair, nil
}

// LoginUser 处理用户登录的业务逻辑。
func (s *authService) LoginUser(email, password string) (*TokenPair, error) {
	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("invalid credentials")
		}
		return nil, err
	}
	if !hash.CheckPasswordHash(password, user.Password) {
		return nil, errors.New("invalid credentials")
	}
	return s.issuePair(user.ID, user.Email, model.RoleUser)
}

// LoginExpert 处理专家登录的业务逻辑。
func (s *authService) LoginExpert(email, password string) (*TokenPair, error) {
	expert, err := s.expertRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("invalid credentials")
		}
		return nil, err
	}
	if !hash.CheckPasswordHash(password, expert.Password) {
		return nil, errors.New("invalid credentials")
	}
	return s.issuePair(expert.ID, expert.Email, model.RoleExpert)
}

// LoginAdmin 校验管理员密钥并签发携带 admin 角色的 access token。
func (s *authService) LoginAdmin(key string) (string, error) {
	if key == "" || key != s.adminSecret {
		return "", errors.New("无效的管理员密钥")
	}
	return s.jwtManager.GenerateToken(0, "", model.RoleAdmin)
}

// RefreshToken 校验 refresh token 并签发新的令牌对。
func (s *authService) RefreshToken(refreshTokenString string) (*TokenPair, error) {
	claims, err := s.jwtManager.VerifyToken(refreshTokenString)
	if err != nil {
		return nil, err
	}
	if s.IsBlacklisted(refreshTokenString) {
		return nil, errors.New("令牌已失效")
	}
	return s.issuePair(claims.SubjectID, claims.Email, claims.Role)
}

// Logout 处理登出逻辑，将 token 加入 Redis 黑名单。
// token 的剩余有效期将作为黑名单 key 的过期时间。
func (s *authService) Logout(tokenString string) error {
	claims, err := s.jwtManager.VerifyToken(tokenString)
	if err != nil {
		return err
	}
	expiration := time.Until(claims.ExpiresAt.Time)
	return database.RDB.Set(context.Background(), "blacklist:"+tokenString, "true", expiration).Err()
}

// IsBlacklisted 检查 token 是否已被登出拉黑。
// Redis 异常时放行，避免把认证全挂在缓存可用性上。
func (s *authService) IsBlacklisted(tokenString string) bool {
	val, err := database.RDB.Get(context.Background(), "blacklist:"+tokenString).Result()
	if err != nil {
		return false
	}
	if val != "" {
		log.Infof("拒绝已拉黑的 token")
		return true
	}
	return false
}

func (s *authService) issuePair(subjectID uint, email, role string) (*TokenPair, error) {
	access, err := s.jwtManager.GenerateToken(subjectID, email, role)
	if err != nil {
		return nil, err
	}
	refresh, err := s.jwtManager.GenerateRefreshToken(subjectID, email, role)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
