package service

import (
	"testing"

	"mindful-path-go/internal/model"
	"mindful-path-go/pkg/token"

	"gorm.io/gorm"
)

// fakeUserRepo 是 UserRepository 的内存实现。
type fakeUserRepo struct {
	nextID uint
	users  []*model.User
}

func (r *fakeUserRepo) Create(user *model.User) error {
	r.nextID++
	user.ID = r.nextID
	copied := *user
	r.users = append(r.users, &copied)
	return nil
}

func (r *fakeUserRepo) FindByEmail(email string) (*model.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) FindByUserName(userName string) (*model.User, error) {
	for _, u := range r.users {
		if u.UserName == userName {
			copied := *u
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) FindByID(userID uint) (*model.User, error) {
	for _, u := range r.users {
		if u.ID == userID {
			copied := *u
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) FindAll() ([]model.User, error) {
	out := make([]model.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, *u)
	}
	return out, nil
}

// fakeExpertRepo 是 ExpertRepository 的内存实现。
type fakeExpertRepo struct {
	nextID  uint
	experts []*model.Expert
}

func (r *fakeExpertRepo) Create(expert *model.Expert) error {
	r.nextID++
	expert.ID = r.nextID
	copied := *expert
	r.experts = append(r.experts, &copied)
	return nil
}

func (r *fakeExpertRepo) FindByEmail(email string) (*model.Expert, error) {
	for _, e := range r.experts {
		if e.Email == email {
			copied := *e
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeExpertRepo) FindByID(expertID uint) (*model.Expert, error) {
	for _, e := range r.experts {
		if e.ID == expertID {
			copied := *e
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeExpertRepo) FindAll() ([]model.Expert, error) {
	out := make([]model.Expert, 0, len(r.experts))
	for _, e := range r.experts {
		out = append(out, *e)
	}
	return out, nil
}

func newTestAuthService() AuthService {
	jwtManager := token.NewJWTManager("test-secret", 1, 7)
	return NewAuthService(&fakeUserRepo{}, &fakeExpertRepo{}, jwtManager, "admin-key")
}

func TestRegisterAndLoginUser(t *testing.T) {
	svc := newTestAuthService()

	user, pair, err := svc.RegisterUser("alice", "alice@example.com", "secret123")
	if err != nil {
		t.Fatalf("注册应成功: %v", err)
	}
	if user.ID == 0 {
		t.Fatal("注册后应分配用户 ID")
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("注册应同时签发令牌对")
	}

	if _, err := svc.LoginUser("alice@example.com", "secret123"); err != nil {
		t.Fatalf("正确凭证登录应成功: %v", err)
	}
	if _, err := svc.LoginUser("alice@example.com", "wrong"); err == nil {
		t.Fatal("错误密码不应登录成功")
	}
	if _, err := svc.LoginUser("nobody@example.com", "secret123"); err == nil {
		t.Fatal("未注册邮箱不应登录成功")
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	svc := newTestAuthService()

	if _, _, err := svc.RegisterUser("alice", "alice@example.com", "pw"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := svc.RegisterUser("bob", "alice@example.com", "pw"); err == nil {
		t.Fatal("重复邮箱应被拒绝")
	}
	if _, _, err := svc.RegisterUser("alice", "other@example.com", "pw"); err == nil {
		t.Fatal("重复用户名应被拒绝")
	}
}

func TestLoginAdmin(t *testing.T) {
	svc := newTestAuthService()

	tokenString, err := svc.LoginAdmin("admin-key")
	if err != nil {
		t.Fatalf("正确密钥应签发 token: %v", err)
	}

	manager := token.NewJWTManager("test-secret", 1, 7)
	claims, err := manager.VerifyToken(tokenString)
	if err != nil {
		t.Fatal(err)
	}
	if claims.Role != model.RoleAdmin {
		t.Fatalf("管理员 token 的角色应为 admin, got %q", claims.Role)
	}

	if _, err := svc.LoginAdmin("wrong"); err == nil {
		t.Fatal("错误密钥不应签发 token")
	}
	if _, err := svc.LoginAdmin(""); err == nil {
		t.Fatal("空密钥不应签发 token")
	}
}
