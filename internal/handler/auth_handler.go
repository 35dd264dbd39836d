// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"net/http"
	"strings"

	"mindful-path-go/internal/service"
	"mindful-path-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// AuthHandler 负责处理注册、登录与令牌相关的 API 请求。
type AuthHandler struct {
	authService service.AuthService
}

// NewAuthHandler 创建一个新的 AuthHandler 实例。
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// SignupRequest 定义了用户注册 API 的请求体结构。
type SignupRequest struct {
	UserName string `json:"user_name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// SignupUser 处理用户注册请求，成功时直接签发令牌对。
func (h *AuthHandler) SignupUser(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("SignupUser: Invalid request payload, error: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": "无效的请求负载：用户名、邮箱和密码不能为空",
		})
		return
	}

	user, pair, err := h.authService.RegisterUser(req.UserName, req.Email, req.Password)
	if err != nil {
		log.Warnf("SignupUser: registration failed for '%s', error: %v", req.Email, err)
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	log.Infof("User '%s' registered successfully", user.UserName)
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "注册成功",
		"data": gin.H{
			"token":        pair.AccessToken,
			"refreshToken": pair.RefreshToken,
		},
	})
}

// SigninRequest 定义了登录 API 的请求体结构。
type SigninRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// SigninUser 处理用户登录请求。
func (h *AuthHandler) SigninUser(c *gin.Context) {
	h.signin(c, h.authService.LoginUser)
}

// SigninExpert 处理专家登录请求。
func (h *AuthHandler) SigninExpert(c *gin.Context) {
	h.signin(c, h.authService.LoginExpert)
}

func (h *AuthHandler) signin(c *gin.Context, login func(email, password string) (*service.TokenPair, error)) {
	var req SigninRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": "无效的请求负载：邮箱和密码不能为空",
		})
		return
	}

	pair, err := login(req.Email, req.Password)
	if err != nil {
		log.Warnf("Signin: authentication failed for '%s', error: %v", req.Email, err)
		c.JSON(http.StatusUnauthorized, gin.H{
			"code":    http.StatusUnauthorized,
			"message": "无效的凭证",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "Login successful",
		"data": gin.H{
			"token":        pair.AccessToken,
			"refreshToken": pair.RefreshToken,
		},
	})
}

// AdminLogin 校验管理员密钥并签发 admin 角色令牌。
func (h *AuthHandler) AdminLogin(c *gin.Context) {
	key := c.Query("key")
	tokenStr, err := h.authService.LoginAdmin(key)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "无效的管理员密钥"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "token": tokenStr})
}

// RefreshRequest 定义了刷新令牌 API 的请求体结构。
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// RefreshToken 用有效的 refresh token 换取新的令牌对。
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": "无效的请求负载：refreshToken 不能为空",
		})
		return
	}

	pair, err := h.authService.RefreshToken(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"code":    http.StatusUnauthorized,
			"message": "无效或已过期的 refresh token",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data": gin.H{
			"token":        pair.AccessToken,
			"refreshToken": pair.RefreshToken,
		},
	})
}

// Logout 将当前 token 加入黑名单。
func (h *AuthHandler) Logout(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if err := h.authService.Logout(tokenString); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "登出失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "登出成功",
	})
}
