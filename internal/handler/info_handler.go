// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"net/http"

	"mindful-path-go/internal/model"
	"mindful-path-go/internal/repository"
	"mindful-path-go/pkg/token"

	"github.com/gin-gonic/gin"
)

// InfoHandler 负责处理参与者信息查询的 API 请求。
type InfoHandler struct {
	userRepo   repository.UserRepository
	expertRepo repository.ExpertRepository
}

// NewInfoHandler 创建一个新的 InfoHandler 实例。
func NewInfoHandler(userRepo repository.UserRepository, expertRepo repository.ExpertRepository) *InfoHandler {
	return &InfoHandler{userRepo: userRepo, expertRepo: expertRepo}
}

// Me 返回当前已认证参与者的资料，按角色从对应的表中读取。
func (h *InfoHandler) Me(c *gin.Context) {
	claims := c.MustGet("claims").(*token.CustomClaims)

	switch claims.Role {
	case model.RoleUser:
		user, err := h.userRepo.FindByID(claims.SubjectID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "用户不存在"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": user})
	case model.RoleExpert:
		expert, err := h.expertRepo.FindByID(claims.SubjectID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "专家不存在"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": expert})
	default:
		c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": gin.H{"role": claims.Role}})
	}
}

// Role 返回当前身份的角色，前端据此选择跳转页面。
func (h *InfoHandler) Role(c *gin.Context) {
	claims := c.MustGet("claims").(*token.CustomClaims)
	c.JSON(http.StatusOK, gin.H{"role": claims.Role})
}
