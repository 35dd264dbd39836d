package handler

import (
	"net/http"

	"mindful-path-go/internal/service"

	"github.com/gin-gonic/gin"
)

// AdminHandler 负责处理管理端的 API 请求。
type AdminHandler struct {
	adminService service.AdminService
}

// NewAdminHandler 创建一个新的 AdminHandler 实例。
func NewAdminHandler(adminService service.AdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

// ListUsers 返回全部注册用户。
func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := h.adminService.ListUsers()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取用户列表失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": users})
}

// ListExperts 返回全部专家。
func (h *AdminHandler) ListExperts(c *gin.Context) {
	experts, err := h.adminService.ListExperts()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取专家列表失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": experts})
}

// ListConversations 返回全部会话记录。
func (h *AdminHandler) ListConversations(c *gin.Context) {
	conversations, err := h.adminService.ListConversations()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取会话记录失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": conversations})
}

// CreateExpertRequest 定义了开通专家账号的请求结构。
type CreateExpertRequest struct {
	UserName      string `json:"user_name" binding:"required"`
	Email         string `json:"email" binding:"required,email"`
	Name          string `json:"name" binding:"required"`
	ApplicationID *uint  `json:"application_id"`
}

// CreateExpert 开通一个专家账号，初始密码随机生成并只在响应中返回一次。
func (h *AdminHandler) CreateExpert(c *gin.Context) {
	var req CreateExpertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求参数"})
		return
	}

	expert, password, err := h.adminService.CreateExpert(req.UserName, req.Email, req.Name, req.ApplicationID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"code":    http.StatusCreated,
		"message": "专家账号已开通",
		"data": gin.H{
			"expert":           expert,
			"initial_password": password,
		},
	})
}
