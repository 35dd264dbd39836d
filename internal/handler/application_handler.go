package handler

import (
	"net/http"

	"mindful-path-go/internal/model"
	"mindful-path-go/internal/service"

	"github.com/gin-gonic/gin"
)

// ApplicationHandler 负责处理咨询师入驻申请相关的 API 请求。
type ApplicationHandler struct {
	applicationService service.ApplicationService
}

// NewApplicationHandler 创建一个新的 ApplicationHandler 实例。
func NewApplicationHandler(applicationService service.ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{applicationService: applicationService}
}

// SubmitRequest 定义了提交入驻申请的请求结构。
type SubmitRequest struct {
	FullName         string `json:"full_name" binding:"required"`
	Email            string `json:"email" binding:"required,email"`
	Phone            string `json:"phone"`
	Location         string `json:"location"`
	Education        string `json:"education"`
	Certifications   string `json:"certifications"`
	YearsExperience  int    `json:"years_experience"`
	AreasOfExpertise string `json:"areas_of_expertise"`
	ResumeURL        string `json:"resume_url"`
	CoverLetter      string `json:"cover_letter"`
	ProfileImageURL  string `json:"profile_image_url"`
}

// Submit 处理公开表单提交的入驻申请。后续审核流程不在本服务范围内。
func (h *ApplicationHandler) Submit(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求参数"})
		return
	}

	app := &model.CounsellorApplication{
		FullName:         req.FullName,
		Email:            req.Email,
		Phone:            req.Phone,
		Location:         req.Location,
		Education:        req.Education,
		Certifications:   req.Certifications,
		YearsExperience:  req.YearsExperience,
		AreasOfExpertise: req.AreasOfExpertise,
		ResumeURL:        req.ResumeURL,
		CoverLetter:      req.CoverLetter,
		ProfileImageURL:  req.ProfileImageURL,
	}
	if err := h.applicationService.Submit(app); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "提交申请失败"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"code":    http.StatusCreated,
		"message": "申请已提交",
		"data":    gin.H{"application_id": app.ID},
	})
}

// List 返回全部入驻申请，供管理端查看。
func (h *ApplicationHandler) List(c *gin.Context) {
	apps, err := h.applicationService.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取申请列表失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": apps})
}
