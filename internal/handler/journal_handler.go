package handler

import (
	"errors"
	"net/http"

	"mindful-path-go/internal/service"
	"mindful-path-go/pkg/token"

	"github.com/gin-gonic/gin"
)

// JournalHandler 负责处理用户日记相关的 API 请求。
type JournalHandler struct {
	journalService service.JournalService
}

// NewJournalHandler 创建一个新的 JournalHandler 实例。
func NewJournalHandler(journalService service.JournalService) *JournalHandler {
	return &JournalHandler{journalService: journalService}
}

// JournalRequest 定义了创建和更新日记的请求结构。
type JournalRequest struct {
	Title       string `json:"title"`
	JournalText string `json:"journal_text" binding:"required"`
	Mood        string `json:"mood"`
}

// Create 为当天创建一篇日记。
func (h *JournalHandler) Create(c *gin.Context) {
	claims := c.MustGet("claims").(*token.CustomClaims)

	var req JournalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求参数"})
		return
	}

	if err := h.journalService.CreateToday(claims.SubjectID, req.Title, req.JournalText, req.Mood); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"code": http.StatusCreated, "message": "日记已保存"})
}

// Update 更新当天的日记；历史日记不可修改。
func (h *JournalHandler) Update(c *gin.Context) {
	claims := c.MustGet("claims").(*token.CustomClaims)

	var req JournalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求参数"})
		return
	}

	entry, err := h.journalService.UpdateToday(claims.SubjectID, req.Title, req.JournalText, req.Mood)
	if err != nil {
		if errors.Is(err, service.ErrNoJournalEntry) {
			c.JSON(http.StatusNotFound, gin.H{"error": "今天还没有日记"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "更新日记失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "日记已更新", "data": entry})
}

// Get 返回指定日期的日记，date 查询参数为空时取当天。
func (h *JournalHandler) Get(c *gin.Context) {
	claims := c.MustGet("claims").(*token.CustomClaims)

	entry, err := h.journalService.GetByDate(claims.SubjectID, c.Query("date"))
	if err != nil {
		if errors.Is(err, service.ErrNoJournalEntry) {
			c.JSON(http.StatusNotFound, gin.H{"error": "该日期没有日记"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": entry})
}
