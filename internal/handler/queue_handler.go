package handler

import (
	"errors"
	"net/http"
	"strconv"

	"mindful-path-go/internal/model"
	"mindful-path-go/internal/repository"
	"mindful-path-go/internal/service"
	"mindful-path-go/pkg/token"

	"github.com/gin-gonic/gin"
)

// QueueHandler 负责处理排队与会话相关的 API 请求。
type QueueHandler struct {
	matchService service.MatchService
	convRepo     repository.ConversationRepository
}

// NewQueueHandler 创建一个新的 QueueHandler 实例。
func NewQueueHandler(matchService service.MatchService, convRepo repository.ConversationRepository) *QueueHandler {
	return &QueueHandler{matchService: matchService, convRepo: convRepo}
}

// EnqueueRequest 定义了加入等待队列的请求结构。日期与时间可省略，默认取当前时刻。
type EnqueueRequest struct {
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
}

// Enqueue 处理用户加入等待队列的请求。
func (h *QueueHandler) Enqueue(c *gin.Context) {
	claims := c.MustGet("claims").(*token.CustomClaims)

	var req EnqueueRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求参数"})
			return
		}
	}

	entry, err := h.matchService.Enqueue(c.Request.Context(), claims.SubjectID, req.Date, req.StartTime)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyQueued) {
			c.JSON(http.StatusConflict, gin.H{"error": "用户已在队列中"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "加入队列失败"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"code":    http.StatusCreated,
		"message": "已加入等待队列",
		"data": gin.H{
			"user_id":    entry.UserID,
			"date":       entry.Date.Format("2006-01-02"),
			"start_time": entry.StartTime,
		},
	})
}

// Waiting 返回当前等待认领的用户队列，先入队者在前。
func (h *QueueHandler) Waiting(c *gin.Context) {
	entries, err := h.matchService.WaitingQueue(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取等待队列失败"})
		return
	}

	items := make([]gin.H, 0, len(entries))
	for _, e := range entries {
		items = append(items, gin.H{
			"user_id":    e.UserID,
			"date":       e.Date.Format("2006-01-02"),
			"start_time": e.StartTime,
		})
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": items})
}

// Claim 处理专家认领排队用户的请求。并发认领同一用户时只有一方成功。
func (h *QueueHandler) Claim(c *gin.Context) {
	claims := c.MustGet("claims").(*token.CustomClaims)

	userID, err := strconv.ParseUint(c.Param("user_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的用户 ID"})
		return
	}

	conv, err := h.matchService.Claim(c.Request.Context(), claims.SubjectID, uint(userID))
	if err != nil {
		if errors.Is(err, repository.ErrNotWaiting) {
			c.JSON(http.StatusConflict, gin.H{"error": "该用户不在等待队列中"})
			return
		}
		if errors.Is(err, repository.ErrDuplicateSession) {
			c.JSON(http.StatusConflict, gin.H{"error": "会话已存在"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "认领失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "认领成功",
		"data": gin.H{
			"conversation_id": conv.ID,
			"room":            conv.Room(),
			"user_id":         conv.UserID,
			"expert_id":       conv.ExpertID,
		},
	})
}

// CloseSession 处理结束会话的请求，写入会话时长。
func (h *QueueHandler) CloseSession(c *gin.Context) {
	claims := c.MustGet("claims").(*token.CustomClaims)

	conversationID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的会话 ID"})
		return
	}

	// 仅会话双方可以结束会话
	if _, err := h.matchService.AuthorizeJoin(c.Request.Context(), model.RoomName(uint(conversationID)), claims.Role, claims.SubjectID); err != nil {
		if errors.Is(err, repository.ErrUnknownConversation) {
			c.JSON(http.StatusNotFound, gin.H{"error": "会话不存在"})
			return
		}
		c.JSON(http.StatusForbidden, gin.H{"error": "无权操作该会话"})
		return
	}

	conv, err := h.matchService.CloseSession(c.Request.Context(), uint(conversationID))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "结束会话失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "会话已结束",
		"data": gin.H{
			"conversation_id": conv.ID,
			"duration":        conv.Duration,
		},
	})
}

// Messages 返回会话的全部历史消息。仅会话双方可以读取。
func (h *QueueHandler) Messages(c *gin.Context) {
	claims := c.MustGet("claims").(*token.CustomClaims)

	conversationID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的会话 ID"})
		return
	}

	if claims.Role != model.RoleAdmin {
		if _, err := h.matchService.AuthorizeJoin(c.Request.Context(), model.RoomName(uint(conversationID)), claims.Role, claims.SubjectID); err != nil {
			if errors.Is(err, repository.ErrUnknownConversation) {
				c.JSON(http.StatusNotFound, gin.H{"error": "会话不存在"})
				return
			}
			c.JSON(http.StatusForbidden, gin.H{"error": "无权读取该会话"})
			return
		}
	}

	messages, err := h.matchService.Messages(c.Request.Context(), uint(conversationID))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取历史消息失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": messages})
}

// Sessions 返回当前身份参与过的全部会话记录。
func (h *QueueHandler) Sessions(c *gin.Context) {
	claims := c.MustGet("claims").(*token.CustomClaims)

	var (
		conversations []model.Conversation
		err           error
	)
	switch claims.Role {
	case model.RoleUser:
		conversations, err = h.convRepo.FindByUser(claims.SubjectID)
	case model.RoleExpert:
		conversations, err = h.convRepo.FindByExpert(claims.SubjectID)
	default:
		conversations, err = h.convRepo.FindAll()
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取会话记录失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": conversations})
}
