package handler

import (
	"net/http"

	"mindful-path-go/internal/service"

	"github.com/gin-gonic/gin"
)

// SearchHandler 负责处理会话消息全文检索的 API 请求。
type SearchHandler struct {
	searchService service.SearchService
}

// NewSearchHandler 创建一个新的 SearchHandler 实例。
func NewSearchHandler(searchService service.SearchService) *SearchHandler {
	return &SearchHandler{searchService: searchService}
}

// SearchMessages 在已归档的会话消息中做全文检索。
// 索引由事件流水线在会话结束后异步填充，新消息有可见性延迟。
func (h *SearchHandler) SearchMessages(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少查询关键词"})
		return
	}

	docs, err := h.searchService.SearchMessages(c.Request.Context(), query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "检索失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": docs})
}
