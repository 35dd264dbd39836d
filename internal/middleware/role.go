// Package middleware 提供了处理 HTTP 请求的中间件。
package middleware

import (
	"net/http"

	"mindful-path-go/pkg/token"

	"github.com/gin-gonic/gin"
)

// RequireRole 检查已认证身份的角色是否在允许列表内。
// 此中间件必须在 AuthMiddleware 之后使用。
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claimsValue, exists := c.Get("claims")
		if !exists {
			// claims 不存在说明 AuthMiddleware 未能成功解析，这是一个服务器内部错误
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "无法获取身份信息"})
			return
		}

		claims, ok := claimsValue.(*token.CustomClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "身份数据类型错误"})
			return
		}

		for _, role := range roles {
			if claims.Role == role {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "权限不足"})
	}
}
