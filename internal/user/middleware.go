package user

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	CookieName   = "user-id"
	CookieMaxAge = 365 * 24 * 60 * 60
	UserIDKey    = "userID"
)

// EnsureUserCookieMiddleware 确保用户的浏览器中有一个格式正确的user-id cookie。
// 如果没有或格式不正确，它会生成一个新的ID并设置cookie，同时放入Gin上下文。
func EnsureUserCookieMiddleware(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := c.Cookie(CookieName)

		if err != nil || !IsValidUUID(userID) {
			if !errors.Is(err, http.ErrNoCookie) {
				log.Debug("检测到无效的用户Cookie", zap.String("value", userID), zap.Error(err))
			}
			provisionalUserID, err := CreateProvisionalUser()
			if err != nil {
				log.Error("创建临时用户ID时发生错误", zap.Error(err))
				c.Next()
				return
			}
			c.SetCookie(CookieName, provisionalUserID, CookieMaxAge, "/", "", false, true)
			userID = provisionalUserID
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// LoadUserMiddleware 读取cookie并将合法的值放入Gin上下文中。
func LoadUserMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := c.Cookie(CookieName)
		if IsValidUUID(userID) {
			c.Set(UserIDKey, userID)
		}
		c.Next()
	}
}

// FromContext 返回中间件放入上下文的用户ID，没有时返回空字符串
func FromContext(c *gin.Context) string {
	return c.GetString(UserIDKey)
}

// SessionHandler 处理 GET /api/session，返回当前cookie对应的用户ID
func SessionHandler(c *gin.Context) {
	userID := FromContext(c)
	if userID == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"userId": userID})
}
