package stats

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/SlpAus/spam-clicker-backend/internal/user"
)

// 返回给前端的错误提示
const (
	msgUserIDRequired = "User ID is required"
	msgInvalidBody    = "Invalid request body"
	msgRecordFailed   = "Failed to update spam count. Please try again!"
	msgStatsFailed    = "Failed to fetch user stats. Please try again later."
	msgRateLimited    = "Too many SPAMs, slow down!"
	msgBoardFailed    = "Failed to fetch leaderboard"
)

// Limiter 决定一个用户是否还能提交 clicks 次点击
type Limiter interface {
	Allow(ctx context.Context, userID string, clicks int64) (bool, error)
}

// Handler 把统计引擎暴露为HTTP接口
type Handler struct {
	engine  *Engine
	limiter Limiter
	log     *zap.Logger
}

// NewHandler 创建处理器，limiter 可以为 nil
func NewHandler(engine *Engine, limiter Limiter, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{engine: engine, limiter: limiter, log: log}
}

// recordRequestBody 是 updateSpamCount 的请求体。clickCount 保留原始JSON，按宽松规则转换。
type recordRequestBody struct {
	UserID     string          `json:"userId"`
	ClickCount json.RawMessage `json:"clickCount"`
}

type statsRequestBody struct {
	UserID string `json:"userId"`
}

// resolveUserID 优先使用请求体中的 userId，缺省时使用 cookie 中的身份
func resolveUserID(c *gin.Context, fromBody string) string {
	if id := strings.TrimSpace(fromBody); id != "" {
		return id
	}
	return user.FromContext(c)
}

func recordFailure(msg string) RecordResult {
	r := emptyRecordResult()
	r.Error = msg
	return r
}

func statsFailure(msg string) StatsResult {
	r := emptyStatsResult()
	r.Error = msg
	return r
}

// UpdateSpamCount 处理 POST /api/updateSpamCount
// 业务错误以 200 + error 字段返回，前端根据 error 字段判断
func (h *Handler) UpdateSpamCount(c *gin.Context) {
	var body recordRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, recordFailure(msgInvalidBody))
		return
	}

	userID := resolveUserID(c, body.UserID)
	clicks := NormalizeClickCount(body.ClickCount)

	if userID != "" && h.limiter != nil {
		allowed, err := h.limiter.Allow(c.Request.Context(), userID, clicks)
		if err != nil {
			// 频率限制不可用时放行
			h.log.Warn("频率限制检查失败，放行请求", zap.String("user_id", userID), zap.Error(err))
		} else if !allowed {
			operationFailures.WithLabelValues("RecordClicks", KindRateLimited.String()).Inc()
			c.JSON(http.StatusTooManyRequests, recordFailure(msgRateLimited))
			return
		}
	}

	result, err := h.engine.RecordClicks(c.Request.Context(), userID, clicks)
	if err != nil {
		switch {
		case errors.Is(err, ErrValidation):
			c.JSON(http.StatusOK, recordFailure(msgUserIDRequired))
		default:
			_ = c.Error(err)
			c.JSON(http.StatusOK, recordFailure(msgRecordFailed))
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetUserStats 处理 POST /api/getUserStats
func (h *Handler) GetUserStats(c *gin.Context) {
	var body statsRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, statsFailure(msgInvalidBody))
		return
	}

	result, err := h.engine.GetStats(c.Request.Context(), resolveUserID(c, body.UserID))
	if err != nil {
		msg := msgStatsFailed
		if errors.Is(err, ErrValidation) {
			msg = msgUserIDRequired
		} else {
			_ = c.Error(err)
		}
		result.Error = msg
		c.JSON(http.StatusOK, result)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetLeaderboard 处理 GET /api/leaderboard?limit=N
func (h *Handler) GetLeaderboard(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
			return
		}
		limit = n
	}

	entries, err := h.engine.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgBoardFailed})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// RegisterRoutes 在给定的路由组上注册统计接口
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/updateSpamCount", user.LoadUserMiddleware(), h.UpdateSpamCount)
	rg.POST("/getUserStats", user.LoadUserMiddleware(), h.GetUserStats)
	rg.GET("/leaderboard", gzip.Gzip(gzip.DefaultCompression), h.GetLeaderboard)
}
