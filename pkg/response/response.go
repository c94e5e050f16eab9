// Package response 统一的 HTTP 响应封装
package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/optionpricing/pkg/logger"
)

// 业务码
const (
	CodeSuccess = 0
	CodeError   = -1
)

// Response 统一响应结构
type Response struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	Data      any    `json:"data,omitempty"`
	Detail    string `json:"detail,omitempty"`
	TraceID   string `json:"trace_id,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Success 返回 200 与数据
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{
		Code:      CodeSuccess,
		Message:   "success",
		Data:      data,
		TraceID:   traceID(c),
		Timestamp: time.Now().UnixMilli(),
	})
}

// Error 以 500 返回错误
func Error(c *gin.Context, err error) {
	ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
}

// ErrorWithStatus 以指定 HTTP 状态码返回错误，code 取状态码
func ErrorWithStatus(c *gin.Context, status int, message, detail string) {
	c.AbortWithStatusJSON(status, Response{
		Code:      status,
		Message:   message,
		Detail:    detail,
		TraceID:   traceID(c),
		Timestamp: time.Now().UnixMilli(),
	})
}

func traceID(c *gin.Context) string {
	if v, ok := c.Get(string(logger.TraceIDKey)); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	if s, ok := c.Request.Context().Value(logger.TraceIDKey).(string); ok {
		return s
	}
	return ""
}
