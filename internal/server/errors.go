package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/yourusername/hello-gin/internal/httperr"
)

// GenericErrorMessage は development 以外で返す本文です。
const GenericErrorMessage = "Server Error"

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// ErrorRenderer は後続ステージで登録されたエラーとパニックを応答に変換します。
// verbose が true の場合はスタックトレースを含めて返します。
func ErrorRenderer(verbose bool, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				if r == http.ErrAbortHandler {
					panic(r)
				}
				err := errors.Errorf("panic: %v", r)
				_ = c.Error(httperr.Wrap(err, http.StatusInternalServerError, "Internal Server Error"))
				c.Abort()
				renderError(c, verbose, logger)
			}
		}()

		c.Next()
		renderError(c, verbose, logger)
	}
}

func renderError(c *gin.Context, verbose bool, logger *zap.Logger) {
	last := c.Errors.Last()
	if last == nil {
		return
	}
	err := last.Err
	status := httperr.StatusOf(err)

	fields := []zap.Field{
		zap.Int("status", status),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", fields...)
	} else {
		logger.Debug("request rejected", fields...)
	}

	if c.Writer.Written() {
		// 既に応答を書き始めているので何もできない
		return
	}

	if !verbose {
		message := GenericErrorMessage
		var he *httperr.Error
		if errors.As(err, &he) && he.Expose {
			message = he.Message
		}
		c.String(status, message)
		return
	}

	message := err.Error()
	var he *httperr.Error
	if errors.As(err, &he) {
		message = he.Message
	}
	stack := stackOf(err)

	switch c.NegotiateFormat(gin.MIMEPlain, gin.MIMEJSON) {
	case gin.MIMEJSON:
		c.JSON(status, gin.H{
			"error": gin.H{
				"status":  status,
				"message": message,
				"stack":   stack,
			},
		})
	default:
		c.String(status, "%s\n\n%s", message, stack)
	}
}

func stackOf(err error) string {
	var st stackTracer
	if errors.As(err, &st) {
		return fmt.Sprintf("%+v", st)
	}
	return fmt.Sprintf("%+v", errors.WithStack(err))
}
