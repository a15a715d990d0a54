package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/hello-gin/internal/httperr"
)

// ParsedBodyKey は解析済みリクエストボディを保存するキーです。
const ParsedBodyKey = "body"

// ParsedBody は JSONBody / URLEncodedBody が解析した値を返します。
// JSON の場合は map[string]any または []any、URLエンコードの場合は url.Values です。
func ParsedBody(c *gin.Context) (any, bool) {
	return c.Get(ParsedBodyKey)
}

// JSONBody は application/json のボディを上限付きで読み込み、検証します。
// 読み込んだ内容は後続の ShouldBindJSON でも使えるように戻します。
func JSONBody(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !hasBody(c.Request) || !isJSON(c.ContentType()) {
			c.Next()
			return
		}

		data, err := readLimited(c.Request, limit)
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(data))

		trimmed := bytes.TrimSpace(data)
		if len(trimmed) == 0 {
			c.Set(ParsedBodyKey, map[string]any{})
			c.Next()
			return
		}
		// オブジェクトと配列だけを受け付ける
		if trimmed[0] != '{' && trimmed[0] != '[' {
			_ = c.Error(httperr.New(http.StatusBadRequest, "JSON body must be an object or array"))
			c.Abort()
			return
		}

		var v any
		if err := json.Unmarshal(trimmed, &v); err != nil {
			_ = c.Error(httperr.Wrap(err, http.StatusBadRequest, "invalid JSON body"))
			c.Abort()
			return
		}
		c.Set(ParsedBodyKey, v)
		c.Next()
	}
}

// URLEncodedBody は application/x-www-form-urlencoded のボディを上限付きで解析します。
func URLEncodedBody(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !hasBody(c.Request) || c.ContentType() != gin.MIMEPOSTForm {
			c.Next()
			return
		}

		if c.Request.ContentLength > limit {
			_ = c.Error(tooLarge())
			c.Abort()
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		if err := c.Request.ParseForm(); err != nil {
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) {
				_ = c.Error(tooLarge())
			} else {
				_ = c.Error(httperr.Wrap(err, http.StatusBadRequest, "invalid form body"))
			}
			c.Abort()
			return
		}
		c.Set(ParsedBodyKey, c.Request.PostForm)
		c.Next()
	}
}

func readLimited(r *http.Request, limit int64) ([]byte, error) {
	if r.ContentLength > limit {
		return nil, tooLarge()
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		return nil, httperr.Wrap(err, http.StatusBadRequest, "failed to read request body")
	}
	if int64(len(data)) > limit {
		return nil, tooLarge()
	}
	return data, nil
}

func tooLarge() *httperr.Error {
	return httperr.New(http.StatusRequestEntityTooLarge, "request entity too large")
}

func hasBody(r *http.Request) bool {
	return r.Body != nil && r.Body != http.NoBody
}

func isJSON(contentType string) bool {
	return contentType == gin.MIMEJSON || strings.HasSuffix(contentType, "+json")
}
