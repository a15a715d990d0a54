package server

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
)

const indexFile = "index.html"

// Static は dir 配下のファイルを長期キャッシュ付きで配信します。
// 該当するファイルが無いリクエストは次のステージへ渡します。
func Static(dir string, maxAge time.Duration) gin.HandlerFunc {
	root, err := filepath.Abs(dir)
	if err != nil {
		return passThrough
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return passThrough
	}
	cacheControl := fmt.Sprintf("public, max-age=%d", int64(maxAge/time.Second))

	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			c.Next()
			return
		}

		name := path.Clean("/" + c.Request.URL.Path)
		if hasDotSegment(name) {
			c.Next()
			return
		}

		full := filepath.Join(root, filepath.FromSlash(name))
		info, err := os.Stat(full)
		if err == nil && info.IsDir() {
			full = filepath.Join(full, indexFile)
			info, err = os.Stat(full)
		}
		if err != nil || !info.Mode().IsRegular() {
			c.Next()
			return
		}

		f, err := os.Open(full)
		if err != nil {
			c.Next()
			return
		}
		defer f.Close()

		if mime.TypeByExtension(filepath.Ext(full)) == "" {
			if mt, err := mimetype.DetectReader(f); err == nil {
				c.Header("Content-Type", mt.String())
			}
			if _, err := f.Seek(0, io.SeekStart); err != nil {
				_ = c.Error(err)
				c.Abort()
				return
			}
		}
		c.Header("Cache-Control", cacheControl)
		http.ServeContent(c.Writer, c.Request, info.Name(), info.ModTime(), f)
		c.Abort()
	}
}

func passThrough(c *gin.Context) {
	c.Next()
}

// hasDotSegment は隠しファイル（.env など）へのアクセスかどうかを判定します。
func hasDotSegment(p string) bool {
	for _, seg := range strings.Split(p, "/") {
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}
