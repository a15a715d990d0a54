package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/hello-gin/internal/httperr"
)

// Greeting は GET / の応答本文です。
const Greeting = "Hello, World!"

// setupRoutes はルーティングと未定義パスの扱いを登録します。
func setupRoutes(router *gin.Engine) {
	router.GET("/", handleRoot)
	router.HEAD("/", handleRoot)

	router.NoRoute(notFound)
}

// handleRoot は固定の挨拶文を返します。
func handleRoot(c *gin.Context) {
	c.String(http.StatusOK, Greeting)
}

// notFound はどのルートにも一致しなかったリクエストを404エラーにします。
func notFound(c *gin.Context) {
	_ = c.Error(httperr.NotFound())
	c.Abort()
}
