// Package flash はセッションを介して次のリクエストへ一度だけ渡す通知メッセージを扱います。
package flash

import (
	"encoding/gob"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// ContextKey は gin.Context に Flash を保存するキーです。
const ContextKey = "flash"

// Message はセッションに保存される1件の通知です。
type Message struct {
	Kind string
	Text string
}

func init() {
	gob.Register(Message{})
}

// Flash はリクエストのセッションに紐付いたフラッシュメッセージ操作です。
type Flash struct {
	session sessions.Session
}

// Middleware はリクエストごとに Flash をコンテキストへ登録します。
// セッションミドルウェアより後ろに配置してください。
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextKey, &Flash{session: sessions.Default(c)})
		c.Next()
	}
}

// From はコンテキストに登録された Flash を返します。
func From(c *gin.Context) *Flash {
	if v, ok := c.Get(ContextKey); ok {
		if f, ok := v.(*Flash); ok {
			return f
		}
	}
	return &Flash{session: sessions.Default(c)}
}

// Add はメッセージを追加します。保存はセッションの保存ポリシーに従います。
func (f *Flash) Add(kind, text string) {
	f.session.AddFlash(Message{Kind: kind, Text: text})
}

// All は保存されているメッセージをすべて取り出して消去します。
func (f *Flash) All() []Message {
	raw := f.session.Flashes()
	messages := make([]Message, 0, len(raw))
	for _, v := range raw {
		if m, ok := v.(Message); ok {
			messages = append(messages, m)
		}
	}
	return messages
}

// Get は指定した種類のメッセージ本文だけを取り出し、他の種類は残します。
func (f *Flash) Get(kind string) []string {
	var texts []string
	for _, m := range f.All() {
		if m.Kind == kind {
			texts = append(texts, m.Text)
			continue
		}
		f.session.AddFlash(m)
	}
	return texts
}

// Save は Add / Get の結果を直ちに保存します。
func (f *Flash) Save() error {
	return f.session.Save()
}
