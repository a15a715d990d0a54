// Package auth はセッションに保存されたログイン状態からリクエストの利用者を復元します。
package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/hello-gin/internal/httperr"
)

const (
	sessionKeyUser     = "auth_user"
	sessionKeyIssuedAt = "issued_at"
)

// ContextUserKey は、ハンドラー間でログイン済みユーザーを共有するためのキーです。
const ContextUserKey = "auth.user"

// Principal はログイン済みの利用者です。
type Principal struct {
	ID         string
	LoggedInAt time.Time
}

// Deserializer はセッションに保存されたユーザーIDから Principal を復元します。
// nil, nil を返した場合はログイン状態を破棄します。
type Deserializer func(ctx context.Context, id string) (*Principal, error)

// SessionDeserializer はユーザーIDだけを持つ Principal を返す既定の Deserializer です。
func SessionDeserializer(_ context.Context, id string) (*Principal, error) {
	return &Principal{ID: id}, nil
}

// Manager は認証ミドルウェアをまとめた構造体です。
type Manager struct {
	deserialize Deserializer
	logger      *zap.Logger
}

// NewManager は認証マネージャーを作成します。deserialize が nil の場合は SessionDeserializer を使います。
func NewManager(deserialize Deserializer, logger *zap.Logger) *Manager {
	if deserialize == nil {
		deserialize = SessionDeserializer
	}
	return &Manager{
		deserialize: deserialize,
		logger:      logger,
	}
}

// Attach はセッションにログイン情報があれば Principal をコンテキストに設定するミドルウェアです。
// ログインしていないリクエストもそのまま通します。
func (m *Manager) Attach() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		id, ok := session.Get(sessionKeyUser).(string)
		if !ok || id == "" {
			c.Next()
			return
		}

		principal, err := m.deserialize(c.Request.Context(), id)
		if err != nil {
			_ = c.Error(httperr.Wrap(err, http.StatusInternalServerError, "failed to restore login"))
			c.Abort()
			return
		}
		if principal == nil {
			// 利用者が存在しなくなったのでログイン状態を破棄する
			m.logger.Debug("dropping stale login", zap.String("user", id))
			session.Delete(sessionKeyUser)
			session.Delete(sessionKeyIssuedAt)
			c.Next()
			return
		}
		if principal.LoggedInAt.IsZero() {
			principal.LoggedInAt = readUnix(session.Get(sessionKeyIssuedAt))
		}

		c.Set(ContextUserKey, principal)
		c.Next()
	}
}

// RequireLogin はログインしていないリクエストを401で止めるミドルウェアです。
func (m *Manager) RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentUser(c); !ok {
			_ = c.Error(httperr.New(http.StatusUnauthorized, "Unauthorized"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentUser は Attach が設定した Principal を返します。
func CurrentUser(c *gin.Context) (*Principal, bool) {
	v, ok := c.Get(ContextUserKey)
	if !ok {
		return nil, false
	}
	p, ok := v.(*Principal)
	return p, ok && p != nil
}

// Login は Principal をセッションに記録し、現在のリクエストにも設定します。
func Login(c *gin.Context, principal *Principal) error {
	session := sessions.Default(c)
	now := time.Now()
	session.Set(sessionKeyUser, principal.ID)
	session.Set(sessionKeyIssuedAt, now.Unix())
	if err := session.Save(); err != nil {
		return err
	}
	principal.LoggedInAt = now
	c.Set(ContextUserKey, principal)
	return nil
}

// Logout はセッションからログイン情報を削除します。セッション自体は残します。
func Logout(c *gin.Context) error {
	session := sessions.Default(c)
	session.Delete(sessionKeyUser)
	session.Delete(sessionKeyIssuedAt)
	if err := session.Save(); err != nil {
		return err
	}
	c.Set(ContextUserKey, (*Principal)(nil))
	return nil
}

func readUnix(v interface{}) time.Time {
	switch t := v.(type) {
	case int64:
		return time.Unix(t, 0)
	case int:
		return time.Unix(int64(t), 0)
	case float64:
		return time.Unix(int64(t), 0)
	default:
		return time.Time{}
	}
}
