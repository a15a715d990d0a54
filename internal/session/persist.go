package session

import (
	"net/http"
	"reflect"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/securecookie"
	gsessions "github.com/gorilla/sessions"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Policy はハンドラーが明示的に Save しなかったセッションの扱いを決めます。
type Policy struct {
	// Resave は値が変わっていなくてもリクエストごとに保存し直します。
	Resave bool
	// SaveUninitialized は何も書き込まれていない新規セッションも保存し、Cookie を発行します。
	SaveUninitialized bool
}

// CookieOptions はセッションCookieの属性を組み立てます。
func CookieOptions(maxAge time.Duration, secure bool) sessions.Options {
	return sessions.Options{
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// Middleware は gin-contrib/sessions の登録と保存ポリシーの適用を順に行うハンドラー列を返します。
func Middleware(name string, store sessions.Store, policy Policy, logger *zap.Logger) gin.HandlersChain {
	return gin.HandlersChain{
		sessions.Sessions(name, store),
		Persist(name, store, policy, logger),
	}
}

// Persist は Policy に従ってセッションを保存するミドルウェアです。
// 新規セッションは Cookie を返せるようにハンドラー実行前に保存します。
func Persist(name string, store gsessions.Store, policy Policy, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := store.Get(c.Request, name)
		if err != nil {
			_ = c.Error(errors.Wrap(err, "session store unavailable"))
			c.Abort()
			return
		}

		if s.IsNew && policy.SaveUninitialized {
			if err := s.Save(c.Request, c.Writer); err != nil {
				_ = c.Error(errors.Wrap(err, "failed to initialize session"))
				c.Abort()
				return
			}
		}

		before, cloneErr := cloneValues(s.Values)

		c.Next()

		if s.Options != nil && s.Options.MaxAge < 0 {
			return
		}
		changed := cloneErr != nil || !valuesEqual(before, s.Values)
		if !changed && !policy.Resave {
			return
		}
		if s.IsNew && s.ID == "" && !changed && !policy.SaveUninitialized {
			return
		}
		if err := s.Save(c.Request, c.Writer); err != nil {
			logger.Error("failed to save session", zap.Error(err), zap.String("path", c.Request.URL.Path))
		}
	}
}

func cloneValues(values map[interface{}]interface{}) (map[interface{}]interface{}, error) {
	var enc securecookie.GobEncoder
	data, err := enc.Serialize(values)
	if err != nil {
		return nil, err
	}
	clone := make(map[interface{}]interface{}, len(values))
	if err := enc.Deserialize(data, &clone); err != nil {
		return nil, err
	}
	return clone, nil
}

func valuesEqual(a, b map[interface{}]interface{}) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}
