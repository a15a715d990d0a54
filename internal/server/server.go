package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/hello-gin/internal/auth"
	"github.com/yourusername/hello-gin/internal/config"
	"github.com/yourusername/hello-gin/internal/flash"
	"github.com/yourusername/hello-gin/internal/ratelimit"
	"github.com/yourusername/hello-gin/internal/session"
)

const shutdownTimeout = 10 * time.Second

// Deps はパイプラインが利用する外部コンポーネントです。
type Deps struct {
	Config   *config.Config
	Logger   *zap.Logger
	Sessions sessions.Store
	Limiter  ratelimit.Limiter
	Auth     *auth.Manager
}

// NewPipeline はステージを固定の順序で組み立てます。
func NewPipeline(d Deps) *Pipeline {
	cfg := d.Config
	p := &Pipeline{}

	if origins := cfg.AllowedOrigins(); len(origins) > 0 {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowOrigins = origins
		corsConfig.AllowCredentials = true
		p.Use("cors", cors.New(corsConfig))
	}

	p.Use("compression", gzip.Gzip(gzip.DefaultCompression))
	p.Use("logger", RequestLogger(d.Logger))
	// エラー描画は後続すべてを包むため、ここで登録して c.Next() の後に処理する
	p.Use("errors", ErrorRenderer(cfg.IsDevelopment(), d.Logger))
	p.Use("json", JSONBody(cfg.BodyLimit))
	p.Use("urlencoded", URLEncodedBody(cfg.BodyLimit))
	p.Use("ratelimit", ratelimit.Middleware(d.Limiter, d.Logger))
	p.Use("static", Static(cfg.StaticDir, cfg.StaticMaxAge))
	p.Use("session", session.Middleware(
		cfg.SessionCookieName,
		d.Sessions,
		session.Policy{Resave: true, SaveUninitialized: true},
		d.Logger,
	)...)
	p.Use("auth", d.Auth.Attach())
	p.Use("flash", flash.Middleware())
	return p
}

// New はパイプラインとルートを登録した gin.Engine を返します。
func New(d Deps) *gin.Engine {
	router := gin.New()
	// X-Forwarded-For を信用せず、接続元アドレスでレート制限する
	_ = router.SetTrustedProxies(nil)

	NewPipeline(d).Install(router)
	setupRoutes(router)
	return router
}

// Server は http.Server をシグナルによる停止に対応させたものです。
type Server struct {
	http   *http.Server
	logger *zap.Logger
}

// NewServer はサーバーを作成します。
func NewServer(addr string, handler http.Handler, logger *zap.Logger) *Server {
	return &Server{
		http: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Listen は待ち受けソケットを開きます。
func (s *Server) Listen() (net.Listener, error) {
	return net.Listen("tcp", s.http.Addr)
}

// Serve は ctx がキャンセルされるまでリクエストを処理し、その後処理中のリクエストを待って終了します。
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.http.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	}
}
