// Package main はHTTPサーバーのエントリーポイントです。
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/hello-gin/internal/auth"
	"github.com/yourusername/hello-gin/internal/config"
	"github.com/yourusername/hello-gin/internal/database"
	"github.com/yourusername/hello-gin/internal/logging"
	"github.com/yourusername/hello-gin/internal/server"
	"github.com/yourusername/hello-gin/internal/session"
)

func main() {
	// 設定の読み込み
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Ginのモードを設定
	gin.SetMode(cfg.GinMode)

	logger, err := logging.New(cfg.IsDevelopment(), cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if cfg.SessionSecretIsDefault() {
		logger.Warn("SESSION_SECRET is not set; using the built-in development secret")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// MongoDB に接続できなければリクエストを受け付けずに終了する
	db, err := database.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase, logger)
	if err != nil {
		logger.Fatal("MongoDB connection error. Make sure MongoDB is running.", zap.Error(err))
	}

	// セッションストアの設定
	store, err := session.NewMongoStore(ctx, db.Collection(cfg.SessionCollection), []byte(cfg.SessionSecret))
	if err != nil {
		logger.Fatal("Failed to prepare session store", zap.Error(err))
	}
	store.Options(session.CookieOptions(cfg.SessionMaxAge, cfg.SessionCookieSecure))

	limiter, closeLimiter, err := setupLimiter(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to set up rate limiter", zap.Error(err))
	}

	router := server.New(server.Deps{
		Config:   cfg,
		Logger:   logger,
		Sessions: store,
		Limiter:  limiter,
		Auth:     auth.NewManager(nil, logger),
	})

	// サーバーの起動
	srv := server.NewServer(cfg.Addr(), router, logger)
	ln, err := srv.Listen()
	if err != nil {
		logger.Fatal("Failed to listen", zap.String("addr", cfg.Addr()), zap.Error(err))
	}
	logger.Info(fmt.Sprintf("Server is running on http://localhost:%s in %s mode.", cfg.Port, cfg.Env))
	logger.Info("Press CTRL-C to stop.")

	if err := srv.Serve(ctx, ln); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
	}

	closeLimiter()
	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.Close(closeCtx); err != nil {
		logger.Warn("Failed to disconnect from MongoDB", zap.Error(err))
	}
}
