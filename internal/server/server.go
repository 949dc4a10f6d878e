package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"photobooth/internal/camera"
	"photobooth/internal/config"
	"photobooth/internal/logger"
)

// シャットダウンの待ち時間
const shutdownTimeout = 5 * time.Second

// Server はHTTPサーバーを管理する構造体
type Server struct {
	config     *config.Config
	engine     *gin.Engine
	httpServer *http.Server
	logger     *slog.Logger
}

// New は新しいServerインスタンスを作成する。sourceがnilの場合ライブ映像は配信しない
func New(cfg *config.Config, b Booth, source camera.VideoSource, log *slog.Logger) *Server {
	if log == nil {
		log = logger.Discard()
	}
	log = log.With(logger.Component("server"))

	engine := gin.New()
	engine.Use(gin.Recovery(), requestID(), requestLogger(log, "/health"))

	s := &Server{
		config: cfg,
		engine: engine,
		logger: log,
		httpServer: &http.Server{
			Addr:         cfg.ServerAddress(),
			Handler:      engine,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}
	s.setupRoutes(NewPhotoboothHandler(cfg, b, source, log))

	return s
}

// setupRoutes はHTTPルートを設定する
func (s *Server) setupRoutes(h *PhotoboothHandler) {
	// キオスク画面
	s.engine.GET("/", serveIndex)
	s.engine.StaticFS("/assets", GetAssetsFS())

	// ヘルスチェック
	s.engine.GET("/health", h.HealthCheck)

	api := s.engine.Group("/api")
	api.GET("/status", h.GetStatus)

	b := api.Group("/booth")
	b.GET("", h.GetBooth)
	b.POST("/tap", h.Tap)
	b.POST("/confirmation-ended", h.ConfirmationEnded)
	b.POST("/reset", h.Reset)
	b.POST("/recover", h.Recover)
	b.GET("/image", h.GetImage)
	b.GET("/qrcode.png", h.GetQRCode)
	b.GET("/ws", h.BoothWebSocket)

	api.GET("/camera/stream", h.GetCameraStream)
}

// Handler はルーティング済みのhttp.Handlerを返す
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start はサーバーを起動する。ctxのキャンセルかシグナルで停止する
func (s *Server) Start(ctx context.Context) error {
	// シャットダウン用のチャンネル
	shutdownCh := make(chan error, 1)

	// サーバーを別ゴルーチンで起動
	go func() {
		s.logger.Info("HTTPサーバーを起動しています", slog.String("addr", s.config.ServerAddress()))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			shutdownCh <- fmt.Errorf("サーバーの起動に失敗: %w", err)
		}
	}()

	// シグナルハンドリング
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	// コンテキストかシグナルを待つ
	select {
	case <-ctx.Done():
		s.logger.Info("コンテキストがキャンセルされました")
	case sig := <-sigCh:
		s.logger.Info("シグナルを受信しました", slog.String("signal", sig.String()))
	case err := <-shutdownCh:
		return err
	}

	// グレースフルシャットダウン
	return s.Shutdown()
}

// Shutdown はサーバーをグレースフルにシャットダウンする
func (s *Server) Shutdown() error {
	s.logger.Info("サーバーをシャットダウンしています")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("サーバーのシャットダウンに失敗: %w", err)
	}

	s.logger.Info("サーバーが正常にシャットダウンされました")
	return nil
}
