package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"photobooth/internal/booth"
	"photobooth/internal/camera"
	"photobooth/internal/config"
	"photobooth/internal/logger"
	"photobooth/internal/qrcode"
)

// WebSocketの書き込みタイムアウト
const wsWriteWait = 5 * time.Second

// Booth はハンドラが使う撮影フローの操作
type Booth interface {
	Snapshot() booth.State
	Subscribe() (<-chan booth.State, func())
	Tap(ctx context.Context) error
	ConfirmationEnded(ctx context.Context) error
	Reset(ctx context.Context) error
	Recover(ctx context.Context) error
}

// HealthResponse はヘルスチェックのレスポンス
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// ServerInfo はサーバー情報
type ServerInfo struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// CameraInfo はカメラ情報
type CameraInfo struct {
	ID     string        `json:"id"`
	Name   string        `json:"name"`
	Type   string        `json:"type"`
	Device string        `json:"device,omitempty"`
	Status camera.Status `json:"status"`
	Width  int           `json:"width"`
	Height int           `json:"height"`
	FPS    int           `json:"fps"`
}

// StatusResponse はシステム状態のレスポンス
type StatusResponse struct {
	Status        string      `json:"status"`
	Server        ServerInfo  `json:"server"`
	Camera        *CameraInfo `json:"camera,omitempty"`
	UploadBackend string      `json:"upload_backend"`
	Mode          booth.Mode  `json:"mode"`
	Timestamp     time.Time   `json:"timestamp"`
}

// ErrorResponse はエラーレスポンス
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// PhotoboothHandler はHTTPエンドポイントの実装
type PhotoboothHandler struct {
	config   *config.Config
	booth    Booth
	source   camera.VideoSource
	views    *viewBuilder
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewPhotoboothHandler は新しいPhotoboothHandlerを作成する。sourceはnilでもよい
func NewPhotoboothHandler(cfg *config.Config, b Booth, source camera.VideoSource, log *slog.Logger) *PhotoboothHandler {
	if log == nil {
		log = logger.Discard()
	}
	return &PhotoboothHandler{
		config: cfg,
		booth:  b,
		source: source,
		views: &viewBuilder{
			introVideoURL:        cfg.Booth.IntroVideoURL,
			confirmationVideoURL: cfg.Booth.ConfirmationVideoURL,
			qrSize:               cfg.Booth.QRCodeSize,
			allowRecover:         cfg.Booth.AllowRecover,
			logger:               log,
		},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: log,
	}
}

// HealthCheck はヘルスチェックエンドポイントの実装
func (h *PhotoboothHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
	})
}

// GetStatus はシステム状態取得エンドポイントの実装
func (h *PhotoboothHandler) GetStatus(c *gin.Context) {
	response := StatusResponse{
		Status: "running",
		Server: ServerInfo{
			Host: h.config.Server.Host,
			Port: h.config.Server.Port,
		},
		UploadBackend: h.config.Upload.Backend,
		Mode:          h.booth.Snapshot().Mode,
		Timestamp:     time.Now(),
	}

	if h.source != nil {
		info := h.source.GetInfo()
		settings := h.source.GetCurrentSettings()
		response.Camera = &CameraInfo{
			ID:     info.ID,
			Name:   info.Name,
			Type:   string(info.Type),
			Device: info.Device,
			Status: h.source.GetStatus(),
			Width:  settings.Width,
			Height: settings.Height,
			FPS:    settings.FrameRate,
		}
	}

	c.JSON(http.StatusOK, response)
}

// GetBooth は現在の画面状態を返す
func (h *PhotoboothHandler) GetBooth(c *gin.Context) {
	c.JSON(http.StatusOK, h.views.build(h.booth.Snapshot()))
}

// Tap は紹介画面のタップ
func (h *PhotoboothHandler) Tap(c *gin.Context) {
	h.action(c, "tap", h.booth.Tap)
}

// ConfirmationEnded は確認動画の再生終了
func (h *PhotoboothHandler) ConfirmationEnded(c *gin.Context) {
	h.action(c, "confirmation_ended", h.booth.ConfirmationEnded)
}

// Reset は撮り直し
func (h *PhotoboothHandler) Reset(c *gin.Context) {
	h.action(c, "reset", h.booth.Reset)
}

// Recover は撮影失敗からの復帰。設定で有効な場合のみ公開する
func (h *PhotoboothHandler) Recover(c *gin.Context) {
	if !h.config.Booth.AllowRecover {
		errorJSON(c, http.StatusNotFound, "not_found", "復帰操作は無効です")
		return
	}
	h.action(c, "recover", h.booth.Recover)
}

// action は状態機械への操作を実行し、結果の画面状態を返す
func (h *PhotoboothHandler) action(c *gin.Context, name string, fn func(context.Context) error) {
	if err := fn(c.Request.Context()); err != nil {
		switch {
		case errors.Is(err, booth.ErrInvalidTransition):
			errorJSON(c, http.StatusConflict, "invalid_transition", err.Error())
		case errors.Is(err, booth.ErrStopped):
			errorJSON(c, http.StatusServiceUnavailable, "booth_stopped", err.Error())
		default:
			_ = c.Error(err)
			h.logger.Error("操作に失敗しました", slog.String("action", name), logger.Error(err))
			errorJSON(c, http.StatusInternalServerError, "internal_error", "操作に失敗しました")
		}
		return
	}

	c.JSON(http.StatusOK, h.views.build(h.booth.Snapshot()))
}

// GetImage は撮影した画像を返す
func (h *PhotoboothHandler) GetImage(c *gin.Context) {
	img := h.booth.Snapshot().Image
	if img.Empty() {
		errorJSON(c, http.StatusNotFound, "image_not_found", "撮影した画像がありません")
		return
	}

	contentType := img.ContentType
	if contentType == "" {
		contentType = "image/jpeg"
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, contentType, img.Data)
}

// GetQRCode はアップロード先URLのQRコード画像を返す
func (h *PhotoboothHandler) GetQRCode(c *gin.Context) {
	s := h.booth.Snapshot()
	if !s.HasQRCode() {
		errorJSON(c, http.StatusNotFound, "qrcode_not_found", "QRコードはまだありません")
		return
	}

	png, err := qrcode.Generate(s.URL, h.config.Booth.QRCodeSize)
	if err != nil {
		_ = c.Error(err)
		errorJSON(c, http.StatusInternalServerError, "qrcode_failed", "QRコードの生成に失敗しました")
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}

// BoothWebSocket は状態が変わる度に画面状態をプッシュする
func (h *PhotoboothHandler) BoothWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade がエラーレスポンスを書き込み済み
		h.logger.Warn("WebSocketの確立に失敗しました", logger.Error(err))
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	updates, unsubscribe := h.booth.Subscribe()
	defer unsubscribe()

	// クライアントからのメッセージは読み捨て、切断だけを検知する
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-c.Request.Context().Done():
			return
		case s, ok := <-updates:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
					time.Now().Add(wsWriteWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(h.views.build(s)); err != nil {
				h.logger.Debug("WebSocketへの書き込みに失敗しました", logger.Error(err))
				return
			}
		}
	}
}

// GetCameraStream はMJPEGストリーミングエンドポイントの実装
func (h *PhotoboothHandler) GetCameraStream(c *gin.Context) {
	if h.source == nil {
		errorJSON(c, http.StatusNotFound, "camera_not_found", "カメラが設定されていません")
		return
	}

	// カメラがアクティブか確認
	if h.source.GetStatus() != camera.StatusActive {
		errorJSON(c, http.StatusServiceUnavailable, "camera_not_active", "カメラがアクティブではありません")
		return
	}

	h.streamMJPEG(c, h.source.GetFrameChannel())
}

// streamMJPEG はMJPEGストリームを配信する
func (h *PhotoboothHandler) streamMJPEG(c *gin.Context, frameChan <-chan []byte) {
	// レスポンスヘッダーを設定
	c.Header("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	writer := c.Writer
	flusher, ok := writer.(http.Flusher)
	if !ok {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	// クライアント切断を検知するためのコンテキスト
	clientGone := c.Request.Context().Done()

	for {
		select {
		case <-clientGone:
			return

		case frame, ok := <-frameChan:
			if !ok {
				return
			}
			if err := writeMJPEGPart(writer, frame); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// writeMJPEGPart はMJPEGの1フレーム分を書き込む
func writeMJPEGPart(w gin.ResponseWriter, frame []byte) error {
	if _, err := w.Write([]byte("--frame\r\nContent-Type: image/jpeg\r\n\r\n")); err != nil {
		return err
	}
	if _, err := w.Write(frame); err != nil {
		return err
	}
	_, err := w.Write([]byte("\r\n"))
	return err
}

// errorJSON はエラーレスポンスを書き込む
func errorJSON(c *gin.Context, status int, code, message string) {
	c.JSON(status, ErrorResponse{
		Error:     code,
		Message:   message,
		Timestamp: time.Now(),
	})
}
