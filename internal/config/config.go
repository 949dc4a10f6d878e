package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// アップロード先の種類
const (
	UploadBackendHTTP = "http"
	UploadBackendS3   = "s3"
)

// カメラソースの種類（camera.VideoSourceType と同じ値）
const (
	CameraSourceUSB   = "usb_camera"
	CameraSourceStill = "still_image"
)

// Config はアプリケーション全体の設定を保持する構造体
type Config struct {
	Server ServerConfig
	Camera CameraConfig
	Upload UploadConfig
	Booth  BoothConfig
	Log    LogConfig
}

// ServerConfig はHTTPサーバーの設定
type ServerConfig struct {
	Host string `env:"SERVER_HOST" envDefault:"0.0.0.0"` // リッスンするホスト
	Port int    `env:"PORT" envDefault:"8080"`           // リッスンするポート番号

	// タイムアウト設定
	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"0s"` // ストリーミング用に無効化
}

// CameraConfig はカメラ関連の設定
type CameraConfig struct {
	Source     string `env:"CAMERA_SOURCE" envDefault:"usb_camera"`
	Device     string `env:"CAMERA_DEVICE"`      // 空の場合は自動検出
	StillImage string `env:"CAMERA_STILL_IMAGE"` // still_image 用のJPEGファイル

	FPS    int `env:"CAMERA_FPS" envDefault:"15"`
	Width  int `env:"CAMERA_WIDTH" envDefault:"1280"`
	Height int `env:"CAMERA_HEIGHT" envDefault:"720"`
}

// UploadConfig は撮影画像のアップロード先の設定
type UploadConfig struct {
	Backend string        `env:"UPLOAD_BACKEND" envDefault:"http"`
	Timeout time.Duration `env:"UPLOAD_TIMEOUT" envDefault:"30s"`

	// http バックエンド
	URL    string `env:"UPLOAD_URL" envDefault:"https://api.cloudinary.com/v1_1/dxajrtcwk/image/upload"`
	Preset string `env:"UPLOAD_PRESET" envDefault:"vu52wpvk"`

	S3 S3Config `envPrefix:"S3_"`
}

// S3Config はS3互換ストレージの設定
type S3Config struct {
	Bucket          string `env:"BUCKET"`
	Region          string `env:"REGION" envDefault:"us-east-1"`
	Endpoint        string `env:"ENDPOINT"`
	AccessKeyID     string `env:"ACCESS_KEY_ID"`
	SecretAccessKey string `env:"SECRET_ACCESS_KEY"`
	PublicBaseURL   string `env:"PUBLIC_BASE_URL"`
	Prefix          string `env:"PREFIX" envDefault:"captures"`
	UsePathStyle    bool   `env:"USE_PATH_STYLE" envDefault:"false"`
}

// BoothConfig は撮影フローの設定
type BoothConfig struct {
	TickInterval time.Duration `env:"BOOTH_TICK_INTERVAL" envDefault:"1s"`
	CaptureDelay time.Duration `env:"BOOTH_CAPTURE_DELAY" envDefault:"200ms"`
	// 0 の場合、撮影失敗時は停止したままになる
	RecoverAfter time.Duration `env:"BOOTH_RECOVER_AFTER" envDefault:"0s"`
	AllowRecover bool          `env:"BOOTH_ALLOW_RECOVER" envDefault:"false"`

	IntroVideoURL        string `env:"BOOTH_INTRO_VIDEO_URL" envDefault:"https://res.cloudinary.com/dxajrtcwk/video/upload/v1717867510/video_intro_uebicu.mp4"`
	ConfirmationVideoURL string `env:"BOOTH_CONFIRMATION_VIDEO_URL" envDefault:"https://res.cloudinary.com/dxajrtcwk/video/upload/v1717868435/video_qr_qhlk1h.mp4"`
	QRCodeSize           int    `env:"BOOTH_QR_SIZE" envDefault:"456"`
}

// LogConfig はログ出力の設定
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"text"` // text または json
}

// Load は .env と環境変数から設定を読み込む
func Load() (*Config, error) {
	// .env が存在しない場合は環境変数のみを使う
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf(".envの読み込みに失敗: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("環境変数の解析に失敗: %w", err)
	}

	// 設定の検証
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定の検証に失敗: %w", err)
	}

	return cfg, nil
}

// Validate は設定の妥当性を検証する
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("無効なポート番号: %d", c.Server.Port)
	}

	switch c.Camera.Source {
	case CameraSourceUSB, CameraSourceStill:
	default:
		return fmt.Errorf("サポートされていないカメラソース: %q", c.Camera.Source)
	}
	if c.Camera.FPS <= 0 || c.Camera.FPS > 60 {
		return fmt.Errorf("無効なFPS値: %d", c.Camera.FPS)
	}
	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		return fmt.Errorf("無効な解像度: %dx%d", c.Camera.Width, c.Camera.Height)
	}

	switch c.Upload.Backend {
	case UploadBackendHTTP:
		if c.Upload.URL == "" {
			return errors.New("UPLOAD_URL が設定されていません")
		}
		if c.Upload.Preset == "" {
			return errors.New("UPLOAD_PRESET が設定されていません")
		}
	case UploadBackendS3:
		if c.Upload.S3.Bucket == "" {
			return errors.New("S3_BUCKET が設定されていません")
		}
	default:
		return fmt.Errorf("サポートされていないアップロード先: %q", c.Upload.Backend)
	}

	if c.Booth.TickInterval <= 0 {
		return fmt.Errorf("無効なカウントダウン間隔: %s", c.Booth.TickInterval)
	}
	if c.Booth.CaptureDelay < 0 || c.Booth.RecoverAfter < 0 {
		return errors.New("待機時間に負の値は指定できません")
	}

	return nil
}

// ServerAddress はサーバーのリッスンアドレスを返す
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
