package upload

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"photobooth/internal/config"
)

var (
	// ErrEmptyImage は画像データが空の場合のエラー
	ErrEmptyImage = errors.New("アップロードする画像が空です")
	// ErrNoURL はレスポンスに公開URLが含まれない場合のエラー
	ErrNoURL = errors.New("レスポンスにURLが含まれていません")
)

// Uploader は画像を送信して公開URLを返す
type Uploader interface {
	Upload(ctx context.Context, data []byte, contentType string) (string, error)
}

// New は設定に応じたUploaderを作成する
func New(ctx context.Context, cfg config.UploadConfig) (Uploader, error) {
	switch cfg.Backend {
	case config.UploadBackendHTTP:
		return NewHTTPUploader(cfg.URL, cfg.Preset, &http.Client{Timeout: cfg.Timeout}), nil
	case config.UploadBackendS3:
		return NewS3UploaderFromConfig(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("サポートされていないアップロード先: %q", cfg.Backend)
	}
}

// extension はContent-Typeに対応するファイル拡張子を返す
func extension(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
