// Package qrcode はアップロード先URLのQRコード画像を生成する
//
// 誤り訂正レベルはMedium固定。サイズ0はDefaultSizeとして扱う。
package qrcode

import (
	"encoding/base64"
	"errors"
	"fmt"

	goqrcode "github.com/skip2/go-qrcode"
)

// DefaultSize はサイズ未指定時のピクセル数
const DefaultSize = 456

var (
	// ErrEmptyContent はQRコードの内容が空の場合のエラー
	ErrEmptyContent = errors.New("qrcode: 内容が空です")
	// ErrInvalidSize はサイズが不正な場合のエラー
	ErrInvalidSize = errors.New("qrcode: 無効なサイズ")
)

// Generate はcontentをエンコードしたPNG画像を返す
func Generate(content string, size int) ([]byte, error) {
	if content == "" {
		return nil, ErrEmptyContent
	}
	if size == 0 {
		size = DefaultSize
	}
	if size < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}

	png, err := goqrcode.Encode(content, goqrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("QRコードの生成に失敗: %w", err)
	}
	return png, nil
}

// GenerateBase64Image はHTMLに埋め込めるdata URIを返す
func GenerateBase64Image(content string, size int) (string, error) {
	png, err := Generate(content, size)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
