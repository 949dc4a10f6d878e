package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
)

// レスポンスボディの読み込み上限
const maxResponseSize = 1 << 20

// HTTPUploader は画像ホストのアップロードエンドポイントへmultipartで送信する
type HTTPUploader struct {
	endpoint string
	preset   string
	client   *http.Client
}

// uploadResponse はアップロードAPIのレスポンス
type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewHTTPUploader は新しいHTTPUploaderを作成する
func NewHTTPUploader(endpoint, preset string, client *http.Client) *HTTPUploader {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPUploader{
		endpoint: endpoint,
		preset:   preset,
		client:   client,
	}
}

// Upload は画像を送信し、secure_url を返す
func (u *HTTPUploader) Upload(ctx context.Context, data []byte, contentType string) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyImage
	}
	if contentType == "" {
		contentType = "image/jpeg"
	}

	body, formType, err := u.buildForm(data, contentType)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, body)
	if err != nil {
		return "", fmt.Errorf("リクエストの作成に失敗: %w", err)
	}
	req.Header.Set("Content-Type", formType)
	req.Header.Set("Accept", "application/json")

	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("アップロードに失敗: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("レスポンスの読み込みに失敗: %w", err)
	}

	var result uploadResponse
	decodeErr := json.Unmarshal(raw, &result)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := strings.TrimSpace(string(raw))
		if decodeErr == nil && result.Error != nil && result.Error.Message != "" {
			message = result.Error.Message
		}
		return "", fmt.Errorf("アップロードに失敗 (status %d): %s", resp.StatusCode, message)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("レスポンスの解析に失敗: %w", decodeErr)
	}
	if result.SecureURL == "" {
		return "", ErrNoURL
	}

	return result.SecureURL, nil
}

// buildForm は file と upload_preset を含むmultipartボディを組み立てる
func (u *HTTPUploader) buildForm(data []byte, contentType string) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="capture%s"`, extension(contentType)))
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("フォームの作成に失敗: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", fmt.Errorf("画像の書き込みに失敗: %w", err)
	}
	if err := writer.WriteField("upload_preset", u.preset); err != nil {
		return nil, "", fmt.Errorf("フォームの作成に失敗: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("フォームの作成に失敗: %w", err)
	}

	return &buf, writer.FormDataContentType(), nil
}
