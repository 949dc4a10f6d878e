package upload

import (
	"context"
	"sync"
)

// MockUploader はテスト用のUploader実装
type MockUploader struct {
	mu    sync.Mutex
	url   string
	err   error
	calls [][]byte

	// nil以外の場合、Uploadはこのチャンネルが閉じるかctxが終わるまで待つ
	block chan struct{}
}

// NewMockUploader は常にurlを返すMockUploaderを作成する
func NewMockUploader(url string) *MockUploader {
	return &MockUploader{url: url}
}

// NewFailingMockUploader は常にerrを返すMockUploaderを作成する
func NewFailingMockUploader(err error) *MockUploader {
	return &MockUploader{err: err}
}

// Upload は呼び出しを記録して設定された結果を返す
func (m *MockUploader) Upload(ctx context.Context, data []byte, _ string) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, append([]byte(nil), data...))
	block := m.block
	m.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	return m.url, nil
}

// Block は以降のUploadをReleaseまで待機させる
func (m *MockUploader) Block() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.block = make(chan struct{})
}

// Release は待機中のUploadを再開させる
func (m *MockUploader) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.block != nil {
		close(m.block)
		m.block = nil
	}
}

// Calls はUploadに渡された画像の一覧を返す
func (m *MockUploader) Calls() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]byte(nil), m.calls...)
}
