package camera

import (
	"context"
	"errors"
	"sync"
)

// MockSource はテスト用の VideoSource 実装
type MockSource struct {
	mu        sync.Mutex
	frame     []byte
	status    Status
	frameChan chan []byte
	errorChan chan error
	calls     int

	// テスト制御用
	shouldFailStart bool
}

// NewMockSource は新しいMockSourceを作成する。frameがnilの場合TryGetFrameは失敗する
func NewMockSource(frame []byte) *MockSource {
	return &MockSource{
		frame:     frame,
		status:    StatusInactive,
		frameChan: make(chan []byte, 10),
		errorChan: make(chan error, 1),
	}
}

// Start はモックソースを開始する
func (m *MockSource) Start(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shouldFailStart {
		m.status = StatusError
		return errors.New("モック: カメラ開始に失敗")
	}
	m.status = StatusActive
	return nil
}

// Stop はモックソースを停止する
func (m *MockSource) Stop(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = StatusInactive
	return nil
}

// IsAvailable は常にtrueを返す
func (m *MockSource) IsAvailable(_ context.Context) bool { return true }

// GetFrameChannel はフレームチャンネルを返す
func (m *MockSource) GetFrameChannel() <-chan []byte { return m.frameChan }

// GetErrorChannel はエラーチャンネルを返す
func (m *MockSource) GetErrorChannel() <-chan error { return m.errorChan }

// TryGetFrame は設定されたフレームを返す
func (m *MockSource) TryGetFrame(_ context.Context) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.frame == nil {
		return nil, false
	}
	return append([]byte(nil), m.frame...), true
}

// GetInfo はモック情報を返す
func (m *MockSource) GetInfo() VideoSourceInfo {
	return VideoSourceInfo{ID: "mock", Name: "Mock Camera", Type: "mock", Driver: "mock"}
}

// GetCurrentSettings はモック設定を返す
func (m *MockSource) GetCurrentSettings() VideoSettings {
	return VideoSettings{Width: 640, Height: 480, FrameRate: 15, Format: "MJPEG"}
}

// GetStatus は現在の状態を返す
func (m *MockSource) GetStatus() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// SetFrame はTryGetFrameが返すフレームを差し替える
func (m *MockSource) SetFrame(frame []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frame = frame
}

// SetShouldFailStart はテスト用にStart失敗を設定する
func (m *MockSource) SetShouldFailStart(shouldFail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shouldFailStart = shouldFail
}

// Calls はTryGetFrameの呼び出し回数を返す
func (m *MockSource) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Push はライブ配信用のフレームを送る
func (m *MockSource) Push(frame []byte) {
	select {
	case m.frameChan <- frame:
	default:
	}
}
