package camera

import (
	"context"
	"sync"
)

// VideoSourceType はソースタイプを定義
type VideoSourceType string

const (
	// SourceTypeUSBCamera はUSBカメラソースを表す
	SourceTypeUSBCamera VideoSourceType = "usb_camera"
	// SourceTypeStillImage は静止画ソースを表す
	SourceTypeStillImage VideoSourceType = "still_image"
)

// VideoSource は全ての映像ソースを統一するインターフェース
type VideoSource interface {
	// 基本操作
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	IsAvailable(ctx context.Context) bool

	// ストリーミング
	GetFrameChannel() <-chan []byte
	GetErrorChannel() <-chan error

	// TryGetFrame は最新のJPEGフレームを返す。ブロックしない
	TryGetFrame(ctx context.Context) ([]byte, bool)

	// メタデータ
	GetInfo() VideoSourceInfo
	GetCurrentSettings() VideoSettings
	GetStatus() Status
}

// VideoSourceInfo はソース情報を表す
type VideoSourceInfo struct {
	ID          string
	Name        string
	Type        VideoSourceType
	Driver      string
	Description string
	Device      string // デバイスパス（USBカメラ等）
}

// VideoSettings は動画設定を統一
type VideoSettings struct {
	Width     int
	Height    int
	FrameRate int
	Format    string
	Quality   int
}

// BaseVideoSource は共通実装を提供
type BaseVideoSource struct {
	info      VideoSourceInfo
	settings  VideoSettings
	frameChan chan []byte
	errorChan chan error
	status    Status
	mu        sync.RWMutex

	// 撮影用に最新フレームを保持する
	latestFrame []byte
	latestMutex sync.RWMutex
}

// initBase は共通フィールドを初期化する
func (b *BaseVideoSource) initBase(info VideoSourceInfo, settings VideoSettings) {
	b.info = info
	b.settings = settings
	b.frameChan = make(chan []byte, 10)
	b.errorChan = make(chan error, 5)
	b.status = StatusInactive
}

// GetInfo は基本情報を返す
func (b *BaseVideoSource) GetInfo() VideoSourceInfo {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.info
}

// GetCurrentSettings は現在の設定を返す
func (b *BaseVideoSource) GetCurrentSettings() VideoSettings {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.settings
}

// GetStatus はステータスを返す
func (b *BaseVideoSource) GetStatus() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.status
}

// setStatus はステータスを更新する
func (b *BaseVideoSource) setStatus(status Status) {
	b.mu.Lock()
	b.status = status
	b.mu.Unlock()
}

// GetFrameChannel はフレームチャンネルを返す
func (b *BaseVideoSource) GetFrameChannel() <-chan []byte {
	return b.frameChan
}

// GetErrorChannel はエラーチャンネルを返す
func (b *BaseVideoSource) GetErrorChannel() <-chan error {
	return b.errorChan
}

// TryGetFrame はストリーミング中の最新フレームのコピーを返す
func (b *BaseVideoSource) TryGetFrame(_ context.Context) ([]byte, bool) {
	if b.GetStatus() != StatusActive {
		return nil, false
	}

	b.latestMutex.RLock()
	defer b.latestMutex.RUnlock()

	if len(b.latestFrame) == 0 {
		return nil, false
	}

	frame := make([]byte, len(b.latestFrame))
	copy(frame, b.latestFrame)
	return frame, true
}

// storeFrame は最新フレームを保存する
func (b *BaseVideoSource) storeFrame(frame []byte) {
	b.latestMutex.Lock()
	b.latestFrame = make([]byte, len(frame))
	copy(b.latestFrame, frame)
	b.latestMutex.Unlock()
}

// clearFrame は保持しているフレームを破棄する
func (b *BaseVideoSource) clearFrame() {
	b.latestMutex.Lock()
	b.latestFrame = nil
	b.latestMutex.Unlock()
}

// publishFrame はフレームを配信する。チャンネルがフルの場合は古いフレームを破棄する
func (b *BaseVideoSource) publishFrame(frame []byte, stopCh <-chan struct{}) bool {
	b.storeFrame(frame)

	select {
	case b.frameChan <- frame:
		return true
	case <-stopCh:
		return false
	default:
	}

	select {
	case <-b.frameChan:
	default:
	}
	select {
	case b.frameChan <- frame:
		return true
	case <-stopCh:
		return false
	default:
		// 他の送信者に先を越された場合は今回のフレームを諦める
		return true
	}
}

// publishError はエラーを配信する。チャンネルがフルの場合は古いエラーを破棄する
func (b *BaseVideoSource) publishError(err error) {
	select {
	case b.errorChan <- err:
		return
	default:
	}

	select {
	case <-b.errorChan:
	default:
	}
	select {
	case b.errorChan <- err:
	default:
	}
}
