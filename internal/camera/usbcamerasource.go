package camera

import (
	"context"
	"fmt"
	"sync"
)

// streamFunc はフレームの連続取得を開始する。キャンセル以外で終了した場合はerrorChanに通知する
type streamFunc func(ctx context.Context, frameChan chan<- []byte, errorChan chan<- error)

// USBCameraSource はUSBカメラの VideoSource 実装
type USBCameraSource struct {
	BaseVideoSource

	// V4L2キャプチャ用
	capturer    *V4L2Capturer
	testCapture func(ctx context.Context) error
	stream      streamFunc

	// 開始と停止を直列にする。転送ゴルーチンはこのロックを取らない
	lifecycle sync.Mutex
	stopCh    chan struct{}
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewUSBCameraSource は新しいUSBCameraSourceを作成する
func NewUSBCameraSource(info VideoSourceInfo, settings VideoSettings) *USBCameraSource {
	capturer := NewV4L2Capturer(info.Device, settings.Width, settings.Height, settings.FrameRate)
	source := &USBCameraSource{
		capturer:    capturer,
		testCapture: capturer.TestCapture,
		stream:      capturer.StartStream,
	}
	source.initBase(info, settings)
	return source
}

// Start はカメラを開始する
func (s *USBCameraSource) Start(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if s.GetStatus() == StatusActive {
		return nil // 既に開始済み
	}
	// ストリームが途中で終わっていた場合は後片付けしてから開始し直す
	s.stopStream()

	// デバイステストを実行
	if err := s.testCapture(ctx); err != nil {
		s.setStatus(StatusError)
		return fmt.Errorf("カメラのテストキャプチャに失敗: %w", err)
	}

	streamCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.stopCh = make(chan struct{})

	// 前回のストリームの残りを拾わないよう毎回作り直す
	frames := make(chan []byte, 10)
	errs := make(chan error, 5)

	s.setStatus(StatusActive)
	s.stream(streamCtx, frames, errs)

	// フレーム転送ゴルーチンを開始
	s.wg.Add(1)
	go s.forwardFrames(s.stopCh, frames, errs)
	return nil
}

// Stop はカメラを停止する
func (s *USBCameraSource) Stop(_ context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.stopStream()
	s.setStatus(StatusInactive)
	return nil
}

// stopStream はffmpegを終了させてから転送ゴルーチンを止める
func (s *USBCameraSource) stopStream() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.cancel = nil
	close(s.stopCh)
	s.wg.Wait()
	s.clearFrame()
}

// IsAvailable はカメラが利用可能かチェックする
func (s *USBCameraSource) IsAvailable(ctx context.Context) bool {
	return s.capturer.IsDeviceAvailable(ctx)
}

// forwardFrames はキャプチャからフレームを転送する
func (s *USBCameraSource) forwardFrames(stopCh <-chan struct{}, frames <-chan []byte, errs <-chan error) {
	defer s.wg.Done()

	for {
		select {
		case <-stopCh:
			return

		case frame := <-frames:
			if !s.publishFrame(frame, stopCh) {
				return
			}

		case err := <-errs:
			// ストリームが終わった後に古いフレームを撮影に使わせない
			s.clearFrame()
			s.setStatus(StatusError)
			s.publishError(err)
			return
		}
	}
}
