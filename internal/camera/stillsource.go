package camera

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"sync"
	"time"
)

// StillImageSource は固定のJPEG画像を一定間隔で配信する VideoSource 実装。
// カメラの無い端末での動作確認やデモに使う
type StillImageSource struct {
	BaseVideoSource

	path  string
	frame []byte

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewStillImageSource は新しいStillImageSourceを作成する。pathが空の場合は画像を生成する
func NewStillImageSource(info VideoSourceInfo, settings VideoSettings, path string) *StillImageSource {
	source := &StillImageSource{
		path:   path,
		stopCh: make(chan struct{}),
	}
	source.initBase(info, settings)
	return source
}

// Start は配信を開始する
func (s *StillImageSource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusActive {
		return nil
	}

	frame, err := s.loadFrame()
	if err != nil {
		s.status = StatusError
		return err
	}
	s.frame = frame
	s.storeFrame(frame)

	fps := s.settings.FrameRate
	if fps <= 0 {
		fps = 1
	}

	s.wg.Add(1)
	go s.emitFrames(ctx, time.Second/time.Duration(fps))

	s.status = StatusActive
	return nil
}

// Stop は配信を停止する
func (s *StillImageSource) Stop(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusActive {
		s.status = StatusInactive
		return nil
	}

	close(s.stopCh)
	s.wg.Wait()
	s.stopCh = make(chan struct{})
	s.clearFrame()

	s.status = StatusInactive
	return nil
}

// IsAvailable は画像ファイルが読めるかチェックする
func (s *StillImageSource) IsAvailable(_ context.Context) bool {
	if s.path == "" {
		return true
	}
	_, err := os.Stat(s.path)
	return err == nil
}

// emitFrames は同じフレームを繰り返し配信する
func (s *StillImageSource) emitFrames(ctx context.Context, interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.publishFrame(s.frame, s.stopCh) {
				return
			}
		}
	}
}

// loadFrame は画像ファイルを読み込むか、プレースホルダー画像を生成する
func (s *StillImageSource) loadFrame() ([]byte, error) {
	if s.path != "" {
		data, err := os.ReadFile(s.path)
		if err != nil {
			return nil, fmt.Errorf("静止画の読み込みに失敗: %w", err)
		}
		if _, err := jpeg.DecodeConfig(bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("静止画がJPEGではありません: %w", err)
		}
		return data, nil
	}

	return placeholderJPEG(s.settings.Width, s.settings.Height)
}

// placeholderJPEG はグラデーションのJPEG画像を生成する
func placeholderJPEG(width, height int) ([]byte, error) {
	if width <= 0 || height <= 0 {
		width, height = 640, 480
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(x * 255 / width),
				G: uint8(y * 255 / height),
				B: 160,
				A: 255,
			})
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}); err != nil {
		return nil, fmt.Errorf("プレースホルダー画像の生成に失敗: %w", err)
	}
	return buf.Bytes(), nil
}
