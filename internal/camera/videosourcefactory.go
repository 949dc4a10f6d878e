package camera

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// SourceConfig はソース作成設定
type SourceConfig struct {
	Device     string        // デバイスパス（空の場合は自動検出）
	StillImage string        // 静止画ソース用のJPEGファイル
	Settings   VideoSettings // 設定
}

// VideoSourceFactory はソース作成ファクトリー
type VideoSourceFactory interface {
	CreateSource(ctx context.Context, sourceType VideoSourceType, config SourceConfig) (VideoSource, error)
	GetSupportedTypes() []VideoSourceType
}

// SourceCreator はソース作成関数の型
type SourceCreator func(ctx context.Context, config SourceConfig) (VideoSource, error)

// DefaultVideoSourceFactory は標準実装
type DefaultVideoSourceFactory struct {
	creators  map[VideoSourceType]SourceCreator
	discovery Discovery
}

// NewVideoSourceFactory は新しいファクトリーを作成する
func NewVideoSourceFactory(discovery Discovery) *DefaultVideoSourceFactory {
	factory := &DefaultVideoSourceFactory{
		creators:  make(map[VideoSourceType]SourceCreator),
		discovery: discovery,
	}

	factory.Register(SourceTypeUSBCamera, factory.newUSBCameraSource)
	factory.Register(SourceTypeStillImage, newStillImageSource)

	return factory
}

// Register はソース作成関数を登録する
func (f *DefaultVideoSourceFactory) Register(sourceType VideoSourceType, creator SourceCreator) {
	f.creators[sourceType] = creator
}

// CreateSource はソースを作成する
func (f *DefaultVideoSourceFactory) CreateSource(ctx context.Context, sourceType VideoSourceType, config SourceConfig) (VideoSource, error) {
	creator, exists := f.creators[sourceType]
	if !exists {
		return nil, fmt.Errorf("サポートされていないソースタイプ: %s", sourceType)
	}

	return creator(ctx, withDefaultSettings(config))
}

// GetSupportedTypes はサポートされているソースタイプを返す
func (f *DefaultVideoSourceFactory) GetSupportedTypes() []VideoSourceType {
	types := make([]VideoSourceType, 0, len(f.creators))
	for sourceType := range f.creators {
		types = append(types, sourceType)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// newUSBCameraSource は設定からUSBCameraSourceを作成する
func (f *DefaultVideoSourceFactory) newUSBCameraSource(ctx context.Context, config SourceConfig) (VideoSource, error) {
	device := config.Device
	if device == "" {
		found, err := DefaultDevice(ctx, f.discovery)
		if err != nil {
			return nil, err
		}
		device = found
	}

	// デバイス名は取得できなければパスから生成する
	infoCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	name := fmt.Sprintf("USB Camera (%s)", device)
	if deviceInfo, err := f.discovery.GetDeviceInfo(infoCtx, device); err == nil && deviceInfo != nil {
		name = deviceInfo.Name
	}

	info := VideoSourceInfo{
		ID:          uuid.New().String(),
		Name:        name,
		Type:        SourceTypeUSBCamera,
		Driver:      "v4l2",
		Description: fmt.Sprintf("USB Camera: %s", name),
		Device:      device,
	}

	return NewUSBCameraSource(info, config.Settings), nil
}

// newStillImageSource は設定からStillImageSourceを作成する
func newStillImageSource(_ context.Context, config SourceConfig) (VideoSource, error) {
	name := "Placeholder"
	if config.StillImage != "" {
		name = config.StillImage
	}

	info := VideoSourceInfo{
		ID:          uuid.New().String(),
		Name:        name,
		Type:        SourceTypeStillImage,
		Driver:      "file",
		Description: fmt.Sprintf("Still image: %s", name),
	}

	return NewStillImageSource(info, config.Settings, config.StillImage), nil
}

// withDefaultSettings は未指定の設定値を補完する
func withDefaultSettings(config SourceConfig) SourceConfig {
	if config.Settings.Width <= 0 {
		config.Settings.Width = 1280
	}
	if config.Settings.Height <= 0 {
		config.Settings.Height = 720
	}
	if config.Settings.FrameRate <= 0 {
		config.Settings.FrameRate = 15
	}
	if config.Settings.Format == "" {
		config.Settings.Format = "MJPEG"
	}
	if config.Settings.Quality <= 0 {
		config.Settings.Quality = 3
	}
	return config
}
