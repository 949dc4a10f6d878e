package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photobooth/internal/camera"
	"photobooth/internal/config"
	"photobooth/internal/logger"
)

func testConfig(source string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", Port: 0},
		Camera: config.CameraConfig{Source: source, FPS: 5, Width: 320, Height: 240},
		Upload: config.UploadConfig{
			Backend: config.UploadBackendHTTP,
			Timeout: time.Second,
			URL:     "http://127.0.0.1:1/upload",
			Preset:  "test",
		},
		Booth: config.BoothConfig{
			TickInterval: time.Second,
			CaptureDelay: 200 * time.Millisecond,
			QRCodeSize:   128,
		},
	}
}

func TestNewCameraSource(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		devices  []string
		wantType camera.VideoSourceType
		wantErr  bool
	}{
		{name: "静止画", source: config.CameraSourceStill, wantType: camera.SourceTypeStillImage},
		{name: "USBカメラ", source: config.CameraSourceUSB, devices: []string{"/dev/video0"}, wantType: camera.SourceTypeUSBCamera},
		{name: "USBカメラなし", source: config.CameraSourceUSB, wantErr: true},
		{name: "不明なソース", source: "x11_screen", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factory := camera.NewVideoSourceFactory(camera.NewMockDiscovery(tt.devices))
			source, err := NewCameraSource(context.Background(), testConfig(tt.source).Camera, factory)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, source.GetInfo().Type)

			settings := source.GetCurrentSettings()
			assert.Equal(t, 320, settings.Width)
			assert.Equal(t, 240, settings.Height)
			assert.Equal(t, 5, settings.FrameRate)
		})
	}
}

func TestStartCameraFailure(t *testing.T) {
	factory := camera.NewVideoSourceFactory(camera.NewMockDiscovery(nil))
	source := startCamera(context.Background(), testConfig(config.CameraSourceUSB).Camera, factory, logger.Discard())
	assert.Nil(t, source)
}

func TestStartCameraStartFailure(t *testing.T) {
	mock := camera.NewMockSource([]byte("IMG"))
	factory := camera.NewVideoSourceFactory(camera.NewMockDiscovery(nil))
	factory.Register("mock", func(context.Context, camera.SourceConfig) (camera.VideoSource, error) {
		return mock, nil
	})

	mock.SetShouldFailStart(true)
	source := startCamera(context.Background(), testConfig("mock").Camera, factory, logger.Discard())
	assert.Nil(t, source, "開始に失敗したカメラは使わない")
	assert.Equal(t, camera.StatusError, mock.GetStatus())

	mock.SetShouldFailStart(false)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	source = startCamera(ctx, testConfig("mock").Camera, factory, logger.Discard())
	require.NotNil(t, source)
	frame, ok := source.TryGetFrame(ctx)
	assert.True(t, ok)
	assert.Equal(t, []byte("IMG"), frame)
}

func TestRunStopsOnCancel(t *testing.T) {
	factory := camera.NewVideoSourceFactory(camera.NewMockDiscovery(nil))
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		errCh <- run(ctx, testConfig(config.CameraSourceStill), logger.Discard(), factory)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("停止がタイムアウトしました")
	}
}

func TestRunInvalidUploadBackend(t *testing.T) {
	cfg := testConfig(config.CameraSourceStill)
	cfg.Upload.Backend = "ftp"

	err := run(context.Background(), cfg, logger.Discard(), camera.NewVideoSourceFactory(camera.NewMockDiscovery(nil)))
	assert.Error(t, err)
}
