// Package app は設定から各コンポーネントを組み立ててサーバーを起動する
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"photobooth/internal/booth"
	"photobooth/internal/camera"
	"photobooth/internal/config"
	"photobooth/internal/logger"
	"photobooth/internal/server"
	"photobooth/internal/upload"
)

// カメラ停止の待ち時間
const stopTimeout = 5 * time.Second

// NewCameraSource は設定に応じた映像ソースを作成する
func NewCameraSource(ctx context.Context, cfg config.CameraConfig, factory camera.VideoSourceFactory) (camera.VideoSource, error) {
	return factory.CreateSource(ctx, camera.VideoSourceType(cfg.Source), camera.SourceConfig{
		Device:     cfg.Device,
		StillImage: cfg.StillImage,
		Settings: camera.VideoSettings{
			Width:     cfg.Width,
			Height:    cfg.Height,
			FrameRate: cfg.FPS,
			Format:    "MJPEG",
		},
	})
}

// Run はカメラ、撮影フロー、HTTPサーバーを起動し、ctxのキャンセルかシグナルまでブロックする
func Run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	return run(ctx, cfg, log, camera.NewVideoSourceFactory(camera.NewLinuxDiscovery()))
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger, factory camera.VideoSourceFactory) error {
	if log == nil {
		log = logger.Discard()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	uploader, err := upload.New(ctx, cfg.Upload)
	if err != nil {
		return fmt.Errorf("アップローダーの作成に失敗: %w", err)
	}

	// カメラが無くてもキオスク画面は表示する（撮影は失敗して停止する）
	source := startCamera(ctx, cfg.Camera, factory, log)

	var capturer booth.Capturer
	if source != nil {
		capturer = source
		defer func() {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), stopTimeout)
			defer stopCancel()
			if err := source.Stop(stopCtx); err != nil {
				log.Warn("カメラの停止に失敗しました", logger.Error(err))
			}
		}()
	}

	machine := booth.NewMachine(capturer, uploader,
		booth.WithTickInterval(cfg.Booth.TickInterval),
		booth.WithCaptureDelay(cfg.Booth.CaptureDelay),
		booth.WithUploadTimeout(cfg.Upload.Timeout),
		booth.WithRecoverAfter(cfg.Booth.RecoverAfter),
		booth.WithLogger(log),
	)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := machine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("撮影フローが異常終了しました", logger.Error(err))
		}
	}()
	defer wg.Wait()
	defer cancel()

	srv := server.New(cfg, machine, source, log)

	log.Info("Photobooth サーバーを起動します",
		slog.String("addr", cfg.ServerAddress()),
		slog.String("camera", cfg.Camera.Source),
		slog.String("upload", cfg.Upload.Backend),
	)
	return srv.Start(ctx)
}

// startCamera は映像ソースを作成して開始する。失敗した場合はnilを返す
func startCamera(ctx context.Context, cfg config.CameraConfig, factory camera.VideoSourceFactory, log *slog.Logger) camera.VideoSource {
	log = log.With(logger.Component("camera"))

	source, err := NewCameraSource(ctx, cfg, factory)
	if err != nil {
		log.Warn("カメラを作成できませんでした", logger.Error(err))
		return nil
	}
	if err := source.Start(ctx); err != nil {
		log.Warn("カメラを開始できませんでした", logger.Error(err))
		return nil
	}

	info := source.GetInfo()
	log.Info("カメラを開始しました",
		slog.String("name", info.Name),
		slog.String("type", string(info.Type)),
		slog.String("device", info.Device),
	)

	go watchErrors(ctx, source, log)
	return source
}

// watchErrors はカメラのエラーをログに記録する
func watchErrors(ctx context.Context, source camera.VideoSource, log *slog.Logger) {
	errCh := source.GetErrorChannel()
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errCh:
			if !ok {
				return
			}
			log.Warn("カメラでエラーが発生しました", logger.Error(err))
		}
	}
}
