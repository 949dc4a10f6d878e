package main

import (
	"context"
	"log"

	"photobooth/internal/app"
	"photobooth/internal/config"
	"photobooth/internal/logger"
)

func main() {
	// 設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	// ロガーを作成
	l := logger.FromConfig(cfg.Log.Level, cfg.Log.Format)

	// サーバーを起動
	if err := app.Run(context.Background(), cfg, l); err != nil {
		log.Fatalf("サーバーの起動に失敗しました: %v", err)
	}
}
