// Package main はPhotoboothサーバーコマンドの実装です
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"photobooth/internal/app"
	"photobooth/internal/config"
	"photobooth/internal/logger"
)

func main() {
	// コマンドラインオプション
	var (
		host     = flag.String("host", "", "サーバーのホスト (デフォルト: 0.0.0.0)")
		port     = flag.Int("port", 0, "サーバーのポート (デフォルト: 8080)")
		source   = flag.String("camera", "", "カメラソース usb_camera または still_image")
		logLevel = flag.String("log-level", "", "ログレベル debug/info/warn/error")
		help     = flag.Bool("help", false, "ヘルプを表示")
	)

	flag.Parse()

	// ヘルプ表示
	if *help {
		fmt.Println("Photobooth")
		fmt.Println()
		fmt.Println("使用方法:")
		fmt.Println("  server [オプション]")
		fmt.Println()
		fmt.Println("オプション:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	// 設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	// コマンドラインオプションで設定を上書き
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *source != "" {
		cfg.Camera.Source = *source
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("設定が不正です: %v", err)
	}

	l := logger.FromConfig(cfg.Log.Level, cfg.Log.Format)

	// サーバーを起動
	if err := app.Run(context.Background(), cfg, l); err != nil {
		log.Fatalf("サーバーの起動に失敗しました: %v", err)
	}
}
