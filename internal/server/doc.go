// Package server は、キオスク画面とその操作APIを提供するHTTPサーバーです。
//
// このパッケージは、HTTPサーバーの起動、ルーティング、
// WebSocketによる状態の配信、静的ファイルの配信を担当します。
//
// 責務:
//   - HTTPサーバーの起動と管理
//   - キオスク画面（HTML/アイコン）の配信
//   - 撮影フローへの操作（タップ、確認動画の終了、撮り直し）の受け付け
//   - 画面状態のJSON/WebSocket配信
//   - カメラ映像のMJPEG配信
//
// 仕様:
//   - ルーティングはgin、WebSocketはgorilla/websocketを使用
//   - 現在の状態で受け付けられない操作は409を返す
//   - グレースフルシャットダウンに対応
package server
