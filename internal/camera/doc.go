// Package camera はキオスクのカメラ映像ソースを提供する
//
// # 責務
// - V4L2デバイスからのライブ映像取得（ffmpeg経由のMJPEG）
// - 最新フレームの保持と、撮影時の非ブロッキングな取り出し
// - カメラデバイスの自動検出
// - カメラが無い環境向けの静止画ソース
//
// # 仕様
// - VideoSource: 映像ソースの統一インターフェース
// - USBCameraSource: V4L2Capturerを使うストリーミングソース
// - StillImageSource: 固定JPEGを一定間隔で流すソース
// - LinuxDiscovery: /dev/video* の検出と実名取得
// - TryGetFrame はブロックせず、フレームが無ければ false を返す
//
// # 前提要件
//   - v4l-utils: カメラ名の取得とデバイス確認に使用
//     Ubuntu/Debian: sudo apt install v4l-utils
//   - ffmpeg: 画像キャプチャとストリーミングに使用
//     Ubuntu/Debian: sudo apt install ffmpeg
//   - videoグループへの参加: デバイスアクセス権限
//     sudo usermod -a -G video $USER
package camera
