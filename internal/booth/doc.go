// Package booth は撮影キオスクの画面状態を管理する状態機械です。
//
// 画面は次の4つのモードのいずれか1つだけを表示する:
//
//	intro → countdown → confirmation → result → (retake) → intro
//
// 状態遷移は Transition による純粋関数で、副作用（カウントダウンタイマー、
// 撮影、アップロード）は Effect として返される。Machine は1つのゴルーチンで
// イベントを直列に処理し、Effect を実行する。
//
// 仕様:
//   - カウントダウンは常に3から始まり、1秒毎に1ずつ減る
//   - 0に達する直前にタイマーを止め、猶予時間の後に1回だけ撮影する
//   - 撮影できた場合のみ1回アップロードする。失敗はログに残すだけでリトライしない
//   - リセットで世代番号が進み、古いアップロード結果やタイマーは無視される
//   - 撮影できなかった場合はカウントダウン終端で停止する（復帰は設定で有効化）
package booth
