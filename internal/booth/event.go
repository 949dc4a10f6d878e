package booth

// EventKind はイベントの種類
type EventKind int

const (
	EventTap               EventKind = iota + 1 // 紹介画面のタップ
	EventTick                                   // カウントダウンの1秒経過
	EventCaptured                               // 撮影成功
	EventCaptureFailed                          // 撮影失敗
	EventUploadSucceeded                        // アップロード成功
	EventUploadFailed                           // アップロード失敗
	EventConfirmationEnded                      // 確認動画の再生終了
	EventReset                                  // 撮り直し
	EventRecover                                // 撮影失敗からの復帰
)

var eventNames = map[EventKind]string{
	EventTap:               "tap",
	EventTick:              "tick",
	EventCaptured:          "captured",
	EventCaptureFailed:     "capture_failed",
	EventUploadSucceeded:   "upload_succeeded",
	EventUploadFailed:      "upload_failed",
	EventConfirmationEnded: "confirmation_ended",
	EventReset:             "reset",
	EventRecover:           "recover",
}

func (k EventKind) String() string {
	if name, ok := eventNames[k]; ok {
		return name
	}
	return "unknown"
}

// Event は状態機械への入力
type Event struct {
	Kind EventKind
	// タイマー・撮影・アップロード由来のイベントが属する世代
	Generation uint64
	Image      Image
	URL        string
}

// Tap は紹介画面のタップイベントを返す
func Tap() Event { return Event{Kind: EventTap} }

// Tick はカウントダウンのイベントを返す
func Tick(gen uint64) Event { return Event{Kind: EventTick, Generation: gen} }

// Captured は撮影成功イベントを返す
func Captured(gen uint64, img Image) Event {
	return Event{Kind: EventCaptured, Generation: gen, Image: img}
}

// CaptureFailed は撮影失敗イベントを返す
func CaptureFailed(gen uint64) Event { return Event{Kind: EventCaptureFailed, Generation: gen} }

// UploadSucceeded はアップロード成功イベントを返す
func UploadSucceeded(gen uint64, url string) Event {
	return Event{Kind: EventUploadSucceeded, Generation: gen, URL: url}
}

// UploadFailed はアップロード失敗イベントを返す
func UploadFailed(gen uint64) Event { return Event{Kind: EventUploadFailed, Generation: gen} }

// ConfirmationEnded は確認動画の再生終了イベントを返す
func ConfirmationEnded() Event { return Event{Kind: EventConfirmationEnded} }

// Reset は撮り直しイベントを返す
func Reset() Event { return Event{Kind: EventReset} }

// Recover は撮影失敗からの復帰イベントを返す
func Recover() Event { return Event{Kind: EventRecover} }

// EffectKind は副作用の種類
type EffectKind int

const (
	EffectStartTimer      EffectKind = iota + 1 // カウントダウンタイマーを開始
	EffectStopTimer                             // カウントダウンタイマーを停止
	EffectScheduleCapture                       // 猶予時間の後に撮影
	EffectStartUpload                           // アップロードを開始
	EffectCancelUpload                          // 実行中のアップロードを取り消す
)

// Effect は遷移に伴って実行すべき副作用
type Effect struct {
	Kind       EffectKind
	Generation uint64
	Image      Image
}
