package booth

import (
	"encoding/base64"
	"errors"
)

// CountdownStart はカウントダウンの開始値
const CountdownStart = 3

// ErrInvalidTransition は現在のモードで受け付けられない操作のエラー
var ErrInvalidTransition = errors.New("現在の状態ではこの操作はできません")

// ErrStopped は状態機械が停止している場合のエラー
var ErrStopped = errors.New("状態機械は停止しています")

// Mode は表示中の画面モード
type Mode string

const (
	ModeIntro        Mode = "intro"        // 紹介動画
	ModeCountdown    Mode = "countdown"    // カウントダウン
	ModeConfirmation Mode = "confirmation" // 撮影確認動画
	ModeResult       Mode = "result"       // 撮影結果とQRコード
)

// Image は撮影した画像
type Image struct {
	Data        []byte
	ContentType string
}

// Empty は画像データが無いかを返す
func (i Image) Empty() bool {
	return len(i.Data) == 0
}

// DataURI はHTMLに埋め込めるdata URIを返す
func (i Image) DataURI() string {
	if i.Empty() {
		return ""
	}
	contentType := i.ContentType
	if contentType == "" {
		contentType = "image/jpeg"
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// State は画面の状態。Mode毎に意味を持つフィールドが異なる
type State struct {
	Mode Mode

	// countdown: 残り秒数。0は撮影待ち（または撮影失敗で停止）
	Countdown int
	// confirmation, result: 撮影した画像
	Image Image
	// アップロードで得た公開URL。失敗時は空のまま
	URL       string
	Uploading bool

	// カメラ表示を全幅に広げているか
	Expanded bool
	// 撮影に失敗してカウントダウン終端で止まっているか
	Stalled bool

	// リセット毎に進む世代番号
	Generation uint64
}

// Initial は起動直後の状態を返す
func Initial() State {
	return State{Mode: ModeIntro}
}

// HasQRCode は結果画面にQRコードを表示できるかを返す
func (s State) HasQRCode() bool {
	return s.Mode == ModeResult && s.URL != ""
}

// Validate はモード毎の不変条件を検証する
func (s State) Validate() error {
	switch s.Mode {
	case ModeIntro:
		if s.Countdown != 0 || !s.Image.Empty() || s.URL != "" || s.Uploading || s.Expanded || s.Stalled {
			return errors.New("introで不要な値が残っています")
		}
	case ModeCountdown:
		if s.Countdown < 0 || s.Countdown > CountdownStart {
			return errors.New("カウントダウンの値が範囲外です")
		}
		if !s.Image.Empty() || s.URL != "" || s.Uploading {
			return errors.New("countdownで撮影結果が残っています")
		}
		if s.Stalled && s.Countdown != 0 {
			return errors.New("停止はカウントダウン終端でのみ起こります")
		}
	case ModeConfirmation, ModeResult:
		if s.Image.Empty() {
			return errors.New("撮影画像がありません")
		}
		if s.Countdown != 0 || s.Stalled {
			return errors.New("カウントダウンが残っています")
		}
		if s.Uploading && s.URL != "" {
			return errors.New("アップロード中にURLがあります")
		}
	default:
		return errors.New("不明なモードです")
	}
	return nil
}
