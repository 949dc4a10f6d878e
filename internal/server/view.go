package server

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"photobooth/internal/booth"
	"photobooth/internal/logger"
	"photobooth/internal/qrcode"
)

// BoothView は画面に描画する内容。表示するモードは常に1つだけ
type BoothView struct {
	Mode       booth.Mode `json:"mode"`
	Generation uint64     `json:"generation"`

	// countdown
	Countdown     int  `json:"countdown"`
	ShowCountdown bool `json:"show_countdown"`
	Stalled       bool `json:"stalled"`

	// confirmation, result
	HasImage  bool   `json:"has_image"`
	ImageURL  string `json:"image_url,omitempty"`
	Uploading bool   `json:"uploading"`

	// result
	URL        string `json:"url,omitempty"`
	QRCode     string `json:"qr_code,omitempty"`
	ShowRetake bool   `json:"show_retake"`

	// カメラ表示を全幅に広げるか
	Expanded bool `json:"expanded"`
	// 現在のモードで再生する動画。無ければ空
	VideoURL string `json:"video_url,omitempty"`

	CanRecover bool      `json:"can_recover"`
	Timestamp  time.Time `json:"timestamp"`
}

// viewBuilder は状態からBoothViewを組み立てる
type viewBuilder struct {
	introVideoURL        string
	confirmationVideoURL string
	qrSize               int
	allowRecover         bool
	logger               *slog.Logger

	mu      sync.Mutex
	qrURL   string
	qrImage string
}

func (b *viewBuilder) build(s booth.State) BoothView {
	v := BoothView{
		Mode:       s.Mode,
		Generation: s.Generation,
		Countdown:  s.Countdown,
		Stalled:    s.Stalled,
		HasImage:   !s.Image.Empty(),
		Uploading:  s.Uploading,
		Expanded:   s.Expanded,
		Timestamp:  time.Now(),
	}

	switch s.Mode {
	case booth.ModeIntro:
		v.VideoURL = b.introVideoURL
	case booth.ModeCountdown:
		v.ShowCountdown = s.Countdown > 0
		v.CanRecover = b.allowRecover && s.Stalled
	case booth.ModeConfirmation:
		v.VideoURL = b.confirmationVideoURL
	case booth.ModeResult:
		v.ShowRetake = true
		if s.HasQRCode() {
			v.URL = s.URL
			v.QRCode = b.qrCode(s.URL)
		}
	}

	if v.HasImage {
		v.ImageURL = fmt.Sprintf("/api/booth/image?g=%d", s.Generation)
	}

	return v
}

// qrCode は直近のURLのQRコードを使い回す
func (b *viewBuilder) qrCode(url string) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if url == b.qrURL {
		return b.qrImage
	}

	image, err := qrcode.GenerateBase64Image(url, b.qrSize)
	if err != nil {
		b.logger.Error("QRコードの生成に失敗しました", logger.Error(err), slog.String("url", url))
		return ""
	}
	b.qrURL = url
	b.qrImage = image
	return image
}
