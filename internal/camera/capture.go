package camera

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"time"
)

// maxPendingSize は1フレームとして溜めておくバイト数の上限
const maxPendingSize = 8 << 20

var (
	jpegStart = []byte{0xFF, 0xD8}
	jpegEnd   = []byte{0xFF, 0xD9}
)

// V4L2Capturer はシェルコマンドを使ってV4L2デバイスから画像を取得する
type V4L2Capturer struct {
	devicePath string
	width      int
	height     int
	fps        int
}

// NewV4L2Capturer は新しいV4L2Capturerを作成する
func NewV4L2Capturer(devicePath string, width, height, fps int) *V4L2Capturer {
	return &V4L2Capturer{
		devicePath: devicePath,
		width:      width,
		height:     height,
		fps:        fps,
	}
}

// IsDeviceAvailable はV4L2デバイスが利用可能かチェックする
func (c *V4L2Capturer) IsDeviceAvailable(ctx context.Context) bool {
	cmd := exec.CommandContext(ctx, "v4l2-ctl", "--device", c.devicePath, "--info")
	return cmd.Run() == nil
}

// CaptureFrameAsJPEG は1フレームをキャプチャしてJPEGバイト配列として返す
func (c *V4L2Capturer) CaptureFrameAsJPEG(ctx context.Context) ([]byte, error) {
	cmd := exec.CommandContext(ctx,
		"ffmpeg",
		"-f", "v4l2",
		"-video_size", fmt.Sprintf("%dx%d", c.width, c.height),
		"-i", c.devicePath,
		"-vframes", "1",
		"-f", "image2",
		"-c:v", "mjpeg",
		"-q:v", "2", // 高品質JPEG
		"-",
	)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("JPEGフレームキャプチャに失敗: %w (stderr: %s)", err, stderr.String())
	}
	if stdout.Len() == 0 {
		return nil, ErrNoFrame
	}

	return stdout.Bytes(), nil
}

// StartStream は連続キャプチャ用のストリームを開始する。ctxのキャンセルで終了する
func (c *V4L2Capturer) StartStream(ctx context.Context, frameChan chan<- []byte, errorChan chan<- error) {
	cmd := exec.CommandContext(ctx,
		"ffmpeg",
		"-loglevel", "error",
		"-f", "v4l2",
		"-video_size", fmt.Sprintf("%dx%d", c.width, c.height),
		"-r", strconv.Itoa(c.fps),
		"-i", c.devicePath,
		"-f", "image2pipe",
		"-c:v", "mjpeg",
		"-q:v", "3",
		"-",
	)
	cmd.Stderr = io.Discard

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		errorChan <- fmt.Errorf("stdoutパイプの作成に失敗: %w", err)
		return
	}

	if err := cmd.Start(); err != nil {
		errorChan <- fmt.Errorf("ffmpegの起動に失敗: %w", err)
		return
	}

	go func() {
		defer func() {
			_ = cmd.Wait() // コンテキストキャンセル時のエラーは無視
		}()
		streamFrames(ctx, stdout, frameChan, errorChan)
	}()
}

// streamFrames はrからフレームを読み出してframeChanに送る。
// キャンセル以外で読み取りが終わった場合は必ずerrorChanに通知する
func streamFrames(ctx context.Context, r io.Reader, frameChan chan<- []byte, errorChan chan<- error) {
	err := splitJPEGStream(ctx, r, func(frame []byte) bool {
		select {
		case frameChan <- frame:
			return true
		case <-ctx.Done():
			return false
		}
	})
	if err == nil || ctx.Err() != nil {
		return
	}

	select {
	case errorChan <- fmt.Errorf("フレーム読み取りエラー: %w", err):
	case <-ctx.Done():
	}
}

// TestCapture はデバイステスト用の簡単なキャプチャ機能
func (c *V4L2Capturer) TestCapture(ctx context.Context) error {
	testCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := c.CaptureFrameAsJPEG(testCtx)
	return err
}

// splitJPEGStream はMJPEGのバイト列をJPEGマーカーで分割し、フレーム毎にemitを呼ぶ。
// emitがfalseを返すかctxがキャンセルされるとnil、rがEOFになるとErrStreamEndedを返す
func splitJPEGStream(ctx context.Context, r io.Reader, emit func([]byte) bool) error {
	buffer := make([]byte, 64*1024)
	var pending []byte

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		n, err := r.Read(buffer)
		if n > 0 {
			pending = append(pending, buffer[:n]...)

			var frames [][]byte
			frames, pending = extractJPEGFrames(pending)
			for _, frame := range frames {
				if !emit(frame) {
					return nil
				}
			}

			// 終了マーカーが来ないまま溜まったデータは捨てて次の開始マーカーから読み直す
			if len(pending) > maxPendingSize {
				pending = nil
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				if ctx.Err() != nil {
					return nil
				}
				return ErrStreamEnded
			}
			return err
		}
	}
}

// extractJPEGFrames は完全なJPEGフレームを取り出し、残りのバイト列を返す
func extractJPEGFrames(data []byte) ([][]byte, []byte) {
	var frames [][]byte

	for {
		startIdx := bytes.Index(data, jpegStart)
		if startIdx == -1 {
			// 開始マーカーの前半だけが末尾にある可能性を残す
			if len(data) > 0 && data[len(data)-1] == 0xFF {
				return frames, append([]byte(nil), data[len(data)-1:]...)
			}
			return frames, nil
		}

		endIdx := bytes.Index(data[startIdx+2:], jpegEnd)
		if endIdx == -1 {
			// 完全なフレームがまだない
			return frames, append([]byte(nil), data[startIdx:]...)
		}

		endIdx += startIdx + 2 + len(jpegEnd)
		frame := make([]byte, endIdx-startIdx)
		copy(frame, data[startIdx:endIdx])
		frames = append(frames, frame)

		data = data[endIdx:]
	}
}
