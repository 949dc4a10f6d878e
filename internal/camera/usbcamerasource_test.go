package camera

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"
)

// newPipeUSBSource はffmpegの代わりにパイプから読むUSBCameraSourceを作成する
func newPipeUSBSource(t *testing.T) (*USBCameraSource, *io.PipeWriter) {
	t.Helper()

	r, w := io.Pipe()
	source := NewUSBCameraSource(
		VideoSourceInfo{ID: "usb:test", Type: SourceTypeUSBCamera, Device: "/dev/video9"},
		VideoSettings{Width: 320, Height: 240, FrameRate: 5},
	)
	source.testCapture = func(context.Context) error { return nil }
	source.stream = func(ctx context.Context, frameChan chan<- []byte, errorChan chan<- error) {
		go func() {
			<-ctx.Done()
			_ = r.Close()
		}()
		go streamFrames(ctx, r, frameChan, errorChan)
	}

	t.Cleanup(func() {
		_ = w.Close()
		_ = source.Stop(context.Background())
	})
	return source, w
}

func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("Timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestUSBCameraSourceStreamEnded(t *testing.T) {
	source, w := newPipeUSBSource(t)
	ctx := context.Background()

	if err := source.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if status := source.GetStatus(); status != StatusActive {
		t.Fatalf("Expected status %s, got %s", StatusActive, status)
	}

	frame := jpegFrame(1, 2, 3)
	if _, err := w.Write(frame); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	waitUntil(t, "first frame", func() bool {
		got, ok := source.TryGetFrame(ctx)
		return ok && bytes.Equal(got, frame)
	})

	// ffmpegが終了した状態
	_ = w.Close()

	waitUntil(t, "error status", func() bool { return source.GetStatus() == StatusError })
	if _, ok := source.TryGetFrame(ctx); ok {
		t.Error("Expected no frame after the stream ended")
	}

	select {
	case err := <-source.GetErrorChannel():
		if !errors.Is(err, ErrStreamEnded) {
			t.Errorf("Expected ErrStreamEnded, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Expected an error on the error channel")
	}

	if err := source.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if status := source.GetStatus(); status != StatusInactive {
		t.Errorf("Expected status %s after Stop, got %s", StatusInactive, status)
	}
}

func TestUSBCameraSourceStopKeepsInactive(t *testing.T) {
	source, w := newPipeUSBSource(t)
	ctx := context.Background()

	if err := source.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := w.Write(jpegFrame(7)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	waitUntil(t, "frame", func() bool {
		_, ok := source.TryGetFrame(ctx)
		return ok
	})

	if err := source.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if status := source.GetStatus(); status != StatusInactive {
		t.Errorf("Expected status %s, got %s", StatusInactive, status)
	}
	if _, ok := source.TryGetFrame(ctx); ok {
		t.Error("Expected no frame after Stop")
	}

	// キャンセルによる終了はエラーとして通知しない
	select {
	case err := <-source.GetErrorChannel():
		t.Errorf("Unexpected error: %v", err)
	default:
	}
}

func TestUSBCameraSourceTestCaptureFailure(t *testing.T) {
	source, _ := newPipeUSBSource(t)
	source.testCapture = func(context.Context) error { return ErrNoFrame }

	if err := source.Start(context.Background()); err == nil {
		t.Fatal("Expected Start to fail")
	}
	if status := source.GetStatus(); status != StatusError {
		t.Errorf("Expected status %s, got %s", StatusError, status)
	}
}
