package booth

import (
	"sync"
	"time"
)

// countdownTimer はカウントダウン用の取り消し可能な周期タイマー
type countdownTimer struct {
	stopCh chan struct{}
	once   sync.Once
}

// startCountdownTimer はintervalごとにfnを呼ぶタイマーを開始する
func startCountdownTimer(interval time.Duration, fn func()) *countdownTimer {
	t := &countdownTimer{stopCh: make(chan struct{})}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-t.stopCh:
				return
			case <-ticker.C:
				// 停止後に届いたtickは捨てる
				select {
				case <-t.stopCh:
					return
				default:
				}
				fn()
			}
		}
	}()

	return t
}

// Stop はタイマーを止める。複数回呼んでもよい
func (t *countdownTimer) Stop() {
	if t == nil {
		return
	}
	t.once.Do(func() { close(t.stopCh) })
}
