package booth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testImage = Image{Data: []byte("IMG1"), ContentType: "image/jpeg"}

// step はTransitionを適用し、受け付けられたことを確認する
func step(t *testing.T, s State, ev Event) (State, []Effect) {
	t.Helper()
	next, effects, ok := Transition(s, ev)
	require.True(t, ok, "%s は %s で受け付けられるべき", ev.Kind, s.Mode)
	require.NoError(t, next.Validate())
	return next, effects
}

func kinds(effects []Effect) []EffectKind {
	out := make([]EffectKind, 0, len(effects))
	for _, e := range effects {
		out = append(out, e.Kind)
	}
	return out
}

func TestInitial(t *testing.T) {
	s := Initial()
	assert.Equal(t, ModeIntro, s.Mode)
	assert.False(t, s.Expanded)
	assert.False(t, s.HasQRCode())
	assert.NoError(t, s.Validate())
}

func TestTransitionTapStartsCountdown(t *testing.T) {
	s, effects := step(t, Initial(), Tap())

	assert.Equal(t, ModeCountdown, s.Mode)
	assert.Equal(t, CountdownStart, s.Countdown)
	assert.True(t, s.Expanded)
	assert.Equal(t, []EffectKind{EffectStartTimer}, kinds(effects))
}

func TestTransitionCountdownSequence(t *testing.T) {
	s, _ := step(t, Initial(), Tap())

	var seen []int
	var last []Effect
	for s.Countdown > 0 {
		s, last = step(t, s, Tick(s.Generation))
		seen = append(seen, s.Countdown)
	}

	assert.Equal(t, []int{2, 1, 0}, seen)
	// 0に落ちるtickでタイマー停止と撮影予約が同時に出る
	assert.Equal(t, []EffectKind{EffectStopTimer, EffectScheduleCapture}, kinds(last))

	// 0以降のtickは無視される
	_, _, ok := Transition(s, Tick(s.Generation))
	assert.False(t, ok)
}

func TestTransitionFullScenario(t *testing.T) {
	s, _ := step(t, Initial(), Tap())
	for s.Countdown > 0 {
		s, _ = step(t, s, Tick(s.Generation))
	}

	s, effects := step(t, s, Captured(s.Generation, testImage))
	assert.Equal(t, ModeConfirmation, s.Mode)
	assert.True(t, s.Uploading)
	assert.Equal(t, []byte("IMG1"), s.Image.Data)
	require.Len(t, effects, 1)
	assert.Equal(t, EffectStartUpload, effects[0].Kind)
	assert.Equal(t, []byte("IMG1"), effects[0].Image.Data)

	s, _ = step(t, s, UploadSucceeded(s.Generation, "https://host/a.jpg"))
	assert.False(t, s.Uploading)
	assert.Equal(t, "https://host/a.jpg", s.URL)
	assert.False(t, s.HasQRCode(), "確認画面ではQRを出さない")

	s, _ = step(t, s, ConfirmationEnded())
	assert.Equal(t, ModeResult, s.Mode)
	assert.Equal(t, []byte("IMG1"), s.Image.Data)
	assert.True(t, s.HasQRCode())

	gen := s.Generation
	s, effects = step(t, s, Reset())
	assert.Equal(t, ModeIntro, s.Mode)
	assert.Equal(t, gen+1, s.Generation)
	assert.True(t, s.Image.Empty())
	assert.Empty(t, s.URL)
	assert.Equal(t, []EffectKind{EffectStopTimer, EffectCancelUpload}, kinds(effects))
}

func TestTransitionResultWithoutURL(t *testing.T) {
	s, _ := step(t, Initial(), Tap())
	for s.Countdown > 0 {
		s, _ = step(t, s, Tick(s.Generation))
	}
	s, _ = step(t, s, Captured(s.Generation, testImage))

	// アップロードより先に確認動画が終わる
	s, _ = step(t, s, ConfirmationEnded())
	assert.Equal(t, ModeResult, s.Mode)
	assert.True(t, s.Uploading)
	assert.False(t, s.HasQRCode())

	// 失敗してもURLは空のまま
	s, _ = step(t, s, UploadFailed(s.Generation))
	assert.False(t, s.Uploading)
	assert.Empty(t, s.URL)
	assert.False(t, s.HasQRCode())

	// 確定後に重ねて届いた結果は無視される
	s2, _, ok := Transition(s, UploadSucceeded(s.Generation, "https://host/b.jpg"))
	assert.False(t, ok, "アップロード完了後の結果は無視される")
	assert.Equal(t, s, s2)
}

func TestTransitionLateUploadReachesResult(t *testing.T) {
	s, _ := step(t, Initial(), Tap())
	for s.Countdown > 0 {
		s, _ = step(t, s, Tick(s.Generation))
	}
	s, _ = step(t, s, Captured(s.Generation, testImage))
	s, _ = step(t, s, ConfirmationEnded())
	s, _ = step(t, s, UploadSucceeded(s.Generation, "https://host/late.jpg"))

	assert.True(t, s.HasQRCode())
	assert.Equal(t, "https://host/late.jpg", s.URL)
}

func TestTransitionCaptureFailureStalls(t *testing.T) {
	tests := []struct {
		name string
		ev   func(gen uint64) Event
	}{
		{name: "撮影失敗", ev: func(gen uint64) Event { return CaptureFailed(gen) }},
		{name: "空の画像", ev: func(gen uint64) Event { return Captured(gen, Image{}) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := step(t, Initial(), Tap())
			for s.Countdown > 0 {
				s, _ = step(t, s, Tick(s.Generation))
			}

			s, effects := step(t, s, tt.ev(s.Generation))
			assert.Equal(t, ModeCountdown, s.Mode)
			assert.Equal(t, 0, s.Countdown)
			assert.True(t, s.Stalled)
			assert.Empty(t, effects, "アップロードしない")

			// 停止中はタップもリセットも効かない
			for _, ev := range []Event{Tap(), Reset(), ConfirmationEnded(), Tick(s.Generation)} {
				_, _, ok := Transition(s, ev)
				assert.False(t, ok, ev.Kind.String())
			}

			s, effects = step(t, s, Recover())
			assert.Equal(t, ModeIntro, s.Mode)
			assert.Equal(t, uint64(1), s.Generation)
			assert.Contains(t, kinds(effects), EffectStopTimer)
		})
	}
}

func TestTransitionStaleGeneration(t *testing.T) {
	s, _ := step(t, Initial(), Tap())
	s.Generation = 5

	tests := []struct {
		name string
		ev   Event
	}{
		{name: "古いtick", ev: Tick(4)},
		{name: "古い撮影結果", ev: Captured(4, testImage)},
		{name: "古い撮影失敗", ev: CaptureFailed(4)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, effects, ok := Transition(s, tt.ev)
			assert.False(t, ok)
			assert.Nil(t, effects)
			assert.Equal(t, s, next)
		})
	}
}

func TestTransitionUploadAfterResetIgnored(t *testing.T) {
	s, _ := step(t, Initial(), Tap())
	for s.Countdown > 0 {
		s, _ = step(t, s, Tick(s.Generation))
	}
	s, _ = step(t, s, Captured(s.Generation, testImage))
	s, _ = step(t, s, ConfirmationEnded())
	oldGen := s.Generation
	s, _ = step(t, s, Reset())

	// 新しい撮影中に前の世代の結果が届く
	s, _ = step(t, s, Tap())
	for s.Countdown > 0 {
		s, _ = step(t, s, Tick(s.Generation))
	}
	s, _ = step(t, s, Captured(s.Generation, Image{Data: []byte("IMG2")}))

	next, _, ok := Transition(s, UploadSucceeded(oldGen, "https://host/old.jpg"))
	assert.False(t, ok)
	assert.Empty(t, next.URL)
	assert.True(t, next.Uploading)
}

func TestTransitionInvalidUserActions(t *testing.T) {
	countdown, _ := step(t, Initial(), Tap())

	confirmation := countdown
	for confirmation.Countdown > 0 {
		confirmation, _ = step(t, confirmation, Tick(confirmation.Generation))
	}
	confirmation, _ = step(t, confirmation, Captured(confirmation.Generation, testImage))
	result, _ := step(t, confirmation, ConfirmationEnded())

	tests := []struct {
		name  string
		state State
		ev    Event
	}{
		{name: "countdown中のタップ", state: countdown, ev: Tap()},
		{name: "confirmation中のタップ", state: confirmation, ev: Tap()},
		{name: "result中のタップ", state: result, ev: Tap()},
		{name: "introでのリセット", state: Initial(), ev: Reset()},
		{name: "countdown中のリセット", state: countdown, ev: Reset()},
		{name: "confirmation中のリセット", state: confirmation, ev: Reset()},
		{name: "introでの確認終了", state: Initial(), ev: ConfirmationEnded()},
		{name: "resultでの確認終了", state: result, ev: ConfirmationEnded()},
		{name: "停止していない状態の復帰", state: countdown, ev: Recover()},
		{name: "introでのtick", state: Initial(), ev: Tick(0)},
		{name: "不明なイベント", state: Initial(), ev: Event{Kind: EventKind(99)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, effects, ok := Transition(tt.state, tt.ev)
			assert.False(t, ok)
			assert.Nil(t, effects)
			assert.Equal(t, tt.state, next)
		})
	}
}

func TestExpandedOnlyAfterTap(t *testing.T) {
	s := Initial()
	assert.False(t, s.Expanded)

	s, _ = step(t, s, Tap())
	for s.Countdown > 0 {
		s, _ = step(t, s, Tick(s.Generation))
		assert.True(t, s.Expanded)
	}
	s, _ = step(t, s, Captured(s.Generation, testImage))
	assert.True(t, s.Expanded)

	s, _ = step(t, s, ConfirmationEnded())
	s, _ = step(t, s, Reset())
	assert.False(t, s.Expanded)
}

func TestStateValidate(t *testing.T) {
	tests := []struct {
		name    string
		state   State
		wantErr bool
	}{
		{name: "初期状態", state: Initial()},
		{name: "countdown範囲外", state: State{Mode: ModeCountdown, Countdown: 4}, wantErr: true},
		{name: "countdown負", state: State{Mode: ModeCountdown, Countdown: -1}, wantErr: true},
		{name: "途中で停止", state: State{Mode: ModeCountdown, Countdown: 2, Stalled: true}, wantErr: true},
		{name: "introに画像", state: State{Mode: ModeIntro, Image: testImage}, wantErr: true},
		{name: "画像なしの結果", state: State{Mode: ModeResult}, wantErr: true},
		{name: "アップロード中にURL", state: State{Mode: ModeConfirmation, Image: testImage, Uploading: true, URL: "x"}, wantErr: true},
		{name: "不明なモード", state: State{Mode: "unknown"}, wantErr: true},
		{name: "結果", state: State{Mode: ModeResult, Image: testImage, URL: "https://host/a.jpg"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.state.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestImageDataURI(t *testing.T) {
	assert.Empty(t, Image{}.DataURI())
	assert.Equal(t, "data:image/jpeg;base64,SU1HMQ==", Image{Data: []byte("IMG1")}.DataURI())
	assert.Equal(t, "data:image/png;base64,SU1HMQ==", Image{Data: []byte("IMG1"), ContentType: "image/png"}.DataURI())
}

func TestEventKindString(t *testing.T) {
	assert.Equal(t, "tap", EventTap.String())
	assert.Equal(t, "recover", EventRecover.String())
	assert.Equal(t, "unknown", EventKind(0).String())
}
