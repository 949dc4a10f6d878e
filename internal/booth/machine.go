package booth

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"photobooth/internal/logger"
)

// Capturer はカメラから現在のフレームを取り出す。ブロックしてはならない
type Capturer interface {
	TryGetFrame(ctx context.Context) ([]byte, bool)
}

// Uploader は画像を送信して公開URLを返す
type Uploader interface {
	Upload(ctx context.Context, data []byte, contentType string) (string, error)
}

// Option はMachineの設定
type Option func(*Machine)

// WithTickInterval はカウントダウンの間隔を設定する
func WithTickInterval(d time.Duration) Option {
	return func(m *Machine) {
		if d > 0 {
			m.tickInterval = d
		}
	}
}

// WithCaptureDelay はカウントダウン終了から撮影までの猶予時間を設定する
func WithCaptureDelay(d time.Duration) Option {
	return func(m *Machine) {
		if d >= 0 {
			m.captureDelay = d
		}
	}
}

// WithUploadTimeout はアップロードのタイムアウトを設定する
func WithUploadTimeout(d time.Duration) Option {
	return func(m *Machine) {
		if d > 0 {
			m.uploadTimeout = d
		}
	}
}

// WithRecoverAfter は撮影失敗から自動で紹介画面に戻るまでの時間を設定する。0は無効
func WithRecoverAfter(d time.Duration) Option {
	return func(m *Machine) {
		if d >= 0 {
			m.recoverAfter = d
		}
	}
}

// WithLogger はロガーを設定する
func WithLogger(l *slog.Logger) Option {
	return func(m *Machine) {
		if l != nil {
			m.logger = l
		}
	}
}

// request はイベントループへの入力。replyがnilの場合は結果を返さない
type request struct {
	ev    Event
	reply chan error
}

// Machine は画面状態を保持し、イベントを1つのゴルーチンで直列に処理する
type Machine struct {
	capturer Capturer
	uploader Uploader
	logger   *slog.Logger

	tickInterval  time.Duration
	captureDelay  time.Duration
	uploadTimeout time.Duration
	recoverAfter  time.Duration

	requests chan request
	done     chan struct{}
	runOnce  sync.Once

	mu    sync.RWMutex
	state State

	subsMu  sync.Mutex
	subs    map[int]chan State
	nextSub int

	// 以下はイベントループだけが触る
	timer        *countdownTimer
	captureTimer *time.Timer
	recoverTimer *time.Timer
	uploadCancel context.CancelFunc
	tasks        sync.WaitGroup
}

// NewMachine は新しいMachineを作成する
func NewMachine(capturer Capturer, uploader Uploader, opts ...Option) *Machine {
	m := &Machine{
		capturer:      capturer,
		uploader:      uploader,
		logger:        logger.Discard(),
		tickInterval:  time.Second,
		captureDelay:  200 * time.Millisecond,
		uploadTimeout: 30 * time.Second,
		requests:      make(chan request),
		done:          make(chan struct{}),
		state:         Initial(),
		subs:          make(map[int]chan State),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With(logger.Component("booth"))
	return m
}

// Run はイベントループを実行する。ctxがキャンセルされるまで戻らない
func (m *Machine) Run(ctx context.Context) error {
	started := false
	m.runOnce.Do(func() { started = true })
	if !started {
		return ErrStopped
	}

	defer m.teardown()

	m.logger.Info("撮影フローを開始しました")
	for {
		select {
		case <-ctx.Done():
			return nil
		case req := <-m.requests:
			err := m.handle(ctx, req.ev)
			if req.reply != nil {
				req.reply <- err
			}
		}
	}
}

// Snapshot は現在の状態を返す
func (m *Machine) Snapshot() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Subscribe は状態が変わる度に最新の状態を受け取るチャンネルを返す。
// 受信が遅れた場合は古い状態を捨てて最新の状態だけを残す
func (m *Machine) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)

	// 状態の確定と配信はsubsMuの中で行われるため、取得と登録の間に遷移が挟まることはない
	m.subsMu.Lock()
	ch <- m.Snapshot()
	select {
	case <-m.done:
		m.subsMu.Unlock()
		close(ch)
		return ch, func() {}
	default:
	}
	id := m.nextSub
	m.nextSub++
	m.subs[id] = ch
	m.subsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.subsMu.Lock()
			defer m.subsMu.Unlock()
			if _, ok := m.subs[id]; ok {
				delete(m.subs, id)
				close(ch)
			}
		})
	}
}

// Tap は紹介画面のタップを処理する
func (m *Machine) Tap(ctx context.Context) error {
	return m.dispatch(ctx, Tap())
}

// ConfirmationEnded は確認動画の再生終了を処理する
func (m *Machine) ConfirmationEnded(ctx context.Context) error {
	return m.dispatch(ctx, ConfirmationEnded())
}

// Reset は結果画面からの撮り直しを処理する
func (m *Machine) Reset(ctx context.Context) error {
	return m.dispatch(ctx, Reset())
}

// Recover は撮影失敗で止まった状態から紹介画面に戻す
func (m *Machine) Recover(ctx context.Context) error {
	return m.dispatch(ctx, Recover())
}

// dispatch はイベントを送り、受け付けられたかどうかを待つ
func (m *Machine) dispatch(ctx context.Context, ev Event) error {
	reply := make(chan error, 1)
	select {
	case m.requests <- request{ev: ev, reply: reply}:
	case <-ctx.Done():
		return ctx.Err()
	case <-m.done:
		return ErrStopped
	}

	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-m.done:
		return ErrStopped
	}
}

// post はタイマーや非同期処理からイベントを送る
func (m *Machine) post(ev Event) {
	select {
	case m.requests <- request{ev: ev}:
	case <-m.done:
	}
}

// handle は1つのイベントを処理する（イベントループ上で実行）
func (m *Machine) handle(ctx context.Context, ev Event) error {
	current := m.Snapshot()
	next, effects, ok := Transition(current, ev)
	if !ok {
		m.logger.Debug("イベントを無視しました",
			slog.String("event", ev.Kind.String()),
			slog.String("mode", string(current.Mode)),
			slog.Uint64("generation", ev.Generation),
		)
		return ErrInvalidTransition
	}

	// タイマー停止などを状態の確定より先に行う
	for _, effect := range effects {
		m.apply(ctx, effect)
	}

	m.commit(next)
	m.scheduleRecovery(next)

	m.logger.Debug("状態が遷移しました",
		slog.String("event", ev.Kind.String()),
		slog.String("from", string(current.Mode)),
		slog.String("to", string(next.Mode)),
		slog.Int("countdown", next.Countdown),
		slog.Uint64("generation", next.Generation),
	)
	return nil
}

// apply は副作用を実行する（イベントループ上で実行）
func (m *Machine) apply(ctx context.Context, effect Effect) {
	switch effect.Kind {
	case EffectStartTimer:
		m.stopTimer()
		gen := effect.Generation
		m.timer = startCountdownTimer(m.tickInterval, func() { m.post(Tick(gen)) })

	case EffectStopTimer:
		m.stopTimer()

	case EffectScheduleCapture:
		gen := effect.Generation
		if m.captureTimer != nil {
			m.captureTimer.Stop()
		}
		// カメラ側の準備を待ってから1回だけ撮影する
		m.captureTimer = time.AfterFunc(m.captureDelay, func() { m.capture(ctx, gen) })

	case EffectStartUpload:
		m.startUpload(ctx, effect.Generation, effect.Image)

	case EffectCancelUpload:
		m.cancelUpload()
	}
}

// capture はカメラからフレームを取り出し、結果をイベントとして送る
func (m *Machine) capture(ctx context.Context, gen uint64) {
	if m.capturer == nil {
		m.logger.Warn("カメラが準備できていないため撮影を中止しました")
		m.post(CaptureFailed(gen))
		return
	}

	data, ok := m.capturer.TryGetFrame(ctx)
	if !ok || len(data) == 0 {
		m.logger.Warn("カメラからフレームを取得できませんでした", slog.Uint64("generation", gen))
		m.post(CaptureFailed(gen))
		return
	}

	m.logger.Info("撮影しました", slog.Int("bytes", len(data)), slog.Uint64("generation", gen))
	m.post(Captured(gen, Image{Data: data, ContentType: "image/jpeg"}))
}

// startUpload はアップロードをバックグラウンドで開始する
func (m *Machine) startUpload(ctx context.Context, gen uint64, img Image) {
	m.cancelUpload()

	uploadCtx, cancel := context.WithTimeout(ctx, m.uploadTimeout)
	m.uploadCancel = cancel

	m.tasks.Add(1)
	go func() {
		defer m.tasks.Done()
		defer cancel()

		started := time.Now()
		url, err := m.uploader.Upload(uploadCtx, img.Data, img.ContentType)
		if err != nil {
			m.logger.Error("アップロードに失敗しました",
				logger.Error(err),
				slog.Uint64("generation", gen),
				slog.Duration("elapsed", time.Since(started)),
			)
			m.post(UploadFailed(gen))
			return
		}

		m.logger.Info("アップロードが完了しました",
			slog.String("url", url),
			slog.Uint64("generation", gen),
			slog.Duration("elapsed", time.Since(started)),
		)
		m.post(UploadSucceeded(gen, url))
	}()
}

// scheduleRecovery は撮影失敗時に自動復帰を予約する
func (m *Machine) scheduleRecovery(s State) {
	if m.recoverTimer != nil {
		m.recoverTimer.Stop()
		m.recoverTimer = nil
	}
	if !s.Stalled || m.recoverAfter <= 0 {
		return
	}
	m.recoverTimer = time.AfterFunc(m.recoverAfter, func() { m.post(Recover()) })
}

func (m *Machine) stopTimer() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func (m *Machine) cancelUpload() {
	if m.uploadCancel != nil {
		m.uploadCancel()
		m.uploadCancel = nil
	}
}

// commit は状態を確定し、購読者に最新の状態を送る
func (m *Machine) commit(s State) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()

	m.mu.Lock()
	m.state = s
	m.mu.Unlock()

	for _, ch := range m.subs {
		select {
		case ch <- s:
			continue
		default:
		}
		// 古い状態を捨てて入れ直す
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s:
		default:
		}
	}
}

// teardown はイベントループ終了時に全ての副作用を止める
func (m *Machine) teardown() {
	m.stopTimer()
	if m.captureTimer != nil {
		m.captureTimer.Stop()
	}
	if m.recoverTimer != nil {
		m.recoverTimer.Stop()
	}
	m.cancelUpload()

	// post がブロックしないよう先にdoneを閉じる
	m.subsMu.Lock()
	close(m.done)
	for id, ch := range m.subs {
		delete(m.subs, id)
		close(ch)
	}
	m.subsMu.Unlock()

	m.tasks.Wait()
	m.logger.Info("撮影フローを停止しました")
}
