package booth

// Transition は状態とイベントから次の状態と副作用を求める。
// 現在の状態で意味を持たないイベントの場合は、同じ状態とfalseを返す
func Transition(s State, ev Event) (State, []Effect, bool) {
	switch ev.Kind {
	case EventTap:
		if s.Mode != ModeIntro {
			return s, nil, false
		}
		next := State{
			Mode:       ModeCountdown,
			Countdown:  CountdownStart,
			Expanded:   true,
			Generation: s.Generation,
		}
		return next, []Effect{{Kind: EffectStartTimer, Generation: s.Generation}}, true

	case EventTick:
		if s.Mode != ModeCountdown || s.Countdown <= 0 || ev.Generation != s.Generation {
			return s, nil, false
		}
		next := s
		next.Countdown--
		if next.Countdown > 0 {
			return next, nil, true
		}
		// 0に落ちる前にタイマーを止め、二重の撮影を防ぐ
		return next, []Effect{
			{Kind: EffectStopTimer, Generation: s.Generation},
			{Kind: EffectScheduleCapture, Generation: s.Generation},
		}, true

	case EventCaptured:
		if !awaitingCapture(s, ev) {
			return s, nil, false
		}
		if ev.Image.Empty() {
			return stall(s), nil, true
		}
		next := State{
			Mode:       ModeConfirmation,
			Image:      ev.Image,
			Uploading:  true,
			Expanded:   s.Expanded,
			Generation: s.Generation,
		}
		return next, []Effect{{Kind: EffectStartUpload, Generation: s.Generation, Image: ev.Image}}, true

	case EventCaptureFailed:
		if !awaitingCapture(s, ev) {
			return s, nil, false
		}
		return stall(s), nil, true

	case EventUploadSucceeded, EventUploadFailed:
		if !s.Uploading || ev.Generation != s.Generation {
			return s, nil, false
		}
		next := s
		next.Uploading = false
		if ev.Kind == EventUploadSucceeded {
			next.URL = ev.URL
		}
		return next, nil, true

	case EventConfirmationEnded:
		if s.Mode != ModeConfirmation {
			return s, nil, false
		}
		next := s
		next.Mode = ModeResult
		return next, nil, true

	case EventReset:
		if s.Mode != ModeResult {
			return s, nil, false
		}
		return restart(s)

	case EventRecover:
		if s.Mode != ModeCountdown || !s.Stalled {
			return s, nil, false
		}
		return restart(s)
	}

	return s, nil, false
}

// awaitingCapture はカウントダウン終端で撮影結果を待っているかを返す
func awaitingCapture(s State, ev Event) bool {
	return s.Mode == ModeCountdown && s.Countdown == 0 && !s.Stalled && ev.Generation == s.Generation
}

func stall(s State) State {
	next := s
	next.Stalled = true
	return next
}

// restart は世代を進めて紹介画面に戻す
func restart(s State) (State, []Effect, bool) {
	next := Initial()
	next.Generation = s.Generation + 1
	return next, []Effect{
		{Kind: EffectStopTimer, Generation: s.Generation},
		{Kind: EffectCancelUpload, Generation: s.Generation},
	}, true
}
