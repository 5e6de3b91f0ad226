package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"
)

const (
	DefaultMaxRequests = 30
	DefaultWindow      = 30 * time.Minute
	DefaultTickEvery   = time.Second
)

// Config はレートリミッターの設定です。
type Config struct {
	MaxRequests int
	Window      time.Duration
}

// State はある時点のレートリミット状態です。
// ResetAt がゼロ値のとき、ウィンドウは未開始で Remaining は上限と等しくなります。
type State struct {
	Remaining int
	Limit     int
	ResetAt   time.Time
}

// Exhausted は上限に達しているかを返します。
func (s State) Exhausted() bool {
	return s.Remaining == 0
}

// Decision は Allow の判定結果です。
type Decision struct {
	Allowed   bool
	Remaining int
	Limit     int
	ResetAt   time.Time
	// Wait は拒否されたときに次のリセットまで待つ時間です。
	Wait time.Duration
}

// Option は Limiter の生成オプションです。
type Option func(*Limiter)

// WithClock は現在時刻の取得方法を差し替えます。テスト用なのだ。
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// Limiter は固定ウィンドウ内の成功回数を数え、Store に永続化するレートリミッターです。
// 全メソッドは並行に呼び出せます。
type Limiter struct {
	mu    sync.Mutex
	cfg   Config
	store Store
	now   func() time.Time

	remaining int
	resetAt   time.Time
}

// New は Store から状態を復元して Limiter を作成します。
// 保存済みのリセット時刻が過ぎていた場合や記録が不完全な場合はデフォルト状態から始めます。
func New(ctx context.Context, cfg Config, store Store, opts ...Option) (*Limiter, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = DefaultMaxRequests
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}

	l := &Limiter{
		cfg:       cfg,
		store:     store,
		now:       time.Now,
		remaining: cfg.MaxRequests,
	}
	for _, opt := range opts {
		opt(l)
	}

	l.load(ctx)
	return l, nil
}

// Config は使用中の設定を返します。
func (l *Limiter) Config() Config {
	return l.cfg
}

// State は現在の状態のスナップショットを返します。
func (l *Limiter) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshot()
}

// Allow は生成を試みる直前に呼び出します。
// 残り回数が0でリセット時刻を過ぎていなければ拒否します。
func (l *Limiter) Allow(ctx context.Context) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.expire(ctx, now)

	d := Decision{
		Allowed:   true,
		Remaining: l.remaining,
		Limit:     l.cfg.MaxRequests,
		ResetAt:   l.resetAt,
	}
	if l.remaining == 0 && now.Before(l.resetAt) {
		d.Allowed = false
		d.Wait = l.resetAt.Sub(now)
	}
	return d
}

// RecordSuccess は生成が成功した後にだけ呼び出します。
// 残り回数を1減らし、新しいウィンドウの最初の消費であればリセット時刻を設定します。
// 永続化に失敗した場合もメモリ上の状態は更新され、エラーを返します。
func (l *Limiter) RecordSuccess(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.expire(ctx, now)

	if l.remaining > 0 {
		l.remaining--
	}
	if l.resetAt.IsZero() {
		l.resetAt = now.Add(l.cfg.Window)
	}
	return l.persist(ctx)
}

// Tick はリセット時刻を過ぎていれば状態を初期化し、上限到達中はカウントダウン（MM:SS）を返します。
// それ以外は空文字を返します。
func (l *Limiter) Tick(ctx context.Context, now time.Time) string {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.expire(ctx, now)
	if l.remaining > 0 || l.resetAt.IsZero() {
		return ""
	}
	return FormatCountdown(l.resetAt.Sub(now))
}

// Reset は状態をデフォルトに戻し、永続化された記録を削除します。
func (l *Limiter) Reset(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.remaining = l.cfg.MaxRequests
	l.resetAt = time.Time{}
	return l.clear(ctx)
}

// Watch は interval ごとに Tick を実行し、結果を fn に渡します。
// ctx がキャンセルされるとタイマーを止めて戻ります。
func (l *Limiter) Watch(ctx context.Context, interval time.Duration, fn func(countdown string)) {
	if interval <= 0 {
		interval = DefaultTickEvery
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			countdown := l.Tick(ctx, l.now())
			if fn != nil {
				fn(countdown)
			}
		}
	}
}

// FormatCountdown は残り時間を MM:SS 形式にします。負の値は 00:00 です。
func FormatCountdown(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	minutes := int(d / time.Minute)
	seconds := int((d % time.Minute) / time.Second)
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

func (l *Limiter) snapshot() State {
	return State{
		Remaining: l.remaining,
		Limit:     l.cfg.MaxRequests,
		ResetAt:   l.resetAt,
	}
}

// expire は mu を保持した状態で呼び出すこと。
func (l *Limiter) expire(ctx context.Context, now time.Time) {
	if l.resetAt.IsZero() || now.Before(l.resetAt) {
		return
	}
	l.remaining = l.cfg.MaxRequests
	l.resetAt = time.Time{}
	if err := l.clear(ctx); err != nil {
		slog.WarnContext(ctx, "期限切れのレートリミット記録を削除できませんでした", "error", err)
	}
}

func (l *Limiter) load(ctx context.Context) {
	rawRemaining, okRemaining, err := l.store.Get(ctx, KeyRequestsLeft)
	if err != nil {
		slog.WarnContext(ctx, "レートリミット状態の読み込みに失敗しました。初期状態で開始します", "error", err)
		return
	}
	rawReset, okReset, err := l.store.Get(ctx, KeyLimitResetTime)
	if err != nil {
		slog.WarnContext(ctx, "レートリミット状態の読み込みに失敗しました。初期状態で開始します", "error", err)
		return
	}
	if !okRemaining && !okReset {
		return
	}

	remaining, resetAt, ok := l.parse(rawRemaining, okRemaining, rawReset, okReset)
	if !ok {
		slog.WarnContext(ctx, "不完全なレートリミット記録を破棄します",
			"requests_left", rawRemaining, "limit_reset_time", rawReset)
		l.discard(ctx)
		return
	}

	if l.now().After(resetAt) {
		slog.DebugContext(ctx, "保存されたウィンドウは期限切れのためリセットします", "reset_at", resetAt)
		l.discard(ctx)
		return
	}

	l.remaining = remaining
	l.resetAt = resetAt
}

func (l *Limiter) parse(rawRemaining string, okRemaining bool, rawReset string, okReset bool) (int, time.Time, bool) {
	if !okRemaining || !okReset {
		return 0, time.Time{}, false
	}
	remaining, err := strconv.Atoi(rawRemaining)
	if err != nil || remaining < 0 || remaining > l.cfg.MaxRequests {
		return 0, time.Time{}, false
	}
	millis, err := strconv.ParseInt(rawReset, 10, 64)
	if err != nil || millis <= 0 {
		return 0, time.Time{}, false
	}
	return remaining, time.UnixMilli(millis), true
}

func (l *Limiter) discard(ctx context.Context) {
	if err := l.clear(ctx); err != nil {
		slog.WarnContext(ctx, "レートリミット記録の削除に失敗しました", "error", err)
	}
}

func (l *Limiter) persist(ctx context.Context) error {
	if err := l.store.Set(ctx, KeyRequestsLeft, strconv.Itoa(l.remaining)); err != nil {
		return fmt.Errorf("残り回数の保存に失敗しました: %w", err)
	}
	if err := l.store.Set(ctx, KeyLimitResetTime, strconv.FormatInt(l.resetAt.UnixMilli(), 10)); err != nil {
		return fmt.Errorf("リセット時刻の保存に失敗しました: %w", err)
	}
	return nil
}

func (l *Limiter) clear(ctx context.Context) error {
	if err := l.store.Delete(ctx, KeyRequestsLeft); err != nil {
		return err
	}
	return l.store.Delete(ctx, KeyLimitResetTime)
}
