package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shouni/gemini-image-editor/pkg/domain"
	"github.com/shouni/gemini-image-editor/pkg/generator"
	"github.com/shouni/gemini-image-editor/pkg/ratelimit"
)

// Limiter はコントローラーが必要とするレートリミッターの操作です。
type Limiter interface {
	Allow(ctx context.Context) ratelimit.Decision
	RecordSuccess(ctx context.Context) error
	Tick(ctx context.Context, now time.Time) string
	State() ratelimit.State
}

// Status は表示用の現在状態です。
type Status struct {
	Remaining int
	Limit     int
	ResetAt   time.Time
	Countdown string
	InFlight  bool
	Images    int
}

// Controller は画像のステージング、レートリミットの確認、生成の実行をまとめます。
type Controller struct {
	limiter   Limiter
	generator generator.ImageGenerator
	now       func() time.Time

	mu     sync.Mutex
	images []domain.UploadedImage

	inFlight atomic.Bool
}

// NewController は依存関係を注入して Controller を作成します。
func NewController(limiter Limiter, gen generator.ImageGenerator) (*Controller, error) {
	if limiter == nil {
		return nil, fmt.Errorf("limiter is required")
	}
	if gen == nil {
		return nil, fmt.Errorf("generator is required")
	}
	return &Controller{
		limiter:   limiter,
		generator: gen,
		now:       time.Now,
	}, nil
}

// AddImages は画像をステージします。合計が domain.MaxImages を超える場合は
// 何も追加せずに CodeTooManyFiles を返します。
func (c *Controller) AddImages(imgs ...domain.UploadedImage) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.images)+len(imgs) > domain.MaxImages {
		return &domain.ValidationError{
			Code:    domain.CodeTooManyFiles,
			Message: fmt.Sprintf("アップロードできる画像は最大%d枚です", domain.MaxImages),
		}
	}
	c.images = append(c.images, imgs...)
	return nil
}

// RemoveImage は index 番目の画像を取り除きます。
func (c *Controller) RemoveImage(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if index < 0 || index >= len(c.images) {
		return fmt.Errorf("画像のインデックスが範囲外です: %d", index)
	}
	c.images = append(c.images[:index:index], c.images[index+1:]...)
	return nil
}

// Images はステージ中の画像のコピーを返します。
func (c *Controller) Images() []domain.UploadedImage {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]domain.UploadedImage, len(c.images))
	copy(out, c.images)
	return out
}

// ClearImages はステージ中の画像をすべて取り除きます。
func (c *Controller) ClearImages() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.images = nil
}

// InFlight は生成中かどうかを返します。
func (c *Controller) InFlight() bool {
	return c.inFlight.Load()
}

// Status は残り回数やカウントダウンを含む現在の状態を返します。
func (c *Controller) Status(ctx context.Context) Status {
	countdown := c.limiter.Tick(ctx, c.now())
	st := c.limiter.State()

	c.mu.Lock()
	n := len(c.images)
	c.mu.Unlock()

	return Status{
		Remaining: st.Remaining,
		Limit:     st.Limit,
		ResetAt:   st.ResetAt,
		Countdown: countdown,
		InFlight:  c.InFlight(),
		Images:    n,
	}
}

// CheckReady は上限到達と空のプロンプトを確認します。通信は行わず、回数も消費しません。
// 参照画像の取得など、生成前の重い処理の前に呼び出せます。
func (c *Controller) CheckReady(ctx context.Context, prompt string) error {
	if d := c.limiter.Allow(ctx); !d.Allowed {
		slog.InfoContext(ctx, "生成上限に達しています", "wait", d.Wait)
		return &domain.ValidationError{
			Code:    domain.CodeLimitReached,
			Message: fmt.Sprintf("生成回数の上限に達しました。%s 後に再度お試しください", ratelimit.FormatCountdown(d.Wait)),
			Wait:    d.Wait,
		}
	}

	if strings.TrimSpace(prompt) == "" {
		return &domain.ValidationError{
			Code:    domain.CodeEmptyPrompt,
			Message: "生成したい画像の説明（プロンプト）を入力してください",
		}
	}

	return nil
}

// Generate はステージ中の画像とプロンプトで1回生成を実行します。
// 生成中の二重送信、上限到達、空のプロンプトは ValidationError となり、通信は行いません。
// 成功したときだけレートリミットを消費します。
func (c *Controller) Generate(ctx context.Context, prompt string) (*domain.GenerationResult, error) {
	if !c.inFlight.CompareAndSwap(false, true) {
		return nil, &domain.ValidationError{
			Code:    domain.CodeBusy,
			Message: "画像を生成中です。完了までお待ちください",
		}
	}
	defer c.inFlight.Store(false)

	if err := c.CheckReady(ctx, prompt); err != nil {
		return nil, err
	}

	result, err := c.generator.Generate(ctx, c.Images(), prompt)
	if err != nil {
		return nil, err
	}

	if err := c.limiter.RecordSuccess(ctx); err != nil {
		slog.WarnContext(ctx, "レートリミット状態の保存に失敗しました", "error", err)
	}
	return result, nil
}
