package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shouni/gemini-image-editor/pkg/domain"
	"google.golang.org/genai"
)

// GeminiGenerator は画像とプロンプトから1回だけ Gemini に生成を依頼するジェネレーターです。
// キャッシュもリトライも行いません。
type GeminiGenerator struct {
	imgCore  *GeminiImageCore
	aiClient GenerativeModel
	model    string
	timeout  time.Duration
}

// NewGeminiGenerator は GeminiGenerator を初期化するのだ。
// model が空なら DefaultModel、timeout が0以下なら DefaultTimeout を使います。
func NewGeminiGenerator(aiClient GenerativeModel, model string, timeout time.Duration) (*GeminiGenerator, error) {
	if aiClient == nil {
		return nil, fmt.Errorf("aiClient (GenerativeModel) is required")
	}
	if model == "" {
		model = DefaultModel
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &GeminiGenerator{
		imgCore:  NewGeminiImageCore(),
		aiClient: aiClient,
		model:    model,
		timeout:  timeout,
	}, nil
}

// Model は使用するモデル名を返します。
func (g *GeminiGenerator) Model() string {
	return g.model
}

// Generate は画像パーツ（入力順）とテキストパーツで1件のリクエストを組み立て、
// 画像モダリティで生成を実行します。失敗はすべて *domain.GenerationError で返します。
func (g *GeminiGenerator) Generate(ctx context.Context, images []domain.UploadedImage, prompt string) (*domain.GenerationResult, error) {
	req := domain.NewGenerationRequest(images, prompt)
	contents, err := g.imgCore.BuildContents(req)
	if err != nil {
		return nil, g.fail(ctx, "リクエストの組み立てに失敗しました", err)
	}

	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{string(genai.ModalityImage)},
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	slog.InfoContext(ctx, "Geminiに画像生成をリクエストします", "model", g.model, "images", len(images))
	start := time.Now()

	resp, err := g.aiClient.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, g.fail(ctx, fmt.Sprintf("画像生成がタイムアウトしました (%s)", g.timeout), err)
		}
		return nil, g.fail(ctx, "Gemini API エラー", err)
	}

	result, err := g.imgCore.ParseToResponse(resp)
	if err != nil {
		return nil, g.fail(ctx, "Gemini API エラー", err)
	}

	slog.InfoContext(ctx, "画像生成が完了しました",
		"mime_type", result.MimeType, "bytes", len(result.Data), "elapsed", time.Since(start))
	return result, nil
}

// fail は元のエラーを診断用にログへ残してから GenerationError に包むのだ。
func (g *GeminiGenerator) fail(ctx context.Context, message string, err error) error {
	slog.ErrorContext(ctx, message, "model", g.model, "error", err)
	return &domain.GenerationError{Message: message, Err: err}
}
