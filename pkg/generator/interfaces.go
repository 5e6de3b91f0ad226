package generator

import (
	"context"

	"github.com/shouni/gemini-image-editor/pkg/domain"
	"google.golang.org/genai"
)

// GenerativeModel は Gemini のコンテンツ生成 API を抽象化するインターフェースです。
// *genai.Models がそのまま満たします。
type GenerativeModel interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// ImageGenerator はワークフロー層が利用する画像生成の窓口です。
type ImageGenerator interface {
	// Generate は画像（0〜3枚）とプロンプトから1枚の画像を生成します。
	Generate(ctx context.Context, images []domain.UploadedImage, prompt string) (*domain.GenerationResult, error)
}
