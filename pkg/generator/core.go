package generator

import (
	"fmt"

	"github.com/shouni/gemini-image-editor/pkg/domain"
	"google.golang.org/genai"
)

// GeminiImageCore はドメインのリクエストと Gemini SDK の型を相互に変換するコンポーネントです。
type GeminiImageCore struct{}

// NewGeminiImageCore は GeminiImageCore を作成します。
func NewGeminiImageCore() *GeminiImageCore {
	return &GeminiImageCore{}
}

// BuildContents はリクエストのパーツを順序どおり1つのユーザーコンテンツに変換します。
// バイト列は SDK が送信時に標準 base64 でエンコードするのだ。
func (c *GeminiImageCore) BuildContents(req domain.GenerationRequest) ([]*genai.Content, error) {
	parts := make([]*genai.Part, 0, len(req.Parts))
	for i, p := range req.Parts {
		switch v := p.(type) {
		case domain.ImagePart:
			mimeType := v.MimeType
			if mimeType == "" {
				mimeType = domain.DefaultMimeType
			}
			parts = append(parts, genai.NewPartFromBytes(v.Data, mimeType))
		case domain.TextPart:
			parts = append(parts, genai.NewPartFromText(v.Value))
		default:
			return nil, fmt.Errorf("未対応のパーツ型です (index: %d, type: %T)", i, p)
		}
	}
	return []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, nil
}

// ParseToResponse は Gemini のレスポンスから最初の画像パーツを取り出します。
func (c *GeminiImageCore) ParseToResponse(resp *genai.GenerateContentResponse) (*domain.GenerationResult, error) {
	if resp == nil {
		return nil, ErrEmptyResponse
	}
	if len(resp.Candidates) == 0 {
		if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" && fb.BlockReason != "BLOCKED_REASON_UNSPECIFIED" {
			return nil, &BlockedError{Reason: string(fb.BlockReason), Message: fb.BlockReasonMessage}
		}
		return nil, ErrEmptyResponse
	}

	// 最初の候補 (Candidate) のみを利用する
	candidate := resp.Candidates[0]
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
				continue
			}
			mimeType := part.InlineData.MIMEType
			if mimeType == "" {
				mimeType = domain.DefaultMimeType
			}
			return &domain.GenerationResult{Data: part.InlineData.Data, MimeType: mimeType}, nil
		}
	}

	// 安全フィルター等によるブロックの確認
	if isAbnormalFinish(candidate.FinishReason) {
		return nil, &FinishError{Reason: string(candidate.FinishReason)}
	}
	return nil, ErrNoImage
}

func isAbnormalFinish(reason genai.FinishReason) bool {
	switch reason {
	case "", genai.FinishReasonUnspecified, genai.FinishReasonStop:
		return false
	default:
		return true
	}
}
