package domain

import "github.com/shouni/gemini-image-editor/pkg/utils"

// MaxImages はワークフローが同時に保持できる画像の上限です。
const MaxImages = 3

// DefaultMimeType はサービスが MIME タイプを返さなかった場合に使う値です。
const DefaultMimeType = "image/png"

// UploadedImage はユーザーがステージした入力画像です。
type UploadedImage struct {
	Name     string // 表示用のファイル名（任意）
	Data     []byte
	MimeType string
}

// Part はリクエストを構成するコンテンツパーツです。
// 実装は ImagePart と TextPart のみなのだ。
type Part interface {
	isPart()
}

// ImagePart はインライン画像のパーツです。
type ImagePart struct {
	Data     []byte
	MimeType string
}

// TextPart はプロンプト文字列のパーツです。
type TextPart struct {
	Value string
}

func (ImagePart) isPart() {}
func (TextPart) isPart()  {}

// GenerationRequest は画像パーツ（入力順）の後にテキストパーツを1つ置いた要求です。
type GenerationRequest struct {
	Parts []Part
}

// NewGenerationRequest は画像をすべて先に並べ、最後にプロンプトを追加します。
func NewGenerationRequest(images []UploadedImage, prompt string) GenerationRequest {
	parts := make([]Part, 0, len(images)+1)
	for _, img := range images {
		parts = append(parts, ImagePart{Data: img.Data, MimeType: img.MimeType})
	}
	parts = append(parts, TextPart{Value: prompt})
	return GenerationRequest{Parts: parts}
}

// GenerationResult は生成された1枚の画像です。
type GenerationResult struct {
	Data     []byte
	MimeType string
}

// DataURI は結果を data:<mime>;base64,<payload> 形式で返します。
func (r GenerationResult) DataURI() string {
	mimeType := r.MimeType
	if mimeType == "" {
		mimeType = DefaultMimeType
	}
	return utils.DataURI(mimeType, r.Data)
}
