package generator

import (
	"errors"
	"time"
)

const (
	// DefaultModel は画像出力に対応した Gemini モデルです。
	DefaultModel = "gemini-2.5-flash-image"
	// DefaultTimeout は1回の生成リクエストに許す最大時間です。
	DefaultTimeout = 2 * time.Minute
)

var (
	// ErrNoImage は応答に画像が含まれず、異常終了でもなかった場合のエラーです。
	ErrNoImage = errors.New("画像が生成されませんでした")
	// ErrEmptyResponse は候補が1つも返らなかった場合のエラーです。
	ErrEmptyResponse = errors.New("Geminiからの有効な応答がありませんでした")
)

// FinishError は画像がなく、終了理由が正常終了以外だった場合のエラーです。
// セーフティフィルターや不正な入力が主な原因なのだ。
type FinishError struct {
	Reason string
}

func (e *FinishError) Error() string {
	return "画像生成が異常終了しました (FinishReason: " + e.Reason + ")"
}

// BlockedError はプロンプト自体がブロックされた場合のエラーです。
type BlockedError struct {
	Reason  string
	Message string
}

func (e *BlockedError) Error() string {
	if e.Message == "" {
		return "プロンプトがブロックされました (BlockReason: " + e.Reason + ")"
	}
	return "プロンプトがブロックされました (BlockReason: " + e.Reason + "): " + e.Message
}
