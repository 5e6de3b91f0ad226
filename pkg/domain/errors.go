package domain

import (
	"fmt"
	"time"
)

// ValidationCode はユーザー入力起因のエラー種別です。
type ValidationCode string

const (
	CodeTooManyFiles ValidationCode = "too_many_files"
	CodeEmptyPrompt  ValidationCode = "empty_prompt"
	CodeLimitReached ValidationCode = "limit_reached"
	CodeBusy         ValidationCode = "busy"
	CodeInvalidImage ValidationCode = "invalid_image"
)

// ValidationError はユーザーにそのまま表示する入力エラーです。
// システム障害としてはログに残しません。
type ValidationError struct {
	Code    ValidationCode
	Message string
	// Wait は CodeLimitReached のときのみ設定される、次に試せるまでの時間です。
	Wait time.Duration
}

func (e *ValidationError) Error() string {
	return e.Message
}

// GenerationError はサービス呼び出しや応答解析の失敗です。
type GenerationError struct {
	Message string
	Err     error
}

func (e *GenerationError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
