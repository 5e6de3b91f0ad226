package utils

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// EncodeBase64 は標準アルファベットで base64 エンコードします。
func EncodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// DataURI は data:<mime>;base64,<payload> 形式の文字列を作ります。
func DataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + EncodeBase64(data)
}

// ParseDataURI は base64 形式の data URI を MIME タイプとバイト列に分解します。
func ParseDataURI(uri string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, fmt.Errorf("data URI ではありません")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("data URI にペイロードがありません")
	}
	mimeType, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return "", nil, fmt.Errorf("base64 以外の data URI は未対応です")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("ペイロードのデコードに失敗しました: %w", err)
	}
	return mimeType, data, nil
}
