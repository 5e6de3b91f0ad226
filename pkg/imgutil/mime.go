package imgutil

import (
	"fmt"
	"net/http"
	"strings"
)

// DetectImageMimeType はデータの先頭から MIME タイプを判定し、画像でなければエラーを返します。
func DetectImageMimeType(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("画像データが空です")
	}
	mimeType := http.DetectContentType(data)
	if !strings.HasPrefix(mimeType, "image/") {
		return "", fmt.Errorf("画像ではないデータです (detected: %s)", mimeType)
	}
	return mimeType, nil
}
