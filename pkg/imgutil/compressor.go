package imgutil

import (
	"bytes"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
)

// DefaultJPEGQuality はアップロード画像を再圧縮するときの既定品質です。
const DefaultJPEGQuality = 75

// CompressToJPEG は画像データ（PNG, GIF, JPEG等）をJPEG形式に圧縮します。
func CompressToJPEG(data []byte, quality int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Shrink は JPEG に再圧縮して元より小さくなった場合だけ差し替えます。
// 戻り値は採用したデータとその MIME タイプです。
func Shrink(data []byte, mimeType string, quality int) ([]byte, string) {
	compressed, err := CompressToJPEG(data, quality)
	if err != nil || len(compressed) >= len(data) {
		return data, mimeType
	}
	return compressed, "image/jpeg"
}
