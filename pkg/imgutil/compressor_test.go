package imgutil

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// テスト用のダミー画像（10x10の赤い正方形）を作成するヘルパー
func createDummyImageData(t *testing.T, format string) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	for x := 0; x < 10; x++ {
		for y := 0; y < 10; y++ {
			img.Set(x, y, color.RGBA{255, 0, 0, 255})
		}
	}

	buf := new(bytes.Buffer)
	var err error
	switch format {
	case "png":
		err = png.Encode(buf, img)
	case "jpeg":
		err = jpeg.Encode(buf, img, nil)
	default:
		t.Fatalf("unsupported format: %s", format)
	}

	if err != nil {
		t.Fatalf("failed to encode dummy image: %v", err)
	}
	return buf.Bytes()
}

func TestCompressToJPEG(t *testing.T) {
	t.Run("正常なPNG画像をJPEGに圧縮できること", func(t *testing.T) {
		pngData := createDummyImageData(t, "png")

		got, err := CompressToJPEG(pngData, 75)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if len(got) == 0 {
			t.Error("expected output data, but got empty")
		}

		// 出力がJPEGとしてデコード可能か確認
		_, format, err := image.Decode(bytes.NewReader(got))
		if err != nil {
			t.Errorf("failed to decode output image: %v", err)
		}
		if format != "jpeg" {
			t.Errorf("expected format jpeg, got %s", format)
		}
	})

	t.Run("不正なデータを与えた場合にエラーを返すこと", func(t *testing.T) {
		invalidData := []byte("this is not an image")
		_, err := CompressToJPEG(invalidData, 75)
		if err == nil {
			t.Error("expected error for invalid data, but got nil")
		}
	})

	t.Run("Quality設定によってサイズが変化すること", func(t *testing.T) {
		input := createNoiseImageData(t)

		highQuality, _ := CompressToJPEG(input, 100)
		lowQuality, _ := CompressToJPEG(input, 10)

		if len(lowQuality) >= len(highQuality) {
			t.Errorf("low quality size (%d) should be smaller than high quality size (%d)", len(lowQuality), len(highQuality))
		}
	})
}

// ノイズ画像は PNG だと大きく、JPEG に再圧縮すると小さくなるのだ
func createNoiseImageData(t *testing.T) []byte {
	t.Helper()
	r := rand.New(rand.NewSource(1))
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for x := 0; x < 64; x++ {
		for y := 0; y < 64; y++ {
			img.Set(x, y, color.RGBA{uint8(r.Intn(256)), uint8(r.Intn(256)), uint8(r.Intn(256)), 255})
		}
	}
	buf := new(bytes.Buffer)
	require.NoError(t, png.Encode(buf, img))
	return buf.Bytes()
}

func TestShrink(t *testing.T) {
	t.Run("小さくなる場合はJPEGに差し替えるのだ", func(t *testing.T) {
		input := createNoiseImageData(t)
		out, mimeType := Shrink(input, "image/png", 10)
		assert.Equal(t, "image/jpeg", mimeType)
		assert.Less(t, len(out), len(input))
	})

	t.Run("小さくならない場合は元のデータを返すのだ", func(t *testing.T) {
		input := createDummyImageData(t, "png")
		out, mimeType := Shrink(input, "image/png", 100)
		assert.Equal(t, "image/png", mimeType)
		assert.Equal(t, input, out)
	})

	t.Run("デコードできないデータはそのまま返すのだ", func(t *testing.T) {
		out, mimeType := Shrink([]byte("not an image"), "image/webp", DefaultJPEGQuality)
		assert.Equal(t, "image/webp", mimeType)
		assert.Equal(t, []byte("not an image"), out)
	})
}

func TestDetectImageMimeType(t *testing.T) {
	t.Run("PNGを判定できるのだ", func(t *testing.T) {
		got, err := DetectImageMimeType(createDummyImageData(t, "png"))
		require.NoError(t, err)
		assert.Equal(t, "image/png", got)
	})

	t.Run("JPEGを判定できるのだ", func(t *testing.T) {
		got, err := DetectImageMimeType(createDummyImageData(t, "jpeg"))
		require.NoError(t, err)
		assert.Equal(t, "image/jpeg", got)
	})

	t.Run("画像以外と空データはエラーなのだ", func(t *testing.T) {
		_, err := DetectImageMimeType([]byte("plain text"))
		assert.Error(t, err)
		_, err = DetectImageMimeType(nil)
		assert.Error(t, err)
	})
}
