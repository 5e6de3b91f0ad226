package adapters

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/gemini-image-editor/pkg/domain"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, color.RGBA{0, 128, 255, 255})
		}
	}
	buf := new(bytes.Buffer)
	require.NoError(t, png.Encode(buf, img))
	return buf.Bytes()
}

// localFetcher は httptest のループバックアドレスへの接続を許可するテスト用クライアントなのだ。
func localFetcher() *httpkit.Client {
	return httpkit.New(time.Second, httpkit.WithSkipNetworkValidation(true), httpkit.WithMaxRetries(0))
}

func TestImageLoader_LoadFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	t.Run("PNGファイルを読み込んでMIMEタイプを判定するのだ", func(t *testing.T) {
		p := filepath.Join(dir, "cat.png")
		require.NoError(t, os.WriteFile(p, pngBytes(t), 0o600))

		img, err := NewImageLoader(nil, nil, LoaderOptions{}).Load(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, "cat.png", img.Name)
		assert.Equal(t, "image/png", img.MimeType)
		assert.Equal(t, pngBytes(t), img.Data)
	})

	t.Run("画像でないファイルはValidationErrorなのだ", func(t *testing.T) {
		p := filepath.Join(dir, "notes.txt")
		require.NoError(t, os.WriteFile(p, []byte("hello"), 0o600))

		_, err := NewImageLoader(nil, nil, LoaderOptions{}).Load(ctx, p)
		var vErr *domain.ValidationError
		require.True(t, errors.As(err, &vErr))
		assert.Equal(t, domain.CodeInvalidImage, vErr.Code)
	})

	t.Run("存在しないファイルはエラーなのだ", func(t *testing.T) {
		_, err := NewImageLoader(nil, nil, LoaderOptions{}).Load(ctx, filepath.Join(dir, "missing.png"))
		assert.Error(t, err)
	})
}

func TestImageLoader_LoadRemoteURI(t *testing.T) {
	reader := &mockReader{files: map[string][]byte{"gs://bucket/refs/cat.png": pngBytes(t)}}
	loader := NewImageLoader(nil, reader, LoaderOptions{})

	img, err := loader.Load(context.Background(), "gs://bucket/refs/cat.png")
	require.NoError(t, err)
	assert.Equal(t, "cat.png", img.Name)
	assert.Equal(t, "image/png", img.MimeType)
	assert.Equal(t, []string{"gs://bucket/refs/cat.png"}, reader.opened)

	_, err = loader.Load(context.Background(), "s3://bucket/missing.png")
	assert.Error(t, err)
}

func TestImageLoader_LoadURL(t *testing.T) {
	ctx := context.Background()
	data := pngBytes(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, httpkit.UserAgent, r.Header.Get("User-Agent"))
		if r.URL.Path == "/missing.png" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	t.Run("URLからダウンロードできるのだ", func(t *testing.T) {
		loader := NewImageLoader(localFetcher(), nil, LoaderOptions{})

		img, err := loader.Load(ctx, srv.URL+"/images/dog.png")
		require.NoError(t, err)
		assert.Equal(t, "dog.png", img.Name)
		assert.Equal(t, data, img.Data)
	})

	t.Run("404はエラーなのだ", func(t *testing.T) {
		loader := NewImageLoader(localFetcher(), nil, LoaderOptions{})

		_, err := loader.Load(ctx, srv.URL+"/missing.png")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "404")
	})

	t.Run("ループバックへのアクセスはブロックするのだ", func(t *testing.T) {
		_, err := NewImageLoader(nil, nil, LoaderOptions{}).Load(ctx, srv.URL+"/images/dog.png")
		assert.Error(t, err)
	})
}

func TestImageLoader_RedirectToPrivateAddress(t *testing.T) {
	var internalHits, entryHits atomic.Int32

	internal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		internalHits.Add(1)
		_, _ = w.Write(pngBytes(t))
	}))
	defer internal.Close()

	entry := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		entryHits.Add(1)
		http.Redirect(w, r, internal.URL+"/secret.png", http.StatusFound)
	}))
	defer entry.Close()

	loader := NewImageLoader(NewFetcher(time.Second), nil, LoaderOptions{})
	_, err := loader.Load(context.Background(), entry.URL+"/a.png")

	require.Error(t, err)
	assert.Zero(t, internalHits.Load(), "リダイレクト先の内部サーバーには接続しないのだ")
	assert.Zero(t, entryHits.Load())
}

func TestImageLoader_FromBytes(t *testing.T) {
	ctx := context.Background()

	t.Run("上限を超えるデータは拒否するのだ", func(t *testing.T) {
		big := make([]byte, MaxImageBytes+1)
		copy(big, pngBytes(t))
		_, err := NewImageLoader(nil, nil, LoaderOptions{}).FromBytes(ctx, "big.png", big)
		var vErr *domain.ValidationError
		require.True(t, errors.As(err, &vErr))
	})

	t.Run("圧縮しても大きくなる画像は元のままなのだ", func(t *testing.T) {
		img, err := NewImageLoader(nil, nil, LoaderOptions{Compress: true}).FromBytes(ctx, "tiny.png", pngBytes(t))
		require.NoError(t, err)
		assert.Equal(t, "image/png", img.MimeType)
	})
}

func TestNewGenAIModel(t *testing.T) {
	t.Run("APIキーがなければエラーなのだ", func(t *testing.T) {
		_, err := NewGenAIModel(context.Background(), "", nil)
		assert.Error(t, err)
	})
}
