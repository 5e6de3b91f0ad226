package adapters

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/shouni/go-remote-io/pkg/remoteio"

	"github.com/shouni/gemini-image-editor/pkg/domain"
	"github.com/shouni/gemini-image-editor/pkg/imgutil"
)

// MaxImageBytes はインラインで送れる1枚あたりの上限サイズです。
const MaxImageBytes = 20 << 20

// DefaultFetchTimeout は参照画像のダウンロードのタイムアウトです。
const DefaultFetchTimeout = 30 * time.Second

// LoaderOptions は ImageLoader の挙動を調整します。
type LoaderOptions struct {
	// Compress が true のとき、JPEG に再圧縮して小さくなる画像は差し替えます。
	Compress bool
	Quality  int
}

// ImageLoader はローカルファイル、gs:// / s3:// URI、または http(s) URL から入力画像を読み込みます。
type ImageLoader struct {
	httpClient httpkit.ClientInterface
	reader     remoteio.InputReader
	opts       LoaderOptions
}

// NewFetcher は参照画像のダウンロード用クライアントを作成します。
// 接続ごとに宛先 IP を検証するため、リダイレクト先や DNS の再解決でも
// プライベートアドレスには接続しません。リトライは行いません。
func NewFetcher(timeout time.Duration) *httpkit.Client {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return httpkit.New(timeout, httpkit.WithMaxRetries(0))
}

// NewImageLoader は依存関係を注入して ImageLoader を作成します。
// httpClient と reader が nil の場合は既定の実装を使います。
func NewImageLoader(httpClient httpkit.ClientInterface, reader remoteio.InputReader, opts LoaderOptions) *ImageLoader {
	if httpClient == nil {
		httpClient = NewFetcher(0)
	}
	if reader == nil {
		reader = remoteio.NewUniversalInputReader(nil, nil)
	}
	if opts.Quality <= 0 {
		opts.Quality = imgutil.DefaultJPEGQuality
	}
	return &ImageLoader{
		httpClient: httpClient,
		reader:     reader,
		opts:       opts,
	}
}

// Load は source を読み込んで UploadedImage にします。
// 画像として判定できないデータは CodeInvalidImage の ValidationError になります。
func (l *ImageLoader) Load(ctx context.Context, source string) (domain.UploadedImage, error) {
	var (
		data []byte
		name string
		err  error
	)
	switch {
	case strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://"):
		data, err = l.fetch(ctx, source)
		name = urlBaseName(source)
	case remoteio.IsRemoteURI(source):
		data, err = l.open(ctx, source)
		name = path.Base(source)
	default:
		data, err = l.open(ctx, source)
		name = filepath.Base(source)
	}
	if err != nil {
		return domain.UploadedImage{}, err
	}
	return l.FromBytes(ctx, name, data)
}

// FromBytes はアップロードされたバイト列を検証して UploadedImage にします。
func (l *ImageLoader) FromBytes(ctx context.Context, name string, data []byte) (domain.UploadedImage, error) {
	if len(data) > MaxImageBytes {
		return domain.UploadedImage{}, &domain.ValidationError{
			Code:    domain.CodeInvalidImage,
			Message: fmt.Sprintf("%s は大きすぎます (最大 %d MB)", name, MaxImageBytes>>20),
		}
	}
	mimeType, err := imgutil.DetectImageMimeType(data)
	if err != nil {
		return domain.UploadedImage{}, &domain.ValidationError{
			Code:    domain.CodeInvalidImage,
			Message: fmt.Sprintf("%s: %v", name, err),
		}
	}

	if l.opts.Compress {
		before := len(data)
		data, mimeType = imgutil.Shrink(data, mimeType, l.opts.Quality)
		slog.DebugContext(ctx, "入力画像を圧縮しました", "name", name, "before", before, "after", len(data))
	}

	return domain.UploadedImage{Name: name, Data: data, MimeType: mimeType}, nil
}

func (l *ImageLoader) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	data, err := l.httpClient.FetchBytes(ctx, rawURL)
	if err != nil {
		slog.WarnContext(ctx, "画像のダウンロードに失敗しました", "url", rawURL, "error", err)
		return nil, fmt.Errorf("画像のダウンロードに失敗しました: %w", err)
	}
	return data, nil
}

func (l *ImageLoader) open(ctx context.Context, source string) ([]byte, error) {
	rc, err := l.reader.Open(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("画像ファイルを開けませんでした: %w", err)
	}
	defer rc.Close()

	// MaxImageBytes を1バイト超えるところまで読み、超過は FromBytes で検出する
	data, err := io.ReadAll(io.LimitReader(rc, MaxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("画像の読み込みに失敗しました: %w", err)
	}
	return data, nil
}

func urlBaseName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Path == "" || u.Path == "/" {
		return "image"
	}
	return path.Base(u.Path)
}
