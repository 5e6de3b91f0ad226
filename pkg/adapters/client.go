package adapters

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/acronis/go-appkit/httpclient"
	"google.golang.org/genai"

	"github.com/shouni/gemini-image-editor/pkg/generator"
)

// DefaultUserAgent は外部通信で送る User-Agent です。
const DefaultUserAgent = "gemini-image-editor"

// NewHTTPClient は User-Agent を付与する Gemini SDK 用の HTTP クライアントを作成します。
func NewHTTPClient(userAgent string, timeout time.Duration) *http.Client {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	return &http.Client{
		Transport: httpclient.NewUserAgentRoundTripper(transport, userAgent),
		Timeout:   timeout,
	}
}

// NewGenAIModel は API キーで Gemini API バックエンドのクライアントを作成し、
// そのモデル API を返します。資格情報の取得方法はこの1か所に限定するのだ。
func NewGenAIModel(ctx context.Context, apiKey string, httpClient *http.Client) (generator.GenerativeModel, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API キーが設定されていません (GEMINI_API_KEY)")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return client.Models, nil
}
