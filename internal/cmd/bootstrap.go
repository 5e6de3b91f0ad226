package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/shouni/go-remote-io/pkg/remoteio"

	"github.com/shouni/gemini-image-editor/internal/config"
	"github.com/shouni/gemini-image-editor/pkg/adapters"
	"github.com/shouni/gemini-image-editor/pkg/generator"
	"github.com/shouni/gemini-image-editor/pkg/ratelimit"
	"github.com/shouni/gemini-image-editor/pkg/workflow"
)

// openStore は設定に応じたレートリミット状態のストアを開きます。
// 返されるクローズ関数は必ず呼び出してください。
func openStore(ctx context.Context, cfg *config.Config) (ratelimit.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Store.Type {
	case config.StoreMemory:
		return ratelimit.NewMemoryStore(), noop, nil
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis %s: %w", cfg.Store.Redis.Addr, err)
		}
		store, err := ratelimit.NewRedisStore(client, cfg.Store.Redis.KeyPrefix)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return store, client.Close, nil
	default:
		store, err := ratelimit.NewFileStore(cfg.Store.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, noop, nil
	}
}

// openLimiter はストアを開いて保存済みの状態からレートリミッターを復元します。
func openLimiter(ctx context.Context, cfg *config.Config) (*ratelimit.Limiter, func() error, error) {
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	limiter, err := ratelimit.New(ctx, ratelimit.Config{
		MaxRequests: cfg.RateLimit.MaxRequests,
		Window:      cfg.RateLimit.Window,
	}, store)
	if err != nil {
		_ = closeStore()
		return nil, nil, err
	}
	slog.DebugContext(ctx, "レートリミッターを初期化しました",
		"store", cfg.Store.Type,
		"remaining", limiter.State().Remaining,
		"limit", cfg.RateLimit.MaxRequests)
	return limiter, closeStore, nil
}

// buildWorkflow は生成クライアントを構築し、limiter と組み合わせた Controller と
// 入力画像のローダーを返します。reader が nil の場合はローカルファイルだけを読みます。
func buildWorkflow(ctx context.Context, cfg *config.Config, limiter *ratelimit.Limiter, reader remoteio.InputReader) (*workflow.Controller, *adapters.ImageLoader, error) {
	httpClient := adapters.NewHTTPClient(cfg.UserAgent, cfg.Timeout)

	model, err := adapters.NewGenAIModel(ctx, cfg.APIKey, httpClient)
	if err != nil {
		return nil, nil, err
	}
	gen, err := generator.NewGeminiGenerator(model, cfg.Model, cfg.Timeout)
	if err != nil {
		return nil, nil, err
	}
	ctrl, err := workflow.NewController(limiter, gen)
	if err != nil {
		return nil, nil, err
	}

	loader := adapters.NewImageLoader(adapters.NewFetcher(adapters.DefaultFetchTimeout), reader, adapters.LoaderOptions{
		Compress: cfg.Compress,
	})
	return ctrl, loader, nil
}
