package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/shouni/gemini-image-editor/pkg/adapters"
	"github.com/shouni/gemini-image-editor/pkg/workflow"
)

// Options はサーバーの挙動を調整します。
type Options struct {
	// MaxUploadBytes は multipart アップロード1回あたりの上限です。
	MaxUploadBytes int64
}

// Server はワークフローを HTTP API として公開します。
// 単一ユーザー向けのローカルサーバーで、ステージ中の画像はプロセス内で共有されます。
type Server struct {
	ctrl    *workflow.Controller
	loader  *adapters.ImageLoader
	metrics *Metrics
	opts    Options
	router  chi.Router
}

// New は依存関係を注入して Server を作成します。
func New(ctrl *workflow.Controller, loader *adapters.ImageLoader, metrics *Metrics, opts Options) (*Server, error) {
	if ctrl == nil {
		return nil, fmt.Errorf("controller is required")
	}
	if loader == nil {
		return nil, fmt.Errorf("loader is required")
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 64 << 20
	}

	s := &Server{
		ctrl:    ctrl,
		loader:  loader,
		metrics: metrics,
		opts:    opts,
		router:  chi.NewRouter(),
	}
	s.routes()
	return s, nil
}

// Handler はルーティング済みの http.Handler を返します。
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(requestLogger)

	s.router.Get("/healthz", s.handleHealth)
	s.router.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/images", s.handleListImages)
		r.Post("/images", s.handleAddImages)
		r.Delete("/images", s.handleClearImages)
		r.Delete("/images/{index}", s.handleRemoveImage)
		r.Post("/generate", s.handleGenerate)
	})
}

// Run は addr で待ち受け、ctx がキャンセルされたら shutdownTimeout 以内に停止します。
func (s *Server) Run(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.InfoContext(ctx, "HTTPサーバーを起動します", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("HTTPサーバーを停止します")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return <-errCh
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		slog.DebugContext(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"elapsed", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
