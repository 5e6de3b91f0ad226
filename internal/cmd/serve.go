package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/shouni/gemini-image-editor/internal/server"
	"github.com/shouni/gemini-image-editor/pkg/ratelimit"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "ローカル HTTP サーバーを起動する",
		Long: `画像のアップロード、生成、残り回数の確認を行う HTTP API を起動します。
Ctrl+C (SIGINT) または SIGTERM で停止します。`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := root.cfg
			if addr != "" {
				cfg.Server.Addr = addr
			}

			limiter, closeStore, err := openLimiter(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStore() // nolint:errcheck

			ctrl, loader, err := buildWorkflow(ctx, cfg, limiter, nil)
			if err != nil {
				return err
			}

			metrics := server.NewMetrics(func() float64 {
				return float64(limiter.State().Remaining)
			})
			srv, err := server.New(ctrl, loader, metrics, server.Options{MaxUploadBytes: cfg.Server.MaxUploadBytes})
			if err != nil {
				return err
			}

			// 上限到達中はカウントダウンを進め、窓が終わったら残り回数を戻す
			go func() {
				var last string
				limiter.Watch(ctx, ratelimit.DefaultTickEvery, func(countdown string) {
					if countdown == "" && last != "" {
						slog.InfoContext(ctx, "生成上限がリセットされました", "remaining", limiter.State().Remaining)
					}
					last = countdown
				})
			}()

			return srv.Run(ctx, cfg.Server.Addr, cfg.Server.ShutdownTimeout)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "待ち受けアドレス (既定は server.addr)")
	return cmd
}
