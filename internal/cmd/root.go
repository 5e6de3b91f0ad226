// Package cmd は gemini-image-editor の CLI コマンドを定義します。
package cmd

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/shouni/gemini-image-editor/internal/config"
)

// rootOptions はすべてのサブコマンドで共有するフラグと読み込み済みの設定です。
type rootOptions struct {
	cfgFile   string
	verbose   bool
	logFormat string

	cfg *config.Config
}

// NewRootCmd はサブコマンドを登録したルートコマンドを作成します。
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "gemini-image-editor",
		Short:         "Gemini で画像を生成・編集する CLI / ローカルサーバー",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			if f := cmd.Flags().Lookup("log-format"); f != nil && f.Changed {
				v.Set("log.format", opts.logFormat)
			}
			cfg, err := config.Load(v, opts.cfgFile)
			if err != nil {
				return err
			}
			if opts.verbose {
				cfg.Log.Level = "debug"
			}
			opts.cfg = cfg
			slog.SetDefault(newLogger(cmd.ErrOrStderr(), cfg.Log))
			return nil
		},
	}

	root.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "設定ファイル (YAML)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "デバッグログを出力する")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "ログ形式 (text, json)")

	root.AddCommand(
		newGenerateCmd(opts),
		newServeCmd(opts),
		newStatusCmd(opts),
		newRateLimitCmd(opts),
	)
	return root
}

// Execute はルートコマンドを実行します。main から呼ばれます。
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	handlerOpts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
