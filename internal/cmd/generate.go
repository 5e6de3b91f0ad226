package cmd

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shouni/gemini-image-editor/pkg/domain"
)

type generateOptions struct {
	prompt  string
	images  []string
	outPath string
	dataURI bool
}

func newGenerateCmd(root *rootOptions) *cobra.Command {
	opts := &generateOptions{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "参照画像とプロンプトから画像を1枚生成する",
		Long: `最大3枚の参照画像（ファイル、gs:// / s3:// URI、または http(s) URL）とプロンプトを送信し、
生成された画像を保存します。成功した生成だけがレートリミットを消費します。`,
		Example: `  gemini-image-editor generate -p "背景を夜空にして" -i photo.png -o out.png`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, root, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.prompt, "prompt", "p", "", "生成したい画像の説明")
	cmd.Flags().StringSliceVarP(&opts.images, "image", "i", nil, fmt.Sprintf("参照画像のパス、gs:// / s3:// URI、または URL (最大%d枚)", domain.MaxImages))
	cmd.Flags().StringVarP(&opts.outPath, "out", "o", "", "出力先のパスまたは gs:// / s3:// URI (省略時は generated.<拡張子>)")
	cmd.Flags().BoolVar(&opts.dataURI, "data-uri", false, "ファイルに保存せずデータ URI を標準出力に書く")
	return cmd
}

func runGenerate(cmd *cobra.Command, root *rootOptions, opts *generateOptions) error {
	ctx := cmd.Context()
	cfg := root.cfg

	if len(opts.images) > domain.MaxImages {
		return &domain.ValidationError{
			Code:    domain.CodeTooManyFiles,
			Message: fmt.Sprintf("アップロードできる画像は最大%d枚です", domain.MaxImages),
		}
	}

	limiter, closeStore, err := openLimiter(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore() // nolint:errcheck

	reader, writer, closeIO, err := openRemoteIO(ctx, append([]string{opts.outPath}, opts.images...)...)
	if err != nil {
		return err
	}
	defer closeIO() // nolint:errcheck

	ctrl, loader, err := buildWorkflow(ctx, cfg, limiter, reader)
	if err != nil {
		return err
	}

	// 参照画像を取得する前に上限とプロンプトを確認する
	if err := ctrl.CheckReady(ctx, opts.prompt); err != nil {
		return err
	}
	for _, src := range opts.images {
		img, err := loader.Load(ctx, src)
		if err != nil {
			return err
		}
		if err := ctrl.AddImages(img); err != nil {
			return err
		}
	}

	result, err := ctrl.Generate(ctx, opts.prompt)
	if err != nil {
		return err
	}

	if opts.dataURI {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), result.DataURI())
		return err
	}

	outPath := opts.outPath
	if outPath == "" {
		outPath = "generated" + extensionFor(result.MimeType)
	}
	if err := writer.Write(ctx, outPath, bytes.NewReader(result.Data), result.MimeType); err != nil {
		return fmt.Errorf("画像の保存に失敗しました: %w", err)
	}

	st := ctrl.Status(ctx)
	fmt.Fprintf(cmd.OutOrStdout(), "保存しました: %s (残り %d/%d 回)\n", outPath, st.Remaining, st.Limit)
	return nil
}

func extensionFor(mimeType string) string {
	switch strings.ToLower(mimeType) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".png"
	}
}
