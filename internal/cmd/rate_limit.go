package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRateLimitCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rate-limit",
		Short: "保存されたレートリミット状態を管理する",
	}
	cmd.AddCommand(newRateLimitResetCmd(root))
	return cmd
}

func newRateLimitResetCmd(root *rootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "残り回数を上限に戻し、保存された状態を削除する",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("reset requires --yes")
			}
			ctx := cmd.Context()
			limiter, closeStore, err := openLimiter(ctx, root.cfg)
			if err != nil {
				return err
			}
			defer closeStore() // nolint:errcheck

			if err := limiter.Reset(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "リセットしました: 残り回数 %d/%d\n", limiter.State().Remaining, limiter.Config().MaxRequests)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "確認なしでリセットする")
	return cmd
}
