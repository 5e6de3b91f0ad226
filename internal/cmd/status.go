package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newStatusCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "残り生成回数とリセットまでの時間を表示する",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			limiter, closeStore, err := openLimiter(ctx, root.cfg)
			if err != nil {
				return err
			}
			defer closeStore() // nolint:errcheck

			countdown := limiter.Tick(ctx, time.Now())
			st := limiter.State()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "残り回数: %d/%d\n", st.Remaining, st.Limit)
			if countdown != "" {
				fmt.Fprintf(out, "リセットまで: %s (%s)\n", countdown, st.ResetAt.Local().Format(time.DateTime))
			}
			return nil
		},
	}
}
