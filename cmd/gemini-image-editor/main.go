package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shouni/gemini-image-editor/internal/cmd"
	"github.com/shouni/gemini-image-editor/pkg/domain"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		// 入力エラーは 2、それ以外は 1 で終了する
		var vErr *domain.ValidationError
		if errors.As(err, &vErr) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
