package cmd

import (
	"context"
	"fmt"

	"github.com/shouni/go-remote-io/pkg/gcsfactory"
	"github.com/shouni/go-remote-io/pkg/remoteio"
	"github.com/shouni/go-remote-io/pkg/s3factory"
)

// openRemoteIO は入出力パスのスキームに応じて reader と writer を用意します。
// gs:// または s3:// が含まれる場合だけクラウドのクライアントを初期化します。
func openRemoteIO(ctx context.Context, uris ...string) (remoteio.InputReader, remoteio.OutputWriter, func() error, error) {
	var useGCS, useS3 bool
	for _, u := range uris {
		useGCS = useGCS || remoteio.IsGCSURI(u)
		useS3 = useS3 || remoteio.IsS3URI(u)
	}

	var (
		factory remoteio.IOFactory
		err     error
	)
	switch {
	case useGCS && useS3:
		return nil, nil, nil, fmt.Errorf("gs:// と s3:// を同時に指定することはできません")
	case useGCS:
		factory, err = gcsfactory.New(ctx)
	case useS3:
		factory, err = s3factory.New(ctx)
	default:
		noop := func() error { return nil }
		return remoteio.NewUniversalInputReader(nil, nil), remoteio.NewUniversalIOWriter(nil, nil), noop, nil
	}
	if err != nil {
		return nil, nil, nil, err
	}

	reader, err := factory.InputReader()
	if err != nil {
		_ = factory.Close()
		return nil, nil, nil, err
	}
	writer, err := factory.OutputWriter()
	if err != nil {
		_ = factory.Close()
		return nil, nil, nil, err
	}
	return reader, writer, factory.Close, nil
}
