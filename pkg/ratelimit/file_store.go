package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// FileStore は YAML ファイルにキーと値を保存する Store です。
// ブラウザの localStorage に相当するローカル永続化なのだ。
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore は path を保存先とする FileStore を作成します。
// ファイルは最初の書き込み時に作成されます。
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}
	return &FileStore{path: path}, nil
}

// Path は保存先のファイルパスを返します。
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.read()
	if err != nil {
		return "", false, err
	}
	v, ok := data[key]
	return v, ok, nil
}

func (s *FileStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.read()
	if err != nil {
		// 壊れたファイルは上書きして復旧する
		data = make(map[string]string)
	}
	data[key] = value
	return s.write(data)
}

func (s *FileStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.read()
	if err != nil {
		data = make(map[string]string)
	}
	if _, ok := data[key]; !ok && err == nil {
		return nil
	}
	delete(data, key)
	return s.write(data)
}

func (s *FileStore) read() (map[string]string, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("状態ファイルの読み込みに失敗しました: %w", err)
	}

	data := make(map[string]string)
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("状態ファイルの解析に失敗しました: %w", err)
	}
	return data, nil
}

func (s *FileStore) write(data map[string]string) error {
	raw, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Errorf("状態のシリアライズに失敗しました: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("状態ディレクトリの作成に失敗しました: %w", err)
	}

	// 途中で落ちても壊れないよう一時ファイル経由で置き換える
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("一時ファイルの作成に失敗しました: %w", err)
	}
	defer os.Remove(tmp.Name()) // nolint:errcheck

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close() // nolint:errcheck
		return fmt.Errorf("状態ファイルの書き込みに失敗しました: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("状態ファイルの書き込みに失敗しました: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("状態ファイルの置き換えに失敗しました: %w", err)
	}
	return nil
}
