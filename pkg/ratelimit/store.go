package ratelimit

import (
	"context"
	"sync"
)

// 永続化に使う固定キー
const (
	KeyRequestsLeft   = "requestsLeft"
	KeyLimitResetTime = "limitResetTime"
)

// Store はレートリミット状態を保存するキーバリューストアのポートです。
// 値はすべて文字列で保持します（残り回数は整数、リセット時刻はエポックミリ秒）。
type Store interface {
	// Get はキーの値を返します。存在しない場合 ok は false です。
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// MemoryStore はプロセス内だけで状態を保持する Store です。
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryStore は空の MemoryStore を作成します。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}
