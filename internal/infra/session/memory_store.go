package session

import (
	"context"
	"sync"
	"time"

	repo "storefront/internal/repository"
)

type memoryEntry struct {
	session   repo.CheckoutSession
	expiresAt time.Time
}

// REDIS_ADDRが無いとき（ローカル開発・テスト）用
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// 保存のたびに期限切れを掃除する（放置されたチェックアウトを溜めない）
func (s *MemoryStore) Save(_ context.Context, cs repo.CheckoutSession, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweepLocked(now)
	s.entries[cs.Token] = memoryEntry{session: cs, expiresAt: now.Add(ttl)}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, token string) (repo.CheckoutSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[token]
	if !ok {
		return repo.CheckoutSession{}, repo.ErrSessionNotFound
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.entries, token)
		return repo.CheckoutSession{}, repo.ErrSessionNotFound
	}
	return e.session, nil
}

func (s *MemoryStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, token)
	return nil
}

// Sweep は期限切れのセッションを消して、消した件数を返す
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sweepLocked(s.now())
}

// Run はdoneが閉じるまで定期的にSweepする
func (s *MemoryStore) Run(done <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.entries)
}

func (s *MemoryStore) sweepLocked(now time.Time) int {
	removed := 0
	for token, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, token)
			removed++
		}
	}
	return removed
}
