package credential

import (
	"context"
	"sync"

	"ProfitSentinel/internal/model"
)

//go:generate mockgen -source=store.go -destination=store_mock.go -package=credential

// Store persists the credential between runs. Load returns nil, nil when
// nothing has been stored yet.
type Store interface {
	Load(ctx context.Context) (*model.Credential, error)
	Save(ctx context.Context, cred *model.Credential) error
}

// MemoryStore keeps the credential in process memory only.
type MemoryStore struct {
	mu   sync.Mutex
	cred *model.Credential
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Load(_ context.Context) (*model.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cred == nil {
		return nil, nil
	}
	c := *s.cred
	return &c, nil
}

func (s *MemoryStore) Save(_ context.Context, cred *model.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *cred
	s.cred = &c
	return nil
}

// StaticToken serves a fixed access token with no refresh. It is used for
// offline runs against a saved report.
type StaticToken string

func (s StaticToken) Token(context.Context) (string, error) { return string(s), nil }

func (s StaticToken) Do(ctx context.Context, call func(ctx context.Context, token string) error) error {
	return call(ctx, string(s))
}
