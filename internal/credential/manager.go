package credential

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"ProfitSentinel/internal/model"
)

// ErrUnauthorized is returned by pipeline calls that got HTTP 401.
var ErrUnauthorized = errors.New("unauthorized")

// Config describes the OAuth2 client.
type Config struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	RealmID      string
	// Timeout bounds each refresh call.
	Timeout time.Duration
	// ExpirySkew refreshes this long before the access token expires.
	ExpirySkew time.Duration
	HTTPClient *http.Client
}

// Manager owns the rotating credential. All refreshes are serialized.
type Manager struct {
	mu    sync.Mutex
	cred  *model.Credential
	dirty bool // in-memory credential not yet persisted
	store Store
	oauth *oauth2.Config
	cfg   Config
	log   *logrus.Logger
	now   func() time.Time
}

// NewManager loads the stored credential, falling back to seed when the
// store is empty. A seed used this way is persisted immediately.
func NewManager(ctx context.Context, cfg Config, store Store, seed *model.Credential, log *logrus.Logger) (*Manager, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	cred, err := store.Load(ctx)
	if err != nil {
		return nil, err
	}
	m := &Manager{
		store: store,
		cfg:   cfg,
		log:   log,
		now:   time.Now,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
	}

	if cred == nil || cred.RefreshToken == "" {
		if seed == nil || seed.RefreshToken == "" {
			return nil, model.NewError(model.CodeAuth, "no stored credential and no refresh token configured", nil)
		}
		c := *seed
		c.RealmID = cfg.RealmID
		c.UpdatedAt = m.now()
		if err := store.Save(ctx, &c); err != nil {
			return nil, fmt.Errorf("persist initial credential: %w", err)
		}
		cred = &c
		log.Info("credential store initialized from configuration")
	}
	m.cred = cred
	return m, nil
}

// Credential returns a copy of the current credential.
func (m *Manager) Credential() model.Credential {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.cred
}

// Token returns a valid access token, refreshing if it is absent or expired.
func (m *Manager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.flushLocked(ctx)
	if m.cred.Valid(m.now(), m.cfg.ExpirySkew) {
		return m.cred.AccessToken, nil
	}
	if err := m.refreshLocked(ctx); err != nil {
		return "", err
	}
	return m.cred.AccessToken, nil
}

// ForceRefresh refreshes unless a concurrent caller already replaced stale.
// It returns the access token to retry with.
func (m *Manager) ForceRefresh(ctx context.Context, stale string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if stale != "" && m.cred.AccessToken != stale && m.cred.Valid(m.now(), 0) {
		return m.cred.AccessToken, nil
	}
	if err := m.refreshLocked(ctx); err != nil {
		return "", err
	}
	return m.cred.AccessToken, nil
}

// Do runs call with a valid token. A call failing with ErrUnauthorized is
// retried exactly once after a forced refresh; a second 401 is an AuthError.
func (m *Manager) Do(ctx context.Context, call func(ctx context.Context, token string) error) error {
	token, err := m.Token(ctx)
	if err != nil {
		return err
	}
	err = call(ctx, token)
	if !errors.Is(err, ErrUnauthorized) {
		return err
	}

	m.log.Warn("request unauthorized, forcing token refresh")
	token, err = m.ForceRefresh(ctx, token)
	if err != nil {
		return err
	}
	err = call(ctx, token)
	if errors.Is(err, ErrUnauthorized) {
		return model.NewError(model.CodeAuth, "request unauthorized after token refresh", err)
	}
	return err
}

// refreshLocked exchanges the refresh token. On failure the current
// credential is left exactly as it was.
func (m *Manager) refreshLocked(ctx context.Context) error {
	rctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()
	rctx = context.WithValue(rctx, oauth2.HTTPClient, m.cfg.HTTPClient)

	old := m.cred.RefreshToken
	tok, err := m.oauth.TokenSource(rctx, &oauth2.Token{RefreshToken: old}).Token()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(rctx.Err(), context.DeadlineExceeded) {
			return model.NewError(model.CodeTimeout, "token refresh timed out", err)
		}
		var rErr *oauth2.RetrieveError
		if errors.As(err, &rErr) && rErr.Response != nil {
			m.log.WithField("status", rErr.Response.StatusCode).Error("token refresh rejected")
		}
		return model.NewError(model.CodeAuth, "token refresh failed", err)
	}

	next := &model.Credential{
		RealmID:      m.cred.RealmID,
		AccessToken:  tok.AccessToken,
		RefreshToken: old,
		Expiry:       tok.Expiry,
		UpdatedAt:    m.now(),
	}
	if tok.RefreshToken != "" {
		next.RefreshToken = tok.RefreshToken
	}
	rotated := next.RefreshToken != old

	// The provider has already invalidated the old refresh token if it
	// rotated, so the new credential is adopted even when saving fails.
	m.cred = next
	m.dirty = true
	m.flushLocked(ctx)

	m.log.WithFields(logrus.Fields{
		"realm":   next.RealmID,
		"rotated": rotated,
		"expiry":  next.Expiry.Format(time.RFC3339),
	}).Info("access token refreshed")
	return nil
}

func (m *Manager) flushLocked(ctx context.Context) {
	if !m.dirty {
		return
	}
	if err := m.store.Save(ctx, m.cred); err != nil {
		m.log.WithError(err).Error("failed to persist credential, will retry")
		return
	}
	m.dirty = false
}
