package credential

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ProfitSentinel/internal/model"
)

// SQLiteStore keeps one credential row per realm.
type SQLiteStore struct {
	db    *sql.DB
	realm string
}

// NewSQLiteStore creates the credentials table if needed.
func NewSQLiteStore(db *sql.DB, realm string) (*SQLiteStore, error) {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS credentials (
		realm_id      TEXT PRIMARY KEY,
		access_token  TEXT NOT NULL,
		refresh_token TEXT NOT NULL,
		expiry        INTEGER,
		updated_at    INTEGER NOT NULL
	)`)
	if err != nil {
		return nil, fmt.Errorf("migrate credentials: %w", err)
	}
	return &SQLiteStore{db: db, realm: realm}, nil
}

func (s *SQLiteStore) Load(ctx context.Context) (*model.Credential, error) {
	var (
		cred            model.Credential
		expiry, updated int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT realm_id, access_token, refresh_token, expiry, updated_at FROM credentials WHERE realm_id = ?`,
		s.realm,
	).Scan(&cred.RealmID, &cred.AccessToken, &cred.RefreshToken, &expiry, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load credential: %w", err)
	}
	if expiry > 0 {
		cred.Expiry = time.Unix(expiry, 0)
	}
	cred.UpdatedAt = time.Unix(updated, 0)
	return &cred, nil
}

func (s *SQLiteStore) Save(ctx context.Context, cred *model.Credential) error {
	var expiry int64
	if !cred.Expiry.IsZero() {
		expiry = cred.Expiry.Unix()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO credentials
		(realm_id, access_token, refresh_token, expiry, updated_at)
		VALUES (?,?,?,?,?)
		ON CONFLICT(realm_id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expiry = excluded.expiry,
			updated_at = excluded.updated_at`,
		s.realm, cred.AccessToken, cred.RefreshToken, expiry, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}
