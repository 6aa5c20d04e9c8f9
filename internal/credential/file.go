package credential

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"ProfitSentinel/internal/model"
)

// FileStore keeps the credential as a JSON file.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore { return &FileStore{path: path} }

// Load reads the credential. A missing file is not an error.
func (s *FileStore) Load(_ context.Context) (*model.Credential, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read credential file: %w", err)
	}
	var cred model.Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, fmt.Errorf("decode credential file: %w", err)
	}
	return &cred, nil
}

// Save writes to a temp file and renames it over the old one, so a crash
// never leaves a truncated credential behind.
func (s *FileStore) Save(_ context.Context, cred *model.Credential) error {
	data, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create credential dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".credential-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write credential: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
