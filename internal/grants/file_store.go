package grants

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

var _ Store = (*FileStore)(nil)

// FileStore persists grants as a single JSON document keyed by token.
// Every mutation rewrites the whole file under a process-wide lock, so two
// concurrent issuances cannot clobber each other's read-modify-write cycle.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore initialises a file-backed grant store at path, creating the
// parent directory and an empty document when missing.
func NewFileStore(path string) (*FileStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("grants: store path is required")
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("grants: ensure store directory: %w", err)
		}
	}

	store := &FileStore{path: path}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := store.writeLocked(map[string]Grant{}); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("grants: stat store file: %w", err)
	}

	return store, nil
}

// Put durably records a new grant under token.
func (s *FileStore) Put(ctx context.Context, token string, grant Grant) error {
	if err := validToken(token); err != nil {
		return err
	}
	if err := ctxErr(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.readLocked()
	if err != nil {
		return err
	}

	if _, exists := records[token]; exists {
		return ErrDuplicateToken
	}

	records[token] = grant
	return s.writeLocked(records)
}

// Get returns the grant for token without consuming it.
func (s *FileStore) Get(ctx context.Context, token string) (Grant, error) {
	if err := validToken(token); err != nil {
		return Grant{}, err
	}
	if err := ctxErr(ctx); err != nil {
		return Grant{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.readLocked()
	if err != nil {
		return Grant{}, err
	}

	grant, ok := records[token]
	if !ok {
		return Grant{}, ErrGrantNotFound
	}
	return grant, nil
}

// Redeem marks the grant consumed exactly once.
func (s *FileStore) Redeem(ctx context.Context, token string) (Grant, error) {
	if err := validToken(token); err != nil {
		return Grant{}, err
	}
	if err := ctxErr(ctx); err != nil {
		return Grant{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.readLocked()
	if err != nil {
		return Grant{}, err
	}

	grant, ok := records[token]
	if !ok {
		return Grant{}, ErrGrantNotFound
	}
	if grant.RedeemedAt != nil {
		return Grant{}, ErrGrantRedeemed
	}

	now := time.Now().UTC()
	grant.RedeemedAt = &now
	records[token] = grant

	if err := s.writeLocked(records); err != nil {
		return Grant{}, err
	}
	return grant, nil
}

// List returns a copy of every issued grant keyed by token.
func (s *FileStore) List(ctx context.Context) (map[string]Grant, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.readLocked()
}

func (s *FileStore) readLocked() (map[string]Grant, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("grants: read store file: %w", err)
	}

	records := make(map[string]Grant)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("grants: decode store file: %w", err)
		}
	}
	return records, nil
}

// writeLocked writes the full document to a temporary file and renames it
// into place so readers never observe a partially written store.
func (s *FileStore) writeLocked(records map[string]Grant) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("grants: encode store file: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("grants: write store file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("grants: replace store file: %w", err)
	}
	return nil
}

func validToken(token string) error {
	if strings.TrimSpace(token) == "" {
		return errors.New("grants: token is required")
	}
	return nil
}

func ctxErr(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	return ctx.Err()
}
