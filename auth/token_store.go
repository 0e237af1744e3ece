package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"
)

// TokenHash holds an argon2id digest together with the parameters it was
// produced with, so verification keeps working across parameter changes.
type TokenHash struct {
	Hash    []byte `json:"hash"`
	Salt    []byte `json:"salt"`
	Method  string `json:"method"` // "argon2id"
	Time    uint32 `json:"time"`
	Memory  uint32 `json:"memory"` // KiB
	Threads uint8  `json:"threads"`
	KeyLen  uint32 `json:"keylen"`
}

// TokenRecord is one issued API token. Only the hash of the secret half is
// stored; the full token is shown once at issue time.
type TokenRecord struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenantId"`
	Name      string    `json:"name"`
	Hash      TokenHash `json:"hash"`
	CreatedAt time.Time `json:"createdAt"`
}

// TokenStore manages issued API tokens, persisted as a JSON file.
type TokenStore struct {
	filePath string
	tokens   []TokenRecord
	mu       sync.RWMutex
	dirty    bool
}

const tokenPrefix = "ft_"

func defaultHashParams() TokenHash {
	return TokenHash{
		Method:  "argon2id",
		Time:    1,
		Memory:  64 * 1024,
		Threads: 4,
		KeyLen:  32,
	}
}

// NewTokenStore opens the token store at filePath, loading any existing
// tokens.
func NewTokenStore(filePath string) (*TokenStore, error) {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	store := &TokenStore{
		filePath: filePath,
		tokens:   []TokenRecord{},
	}

	if _, err := os.Stat(filePath); err == nil {
		if err := store.load(); err != nil {
			return nil, fmt.Errorf("failed to load token store: %w", err)
		}
	}

	return store, nil
}

func (s *TokenStore) load() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := json.Unmarshal(data, &s.tokens); err != nil {
		return fmt.Errorf("failed to unmarshal tokens: %w", err)
	}
	return nil
}

// Save persists the token store to disk with an atomic rename.
func (s *TokenStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		return nil
	}

	data, err := json.Marshal(s.tokens)
	if err != nil {
		return fmt.Errorf("failed to marshal tokens: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(s.filePath), "tokens-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tempFilePath := tempFile.Name()

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		os.Remove(tempFilePath)
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		os.Remove(tempFilePath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tempFilePath, 0600); err != nil {
		os.Remove(tempFilePath)
		return fmt.Errorf("failed to set file permissions: %w", err)
	}
	if err := os.Rename(tempFilePath, s.filePath); err != nil {
		os.Remove(tempFilePath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	s.dirty = false
	return nil
}

// Issue creates a new API token bound to a tenant and returns the full
// token string. The secret half is hashed before storage and cannot be
// recovered later.
func (s *TokenStore) Issue(tenantID, name string) (string, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return "", fmt.Errorf("failed to generate token secret: %w", err)
	}
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	id := uuid.New().String()[:8]
	secretStr := base64.RawURLEncoding.EncodeToString(secret)

	hash := defaultHashParams()
	hash.Salt = salt
	hash.Hash = argon2.IDKey([]byte(secretStr), salt, hash.Time, hash.Memory, hash.Threads, hash.KeyLen)

	record := TokenRecord{
		ID:        id,
		TenantID:  tenantID,
		Name:      name,
		Hash:      hash,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.tokens = append(s.tokens, record)
	s.dirty = true
	s.mu.Unlock()

	if err := s.Save(); err != nil {
		return "", err
	}

	return fmt.Sprintf("%s%s.%s", tokenPrefix, id, secretStr), nil
}

// Verify checks a presented token and returns its record when valid.
func (s *TokenStore) Verify(token string) (*TokenRecord, bool) {
	if !strings.HasPrefix(token, tokenPrefix) {
		return nil, false
	}
	parts := strings.SplitN(strings.TrimPrefix(token, tokenPrefix), ".", 2)
	if len(parts) != 2 {
		return nil, false
	}
	id, secret := parts[0], parts[1]

	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.tokens {
		record := &s.tokens[i]
		if record.ID != id {
			continue
		}
		hash := argon2.IDKey(
			[]byte(secret),
			record.Hash.Salt,
			record.Hash.Time,
			record.Hash.Memory,
			record.Hash.Threads,
			record.Hash.KeyLen,
		)
		if subtle.ConstantTimeCompare(hash, record.Hash.Hash) == 1 {
			return record, true
		}
		return nil, false
	}

	return nil, false
}

// Revoke removes a token by id. It reports whether a token was removed.
func (s *TokenStore) Revoke(id string) (bool, error) {
	s.mu.Lock()
	kept := s.tokens[:0]
	removed := false
	for _, record := range s.tokens {
		if record.ID == id {
			removed = true
			continue
		}
		kept = append(kept, record)
	}
	s.tokens = kept
	if removed {
		s.dirty = true
	}
	s.mu.Unlock()

	if !removed {
		return false, nil
	}
	return true, s.Save()
}
