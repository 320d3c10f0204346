package twofa

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// FileCredentialRepository implements CredentialRepository using file-based storage.
// Suitable for single-process deployments and development.
type FileCredentialRepository struct {
	dataDir string
	creds   map[uuid.UUID]TwoFactorCredential // keyed by user ID
	mutex   sync.RWMutex                      // guards creds and the data file

	locksMu sync.Mutex
	locks   map[uuid.UUID]*sync.Mutex // per-user transaction locks
}

// NewFileCredentialRepository creates a new file-based credential repository
func NewFileCredentialRepository(dataDir string) (*FileCredentialRepository, error) {
	// Create data directory if it doesn't exist
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	repo := &FileCredentialRepository{
		dataDir: dataDir,
		creds:   make(map[uuid.UUID]TwoFactorCredential),
		locks:   make(map[uuid.UUID]*sync.Mutex),
	}

	// Load existing data
	if err := repo.load(); err != nil {
		return nil, fmt.Errorf("failed to load data: %w", err)
	}

	return repo, nil
}

// GetCredential retrieves the credential for a user
func (r *FileCredentialRepository) GetCredential(ctx context.Context, userID uuid.UUID) (TwoFactorCredential, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	cred, exists := r.creds[userID]
	if !exists {
		return TwoFactorCredential{}, ErrCredentialNotFound
	}
	return cloneCredential(cred), nil
}

// WithCredentialTx serializes transactions per user. Other users are not blocked
// while fn runs; the store-wide lock is only held to apply and persist the result.
func (r *FileCredentialRepository) WithCredentialTx(ctx context.Context, userID uuid.UUID, fn func(tx CredentialTx) error) error {
	lock := r.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	r.mutex.RLock()
	cred, exists := r.creds[userID]
	r.mutex.RUnlock()

	tx := newStagedTx(cloneCredential(cred), exists)
	if err := fn(tx); err != nil {
		return err
	}
	if !tx.dirty {
		return nil
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if tx.exists {
		r.creds[userID] = tx.current
	} else {
		delete(r.creds, userID)
	}

	if err := r.save(); err != nil {
		// Rollback
		if exists {
			r.creds[userID] = cred
		} else {
			delete(r.creds, userID)
		}
		return fmt.Errorf("failed to save: %w", err)
	}
	return nil
}

// Count returns the number of stored credentials
func (r *FileCredentialRepository) Count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.creds)
}

func (r *FileCredentialRepository) userLock(userID uuid.UUID) *sync.Mutex {
	r.locksMu.Lock()
	defer r.locksMu.Unlock()

	lock, ok := r.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[userID] = lock
	}
	return lock
}

// load reads credential data from file
func (r *FileCredentialRepository) load() error {
	filePath := filepath.Join(r.dataDir, "twofa.json")

	// If file doesn't exist, start with empty map
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	// If file is empty, start with empty map
	if len(data) == 0 {
		return nil
	}

	var creds []TwoFactorCredential
	if err := json.Unmarshal(data, &creds); err != nil {
		return fmt.Errorf("failed to unmarshal data: %w", err)
	}

	r.creds = make(map[uuid.UUID]TwoFactorCredential, len(creds))
	for _, cred := range creds {
		r.creds[cred.UserID] = cred
	}

	return nil
}

// save writes credential data to file atomically. Caller holds r.mutex.
func (r *FileCredentialRepository) save() error {
	creds := make([]TwoFactorCredential, 0, len(r.creds))
	for _, cred := range r.creds {
		creds = append(creds, cred)
	}

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	// Write to temp file first; the file holds TOTP secrets so keep it private
	tempFile := filepath.Join(r.dataDir, "twofa.json.tmp")
	if err := os.WriteFile(tempFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	// Atomic rename
	finalFile := filepath.Join(r.dataDir, "twofa.json")
	if err := os.Rename(tempFile, finalFile); err != nil {
		return fmt.Errorf("failed to rename file: %w", err)
	}

	return nil
}
