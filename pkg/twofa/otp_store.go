package twofa

import (
	"context"
	"crypto/subtle"
	"sync"
	"time"

	"github.com/google/uuid"
)

const DefaultMaxEmailOtpAttempts = 5

// EmailOtpStore holds at most one live email OTP per user.
type EmailOtpStore interface {
	// Save replaces any outstanding record for the user.
	Save(ctx context.Context, record EmailOtpRecord, ttl time.Duration) error

	// Consume atomically checks otpHash against the user's record. A match deletes
	// the record and returns true. An expired record is deleted. A mismatch counts
	// as a failed attempt and the record is dropped once maxAttempts is reached
	// (maxAttempts <= 0 disables the limit).
	Consume(ctx context.Context, userID uuid.UUID, otpHash string, now time.Time, maxAttempts int) (bool, error)

	// Delete drops any outstanding record for the user.
	Delete(ctx context.Context, userID uuid.UUID) error
}

// InMemoryEmailOtpStore keeps records in process memory. Records are not shared
// between instances, so use RedisEmailOtpStore when running more than one.
type InMemoryEmailOtpStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]EmailOtpRecord
}

func NewInMemoryEmailOtpStore() *InMemoryEmailOtpStore {
	return &InMemoryEmailOtpStore{records: make(map[uuid.UUID]EmailOtpRecord)}
}

func (s *InMemoryEmailOtpStore) Save(ctx context.Context, record EmailOtpRecord, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record.Attempts = 0
	s.records[record.UserID] = record
	return nil
}

func (s *InMemoryEmailOtpStore) Consume(ctx context.Context, userID uuid.UUID, otpHash string, now time.Time, maxAttempts int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[userID]
	if !ok {
		return false, nil
	}
	if !now.Before(record.ExpiresAt) {
		delete(s.records, userID)
		return false, nil
	}
	if subtle.ConstantTimeCompare([]byte(record.OtpHash), []byte(otpHash)) == 1 {
		delete(s.records, userID)
		return true, nil
	}

	record.Attempts++
	if maxAttempts > 0 && record.Attempts >= maxAttempts {
		delete(s.records, userID)
	} else {
		s.records[userID] = record
	}
	return false, nil
}

func (s *InMemoryEmailOtpStore) Delete(ctx context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, userID)
	return nil
}

// Len returns the number of outstanding records, expired ones included.
func (s *InMemoryEmailOtpStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
