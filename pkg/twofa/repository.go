package twofa

import (
	"context"

	"github.com/google/uuid"
)

// CredentialRepository persists one TwoFactorCredential per user.
type CredentialRepository interface {
	// GetCredential returns ErrCredentialNotFound when the user has none.
	GetCredential(ctx context.Context, userID uuid.UUID) (TwoFactorCredential, error)

	// WithCredentialTx runs fn as a read-modify-write transaction on the user's
	// credential. Concurrent transactions for the same user are serialized.
	// Changes staged through tx are written only if fn returns nil.
	WithCredentialTx(ctx context.Context, userID uuid.UUID, fn func(tx CredentialTx) error) error
}

// CredentialTx stages changes to a single user's credential.
type CredentialTx interface {
	Get() (TwoFactorCredential, bool)
	Put(cred TwoFactorCredential)
	Delete()
}

// stagedTx is the CredentialTx shared by the repository implementations.
type stagedTx struct {
	current TwoFactorCredential
	exists  bool
	dirty   bool
}

func newStagedTx(cred TwoFactorCredential, exists bool) *stagedTx {
	return &stagedTx{current: cred, exists: exists}
}

func (tx *stagedTx) Get() (TwoFactorCredential, bool) {
	if !tx.exists {
		return TwoFactorCredential{}, false
	}
	return cloneCredential(tx.current), true
}

func (tx *stagedTx) Put(cred TwoFactorCredential) {
	tx.current = cloneCredential(cred)
	tx.exists = true
	tx.dirty = true
}

func (tx *stagedTx) Delete() {
	tx.current = TwoFactorCredential{}
	tx.exists = false
	tx.dirty = true
}

func cloneCredential(cred TwoFactorCredential) TwoFactorCredential {
	out := cred
	if cred.BackupCodes != nil {
		out.BackupCodes = append([]string(nil), cred.BackupCodes...)
	}
	if cred.EnabledAt != nil {
		t := *cred.EnabledAt
		out.EnabledAt = &t
	}
	if cred.LastUsedAt != nil {
		t := *cred.LastUsedAt
		out.LastUsedAt = &t
	}
	return out
}
