package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrUserNotFound = errors.New("user not found")

// User is the subset of a user profile needed to address a notification.
type User struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email,omitempty"`
	DisplayName string    `json:"display_name,omitempty"`
}

// Label returns the display name, falling back to the email address.
func (u User) Label() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	if u.Email != "" {
		return u.Email
	}
	return u.ID.String()
}

type Resolver interface {
	ResolveUser(ctx context.Context, userID uuid.UUID) (User, error)
}

// StaticResolver serves users from memory.
type StaticResolver struct {
	mu    sync.RWMutex
	users map[uuid.UUID]User
}

func NewStaticResolver(users ...User) *StaticResolver {
	r := &StaticResolver{users: make(map[uuid.UUID]User, len(users))}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *StaticResolver) Add(user User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
}

func (r *StaticResolver) ResolveUser(ctx context.Context, userID uuid.UUID) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[userID]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

// PostgresResolver reads users from a table with id, email and name columns.
type PostgresResolver struct {
	pool  *pgxpool.Pool
	query string
}

// NewPostgresResolver creates a resolver over table. An empty table name means "users".
// Soft-deleted rows (deleted_at set) are ignored.
func NewPostgresResolver(pool *pgxpool.Pool, table string) (*PostgresResolver, error) {
	if table == "" {
		table = "users"
	}
	if !validIdentifier(table) {
		return nil, fmt.Errorf("invalid table name: %q", table)
	}
	return &PostgresResolver{
		pool:  pool,
		query: "SELECT email, name FROM " + table + " WHERE id = $1 AND deleted_at IS NULL",
	}, nil
}

func (r *PostgresResolver) ResolveUser(ctx context.Context, userID uuid.UUID) (User, error) {
	var email, name pgtype.Text
	err := r.pool.QueryRow(ctx, r.query, userID).Scan(&email, &name)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("failed to resolve user: %w", err)
	}
	return User{ID: userID, Email: email.String, DisplayName: name.String}, nil
}

func validIdentifier(s string) bool {
	for _, part := range strings.Split(s, ".") {
		if part == "" {
			return false
		}
		for i, r := range part {
			isLetter := r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
			if !isLetter && (i == 0 || r < '0' || r > '9') {
				return false
			}
		}
	}
	return true
}
