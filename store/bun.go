package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uptrace/bun"
)

// BunStore implements the credential store on top of a bun database handle.
type BunStore struct {
	db *bun.DB
}

// NewBunStore wraps db. The schema must already be migrated.
func NewBunStore(db *bun.DB) *BunStore {
	return &BunStore{db: db}
}

// DB exposes the underlying handle for migrations and health checks.
func (s *BunStore) DB() *bun.DB {
	return s.db
}

func (s *BunStore) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	user := new(User)
	err := s.db.NewSelect().Model(user).Where("u.email = ?", email).Limit(1).Scan(ctx)
	if err != nil {
		return nil, mapReadError("find user by email", err)
	}
	return user, nil
}

func (s *BunStore) FindUserByID(ctx context.Context, id string) (*User, error) {
	user := new(User)
	err := s.db.NewSelect().Model(user).Where("u.id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		return nil, mapReadError("find user by id", err)
	}
	return user, nil
}

func (s *BunStore) FindAccount(ctx context.Context, userID, providerID string) (*Account, error) {
	account := new(Account)
	err := s.db.NewSelect().
		Model(account).
		Where("a.user_id = ?", userID).
		Where("a.provider_id = ?", providerID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, mapReadError("find account", err)
	}
	return account, nil
}

// CreateUserWithAccount inserts user and account in one transaction. A
// unique violation on either insert yields ErrDuplicate and nothing is kept.
func (s *BunStore) CreateUserWithAccount(ctx context.Context, user *User, account *Account) error {
	return s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(user).Exec(ctx); err != nil {
			return mapWriteError("insert user", err)
		}
		if _, err := tx.NewInsert().Model(account).Exec(ctx); err != nil {
			return mapWriteError("insert account", err)
		}
		return nil
	})
}

func (s *BunStore) CreateSession(ctx context.Context, session *Session) error {
	if _, err := s.db.NewInsert().Model(session).Exec(ctx); err != nil {
		return mapWriteError("insert session", err)
	}
	return nil
}

func (s *BunStore) FindSessionByToken(ctx context.Context, token string) (*Session, error) {
	session := new(Session)
	err := s.db.NewSelect().Model(session).Where("s.token = ?", token).Limit(1).Scan(ctx)
	if err != nil {
		return nil, mapReadError("find session by token", err)
	}
	return session, nil
}

// DeleteSession removes the session matching both token and userID.
// Deleting a missing session is not an error.
func (s *BunStore) DeleteSession(ctx context.Context, token, userID string) error {
	_, err := s.db.NewDelete().
		Model((*Session)(nil)).
		Where("token = ?", token).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteUserSessions removes every session of userID and reports how many
// rows were deleted.
func (s *BunStore) DeleteUserSessions(ctx context.Context, userID string) (int64, error) {
	res, err := s.db.NewDelete().
		Model((*Session)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("delete user sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// CountUserSessions is used by maintenance tooling and tests.
func (s *BunStore) CountUserSessions(ctx context.Context, userID string) (int, error) {
	n, err := s.db.NewSelect().Model((*Session)(nil)).Where("s.user_id = ?", userID).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count user sessions: %w", err)
	}
	return n, nil
}

// CountAccounts is used by maintenance tooling and tests.
func (s *BunStore) CountAccounts(ctx context.Context, userID string) (int, error) {
	n, err := s.db.NewSelect().Model((*Account)(nil)).Where("a.user_id = ?", userID).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}
	return n, nil
}
