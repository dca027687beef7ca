package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *BunStore {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)

	ctx := context.Background()
	db, err := Open(ctx, DriverSQLite, dsn, PoolConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	applied, err := Migrate(ctx, db)
	require.NoError(t, err)
	require.Equal(t, 1, applied)

	return NewBunStore(db)
}

func newUserAndAccount(email string) (*User, *Account) {
	now := time.Now().UTC()
	user := &User{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	account := &Account{
		ID:           uuid.Must(uuid.NewV7()).String(),
		UserID:       user.ID,
		AccountID:    email,
		ProviderID:   CredentialProviderID,
		PasswordHash: "$hash$",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return user, account
}

func newSession(userID, token string, ttl time.Duration) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Token:     token,
		UserID:    userID,
		ExpiresAt: now.Add(ttl),
		IPAddress: "127.0.0.1",
		UserAgent: "test",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	applied, err := Migrate(context.Background(), s.DB())
	require.NoError(t, err)
	require.Zero(t, applied)
}

func TestCreateUserWithAccountAndLookups(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user, account := newUserAndAccount("new@test.com")
	require.NoError(t, s.CreateUserWithAccount(ctx, user, account))

	byEmail, err := s.FindUserByEmail(ctx, "new@test.com")
	require.NoError(t, err)
	require.Equal(t, user.ID, byEmail.ID)
	require.False(t, byEmail.EmailVerified)

	byID, err := s.FindUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, "new@test.com", byID.Email)

	got, err := s.FindAccount(ctx, user.ID, CredentialProviderID)
	require.NoError(t, err)
	require.Equal(t, "$hash$", got.PasswordHash)

	_, err = s.FindAccount(ctx, user.ID, "github")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = s.FindUserByEmail(ctx, "missing@test.com")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreateUserWithAccountDuplicateRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, firstAccount := newUserAndAccount("dup@test.com")
	require.NoError(t, s.CreateUserWithAccount(ctx, first, firstAccount))

	second, secondAccount := newUserAndAccount("dup@test.com")
	err := s.CreateUserWithAccount(ctx, second, secondAccount)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrDuplicate), "expected ErrDuplicate, got %v", err)

	_, err = s.FindUserByID(ctx, second.ID)
	require.ErrorIs(t, err, ErrNotFound)

	n, err := s.CountAccounts(ctx, second.ID)
	require.NoError(t, err)
	require.Zero(t, n)

	n, err = s.CountAccounts(ctx, first.ID)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestAccountWithoutPasswordScansEmpty(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user, account := newUserAndAccount("oauth@test.com")
	account.ProviderID = "github"
	account.PasswordHash = ""
	require.NoError(t, s.CreateUserWithAccount(ctx, user, account))

	got, err := s.FindAccount(ctx, user.ID, "github")
	require.NoError(t, err)
	require.Empty(t, got.PasswordHash)
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u1, a1 := newUserAndAccount("u1@test.com")
	require.NoError(t, s.CreateUserWithAccount(ctx, u1, a1))
	u2, a2 := newUserAndAccount("u2@test.com")
	require.NoError(t, s.CreateUserWithAccount(ctx, u2, a2))

	s1 := newSession(u1.ID, "tokenA", time.Hour)
	s2 := newSession(u1.ID, "tokenB", time.Hour)
	s3 := newSession(u2.ID, "tokenC", time.Hour)
	for _, sess := range []*Session{s1, s2, s3} {
		require.NoError(t, s.CreateSession(ctx, sess))
	}

	err := s.CreateSession(ctx, newSession(u1.ID, "tokenA", time.Hour))
	require.ErrorIs(t, err, ErrDuplicate)

	got, err := s.FindSessionByToken(ctx, "tokenA")
	require.NoError(t, err)
	require.Equal(t, s1.ID, got.ID)
	require.False(t, got.Expired(time.Now()))
	require.WithinDuration(t, s1.ExpiresAt, got.ExpiresAt, time.Second)

	// Wrong owner leaves the row in place.
	require.NoError(t, s.DeleteSession(ctx, "tokenA", u2.ID))
	_, err = s.FindSessionByToken(ctx, "tokenA")
	require.NoError(t, err)

	require.NoError(t, s.DeleteSession(ctx, "tokenA", u1.ID))
	_, err = s.FindSessionByToken(ctx, "tokenA")
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, s.DeleteSession(ctx, "tokenA", u1.ID))

	n, err := s.DeleteUserSessions(ctx, u1.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	count, err := s.CountUserSessions(ctx, u1.ID)
	require.NoError(t, err)
	require.Zero(t, count)

	count, err = s.CountUserSessions(ctx, u2.ID)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "oracle", "dsn", PoolConfig{})
	require.Error(t, err)
}
