package session

import (
	"context"
	"errors"
	"time"
)

// MaxRegistryAttempts bounds the registry read-merge-write-verify loop.
const MaxRegistryAttempts = 3

// TrackResult reports how a registry update went.
type TrackResult struct {
	Attempts int
	Verified bool
	// Skipped is set when the merged registry had nothing left to keep alive.
	Skipped bool
}

// ReadRegistry loads userID's registry. A missing key yields an empty
// registry; a corrupt value yields ErrCorruptValue.
func ReadRegistry(ctx context.Context, c Cache, userID string) (Registry, error) {
	raw, found, err := c.GetString(ctx, RegistryKey(userID))
	if err != nil {
		return nil, err
	}
	if !found {
		return Registry{}, nil
	}
	return DecodeRegistry(raw)
}

// Track records ref in userID's registry.
//
// Each attempt reads the registry, drops expired entries and any previous
// entry for ref.Token, appends ref, writes the result and reads it back. The
// loop stops on the first read-back that contains ref.Token, or after
// [MaxRegistryAttempts]. Concurrent writers can overwrite each other; the
// loser simply goes unverified. A corrupt registry is replaced.
//
// Track returns an error only for cache transport failures.
func Track(ctx context.Context, c Cache, userID string, ref Reference, now time.Time) (TrackResult, error) {
	var res TrackResult
	key := RegistryKey(userID)
	for res.Attempts < MaxRegistryAttempts {
		res.Attempts++
		nowMs := now.UnixMilli()

		current, err := ReadRegistry(ctx, c, userID)
		if err != nil && !errors.Is(err, ErrCorruptValue) {
			return res, err
		}
		next := current.Live(nowMs).Without(ref.Token).With(ref)

		ttl := next.TTL(nowMs)
		if ttl <= 0 {
			res.Skipped = true
			return res, nil
		}
		raw, err := next.Encode()
		if err != nil {
			return res, err
		}
		if err := c.SetString(ctx, key, raw, ttl); err != nil {
			return res, err
		}

		check, err := ReadRegistry(ctx, c, userID)
		if err != nil && !errors.Is(err, ErrCorruptValue) {
			return res, err
		}
		if check.Contains(ref.Token) {
			res.Verified = true
			return res, nil
		}
	}
	return res, nil
}

// Untrack removes token from userID's registry, pruning expired entries on
// the way. The key is deleted once nothing live remains, otherwise it is
// rewritten with a TTL recomputed from the remaining entries.
func Untrack(ctx context.Context, c Cache, userID, token string, now time.Time) error {
	key := RegistryKey(userID)
	nowMs := now.UnixMilli()

	current, err := ReadRegistry(ctx, c, userID)
	if errors.Is(err, ErrCorruptValue) {
		return c.Remove(ctx, key)
	}
	if err != nil {
		return err
	}

	remaining := current.Without(token).Live(nowMs)
	ttl := remaining.TTL(nowMs)
	if len(remaining) == 0 || ttl <= 0 {
		return c.Remove(ctx, key)
	}
	remaining.sort()
	raw, err := remaining.Encode()
	if err != nil {
		return err
	}
	return c.SetString(ctx, key, raw, ttl)
}

// Purge deletes every snapshot referenced by userID's registry together with
// the registry itself, and returns the tokens it removed.
func Purge(ctx context.Context, c Cache, userID string) ([]string, error) {
	key := RegistryKey(userID)

	current, err := ReadRegistry(ctx, c, userID)
	if errors.Is(err, ErrCorruptValue) {
		return nil, c.Remove(ctx, key)
	}
	if err != nil {
		return nil, err
	}

	tokens := current.Tokens()
	keys := append(tokens[:len(tokens):len(tokens)], key)
	if err := c.Remove(ctx, keys...); err != nil {
		return nil, err
	}
	return tokens, nil
}

// PutSnapshot caches snap under its token until the session expires. It
// reports false without writing when the session is already expired.
func PutSnapshot(ctx context.Context, c Cache, snap *Snapshot, now time.Time) (bool, error) {
	ttl := TTLUntil(snap.Session.ExpiresAt.UnixMilli(), now.UnixMilli())
	if ttl <= 0 {
		return false, nil
	}
	raw, err := EncodeSnapshot(snap)
	if err != nil {
		return false, err
	}
	if err := c.SetString(ctx, snap.Session.Token, raw, ttl); err != nil {
		return false, err
	}
	return true, nil
}

// LoadSnapshot reads the snapshot cached under token.
func LoadSnapshot(ctx context.Context, c Cache, token string) (*Snapshot, bool, error) {
	raw, found, err := c.GetString(ctx, token)
	if err != nil || !found {
		return nil, false, err
	}
	snap, err := DecodeSnapshot(raw)
	if err != nil {
		return nil, false, err
	}
	return snap, true, nil
}

// DropSnapshot removes the snapshot cached under token.
func DropSnapshot(ctx context.Context, c Cache, token string) error {
	return c.Remove(ctx, token)
}
