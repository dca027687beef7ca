package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/aegis/store"
)

// lossyCache accepts registry writes but never persists them, the way a
// concurrent writer would clobber them between write and read-back.
type lossyCache struct {
	sets int
}

func (l *lossyCache) GetString(context.Context, string) (string, bool, error) { return "", false, nil }
func (l *lossyCache) SetString(context.Context, string, string, time.Duration) error {
	l.sets++
	return nil
}
func (l *lossyCache) Remove(context.Context, ...string) error { return nil }

type brokenCache struct{}

func (brokenCache) GetString(context.Context, string) (string, bool, error) {
	return "", false, ErrCacheUnavailable
}
func (brokenCache) SetString(context.Context, string, string, time.Duration) error {
	return ErrCacheUnavailable
}
func (brokenCache) Remove(context.Context, ...string) error { return ErrCacheUnavailable }

func testSnapshot(token, userID string, expiresAt time.Time) *Snapshot {
	return &Snapshot{
		Session: store.Session{ID: "s-" + token, Token: token, UserID: userID, ExpiresAt: expiresAt},
		User:    store.User{ID: userID, Email: userID + "@example.com"},
	}
}

func TestTrackAddsAndVerifies(t *testing.T) {
	c, mr := newCacheTest(t, "")
	ctx := context.Background()
	now := time.Now()

	first := Reference{Token: "t1", ExpiresAt: now.Add(time.Hour).UnixMilli()}
	res, err := Track(ctx, c, "u1", first, now)
	if err != nil {
		t.Fatalf("Track failed: %v", err)
	}
	if !res.Verified || res.Attempts != 1 {
		t.Fatalf("expected verified on first attempt, got %+v", res)
	}

	second := Reference{Token: "t2", ExpiresAt: now.Add(2 * time.Hour).UnixMilli()}
	if _, err := Track(ctx, c, "u1", second, now); err != nil {
		t.Fatalf("Track failed: %v", err)
	}
	// re-adding the same token replaces its entry
	if _, err := Track(ctx, c, "u1", second, now); err != nil {
		t.Fatalf("Track failed: %v", err)
	}

	r, err := ReadRegistry(ctx, c, "u1")
	if err != nil {
		t.Fatalf("ReadRegistry failed: %v", err)
	}
	if len(r) != 2 || r[0].Token != "t1" || r[1].Token != "t2" {
		t.Fatalf("unexpected registry %+v", r)
	}
	ttl := mr.TTL(RegistryKey("u1"))
	if ttl < 2*time.Hour-time.Second || ttl > 2*time.Hour+time.Second {
		t.Fatalf("expected registry ttl from furthest expiry, got %v", ttl)
	}
}

func TestTrackPrunesExpiredEntries(t *testing.T) {
	c, _ := newCacheTest(t, "")
	ctx := context.Background()
	start := time.Now()

	short := Reference{Token: "short", ExpiresAt: start.Add(time.Minute).UnixMilli()}
	if _, err := Track(ctx, c, "u1", short, start); err != nil {
		t.Fatalf("Track failed: %v", err)
	}
	later := start.Add(2 * time.Minute)
	long := Reference{Token: "long", ExpiresAt: later.Add(time.Hour).UnixMilli()}
	if _, err := Track(ctx, c, "u1", long, later); err != nil {
		t.Fatalf("Track failed: %v", err)
	}

	r, _ := ReadRegistry(ctx, c, "u1")
	if r.Contains("short") || !r.Contains("long") {
		t.Fatalf("expected expired entry pruned, got %+v", r)
	}
}

func TestTrackGivesUpAfterBoundedAttempts(t *testing.T) {
	c := &lossyCache{}
	now := time.Now()
	ref := Reference{Token: "t", ExpiresAt: now.Add(time.Hour).UnixMilli()}

	res, err := Track(context.Background(), c, "u1", ref, now)
	if err != nil {
		t.Fatalf("Track failed: %v", err)
	}
	if res.Verified || res.Attempts != MaxRegistryAttempts || c.sets != MaxRegistryAttempts {
		t.Fatalf("expected %d unverified attempts, got %+v sets=%d", MaxRegistryAttempts, res, c.sets)
	}
}

func TestTrackSkipsExpiredReference(t *testing.T) {
	c := &lossyCache{}
	now := time.Now()
	ref := Reference{Token: "t", ExpiresAt: now.Add(-time.Second).UnixMilli()}

	res, err := Track(context.Background(), c, "u1", ref, now)
	if err != nil {
		t.Fatalf("Track failed: %v", err)
	}
	if !res.Skipped || c.sets != 0 {
		t.Fatalf("expected skipped write, got %+v sets=%d", res, c.sets)
	}
}

func TestTrackReplacesCorruptRegistry(t *testing.T) {
	c, mr := newCacheTest(t, "")
	if err := mr.Set(RegistryKey("u1"), "{garbage"); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	now := time.Now()
	res, err := Track(context.Background(), c, "u1", Reference{Token: "t", ExpiresAt: now.Add(time.Hour).UnixMilli()}, now)
	if err != nil || !res.Verified {
		t.Fatalf("expected corrupt registry replaced, got %+v err=%v", res, err)
	}
}

func TestTrackPropagatesCacheFault(t *testing.T) {
	now := time.Now()
	_, err := Track(context.Background(), brokenCache{}, "u1", Reference{Token: "t", ExpiresAt: now.Add(time.Hour).UnixMilli()}, now)
	if !errors.Is(err, ErrCacheUnavailable) {
		t.Fatalf("expected ErrCacheUnavailable, got %v", err)
	}
}

func TestUntrackShrinksTTLAndDeletesWhenEmpty(t *testing.T) {
	c, mr := newCacheTest(t, "")
	ctx := context.Background()
	now := time.Now()

	for token, d := range map[string]time.Duration{"a": time.Hour, "b": 3 * time.Hour} {
		if _, err := Track(ctx, c, "u1", Reference{Token: token, ExpiresAt: now.Add(d).UnixMilli()}, now); err != nil {
			t.Fatalf("Track failed: %v", err)
		}
	}

	if err := Untrack(ctx, c, "u1", "b", now); err != nil {
		t.Fatalf("Untrack failed: %v", err)
	}
	r, _ := ReadRegistry(ctx, c, "u1")
	if len(r) != 1 || r[0].Token != "a" {
		t.Fatalf("unexpected registry %+v", r)
	}
	if ttl := mr.TTL(RegistryKey("u1")); ttl > time.Hour+time.Second {
		t.Fatalf("expected shortened ttl, got %v", ttl)
	}

	if err := Untrack(ctx, c, "u1", "a", now); err != nil {
		t.Fatalf("Untrack failed: %v", err)
	}
	if mr.Exists(RegistryKey("u1")) {
		t.Fatal("expected registry key deleted once empty")
	}

	if err := Untrack(ctx, c, "nobody", "x", now); err != nil {
		t.Fatalf("Untrack on missing registry failed: %v", err)
	}
}

func TestPurgeRemovesSnapshotsAndRegistry(t *testing.T) {
	c, mr := newCacheTest(t, "")
	ctx := context.Background()
	now := time.Now()

	for _, tc := range []struct{ token, user string }{{"t1", "u1"}, {"t2", "u1"}, {"t3", "u2"}} {
		snap := testSnapshot(tc.token, tc.user, now.Add(time.Hour))
		if ok, err := PutSnapshot(ctx, c, snap, now); err != nil || !ok {
			t.Fatalf("PutSnapshot failed: ok=%v err=%v", ok, err)
		}
		ref := Reference{Token: tc.token, ExpiresAt: snap.Session.ExpiresAt.UnixMilli()}
		if _, err := Track(ctx, c, tc.user, ref, now); err != nil {
			t.Fatalf("Track failed: %v", err)
		}
	}

	tokens, err := Purge(ctx, c, "u1")
	if err != nil {
		t.Fatalf("Purge failed: %v", err)
	}
	if len(tokens) != 2 {
		t.Fatalf("expected 2 purged tokens, got %v", tokens)
	}
	for _, key := range []string{"t1", "t2", RegistryKey("u1")} {
		if mr.Exists(key) {
			t.Fatalf("expected %s removed", key)
		}
	}
	if !mr.Exists("t3") || !mr.Exists(RegistryKey("u2")) {
		t.Fatal("other user's keys must survive")
	}
}

func TestSnapshotRoundTripAndExpiry(t *testing.T) {
	c, mr := newCacheTest(t, "")
	ctx := context.Background()
	now := time.Now()

	snap := testSnapshot("tok", "u1", now.Add(90*time.Second))
	if ok, err := PutSnapshot(ctx, c, snap, now); err != nil || !ok {
		t.Fatalf("PutSnapshot failed: ok=%v err=%v", ok, err)
	}
	if ttl := mr.TTL("tok"); ttl != 90*time.Second {
		t.Fatalf("expected 90s ttl, got %v", ttl)
	}

	got, found, err := LoadSnapshot(ctx, c, "tok")
	if err != nil || !found {
		t.Fatalf("LoadSnapshot failed: found=%v err=%v", found, err)
	}
	if got.User.ID != "u1" || got.Session.Token != "tok" || !got.Session.ExpiresAt.Equal(snap.Session.ExpiresAt) {
		t.Fatalf("unexpected snapshot %+v", got)
	}

	if err := DropSnapshot(ctx, c, "tok"); err != nil {
		t.Fatalf("DropSnapshot failed: %v", err)
	}
	if _, found, _ := LoadSnapshot(ctx, c, "tok"); found {
		t.Fatal("expected snapshot gone")
	}

	expired := testSnapshot("old", "u1", now.Add(-time.Second))
	if ok, err := PutSnapshot(ctx, c, expired, now); err != nil || ok {
		t.Fatalf("expected expired snapshot skipped, ok=%v err=%v", ok, err)
	}
	if mr.Exists("old") {
		t.Fatal("expired snapshot must not be written")
	}
}

func TestLoadSnapshotCorrupt(t *testing.T) {
	c, mr := newCacheTest(t, "")
	if err := mr.Set("tok", `{"session":{}}`); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if _, _, err := LoadSnapshot(context.Background(), c, "tok"); !errors.Is(err, ErrCorruptValue) {
		t.Fatalf("expected ErrCorruptValue, got %v", err)
	}
}
