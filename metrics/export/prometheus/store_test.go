package prometheus

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/MrEthical07/aegis/store"
)

func newStore(t *testing.T) *store.BunStore {
	t.Helper()

	ctx := context.Background()
	dsn := fmt.Sprintf("file:prom_%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := store.Open(ctx, store.DriverSQLite, dsn, store.PoolConfig{})
	if err != nil {
		t.Fatalf("store.Open failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if _, err := store.Migrate(ctx, db); err != nil {
		t.Fatalf("store.Migrate failed: %v", err)
	}
	return store.NewBunStore(db)
}
