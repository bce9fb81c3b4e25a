package settings

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	_ "github.com/pressdesk/pressdesk/internal/testing/guard"
)

func newCachedStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(nil, client, time.Minute, slog.Default()), mr
}

func TestGetServedFromCache(t *testing.T) {
	store, mr := newCachedStore(t)
	require.NoError(t, mr.Set("settings:vat_rate", "7"))

	got := store.Get(context.Background(), "vat_rate", "0")
	require.Equal(t, "7", got)
}

func TestGetDecimalFromCache(t *testing.T) {
	store, mr := newCachedStore(t)
	require.NoError(t, mr.Set("settings:vat_rate", "7.5"))

	got := store.GetDecimal(context.Background(), "vat_rate", decimal.NewFromInt(7))
	require.Equal(t, "7.5", got.String())
}

func TestGetDecimalMalformedFallsBack(t *testing.T) {
	store, mr := newCachedStore(t)
	require.NoError(t, mr.Set("settings:vat_rate", "seven"))

	got := store.GetDecimal(context.Background(), "vat_rate", decimal.NewFromInt(7))
	require.Equal(t, "7", got.String())
}

func TestGetIntFromCache(t *testing.T) {
	store, mr := newCachedStore(t)
	require.NoError(t, mr.Set("settings:reminder_days", "3"))

	require.Equal(t, 3, store.GetInt(context.Background(), "reminder_days", 1))
}

func TestEnabled(t *testing.T) {
	store, mr := newCachedStore(t)
	require.NoError(t, mr.Set("settings:notification_line_enabled", "1"))
	require.NoError(t, mr.Set("settings:notify_daily_summary", "0"))

	require.True(t, store.Enabled(context.Background(), "notification_line_enabled"))
	require.False(t, store.Enabled(context.Background(), "notify_daily_summary"))
}
