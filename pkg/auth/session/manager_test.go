package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/pharmacy-backend/pkg/config"
	"github.com/angelmondragon/pharmacy-backend/pkg/redis"
)

func newTestManager(t *testing.T) (*Manager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewFromClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	mgr, err := NewManager(client, config.JWTConfig{ExpirationMinutes: 10})
	require.NoError(t, err)
	return mgr, mr
}

func TestNewManagerValidation(t *testing.T) {
	_, err := NewManager(nil, config.JWTConfig{ExpirationMinutes: 10})
	assert.Error(t, err)

	mr := miniredis.RunT(t)
	client := redis.NewFromClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	_, err = NewManager(client, config.JWTConfig{})
	assert.Error(t, err)
}

func TestOpenLookupRevoke(t *testing.T) {
	ctx := context.Background()
	mgr, mr := newTestManager(t)
	accountID := uuid.New()

	accessID, err := mgr.Open(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, mr.TTL("rx:session:access:"+accessID))

	got, err := mgr.Lookup(ctx, accessID)
	require.NoError(t, err)
	assert.Equal(t, accountID, got)

	require.NoError(t, mgr.Revoke(ctx, accessID))
	require.NoError(t, mgr.Revoke(ctx, accessID), "second revoke is a no-op")

	_, err = mgr.Lookup(ctx, accessID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionExpires(t *testing.T) {
	ctx := context.Background()
	mgr, mr := newTestManager(t)

	accessID, err := mgr.Open(ctx, uuid.New())
	require.NoError(t, err)

	mr.FastForward(11 * time.Minute)

	_, err = mgr.Lookup(ctx, accessID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestLookupRejectsCorruptRecord(t *testing.T) {
	mgr, mr := newTestManager(t)
	require.NoError(t, mr.Set("rx:session:access:broken", "not-json"))

	_, err := mgr.Lookup(context.Background(), "broken")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSessionNotFound)
}

func TestOpenRequiresAccount(t *testing.T) {
	mgr, _ := newTestManager(t)
	_, err := mgr.Open(context.Background(), uuid.Nil)
	assert.Error(t, err)

	_, err = mgr.Lookup(context.Background(), " ")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Error(t, mgr.Revoke(context.Background(), ""))
}
