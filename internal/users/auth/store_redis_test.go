// Copyright (c) 2026 SindicApp. All rights reserved.
// Author: SindicApp maintainers

package auth_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EduNauta/sindicapp/internal/platform/constants"
	"github.com/EduNauta/sindicapp/internal/platform/sec"
	"github.com/EduNauta/sindicapp/internal/users/auth"
)

// newRedisClient starts an in-process Redis server for the test.
func newRedisClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, server
}

/*
TestRedisTokenVault_SingleUse verifies a token can be consumed exactly once.
*/
func TestRedisTokenVault_SingleUse(t *testing.T) {
	client, _ := newRedisClient(t)
	vault := auth.NewResetTokenVault(client)
	ctx := context.Background()

	require.NoError(t, vault.Put(ctx, "reset-token-1", "identity-1", time.Minute))

	identityID, err := vault.Consume(ctx, "reset-token-1")
	require.NoError(t, err)
	assert.Equal(t, "identity-1", identityID)

	_, err = vault.Consume(ctx, "reset-token-1")
	assert.ErrorIs(t, err, auth.ErrVolatileTokenNotFound)
}

/*
TestRedisTokenVault_ConcurrentConsume verifies racing redemptions have one winner.
*/
func TestRedisTokenVault_ConcurrentConsume(t *testing.T) {
	client, _ := newRedisClient(t)
	vault := auth.NewResetTokenVault(client)
	ctx := context.Background()

	require.NoError(t, vault.Put(ctx, "contested", "identity-9", time.Minute))

	var (
		wins   atomic.Int32
		misses atomic.Int32
		group  sync.WaitGroup
	)
	for range 8 {
		group.Add(1)
		go func() {
			defer group.Done()
			_, err := vault.Consume(ctx, "contested")
			switch {
			case err == nil:
				wins.Add(1)
			case assert.ErrorIs(t, err, auth.ErrVolatileTokenNotFound):
				misses.Add(1)
			}
		}()
	}
	group.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(7), misses.Load())
}

/*
TestRedisTokenVault_StoresDigest verifies only the token hash is used as key, with the TTL applied.
*/
func TestRedisTokenVault_StoresDigest(t *testing.T) {
	client, server := newRedisClient(t)
	ctx := context.Background()

	require.NoError(t, auth.NewResetTokenVault(client).Put(ctx, "plain-token", "identity-4", 30*time.Minute))

	key := constants.RedisPrefixResetToken + sec.HashToken("plain-token")
	assert.Equal(t, []string{key}, server.Keys())
	assert.Equal(t, 30*time.Minute, server.TTL(key))

	stored, err := server.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "identity-4", stored)
}

/*
TestRedisTokenVault_Separation verifies reset and verification tokens do not mix.
*/
func TestRedisTokenVault_Separation(t *testing.T) {
	client, _ := newRedisClient(t)
	ctx := context.Background()

	require.NoError(t, auth.NewResetTokenVault(client).Put(ctx, "shared-token", "identity-2", time.Minute))

	_, err := auth.NewVerificationTokenVault(client).Consume(ctx, "shared-token")
	assert.ErrorIs(t, err, auth.ErrVolatileTokenNotFound)

	_, err = auth.NewResetTokenVault(client).Consume(ctx, "shared-token")
	assert.NoError(t, err)
}

/*
TestRedisTokenVault_Expiry verifies expired tokens are gone.
*/
func TestRedisTokenVault_Expiry(t *testing.T) {
	client, server := newRedisClient(t)
	vault := auth.NewVerificationTokenVault(client)
	ctx := context.Background()

	require.NoError(t, vault.Put(ctx, "short-lived", "identity-3", time.Minute))
	server.FastForward(2 * time.Minute)

	_, err := vault.Consume(ctx, "short-lived")
	assert.ErrorIs(t, err, auth.ErrVolatileTokenNotFound)
}

/*
TestRedisTokenVault_ConnectivityError verifies outages are not reported as a missing token.
*/
func TestRedisTokenVault_ConnectivityError(t *testing.T) {
	client, server := newRedisClient(t)
	vault := auth.NewResetTokenVault(client)
	server.Close()

	_, err := vault.Consume(context.Background(), "any")
	require.Error(t, err)
	assert.NotErrorIs(t, err, auth.ErrVolatileTokenNotFound)

	err = vault.Put(context.Background(), "any", "identity-5", time.Minute)
	assert.ErrorContains(t, err, "redis_reset_token_put_failed")
}
