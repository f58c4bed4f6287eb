// Copyright (c) 2026 SindicApp. All rights reserved.
// Author: SindicApp maintainers

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/EduNauta/sindicapp/internal/platform/constants"
	"github.com/EduNauta/sindicapp/internal/platform/sec"
)

// RedisTokenVault implements [TokenVault] with one key per token.
// Keys hold the token digest, never the token itself.
type RedisTokenVault struct {
	client redis.Cmdable
	prefix string
	name   string
}

// NewResetTokenVault stores password-reset tokens.
func NewResetTokenVault(client redis.Cmdable) *RedisTokenVault {
	return &RedisTokenVault{client: client, prefix: constants.RedisPrefixResetToken, name: "reset"}
}

// NewVerificationTokenVault stores e-mail verification tokens.
func NewVerificationTokenVault(client redis.Cmdable) *RedisTokenVault {
	return &RedisTokenVault{client: client, prefix: constants.RedisPrefixVerifyToken, name: "verify"}
}

func (vault *RedisTokenVault) key(token string) string {
	return vault.prefix + sec.HashToken(token)
}

/*
Put stores token for identityID with a TTL.

Returns:
  - error: Execution errors
*/
func (vault *RedisTokenVault) Put(context context.Context, token, identityID string, ttl time.Duration) error {
	if err := vault.client.Set(context, vault.key(token), identityID, ttl).Err(); err != nil {
		return fmt.Errorf("redis_%s_token_put_failed: %w", vault.name, err)
	}
	return nil
}

/*
Consume returns the identity behind token and removes the key in the same
command, so a token can be redeemed once.

Returns:
  - string: Identity ID
  - error: ErrVolatileTokenNotFound or connectivity errors
*/
func (vault *RedisTokenVault) Consume(context context.Context, token string) (string, error) {
	identityID, err := vault.client.GetDel(context, vault.key(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrVolatileTokenNotFound
		}
		return "", fmt.Errorf("redis_%s_token_consume_failed: %w", vault.name, err)
	}
	return identityID, nil
}
