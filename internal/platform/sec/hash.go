// Copyright (c) 2026 SindicApp. All rights reserved.
// Author: SindicApp maintainers

package sec

import (
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// DefaultPasswordCost matches the cost used by the account seed data.
const DefaultPasswordCost = 12

// MaxPasswordBytes is the longest input bcrypt accepts.
const MaxPasswordBytes = 72

// PasswordHasher hashes and compares credentials with bcrypt at a fixed cost.
type PasswordHasher struct {
	cost int

	dummyOnce sync.Once
	dummyHash []byte
}

// NewPasswordHasher returns a hasher using cost, or [DefaultPasswordCost]
// when cost is outside bcrypt's accepted range.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultPasswordCost
	}
	return &PasswordHasher{cost: cost}
}

// Hash hashes a plain-text password.
func (hasher *PasswordHasher) Hash(plainTextPassword string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(plainTextPassword), hasher.cost)
	if err != nil {
		return "", fmt.Errorf("sec: failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// Compare reports whether plainTextPassword matches existingHash.
func (hasher *PasswordHasher) Compare(plainTextPassword, existingHash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(existingHash), []byte(plainTextPassword))
	return err == nil
}

// CompareDummy burns the same CPU time as a real comparison and always
// reports false. Login uses it when no identity matched.
func (hasher *PasswordHasher) CompareDummy(plainTextPassword string) bool {
	hasher.dummyOnce.Do(func() {
		hasher.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("sindicapp-dummy-credential"), hasher.cost)
	})
	_ = bcrypt.CompareHashAndPassword(hasher.dummyHash, []byte(plainTextPassword))
	return false
}
