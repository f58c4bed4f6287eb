// Copyright (c) 2026 SindicApp. All rights reserved.
// Author: SindicApp maintainers

package auth_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/EduNauta/sindicapp/internal/platform/apperr"
	"github.com/EduNauta/sindicapp/internal/platform/sec"
	"github.com/EduNauta/sindicapp/internal/users/auth"
	"github.com/EduNauta/sindicapp/pkg/pagination"
	"github.com/EduNauta/sindicapp/pkg/pointer"
	"github.com/EduNauta/sindicapp/pkg/uuid"
)

var errStoreDown = errors.New("store unavailable")

// # Clock

type fakeClock struct {
	mu      sync.Mutex
	current time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{current: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}

// # Identities

var (
	roleUser  = sec.Role{ID: "01900000-0000-7000-8000-000000000001", Name: "user", Permissions: sec.RoleUser.Permissions()}
	roleAdmin = sec.Role{ID: "01900000-0000-7000-8000-000000000003", Name: "admin", Permissions: sec.RoleAdmin.Permissions()}
)

type memoryIdentities struct {
	mu       sync.Mutex
	accounts map[string]*auth.Identity
	roles    map[string]sec.Role

	findErr  error
	touchErr error
}

func newMemoryIdentities() *memoryIdentities {
	return &memoryIdentities{
		accounts: map[string]*auth.Identity{},
		roles:    map[string]sec.Role{roleUser.Name: roleUser, roleAdmin.Name: roleAdmin},
	}
}

func (store *memoryIdentities) copyOf(identity *auth.Identity) *auth.Identity {
	clone := *identity
	return &clone
}

func (store *memoryIdentities) FindByID(_ context.Context, id string) (*auth.Identity, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.findErr != nil {
		return nil, store.findErr
	}
	identity, ok := store.accounts[id]
	if !ok {
		return nil, apperr.NotFound("User")
	}
	return store.copyOf(identity), nil
}

func (store *memoryIdentities) FindByLogin(_ context.Context, identifier string) (*auth.Identity, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.findErr != nil {
		return nil, store.findErr
	}
	for _, identity := range store.accounts {
		if identity.Email == identifier {
			return store.copyOf(identity), nil
		}
	}
	for _, identity := range store.accounts {
		if identity.Username == identifier {
			return store.copyOf(identity), nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (store *memoryIdentities) FindByEmail(_ context.Context, email string) (*auth.Identity, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	for _, identity := range store.accounts {
		if identity.Email == email {
			return store.copyOf(identity), nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (store *memoryIdentities) ExistsByEmailOrUsername(_ context.Context, email, username string) (bool, bool, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	var emailTaken, usernameTaken bool
	for _, identity := range store.accounts {
		emailTaken = emailTaken || identity.Email == email
		usernameTaken = usernameTaken || identity.Username == username
	}
	return emailTaken, usernameTaken, nil
}

func (store *memoryIdentities) Create(_ context.Context, input auth.NewIdentity) (*auth.Identity, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	var role sec.Role
	for _, candidate := range store.roles {
		if candidate.ID == input.RoleID {
			role = candidate
		}
	}

	identity := &auth.Identity{
		ID:           input.ID,
		Email:        input.Email,
		Username:     input.Username,
		PasswordHash: input.PasswordHash,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Phone:        input.Phone,
		IsActive:     true,
		Role:         role,
	}
	store.accounts[identity.ID] = identity
	return store.copyOf(identity), nil
}

func (store *memoryIdentities) UpdatePassword(_ context.Context, id, passwordHash string) error {
	return store.mutate(id, func(identity *auth.Identity) { identity.PasswordHash = passwordHash })
}

func (store *memoryIdentities) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	if store.touchErr != nil {
		return store.touchErr
	}
	return store.mutate(id, func(identity *auth.Identity) { identity.LastLoginAt = pointer.To(at) })
}

func (store *memoryIdentities) MarkEmailVerified(_ context.Context, id string) error {
	return store.mutate(id, func(identity *auth.Identity) { identity.EmailVerified = true })
}

func (store *memoryIdentities) FindRoleByName(_ context.Context, name string) (*sec.Role, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	role, ok := store.roles[name]
	if !ok {
		return nil, apperr.NotFound("Role")
	}
	return &role, nil
}

func (store *memoryIdentities) mutate(id string, change func(*auth.Identity)) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	identity, ok := store.accounts[id]
	if !ok {
		return apperr.NotFound("User")
	}
	change(identity)
	return nil
}

func (store *memoryIdentities) isActive(id string) bool {
	store.mu.Lock()
	defer store.mu.Unlock()
	identity, ok := store.accounts[id]
	return ok && identity.IsActive
}

// # Sessions

// memoryLedger mirrors the PostgreSQL ledger, including the conditional
// rotation, behind one mutex.
type memoryLedger struct {
	mu       sync.Mutex
	sessions map[string]*auth.Session
	lifetime time.Duration
	now      func() time.Time

	// ownerActive stands in for the join on users.account.
	ownerActive func(identityID string) bool

	invalidateErr error
}

func newMemoryLedger(lifetime time.Duration, now func() time.Time, ownerActive func(string) bool) *memoryLedger {
	return &memoryLedger{
		sessions:    map[string]*auth.Session{},
		lifetime:    lifetime,
		now:         now,
		ownerActive: ownerActive,
	}
}

func (ledger *memoryLedger) insert(refreshToken, identityID, userAgent, ipAddress string) (*auth.Session, error) {
	hash := sec.HashToken(refreshToken)
	if _, exists := ledger.sessions[hash]; exists {
		return nil, apperr.Conflict("Session already exists")
	}
	createdAt := ledger.now()
	session := &auth.Session{
		ID:         uuid.New(),
		IdentityID: identityID,
		TokenHash:  hash,
		UserAgent:  pointer.NonEmpty(userAgent),
		IPAddress:  pointer.NonEmpty(ipAddress),
		ExpiresAt:  createdAt.Add(ledger.lifetime),
		IsValid:    true,
		CreatedAt:  createdAt,
	}
	ledger.sessions[hash] = session
	return session, nil
}

func (ledger *memoryLedger) Create(_ context.Context, refreshToken, identityID, userAgent, ipAddress string) (*auth.Session, error) {
	ledger.mu.Lock()
	defer ledger.mu.Unlock()
	return ledger.insert(refreshToken, identityID, userAgent, ipAddress)
}

func (ledger *memoryLedger) IsUsable(_ context.Context, refreshToken string) (bool, error) {
	ledger.mu.Lock()
	defer ledger.mu.Unlock()
	session, ok := ledger.sessions[sec.HashToken(refreshToken)]
	return ok && session.Usable(ledger.now()) && ledger.ownerActive(session.IdentityID), nil
}

func (ledger *memoryLedger) Invalidate(_ context.Context, refreshToken string) error {
	ledger.mu.Lock()
	defer ledger.mu.Unlock()
	if ledger.invalidateErr != nil {
		return ledger.invalidateErr
	}
	if session, ok := ledger.sessions[sec.HashToken(refreshToken)]; ok {
		session.IsValid = false
	}
	return nil
}

func (ledger *memoryLedger) InvalidateAllForIdentity(_ context.Context, identityID string) (int64, error) {
	ledger.mu.Lock()
	defer ledger.mu.Unlock()
	var changed int64
	for _, session := range ledger.sessions {
		if session.IdentityID == identityID && session.IsValid {
			session.IsValid = false
			changed++
		}
	}
	return changed, nil
}

func (ledger *memoryLedger) InvalidateByID(_ context.Context, identityID, sessionID string) error {
	ledger.mu.Lock()
	defer ledger.mu.Unlock()
	for _, session := range ledger.sessions {
		if session.ID == sessionID && session.IdentityID == identityID {
			session.IsValid = false
			return nil
		}
	}
	return apperr.NotFound("Session")
}

func (ledger *memoryLedger) PurgeExpiredOrInvalid(_ context.Context) (int64, error) {
	ledger.mu.Lock()
	defer ledger.mu.Unlock()
	var purged int64
	for hash, session := range ledger.sessions {
		if !session.IsValid || session.ExpiresAt.Before(ledger.now()) {
			delete(ledger.sessions, hash)
			purged++
		}
	}
	return purged, nil
}

func (ledger *memoryLedger) Rotate(_ context.Context, presented, identityID string, next auth.NewSession) (*auth.Session, error) {
	ledger.mu.Lock()
	defer ledger.mu.Unlock()
	session, ok := ledger.sessions[sec.HashToken(presented)]
	if !ok || session.IdentityID != identityID || !session.Usable(ledger.now()) {
		return nil, auth.ErrSessionNotUsable
	}
	session.IsValid = false
	return ledger.insert(next.RefreshToken, identityID, next.UserAgent, next.IPAddress)
}

func (ledger *memoryLedger) ListForIdentity(_ context.Context, identityID string, page pagination.Params) ([]*auth.Session, int, error) {
	ledger.mu.Lock()
	defer ledger.mu.Unlock()
	var matched []*auth.Session
	for _, session := range ledger.sessions {
		if session.IdentityID == identityID && session.Usable(ledger.now()) {
			clone := *session
			matched = append(matched, &clone)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	page = page.Normalize()
	start := min(page.Offset(), len(matched))
	end := min(start+page.Limit, len(matched))
	return matched[start:end], len(matched), nil
}

func (ledger *memoryLedger) count(identityID string, usableOnly bool) int {
	ledger.mu.Lock()
	defer ledger.mu.Unlock()
	total := 0
	for _, session := range ledger.sessions {
		if session.IdentityID != identityID {
			continue
		}
		if usableOnly && !session.Usable(ledger.now()) {
			continue
		}
		total++
	}
	return total
}

// # Volatile tokens

type memoryVault struct {
	mu     sync.Mutex
	tokens map[string]string
	putErr error
}

func newMemoryVault() *memoryVault {
	return &memoryVault{tokens: map[string]string{}}
}

func (vault *memoryVault) Put(_ context.Context, token, identityID string, _ time.Duration) error {
	vault.mu.Lock()
	defer vault.mu.Unlock()
	if vault.putErr != nil {
		return vault.putErr
	}
	vault.tokens[token] = identityID
	return nil
}

func (vault *memoryVault) Consume(_ context.Context, token string) (string, error) {
	vault.mu.Lock()
	defer vault.mu.Unlock()
	identityID, ok := vault.tokens[token]
	if !ok {
		return "", auth.ErrVolatileTokenNotFound
	}
	delete(vault.tokens, token)
	return identityID, nil
}

func (vault *memoryVault) size() int {
	vault.mu.Lock()
	defer vault.mu.Unlock()
	return len(vault.tokens)
}

// # Fixture

const testPassword = "Secr3tPassword"

type fixture struct {
	clock      *fakeClock
	codec      *sec.TokenCodec
	hasher     *sec.PasswordHasher
	identities *memoryIdentities
	ledger     *memoryLedger
	reset      *memoryVault
	verify     *memoryVault
	service    *auth.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := newFakeClock()
	codec, err := sec.NewTokenCodec(sec.CodecConfig{
		AccessSecret:  "access-secret-for-tests",
		RefreshSecret: "refresh-secret-for-tests",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		Issuer:        "sindicapp",
		Clock:         clock.Now,
	})
	require.NoError(t, err)

	identities := newMemoryIdentities()
	f := &fixture{
		clock:      clock,
		codec:      codec,
		hasher:     sec.NewPasswordHasher(4),
		identities: identities,
		ledger:     newMemoryLedger(codec.RefreshTTL(), clock.Now, identities.isActive),
		reset:      newMemoryVault(),
		verify:     newMemoryVault(),
	}
	f.service = f.build(false)
	return f
}

func (f *fixture) build(exposeTokens bool) *auth.Service {
	return auth.NewService(auth.Dependencies{
		Identities:         f.identities,
		Sessions:           f.ledger,
		ResetTokens:        f.reset,
		VerificationTokens: f.verify,
		Codec:              f.codec,
		Hasher:             f.hasher,
		ExposeActionTokens: exposeTokens,
		Clock:              f.clock.Now,
	})
}

// seed stores an active account with testPassword.
func (f *fixture) seed(t *testing.T, email, username string, role sec.Role) *auth.Identity {
	t.Helper()

	hash, err := f.hasher.Hash(testPassword)
	require.NoError(t, err)

	identity := &auth.Identity{
		ID:           uuid.New(),
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		IsActive:     true,
		Role:         role,
		CreatedAt:    f.clock.Now(),
	}
	f.identities.mu.Lock()
	f.identities.accounts[identity.ID] = identity
	f.identities.mu.Unlock()
	return identity
}

func (f *fixture) deactivate(id string) {
	_ = f.identities.mutate(id, func(identity *auth.Identity) { identity.IsActive = false })
}

func (f *fixture) login(t *testing.T, identifier string) *auth.AuthResult {
	t.Helper()
	result, err := f.service.Login(context.Background(), auth.LoginInput{
		Identifier: identifier,
		Password:   testPassword,
		UserAgent:  "test-agent",
		IPAddress:  "203.0.113.7",
	})
	require.NoError(t, err)
	return result
}
