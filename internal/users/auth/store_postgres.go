// Copyright (c) 2026 SindicApp. All rights reserved.
// Author: SindicApp maintainers

package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/EduNauta/sindicapp/internal/platform/apperr"
	"github.com/EduNauta/sindicapp/internal/platform/dberr"
	"github.com/EduNauta/sindicapp/internal/platform/sec"
	"github.com/EduNauta/sindicapp/pkg/pagination"
	"github.com/EduNauta/sindicapp/pkg/pointer"
	"github.com/EduNauta/sindicapp/pkg/uuid"
)

// # Identity Store

// identityColumns selects an account joined with its role, in scanIdentity order.
const identityColumns = `
		SELECT a.id, a.email, a.username, a.passwordhash, a.firstname, a.lastname, a.phone,
		       a.emailverified, a.isactive, a.lastloginat, a.createdat, a.updatedat,
		       r.id, r.name, r.description,
		       r.cancreateposts, r.canmoderateposts, r.canmanageusers,
		       r.canviewreports, r.canmanagecompany, r.canadminsystem
		FROM users.account a
		JOIN users.role r ON r.id = a.roleid`

// PostgresIdentityStore implements [IdentityStore] on database/sql.
type PostgresIdentityStore struct {
	db *sql.DB
}

// NewIdentityStore creates a PostgreSQL implementation of [IdentityStore].
func NewIdentityStore(db *sql.DB) *PostgresIdentityStore {
	return &PostgresIdentityStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIdentity(row rowScanner) (*Identity, error) {
	var (
		identity    Identity
		firstName   sql.Null[string]
		lastName    sql.Null[string]
		phone       sql.Null[string]
		lastLoginAt sql.Null[time.Time]
		description sql.Null[string]
		flags       = make([]bool, len(sec.AllPermissions))
	)

	err := row.Scan(
		&identity.ID, &identity.Email, &identity.Username, &identity.PasswordHash,
		&firstName, &lastName, &phone,
		&identity.EmailVerified, &identity.IsActive, &lastLoginAt, &identity.CreatedAt, &identity.UpdatedAt,
		&identity.Role.ID, &identity.Role.Name, &description,
		&flags[0], &flags[1], &flags[2], &flags[3], &flags[4], &flags[5],
	)
	if err != nil {
		return nil, err
	}

	identity.FirstName = nullable(firstName)
	identity.LastName = nullable(lastName)
	identity.Phone = nullable(phone)
	identity.LastLoginAt = nullable(lastLoginAt)
	identity.Role.Description = nullable(description)
	identity.Role.Permissions = sec.PermissionSetFromFlags(flags...)

	return &identity, nil
}

func nullable[T any](value sql.Null[T]) *T {
	if !value.Valid {
		return nil
	}
	return pointer.To(value.V)
}

func (repository *PostgresIdentityStore) findOne(context context.Context, operation, where string, args ...any) (*Identity, error) {
	identity, err := scanIdentity(repository.db.QueryRowContext(context, identityColumns+"\n\t\t"+where, args...))
	if err != nil {
		if dberr.IsNotFound(err) {
			return nil, apperr.NotFound("User")
		}
		return nil, fmt.Errorf("postgres_identity_store_%s_failed: %w", operation, err)
	}
	return identity, nil
}

// FindByID retrieves an account by primary key.
func (repository *PostgresIdentityStore) FindByID(context context.Context, id string) (*Identity, error) {
	if !uuid.IsValid(id) {
		return nil, apperr.NotFound("User")
	}
	return repository.findOne(context, "find_by_id", "WHERE a.id = $1", id)
}

// FindByLogin retrieves an account by exact email or username.
func (repository *PostgresIdentityStore) FindByLogin(context context.Context, identifier string) (*Identity, error) {
	return repository.findOne(context, "find_by_login",
		"WHERE a.email = $1 OR a.username = $1\n\t\tORDER BY (a.email = $1) DESC\n\t\tLIMIT 1", identifier)
}

// FindByEmail retrieves an account by exact email.
func (repository *PostgresIdentityStore) FindByEmail(context context.Context, email string) (*Identity, error) {
	return repository.findOne(context, "find_by_email", "WHERE a.email = $1", email)
}

// ExistsByEmailOrUsername reports which of the two values are already registered.
func (repository *PostgresIdentityStore) ExistsByEmailOrUsername(context context.Context, email, username string) (bool, bool, error) {
	const query = `
		SELECT
			EXISTS (SELECT 1 FROM users.account WHERE email = $1),
			EXISTS (SELECT 1 FROM users.account WHERE username = $2)`

	var emailTaken, usernameTaken bool
	if err := repository.db.QueryRowContext(context, query, email, username).Scan(&emailTaken, &usernameTaken); err != nil {
		return false, false, fmt.Errorf("postgres_identity_store_exists_failed: %w", err)
	}
	return emailTaken, usernameTaken, nil
}

// Create inserts an account. Unique violations are reported per column.
func (repository *PostgresIdentityStore) Create(context context.Context, identity NewIdentity) (*Identity, error) {
	const query = `
		INSERT INTO users.account (
			id, email, username, passwordhash, firstname, lastname, phone, roleid, createdat, updatedat
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`

	if identity.ID == "" {
		identity.ID = uuid.New()
	}

	_, err := repository.db.ExecContext(context, query,
		identity.ID,
		identity.Email,
		identity.Username,
		identity.PasswordHash,
		identity.FirstName,
		identity.LastName,
		identity.Phone,
		identity.RoleID,
		time.Now().UTC(),
	)
	if err != nil {
		if constraint, ok := dberr.UniqueViolation(err); ok {
			switch {
			case strings.Contains(constraint, "email"):
				return nil, ErrEmailAlreadyRegistered.WithCause(err)
			case strings.Contains(constraint, "username"):
				return nil, ErrUsernameTaken.WithCause(err)
			}
		}
		return nil, fmt.Errorf("postgres_identity_store_create_failed: %w", dberr.Wrap(err, "User"))
	}

	return repository.FindByID(context, identity.ID)
}

// UpdatePassword replaces the credential hash.
func (repository *PostgresIdentityStore) UpdatePassword(context context.Context, id, passwordHash string) error {
	const query = "UPDATE users.account SET passwordhash = $2, updatedat = $3 WHERE id = $1"
	return repository.execOne(context, "update_password", query, id, passwordHash, time.Now().UTC())
}

// TouchLastLogin stamps the last successful login.
func (repository *PostgresIdentityStore) TouchLastLogin(context context.Context, id string, at time.Time) error {
	const query = "UPDATE users.account SET lastloginat = $2 WHERE id = $1"
	return repository.execOne(context, "touch_last_login", query, id, at.UTC())
}

// MarkEmailVerified flags the e-mail as verified.
func (repository *PostgresIdentityStore) MarkEmailVerified(context context.Context, id string) error {
	const query = "UPDATE users.account SET emailverified = TRUE, updatedat = $2 WHERE id = $1"
	return repository.execOne(context, "mark_email_verified", query, id, time.Now().UTC())
}

func (repository *PostgresIdentityStore) execOne(context context.Context, operation, query string, args ...any) error {
	result, err := repository.db.ExecContext(context, query, args...)
	if err != nil {
		return fmt.Errorf("postgres_identity_store_%s_failed: %w", operation, err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return apperr.NotFound("User")
	}
	return nil
}

// FindRoleByName resolves a role by its unique name.
func (repository *PostgresIdentityStore) FindRoleByName(context context.Context, name string) (*sec.Role, error) {
	const query = `
		SELECT id, name, description,
		       cancreateposts, canmoderateposts, canmanageusers,
		       canviewreports, canmanagecompany, canadminsystem
		FROM users.role
		WHERE name = $1`

	var (
		role        sec.Role
		description sql.Null[string]
		flags       = make([]bool, len(sec.AllPermissions))
	)

	err := repository.db.QueryRowContext(context, query, name).Scan(
		&role.ID, &role.Name, &description,
		&flags[0], &flags[1], &flags[2], &flags[3], &flags[4], &flags[5],
	)
	if err != nil {
		if dberr.IsNotFound(err) {
			return nil, apperr.NotFound("Role")
		}
		return nil, fmt.Errorf("postgres_identity_store_find_role_failed: %w", err)
	}

	role.Description = nullable(description)
	role.Permissions = sec.PermissionSetFromFlags(flags...)
	return &role, nil
}

// # Session Ledger

// PostgresSessionLedger implements [SessionLedger] on users.session.
type PostgresSessionLedger struct {
	db       *sql.DB
	lifetime time.Duration
	now      func() time.Time
}

// NewSessionLedger creates a ledger whose sessions live for lifetime,
// normally the refresh-token lifetime of the codec.
func NewSessionLedger(db *sql.DB, lifetime time.Duration) *PostgresSessionLedger {
	return &PostgresSessionLedger{db: db, lifetime: lifetime, now: time.Now}
}

// WithClock replaces the ledger's time source. Tests only.
func (ledger *PostgresSessionLedger) WithClock(now func() time.Time) *PostgresSessionLedger {
	ledger.now = now
	return ledger
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (ledger *PostgresSessionLedger) insert(context context.Context, executor execer, refreshToken, identityID, userAgent, ipAddress string) (*Session, error) {
	const query = `
		INSERT INTO users.session (
			id, refreshtokenhash, userid, useragent, ipaddress, expiresat, isvalid, createdat
		) VALUES ($1, $2, $3, $4, $5, $6, TRUE, $7)`

	createdAt := ledger.now().UTC()
	session := &Session{
		ID:         uuid.New(),
		IdentityID: identityID,
		TokenHash:  sec.HashToken(refreshToken),
		UserAgent:  pointer.NonEmpty(truncate(userAgent, maxUserAgentLen)),
		IPAddress:  pointer.NonEmpty(ipAddress),
		ExpiresAt:  createdAt.Add(ledger.lifetime),
		IsValid:    true,
		CreatedAt:  createdAt,
	}

	_, err := executor.ExecContext(context, query,
		session.ID,
		session.TokenHash,
		session.IdentityID,
		session.UserAgent,
		session.IPAddress,
		session.ExpiresAt,
		session.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres_session_ledger_create_failed: %w", dberr.Wrap(err, "Session"))
	}

	return session, nil
}

// Create records a freshly issued refresh token.
func (ledger *PostgresSessionLedger) Create(context context.Context, refreshToken, identityID, userAgent, ipAddress string) (*Session, error) {
	return ledger.insert(context, ledger.db, refreshToken, identityID, userAgent, ipAddress)
}

// IsUsable reports whether the token is valid, unexpired and owned by an active account.
func (ledger *PostgresSessionLedger) IsUsable(context context.Context, refreshToken string) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1
			FROM users.session s
			JOIN users.account a ON a.id = s.userid
			WHERE s.refreshtokenhash = $1 AND s.isvalid AND s.expiresat > $2 AND a.isactive
		)`

	var usable bool
	err := ledger.db.QueryRowContext(context, query, sec.HashToken(refreshToken), ledger.now().UTC()).Scan(&usable)
	if err != nil {
		return false, fmt.Errorf("postgres_session_ledger_is_usable_failed: %w", err)
	}
	return usable, nil
}

// Invalidate marks one session invalid. Unknown tokens are ignored.
func (ledger *PostgresSessionLedger) Invalidate(context context.Context, refreshToken string) error {
	const query = "UPDATE users.session SET isvalid = FALSE WHERE refreshtokenhash = $1"

	if _, err := ledger.db.ExecContext(context, query, sec.HashToken(refreshToken)); err != nil {
		return fmt.Errorf("postgres_session_ledger_invalidate_failed: %w", err)
	}
	return nil
}

// InvalidateAllForIdentity marks every still-valid session of the identity invalid.
func (ledger *PostgresSessionLedger) InvalidateAllForIdentity(context context.Context, identityID string) (int64, error) {
	const query = "UPDATE users.session SET isvalid = FALSE WHERE userid = $1 AND isvalid"

	result, err := ledger.db.ExecContext(context, query, identityID)
	if err != nil {
		return 0, fmt.Errorf("postgres_session_ledger_invalidate_all_failed: %w", err)
	}
	return result.RowsAffected()
}

// InvalidateByID marks one session of the identity invalid.
func (ledger *PostgresSessionLedger) InvalidateByID(context context.Context, identityID, sessionID string) error {
	const query = "UPDATE users.session SET isvalid = FALSE WHERE id = $1 AND userid = $2"

	if !uuid.IsValid(sessionID) {
		return apperr.NotFound("Session")
	}

	result, err := ledger.db.ExecContext(context, query, sessionID, identityID)
	if err != nil {
		return fmt.Errorf("postgres_session_ledger_invalidate_by_id_failed: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres_session_ledger_invalidate_by_id_failed: %w", err)
	}
	if affected == 0 {
		return apperr.NotFound("Session")
	}
	return nil
}

// PurgeExpiredOrInvalid deletes every session that can never be used again.
func (ledger *PostgresSessionLedger) PurgeExpiredOrInvalid(context context.Context) (int64, error) {
	const query = "DELETE FROM users.session WHERE expiresat < $1 OR isvalid = FALSE"

	result, err := ledger.db.ExecContext(context, query, ledger.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("postgres_session_ledger_purge_failed: %w", err)
	}
	return result.RowsAffected()
}

// Rotate invalidates presented and records next atomically.
//
// The conditional UPDATE is the compare-and-swap: under READ COMMITTED a
// concurrent rotation of the same row waits for the first transaction and
// then re-evaluates "isvalid", which is now false, so it matches no row.
func (ledger *PostgresSessionLedger) Rotate(context context.Context, presented, identityID string, next NewSession) (*Session, error) {
	const invalidate = `
		UPDATE users.session
		SET isvalid = FALSE
		WHERE refreshtokenhash = $1 AND userid = $2 AND isvalid AND expiresat > $3`

	transaction, err := ledger.db.BeginTx(context, nil)
	if err != nil {
		return nil, fmt.Errorf("postgres_session_ledger_rotate_begin_failed: %w", err)
	}
	defer func() { _ = transaction.Rollback() }()

	result, err := transaction.ExecContext(context, invalidate, sec.HashToken(presented), identityID, ledger.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("postgres_session_ledger_rotate_invalidate_failed: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("postgres_session_ledger_rotate_invalidate_failed: %w", err)
	}
	if affected == 0 {
		return nil, ErrSessionNotUsable
	}

	session, err := ledger.insert(context, transaction, next.RefreshToken, identityID, next.UserAgent, next.IPAddress)
	if err != nil {
		return nil, err
	}

	if err := transaction.Commit(); err != nil {
		return nil, fmt.Errorf("postgres_session_ledger_rotate_commit_failed: %w", err)
	}

	return session, nil
}

// ListForIdentity returns one page of the identity's usable sessions, newest first.
func (ledger *PostgresSessionLedger) ListForIdentity(context context.Context, identityID string, page pagination.Params) ([]*Session, int, error) {
	const query = `
		SELECT id, userid, useragent, ipaddress, expiresat, isvalid, createdat, COUNT(*) OVER ()
		FROM users.session
		WHERE userid = $1 AND isvalid AND expiresat > $2
		ORDER BY createdat DESC
		LIMIT $3 OFFSET $4`

	page = page.Normalize()
	rows, err := ledger.db.QueryContext(context, query, identityID, ledger.now().UTC(), page.Limit, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("postgres_session_ledger_list_failed: %w", err)
	}
	defer rows.Close()

	var (
		sessions = make([]*Session, 0, page.Limit)
		total    int
	)

	for rows.Next() {
		var (
			session   Session
			userAgent sql.Null[string]
			ipAddress sql.Null[string]
		)
		err := rows.Scan(&session.ID, &session.IdentityID, &userAgent, &ipAddress,
			&session.ExpiresAt, &session.IsValid, &session.CreatedAt, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("postgres_session_ledger_list_scan_failed: %w", err)
		}
		session.UserAgent = nullable(userAgent)
		session.IPAddress = nullable(ipAddress)
		sessions = append(sessions, &session)
	}

	if err := rows.Err(); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, 0, fmt.Errorf("postgres_session_ledger_list_failed: %w", err)
	}

	return sessions, total, nil
}

func truncate(value string, max int) string {
	runes := []rune(value)
	if len(runes) <= max {
		return value
	}
	return string(runes[:max])
}
