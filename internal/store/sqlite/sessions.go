package sqlite

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/flabwick/papyrus/internal/apperr"
	"github.com/flabwick/papyrus/internal/models"
)

// randomToken returns a 256-bit opaque session/bearer token, hex-encoded.
func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

type SessionStore struct {
	db *sql.DB
}

func NewSessionStore(db *sql.DB) *SessionStore { return &SessionStore{db: db} }

// Create mints a new Session token, used for both the web cookie session and
// the CLI bearer token; ttl controls expiry, which callers set short for web
// sessions and long for CLI tokens.
func (s *SessionStore) Create(ctx context.Context, userID string, isCLI bool, ttl time.Duration) (*models.Session, error) {
	token, err := randomToken()
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}
	now := time.Now()
	sess := &models.Session{
		ID:        uuid.Must(uuid.NewV7()).String(),
		UserID:    userID,
		Token:     token,
		IsCLI:     isCLI,
		ExpiresAt: now.Add(ttl),
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, token, is_cli, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.UserID, sess.Token, boolToInt(sess.IsCLI), nowString(now), nowString(sess.ExpiresAt),
	)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	sess.CreatedAt = now
	return sess, nil
}

func (s *SessionStore) GetByToken(ctx context.Context, token string) (*models.Session, error) {
	var sess models.Session
	var isCLI int
	var createdAt, expiresAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, token, is_cli, created_at, expires_at FROM sessions WHERE token = ?`, token,
	).Scan(&sess.ID, &sess.UserID, &sess.Token, &isCLI, &createdAt, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("session", "session not found")
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	sess.IsCLI = isCLI != 0
	sess.CreatedAt = parseTime(createdAt)
	sess.ExpiresAt = parseTime(expiresAt)
	if time.Now().After(sess.ExpiresAt) {
		return nil, apperr.Unauthorized("session expired")
	}
	return &sess, nil
}

func (s *SessionStore) Delete(ctx context.Context, token string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("session", "session not found")
	}
	return nil
}
