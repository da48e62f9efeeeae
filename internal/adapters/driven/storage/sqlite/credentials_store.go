package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/custodia-labs/hrwatch/internal/core/domain"
	"github.com/custodia-labs/hrwatch/internal/core/ports/driven"
)

// credentialStore implements driven.CredentialStore over user_tokens.
type credentialStore struct {
	store *Store
}

var _ driven.CredentialStore = (*credentialStore)(nil)

const credentialColumns = `user_id, access_token, refresh_token, token_type, expires_at, created_at, updated_at`

// Get retrieves a user's credential.
func (s *credentialStore) Get(ctx context.Context, userID string) (*domain.Credential, error) {
	row := s.store.db.QueryRowContext(ctx,
		`SELECT `+credentialColumns+` FROM user_tokens WHERE user_id = ?`, userID)

	cred, err := scanCredential(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return cred, nil
}

// Put creates or replaces a user's credential.
func (s *credentialStore) Put(ctx context.Context, cred domain.Credential) error {
	if cred.UserID == "" {
		return fmt.Errorf("%w: empty user id", domain.ErrInvalidInput)
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO user_tokens (`+credentialColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			token_type = excluded.token_type,
			expires_at = excluded.expires_at,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at
	`, cred.UserID,
		cred.AccessToken,
		nullString(cred.RefreshToken),
		nullString(cred.TokenType),
		formatTime(cred.ExpiresAt),
		formatTime(cred.CreatedAt),
		formatTime(cred.UpdatedAt))
	if err != nil {
		return fmt.Errorf("saving credential: %w", err)
	}
	return nil
}

// Rotate writes the refreshed tokens if refresh_token still equals spent.
func (s *credentialStore) Rotate(ctx context.Context, cred domain.Credential, spent string) (bool, error) {
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE user_tokens SET
			access_token = ?,
			refresh_token = ?,
			token_type = ?,
			expires_at = ?,
			updated_at = ?
		WHERE user_id = ? AND refresh_token = ?
	`, cred.AccessToken,
		nullString(cred.RefreshToken),
		nullString(cred.TokenType),
		formatTime(cred.ExpiresAt),
		formatTime(cred.UpdatedAt),
		cred.UserID,
		spent)
	if err != nil {
		return false, fmt.Errorf("rotating credential: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rotating credential: %w", err)
	}
	return n == 1, nil
}

// Delete removes a user's credential. Deleting a missing user is not an error.
func (s *credentialStore) Delete(ctx context.Context, userID string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM user_tokens WHERE user_id = ?", userID)
	if err != nil {
		return fmt.Errorf("deleting credential: %w", err)
	}
	return nil
}

// List returns every stored credential ordered by user id.
func (s *credentialStore) List(ctx context.Context) ([]domain.Credential, error) {
	rows, err := s.store.db.QueryContext(ctx,
		`SELECT `+credentialColumns+` FROM user_tokens ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("querying credentials: %w", err)
	}
	defer rows.Close()

	var creds []domain.Credential //nolint:prealloc // size unknown from query
	for rows.Next() {
		cred, err := scanCredential(rows.Scan)
		if err != nil {
			return nil, err
		}
		creds = append(creds, *cred)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating credentials: %w", err)
	}
	return creds, nil
}

func scanCredential(scan func(dest ...any) error) (*domain.Credential, error) {
	var cred domain.Credential
	var refreshToken, tokenType sql.NullString
	var expiresAt, createdAt, updatedAt string

	if err := scan(&cred.UserID, &cred.AccessToken, &refreshToken, &tokenType,
		&expiresAt, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning credential: %w", err)
	}

	cred.RefreshToken = refreshToken.String
	cred.TokenType = tokenType.String
	cred.ExpiresAt = parseTime(expiresAt)
	cred.CreatedAt = parseTime(createdAt)
	cred.UpdatedAt = parseTime(updatedAt)
	return &cred, nil
}
