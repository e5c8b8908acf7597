package userservice

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base32"
	"errors"
	"time"

	"github.com/sushihentaime/blogdesk/internal/common"
)

func hashToken(token string) []byte {
	hash := sha256.Sum256([]byte(token))
	return hash[:]
}

func newToken(userID int, ttl time.Duration, scope tokenScope) (*Token, error) {
	randomBytes := make([]byte, 16)
	_, err := rand.Read(randomBytes)
	if err != nil {
		return nil, err
	}

	token := &Token{
		Plain:  base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(randomBytes),
		UserID: userID,
		Expiry: time.Now().Add(ttl),
		Scope:  scope,
	}

	token.Hash = hashToken(token.Plain)

	return token, nil
}

func (m *UserModel) createToken(ctx context.Context, q dbtx, userID int, ttl time.Duration, scope tokenScope) (*Token, error) {
	token, err := newToken(userID, ttl, scope)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO tokens (hash, user_id, expiry, scope)
		VALUES ($1, $2, $3, $4)`

	_, err = q.ExecContext(ctx, query, token.Hash, token.UserID, token.Expiry, string(token.Scope))
	if err != nil {
		return nil, common.StoreError(err)
	}

	return token, nil
}

// getUserForToken returns the owner of an unexpired token of the given scope,
// with its permissions.
func (m *UserModel) getUserForToken(ctx context.Context, scope tokenScope, plain string) (*User, error) {
	query := `
		SELECT u.id, u.username, u.email, u.activated, u.created_at, u.updated_at, u.version
		FROM users u
		INNER JOIN tokens t ON u.id = t.user_id
		WHERE t.hash = $1 AND t.scope = $2 AND t.expiry > $3`

	var u User
	err := m.db.QueryRowContext(ctx, query, hashToken(plain), string(scope), time.Now()).Scan(&u.ID, &u.Username, &u.Email, &u.Activated, &u.CreatedAt, &u.UpdatedAt, &u.Version)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, common.ErrRecordNotFound
		default:
			return nil, common.StoreError(err)
		}
	}

	u.Permissions, err = m.getPermissions(ctx, u.ID)
	if err != nil {
		return nil, common.StoreError(err)
	}

	return &u, nil
}

func (m *UserModel) deleteTokens(ctx context.Context, q dbtx, userID int, scope tokenScope) error {
	query := `
		DELETE FROM tokens
		WHERE user_id = $1 AND scope = $2`

	_, err := q.ExecContext(ctx, query, userID, string(scope))
	return common.StoreError(err)
}
