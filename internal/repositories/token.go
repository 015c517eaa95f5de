package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sbilibin2017/culinary-connect/internal/logger"
	"github.com/sbilibin2017/culinary-connect/internal/models"
)

// TokenRepository stores API tokens, one per user
type TokenRepository struct {
	db       *sqlx.DB
	txGetter func(ctx context.Context) *sqlx.Tx
}

func NewTokenRepository(db *sqlx.DB, txGetter func(ctx context.Context) *sqlx.Tx) *TokenRepository {
	return &TokenRepository{db: db, txGetter: txGetter}
}

// GetOrCreate returns the user's token, inserting candidateKey when the user has none.
func (r *TokenRepository) GetOrCreate(ctx context.Context, userID int64, candidateKey string) (*models.AuthToken, error) {
	const insert = `
		INSERT INTO auth_tokens (token, user_id, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO NOTHING
	`
	const query = `SELECT token, user_id, created_at FROM auth_tokens WHERE user_id = ?`

	executor := executorFrom(ctx, r.db, r.txGetter)

	res, err := executor.ExecContext(ctx, executor.Rebind(insert), candidateKey, userID, time.Now().UTC())
	var rowsAffected int64
	if res != nil {
		rowsAffected, _ = res.RowsAffected()
	}

	logger.Log.Infow("db query",
		"query", logger.OneLine(insert),
		"args", []any{userID},
		"result", rowsAffected,
		"error", err,
	)

	if err != nil {
		return nil, err
	}

	var token models.AuthToken
	err = sqlx.GetContext(ctx, executor, &token, executor.Rebind(query), userID)

	logger.Log.Infow("db query",
		"query", logger.OneLine(query),
		"args", []any{userID},
		"result", rowsAffected == 1,
		"error", err,
	)

	if err != nil {
		return nil, err
	}
	return &token, nil
}

// GetByKey returns the token with the given key; nil when absent.
func (r *TokenRepository) GetByKey(ctx context.Context, key string) (*models.AuthToken, error) {
	const query = `SELECT token, user_id, created_at FROM auth_tokens WHERE token = ?`

	executor := executorFrom(ctx, r.db, r.txGetter)

	var token models.AuthToken
	err := sqlx.GetContext(ctx, executor, &token, executor.Rebind(query), key)

	logger.Log.Infow("db query",
		"query", logger.OneLine(query),
		"result", token.UserID,
		"error", err,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// DeleteByKey removes a single token and reports how many rows were deleted.
func (r *TokenRepository) DeleteByKey(ctx context.Context, key string) (int64, error) {
	const query = `DELETE FROM auth_tokens WHERE token = ?`

	executor := executorFrom(ctx, r.db, r.txGetter)
	res, err := executor.ExecContext(ctx, executor.Rebind(query), key)
	var rowsAffected int64
	if res != nil {
		rowsAffected, _ = res.RowsAffected()
	}

	logger.Log.Infow("db query",
		"query", logger.OneLine(query),
		"result", rowsAffected,
		"error", err,
	)

	return rowsAffected, err
}

// DeleteByUserID removes every token of the user and returns the deleted keys.
func (r *TokenRepository) DeleteByUserID(ctx context.Context, userID int64) ([]string, error) {
	const query = `DELETE FROM auth_tokens WHERE user_id = ? RETURNING token`

	executor := executorFrom(ctx, r.db, r.txGetter)

	var keys []string
	err := sqlx.SelectContext(ctx, executor, &keys, executor.Rebind(query), userID)

	logger.Log.Infow("db query",
		"query", logger.OneLine(query),
		"args", []any{userID},
		"result", len(keys),
		"error", err,
	)

	if err != nil {
		return nil, err
	}
	return keys, nil
}
