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

const userColumns = `id, username, email, password, first_name, last_name, bio,
	date_of_birth, is_active, created_at, updated_at`

// UserReadRepository handles user lookups
type UserReadRepository struct {
	db       *sqlx.DB
	txGetter func(ctx context.Context) *sqlx.Tx
}

func NewUserReadRepository(db *sqlx.DB, txGetter func(ctx context.Context) *sqlx.Tx) *UserReadRepository {
	return &UserReadRepository{db: db, txGetter: txGetter}
}

// GetByUsername returns the user with the given username, active or not; nil when absent.
func (r *UserReadRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = ?`
	return r.get(ctx, query, username)
}

// GetByID returns the user with the given id, active or not; nil when absent.
func (r *UserReadRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	return r.get(ctx, query, id)
}

func (r *UserReadRepository) get(ctx context.Context, query string, args ...any) (*models.User, error) {
	executor := executorFrom(ctx, r.db, r.txGetter)

	var user models.User
	err := sqlx.GetContext(ctx, executor, &user, executor.Rebind(query), args...)

	logger.Log.Infow("db query",
		"query", logger.OneLine(query),
		"args", args,
		"result", user.ID,
		"error", err,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UserWriteRepository handles user mutations
type UserWriteRepository struct {
	db       *sqlx.DB
	txGetter func(ctx context.Context) *sqlx.Tx
}

func NewUserWriteRepository(db *sqlx.DB, txGetter func(ctx context.Context) *sqlx.Tx) *UserWriteRepository {
	return &UserWriteRepository{db: db, txGetter: txGetter}
}

// Create inserts an active user and returns the stored row.
func (r *UserWriteRepository) Create(ctx context.Context, username, passwordHash string, p models.Profile) (*models.User, error) {
	query := `
		INSERT INTO users (username, email, password, first_name, last_name, bio,
			date_of_birth, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING ` + userColumns

	now := time.Now().UTC()
	args := []any{username, p.Email, passwordHash, p.FirstName, p.LastName, p.Bio,
		p.DateOfBirth, true, now, now}

	return r.returning(ctx, query, args, []any{username, p.Email})
}

// Reactivate marks an inactive user active again, overwriting its profile and password.
func (r *UserWriteRepository) Reactivate(ctx context.Context, id int64, passwordHash string, p models.Profile) (*models.User, error) {
	query := `
		UPDATE users
		SET email = ?, password = ?, first_name = ?, last_name = ?, bio = ?,
			date_of_birth = ?, is_active = ?, updated_at = ?
		WHERE id = ?
		RETURNING ` + userColumns

	args := []any{p.Email, passwordHash, p.FirstName, p.LastName, p.Bio,
		p.DateOfBirth, true, time.Now().UTC(), id}

	return r.returning(ctx, query, args, []any{id, p.Email})
}

// UpdateProfile overwrites the writable profile fields of a user.
func (r *UserWriteRepository) UpdateProfile(ctx context.Context, id int64, p models.Profile) (*models.User, error) {
	query := `
		UPDATE users
		SET email = ?, first_name = ?, last_name = ?, bio = ?, date_of_birth = ?, updated_at = ?
		WHERE id = ?
		RETURNING ` + userColumns

	args := []any{p.Email, p.FirstName, p.LastName, p.Bio, p.DateOfBirth, time.Now().UTC(), id}

	return r.returning(ctx, query, args, args)
}

// SetActive flips the is_active flag. A missing user yields sql.ErrNoRows.
func (r *UserWriteRepository) SetActive(ctx context.Context, id int64, active bool) error {
	query := `UPDATE users SET is_active = ?, updated_at = ? WHERE id = ?`
	args := []any{active, time.Now().UTC(), id}

	executor := executorFrom(ctx, r.db, r.txGetter)
	res, err := executor.ExecContext(ctx, executor.Rebind(query), args...)
	var rowsAffected int64
	if res != nil {
		rowsAffected, _ = res.RowsAffected()
	}

	logger.Log.Infow("db query",
		"query", logger.OneLine(query),
		"args", args,
		"result", rowsAffected,
		"error", err,
	)

	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// returning runs a statement with a RETURNING clause; logArgs omits the password hash.
func (r *UserWriteRepository) returning(ctx context.Context, query string, args, logArgs []any) (*models.User, error) {
	executor := executorFrom(ctx, r.db, r.txGetter)

	var user models.User
	err := sqlx.GetContext(ctx, executor, &user, executor.Rebind(query), args...)

	logger.Log.Infow("db query",
		"query", logger.OneLine(query),
		"args", logArgs,
		"result", user.ID,
		"error", err,
	)

	if err != nil {
		return nil, err
	}
	return &user, nil
}
