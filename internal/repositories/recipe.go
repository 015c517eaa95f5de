package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sbilibin2017/culinary-connect/internal/logger"
	"github.com/sbilibin2017/culinary-connect/internal/models"
)

const recipeSelect = `
	SELECT r.id, r.title, r.description, r.ingredients, r.instructions,
		r.preparation_time, r.cooking_time, r.servings, r.difficulty,
		r.category, r.cuisine, r.author_id, u.username AS author,
		r.is_public, r.image, r.created_at, r.updated_at
	FROM recipes r
	LEFT JOIN users u ON u.id = r.author_id
`

// DefaultOrdering is applied when a listing names no ordering.
const DefaultOrdering = "-created_at"

var orderingColumns = map[string]string{
	"created_at": "r.created_at",
	"updated_at": "r.updated_at",
	"title":      "r.title",
}

// ValidOrdering reports whether ordering is a known column with an optional "-" prefix.
func ValidOrdering(ordering string) bool {
	_, ok := orderingColumns[strings.TrimPrefix(ordering, "-")]
	return ok
}

// RecipeReadRepository handles recipe queries
type RecipeReadRepository struct {
	db       *sqlx.DB
	txGetter func(ctx context.Context) *sqlx.Tx
}

func NewRecipeReadRepository(db *sqlx.DB, txGetter func(ctx context.Context) *sqlx.Tx) *RecipeReadRepository {
	return &RecipeReadRepository{db: db, txGetter: txGetter}
}

// GetByID returns a recipe with its author's username; nil when absent.
func (r *RecipeReadRepository) GetByID(ctx context.Context, id int64) (*models.RecipeDB, error) {
	return getRecipe(ctx, executorFrom(ctx, r.db, r.txGetter), id)
}

// List returns the recipes matching filter, paginated when filter.Page is set.
func (r *RecipeReadRepository) List(ctx context.Context, filter models.RecipeFilter) ([]*models.RecipeDB, error) {
	where, args := recipeWhere(filter)

	var sb strings.Builder
	sb.WriteString(recipeSelect)
	sb.WriteString(where)
	sb.WriteString(recipeOrderBy(filter.Ordering))
	if filter.Page > 0 && filter.PageSize > 0 {
		sb.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, filter.PageSize, (filter.Page-1)*filter.PageSize)
	}
	query := sb.String()

	executor := executorFrom(ctx, r.db, r.txGetter)

	recipes := []*models.RecipeDB{}
	err := sqlx.SelectContext(ctx, executor, &recipes, executor.Rebind(query), args...)

	logger.Log.Infow("db query",
		"query", logger.OneLine(query),
		"args", args,
		"result", len(recipes),
		"error", err,
	)

	if err != nil {
		return nil, err
	}
	return recipes, nil
}

// Count returns the number of recipes matching filter, ignoring pagination.
func (r *RecipeReadRepository) Count(ctx context.Context, filter models.RecipeFilter) (int64, error) {
	where, args := recipeWhere(filter)
	query := `SELECT COUNT(*) FROM recipes r` + where

	executor := executorFrom(ctx, r.db, r.txGetter)

	var count int64
	err := sqlx.GetContext(ctx, executor, &count, executor.Rebind(query), args...)

	logger.Log.Infow("db query",
		"query", logger.OneLine(query),
		"args", args,
		"result", count,
		"error", err,
	)

	return count, err
}

// RecipeWriteRepository handles recipe mutations
type RecipeWriteRepository struct {
	db       *sqlx.DB
	txGetter func(ctx context.Context) *sqlx.Tx
}

func NewRecipeWriteRepository(db *sqlx.DB, txGetter func(ctx context.Context) *sqlx.Tx) *RecipeWriteRepository {
	return &RecipeWriteRepository{db: db, txGetter: txGetter}
}

// Create inserts a recipe and returns the stored row with its author.
func (r *RecipeWriteRepository) Create(ctx context.Context, recipe *models.RecipeDB) (*models.RecipeDB, error) {
	const query = `
		INSERT INTO recipes (title, description, ingredients, instructions,
			preparation_time, cooking_time, servings, difficulty, category, cuisine,
			author_id, is_public, image, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`

	now := time.Now().UTC()
	args := []any{recipe.Title, recipe.Description, recipe.Ingredients, recipe.Instructions,
		recipe.PreparationTime, recipe.CookingTime, recipe.Servings, recipe.Difficulty,
		recipe.Category, recipe.Cuisine, recipe.AuthorID, recipe.IsPublic, recipe.Image, now, now}

	executor := executorFrom(ctx, r.db, r.txGetter)

	var id int64
	err := sqlx.GetContext(ctx, executor, &id, executor.Rebind(query), args...)

	logger.Log.Infow("db query",
		"query", logger.OneLine(query),
		"args", args,
		"result", id,
		"error", err,
	)

	if err != nil {
		return nil, err
	}
	return getRecipe(ctx, executor, id)
}

// Update overwrites the editable columns of recipe.ID and returns the stored row; nil when absent.
func (r *RecipeWriteRepository) Update(ctx context.Context, recipe *models.RecipeDB) (*models.RecipeDB, error) {
	const query = `
		UPDATE recipes
		SET title = ?, description = ?, ingredients = ?, instructions = ?,
			preparation_time = ?, cooking_time = ?, servings = ?, difficulty = ?,
			category = ?, cuisine = ?, is_public = ?, image = ?, updated_at = ?
		WHERE id = ?
	`

	args := []any{recipe.Title, recipe.Description, recipe.Ingredients, recipe.Instructions,
		recipe.PreparationTime, recipe.CookingTime, recipe.Servings, recipe.Difficulty,
		recipe.Category, recipe.Cuisine, recipe.IsPublic, recipe.Image, time.Now().UTC(), recipe.ID}

	executor := executorFrom(ctx, r.db, r.txGetter)
	rowsAffected, err := exec(ctx, executor, query, args)
	if err != nil {
		return nil, err
	}
	if rowsAffected == 0 {
		return nil, nil
	}
	return getRecipe(ctx, executor, recipe.ID)
}

// SetImage replaces the stored image reference of a recipe.
func (r *RecipeWriteRepository) SetImage(ctx context.Context, id int64, image *string) error {
	const query = `UPDATE recipes SET image = ?, updated_at = ? WHERE id = ?`

	rowsAffected, err := exec(ctx, executorFrom(ctx, r.db, r.txGetter), query, []any{image, time.Now().UTC(), id})
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a recipe and reports whether it existed.
func (r *RecipeWriteRepository) Delete(ctx context.Context, id int64) (bool, error) {
	const query = `DELETE FROM recipes WHERE id = ?`

	rowsAffected, err := exec(ctx, executorFrom(ctx, r.db, r.txGetter), query, []any{id})
	return rowsAffected > 0, err
}

func getRecipe(ctx context.Context, executor sqlx.ExtContext, id int64) (*models.RecipeDB, error) {
	query := recipeSelect + ` WHERE r.id = ?`

	var recipe models.RecipeDB
	err := sqlx.GetContext(ctx, executor, &recipe, executor.Rebind(query), id)

	logger.Log.Infow("db query",
		"query", logger.OneLine(query),
		"args", []any{id},
		"result", recipe.ID,
		"error", err,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &recipe, nil
}

func exec(ctx context.Context, executor sqlx.ExtContext, query string, args []any) (int64, error) {
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

	return rowsAffected, err
}

func recipeWhere(f models.RecipeFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)

	if f.Category != "" {
		conds = append(conds, "r.category = ?")
		args = append(args, f.Category)
	}
	if f.Cuisine != "" {
		conds = append(conds, "r.cuisine = ?")
		args = append(args, f.Cuisine)
	}
	if f.Difficulty != "" {
		conds = append(conds, "r.difficulty = ?")
		args = append(args, f.Difficulty)
	}
	if f.Search != "" {
		pattern := "%" + escapeLike(strings.ToLower(f.Search)) + "%"
		conds = append(conds, `(LOWER(r.title) LIKE ? ESCAPE '\'
			OR LOWER(r.description) LIKE ? ESCAPE '\'
			OR LOWER(r.ingredients) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern, pattern)
	}
	if f.AuthorID != nil {
		conds = append(conds, "r.author_id = ?")
		args = append(args, *f.AuthorID)
	}

	switch {
	case f.PublicOnly:
		conds = append(conds, "r.is_public = ?")
		args = append(args, true)
	case f.ViewerID != nil:
		conds = append(conds, "(r.is_public = ? OR r.author_id = ?)")
		args = append(args, true, *f.ViewerID)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func recipeOrderBy(ordering string) string {
	if !ValidOrdering(ordering) {
		ordering = DefaultOrdering
	}

	dir := " ASC"
	if strings.HasPrefix(ordering, "-") {
		dir = " DESC"
	}
	col := orderingColumns[strings.TrimPrefix(ordering, "-")]

	return " ORDER BY " + col + dir + ", r.id" + dir
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
