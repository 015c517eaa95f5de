package models

import (
	"time"
)

// Supported difficulty levels
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// Recipe defaults applied when a field is not supplied
const (
	DefaultServings   = 1
	DefaultDifficulty = DifficultyMedium
	DefaultCategory   = "Uncategorized"
	DefaultCuisine    = "General"
)

// RecipeDB represents a recipe row joined with its author's username
type RecipeDB struct {
	ID              int64     `db:"id"`               // Primary key
	Title           string    `db:"title"`            // Recipe title
	Description     string    `db:"description"`      // Short description
	Ingredients     string    `db:"ingredients"`      // Free text ingredient list
	Instructions    string    `db:"instructions"`     // Free text steps
	PreparationTime int       `db:"preparation_time"` // Minutes
	CookingTime     int       `db:"cooking_time"`     // Minutes
	Servings        int       `db:"servings"`         // Number of portions
	Difficulty      string    `db:"difficulty"`       // easy, medium or hard
	Category        string    `db:"category"`         // Free text category
	Cuisine         string    `db:"cuisine"`          // Free text cuisine
	AuthorID        *int64    `db:"author_id"`        // Owning user, nullable
	Author          *string   `db:"author"`           // Owning user's username
	IsPublic        bool      `db:"is_public"`        // Visible to everyone
	Image           *string   `db:"image"`            // Storage reference
	CreatedAt       time.Time `db:"created_at"`       // Creation timestamp
	UpdatedAt       time.Time `db:"updated_at"`       // Last update timestamp
}

// Recipe is the rendered representation of a recipe
// swagger:model Recipe
type Recipe struct {
	ID              int64     `json:"id" example:"1"`
	Title           string    `json:"title" example:"Tomato soup"`
	Description     string    `json:"description" example:"A warming soup"`
	Ingredients     string    `json:"ingredients" example:"tomatoes, onion, garlic"`
	Instructions    string    `json:"instructions" example:"Chop, simmer, blend"`
	PreparationTime int       `json:"preparation_time" example:"10"`
	CookingTime     int       `json:"cooking_time" example:"30"`
	Servings        int       `json:"servings" example:"4"`
	Difficulty      string    `json:"difficulty" example:"easy"`
	Category        string    `json:"category" example:"Soup"`
	Cuisine         string    `json:"cuisine" example:"Italian"`
	Author          *string   `json:"author" example:"chef1"`
	AuthorID        *int64    `json:"-"`
	IsPublic        bool      `json:"is_public" example:"true"`
	Image           *string   `json:"-"`
	ImageURL        *string   `json:"image_url" example:"http://localhost:8080/media/recipe_images/soup-1a2b3c4d.png"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ToRecipe converts a database row into its rendered form without the image URL.
func (r *RecipeDB) ToRecipe() *Recipe {
	return &Recipe{
		ID:              r.ID,
		Title:           r.Title,
		Description:     r.Description,
		Ingredients:     r.Ingredients,
		Instructions:    r.Instructions,
		PreparationTime: r.PreparationTime,
		CookingTime:     r.CookingTime,
		Servings:        r.Servings,
		Difficulty:      r.Difficulty,
		Category:        r.Category,
		Cuisine:         r.Cuisine,
		Author:          r.Author,
		AuthorID:        r.AuthorID,
		IsPublic:        r.IsPublic,
		Image:           r.Image,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

// IsOwnedBy reports whether userID is the recipe's author.
func (r *Recipe) IsOwnedBy(userID int64) bool {
	return r.AuthorID != nil && *r.AuthorID == userID
}

// RecipeInput carries recipe fields decoded from a request; nil means "not supplied".
type RecipeInput struct {
	Title           *string
	Description     *string
	Ingredients     *string
	Instructions    *string
	PreparationTime *int
	CookingTime     *int
	Servings        *int
	Difficulty      *string
	Category        *string
	Cuisine         *string
	IsPublic        *bool

	// FieldErrors holds decoding problems (e.g. "servings": "must be an integer")
	// found before the input reached the service.
	FieldErrors map[string]string
}

// ImageUpload is a decoded image ready to be handed to storage.
type ImageUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// RecipeFilter describes a recipe listing query.
type RecipeFilter struct {
	Category   string
	Cuisine    string
	Difficulty string
	Search     string
	Ordering   string

	// Visibility: PublicOnly restricts to is_public recipes; otherwise a set
	// ViewerID allows public recipes plus the viewer's own; with neither set
	// no visibility restriction applies (callers scope by AuthorID).
	AuthorID   *int64
	PublicOnly bool
	ViewerID   *int64

	Page     int // 1-based; 0 disables pagination
	PageSize int
}

// RecipeList is one listing result. Page is 0 when the listing was not paginated.
type RecipeList struct {
	Results  []*Recipe
	Count    int64
	Page     int
	PageSize int
}
