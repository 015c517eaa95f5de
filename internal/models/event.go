package models

// Recipe event types published to the message broker.
const (
	RecipeCreated       = "recipe.created"
	RecipeUpdated       = "recipe.updated"
	RecipeDeleted       = "recipe.deleted"
	RecipeImageUploaded = "recipe.image_uploaded"
)

// RecipeEvent describes a change to a recipe.
type RecipeEvent struct {
	EventID   string `json:"event_id"`  // EventID is a unique identifier for the event.
	Type      string `json:"type"`      // Type is one of the recipe.* constants.
	RecipeID  int64  `json:"recipe_id"` // RecipeID is the changed recipe.
	AuthorID  int64  `json:"author_id"` // AuthorID is the user who made the change.
	Title     string `json:"title"`     // Title of the recipe at the time of the change.
	Timestamp int64  `json:"timestamp"` // Timestamp is the Unix time in seconds.
}
