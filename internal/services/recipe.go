package services

//go:generate mockgen -source=recipe.go -destination=mock_recipe.go -package=services

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sbilibin2017/culinary-connect/internal/logger"
	"github.com/sbilibin2017/culinary-connect/internal/models"
	"github.com/segmentio/kafka-go"
)

// Pagination limits for recipe listings.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// maxRecipeNumber is the largest value the integer recipe columns hold.
const maxRecipeNumber = 2147483647

// RecipeFields are the fields required to create a recipe or fully replace one.
var RecipeFields = []string{
	"title", "description", "ingredients", "instructions",
	"preparation_time", "cooking_time", "servings",
	"difficulty", "category", "cuisine",
}

// RecipeReader defines read-only operations for recipes.
type RecipeReader interface {
	GetByID(ctx context.Context, id int64) (*models.RecipeDB, error)
	List(ctx context.Context, filter models.RecipeFilter) ([]*models.RecipeDB, error)
	Count(ctx context.Context, filter models.RecipeFilter) (int64, error)
}

// RecipeWriter defines write operations for recipes.
type RecipeWriter interface {
	Create(ctx context.Context, recipe *models.RecipeDB) (*models.RecipeDB, error)
	Update(ctx context.Context, recipe *models.RecipeDB) (*models.RecipeDB, error)
	SetImage(ctx context.Context, id int64, image *string) error
	Delete(ctx context.Context, id int64) (bool, error)
}

// ImageStorage stores recipe images and renders their URLs.
type ImageStorage interface {
	Save(ctx context.Context, name, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, ref string) error
	URL(ref string) string
}

// KafkaWriter defines a Kafka writer abstraction.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error // Writes messages to Kafka
	Close() error                                                   // Closes the Kafka writer
}

// RecipeService handles recipe listing, CRUD and images.
type RecipeService struct {
	reader      RecipeReader
	writer      RecipeWriter
	users       UserReader
	storage     ImageStorage
	kafkaWriter KafkaWriter // optional
}

// NewRecipeService creates a new RecipeService. kafkaWriter may be nil.
func NewRecipeService(
	reader RecipeReader,
	writer RecipeWriter,
	users UserReader,
	storage ImageStorage,
	kafkaWriter KafkaWriter,
) *RecipeService {
	return &RecipeService{
		reader:      reader,
		writer:      writer,
		users:       users,
		storage:     storage,
		kafkaWriter: kafkaWriter,
	}
}

// canReadRecipe reports whether viewer (nil = anonymous) may see recipe.
func canReadRecipe(recipe *models.RecipeDB, viewer *models.User) bool {
	if recipe.IsPublic {
		return true
	}
	return viewer != nil && recipe.AuthorID != nil && *recipe.AuthorID == viewer.ID
}

// canWriteRecipe reports whether actor may modify or delete recipe.
func canWriteRecipe(recipe *models.RecipeDB, actor *models.User) bool {
	return actor != nil && recipe.AuthorID != nil && *recipe.AuthorID == actor.ID
}

// List returns public recipes plus the viewer's own private ones.
// A non-empty authorUsername narrows the listing to that author.
func (s *RecipeService) List(ctx context.Context, filter models.RecipeFilter, viewer *models.User, authorUsername string) (*models.RecipeList, error) {
	if authorUsername != "" {
		author, err := s.lookupAuthor(ctx, authorUsername)
		if err != nil {
			return nil, err
		}
		filter.AuthorID = &author.ID
	}

	filter.PublicOnly = viewer == nil
	filter.ViewerID = nil
	if viewer != nil {
		filter.ViewerID = &viewer.ID
	}

	return s.list(ctx, filter)
}

// ListMine returns every recipe of user, private ones included.
func (s *RecipeService) ListMine(ctx context.Context, filter models.RecipeFilter, user *models.User) (*models.RecipeList, error) {
	filter.AuthorID = &user.ID
	filter.PublicOnly = false
	filter.ViewerID = nil

	return s.list(ctx, filter)
}

// ListPublicByUsername returns only the public recipes of the named user, whoever asks.
func (s *RecipeService) ListPublicByUsername(ctx context.Context, username string, filter models.RecipeFilter) (*models.RecipeList, error) {
	author, err := s.lookupAuthor(ctx, username)
	if err != nil {
		return nil, err
	}

	filter.AuthorID = &author.ID
	filter.PublicOnly = true
	filter.ViewerID = nil

	return s.list(ctx, filter)
}

// Get returns a recipe the viewer may read.
func (s *RecipeService) Get(ctx context.Context, id int64, viewer *models.User) (*models.Recipe, error) {
	recipe, err := s.readable(ctx, id, viewer)
	if err != nil {
		return nil, err
	}
	return s.render(recipe), nil
}

// Create stores a new recipe authored by author. image is optional; a storage
// failure drops the image and the recipe is created without it.
func (s *RecipeService) Create(ctx context.Context, author *models.User, input models.RecipeInput, image *models.ImageUpload) (*models.Recipe, error) {
	recipe := &models.RecipeDB{
		Servings:   models.DefaultServings,
		Difficulty: models.DefaultDifficulty,
		Category:   models.DefaultCategory,
		Cuisine:    models.DefaultCuisine,
		IsPublic:   true,
		AuthorID:   &author.ID,
	}
	if err := applyRecipeInput(recipe, input, false); err != nil {
		return nil, err
	}

	if image != nil {
		ref, err := s.storage.Save(ctx, image.Filename, image.ContentType, image.Data)
		if err != nil {
			logger.Log.Errorw("failed to store recipe image, creating recipe without it",
				"author_id", author.ID, "filename", image.Filename, "error", err)
		} else {
			recipe.Image = &ref
		}
	}

	created, err := s.writer.Create(ctx, recipe)
	if err != nil {
		logger.Log.Errorw("failed to create recipe", "author_id", author.ID, "error", err)
		if recipe.Image != nil {
			s.deleteImage(ctx, *recipe.Image)
		}
		return nil, err
	}

	s.publishEvent(ctx, models.RecipeCreated, created, author.ID)

	return s.render(created), nil
}

// Update changes a recipe owned by actor. partial=false requires every recipe field.
// A new image replaces the stored one; on storage failure the recipe is left unchanged.
func (s *RecipeService) Update(ctx context.Context, id int64, actor *models.User, input models.RecipeInput, image *models.ImageUpload, partial bool) (*models.Recipe, error) {
	recipe, err := s.writable(ctx, id, actor)
	if err != nil {
		return nil, err
	}

	oldImage := recipe.Image
	if err := applyRecipeInput(recipe, input, partial); err != nil {
		return nil, err
	}

	if image != nil {
		ref, err := s.storage.Save(ctx, image.Filename, image.ContentType, image.Data)
		if err != nil {
			logger.Log.Errorw("failed to store recipe image", "recipe_id", id, "error", err)
			return nil, &StorageError{Op: "save", Err: err}
		}
		recipe.Image = &ref
	}

	updated, err := s.writer.Update(ctx, recipe)
	if err != nil || updated == nil {
		if image != nil {
			s.deleteImage(ctx, *recipe.Image)
		}
		if err != nil {
			logger.Log.Errorw("failed to update recipe", "recipe_id", id, "error", err)
			return nil, err
		}
		return nil, ErrNotFound
	}

	if image != nil && oldImage != nil {
		s.deleteImage(ctx, *oldImage)
	}

	s.publishEvent(ctx, models.RecipeUpdated, updated, actor.ID)

	return s.render(updated), nil
}

// Delete removes a recipe owned by actor together with its image and returns its title.
func (s *RecipeService) Delete(ctx context.Context, id int64, actor *models.User) (string, error) {
	recipe, err := s.writable(ctx, id, actor)
	if err != nil {
		return "", err
	}

	if recipe.Image != nil {
		s.deleteImage(ctx, *recipe.Image)
	}

	deleted, err := s.writer.Delete(ctx, id)
	if err != nil {
		logger.Log.Errorw("failed to delete recipe", "recipe_id", id, "error", err)
		return "", err
	}
	if !deleted {
		return "", ErrNotFound
	}

	s.publishEvent(ctx, models.RecipeDeleted, recipe, actor.ID)

	return recipe.Title, nil
}

// UploadImage attaches image to a recipe owned by actor and returns the image URL.
func (s *RecipeService) UploadImage(ctx context.Context, id int64, actor *models.User, image *models.ImageUpload) (string, error) {
	recipe, err := s.writable(ctx, id, actor)
	if err != nil {
		return "", err
	}

	if image == nil || len(image.Data) == 0 {
		verr := &ValidationError{}
		verr.Add("image", "no image provided")
		return "", verr
	}

	ref, err := s.storage.Save(ctx, image.Filename, image.ContentType, image.Data)
	if err != nil {
		logger.Log.Errorw("failed to store recipe image", "recipe_id", id, "error", err)
		return "", &StorageError{Op: "save", Err: err}
	}

	if err := s.writer.SetImage(ctx, id, &ref); err != nil {
		logger.Log.Errorw("failed to set recipe image", "recipe_id", id, "error", err)
		s.deleteImage(ctx, ref)
		return "", err
	}

	if recipe.Image != nil {
		s.deleteImage(ctx, *recipe.Image)
	}
	recipe.Image = &ref

	s.publishEvent(ctx, models.RecipeImageUploaded, recipe, actor.ID)

	return s.storage.URL(ref), nil
}

func (s *RecipeService) list(ctx context.Context, filter models.RecipeFilter) (*models.RecipeList, error) {
	verr := &ValidationError{}
	if filter.Difficulty != "" && !validDifficulty(filter.Difficulty) {
		verr.Add("difficulty", "select a valid choice: "+filter.Difficulty+" is not one of the available choices")
	}
	if filter.Page < 0 {
		verr.Add("page", "invalid page")
	}
	if filter.Page > 0 {
		switch {
		case filter.PageSize <= 0:
			filter.PageSize = DefaultPageSize
		case filter.PageSize > MaxPageSize:
			filter.PageSize = MaxPageSize
		}
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	rows, err := s.reader.List(ctx, filter)
	if err != nil {
		logger.Log.Errorw("failed to list recipes", "error", err)
		return nil, err
	}

	result := &models.RecipeList{
		Results: make([]*models.Recipe, 0, len(rows)),
		Count:   int64(len(rows)),
	}
	for _, r := range rows {
		result.Results = append(result.Results, s.render(r))
	}

	if filter.Page > 0 {
		result.Page = filter.Page
		result.PageSize = filter.PageSize
		if result.Count, err = s.reader.Count(ctx, filter); err != nil {
			logger.Log.Errorw("failed to count recipes", "error", err)
			return nil, err
		}
	}

	return result, nil
}

func (s *RecipeService) lookupAuthor(ctx context.Context, username string) (*models.User, error) {
	author, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		logger.Log.Errorw("failed to get author", "username", username, "error", err)
		return nil, err
	}
	if author == nil {
		return nil, ErrNotFound
	}
	return author, nil
}

// readable loads a recipe the viewer may see; invisible recipes are reported as missing.
func (s *RecipeService) readable(ctx context.Context, id int64, viewer *models.User) (*models.RecipeDB, error) {
	recipe, err := s.reader.GetByID(ctx, id)
	if err != nil {
		logger.Log.Errorw("failed to get recipe", "recipe_id", id, "error", err)
		return nil, err
	}
	if recipe == nil || !canReadRecipe(recipe, viewer) {
		return nil, ErrNotFound
	}
	return recipe, nil
}

func (s *RecipeService) writable(ctx context.Context, id int64, actor *models.User) (*models.RecipeDB, error) {
	recipe, err := s.readable(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if !canWriteRecipe(recipe, actor) {
		var actorID int64
		if actor != nil {
			actorID = actor.ID
		}
		logger.Log.Infow("recipe modification denied", "recipe_id", id, "user_id", actorID)
		return nil, ErrForbidden
	}
	return recipe, nil
}

func (s *RecipeService) render(r *models.RecipeDB) *models.Recipe {
	recipe := r.ToRecipe()
	if r.Image != nil && *r.Image != "" {
		url := s.storage.URL(*r.Image)
		recipe.ImageURL = &url
	}
	return recipe
}

func (s *RecipeService) deleteImage(ctx context.Context, ref string) {
	if err := s.storage.Delete(ctx, ref); err != nil {
		logger.Log.Errorw("failed to delete recipe image", "image", ref, "error", err)
	}
}

// publishEvent publishes a recipe change to Kafka.
func (s *RecipeService) publishEvent(ctx context.Context, eventType string, recipe *models.RecipeDB, actorID int64) {
	event := models.RecipeEvent{
		EventID:   uuid.NewString(),
		Type:      eventType,
		RecipeID:  recipe.ID,
		AuthorID:  actorID,
		Title:     recipe.Title,
		Timestamp: time.Now().Unix(),
	}

	if s.kafkaWriter == nil {
		logger.Log.Debugw("Kafka writer not configured, skipping publishing", "event_id", event.EventID, "type", eventType)
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		logger.Log.Errorw("Failed to marshal recipe event for Kafka", "event_id", event.EventID, "error", err)
		return
	}

	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(recipe.ID, 10)),
		Value: data,
	}

	if err := s.kafkaWriter.WriteMessages(ctx, msg); err != nil {
		logger.Log.Errorw("Failed to publish recipe event to Kafka", "event_id", event.EventID, "error", err)
	} else {
		logger.Log.Infow("Recipe event published to Kafka", "event_id", event.EventID, "type", eventType, "recipe_id", recipe.ID)
	}
}

func validDifficulty(d string) bool {
	switch d {
	case models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard:
		return true
	}
	return false
}

// applyRecipeInput validates input and copies the supplied fields onto recipe.
// Unless partial, every field in RecipeFields must be supplied.
func applyRecipeInput(recipe *models.RecipeDB, in models.RecipeInput, partial bool) error {
	verr := &ValidationError{}
	for field, msg := range in.FieldErrors {
		verr.Add(field, msg)
	}

	if !partial {
		supplied := map[string]bool{
			"title":            in.Title != nil,
			"description":      in.Description != nil,
			"ingredients":      in.Ingredients != nil,
			"instructions":     in.Instructions != nil,
			"preparation_time": in.PreparationTime != nil,
			"cooking_time":     in.CookingTime != nil,
			"servings":         in.Servings != nil,
			"difficulty":       in.Difficulty != nil,
			"category":         in.Category != nil,
			"cuisine":          in.Cuisine != nil,
		}
		for _, f := range RecipeFields {
			// a field that failed to decode was supplied, just badly
			if _, bad := in.FieldErrors[f]; !supplied[f] && !bad {
				verr.Require(f)
			}
		}
	}

	text := func(field string, v *string, maxLen int, dst *string) {
		if v == nil {
			return
		}
		switch {
		case strings.TrimSpace(*v) == "":
			verr.Add(field, "this field may not be blank")
		case maxLen > 0 && utf8.RuneCountInString(*v) > maxLen:
			verr.Add(field, "ensure this field has no more than "+strconv.Itoa(maxLen)+" characters")
		default:
			*dst = *v
		}
	}
	number := func(field string, v *int, min int, dst *int) {
		if v == nil {
			return
		}
		switch {
		case *v < min:
			verr.Add(field, "ensure this value is greater than or equal to "+strconv.Itoa(min))
		case *v > maxRecipeNumber:
			verr.Add(field, "ensure this value is less than or equal to "+strconv.Itoa(maxRecipeNumber))
		default:
			*dst = *v
		}
	}

	text("title", in.Title, 200, &recipe.Title)
	text("description", in.Description, 0, &recipe.Description)
	text("ingredients", in.Ingredients, 0, &recipe.Ingredients)
	text("instructions", in.Instructions, 0, &recipe.Instructions)
	number("preparation_time", in.PreparationTime, 0, &recipe.PreparationTime)
	number("cooking_time", in.CookingTime, 0, &recipe.CookingTime)
	number("servings", in.Servings, 1, &recipe.Servings)
	if in.Difficulty != nil {
		if validDifficulty(*in.Difficulty) {
			recipe.Difficulty = *in.Difficulty
		} else {
			verr.Add("difficulty", `"`+*in.Difficulty+`" is not a valid choice`)
		}
	}
	text("category", in.Category, 100, &recipe.Category)
	text("cuisine", in.Cuisine, 100, &recipe.Cuisine)
	if in.IsPublic != nil {
		recipe.IsPublic = *in.IsPublic
	}

	return verr.OrNil()
}
