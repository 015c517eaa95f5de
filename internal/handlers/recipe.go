package handlers

//go:generate mockgen -source=recipe.go -destination=mock_recipe.go -package=handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sbilibin2017/culinary-connect/internal/middlewares"
	"github.com/sbilibin2017/culinary-connect/internal/models"
	"github.com/sbilibin2017/culinary-connect/internal/services"
)

// RecipeLister lists recipes visible to a viewer.
type RecipeLister interface {
	List(ctx context.Context, filter models.RecipeFilter, viewer *models.User, authorUsername string) (*models.RecipeList, error)
}

// MyRecipeLister lists the caller's own recipes.
type MyRecipeLister interface {
	ListMine(ctx context.Context, filter models.RecipeFilter, user *models.User) (*models.RecipeList, error)
}

// PublicRecipeLister lists the public recipes of a user.
type PublicRecipeLister interface {
	ListPublicByUsername(ctx context.Context, username string, filter models.RecipeFilter) (*models.RecipeList, error)
}

// RecipeGetter reads one recipe.
type RecipeGetter interface {
	Get(ctx context.Context, id int64, viewer *models.User) (*models.Recipe, error)
}

// RecipeCreator creates recipes.
type RecipeCreator interface {
	Create(ctx context.Context, author *models.User, input models.RecipeInput, image *models.ImageUpload) (*models.Recipe, error)
}

// RecipeUpdater updates recipes.
type RecipeUpdater interface {
	Update(ctx context.Context, id int64, actor *models.User, input models.RecipeInput, image *models.ImageUpload, partial bool) (*models.Recipe, error)
}

// RecipeDeleter deletes recipes.
type RecipeDeleter interface {
	Delete(ctx context.Context, id int64, actor *models.User) (string, error)
}

// ImageUploader attaches images to recipes.
type ImageUploader interface {
	UploadImage(ctx context.Context, id int64, actor *models.User, image *models.ImageUpload) (string, error)
}

// RecipePage is a paginated recipe listing
// swagger:model RecipePage
type RecipePage struct {
	Count    int64            `json:"count" example:"42"`
	Page     int              `json:"page" example:"1"`
	PageSize int              `json:"page_size" example:"20"`
	Results  []*models.Recipe `json:"results"`
}

// ImageData is the payload of a successful image upload
// swagger:model ImageData
type ImageData struct {
	ImageURL string `json:"image_url" example:"http://localhost:8080/media/recipe_images/soup-1a2b3c4d.png"`
}

// listData renders a plain array unless the listing was paginated.
func listData(list *models.RecipeList) interface{} {
	if list.Page == 0 {
		return list.Results
	}
	return RecipePage{
		Count:    list.Count,
		Page:     list.Page,
		PageSize: list.PageSize,
		Results:  list.Results,
	}
}

// NewListRecipesHandler returns an HTTP handler listing recipes.
// @Summary List recipes
// @Description Public recipes plus the caller's own private ones. Results are a plain array unless page is given.
// @Tags recipes
// @Produce json
// @Param category query string false "Exact category"
// @Param cuisine query string false "Exact cuisine"
// @Param difficulty query string false "easy, medium or hard"
// @Param search query string false "Case-insensitive match in title, description or ingredients"
// @Param ordering query string false "created_at, updated_at or title, prefix - for descending" default(-created_at)
// @Param author query string false "Only recipes of this username"
// @Param page query int false "1-based page number"
// @Param page_size query int false "Results per page (max 100)" default(20)
// @Success 200 {object} handlers.Response{data=[]models.Recipe} "RECIPES_RETRIEVED"
// @Failure 400 {object} handlers.Response{data=handlers.ValidationErrorData} "Invalid filter"
// @Failure 404 {object} handlers.Response "Unknown author"
// @Router /recipes [get]
func NewListRecipesHandler(svc RecipeLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := parseRecipeFilter(r)
		if err != nil {
			writeError(w, err)
			return
		}

		list, err := svc.List(r.Context(), filter, middlewares.UserFromContext(r.Context()), r.URL.Query().Get("author"))
		if err != nil {
			writeError(w, err)
			return
		}

		writeSuccess(w, http.StatusOK, "RECIPES_RETRIEVED", "Recipes retrieved successfully", listData(list))
	}
}

// NewMyRecipesHandler returns an HTTP handler listing the caller's recipes, private ones included.
// @Summary List my recipes
// @Tags recipes
// @Produce json
// @Param category query string false "Exact category"
// @Param cuisine query string false "Exact cuisine"
// @Param difficulty query string false "easy, medium or hard"
// @Param search query string false "Case-insensitive match in title, description or ingredients"
// @Param ordering query string false "created_at, updated_at or title, prefix - for descending" default(-created_at)
// @Param page query int false "1-based page number"
// @Param page_size query int false "Results per page (max 100)" default(20)
// @Success 200 {object} handlers.Response{data=[]models.Recipe} "RECIPES_RETRIEVED"
// @Failure 400 {object} handlers.Response{data=handlers.ValidationErrorData} "Invalid filter"
// @Failure 401 {object} handlers.Response "Missing or invalid token"
// @Router /my-recipes [get]
// @Security TokenAuth
func NewMyRecipesHandler(svc MyRecipeLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := parseRecipeFilter(r)
		if err != nil {
			writeError(w, err)
			return
		}

		list, err := svc.ListMine(r.Context(), filter, middlewares.UserFromContext(r.Context()))
		if err != nil {
			writeError(w, err)
			return
		}

		writeSuccess(w, http.StatusOK, "RECIPES_RETRIEVED", "Recipes retrieved successfully", listData(list))
	}
}

// NewPublicRecipesHandler returns an HTTP handler listing the public recipes of a user.
// @Summary List a user's public recipes
// @Tags recipes
// @Produce json
// @Param username path string true "Username"
// @Param category query string false "Exact category"
// @Param cuisine query string false "Exact cuisine"
// @Param difficulty query string false "easy, medium or hard"
// @Param search query string false "Case-insensitive match in title, description or ingredients"
// @Param ordering query string false "created_at, updated_at or title, prefix - for descending" default(-created_at)
// @Param page query int false "1-based page number"
// @Param page_size query int false "Results per page (max 100)" default(20)
// @Success 200 {object} handlers.Response{data=[]models.Recipe} "RECIPES_RETRIEVED"
// @Failure 404 {object} handlers.Response "Unknown user"
// @Router /users/{username}/public-recipes [get]
func NewPublicRecipesHandler(svc PublicRecipeLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := parseRecipeFilter(r)
		if err != nil {
			writeError(w, err)
			return
		}

		list, err := svc.ListPublicByUsername(r.Context(), chi.URLParam(r, "username"), filter)
		if err != nil {
			writeError(w, err)
			return
		}

		writeSuccess(w, http.StatusOK, "RECIPES_RETRIEVED", "Recipes retrieved successfully", listData(list))
	}
}

// NewGetRecipeHandler returns an HTTP handler rendering one recipe.
// @Summary Get recipe
// @Description Private recipes are only visible to their author.
// @Tags recipes
// @Produce json
// @Param id path int true "Recipe ID"
// @Success 200 {object} handlers.Response{data=models.Recipe} "RECIPE_RETRIEVED"
// @Failure 404 {object} handlers.Response "Not found"
// @Router /recipes/{id} [get]
func NewGetRecipeHandler(svc RecipeGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := recipeID(r)
		if err != nil {
			writeError(w, err)
			return
		}

		recipe, err := svc.Get(r.Context(), id, middlewares.UserFromContext(r.Context()))
		if err != nil {
			writeError(w, err)
			return
		}

		writeSuccess(w, http.StatusOK, "RECIPE_RETRIEVED", "Recipe retrieved successfully", recipe)
	}
}

// NewCreateRecipeHandler returns an HTTP handler creating a recipe owned by the caller.
// @Summary Create recipe
// @Description Accepts JSON (image as a base64 data URI) or multipart/form-data (image as a file part). All recipe fields except is_public and image are required. An image that cannot be stored is dropped and the recipe is still created.
// @Tags recipes
// @Accept json,mpfd
// @Produce json
// @Param recipe body handlers.RecipeRequest true "Recipe"
// @Success 201 {object} handlers.Response{data=models.Recipe} "RECIPE_CREATED"
// @Failure 400 {object} handlers.Response{data=handlers.ValidationErrorData} "MISSING_FIELDS or VALIDATION_ERROR"
// @Failure 401 {object} handlers.Response "Missing or invalid token"
// @Failure 500 {object} handlers.Response "Internal server error"
// @Router /recipes [post]
// @Security TokenAuth
func NewCreateRecipeHandler(svc RecipeCreator, maxUpload int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		input, image, err := decodeRecipeRequest(r, maxUpload)
		if err != nil {
			writeBadRequest(w, err)
			return
		}

		recipe, err := svc.Create(r.Context(), middlewares.UserFromContext(r.Context()), input, image)
		if err != nil {
			writeError(w, err)
			return
		}

		writeSuccess(w, http.StatusCreated, "RECIPE_CREATED", "Recipe created successfully", recipe)
	}
}

// NewUpdateRecipeHandler returns an HTTP handler updating a recipe owned by the caller.
// partial selects PATCH semantics; otherwise every recipe field is required.
// @Summary Update recipe
// @Description PUT replaces all recipe fields, PATCH changes any subset. A new image replaces the stored one.
// @Tags recipes
// @Accept json,mpfd
// @Produce json
// @Param id path int true "Recipe ID"
// @Param recipe body handlers.RecipeRequest true "Recipe fields"
// @Success 200 {object} handlers.Response{data=models.Recipe} "RECIPE_UPDATED"
// @Failure 400 {object} handlers.Response{data=handlers.ValidationErrorData} "Invalid input"
// @Failure 401 {object} handlers.Response "Missing or invalid token"
// @Failure 403 {object} handlers.Response "Not the author"
// @Failure 404 {object} handlers.Response "Not found"
// @Failure 500 {object} handlers.Response "STORAGE_ERROR"
// @Router /recipes/{id} [put]
// @Router /recipes/{id} [patch]
// @Security TokenAuth
func NewUpdateRecipeHandler(svc RecipeUpdater, maxUpload int64, partial bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := recipeID(r)
		if err != nil {
			writeError(w, err)
			return
		}

		input, image, err := decodeRecipeRequest(r, maxUpload)
		if err != nil {
			writeBadRequest(w, err)
			return
		}

		recipe, err := svc.Update(r.Context(), id, middlewares.UserFromContext(r.Context()), input, image, partial)
		if err != nil {
			writeError(w, err)
			return
		}

		writeSuccess(w, http.StatusOK, "RECIPE_UPDATED", "Recipe updated successfully", recipe)
	}
}

// NewDeleteRecipeHandler returns an HTTP handler deleting a recipe owned by the caller.
// @Summary Delete recipe
// @Description Deletes the recipe and its stored image. Failure to remove the image does not block deletion.
// @Tags recipes
// @Produce json
// @Param id path int true "Recipe ID"
// @Success 200 {object} handlers.Response "RECIPE_DELETED"
// @Failure 401 {object} handlers.Response "Missing or invalid token"
// @Failure 403 {object} handlers.Response "Not the author"
// @Failure 404 {object} handlers.Response "Not found"
// @Router /recipes/{id} [delete]
// @Security TokenAuth
func NewDeleteRecipeHandler(svc RecipeDeleter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := recipeID(r)
		if err != nil {
			writeError(w, err)
			return
		}

		title, err := svc.Delete(r.Context(), id, middlewares.UserFromContext(r.Context()))
		if err != nil {
			writeError(w, err)
			return
		}

		writeSuccess(w, http.StatusOK, "RECIPE_DELETED", "Recipe '"+title+"' deleted successfully", nil)
	}
}

// NewUploadImageHandler returns an HTTP handler attaching an image to a recipe owned by the caller.
// @Summary Upload recipe image
// @Description Stores the image and replaces the previous one.
// @Tags recipes
// @Accept mpfd,json
// @Produce json
// @Param id path int true "Recipe ID"
// @Param image formData file true "Image file"
// @Success 200 {object} handlers.Response{data=handlers.ImageData} "IMAGE_UPLOADED"
// @Failure 400 {object} handlers.Response{data=handlers.ValidationErrorData} "No or invalid image"
// @Failure 401 {object} handlers.Response "Missing or invalid token"
// @Failure 403 {object} handlers.Response "Not the author"
// @Failure 404 {object} handlers.Response "Not found"
// @Failure 500 {object} handlers.Response "STORAGE_ERROR"
// @Router /recipes/{id}/upload-image [post]
// @Security TokenAuth
func NewUploadImageHandler(svc ImageUploader, maxUpload int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := recipeID(r)
		if err != nil {
			writeError(w, err)
			return
		}

		image, err := decodeImageRequest(r, maxUpload)
		var ferr *fieldError
		switch {
		case errors.Is(err, errNoImage):
			image = nil
		case errors.As(err, &ferr):
			verr := &services.ValidationError{}
			verr.Add(ferr.field, ferr.msg)
			writeError(w, verr)
			return
		case err != nil:
			writeBadRequest(w, err)
			return
		}

		url, err := svc.UploadImage(r.Context(), id, middlewares.UserFromContext(r.Context()), image)
		if err != nil {
			writeError(w, err)
			return
		}

		writeSuccess(w, http.StatusOK, "IMAGE_UPLOADED", "Image uploaded successfully", ImageData{ImageURL: url})
	}
}

// RecipeRequest documents the recipe body; requests are decoded field by field
// swagger:model RecipeRequest
type RecipeRequest struct {
	Title           string `json:"title" example:"Tomato soup"`
	Description     string `json:"description" example:"A warming soup"`
	Ingredients     string `json:"ingredients" example:"tomatoes, onion, garlic"`
	Instructions    string `json:"instructions" example:"Chop, simmer, blend"`
	PreparationTime int    `json:"preparation_time" example:"10"`
	CookingTime     int    `json:"cooking_time" example:"30"`
	Servings        int    `json:"servings" example:"4"`
	Difficulty      string `json:"difficulty" example:"easy" enums:"easy,medium,hard"`
	Category        string `json:"category" example:"Soup"`
	Cuisine         string `json:"cuisine" example:"Italian"`
	IsPublic        *bool  `json:"is_public" example:"true"`
	// base64 data URI, e.g. data:image/png;base64,iVBOR...
	Image *string `json:"image"`
}
