package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sbilibin2017/culinary-connect/internal/models"
	"github.com/sbilibin2017/culinary-connect/internal/services"
)

// parseRecipeFilter reads filtering, search, ordering and pagination query parameters.
func parseRecipeFilter(r *http.Request) (models.RecipeFilter, error) {
	q := r.URL.Query()

	filter := models.RecipeFilter{
		Category:   q.Get("category"),
		Cuisine:    q.Get("cuisine"),
		Difficulty: q.Get("difficulty"),
		Search:     strings.TrimSpace(q.Get("search")),
		Ordering:   q.Get("ordering"),
	}

	verr := &services.ValidationError{}
	if v := q.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			verr.Add("page", "invalid page")
		}
		filter.Page = page
	}
	if v := q.Get("page_size"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil || size < 1 {
			verr.Add("page_size", "a positive integer is required")
		}
		filter.PageSize = size
	}

	return filter, verr.OrNil()
}

// recipeID reads the {id} path parameter. Non-numeric ids are reported as not found.
func recipeID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		return 0, services.ErrNotFound
	}
	return id, nil
}
