package handlers

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/sbilibin2017/culinary-connect/internal/facades"
	"github.com/sbilibin2017/culinary-connect/internal/models"
)

const imageField = "image"

// multipartMemory is the part of a multipart body kept in memory; the rest spills to temp files.
const multipartMemory = 8 << 20

var errNoImage = errors.New("no image provided")

// recipeForm abstracts over JSON and form encoded recipe bodies.
type recipeForm interface {
	text(field string) (string, bool, error)
	integer(field string) (int, bool, error)
	boolean(field string) (bool, bool, error)
}

// decodeRecipeRequest reads recipe fields and an optional image from a JSON,
// multipart or urlencoded body. Problems with individual fields, the image
// included, are reported through RecipeInput.FieldErrors; only an unreadable
// body is returned as an error.
func decodeRecipeRequest(r *http.Request, maxUpload int64) (models.RecipeInput, *models.ImageUpload, error) {
	in := models.RecipeInput{FieldErrors: map[string]string{}}

	form, image, err := parseRecipeBody(r, maxUpload)
	if err != nil && !errors.Is(err, errNoImage) {
		var ferr *fieldError
		if !errors.As(err, &ferr) {
			return in, nil, err
		}
		in.FieldErrors[ferr.field] = ferr.msg
	}

	texts := []struct {
		field string
		dst   **string
	}{
		{"title", &in.Title},
		{"description", &in.Description},
		{"ingredients", &in.Ingredients},
		{"instructions", &in.Instructions},
		{"difficulty", &in.Difficulty},
		{"category", &in.Category},
		{"cuisine", &in.Cuisine},
	}
	for _, t := range texts {
		v, ok, err := form.text(t.field)
		if err != nil {
			in.FieldErrors[t.field] = err.Error()
		} else if ok {
			*t.dst = &v
		}
	}

	ints := []struct {
		field string
		dst   **int
	}{
		{"preparation_time", &in.PreparationTime},
		{"cooking_time", &in.CookingTime},
		{"servings", &in.Servings},
	}
	for _, n := range ints {
		v, ok, err := form.integer(n.field)
		if err != nil {
			in.FieldErrors[n.field] = err.Error()
		} else if ok {
			*n.dst = &v
		}
	}

	if v, ok, err := form.boolean("is_public"); err != nil {
		in.FieldErrors["is_public"] = err.Error()
	} else if ok {
		in.IsPublic = &v
	}

	if len(in.FieldErrors) == 0 {
		in.FieldErrors = nil
	}
	return in, image, nil
}

// decodeImageRequest reads only the image of a JSON or multipart body.
func decodeImageRequest(r *http.Request, maxUpload int64) (*models.ImageUpload, error) {
	_, image, err := parseRecipeBody(r, maxUpload)
	return image, err
}

// fieldError is a problem with one decoded field.
type fieldError struct {
	field string
	msg   string
}

func (e *fieldError) Error() string {
	return e.field + ": " + e.msg
}

func parseRecipeBody(r *http.Request, maxUpload int64) (recipeForm, *models.ImageUpload, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			return nil, nil, fmt.Errorf("malformed multipart body: %w", err)
		}
		form := valuesForm(r.MultipartForm.Value)
		image, err := multipartImage(r.MultipartForm.File[imageField], maxUpload)
		return form, image, err
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return nil, nil, fmt.Errorf("malformed form body: %w", err)
		}
		return valuesForm(r.PostForm), nil, errNoImage
	default:
		var raw map[string]json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			return nil, nil, fmt.Errorf("malformed JSON body: %w", err)
		}
		form := jsonForm(raw)
		image, err := base64Image(raw[imageField], maxUpload)
		return form, image, err
	}
}

func multipartImage(files []*multipart.FileHeader, maxUpload int64) (*models.ImageUpload, error) {
	if len(files) == 0 {
		return nil, errNoImage
	}
	fh := files[0]
	if fh.Size > maxUpload {
		return nil, tooLarge(maxUpload)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, &fieldError{imageField, "the submitted file could not be read"}
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxUpload+1))
	if err != nil {
		return nil, &fieldError{imageField, "the submitted file could not be read"}
	}
	return newImageUpload(fh.Filename, data, maxUpload)
}

// base64Image decodes a "data:image/png;base64,..." URI or bare base64 string.
func base64Image(raw json.RawMessage, maxUpload int64) (*models.ImageUpload, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, errNoImage
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, &fieldError{imageField, "expected a base64 encoded image"}
	}
	if s == "" {
		return nil, errNoImage
	}

	if strings.HasPrefix(s, "data:") {
		i := strings.Index(s, ";base64,")
		if i < 0 {
			return nil, &fieldError{imageField, "expected a base64 encoded image"}
		}
		s = s[i+len(";base64,"):]
	}

	if int64(base64.StdEncoding.DecodedLen(len(s))) > maxUpload+2 {
		return nil, tooLarge(maxUpload)
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, &fieldError{imageField, "invalid base64 image data"}
	}
	return newImageUpload("", data, maxUpload)
}

// newImageUpload checks size and content. The content type is sniffed from the bytes, never trusted from the client.
func newImageUpload(filename string, data []byte, maxUpload int64) (*models.ImageUpload, error) {
	if len(data) == 0 {
		return nil, &fieldError{imageField, "the submitted file is empty"}
	}
	if int64(len(data)) > maxUpload {
		return nil, tooLarge(maxUpload)
	}

	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return nil, &fieldError{imageField, "upload a valid image, the file you uploaded was either not an image or a corrupted image"}
	}

	if filename == "" {
		filename = "image" + facades.ImageExtension(contentType)
	}

	return &models.ImageUpload{Filename: filename, ContentType: contentType, Data: data}, nil
}

func tooLarge(maxUpload int64) *fieldError {
	return &fieldError{imageField, "the image is larger than " + strconv.FormatInt(maxUpload>>20, 10) + " MB"}
}

type jsonForm map[string]json.RawMessage

func (f jsonForm) raw(field string) (json.RawMessage, bool) {
	v, ok := f[field]
	if !ok || string(v) == "null" {
		return nil, false
	}
	return v, true
}

func (f jsonForm) text(field string) (string, bool, error) {
	v, ok := f.raw(field)
	if !ok {
		return "", false, nil
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return "", true, errors.New("not a valid string")
	}
	return s, true, nil
}

func (f jsonForm) integer(field string) (int, bool, error) {
	v, ok := f.raw(field)
	if !ok {
		return 0, false, nil
	}
	// numeric strings are accepted the same way form bodies are
	n, err := strconv.Atoi(string(bytes.Trim(v, `"`)))
	if err != nil {
		return 0, true, errors.New("a valid integer is required")
	}
	return n, true, nil
}

func (f jsonForm) boolean(field string) (bool, bool, error) {
	v, ok := f.raw(field)
	if !ok {
		return false, false, nil
	}
	var b bool
	if err := json.Unmarshal(v, &b); err == nil {
		return b, true, nil
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return parseFormBool(s)
	}
	return false, true, errors.New("must be a valid boolean")
}

type valuesForm map[string][]string

func (f valuesForm) text(field string) (string, bool, error) {
	v, ok := f[field]
	if !ok || len(v) == 0 {
		return "", false, nil
	}
	return v[0], true, nil
}

func (f valuesForm) integer(field string) (int, bool, error) {
	s, ok, _ := f.text(field)
	if !ok {
		return 0, false, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, true, errors.New("a valid integer is required")
	}
	return n, true, nil
}

func (f valuesForm) boolean(field string) (bool, bool, error) {
	s, ok, _ := f.text(field)
	if !ok {
		return false, false, nil
	}
	return parseFormBool(s)
}

func parseFormBool(s string) (bool, bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on", "t", "y":
		return true, true, nil
	case "false", "0", "no", "off", "f", "n":
		return false, true, nil
	}
	return false, true, errors.New("must be a valid boolean")
}
