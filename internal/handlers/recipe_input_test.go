package handlers

import (
	"bytes"
	"encoding/base64"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sbilibin2017/culinary-connect/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

const maxUpload = 1 << 20

func multipartRequest(t *testing.T, fields map[string]string, filename string, file []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if file != nil {
		fw, err := mw.CreateFormFile("image", filename)
		require.NoError(t, err)
		_, err = fw.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/recipes", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func jsonRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/recipes", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestDecodeRecipeRequest_JSON(t *testing.T) {
	dataURI := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)

	req := jsonRequest(`{
		"title": "Soup", "description": "Hot", "ingredients": "water", "instructions": "boil",
		"preparation_time": 5, "cooking_time": "10", "servings": 2, "difficulty": "easy",
		"category": "Soup", "cuisine": "French", "is_public": false, "image": "` + dataURI + `"
	}`)

	in, image, err := decodeRecipeRequest(req, maxUpload)
	require.NoError(t, err)

	assert.Nil(t, in.FieldErrors)
	assert.Equal(t, "Soup", *in.Title)
	assert.Equal(t, 5, *in.PreparationTime)
	assert.Equal(t, 10, *in.CookingTime)
	assert.Equal(t, 2, *in.Servings)
	assert.False(t, *in.IsPublic)

	require.NotNil(t, image)
	assert.Equal(t, "image.png", image.Filename)
	assert.Equal(t, "image/png", image.ContentType)
	assert.Equal(t, pngBytes, image.Data)
}

func TestDecodeRecipeRequest_JSONFieldErrors(t *testing.T) {
	req := jsonRequest(`{"title": 12, "servings": "four", "is_public": "maybe", "image": "not base64!"}`)

	in, image, err := decodeRecipeRequest(req, maxUpload)
	require.NoError(t, err)
	assert.Nil(t, image)
	assert.Nil(t, in.Title)
	assert.Nil(t, in.Servings)
	assert.Equal(t, map[string]string{
		"title":     "not a valid string",
		"servings":  "a valid integer is required",
		"is_public": "must be a valid boolean",
		"image":     "invalid base64 image data",
	}, in.FieldErrors)
}

func TestDecodeRecipeRequest_NotAnImage(t *testing.T) {
	req := jsonRequest(`{"image": "` + base64.StdEncoding.EncodeToString([]byte("plain text, not a picture")) + `"}`)

	in, image, err := decodeRecipeRequest(req, maxUpload)
	require.NoError(t, err)
	assert.Nil(t, image)
	assert.Contains(t, in.FieldErrors, "image")
}

func TestDecodeRecipeRequest_Multipart(t *testing.T) {
	req := multipartRequest(t, map[string]string{
		"title":     "Cake",
		"servings":  "8",
		"is_public": "true",
	}, "cake.png", pngBytes)

	in, image, err := decodeRecipeRequest(req, maxUpload)
	require.NoError(t, err)
	assert.Nil(t, in.FieldErrors)
	assert.Equal(t, "Cake", *in.Title)
	assert.Equal(t, 8, *in.Servings)
	assert.True(t, *in.IsPublic)
	assert.Nil(t, in.Description)

	require.NotNil(t, image)
	assert.Equal(t, "cake.png", image.Filename)
	assert.Equal(t, "image/png", image.ContentType)
}

func TestDecodeRecipeRequest_MultipartTooLarge(t *testing.T) {
	big := append(append([]byte{}, pngBytes...), bytes.Repeat([]byte{0}, 2048)...)
	req := multipartRequest(t, map[string]string{"servings": "x"}, "big.png", big)

	in, image, err := decodeRecipeRequest(req, 1024)
	require.NoError(t, err)
	assert.Nil(t, image)
	assert.Contains(t, in.FieldErrors, "image")
	assert.Equal(t, "a valid integer is required", in.FieldErrors["servings"])
}

func TestDecodeRecipeRequest_URLEncoded(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/recipes", strings.NewReader("title=Tea&cooking_time=3"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	in, image, err := decodeRecipeRequest(req, maxUpload)
	require.NoError(t, err)
	assert.Nil(t, image)
	assert.Equal(t, "Tea", *in.Title)
	assert.Equal(t, 3, *in.CookingTime)
}

func TestDecodeRecipeRequest_Malformed(t *testing.T) {
	_, _, err := decodeRecipeRequest(jsonRequest(`{"title":`), maxUpload)
	assert.Error(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/recipes", strings.NewReader("garbage"))
	req.Header.Set("Content-Type", "multipart/form-data")
	_, _, err = decodeRecipeRequest(req, maxUpload)
	assert.Error(t, err)
}

func TestDecodeImageRequest(t *testing.T) {
	image, err := decodeImageRequest(multipartRequest(t, nil, "pic.png", pngBytes), maxUpload)
	require.NoError(t, err)
	assert.Equal(t, &models.ImageUpload{Filename: "pic.png", ContentType: "image/png", Data: pngBytes}, image)

	image, err = decodeImageRequest(multipartRequest(t, map[string]string{"title": "x"}, "", nil), maxUpload)
	assert.ErrorIs(t, err, errNoImage)
	assert.Nil(t, image)
}
