package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/sbilibin2017/culinary-connect/internal/config"
	"github.com/sbilibin2017/culinary-connect/internal/database"
)

// resetFlags resets the global flag.CommandLine to avoid "flag redefined" panic
func resetFlags() {
	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ExitOnError)
}

func TestParseFlags_Default(t *testing.T) {
	resetFlags()
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	os.Args = []string{"cmd"}
	assert.Equal(t, "config.env", parseFlags())
}

func TestParseFlags_Custom(t *testing.T) {
	resetFlags()
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	os.Args = []string{"cmd", "-c", "myconfig.env"}
	assert.Equal(t, "myconfig.env", parseFlags())
}

func TestPrintBuildInfo_Output(t *testing.T) {
	// Capture stdout
	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	buildVersion = "v1.0.0"
	buildCommit = "abcd1234"
	buildDate = "2025-09-26"

	printBuildInfo()

	w.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	os.Stdout = oldStdout

	assert.Equal(t, "Starting service version v1.0.0, commit abcd1234, build 2025-09-26\n", buf.String())
}

func TestMediaBaseURL(t *testing.T) {
	cfg := &config.Config{BaseURL: "http://localhost:8080", MediaURL: "/media/"}
	assert.Equal(t, "http://localhost:8080/media/", mediaBaseURL(cfg))

	cfg.MediaURL = "https://cdn.example.com/media/"
	assert.Equal(t, "https://cdn.example.com/media/", mediaBaseURL(cfg))
}

func TestNewImageStorage_Local(t *testing.T) {
	cfg := &config.Config{
		StorageBackend: config.StorageLocal,
		MediaRoot:      t.TempDir(),
		BaseURL:        "http://localhost:8080",
		MediaURL:       "/media/",
	}
	storage, err := newImageStorage(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/media/recipe_images/a.png", storage.URL("recipe_images/a.png"))
}

// ------------------ End-to-end on SQLite ------------------

type apiResponse struct {
	Status  string          `json:"status"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testAPI struct {
	t       *testing.T
	handler http.Handler
}

func newTestAPI(t *testing.T) (*testAPI, *config.Config) {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, config.DriverSQLite, ":memory:", database.Pool{})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(ctx, db))

	cfg := &config.Config{
		BaseURL:        "http://localhost:8080",
		Debug:          true,
		DBDriver:       config.DriverSQLite,
		StorageBackend: config.StorageLocal,
		MediaRoot:      t.TempDir(),
		MediaURL:       "/media/",
		MaxBodyBytes:   12 << 20,
		MaxUploadBytes: 10 << 20,
	}
	storage, err := newImageStorage(ctx, cfg)
	require.NoError(t, err)

	return &testAPI{t: t, handler: newRouter(cfg, db, nil, storage, nil)}, cfg
}

func (a *testAPI) do(req *http.Request, token string) (int, apiResponse) {
	a.t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	rr := httptest.NewRecorder()
	a.handler.ServeHTTP(rr, req)

	var resp apiResponse
	if strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json") {
		require.NoError(a.t, json.Unmarshal(rr.Body.Bytes(), &resp), rr.Body.String())
	}
	return rr.Code, resp
}

func (a *testAPI) json(method, path, token string, body interface{}) (int, apiResponse) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return a.do(req, token)
}

func (a *testAPI) register(username string) string {
	a.t.Helper()
	status, resp := a.json(http.MethodPost, "/api/users/register/", "", map[string]string{
		"username": username,
		"password": "secret123",
		"email":    username + "@example.com",
	})
	require.Equal(a.t, http.StatusCreated, status, resp.Message)
	require.Equal(a.t, "ACCOUNT_CREATED", resp.Code)

	var data struct {
		Token string `json:"token"`
	}
	require.NoError(a.t, json.Unmarshal(resp.Data, &data))
	require.NotEmpty(a.t, data.Token)
	return data.Token
}

func fullRecipe() map[string]interface{} {
	return map[string]interface{}{
		"title":            "Tomato soup",
		"description":      "A warming soup",
		"ingredients":      "tomatoes, onion, garlic",
		"instructions":     "Chop, simmer, blend",
		"preparation_time": 10,
		"cooking_time":     30,
		"servings":         4,
		"difficulty":       "easy",
		"category":         "Soup",
		"cuisine":          "Italian",
	}
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestRouter_ExampleFlow(t *testing.T) {
	api, cfg := newTestAPI(t)

	// register chef1
	t1 := api.register("chef1")

	// wrong password
	status, resp := api.json(http.MethodPost, "/api/login/", "", map[string]string{"username": "chef1", "password": "wrong"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_CREDENTIALS", resp.Code)

	// right password reuses the token
	status, resp = api.json(http.MethodPost, "/api/login/", "", map[string]string{"username": "chef1", "password": "secret123"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "LOGIN_SUCCESSFUL", resp.Code)
	var login struct {
		Token string `json:"token"`
		Email string `json:"email"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &login))
	assert.Equal(t, t1, login.Token)
	assert.Equal(t, "chef1@example.com", login.Email)

	// missing servings
	partial := fullRecipe()
	delete(partial, "servings")
	status, resp = api.json(http.MethodPost, "/api/recipes/", t1, partial)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "MISSING_FIELDS", resp.Code)
	var verr struct {
		MissingFields []string `json:"missing_fields"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &verr))
	assert.Equal(t, []string{"servings"}, verr.MissingFields)

	// full create
	status, resp = api.json(http.MethodPost, "/api/recipes/", t1, fullRecipe())
	require.Equal(t, http.StatusCreated, status, resp.Message)
	assert.Equal(t, "RECIPE_CREATED", resp.Code)
	var recipe struct {
		ID       int64   `json:"id"`
		Author   string  `json:"author"`
		IsPublic bool    `json:"is_public"`
		ImageURL *string `json:"image_url"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &recipe))
	assert.Equal(t, "chef1", recipe.Author)
	assert.True(t, recipe.IsPublic)
	assert.Nil(t, recipe.ImageURL)

	recipePath := fmt.Sprintf("/api/recipes/%d/", recipe.ID)

	// another user cannot delete it
	t2 := api.register("chef2")
	status, resp = api.json(http.MethodDelete, recipePath, t2, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", resp.Code)

	// anonymous listing sees the public recipe
	status, resp = api.json(http.MethodGet, "/api/recipes/?search=TOMATO", "", nil)
	require.Equal(t, http.StatusOK, status)
	var list []map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Data, &list))
	assert.Len(t, list, 1)

	// public recipes of chef1, and none for chef2
	status, resp = api.json(http.MethodGet, "/api/users/chef1/public-recipes/", "", nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(resp.Data, &list))
	assert.Len(t, list, 1)
	status, resp = api.json(http.MethodGet, "/api/users/chef2/public-recipes/", "", nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(resp.Data, &list))
	assert.Empty(t, list)

	// upload an image and fetch it from the media route
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", "Tomato Soup.png")
	require.NoError(t, err)
	_, err = part.Write(testPNG(t))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, recipePath+"upload-image/", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	status, resp = api.do(req, t1)
	require.Equal(t, http.StatusOK, status, resp.Message)
	assert.Equal(t, "IMAGE_UPLOADED", resp.Code)
	var uploaded struct {
		ImageURL string `json:"image_url"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &uploaded))
	assert.Regexp(t, `^http://localhost:8080/media/recipe_images/tomato-soup-[0-9a-f]{8}\.png$`, uploaded.ImageURL)

	mediaPath := strings.TrimPrefix(uploaded.ImageURL, cfg.BaseURL)
	rr := httptest.NewRecorder()
	api.handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, mediaPath, nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	// author deletes the recipe and its image
	status, resp = api.json(http.MethodDelete, recipePath, t1, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "RECIPE_DELETED", resp.Code)
	assert.Equal(t, "Recipe 'Tomato soup' deleted successfully", resp.Message)

	status, _ = api.json(http.MethodGet, recipePath, "", nil)
	assert.Equal(t, http.StatusNotFound, status)

	rr = httptest.NewRecorder()
	api.handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, mediaPath, nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRouter_AccountLifecycle(t *testing.T) {
	api, _ := newTestAPI(t)
	token := api.register("chef1")

	// duplicate registration
	status, resp := api.json(http.MethodPost, "/api/users/register/", "", map[string]string{"username": "chef1", "password": "other"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "ACCOUNT_ALREADY_EXISTS", resp.Code)

	// profile requires a token
	status, resp = api.json(http.MethodGet, "/api/users/profile/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", resp.Code)

	status, resp = api.json(http.MethodPatch, "/api/users/profile/", token, map[string]string{"bio": "Home cook"})
	require.Equal(t, http.StatusOK, status, resp.Message)
	assert.Equal(t, "PROFILE_UPDATED", resp.Code)

	status, resp = api.json(http.MethodGet, "/api/users/profile", token, nil)
	require.Equal(t, http.StatusOK, status)
	var profile struct {
		Username string `json:"username"`
		Bio      string `json:"bio"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &profile))
	assert.Equal(t, "chef1", profile.Username)
	assert.Equal(t, "Home cook", profile.Bio)

	// a private recipe is only visible to its author
	private := fullRecipe()
	private["is_public"] = false
	status, resp = api.json(http.MethodPost, "/api/recipes/", token, private)
	require.Equal(t, http.StatusCreated, status)
	var created struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &created))
	status, _ = api.json(http.MethodGet, fmt.Sprintf("/api/recipes/%d/", created.ID), "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = api.json(http.MethodGet, fmt.Sprintf("/api/recipes/%d/", created.ID), token, nil)
	assert.Equal(t, http.StatusOK, status)

	status, resp = api.json(http.MethodGet, "/api/my-recipes/?page=1", token, nil)
	require.Equal(t, http.StatusOK, status)
	var page struct {
		Count   int64             `json:"count"`
		Results []json.RawMessage `json:"results"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &page))
	assert.Equal(t, int64(1), page.Count)
	assert.Len(t, page.Results, 1)

	// logout revokes the token
	status, resp = api.json(http.MethodPost, "/api/users/logout/", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "LOGOUT_SUCCESSFUL", resp.Code)
	status, _ = api.json(http.MethodGet, "/api/users/profile/", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	// deactivate, then register again to reactivate
	token = loginToken(t, api, "chef1", "secret123")
	status, resp = api.json(http.MethodDelete, "/api/users/delete/", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ACCOUNT_DEACTIVATED", resp.Code)

	status, _ = api.json(http.MethodPost, "/api/login/", "", map[string]string{"username": "chef1", "password": "secret123"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, resp = api.json(http.MethodPost, "/api/users/register/", "", map[string]string{"username": "chef1", "password": "newpass"})
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "ACCOUNT_REACTIVATED", resp.Code)
	assert.NotEmpty(t, loginToken(t, api, "chef1", "newpass"))
}

func loginToken(t *testing.T, api *testAPI, username, password string) string {
	t.Helper()
	status, resp := api.json(http.MethodPost, "/api/login/", "", map[string]string{"username": username, "password": password})
	require.Equal(t, http.StatusOK, status, resp.Message)
	var data struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	return data.Token
}

func TestRouter_UploadKeepsImageExtension(t *testing.T) {
	api, cfg := newTestAPI(t)
	token := api.register("chef1")

	status, resp := api.json(http.MethodPost, "/api/recipes/", token, fullRecipe())
	require.Equal(t, http.StatusCreated, status, resp.Message)
	var created struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &created))

	// PNG bytes with markup appended, named as an HTML page
	payload := append(testPNG(t), []byte("<html><script>alert(1)</script></html>")...)
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", "evil.html")
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/recipes/%d/upload-image/", created.ID), &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	status, resp = api.do(req, token)
	require.Equal(t, http.StatusOK, status, resp.Message)

	var uploaded struct {
		ImageURL string `json:"image_url"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &uploaded))
	assert.Regexp(t, `/media/recipe_images/evil-[0-9a-f]{8}\.png$`, uploaded.ImageURL)

	rr := httptest.NewRecorder()
	api.handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, strings.TrimPrefix(uploaded.ImageURL, cfg.BaseURL), nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))
}

func TestRouter_Health(t *testing.T) {
	api, _ := newTestAPI(t)
	status, resp := api.json(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "OK", resp.Code)
}

// ------------------ run ------------------

func TestRun_SQLite(t *testing.T) {
	cfg := &config.Config{
		AppHost:        "127.0.0.1",
		AppPort:        "0",
		LogLevel:       "info",
		BaseURL:        "http://127.0.0.1",
		DBDriver:       config.DriverSQLite,
		SQLitePath:     ":memory:",
		StorageBackend: config.StorageLocal,
		MediaRoot:      t.TempDir(),
		MediaURL:       "/media/",
		MaxBodyBytes:   1 << 20,
		MaxUploadBytes: 1 << 20,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- run(ctx, cfg) }()

	select {
	case <-time.After(10 * time.Second):
		t.Fatal("test timed out")
	case err := <-errCh:
		assert.NoError(t, err)
	}
}

func TestRun_BadDatabase(t *testing.T) {
	cfg := &config.Config{
		LogLevel: "info",
		DBDriver: config.DriverPostgres,
		PGHost:   "127.0.0.1",
		PGPort:   1,
		PGUser:   "user",
		PGDB:     "database",
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.Error(t, run(ctx, cfg))
}

func TestRun_Postgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	// ------------------ Postgres container ------------------
	pgReq := testcontainers.ContainerRequest{
		Image:        "postgres:15",
		Env:          map[string]string{"POSTGRES_PASSWORD": "password", "POSTGRES_DB": "testdb", "POSTGRES_USER": "user"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
	}
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{ContainerRequest: pgReq, Started: true})
	require.NoError(t, err)
	defer pgContainer.Terminate(ctx)

	pgHost, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	pgPort, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	// ------------------ Redis container ------------------
	redisReq := testcontainers.ContainerRequest{
		Image:        "redis:7",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp"),
	}
	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{ContainerRequest: redisReq, Started: true})
	require.NoError(t, err)
	defer redisContainer.Terminate(ctx)

	redisHost, err := redisContainer.Host(ctx)
	require.NoError(t, err)
	redisPort, err := redisContainer.MappedPort(ctx, "6379")
	require.NoError(t, err)

	cfg := &config.Config{
		AppHost:           "127.0.0.1",
		AppPort:           "0",
		LogLevel:          "debug",
		BaseURL:           "http://127.0.0.1",
		DBDriver:          config.DriverPostgres,
		PGHost:            pgHost,
		PGPort:            pgPort.Int(),
		PGUser:            "user",
		PGPassword:        "password",
		PGDB:              "testdb",
		PGMaxOpenConns:    5,
		PGMaxIdleConns:    2,
		RedisEnabled:      true,
		RedisHost:         redisHost,
		RedisPort:         redisPort.Int(),
		RedisPoolSize:     10,
		RedisMinIdleConns: 2,
		TokenCacheTTL:     time.Minute,
		RateLimitRequests: 20,
		RateLimitWindow:   time.Minute,
		StorageBackend:    config.StorageLocal,
		MediaRoot:         t.TempDir(),
		MediaURL:          "/media/",
		MaxBodyBytes:      1 << 20,
		MaxUploadBytes:    1 << 20,
	}

	testCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- run(testCtx, cfg) }()

	select {
	case <-time.After(15 * time.Second):
		t.Fatal("test timed out")
	case err := <-errCh:
		assert.NoError(t, err, "expected run to succeed")
	}
}
