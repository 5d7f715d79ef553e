package controller_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/gofiber/fiber/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"taskhive/config"
	"taskhive/routes"
)

var testDBCounter int64

// setupTestApp wires the full route table against a fresh in-memory
// database. Handlers that reach for the config globals (auth middleware,
// token helpers) see the same database the struct controllers do.
func setupTestApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", atomic.AddInt64(&testDBCounter, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get DB instance: %v", err)
	}
	// A shared-cache memory database disappears with its last connection.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := config.MigrateDB(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	config.DB = db
	config.AppConfig = config.Config{
		Environment:       "test",
		JWTSecret:         "test-secret",
		AccessTokenTTLMin: 30,
		RateLimitLogin:    1000,
	}

	app := fiber.New()
	routes.SetupRoutes(app, db)
	return app, db
}

// doRequest performs a JSON request against the app and decodes the body.
func doRequest(t *testing.T, app *fiber.App, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}

	var decoded map[string]interface{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("failed to decode response %q: %v", raw, err)
		}
	}
	return resp.StatusCode, decoded
}

// registerUser registers an account and returns its access token.
func registerUser(t *testing.T, app *fiber.App, name, email, password string) string {
	t.Helper()

	status, body := doRequest(t, app, http.MethodPost, "/auth/register", "", map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
	})
	if status != http.StatusCreated {
		t.Fatalf("register %s: expected 201, got %d (%v)", email, status, body)
	}
	token, ok := body["access_token"].(string)
	if !ok || token == "" {
		t.Fatalf("register %s: missing access token in %v", email, body)
	}
	return token
}

// createOrganisation creates an organisation and returns its id.
func createOrganisation(t *testing.T, app *fiber.App, token, name string) uint {
	t.Helper()

	status, body := doRequest(t, app, http.MethodPost, "/api/v1/organisations", token, map[string]string{
		"name": name,
	})
	if status != http.StatusCreated {
		t.Fatalf("create organisation %s: expected 201, got %d (%v)", name, status, body)
	}
	data, ok := body["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("create organisation %s: unexpected body %v", name, body)
	}
	id, ok := data["ID"].(float64)
	if !ok {
		t.Fatalf("create organisation %s: missing id in %v", name, data)
	}
	return uint(id)
}

// createTask creates a task shared into the given organisations and
// returns its id.
func createTask(t *testing.T, app *fiber.App, token, title string, orgIDs []uint) uint {
	t.Helper()

	status, body := doRequest(t, app, http.MethodPost, "/api/v1/tasks", token, map[string]interface{}{
		"title":            title,
		"organisation_ids": orgIDs,
	})
	if status != http.StatusCreated {
		t.Fatalf("create task %s: expected 201, got %d (%v)", title, status, body)
	}
	data, ok := body["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("create task %s: unexpected body %v", title, body)
	}
	id, ok := data["ID"].(float64)
	if !ok {
		t.Fatalf("create task %s: missing id in %v", title, data)
	}
	return uint(id)
}

// taskTitles extracts the title set from a list response envelope.
func taskTitles(t *testing.T, body map[string]interface{}) map[string]bool {
	t.Helper()

	items, ok := body["data"].([]interface{})
	if !ok {
		t.Fatalf("expected data list in %v", body)
	}
	titles := make(map[string]bool, len(items))
	for _, item := range items {
		task, ok := item.(map[string]interface{})
		if !ok {
			t.Fatalf("unexpected list item %v", item)
		}
		titles[task["title"].(string)] = true
	}
	return titles
}
