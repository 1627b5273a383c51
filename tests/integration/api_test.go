// Package integration provides end-to-end tests for the Pantry HTTP API.
// They run against a live server, so point PANTRY_TEST_ENDPOINT at one
// (default http://localhost:8000) and run without -short.
package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"mime/multipart"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConfig holds the configuration for integration tests.
type TestConfig struct {
	Endpoint string
}

func getTestConfig() TestConfig {
	return TestConfig{
		Endpoint: getEnv("PANTRY_TEST_ENDPOINT", "http://localhost:8000"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// apiClient is a thin wrapper around http.Client carrying the base URL
// and, once registered, a bearer token.
type apiClient struct {
	base  string
	token string
	http  *http.Client
}

func newAPIClient(cfg TestConfig) *apiClient {
	return &apiClient{
		base: cfg.Endpoint,
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *apiClient) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, c.base+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Token "+c.token)
	}

	resp, err := c.http.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

// register creates a fresh account with a unique email and stores the
// issued token on the client.
func (c *apiClient) register(t *testing.T) string {
	t.Helper()
	email := fmt.Sprintf("it-%d-%d@example.com", time.Now().UnixNano(), rand.Intn(10000))

	resp, raw := c.do(t, http.MethodPost, "/api/user/create", map[string]string{
		"email":    email,
		"password": "testpass123",
		"name":     "Integration Test",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	resp, raw = c.do(t, http.MethodPost, "/api/user/token", map[string]string{
		"email":    email,
		"password": "testpass123",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	var body struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(raw, &body))
	require.NotEmpty(t, body.Token)
	c.token = body.Token
	return email
}

func TestHealthEndpoint(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	client := newAPIClient(getTestConfig())
	resp, _ := client.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUserLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	client := newAPIClient(getTestConfig())
	email := client.register(t)

	resp, raw := client.do(t, http.MethodGet, "/api/user/me", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	var profile struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	require.NoError(t, json.Unmarshal(raw, &profile))
	assert.Equal(t, email, profile.Email)

	resp, raw = client.do(t, http.MethodPatch, "/api/user/me", map[string]string{
		"name": "Renamed",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	require.NoError(t, json.Unmarshal(raw, &profile))
	assert.Equal(t, "Renamed", profile.Name)
}

func TestRecipeLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	client := newAPIClient(getTestConfig())
	client.register(t)

	resp, raw := client.do(t, http.MethodPost, "/api/recipes/", map[string]any{
		"title":        "Integration stew",
		"time_minutes": 45,
		"price":        "8.50",
		"tags":         []map[string]string{{"name": "Hearty"}},
		"ingredients":  []map[string]string{{"name": "Potatoes"}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	var recipe struct {
		ID    int64            `json:"id"`
		Title string           `json:"title"`
		Tags  []map[string]any `json:"tags"`
	}
	require.NoError(t, json.Unmarshal(raw, &recipe))
	require.NotZero(t, recipe.ID)
	assert.Len(t, recipe.Tags, 1)

	resp, raw = client.do(t, http.MethodPatch, fmt.Sprintf("/api/recipes/%d", recipe.ID), map[string]string{
		"title": "Integration stew v2",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	resp, _ = client.do(t, http.MethodDelete, fmt.Sprintf("/api/recipes/%d", recipe.ID), nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = client.do(t, http.MethodGet, fmt.Sprintf("/api/recipes/%d", recipe.ID), nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestImageUpload(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	client := newAPIClient(getTestConfig())
	client.register(t)

	resp, raw := client.do(t, http.MethodPost, "/api/recipes/", map[string]any{
		"title":        "Photogenic salad",
		"time_minutes": 5,
		"price":        "3.00",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	var recipe struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(raw, &recipe))

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("image", "photo.png")
	require.NoError(t, err)
	_, err = part.Write(tinyPNG())
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req, err := http.NewRequest(http.MethodPost,
		fmt.Sprintf("%s/api/recipes/%d/upload-image", client.base, recipe.ID), &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Token "+client.token)

	uploadResp, err := client.http.Do(req)
	require.NoError(t, err)
	defer uploadResp.Body.Close()
	uploadRaw, err := io.ReadAll(uploadResp.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, uploadResp.StatusCode, string(uploadRaw))

	var body struct {
		Image string `json:"image"`
	}
	require.NoError(t, json.Unmarshal(uploadRaw, &body))
	require.NotEmpty(t, body.Image)

	mediaResp, mediaRaw := client.do(t, http.MethodGet, body.Image, nil)
	require.Equal(t, http.StatusOK, mediaResp.StatusCode)
	assert.NotEmpty(t, mediaRaw)
}

// tinyPNG returns a minimal valid 1x1 PNG.
func tinyPNG() []byte {
	return []byte{
		0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a,
		0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52,
		0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
		0x08, 0x02, 0x00, 0x00, 0x00, 0x90, 0x77, 0x53,
		0xde, 0x00, 0x00, 0x00, 0x10, 0x49, 0x44, 0x41,
		0x54, 0x78, 0x9c, 0x62, 0xfa, 0xff, 0xff, 0x3f,
		0x20, 0x00, 0x00, 0xff, 0xff, 0x06, 0x06, 0x03,
		0x00, 0xb7, 0x66, 0x11, 0x21, 0x00, 0x00, 0x00,
		0x00, 0x49, 0x45, 0x4e, 0x44, 0xae, 0x42, 0x60,
		0x82,
	}
}
