package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUser(t *testing.T) {
	ts := newTestServer(t)

	t.Run("success", func(t *testing.T) {
		resp := ts.do(t, http.MethodPost, "/api/user/create", "", map[string]string{
			"email":    "test@example.com",
			"password": "testpass123",
			"name":     "Test Name",
		})
		require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

		var body map[string]any
		decode(t, resp, &body)
		assert.Equal(t, "test@example.com", body["email"])
		assert.Equal(t, "Test Name", body["name"])
		assert.NotContains(t, body, "password")
	})

	t.Run("duplicate email", func(t *testing.T) {
		resp := ts.do(t, http.MethodPost, "/api/user/create", "", map[string]string{
			"email":    "test@example.com",
			"password": "testpass123",
		})
		require.Equal(t, http.StatusBadRequest, resp.Code)

		var body struct {
			Errors map[string][]string `json:"errors"`
		}
		decode(t, resp, &body)
		assert.NotEmpty(t, body.Errors["email"])
	})

	t.Run("password too short", func(t *testing.T) {
		resp := ts.do(t, http.MethodPost, "/api/user/create", "", map[string]string{
			"email":    "short@example.com",
			"password": "pw",
		})
		require.Equal(t, http.StatusBadRequest, resp.Code)

		var body struct {
			Errors map[string][]string `json:"errors"`
		}
		decode(t, resp, &body)
		assert.NotEmpty(t, body.Errors["password"])

		// The failed registration must not leave a usable account.
		token := ts.do(t, http.MethodPost, "/api/user/token", "", map[string]string{
			"email":    "short@example.com",
			"password": "pw",
		})
		assert.Equal(t, http.StatusBadRequest, token.Code)
	})
}

func TestIssueToken(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "test@example.com", "testpass123", "Test")

	t.Run("success", func(t *testing.T) {
		resp := ts.do(t, http.MethodPost, "/api/user/token", "", map[string]string{
			"email":    "test@example.com",
			"password": "testpass123",
		})
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

		var body map[string]string
		decode(t, resp, &body)
		assert.NotEmpty(t, body["token"])
	})

	for name, password := range map[string]string{
		"wrong password": "badpass",
		"blank password": "",
	} {
		t.Run(name, func(t *testing.T) {
			resp := ts.do(t, http.MethodPost, "/api/user/token", "", map[string]string{
				"email":    "test@example.com",
				"password": password,
			})
			require.Equal(t, http.StatusBadRequest, resp.Code)
			assert.NotContains(t, resp.Body.String(), `"token"`)
		})
	}

	t.Run("unknown email", func(t *testing.T) {
		resp := ts.do(t, http.MethodPost, "/api/user/token", "", map[string]string{
			"email":    "nobody@example.com",
			"password": "testpass123",
		})
		require.Equal(t, http.StatusBadRequest, resp.Code)
	})
}

func TestMe(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register(t, "test@example.com", "testpass123", "Test Name")

	t.Run("unauthorized without token", func(t *testing.T) {
		resp := ts.do(t, http.MethodGet, "/api/user/me", "", nil)
		require.Equal(t, http.StatusUnauthorized, resp.Code)
		assert.Contains(t, resp.Body.String(), "detail")
	})

	t.Run("unauthorized with bogus token", func(t *testing.T) {
		resp := ts.do(t, http.MethodGet, "/api/user/me", "bogus-token", nil)
		require.Equal(t, http.StatusUnauthorized, resp.Code)
	})

	t.Run("retrieve profile", func(t *testing.T) {
		resp := ts.do(t, http.MethodGet, "/api/user/me", token, nil)
		require.Equal(t, http.StatusOK, resp.Code)

		var body map[string]any
		decode(t, resp, &body)
		assert.Equal(t, "test@example.com", body["email"])
		assert.Equal(t, "Test Name", body["name"])
	})

	t.Run("post not allowed", func(t *testing.T) {
		resp := ts.do(t, http.MethodPost, "/api/user/me", token, map[string]string{})
		require.Equal(t, http.StatusMethodNotAllowed, resp.Code)
	})

	t.Run("patch updates provided fields", func(t *testing.T) {
		resp := ts.do(t, http.MethodPatch, "/api/user/me", token, map[string]string{
			"name":     "New Name",
			"password": "newpassword123",
		})
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

		var body map[string]any
		decode(t, resp, &body)
		assert.Equal(t, "New Name", body["name"])
		assert.Equal(t, "test@example.com", body["email"])

		// The new password works for token issuing.
		issued := ts.do(t, http.MethodPost, "/api/user/token", "", map[string]string{
			"email":    "test@example.com",
			"password": "newpassword123",
		})
		assert.Equal(t, http.StatusOK, issued.Code)
	})

	t.Run("put requires full field set", func(t *testing.T) {
		resp := ts.do(t, http.MethodPut, "/api/user/me", token, map[string]string{
			"name": "Only Name",
		})
		require.Equal(t, http.StatusBadRequest, resp.Code)

		var body struct {
			Errors map[string][]string `json:"errors"`
		}
		decode(t, resp, &body)
		assert.NotEmpty(t, body.Errors["email"])
		assert.NotEmpty(t, body.Errors["password"])
	})
}
