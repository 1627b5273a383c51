package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (ts *testServer) doForm(t *testing.T, path string, cookie *http.Cookie, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	resp := httptest.NewRecorder()
	ts.handler.ServeHTTP(resp, req)
	return resp
}

func (ts *testServer) adminLogin(t *testing.T, email, password string) *http.Cookie {
	t.Helper()
	resp := ts.doForm(t, "/admin/login", nil, url.Values{
		"email":    {email},
		"password": {password},
	})
	require.Equal(t, http.StatusSeeOther, resp.Code, resp.Body.String())
	for _, cookie := range resp.Result().Cookies() {
		if cookie.Name == sessionCookieName {
			return cookie
		}
	}
	t.Fatal("no session cookie issued")
	return nil
}

func seedSuperuser(t *testing.T, ts *testServer, email, password string) {
	t.Helper()
	_, err := ts.users.CreateSuperuser(context.Background(), email, password)
	require.NoError(t, err)
}

func TestAdminLogin(t *testing.T) {
	ts := newTestServer(t)
	seedSuperuser(t, ts, "admin@example.com", "adminpass")

	t.Run("staff user gets a session", func(t *testing.T) {
		cookie := ts.adminLogin(t, "admin@example.com", "adminpass")
		assert.NotEmpty(t, cookie.Value)
	})

	t.Run("wrong password re-renders the form", func(t *testing.T) {
		resp := ts.doForm(t, "/admin/login", nil, url.Values{
			"email":    {"admin@example.com"},
			"password": {"wrong"},
		})
		require.Equal(t, http.StatusUnauthorized, resp.Code)
		assert.Contains(t, resp.Body.String(), "form")
	})

	t.Run("non-staff user rejected", func(t *testing.T) {
		ts.register(t, "plain@example.com", "testpass123", "")
		resp := ts.doForm(t, "/admin/login", nil, url.Values{
			"email":    {"plain@example.com"},
			"password": {"testpass123"},
		})
		require.Equal(t, http.StatusUnauthorized, resp.Code)
	})
}

func TestAdminUserList(t *testing.T) {
	ts := newTestServer(t)
	seedSuperuser(t, ts, "admin@example.com", "adminpass")
	ts.register(t, "alice@example.com", "testpass123", "Alice")

	t.Run("anonymous redirected to login", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
		resp := httptest.NewRecorder()
		ts.handler.ServeHTTP(resp, req)
		require.Equal(t, http.StatusFound, resp.Code)
		assert.Equal(t, "/admin/login", resp.Header().Get("Location"))
	})

	t.Run("changelist shows users", func(t *testing.T) {
		cookie := ts.adminLogin(t, "admin@example.com", "adminpass")
		req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
		req.AddCookie(cookie)
		resp := httptest.NewRecorder()
		ts.handler.ServeHTTP(resp, req)
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Contains(t, resp.Body.String(), "alice@example.com")
		assert.Contains(t, resp.Body.String(), "Alice")
	})
}

func TestAdminManageUsers(t *testing.T) {
	ts := newTestServer(t)
	seedSuperuser(t, ts, "admin@example.com", "adminpass")
	cookie := ts.adminLogin(t, "admin@example.com", "adminpass")

	resp := ts.doForm(t, "/admin/users/add", cookie, url.Values{
		"email":     {"staffer@example.com"},
		"password":  {"staffpass"},
		"name":      {"Staffer"},
		"is_active": {"on"},
		"is_staff":  {"on"},
	})
	require.Equal(t, http.StatusSeeOther, resp.Code, resp.Body.String())

	// The new staff account can sign in to the console itself.
	staffCookie := ts.adminLogin(t, "staffer@example.com", "staffpass")
	assert.NotEmpty(t, staffCookie.Value)
}

func TestAdminLogout(t *testing.T) {
	ts := newTestServer(t)
	seedSuperuser(t, ts, "admin@example.com", "adminpass")
	cookie := ts.adminLogin(t, "admin@example.com", "adminpass")

	resp := ts.doForm(t, "/admin/logout", cookie, url.Values{})
	require.Equal(t, http.StatusSeeOther, resp.Code)

	req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusFound, rec.Code)
}
