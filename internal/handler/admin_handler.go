package handler

import (
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/pantrylabs/pantry/internal/domain"
	"github.com/pantrylabs/pantry/internal/service"
)

//go:embed templates/*.html
var templateFS embed.FS

const sessionCookieName = "pantry_session"

// AdminHandler serves the staff-only HTML console over the user store.
type AdminHandler struct {
	sessions   *service.SessionService
	users      *service.UserService
	sessionTTL time.Duration
	templates  *template.Template
	logger     zerolog.Logger
}

// AdminConfig contains configuration for the admin console.
type AdminConfig struct {
	SessionService *service.SessionService
	UserService    *service.UserService
	SessionTTL     time.Duration
	Logger         zerolog.Logger
}

// NewAdminHandler creates a new admin console handler.
func NewAdminHandler(cfg AdminConfig) (*AdminHandler, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	return &AdminHandler{
		sessions:   cfg.SessionService,
		users:      cfg.UserService,
		sessionTTL: cfg.SessionTTL,
		templates:  tmpl,
		logger:     cfg.Logger.With().Str("handler", "admin").Logger(),
	}, nil
}

// RegisterRoutes registers console routes under /admin.
func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.handleIndex)
	r.Get("/login", h.handleLoginPage)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)

	r.Get("/users", h.handleUserList)
	r.Get("/users/add", h.handleUserAddPage)
	r.Post("/users/add", h.handleUserAdd)
	r.Get("/users/{id}", h.handleUserChangePage)
	r.Post("/users/{id}", h.handleUserChange)
}

// =============================================================================
// Template data
// =============================================================================

// pageData contains common page data.
type pageData struct {
	Title string
	Email string
	Error string
}

type userListPageData struct {
	pageData
	Users []*domain.User
}

type userFormPageData struct {
	pageData
	User   *domain.User
	IsEdit bool
}

// =============================================================================
// Authentication
// =============================================================================

func (h *AdminHandler) handleIndex(w http.ResponseWriter, r *http.Request) {
	if _, err := h.getSession(r); err != nil {
		http.Redirect(w, r, "/admin/login", http.StatusFound)
		return
	}
	http.Redirect(w, r, "/admin/users", http.StatusFound)
}

func (h *AdminHandler) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, "login.html", pageData{Title: "Log in | Pantry admin"})
}

func (h *AdminHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderLoginError(w, "Invalid form data")
		return
	}

	session, err := h.sessions.Login(r.Context(), r.FormValue("email"), r.FormValue("password"))
	if err != nil {
		h.logger.Debug().Err(err).Msg("console login failed")
		h.renderLoginError(w, "Please enter the correct email and password for a staff account.")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    session.ID,
		Path:     "/admin",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(h.sessionTTL / time.Second),
	})
	http.Redirect(w, r, "/admin/users", http.StatusSeeOther)
}

func (h *AdminHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		_ = h.sessions.Logout(r.Context(), cookie.Value)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/admin",
		HttpOnly: true,
		MaxAge:   -1,
	})
	http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
}

// =============================================================================
// User management
// =============================================================================

func (h *AdminHandler) handleUserList(w http.ResponseWriter, r *http.Request) {
	session, err := h.getSession(r)
	if err != nil {
		http.Redirect(w, r, "/admin/login", http.StatusFound)
		return
	}

	output, err := h.users.List(r.Context(), service.ListUsersInput{Limit: 100})
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list users")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.render(w, "users.html", userListPageData{
		pageData: pageData{Title: "Users | Pantry admin", Email: session.Email},
		Users:    output.Users,
	})
}

func (h *AdminHandler) handleUserAddPage(w http.ResponseWriter, r *http.Request) {
	session, err := h.getSession(r)
	if err != nil {
		http.Redirect(w, r, "/admin/login", http.StatusFound)
		return
	}

	h.render(w, "user_form.html", userFormPageData{
		pageData: pageData{Title: "Add user | Pantry admin", Email: session.Email},
		User:     &domain.User{IsActive: true},
	})
}

func (h *AdminHandler) handleUserAdd(w http.ResponseWriter, r *http.Request) {
	session, err := h.getSession(r)
	if err != nil {
		http.Redirect(w, r, "/admin/login", http.StatusFound)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	_, err = h.users.AdminCreate(r.Context(), service.AdminCreateInput{
		Email:    r.FormValue("email"),
		Password: r.FormValue("password"),
		Name:     r.FormValue("name"),
		IsActive: r.FormValue("is_active") == "on",
		IsStaff:  r.FormValue("is_staff") == "on",
	})
	if err != nil {
		h.render(w, "user_form.html", userFormPageData{
			pageData: pageData{
				Title: "Add user | Pantry admin",
				Email: session.Email,
				Error: err.Error(),
			},
			User: &domain.User{
				Email:    r.FormValue("email"),
				Name:     r.FormValue("name"),
				IsActive: r.FormValue("is_active") == "on",
				IsStaff:  r.FormValue("is_staff") == "on",
			},
		})
		return
	}

	http.Redirect(w, r, "/admin/users", http.StatusSeeOther)
}

func (h *AdminHandler) handleUserChangePage(w http.ResponseWriter, r *http.Request) {
	session, err := h.getSession(r)
	if err != nil {
		http.Redirect(w, r, "/admin/login", http.StatusFound)
		return
	}

	user, ok := h.userFromURL(w, r)
	if !ok {
		return
	}

	h.render(w, "user_form.html", userFormPageData{
		pageData: pageData{Title: "Change user | Pantry admin", Email: session.Email},
		User:     user,
		IsEdit:   true,
	})
}

func (h *AdminHandler) handleUserChange(w http.ResponseWriter, r *http.Request) {
	session, err := h.getSession(r)
	if err != nil {
		http.Redirect(w, r, "/admin/login", http.StatusFound)
		return
	}

	user, ok := h.userFromURL(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	input := service.AdminUpdateInput{
		UserID:   user.ID,
		Email:    r.FormValue("email"),
		Name:     r.FormValue("name"),
		IsActive: r.FormValue("is_active") == "on",
		IsStaff:  r.FormValue("is_staff") == "on",
	}
	if password := r.FormValue("password"); password != "" {
		input.Password = &password
	}

	if _, err := h.users.AdminUpdate(r.Context(), input); err != nil {
		h.render(w, "user_form.html", userFormPageData{
			pageData: pageData{
				Title: "Change user | Pantry admin",
				Email: session.Email,
				Error: err.Error(),
			},
			User:   user,
			IsEdit: true,
		})
		return
	}

	http.Redirect(w, r, "/admin/users", http.StatusSeeOther)
}

// =============================================================================
// Helpers
// =============================================================================

func (h *AdminHandler) getSession(r *http.Request) (*service.Session, error) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return nil, err
	}
	session, err := h.sessions.Validate(r.Context(), cookie.Value)
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (h *AdminHandler) userFromURL(w http.ResponseWriter, r *http.Request) (*domain.User, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return nil, false
	}
	user, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			http.NotFound(w, r)
			return nil, false
		}
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return nil, false
	}
	return user, true
}

func (h *AdminHandler) render(w http.ResponseWriter, name string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.ExecuteTemplate(w, name, data); err != nil {
		h.logger.Error().Err(err).Str("template", name).Msg("failed to render template")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *AdminHandler) renderLoginError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	if err := h.templates.ExecuteTemplate(w, "login.html", pageData{Title: "Log in | Pantry admin", Error: message}); err != nil {
		h.logger.Error().Err(err).Msg("failed to render login template")
	}
}
