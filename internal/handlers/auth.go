package handlers

import (
	"errors"
	"net/http"

	"userhub/internal/auth"
	"userhub/internal/middleware"
)

type AuthHandler struct {
	templates   TemplateExecutor
	sessions    *auth.SessionManager
	userService *auth.UserService
}

func NewAuthHandler(templates TemplateExecutor, sessions *auth.SessionManager, userService *auth.UserService) *AuthHandler {
	return &AuthHandler{
		templates:   templates,
		sessions:    sessions,
		userService: userService,
	}
}

func (h *AuthHandler) Index(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.sessions.CurrentUserID(r); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	render(h.templates, w, "index.html", map[string]interface{}{
		"Title":   "Home",
		"Flashes": h.sessions.Flashes(w, r),
	})
}

func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.sessions.CurrentUserID(r); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	render(h.templates, w, "login.html", map[string]interface{}{
		"Title":   "Login",
		"Flashes": h.sessions.Flashes(w, r),
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.sessions.CurrentUserID(r); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.sessions.Flash(w, r, "danger", "Invalid form data")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	email := r.FormValue("email")
	password := r.FormValue("password")

	if email == "" || password == "" {
		h.sessions.Flash(w, r, "danger", "Email and password are required.")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	user, err := h.userService.Login(email, password, getClientIP(r))
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			h.sessions.Flash(w, r, "danger", "Invalid email or password!")
		case errors.Is(err, auth.ErrAccountDeactivated):
			h.sessions.Flash(w, r, "warning", "Your account has been deactivated. Please contact administrator.")
		default:
			h.sessions.Flash(w, r, "danger", "An error occurred during login. Please try again.")
		}
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	if err := h.sessions.Establish(w, r, user.ID); err != nil {
		h.sessions.Flash(w, r, "danger", "Failed to create session")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	h.sessions.Flash(w, r, "success", "Welcome back, "+user.Username+"!")
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (h *AuthHandler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.sessions.CurrentUserID(r); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	render(h.templates, w, "register.html", map[string]interface{}{
		"Title":   "Register",
		"Flashes": h.sessions.Flashes(w, r),
	})
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.sessions.CurrentUserID(r); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.sessions.Flash(w, r, "danger", "Invalid form data")
		http.Redirect(w, r, "/register", http.StatusSeeOther)
		return
	}

	in := auth.RegisterInput{
		Username:  r.FormValue("username"),
		Email:     r.FormValue("email"),
		Password:  r.FormValue("password"),
		Confirm:   r.FormValue("confirm_password"),
		FirstName: r.FormValue("first_name"),
		LastName:  r.FormValue("last_name"),
		Phone:     r.FormValue("phone"),
	}

	if _, err := h.userService.Register(in, getClientIP(r)); err != nil {
		switch {
		case errors.Is(err, auth.ErrPasswordMismatch):
			h.sessions.Flash(w, r, "danger", "Passwords must match!")
		case errors.Is(err, auth.ErrUserExists):
			h.sessions.Flash(w, r, "warning", "User already exists!")
		case errors.Is(err, auth.ErrInvalidInput):
			h.sessions.Flash(w, r, "warning", inputMessage(err))
		default:
			h.sessions.Flash(w, r, "danger", "Something went wrong!")
		}
		http.Redirect(w, r, "/register", http.StatusSeeOther)
		return
	}

	h.sessions.Flash(w, r, "success", "Account successfully created! Please log in.")
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if user := middleware.GetUser(r); user != nil {
		h.userService.Record(&user.ID, auth.ActionLogout, "User logged out", getClientIP(r))
	}

	h.sessions.Terminate(w, r)
	h.sessions.Flash(w, r, "info", "You have been logged out successfully.")
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
