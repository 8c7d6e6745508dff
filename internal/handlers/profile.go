package handlers

import (
	"errors"
	"net/http"

	"userhub/internal/auth"
	"userhub/internal/middleware"

	log "github.com/sirupsen/logrus"
)

type ProfileHandler struct {
	templates   TemplateExecutor
	sessions    *auth.SessionManager
	userService *auth.UserService
}

func NewProfileHandler(templates TemplateExecutor, sessions *auth.SessionManager, userService *auth.UserService) *ProfileHandler {
	return &ProfileHandler{
		templates:   templates,
		sessions:    sessions,
		userService: userService,
	}
}

func (h *ProfileHandler) ProfilePage(w http.ResponseWriter, r *http.Request) {
	render(h.templates, w, "profile.html", map[string]interface{}{
		"Title":   "My Profile",
		"User":    middleware.GetUser(r),
		"Flashes": h.sessions.Flashes(w, r),
	})
}

func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	if err := r.ParseForm(); err != nil {
		h.sessions.Flash(w, r, "danger", "Invalid form data")
		http.Redirect(w, r, "/profile", http.StatusSeeOther)
		return
	}

	in := auth.ProfileInput{
		Username:  r.FormValue("username"),
		Email:     r.FormValue("email"),
		FirstName: r.FormValue("first_name"),
		LastName:  r.FormValue("last_name"),
		Phone:     r.FormValue("phone"),
	}

	if err := h.userService.UpdateProfile(user.ID, in, getClientIP(r)); err != nil {
		switch {
		case errors.Is(err, auth.ErrUserExists):
			h.sessions.Flash(w, r, "danger", "Username or email already in use!")
		case errors.Is(err, auth.ErrInvalidInput):
			h.sessions.Flash(w, r, "warning", inputMessage(err))
		default:
			log.Errorf("failed to update profile for user %d: %v", user.ID, err)
			h.sessions.Flash(w, r, "danger", "An error occurred while updating your profile.")
		}
		http.Redirect(w, r, "/profile", http.StatusSeeOther)
		return
	}

	h.sessions.Flash(w, r, "success", "Profile updated successfully!")
	http.Redirect(w, r, "/profile", http.StatusSeeOther)
}

func (h *ProfileHandler) ChangePasswordPage(w http.ResponseWriter, r *http.Request) {
	render(h.templates, w, "change_password.html", map[string]interface{}{
		"Title":   "Change Password",
		"User":    middleware.GetUser(r),
		"Flashes": h.sessions.Flashes(w, r),
	})
}

func (h *ProfileHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	if err := r.ParseForm(); err != nil {
		h.sessions.Flash(w, r, "danger", "Invalid form data")
		http.Redirect(w, r, "/change-password", http.StatusSeeOther)
		return
	}

	current := r.FormValue("current_password")
	newPassword := r.FormValue("new_password")
	confirm := r.FormValue("confirm_password")

	if current == "" || newPassword == "" {
		h.sessions.Flash(w, r, "danger", "All fields are required.")
		http.Redirect(w, r, "/change-password", http.StatusSeeOther)
		return
	}
	if newPassword != confirm {
		h.sessions.Flash(w, r, "danger", "New passwords do not match")
		http.Redirect(w, r, "/change-password", http.StatusSeeOther)
		return
	}

	if err := h.userService.ChangePassword(user.ID, current, newPassword, getClientIP(r)); err != nil {
		switch {
		case errors.Is(err, auth.ErrPasswordMismatch):
			h.sessions.Flash(w, r, "danger", "Current password is incorrect!")
		case errors.Is(err, auth.ErrInvalidInput):
			h.sessions.Flash(w, r, "warning", inputMessage(err))
		default:
			log.Errorf("failed to change password for user %d: %v", user.ID, err)
			h.sessions.Flash(w, r, "danger", "An error occurred while changing password.")
		}
		http.Redirect(w, r, "/change-password", http.StatusSeeOther)
		return
	}

	h.sessions.Flash(w, r, "success", "Password changed successfully!")
	http.Redirect(w, r, "/profile", http.StatusSeeOther)
}
