package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"userhub/internal/auth"
	"userhub/internal/middleware"
	"userhub/internal/models"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
)

// UsersHandler serves the admin user-management pages.
type UsersHandler struct {
	templates   TemplateExecutor
	sessions    *auth.SessionManager
	userService *auth.UserService
}

func NewUsersHandler(templates TemplateExecutor, sessions *auth.SessionManager, userService *auth.UserService) *UsersHandler {
	return &UsersHandler{
		templates:   templates,
		sessions:    sessions,
		userService: userService,
	}
}

func (h *UsersHandler) ManageUsers(w http.ResponseWriter, r *http.Request) {
	opts := auth.ListOptions{
		Search:  r.URL.Query().Get("search"),
		Role:    r.URL.Query().Get("role"),
		Status:  r.URL.Query().Get("status"),
		Page:    queryInt(r, "page", 1),
		PerPage: 10,
	}

	page, err := h.userService.List(opts)
	if err != nil {
		log.Errorf("failed to list users: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	render(h.templates, w, "users.html", map[string]interface{}{
		"Title":   "Manage Users",
		"User":    middleware.GetUser(r),
		"Users":   page,
		"Search":  opts.Search,
		"Role":    opts.Role,
		"Status":  opts.Status,
		"Flashes": h.sessions.Flashes(w, r),
	})
}

func (h *UsersHandler) EditUserPage(w http.ResponseWriter, r *http.Request) {
	target, ok := h.targetUser(w, r)
	if !ok {
		return
	}

	render(h.templates, w, "edit_user.html", map[string]interface{}{
		"Title":   "Edit User - " + target.Username,
		"User":    middleware.GetUser(r),
		"Target":  target,
		"Flashes": h.sessions.Flashes(w, r),
	})
}

func (h *UsersHandler) EditUser(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetUser(r)
	target, ok := h.targetUser(w, r)
	if !ok {
		return
	}

	if err := r.ParseForm(); err != nil {
		h.sessions.Flash(w, r, "danger", "Invalid form data")
		http.Redirect(w, r, "/admin/users", http.StatusSeeOther)
		return
	}

	in := auth.AdminUpdateInput{
		Username:  r.FormValue("username"),
		Email:     r.FormValue("email"),
		FirstName: r.FormValue("first_name"),
		LastName:  r.FormValue("last_name"),
		Phone:     r.FormValue("phone"),
		IsAdmin:   r.FormValue("is_admin") == "on",
		IsActive:  r.FormValue("is_active") == "on",
	}

	if err := h.userService.AdminUpdate(actor.ID, target.ID, in, getClientIP(r)); err != nil {
		switch {
		case errors.Is(err, auth.ErrUserExists):
			h.sessions.Flash(w, r, "danger", "Username or email already exists for another user!")
		case errors.Is(err, auth.ErrInvalidInput):
			h.sessions.Flash(w, r, "warning", inputMessage(err))
		default:
			log.Errorf("failed to update user %d: %v", target.ID, err)
			h.sessions.Flash(w, r, "danger", "An error occurred while updating the user.")
		}
		http.Redirect(w, r, "/admin/users/"+strconv.FormatInt(target.ID, 10)+"/edit", http.StatusSeeOther)
		return
	}

	h.sessions.Flash(w, r, "success", "User "+in.Username+" updated successfully!")
	http.Redirect(w, r, "/admin/users", http.StatusSeeOther)
}

func (h *UsersHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetUser(r)
	target, ok := h.targetUser(w, r)
	if !ok {
		return
	}

	if err := h.userService.Delete(actor.ID, target.ID, getClientIP(r)); err != nil {
		switch {
		case errors.Is(err, auth.ErrSelfDeletion):
			h.sessions.Flash(w, r, "danger", "You cannot delete your own account!")
		case errors.Is(err, auth.ErrUserNotFound):
			h.sessions.Flash(w, r, "danger", "User not found")
		default:
			log.Errorf("failed to delete user %d: %v", target.ID, err)
			h.sessions.Flash(w, r, "danger", "An error occurred while deleting the user.")
		}
		http.Redirect(w, r, "/admin/users", http.StatusSeeOther)
		return
	}

	h.sessions.Flash(w, r, "success", "User "+target.Username+" deleted successfully!")
	http.Redirect(w, r, "/admin/users", http.StatusSeeOther)
}

func (h *UsersHandler) targetUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.sessions.Flash(w, r, "danger", "Invalid user ID")
		http.Redirect(w, r, "/admin/users", http.StatusSeeOther)
		return nil, false
	}

	user, err := h.userService.GetByID(id)
	if err != nil {
		h.sessions.Flash(w, r, "danger", "User not found")
		http.Redirect(w, r, "/admin/users", http.StatusSeeOther)
		return nil, false
	}

	return user, true
}
