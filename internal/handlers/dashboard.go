package handlers

import (
	"encoding/json"
	"net/http"

	"userhub/internal/auth"
	"userhub/internal/middleware"

	log "github.com/sirupsen/logrus"
)

type DashboardHandler struct {
	templates   TemplateExecutor
	sessions    *auth.SessionManager
	userService *auth.UserService
}

func NewDashboardHandler(templates TemplateExecutor, sessions *auth.SessionManager, userService *auth.UserService) *DashboardHandler {
	return &DashboardHandler{
		templates:   templates,
		sessions:    sessions,
		userService: userService,
	}
}

// Dashboard routes to the role-appropriate dashboard.
func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	if user.IsAdmin {
		http.Redirect(w, r, "/admin/dashboard", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/user/dashboard", http.StatusSeeOther)
}

func (h *DashboardHandler) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	stats, err := h.userService.Stats()
	if err != nil {
		log.Errorf("failed to get user stats: %v", err)
	}
	recentUsers, err := h.userService.RecentUsers(5)
	if err != nil {
		log.Errorf("failed to get recent users: %v", err)
	}
	recentActivities, err := h.userService.RecentActivities(10)
	if err != nil {
		log.Errorf("failed to get recent activities: %v", err)
	}

	render(h.templates, w, "admin_dashboard.html", map[string]interface{}{
		"Title":            "Admin Dashboard",
		"User":             user,
		"Stats":            stats,
		"RecentUsers":      recentUsers,
		"RecentActivities": recentActivities,
		"Flashes":          h.sessions.Flashes(w, r),
	})
}

func (h *DashboardHandler) UserDashboard(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	activities, err := h.userService.UserActivities(user.ID, 10)
	if err != nil {
		log.Errorf("failed to get user activities: %v", err)
	}

	render(h.templates, w, "user_dashboard.html", map[string]interface{}{
		"Title":      "User Dashboard",
		"User":       user,
		"Activities": activities,
		"Flashes":    h.sessions.Flashes(w, r),
	})
}

// Stats serves the admin dashboard counters as JSON.
func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.userService.Stats()
	if err != nil {
		log.Errorf("failed to get user stats: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		log.Errorf("failed to encode stats: %v", err)
	}
}
