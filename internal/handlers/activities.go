package handlers

import (
	"net/http"

	"userhub/internal/auth"
	"userhub/internal/middleware"

	log "github.com/sirupsen/logrus"
)

// ActivitiesHandler serves the admin view of the audit trail.
type ActivitiesHandler struct {
	templates   TemplateExecutor
	sessions    *auth.SessionManager
	userService *auth.UserService
}

func NewActivitiesHandler(templates TemplateExecutor, sessions *auth.SessionManager, userService *auth.UserService) *ActivitiesHandler {
	return &ActivitiesHandler{
		templates:   templates,
		sessions:    sessions,
		userService: userService,
	}
}

func (h *ActivitiesHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := h.userService.Activities(queryInt(r, "page", 1), 20)
	if err != nil {
		log.Errorf("failed to list activities: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	render(h.templates, w, "activities.html", map[string]interface{}{
		"Title":      "Activity Logs",
		"User":       middleware.GetUser(r),
		"Activities": page,
		"Flashes":    h.sessions.Flashes(w, r),
	})
}
