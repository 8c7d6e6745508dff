package middleware

import (
	"context"
	"net/http"

	"userhub/internal/auth"
	"userhub/internal/models"
)

type contextKey string

const UserContextKey contextKey = "user"

// Role is the access level a route requires.
type Role int

const (
	RoleUser Role = iota // any authenticated, active account
	RoleAdmin
)

// Decision is the outcome of an authorization check.
type Decision int

const (
	Allow Decision = iota
	DenyUnauthenticated
	DenyForbidden
)

// Authorize is the single place access decisions are made. It is evaluated
// before any handler side effect; a deny short-circuits the request.
func Authorize(user *models.User, required Role) Decision {
	if user == nil || !user.IsActive {
		return DenyUnauthenticated
	}
	if required == RoleAdmin && !user.IsAdmin {
		return DenyForbidden
	}
	return Allow
}

type AuthMiddleware struct {
	sessions    *auth.SessionManager
	userService *auth.UserService
}

func NewAuthMiddleware(sessions *auth.SessionManager, userService *auth.UserService) *AuthMiddleware {
	return &AuthMiddleware{
		sessions:    sessions,
		userService: userService,
	}
}

// RequireAuth resolves the session to an active user, slides the expiry
// window, and stores the user in the request context. A session whose
// account has been deleted or deactivated is terminated.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := m.sessions.CurrentUserID(r)
		if !ok {
			m.denyUnauthenticated(w, r)
			return
		}

		user, err := m.userService.GetByID(userID)
		if err != nil || Authorize(user, RoleUser) != Allow {
			m.sessions.Terminate(w, r)
			m.denyUnauthenticated(w, r)
			return
		}

		if err := m.sessions.Touch(w, r); err != nil {
			m.sessions.Terminate(w, r)
			m.denyUnauthenticated(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin gates admin routes. It runs inside RequireAuth, so the context
// user is already authenticated and active.
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := GetUser(r)
		switch Authorize(user, RoleAdmin) {
		case Allow:
			next.ServeHTTP(w, r)
		case DenyForbidden:
			m.sessions.Flash(w, r, "danger", "You need administrator privileges to access this page.")
			http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		default:
			m.denyUnauthenticated(w, r)
		}
	})
}

func (m *AuthMiddleware) denyUnauthenticated(w http.ResponseWriter, r *http.Request) {
	m.sessions.Flash(w, r, "warning", "Please log in to access this page.")
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func GetUser(r *http.Request) *models.User {
	user, _ := r.Context().Value(UserContextKey).(*models.User)
	return user
}
