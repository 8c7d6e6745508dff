package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"userhub/internal/auth"
	"userhub/internal/database"
	"userhub/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubTemplates writes the template name as the response body so tests can
// assert which page was rendered.
type stubTemplates struct{}

func (s *stubTemplates) ExecuteTemplate(w io.Writer, name string, data interface{}) error {
	_, err := io.WriteString(w, name)
	return err
}

func newTestApp(t *testing.T) (*httptest.Server, *auth.UserService) {
	t.Helper()

	db, err := database.New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	users := auth.NewUserService(db)
	sessions := auth.NewSessionManager("test-secret-0123456789abcdef0000", time.Hour)
	templates := &stubTemplates{}

	authHandler := NewAuthHandler(templates, sessions, users)
	dashboardHandler := NewDashboardHandler(templates, sessions, users)
	usersHandler := NewUsersHandler(templates, sessions, users)
	profileHandler := NewProfileHandler(templates, sessions, users)
	activitiesHandler := NewActivitiesHandler(templates, sessions, users)
	authMiddleware := middleware.NewAuthMiddleware(sessions, users)

	r := chi.NewRouter()
	r.Get("/", authHandler.Index)
	r.Get("/login", authHandler.LoginPage)
	r.Post("/login", authHandler.Login)
	r.Get("/register", authHandler.RegisterPage)
	r.Post("/register", authHandler.Register)
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.RequireAuth)
		r.Get("/logout", authHandler.Logout)
		r.Get("/dashboard", dashboardHandler.Dashboard)
		r.Get("/user/dashboard", dashboardHandler.UserDashboard)
		r.Get("/profile", profileHandler.ProfilePage)
		r.Post("/profile", profileHandler.UpdateProfile)
		r.Get("/change-password", profileHandler.ChangePasswordPage)
		r.Post("/change-password", profileHandler.ChangePassword)
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.RequireAdmin)
			r.Get("/admin/dashboard", dashboardHandler.AdminDashboard)
			r.Get("/admin/users", usersHandler.ManageUsers)
			r.Get("/admin/users/{id}/edit", usersHandler.EditUserPage)
			r.Post("/admin/users/{id}/edit", usersHandler.EditUser)
			r.Post("/admin/users/{id}/delete", usersHandler.DeleteUser)
			r.Get("/admin/activities", activitiesHandler.List)
			r.Get("/api/stats", dashboardHandler.Stats)
		})
	})

	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return ts, users
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func get(t *testing.T, client *http.Client, url string) (*http.Response, string) {
	t.Helper()
	resp, err := client.Get(url)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, string(body)
}

func postForm(t *testing.T, client *http.Client, url string, form url.Values) (*http.Response, string) {
	t.Helper()
	resp, err := client.PostForm(url, form)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, string(body)
}

func countEntries(t *testing.T, users *auth.UserService, action string) int {
	t.Helper()
	page, err := users.Activities(1, 100)
	require.NoError(t, err)
	n := 0
	for _, e := range page.Entries {
		if e.Action == action {
			n++
		}
	}
	return n
}

func TestAuthFlow_EndToEnd(t *testing.T) {
	ts, users := newTestApp(t)
	require.NoError(t, users.EnsureDefaultAdmin("root", "root@x.com", "rootpw12345"))

	client := newClient(t)

	// register alice: redirected to login, no session established
	resp, body := postForm(t, client, ts.URL+"/register", url.Values{
		"username":         {"alice"},
		"email":            {"alice@x.com"},
		"password":         {"pw12345678"},
		"confirm_password": {"pw12345678"},
	})
	assert.Equal(t, "/login", resp.Request.URL.Path)
	assert.Equal(t, "login.html", body)

	resp, _ = get(t, client, ts.URL+"/dashboard")
	assert.Equal(t, "/login", resp.Request.URL.Path, "registration must not auto-login")

	// login with the right password
	resp, body = postForm(t, client, ts.URL+"/login", url.Values{
		"email":    {"alice@x.com"},
		"password": {"pw12345678"},
	})
	assert.Equal(t, "/user/dashboard", resp.Request.URL.Path)
	assert.Equal(t, "user_dashboard.html", body)

	alice, err := users.GetByUsername("alice")
	require.NoError(t, err)
	require.NotNil(t, alice.LastLoginAt)
	assert.Equal(t, 1, countEntries(t, users, auth.ActionLogin))

	// regular users are turned away from admin pages
	resp, _ = get(t, client, ts.URL+"/admin/users")
	assert.Equal(t, "/user/dashboard", resp.Request.URL.Path)

	// logout drops the session
	resp, _ = get(t, client, ts.URL+"/logout")
	assert.Equal(t, "/login", resp.Request.URL.Path)
	assert.Equal(t, 1, countEntries(t, users, auth.ActionLogout))

	resp, _ = get(t, client, ts.URL+"/profile")
	assert.Equal(t, "/login", resp.Request.URL.Path)

	// wrong password: generic failure, one Failed Login entry, no session
	resp, _ = postForm(t, client, ts.URL+"/login", url.Values{
		"email":    {"alice@x.com"},
		"password": {"wrongpw123"},
	})
	assert.Equal(t, "/login", resp.Request.URL.Path)
	assert.Equal(t, 1, countEntries(t, users, auth.ActionFailedLogin))

	resp, _ = get(t, client, ts.URL+"/dashboard")
	assert.Equal(t, "/login", resp.Request.URL.Path)
}

func TestAuthFlow_AuthenticatedPostsRedirect(t *testing.T) {
	ts, users := newTestApp(t)
	_, err := users.Register(auth.RegisterInput{
		Username: "alice",
		Email:    "alice@x.com",
		Password: "pw12345678",
		Confirm:  "pw12345678",
	}, "127.0.0.1")
	require.NoError(t, err)

	client := newClient(t)
	postForm(t, client, ts.URL+"/login", url.Values{
		"email":    {"alice@x.com"},
		"password": {"pw12345678"},
	})

	// a logged-in POST /login is redirected before the form is processed
	resp, _ := postForm(t, client, ts.URL+"/login", url.Values{
		"email":    {"alice@x.com"},
		"password": {"wrongpw123"},
	})
	assert.Equal(t, "/user/dashboard", resp.Request.URL.Path)
	assert.Zero(t, countEntries(t, users, auth.ActionFailedLogin))

	// a logged-in POST /register creates no account
	resp, _ = postForm(t, client, ts.URL+"/register", url.Values{
		"username":         {"bob"},
		"email":            {"bob@x.com"},
		"password":         {"pw12345678"},
		"confirm_password": {"pw12345678"},
	})
	assert.Equal(t, "/user/dashboard", resp.Request.URL.Path)
	_, err = users.GetByUsername("bob")
	assert.ErrorIs(t, err, auth.ErrUserNotFound)
}

func TestAdminFlow_DeleteAndSelfDelete(t *testing.T) {
	ts, users := newTestApp(t)
	require.NoError(t, users.EnsureDefaultAdmin("root", "root@x.com", "rootpw12345"))

	client := newClient(t)
	resp, body := postForm(t, client, ts.URL+"/login", url.Values{
		"email":    {"root@x.com"},
		"password": {"rootpw12345"},
	})
	assert.Equal(t, "/admin/dashboard", resp.Request.URL.Path)
	assert.Equal(t, "admin_dashboard.html", body)

	alice, err := users.Register(auth.RegisterInput{
		Username: "alice",
		Email:    "alice@x.com",
		Password: "pw12345678",
		Confirm:  "pw12345678",
	}, "127.0.0.1")
	require.NoError(t, err)

	root, err := users.GetByUsername("root")
	require.NoError(t, err)

	// deleting another account succeeds
	resp, _ = postForm(t, client, ts.URL+"/admin/users/"+itoa(alice.ID)+"/delete", url.Values{})
	assert.Equal(t, "/admin/users", resp.Request.URL.Path)
	_, err = users.GetByID(alice.ID)
	assert.ErrorIs(t, err, auth.ErrUserNotFound)

	// self-deletion is rejected and nothing changes
	resp, _ = postForm(t, client, ts.URL+"/admin/users/"+itoa(root.ID)+"/delete", url.Values{})
	assert.Equal(t, "/admin/users", resp.Request.URL.Path)
	_, err = users.GetByID(root.ID)
	assert.NoError(t, err)
}

func TestAdminFlow_StatsJSON(t *testing.T) {
	ts, users := newTestApp(t)
	require.NoError(t, users.EnsureDefaultAdmin("root", "root@x.com", "rootpw12345"))

	client := newClient(t)
	postForm(t, client, ts.URL+"/login", url.Values{
		"email":    {"root@x.com"},
		"password": {"rootpw12345"},
	})

	resp, err := client.Get(ts.URL + "/api/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")

	var stats struct {
		TotalUsers int `json:"total_users"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, 1, stats.TotalUsers)
}

func TestChangePassword_Handler(t *testing.T) {
	ts, users := newTestApp(t)
	_, err := users.Register(auth.RegisterInput{
		Username: "alice",
		Email:    "alice@x.com",
		Password: "pw12345678",
		Confirm:  "pw12345678",
	}, "127.0.0.1")
	require.NoError(t, err)

	client := newClient(t)
	postForm(t, client, ts.URL+"/login", url.Values{
		"email":    {"alice@x.com"},
		"password": {"pw12345678"},
	})

	// wrong current password mutates nothing
	resp, _ := postForm(t, client, ts.URL+"/change-password", url.Values{
		"current_password": {"wrong-current"},
		"new_password":     {"newpw12345"},
		"confirm_password": {"newpw12345"},
	})
	assert.Equal(t, "/change-password", resp.Request.URL.Path)
	_, err = users.Login("alice@x.com", "pw12345678", "127.0.0.1")
	require.NoError(t, err)

	resp, body := postForm(t, client, ts.URL+"/change-password", url.Values{
		"current_password": {"pw12345678"},
		"new_password":     {"newpw12345"},
		"confirm_password": {"newpw12345"},
	})
	assert.Equal(t, "/profile", resp.Request.URL.Path)
	assert.Equal(t, "profile.html", body)

	_, err = users.Login("alice@x.com", "newpw12345", "127.0.0.1")
	assert.NoError(t, err)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
