package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"userhub/internal/auth"
	"userhub/internal/database"
	"userhub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorize(t *testing.T) {
	active := &models.User{ID: 1, IsActive: true}
	admin := &models.User{ID: 2, IsActive: true, IsAdmin: true}
	inactive := &models.User{ID: 3, IsActive: false, IsAdmin: true}

	cases := []struct {
		name     string
		user     *models.User
		required Role
		want     Decision
	}{
		{"nil user", nil, RoleUser, DenyUnauthenticated},
		{"nil user admin route", nil, RoleAdmin, DenyUnauthenticated},
		{"inactive user", inactive, RoleUser, DenyUnauthenticated},
		{"active user", active, RoleUser, Allow},
		{"active user admin route", active, RoleAdmin, DenyForbidden},
		{"admin user", admin, RoleUser, Allow},
		{"admin user admin route", admin, RoleAdmin, Allow},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Authorize(tc.user, tc.required))
		})
	}
}

type fixture struct {
	users    *auth.UserService
	sessions *auth.SessionManager
	mw       *AuthMiddleware
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	users := auth.NewUserService(db)
	sessions := auth.NewSessionManager("test-secret-0123456789abcdef0000", time.Hour)
	return &fixture{
		users:    users,
		sessions: sessions,
		mw:       NewAuthMiddleware(sessions, users),
	}
}

func (f *fixture) register(t *testing.T, username, email string) *models.User {
	t.Helper()
	user, err := f.users.Register(auth.RegisterInput{
		Username: username,
		Email:    email,
		Password: "pw12345678",
		Confirm:  "pw12345678",
	}, "127.0.0.1")
	require.NoError(t, err)
	return user
}

func (f *fixture) login(t *testing.T, userID int64) []*http.Cookie {
	t.Helper()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	require.NoError(t, f.sessions.Establish(w, r, userID))
	return w.Result().Cookies()
}

func TestRequireAuth_AnonymousRedirectsToLogin(t *testing.T) {
	f := newFixture(t)

	called := false
	handler := f.mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/profile", nil))

	assert.False(t, called, "protected handler must not run")
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestRequireAuth_PutsUserInContext(t *testing.T) {
	f := newFixture(t)
	user := f.register(t, "alice", "alice@x.com")
	cookies := f.login(t, user.ID)

	var got *models.User
	handler := f.mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetUser(r)
	}))

	r := httptest.NewRequest(http.MethodGet, "/profile", nil)
	for _, c := range cookies {
		r.AddCookie(c)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	require.NotNil(t, got)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "alice", got.Username)
}

func TestRequireAuth_DeactivatedAccountTerminatesSession(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.users.EnsureDefaultAdmin("root", "root@x.com", "rootpw12345"))
	admin, err := f.users.GetByUsername("root")
	require.NoError(t, err)

	user := f.register(t, "alice", "alice@x.com")
	cookies := f.login(t, user.ID)

	require.NoError(t, f.users.AdminUpdate(admin.ID, user.ID, auth.AdminUpdateInput{
		Username: "alice",
		Email:    "alice@x.com",
		IsActive: false,
	}, "127.0.0.1"))

	called := false
	handler := f.mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	r := httptest.NewRequest(http.MethodGet, "/profile", nil)
	for _, c := range cookies {
		r.AddCookie(c)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	assert.False(t, called)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestRequireAuth_DeletedAccountRedirects(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.users.EnsureDefaultAdmin("root", "root@x.com", "rootpw12345"))
	admin, err := f.users.GetByUsername("root")
	require.NoError(t, err)

	user := f.register(t, "alice", "alice@x.com")
	cookies := f.login(t, user.ID)
	require.NoError(t, f.users.Delete(admin.ID, user.ID, "127.0.0.1"))

	handler := f.mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	r := httptest.NewRequest(http.MethodGet, "/profile", nil)
	for _, c := range cookies {
		r.AddCookie(c)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestRequireAdmin_ForbiddenForRegularUser(t *testing.T) {
	f := newFixture(t)
	user := f.register(t, "alice", "alice@x.com")
	cookies := f.login(t, user.ID)

	called := false
	handler := f.mw.RequireAuth(f.mw.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})))

	r := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
	for _, c := range cookies {
		r.AddCookie(c)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	assert.False(t, called)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/dashboard", w.Header().Get("Location"))
}

func TestRequireAdmin_AllowsAdmin(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.users.EnsureDefaultAdmin("root", "root@x.com", "rootpw12345"))
	admin, err := f.users.GetByUsername("root")
	require.NoError(t, err)
	cookies := f.login(t, admin.ID)

	called := false
	handler := f.mw.RequireAuth(f.mw.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})))

	r := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
	for _, c := range cookies {
		r.AddCookie(c)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	assert.True(t, called)
}
