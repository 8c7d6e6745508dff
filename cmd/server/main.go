package main

import (
	"fmt"
	"html/template"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"userhub/internal/auth"
	"userhub/internal/config"
	"userhub/internal/database"
	"userhub/internal/handlers"
	"userhub/internal/logging"
	"userhub/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
)

// TemplateRegistry holds separate template instances for each page
type TemplateRegistry struct {
	templates map[string]*template.Template
	funcMap   template.FuncMap
}

func NewTemplateRegistry(funcMap template.FuncMap) *TemplateRegistry {
	return &TemplateRegistry{
		templates: make(map[string]*template.Template),
		funcMap:   funcMap,
	}
}

func (tr *TemplateRegistry) Add(name string, tmpl *template.Template) {
	tr.templates[name] = tmpl
}

func (tr *TemplateRegistry) ExecuteTemplate(w io.Writer, name string, data interface{}) error {
	tmpl, ok := tr.templates[name]
	if ok {
		// A page file may define a template without the .html extension
		if strings.HasSuffix(name, ".html") {
			baseName := strings.TrimSuffix(name, ".html")
			if lookup := tmpl.Lookup(baseName); lookup != nil {
				return lookup.Execute(w, data)
			}
		}
		return tmpl.ExecuteTemplate(w, name, data)
	}

	// Partials may be defined inside another registered template set
	for _, t := range tr.templates {
		if lookup := t.Lookup(name); lookup != nil {
			return lookup.Execute(w, data)
		}
	}

	return fmt.Errorf("template %s not found", name)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logging.Setup(cfg.LogFile)

	webDir := getWebDir(cfg.WebDir)
	log.Infof("Using web directory: %s", webDir)

	db, err := database.New(cfg.DataDir)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	userService := auth.NewUserService(db)
	sessionManager := auth.NewSessionManager(cfg.SessionSecret, time.Duration(cfg.SessionLifetime)*time.Minute)

	// Ensure default admin user exists
	if err := userService.EnsureDefaultAdmin(cfg.DefaultAdmin, cfg.DefaultEmail, cfg.DefaultPassword); err != nil {
		log.Warnf("Failed to create default admin: %v", err)
	}

	templates, err := loadTemplates(filepath.Join(webDir, "templates"))
	if err != nil {
		log.Fatalf("Failed to load templates: %v", err)
	}

	authHandler := handlers.NewAuthHandler(templates, sessionManager, userService)
	dashboardHandler := handlers.NewDashboardHandler(templates, sessionManager, userService)
	usersHandler := handlers.NewUsersHandler(templates, sessionManager, userService)
	profileHandler := handlers.NewProfileHandler(templates, sessionManager, userService)
	activitiesHandler := handlers.NewActivitiesHandler(templates, sessionManager, userService)

	authMiddleware := middleware.NewAuthMiddleware(sessionManager, userService)

	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)

	staticDir := filepath.Join(webDir, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))

	// Public routes
	r.Get("/", authHandler.Index)
	r.Get("/login", authHandler.LoginPage)
	r.Post("/login", authHandler.Login)
	r.Get("/register", authHandler.RegisterPage)
	r.Post("/register", authHandler.Register)

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.RequireAuth)

		r.Get("/logout", authHandler.Logout)

		r.Get("/dashboard", dashboardHandler.Dashboard)
		r.Get("/user/dashboard", dashboardHandler.UserDashboard)

		r.Get("/profile", profileHandler.ProfilePage)
		r.Post("/profile", profileHandler.UpdateProfile)
		r.Get("/change-password", profileHandler.ChangePasswordPage)
		r.Post("/change-password", profileHandler.ChangePassword)

		// Admin-only routes
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

	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Infof("Starting UserHub on %s", addr)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Info("Shutting down...")
		os.Exit(0)
	}()

	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func getWebDir(configured string) string {
	if configured != "" {
		return configured
	}

	// Try relative paths from the executable
	exe, err := os.Executable()
	if err == nil {
		exeDir := filepath.Dir(exe)

		candidate := filepath.Join(exeDir, "..", "web")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}

		candidate = filepath.Join(exeDir, "..", "..", "web")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	if cwd, err := os.Getwd(); err == nil {
		candidate := filepath.Join(cwd, "web")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return "./web"
}

func loadTemplates(templatesDir string) (*TemplateRegistry, error) {
	funcMap := template.FuncMap{
		"formatTime": formatTime,
		"dict":       dict,
	}

	registry := NewTemplateRegistry(funcMap)

	layoutsDir := filepath.Join(templatesDir, "layouts")
	partialsDir := filepath.Join(templatesDir, "partials")
	pagesDir := filepath.Join(templatesDir, "pages")

	var sharedFiles []string

	layoutFiles, _ := filepath.Glob(filepath.Join(layoutsDir, "*.html"))
	sharedFiles = append(sharedFiles, layoutFiles...)

	partialFiles, _ := filepath.Glob(filepath.Join(partialsDir, "*.html"))
	sharedFiles = append(sharedFiles, partialFiles...)

	pageFiles, err := filepath.Glob(filepath.Join(pagesDir, "*.html"))
	if err != nil {
		return nil, err
	}

	// Each page gets its own template set so pages can define blocks with
	// the same names without clobbering each other.
	for _, pageFile := range pageFiles {
		pageName := filepath.Base(pageFile)

		tmpl := template.New(pageName).Funcs(funcMap)

		for _, sharedFile := range sharedFiles {
			content, err := os.ReadFile(sharedFile)
			if err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", sharedFile, err)
			}
			if _, err = tmpl.Parse(string(content)); err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", sharedFile, err)
			}
		}

		pageContent, err := os.ReadFile(pageFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", pageFile, err)
		}
		if _, err = tmpl.Parse(string(pageContent)); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", pageFile, err)
		}

		registry.Add(pageName, tmpl)
	}

	// Partials are also registered standalone for fragment responses
	for _, partialFile := range partialFiles {
		partialName := filepath.Base(partialFile)

		tmpl := template.New(partialName).Funcs(funcMap)

		for _, pf := range partialFiles {
			content, err := os.ReadFile(pf)
			if err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", pf, err)
			}
			if _, err = tmpl.Parse(string(content)); err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", pf, err)
			}
		}

		registry.Add(partialName, tmpl)
	}

	return registry, nil
}

func formatTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04")
}

func dict(values ...interface{}) map[string]interface{} {
	if len(values)%2 != 0 {
		return nil
	}
	d := make(map[string]interface{}, len(values)/2)
	for i := 0; i < len(values); i += 2 {
		key, ok := values[i].(string)
		if !ok {
			return nil
		}
		d[key] = values[i+1]
	}
	return d
}
