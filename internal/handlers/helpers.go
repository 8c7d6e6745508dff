package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"userhub/internal/auth"

	log "github.com/sirupsen/logrus"
)

func render(t TemplateExecutor, w http.ResponseWriter, name string, data map[string]interface{}) {
	if err := t.ExecuteTemplate(w, name, data); err != nil {
		log.Errorf("template %s: %v", name, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func getClientIP(r *http.Request) string {
	// Check X-Forwarded-For header for proxy setups
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}

func queryInt(r *http.Request, key string, fallback int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

// inputMessage turns a validation error into its user-facing text.
func inputMessage(err error) string {
	if errors.Is(err, auth.ErrInvalidInput) {
		return strings.TrimPrefix(err.Error(), auth.ErrInvalidInput.Error()+": ")
	}
	return "Invalid Entry"
}
