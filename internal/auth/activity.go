package auth

import (
	"database/sql"
	"fmt"

	"userhub/internal/models"

	log "github.com/sirupsen/logrus"
)

// The closed set of audit trail actions.
const (
	ActionLogin          = "Login"
	ActionFailedLogin    = "Failed Login"
	ActionLogout         = "Logout"
	ActionRegistration   = "Registration"
	ActionProfileUpdate  = "Profile Update"
	ActionPasswordChange = "Password Change"
	ActionUserEdit       = "User Edit"
	ActionUserDelete     = "User Delete"
)

// Record appends one activity entry. Recording is best effort: a storage
// failure is logged and swallowed so the triggering operation still
// completes. userID is nil for events without an authenticated actor.
func (s *UserService) Record(userID *int64, action, description, ip string) {
	_, err := s.db.Exec(
		"INSERT INTO activity_logs (user_id, action, description, ip_address) VALUES (?, ?, ?, ?)",
		userID, action, description, ip,
	)
	if err != nil {
		log.Errorf("failed to record activity %q: %v", action, err)
	}
}

// Activities returns one page of the audit trail, newest first.
func (s *UserService) Activities(page, perPage int) (*models.ActivityPage, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}

	var total int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM activity_logs").Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count activities: %w", err)
	}

	rows, err := s.db.Query(`
		SELECT a.id, a.user_id, COALESCE(u.username, 'system'), a.action,
			COALESCE(a.description, ''), COALESCE(a.ip_address, ''), a.created_at
		FROM activity_logs a
		LEFT JOIN users u ON a.user_id = u.id
		ORDER BY a.created_at DESC, a.id DESC
		LIMIT ? OFFSET ?
	`, perPage, (page-1)*perPage)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	defer rows.Close()

	entries, err := scanActivities(rows)
	if err != nil {
		return nil, err
	}

	return &models.ActivityPage{
		Entries:    entries,
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: (total + perPage - 1) / perPage,
	}, nil
}

// RecentActivities returns the newest entries across all users.
func (s *UserService) RecentActivities(limit int) ([]models.ActivityLog, error) {
	return s.queryActivities(`
		SELECT a.id, a.user_id, COALESCE(u.username, 'system'), a.action,
			COALESCE(a.description, ''), COALESCE(a.ip_address, ''), a.created_at
		FROM activity_logs a
		LEFT JOIN users u ON a.user_id = u.id
		ORDER BY a.created_at DESC, a.id DESC
		LIMIT ?
	`, limit)
}

// UserActivities returns the newest entries for one user.
func (s *UserService) UserActivities(userID int64, limit int) ([]models.ActivityLog, error) {
	return s.queryActivities(`
		SELECT a.id, a.user_id, COALESCE(u.username, 'system'), a.action,
			COALESCE(a.description, ''), COALESCE(a.ip_address, ''), a.created_at
		FROM activity_logs a
		LEFT JOIN users u ON a.user_id = u.id
		WHERE a.user_id = ?
		ORDER BY a.created_at DESC, a.id DESC
		LIMIT ?
	`, userID, limit)
}

func (s *UserService) queryActivities(query string, args ...interface{}) ([]models.ActivityLog, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	defer rows.Close()
	return scanActivities(rows)
}

func scanActivities(rows *sql.Rows) ([]models.ActivityLog, error) {
	var entries []models.ActivityLog
	for rows.Next() {
		var entry models.ActivityLog
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.Username, &entry.Action,
			&entry.Description, &entry.IPAddress, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
