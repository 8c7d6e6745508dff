package auth

import (
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"userhub/internal/database"
	"userhub/internal/models"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountDeactivated = errors.New("account deactivated")
	ErrUserExists         = errors.New("user already exists")
	ErrPasswordMismatch   = errors.New("password mismatch")
	ErrSelfDeletion       = errors.New("cannot delete own account")
	ErrInvalidInput       = errors.New("invalid input")
)

var usernameRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_.]*$`)

const userColumns = `id, username, email, password_hash, is_admin, is_active,
	COALESCE(first_name, ''), COALESCE(last_name, ''), COALESCE(phone, ''),
	created_at, last_login`

type UserService struct {
	db *database.DB
}

func NewUserService(db *database.DB) *UserService {
	return &UserService{db: db}
}

type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	Confirm   string
	FirstName string
	LastName  string
	Phone     string
}

// Register creates a regular, active account. It never establishes a session;
// the user logs in separately. A Registration entry is recorded on success.
func (s *UserService) Register(in RegisterInput, ip string) (*models.User, error) {
	if in.Password != in.Confirm {
		return nil, ErrPasswordMismatch
	}
	if err := validateUsername(in.Username); err != nil {
		return nil, err
	}
	if err := validateEmail(in.Email); err != nil {
		return nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}

	// Pre-check for a friendlier error; the UNIQUE constraints below are the
	// actual correctness mechanism under concurrent registrations.
	if _, err := s.GetByUsername(in.Username); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}
	if _, err := s.GetByEmail(in.Email); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	user, err := s.create(in.Username, in.Email, in.Password, in.FirstName, in.LastName, in.Phone, false)
	if err != nil {
		return nil, err
	}

	s.Record(&user.ID, ActionRegistration, "New user account created", ip)
	return user, nil
}

// Login verifies credentials by email. Unknown email and wrong password are
// indistinguishable to the caller; each failed attempt leaves one Failed
// Login entry. On success the session caller gets the user back with
// last_login already set.
func (s *UserService) Login(email, password, ip string) (*models.User, error) {
	user, err := s.GetByEmail(email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.Record(nil, ActionFailedLogin, "Failed login attempt for email: "+email, ip)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !CheckPassword(user.PasswordHash, password) {
		s.Record(&user.ID, ActionFailedLogin, "Failed login attempt for email: "+email, ip)
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		s.Record(&user.ID, ActionFailedLogin, "Login attempt for deactivated account", ip)
		return nil, ErrAccountDeactivated
	}

	now := time.Now().UTC()
	if _, err := s.db.Exec("UPDATE users SET last_login = ? WHERE id = ?", now, user.ID); err != nil {
		return nil, fmt.Errorf("failed to update last login: %w", err)
	}
	user.LastLoginAt = &now

	s.Record(&user.ID, ActionLogin, "User logged in successfully", ip)
	return user, nil
}

func (s *UserService) GetByID(id int64) (*models.User, error) {
	return s.getUser("SELECT "+userColumns+" FROM users WHERE id = ?", id)
}

func (s *UserService) GetByEmail(email string) (*models.User, error) {
	return s.getUser("SELECT "+userColumns+" FROM users WHERE email = ?", email)
}

func (s *UserService) GetByUsername(username string) (*models.User, error) {
	return s.getUser("SELECT "+userColumns+" FROM users WHERE username = ?", username)
}

type ListOptions struct {
	Search  string
	Role    string // all, admin, user
	Status  string // all, active, inactive
	Page    int
	PerPage int
}

// List returns one page of users matching the search and role/status filters,
// ordered by username.
func (s *UserService) List(opts ListOptions) (*models.UserPage, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.PerPage < 1 {
		opts.PerPage = 10
	}

	where := "1=1"
	var args []interface{}

	if opts.Search != "" {
		where += ` AND (username LIKE ? OR email LIKE ? OR
			COALESCE(first_name, '') LIKE ? OR COALESCE(last_name, '') LIKE ?)`
		pattern := "%" + opts.Search + "%"
		args = append(args, pattern, pattern, pattern, pattern)
	}
	switch opts.Role {
	case "admin":
		where += " AND is_admin = TRUE"
	case "user":
		where += " AND is_admin = FALSE"
	}
	switch opts.Status {
	case "active":
		where += " AND is_active = TRUE"
	case "inactive":
		where += " AND is_active = FALSE"
	}

	var total int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM users WHERE "+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	query := "SELECT " + userColumns + " FROM users WHERE " + where +
		" ORDER BY username LIMIT ? OFFSET ?"
	args = append(args, opts.PerPage, (opts.Page-1)*opts.PerPage)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	return &models.UserPage{
		Users:      users,
		Page:       opts.Page,
		PerPage:    opts.PerPage,
		Total:      total,
		TotalPages: (total + opts.PerPage - 1) / opts.PerPage,
	}, nil
}

// RecentUsers returns the most recently registered accounts.
func (s *UserService) RecentUsers(limit int) ([]models.User, error) {
	rows, err := s.db.Query("SELECT "+userColumns+" FROM users ORDER BY created_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

type ProfileInput struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
	Phone     string
}

// UpdateProfile lets a user change their own identity and contact fields.
// The new username/email may not collide with a different account.
func (s *UserService) UpdateProfile(userID int64, in ProfileInput, ip string) error {
	if err := validateUsername(in.Username); err != nil {
		return err
	}
	if err := validateEmail(in.Email); err != nil {
		return err
	}
	if err := s.checkCollision(userID, in.Username, in.Email); err != nil {
		return err
	}

	_, err := s.db.Exec(
		`UPDATE users SET username = ?, email = ?, first_name = ?, last_name = ?, phone = ?
		 WHERE id = ?`,
		in.Username, in.Email, in.FirstName, in.LastName, in.Phone, userID,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUserExists
		}
		return fmt.Errorf("failed to update profile: %w", err)
	}

	s.Record(&userID, ActionProfileUpdate, "User updated profile information", ip)
	return nil
}

type AdminUpdateInput struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
	Phone     string
	IsAdmin   bool
	IsActive  bool
}

// AdminUpdate edits any account, including the role and active flags. The
// acting admin is recorded as the User Edit actor.
func (s *UserService) AdminUpdate(actorID, targetID int64, in AdminUpdateInput, ip string) error {
	if _, err := s.GetByID(targetID); err != nil {
		return err
	}
	if err := validateUsername(in.Username); err != nil {
		return err
	}
	if err := validateEmail(in.Email); err != nil {
		return err
	}
	if err := s.checkCollision(targetID, in.Username, in.Email); err != nil {
		return err
	}

	_, err := s.db.Exec(
		`UPDATE users SET username = ?, email = ?, first_name = ?, last_name = ?, phone = ?,
			is_admin = ?, is_active = ?
		 WHERE id = ?`,
		in.Username, in.Email, in.FirstName, in.LastName, in.Phone,
		in.IsAdmin, in.IsActive, targetID,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUserExists
		}
		return fmt.Errorf("failed to update user: %w", err)
	}

	s.Record(&actorID, ActionUserEdit, "Edited user: "+in.Username, ip)
	return nil
}

// ChangePassword replaces the caller's hash after verifying the current
// password. Nothing is mutated on a mismatch.
func (s *UserService) ChangePassword(userID int64, current, newPassword, ip string) error {
	user, err := s.GetByID(userID)
	if err != nil {
		return err
	}
	if !CheckPassword(user.PasswordHash, current) {
		return ErrPasswordMismatch
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if _, err := s.db.Exec("UPDATE users SET password_hash = ? WHERE id = ?", hash, userID); err != nil {
		return fmt.Errorf("failed to change password: %w", err)
	}

	s.Record(&userID, ActionPasswordChange, "User changed password", ip)
	return nil
}

// Delete removes an account. An admin may not delete their own account.
func (s *UserService) Delete(actorID, targetID int64, ip string) error {
	if actorID == targetID {
		return ErrSelfDeletion
	}

	target, err := s.GetByID(targetID)
	if err != nil {
		return err
	}

	result, err := s.db.Exec("DELETE FROM users WHERE id = ?", targetID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrUserNotFound
	}

	s.Record(&actorID, ActionUserDelete, "Deleted user: "+target.Username, ip)
	return nil
}

// Stats aggregates the counters and the 12-month registration series shown on
// the admin dashboard.
func (s *UserService) Stats() (*models.UserStats, error) {
	stats := &models.UserStats{}

	counts := []struct {
		query string
		dst   *int
	}{
		{"SELECT COUNT(*) FROM users", &stats.TotalUsers},
		{"SELECT COUNT(*) FROM users WHERE is_active = TRUE", &stats.ActiveUsers},
		{"SELECT COUNT(*) FROM users WHERE is_admin = TRUE", &stats.AdminUsers},
	}
	for _, c := range counts {
		if err := s.db.QueryRow(c.query).Scan(c.dst); err != nil {
			return nil, fmt.Errorf("failed to count users: %w", err)
		}
	}

	now := time.Now().UTC()
	thirtyDaysAgo := now.AddDate(0, 0, -30)
	if err := s.db.QueryRow("SELECT COUNT(*) FROM users WHERE created_at >= ?", thirtyDaysAgo).
		Scan(&stats.NewUsers); err != nil {
		return nil, fmt.Errorf("failed to count new users: %w", err)
	}

	for i := 11; i >= 0; i-- {
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -i, 0)
		monthEnd := monthStart.AddDate(0, 1, 0)

		var count int
		if err := s.db.QueryRow(
			"SELECT COUNT(*) FROM users WHERE created_at >= ? AND created_at < ?",
			monthStart, monthEnd,
		).Scan(&count); err != nil {
			return nil, fmt.Errorf("failed to count monthly users: %w", err)
		}

		stats.UserGrowth = append(stats.UserGrowth, models.MonthlyCount{
			Month: monthStart.Format("Jan 2006"),
			Count: count,
		})
	}

	return stats, nil
}

func (s *UserService) Count() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}

// EnsureDefaultAdmin seeds an admin account when the user table is empty.
func (s *UserService) EnsureDefaultAdmin(username, email, password string) error {
	count, err := s.Count()
	if err != nil {
		return err
	}
	if count == 0 {
		_, err = s.create(username, email, password, "", "", "", true)
		return err
	}
	return nil
}

func (s *UserService) create(username, email, password, firstName, lastName, phone string, isAdmin bool) (*models.User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	result, err := s.db.Exec(
		`INSERT INTO users (username, email, password_hash, is_admin, is_active, first_name, last_name, phone)
		 VALUES (?, ?, ?, ?, TRUE, ?, ?, ?)`,
		username, email, hash, isAdmin, firstName, lastName, phone,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	id, _ := result.LastInsertId()
	return s.GetByID(id)
}

func (s *UserService) getUser(query string, args ...interface{}) (*models.User, error) {
	user, err := scanUser(s.db.QueryRow(query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// checkCollision rejects a username/email already held by a different account.
func (s *UserService) checkCollision(id int64, username, email string) error {
	var existing int64
	err := s.db.QueryRow("SELECT id FROM users WHERE username = ? AND id != ?", username, id).Scan(&existing)
	if err == nil {
		return ErrUserExists
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to check username: %w", err)
	}

	err = s.db.QueryRow("SELECT id FROM users WHERE email = ? AND id != ?", email, id).Scan(&existing)
	if err == nil {
		return ErrUserExists
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to check email: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row scanner) (*models.User, error) {
	var user models.User
	var lastLogin sql.NullTime
	err := row.Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.IsAdmin, &user.IsActive,
		&user.FirstName, &user.LastName, &user.Phone,
		&user.CreatedAt, &lastLogin,
	)
	if err != nil {
		return nil, err
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		user.LastLoginAt = &t
	}
	return &user, nil
}

func validateUsername(username string) error {
	if len(username) < 3 || len(username) > 20 {
		return fmt.Errorf("%w: username must be 3-20 characters", ErrInvalidInput)
	}
	if !usernameRe.MatchString(username) {
		return fmt.Errorf("%w: usernames must have only letters, numbers, dots or underscores", ErrInvalidInput)
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" || len(email) > 64 {
		return fmt.Errorf("%w: email must be 1-64 characters", ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("%w: invalid email address", ErrInvalidInput)
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 8 || len(password) > 72 {
		return fmt.Errorf("%w: password must be 8-72 characters", ErrInvalidInput)
	}
	return nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
