package models

import "time"

// ActivityLog is one append-only audit trail entry. UserID is nil for events
// without an authenticated actor, such as failed logins.
type ActivityLog struct {
	ID          int64     `json:"id"`
	UserID      *int64    `json:"user_id"`
	Username    string    `json:"username,omitempty"`
	Action      string    `json:"action"`
	Description string    `json:"description"`
	IPAddress   string    `json:"ip_address"`
	CreatedAt   time.Time `json:"created_at"`
}

type ActivityPage struct {
	Entries    []ActivityLog `json:"entries"`
	Page       int           `json:"page"`
	PerPage    int           `json:"per_page"`
	Total      int           `json:"total"`
	TotalPages int           `json:"total_pages"`
}

func (p *ActivityPage) HasPrev() bool { return p.Page > 1 }
func (p *ActivityPage) HasNext() bool { return p.Page < p.TotalPages }
