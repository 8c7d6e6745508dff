package models

// UserStats feeds the admin dashboard and the /api/stats endpoint.
type UserStats struct {
	TotalUsers  int            `json:"total_users"`
	ActiveUsers int            `json:"active_users"`
	AdminUsers  int            `json:"admin_users"`
	NewUsers    int            `json:"new_users"`
	UserGrowth  []MonthlyCount `json:"user_growth"`
}

// MonthlyCount is one point of the 12-month registration series.
type MonthlyCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}
