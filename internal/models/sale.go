package models

import "time"

// ItemKind splits the catalog into its two fixed good types.
type ItemKind string

const (
	KindAccount ItemKind = "account"
	KindProxy   ItemKind = "proxy"
)

// Sale is one immutable record in the append-only sales log.
type Sale struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	TotalPrice int64     `json:"total_price"`
	Quantity   int       `json:"quantity"`
	Folder     string    `json:"folder"`
	Kind       ItemKind  `json:"kind"`
	CreatedAt  time.Time `json:"created_at"`
}

// SalesStats is the aggregate view rendered by the admin panel and the
// ops /stats endpoint. All fields exclude admin activity.
type SalesStats struct {
	TotalUsers     int64   `json:"total_users"`
	UniqueBuyers   int64   `json:"unique_buyers"`
	SalesToday     int64   `json:"sales_today"`
	SalesThisMonth int64   `json:"sales_this_month"`
	TotalOrders    int64   `json:"total_orders"`
	AvgTicketToday float64 `json:"avg_ticket_today"`
	RevenueTotal   int64   `json:"revenue_total"`
}

// TopBuyer is one row of the top-buyers ranking.
type TopBuyer struct {
	UserID     int64  `json:"user_id"`
	Username   string `json:"username,omitempty"`
	TotalSpent int64  `json:"total_spent"`
}
