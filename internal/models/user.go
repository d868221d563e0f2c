package models

import "time"

type User struct {
	ID        int64
	Username  string
	Balance   int64
	CreatedAt time.Time
}
