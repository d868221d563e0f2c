package models

import "time"

// Invoice mirrors one Crypto Pay invoice locally. The paid flag is the
// replay guard: it transitions false -> true exactly once, and only
// together with the balance credit.
type Invoice struct {
	InvoiceID string
	UserID    int64
	Amount    int64
	Paid      bool
	PayURL    string
	CreatedAt time.Time
}
