package notification

import "time"

// Types
const (
	TypeWelcome     = "welcome"
	TypeNewSignup   = "new_signup"
	TypeNewOrder    = "new_order"
	TypeOrderStatus = "order_status"
	TypePriceDrop   = "price_drop"
	TypeRestock     = "restock"
	TypeLowStock    = "low_stock"
	TypeFeePayment  = "fee_payment"
)

// Notification is a single per-recipient inbox row. Fan-out inserts one row
// per recipient; there is no batching and no dedup.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Link      string    `json:"link,omitempty"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"` // UTC
}
