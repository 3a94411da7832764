package cart

import (
	"time"

	"github.com/mavuno/sokoni/core"
)

// Cart is the one-per-user line item holder. Items denormalize the product
// name/price/image at add time and can go stale relative to the Product.
type Cart struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Items     []Item    `json:"items"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

type Item struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"` // cents, captured at add time
	Quantity  int    `json:"quantity"`
	Image     string `json:"image,omitempty"`
}

// Total is the sum of price*quantity over all items, in cents.
func (c Cart) Total() int64 {
	var total int64
	for _, it := range c.Items {
		total += it.Price * int64(it.Quantity)
	}
	return total
}

func (c Cart) IsEmpty() bool { return len(c.Items) == 0 }

type AddItem struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

func (ai *AddItem) Validate() error { return core.Validate.Struct(ai) }

type UpdateItem struct {
	Quantity int `json:"quantity" validate:"gte=0"`
}

func (ui *UpdateItem) Validate() error { return core.Validate.Struct(ui) }
