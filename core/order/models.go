package order

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/mavuno/sokoni/core"
)

// Statuses
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusShipped    = "shipped"
	StatusDelivered  = "delivered"
	StatusCancelled  = "cancelled"
)

var AllStatuses = []string{StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled}

// Order snapshots the cart at checkout time; Items never change afterwards.
// Total is the item sum only: tax and shipping are display-side concerns and
// are not persisted.
type Order struct {
	ID              string      `json:"id"`
	Number          string      `json:"number"`
	UserID          string      `json:"user_id"`
	Items           []Item      `json:"items"`
	Shipping        Shipping    `json:"shipping"`
	Status          string      `json:"status"`
	TrackingCarrier null.String `json:"tracking_carrier,omitempty"`
	TrackingNumber  null.String `json:"tracking_number,omitempty"`
	Total           int64       `json:"total"` // cents
	CreatedAt       time.Time   `json:"created_at"` // UTC
	UpdatedAt       time.Time   `json:"updated_at"` // UTC
}

type Item struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"` // cents, snapshot
	Quantity  int    `json:"quantity"`
	Image     string `json:"image,omitempty"`
}

type Shipping struct {
	Name    string `json:"name" validate:"required"`
	Address string `json:"address" validate:"required"`
	City    string `json:"city" validate:"required"`
	Country string `json:"country" validate:"required"`
	Phone   string `json:"phone" validate:"required"`
}

type Checkout struct {
	Shipping Shipping `json:"shipping" validate:"required"`
}

func (co *Checkout) Validate() error {
	co.Shipping.Name = core.CleanString(co.Shipping.Name)
	co.Shipping.Address = core.CleanString(co.Shipping.Address)
	co.Shipping.City = core.CleanString(co.Shipping.City)
	co.Shipping.Country = core.CleanString(co.Shipping.Country)
	co.Shipping.Phone = core.CleanString(co.Shipping.Phone)
	return core.Validate.Struct(co)
}

// UpdateStatus carries an admin status overwrite. Status strings outside the
// fixed set are rejected; transition legality is deliberately not checked.
type UpdateStatus struct {
	Status          string      `json:"status" validate:"required,orderstatus"`
	TrackingCarrier null.String `json:"tracking_carrier"`
	TrackingNumber  null.String `json:"tracking_number"`
}

func (us *UpdateStatus) Validate() error {
	us.Status = core.CleanString(us.Status, true /* lower */)
	return core.Validate.Struct(us)
}

type QueryFilter struct {
	Status string `query:"status"`
	UserID string `query:"user_id"`
}

func (qf *QueryFilter) IsEmpty() bool { return qf.Status == "" && qf.UserID == "" }

func (qf *QueryFilter) Clean() {
	qf.Status = core.CleanString(qf.Status, true /* lower */)
}
