package catalog

import (
	"time"

	"github.com/mavuno/sokoni/core"
)

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Product is a flat catalog document. Image is an opaque storage id; the
// upload pipeline lives outside this service.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	Price       int64     `json:"price"` // cents
	Stock       int       `json:"stock"`
	CategoryID  string    `json:"category_id"`
	Tags        []string  `json:"tags"`
	Image       string    `json:"image,omitempty"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

// Review is one per (user, product); the pair is enforced by a unique index.
type Review struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ProductID string    `json:"product_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

type NewCategory struct {
	Name string `json:"name" validate:"required"`
	Slug string `json:"slug" validate:"required,alphanumdash"`
}

func (nc *NewCategory) Validate() error {
	nc.Name = core.CleanString(nc.Name)
	nc.Slug = core.CleanString(nc.Slug, true /* lower */)
	return core.Validate.Struct(nc)
}

type NewProduct struct {
	Name        string   `json:"name" validate:"required"`
	Slug        string   `json:"slug" validate:"required,alphanumdash"`
	Description string   `json:"description"`
	Price       int64    `json:"price" validate:"required,gt=0"`
	Stock       int      `json:"stock" validate:"gte=0"`
	CategoryID  string   `json:"category_id" validate:"required"`
	Tags        []string `json:"tags"`
	Image       string   `json:"image"`
}

func (np *NewProduct) Validate() error {
	np.Name = core.CleanString(np.Name)
	np.Slug = core.CleanString(np.Slug, true /* lower */)
	return core.Validate.Struct(np)
}

// UpdateProduct defines what information may be provided to modify an existing Product.
// Stock is deliberately absent; stock moves through SetStock/BulkSetStock only.
type UpdateProduct struct {
	Name        string   `json:"name"`
	Description *string  `json:"description"`
	Price       int64    `json:"price" validate:"omitempty,gt=0"`
	CategoryID  string   `json:"category_id"`
	Tags        []string `json:"tags"`
	Image       *string  `json:"image"`
}

func (up *UpdateProduct) Validate(orig Product) error {
	name := core.CleanString(up.Name)
	if name != "" {
		up.Name = name
	} else {
		up.Name = orig.Name
	}
	if up.Description == nil {
		up.Description = &orig.Description
	}
	if up.Price == 0 {
		up.Price = orig.Price
	}
	if up.CategoryID == "" {
		up.CategoryID = orig.CategoryID
	}
	if up.Tags == nil {
		up.Tags = orig.Tags
	}
	if up.Image == nil {
		up.Image = &orig.Image
	}
	return core.Validate.Struct(up)
}

type NewReview struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment"`
}

func (nr *NewReview) Validate() error {
	nr.Comment = core.CleanString(nr.Comment)
	return core.Validate.Struct(nr)
}

// StockUpdate is one line of a bulk stock write; Stock is the absolute new value.
type StockUpdate struct {
	ProductID string `json:"product_id" validate:"required"`
	Stock     int    `json:"stock" validate:"gte=0"`
}

type BulkStockUpdate struct {
	Updates []StockUpdate `json:"updates" validate:"required,min=1,dive"`
}

func (bu *BulkStockUpdate) Validate() error { return core.Validate.Struct(bu) }

type QueryFilter struct {
	Search     string `query:"search"`
	CategoryID string `query:"category_id"`
	Tag        string `query:"tag"`
	// SortPrice orders by price when set to "asc" or "desc"; default is newest first.
	SortPrice string `query:"sort_price"`
	// Page is 1-based; zero means no pagination.
	Page     int `query:"page"`
	PageSize int `query:"page_size"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.CategoryID == "" && qf.Tag == "" && qf.SortPrice == "" && qf.Page == 0
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Tag = core.CleanString(qf.Tag, true /* lower */)
	qf.SortPrice = core.CleanString(qf.SortPrice, true /* lower */)
	if qf.Page > 0 && qf.PageSize <= 0 {
		qf.PageSize = DefaultPageSize
	}
}
