package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mavuno/sokoni/core"
	"github.com/mavuno/sokoni/core/notification"
)

var (
	// errors
	ErrNotFound         = errors.New("product not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrSlugExists       = errors.New("a product with this slug already exists")
	ErrAlreadyReviewed  = errors.New("you have already reviewed this product")
	ErrNotWishlisted    = errors.New("product not in wishlist")

	NowFunc = time.Now // mockable

	productCacheTTL = time.Minute
)

const DefaultPageSize = 20

type (
	Repository interface {
		CreateCategory(ctx context.Context, cat Category) (Category, error)
		QueryAllCategories(ctx context.Context) ([]Category, error)
		GetCategoryByID(ctx context.Context, id string) (Category, error)

		CheckProductSlugUniqueness(ctx context.Context, slug string, excludedProducts ...Product) error
		CreateProduct(ctx context.Context, prod Product) (Product, error)
		GetProductByID(ctx context.Context, id string) (Product, error)
		// FilterProducts applies AND operation on available QueryFilter fields,
		// as indexed SQL queries. QueryFilter.Search does a case-insensitive
		// match on one of Product.Name or Product.Description.
		FilterProducts(ctx context.Context, filter QueryFilter) ([]Product, error)
		UpdateProduct(ctx context.Context, prod Product) (Product, error)
		SetProductStock(ctx context.Context, id string, stock int) (Product, error)
		DeleteProductsByID(ctx context.Context, ids ...string) error

		CreateReview(ctx context.Context, rev Review) (Review, error)
		QueryReviewsByProductID(ctx context.Context, productID string) ([]Review, error)

		AddWishlistItem(ctx context.Context, userID, productID string) error
		RemoveWishlistItem(ctx context.Context, userID, productID string) error
		QueryWishlistProducts(ctx context.Context, userID string) ([]Product, error)
		QueryWishlistUserIDs(ctx context.Context, productID string) ([]string, error)

		// QueryProductBuyerIDs finds users whose past orders contain the product,
		// via an indexed order_items lookup.
		QueryProductBuyerIDs(ctx context.Context, productID string) ([]string, error)
		QueryAdminIDs(ctx context.Context) ([]string, error)
	}

	Service struct {
		repo     Repository
		notifSvc *notification.Service
		cache    core.Cache
	}
)

func NewService(repo Repository, notifSvc *notification.Service, cache core.Cache) *Service {
	return &Service{repo: repo, notifSvc: notifSvc, cache: cache}
}

// Categories

func (svc *Service) CreateCategory(ctx context.Context, nc NewCategory) (Category, error) {
	cat := Category{
		ID:   uuid.NewString(),
		Name: nc.Name,
		Slug: nc.Slug,
	}
	return svc.repo.CreateCategory(ctx, cat)
}

func (svc *Service) QueryAllCategories(ctx context.Context) ([]Category, error) {
	return svc.repo.QueryAllCategories(ctx)
}

// Products

func (svc *Service) CheckSlugUniqueness(ctx context.Context, slug string, exclProds ...Product) error {
	if err := svc.repo.CheckProductSlugUniqueness(ctx, slug, exclProds...); err != nil {
		if err == ErrSlugExists {
			return core.NewValidationError(err, core.FieldError{Field: "slug", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) CreateProduct(ctx context.Context, np NewProduct) (Product, error) {
	if err := svc.CheckSlugUniqueness(ctx, np.Slug); err != nil {
		return Product{}, err
	}
	if _, err := svc.repo.GetCategoryByID(ctx, np.CategoryID); err != nil {
		if err == ErrCategoryNotFound {
			return Product{}, core.NewValidationError(err, core.FieldError{Field: "category_id", Error: err.Error()})
		}
		return Product{}, err
	}

	now := NowFunc().UTC()
	prod := Product{
		ID:          uuid.NewString(),
		Name:        np.Name,
		Slug:        np.Slug,
		Description: np.Description,
		Price:       np.Price,
		Stock:       np.Stock,
		CategoryID:  np.CategoryID,
		Tags:        np.Tags,
		Image:       np.Image,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateProduct(ctx, prod)
}

// GetByID reads through the product cache (60s TTL). A broken cache never
// fails the read.
func (svc *Service) GetByID(ctx context.Context, id string) (Product, error) {
	key := productCacheKey(id)
	var prod Product
	if found, err := svc.cache.Get(ctx, key, &prod); err == nil && found {
		return prod, nil
	}
	prod, err := svc.repo.GetProductByID(ctx, id)
	if err != nil {
		return Product{}, err
	}
	_ = svc.cache.Set(ctx, key, prod, productCacheTTL)
	return prod, nil
}

func (svc *Service) Filter(ctx context.Context, filter QueryFilter) ([]Product, error) {
	return svc.repo.FilterProducts(ctx, filter)
}

// Update overwrites the product's mutable fields. A price drop fans out one
// notification per wishlister; the fan-out is best effort.
func (svc *Service) Update(ctx context.Context, id string, up UpdateProduct) (Product, error) {
	orig, err := svc.repo.GetProductByID(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if err = up.Validate(orig); err != nil {
		return Product{}, err
	}

	prod := orig
	prod.Name = up.Name
	prod.Description = *up.Description
	prod.Price = up.Price
	prod.CategoryID = up.CategoryID
	prod.Tags = up.Tags
	prod.Image = *up.Image
	prod.UpdatedAt = NowFunc().UTC()

	prod, err = svc.repo.UpdateProduct(ctx, prod)
	if err != nil {
		return Product{}, err
	}
	_ = svc.cache.Delete(ctx, productCacheKey(id))

	if prod.Price < orig.Price {
		svc.notifyPriceDrop(ctx, prod, orig.Price)
	}
	return prod, nil
}

// SetStock writes an absolute stock value and runs the threshold notifier:
// crossing the low-stock level downward notifies every admin; crossing it
// upward notifies every wishlister and every past buyer of the product.
func (svc *Service) SetStock(ctx context.Context, id string, stock int) (Product, error) {
	orig, err := svc.repo.GetProductByID(ctx, id)
	if err != nil {
		return Product{}, err
	}
	prod, err := svc.repo.SetProductStock(ctx, id, stock)
	if err != nil {
		return Product{}, err
	}
	_ = svc.cache.Delete(ctx, productCacheKey(id))

	level := core.Conf.LowStockLevel
	switch {
	case orig.Stock > level && prod.Stock <= level:
		svc.notifyLowStock(ctx, prod)
	case orig.Stock <= level && prod.Stock > level:
		svc.notifyRestock(ctx, prod)
	}
	return prod, nil
}

// BulkSetStock applies updates item-by-item with no atomicity across the
// batch; on error it returns how many updates were applied before it.
func (svc *Service) BulkSetStock(ctx context.Context, bu BulkStockUpdate) (applied int, err error) {
	for _, upd := range bu.Updates {
		if _, err = svc.SetStock(ctx, upd.ProductID, upd.Stock); err != nil {
			return applied, err
		}
		applied++
	}
	return applied, nil
}

// Delete removes products unconditionally.
func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	if err := svc.repo.DeleteProductsByID(ctx, ids...); err != nil {
		return err
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, productCacheKey(id))
	}
	_ = svc.cache.Delete(ctx, keys...)
	return nil
}

// Reviews

// AddReview inserts a review; a second review by the same user for the same
// product fails with ErrAlreadyReviewed.
func (svc *Service) AddReview(ctx context.Context, userID, productID string, nr NewReview) (Review, error) {
	if _, err := svc.repo.GetProductByID(ctx, productID); err != nil {
		return Review{}, err
	}
	rev := Review{
		ID:        uuid.NewString(),
		UserID:    userID,
		ProductID: productID,
		Rating:    nr.Rating,
		Comment:   nr.Comment,
		CreatedAt: NowFunc().UTC(),
	}
	rev, err := svc.repo.CreateReview(ctx, rev)
	if err != nil {
		if err == ErrAlreadyReviewed {
			return Review{}, core.NewValidationError(err, core.FieldError{Field: "product_id", Error: err.Error()})
		}
		return Review{}, err
	}
	return rev, nil
}

func (svc *Service) QueryReviews(ctx context.Context, productID string) ([]Review, error) {
	return svc.repo.QueryReviewsByProductID(ctx, productID)
}

// Wishlist

func (svc *Service) AddToWishlist(ctx context.Context, userID, productID string) error {
	if _, err := svc.repo.GetProductByID(ctx, productID); err != nil {
		return err
	}
	return svc.repo.AddWishlistItem(ctx, userID, productID)
}

func (svc *Service) RemoveFromWishlist(ctx context.Context, userID, productID string) error {
	return svc.repo.RemoveWishlistItem(ctx, userID, productID)
}

func (svc *Service) QueryWishlist(ctx context.Context, userID string) ([]Product, error) {
	return svc.repo.QueryWishlistProducts(ctx, userID)
}

// Fan-out

func (svc *Service) notifyPriceDrop(ctx context.Context, prod Product, oldPrice int64) {
	userIDs, err := svc.repo.QueryWishlistUserIDs(ctx, prod.ID)
	if err != nil {
		return
	}
	_ = svc.notifSvc.Broadcast(ctx, userIDs,
		notification.TypePriceDrop, "Price drop",
		fmt.Sprintf("%s is now %s (was %s).", prod.Name, core.FormatPrice(prod.Price), core.FormatPrice(oldPrice)),
		"/products/"+prod.Slug)
}

func (svc *Service) notifyLowStock(ctx context.Context, prod Product) {
	adminIDs, err := svc.repo.QueryAdminIDs(ctx)
	if err != nil {
		return
	}
	_ = svc.notifSvc.Broadcast(ctx, adminIDs,
		notification.TypeLowStock, "Low stock",
		fmt.Sprintf("%s is down to %d units.", prod.Name, prod.Stock),
		"/admin/products/"+prod.ID)
}

func (svc *Service) notifyRestock(ctx context.Context, prod Product) {
	wishers, err := svc.repo.QueryWishlistUserIDs(ctx, prod.ID)
	if err != nil {
		return
	}
	buyers, err := svc.repo.QueryProductBuyerIDs(ctx, prod.ID)
	if err != nil {
		return
	}
	seen := make(map[string]bool, len(wishers)+len(buyers))
	userIDs := make([]string, 0, len(wishers)+len(buyers))
	for _, id := range append(wishers, buyers...) {
		if !seen[id] {
			seen[id] = true
			userIDs = append(userIDs, id)
		}
	}
	_ = svc.notifSvc.Broadcast(ctx, userIDs,
		notification.TypeRestock, "Back in stock",
		fmt.Sprintf("%s is back in stock.", prod.Name),
		"/products/"+prod.Slug)
}


func productCacheKey(id string) string { return "product:" + id }
