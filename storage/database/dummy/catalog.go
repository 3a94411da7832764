package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/mavuno/sokoni/core/catalog"
)

type catalogRepository struct {
	db    *catalogTable
	users *userTable
	order *orderTable
}

var _ catalog.Repository = (*catalogRepository)(nil) // interface compliance check

func NewCatalogRepository(db *DB) catalog.Repository {
	return &catalogRepository{db: db.catalog, users: db.user, order: db.order}
}

// Categories

func (repo *catalogRepository) CreateCategory(ctx context.Context, cat catalog.Category) (catalog.Category, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, c := range repo.db.categories {
		if c.Slug == cat.Slug {
			return catalog.Category{}, catalog.ErrSlugExists
		}
	}
	repo.db.categories[cat.ID] = &cat
	return cat, nil
}

func (repo *catalogRepository) QueryAllCategories(ctx context.Context) ([]catalog.Category, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	cats := make([]catalog.Category, 0, len(repo.db.categories))
	for _, cat := range repo.db.categories {
		cats = append(cats, *cat)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i].Name < cats[j].Name })
	return cats, nil
}

func (repo *catalogRepository) GetCategoryByID(ctx context.Context, id string) (catalog.Category, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if cat, ok := repo.db.categories[id]; ok {
		return *cat, nil
	}
	return catalog.Category{}, catalog.ErrCategoryNotFound
}

// Products

func (repo *catalogRepository) queryProducts() []catalog.Product {
	prods := make([]catalog.Product, 0, len(repo.db.products))
	for _, prod := range repo.db.products {
		prods = append(prods, *prod)
	}
	sort.Slice(prods, func(i, j int) bool { return prods[i].CreatedAt.After(prods[j].CreatedAt) })
	return prods
}

func (repo *catalogRepository) CheckProductSlugUniqueness(ctx context.Context, slug string, excludedProducts ...catalog.Product) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, prod := range repo.db.products {
		if prod.Slug != slug {
			continue
		}
		excluded := false
		for _, excl := range excludedProducts {
			if prod.ID == excl.ID {
				excluded = true
				break
			}
		}
		if !excluded {
			return catalog.ErrSlugExists
		}
	}
	return nil
}

func (repo *catalogRepository) CreateProduct(ctx context.Context, prod catalog.Product) (catalog.Product, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.products[prod.ID] = &prod
	return prod, nil
}

func (repo *catalogRepository) GetProductByID(ctx context.Context, id string) (catalog.Product, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if prod, ok := repo.db.products[id]; ok {
		return *prod, nil
	}
	return catalog.Product{}, catalog.ErrNotFound
}

func (repo *catalogRepository) FilterProducts(ctx context.Context, filter catalog.QueryFilter) ([]catalog.Product, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	prods := make([]catalog.Product, 0)
	search := strings.ToLower(filter.Search)
	for _, prod := range repo.queryProducts() {
		if search != "" &&
			!strings.Contains(strings.ToLower(prod.Name), search) &&
			!strings.Contains(strings.ToLower(prod.Description), search) {
			continue
		}
		if filter.CategoryID != "" && prod.CategoryID != filter.CategoryID {
			continue
		}
		if filter.Tag != "" {
			found := false
			for _, tag := range prod.Tags {
				if tag == filter.Tag {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		prods = append(prods, prod)
	}

	switch filter.SortPrice {
	case "asc":
		sort.Slice(prods, func(i, j int) bool { return prods[i].Price < prods[j].Price })
	case "desc":
		sort.Slice(prods, func(i, j int) bool { return prods[i].Price > prods[j].Price })
	}

	if filter.Page > 0 {
		start := (filter.Page - 1) * filter.PageSize
		if start >= len(prods) {
			return make([]catalog.Product, 0), nil
		}
		end := start + filter.PageSize
		if end > len(prods) {
			end = len(prods)
		}
		prods = prods[start:end]
	}
	return prods, nil
}

func (repo *catalogRepository) UpdateProduct(ctx context.Context, prod catalog.Product) (catalog.Product, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.products[prod.ID]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	prod.Stock = orig.Stock
	prod.CreatedAt = orig.CreatedAt
	repo.db.products[prod.ID] = &prod
	return prod, nil
}

func (repo *catalogRepository) SetProductStock(ctx context.Context, id string, stock int) (catalog.Product, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	prod, ok := repo.db.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	prod.Stock = stock
	return *prod, nil
}

func (repo *catalogRepository) DeleteProductsByID(ctx context.Context, ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, id := range ids {
		delete(repo.db.products, id)
	}
	return nil
}

// Reviews

func (repo *catalogRepository) CreateReview(ctx context.Context, rev catalog.Review) (catalog.Review, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, r := range repo.db.reviews {
		if r.UserID == rev.UserID && r.ProductID == rev.ProductID {
			return catalog.Review{}, catalog.ErrAlreadyReviewed
		}
	}
	repo.db.reviews[rev.ID] = &rev
	return rev, nil
}

func (repo *catalogRepository) QueryReviewsByProductID(ctx context.Context, productID string) ([]catalog.Review, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	revs := make([]catalog.Review, 0)
	for _, rev := range repo.db.reviews {
		if rev.ProductID == productID {
			revs = append(revs, *rev)
		}
	}
	sort.Slice(revs, func(i, j int) bool { return revs[i].CreatedAt.After(revs[j].CreatedAt) })
	return revs, nil
}

// Wishlist

func (repo *catalogRepository) AddWishlistItem(ctx context.Context, userID, productID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if repo.db.wishlists[userID] == nil {
		repo.db.wishlists[userID] = make(map[string]bool)
	}
	repo.db.wishlists[userID][productID] = true
	return nil
}

func (repo *catalogRepository) RemoveWishlistItem(ctx context.Context, userID, productID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if !repo.db.wishlists[userID][productID] {
		return catalog.ErrNotWishlisted
	}
	delete(repo.db.wishlists[userID], productID)
	return nil
}

func (repo *catalogRepository) QueryWishlistProducts(ctx context.Context, userID string) ([]catalog.Product, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	prods := make([]catalog.Product, 0)
	for productID := range repo.db.wishlists[userID] {
		if prod, ok := repo.db.products[productID]; ok {
			prods = append(prods, *prod)
		}
	}
	sort.Slice(prods, func(i, j int) bool { return prods[i].ID < prods[j].ID })
	return prods, nil
}

func (repo *catalogRepository) QueryWishlistUserIDs(ctx context.Context, productID string) ([]string, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var ids []string
	for userID, products := range repo.db.wishlists {
		if products[productID] {
			ids = append(ids, userID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (repo *catalogRepository) QueryProductBuyerIDs(ctx context.Context, productID string) ([]string, error) {
	repo.order.RLock()
	defer repo.order.RUnlock()

	seen := make(map[string]bool)
	var ids []string
	for _, ord := range repo.order.orders {
		for _, item := range ord.Items {
			if item.ProductID == productID && !seen[ord.UserID] {
				seen[ord.UserID] = true
				ids = append(ids, ord.UserID)
			}
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (repo *catalogRepository) QueryAdminIDs(ctx context.Context) ([]string, error) {
	repo.users.RLock()
	defer repo.users.RUnlock()

	var ids []string
	for _, usr := range repo.users.users {
		if usr.IsAdmin() && usr.IsActive {
			ids = append(ids, usr.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
