package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/mavuno/sokoni/core/catalog"
	"github.com/mavuno/sokoni/core/user"
)

type catalogRepository struct {
	db *sqlx.DB
}

var _ catalog.Repository = (*catalogRepository)(nil) // interface compliance check

func NewCatalogRepository(db *sqlx.DB) catalog.Repository {
	return &catalogRepository{db: db}
}

// Categories

type dbCategory struct {
	ID   string `db:"id"`
	Name string `db:"name"`
	Slug string `db:"slug"`
}

func (c dbCategory) toCore() catalog.Category {
	return catalog.Category{ID: c.ID, Name: c.Name, Slug: c.Slug}
}

func (repo *catalogRepository) CreateCategory(ctx context.Context, cat catalog.Category) (catalog.Category, error) {
	q := `INSERT INTO categories (id, name, slug) VALUES ($1, $2, $3)`
	if _, err := repo.db.ExecContext(ctx, q, cat.ID, cat.Name, cat.Slug); err != nil {
		if isUniqueViolation(err, "categories_slug_idx") {
			return catalog.Category{}, catalog.ErrSlugExists
		}
		return catalog.Category{}, errors.Wrap(err, "creating category")
	}
	return cat, nil
}

func (repo *catalogRepository) QueryAllCategories(ctx context.Context) ([]catalog.Category, error) {
	var rows []dbCategory
	q := `SELECT id, name, slug FROM categories ORDER BY name`
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying categories")
	}
	cats := make([]catalog.Category, 0, len(rows))
	for _, row := range rows {
		cats = append(cats, row.toCore())
	}
	return cats, nil
}

func (repo *catalogRepository) GetCategoryByID(ctx context.Context, id string) (catalog.Category, error) {
	var row dbCategory
	q := `SELECT id, name, slug FROM categories WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		if err == sql.ErrNoRows {
			return catalog.Category{}, catalog.ErrCategoryNotFound
		}
		return catalog.Category{}, errors.Wrap(err, "getting category")
	}
	return row.toCore(), nil
}

// Products

type dbProduct struct {
	ID          string         `db:"id"`
	Name        string         `db:"name"`
	Slug        string         `db:"slug"`
	Description string         `db:"description"`
	Price       int64          `db:"price"`
	Stock       int            `db:"stock"`
	CategoryID  string         `db:"category_id"`
	Tags        pq.StringArray `db:"tags"`
	Image       string         `db:"image"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func (p dbProduct) toCore() catalog.Product {
	return catalog.Product{
		ID:          p.ID,
		Name:        p.Name,
		Slug:        p.Slug,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		CategoryID:  p.CategoryID,
		Tags:        p.Tags,
		Image:       p.Image,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func toCoreProducts(rows []dbProduct) []catalog.Product {
	prods := make([]catalog.Product, 0, len(rows))
	for _, row := range rows {
		prods = append(prods, row.toCore())
	}
	return prods
}

const productColumns = `id, name, slug, description, price, stock, category_id, tags, image, created_at, updated_at`

func (repo *catalogRepository) CheckProductSlugUniqueness(ctx context.Context, slug string, excludedProducts ...catalog.Product) error {
	q := `SELECT COUNT(*) FROM products WHERE slug = $1`
	args := []interface{}{slug}
	if len(excludedProducts) > 0 {
		ids := make([]string, 0, len(excludedProducts))
		for _, prod := range excludedProducts {
			ids = append(ids, prod.ID)
		}
		query, inArgs, err := sqlx.In(`SELECT COUNT(*) FROM products WHERE slug = ? AND id NOT IN (?)`, slug, ids)
		if err != nil {
			return errors.Wrap(err, "checking slug uniqueness")
		}
		q, args = repo.db.Rebind(query), inArgs
	}

	var count int
	if err := repo.db.GetContext(ctx, &count, q, args...); err != nil {
		return errors.Wrap(err, "checking slug uniqueness")
	}
	if count > 0 {
		return catalog.ErrSlugExists
	}
	return nil
}

func (repo *catalogRepository) CreateProduct(ctx context.Context, prod catalog.Product) (catalog.Product, error) {
	q := `
INSERT INTO products (` + productColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := repo.db.ExecContext(ctx, q,
		prod.ID, prod.Name, prod.Slug, prod.Description, prod.Price, prod.Stock,
		prod.CategoryID, pq.StringArray(prod.Tags), prod.Image, prod.CreatedAt, prod.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "products_slug_idx") {
			return catalog.Product{}, catalog.ErrSlugExists
		}
		return catalog.Product{}, errors.Wrap(err, "creating product")
	}
	return prod, nil
}

func (repo *catalogRepository) GetProductByID(ctx context.Context, id string) (catalog.Product, error) {
	var row dbProduct
	q := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		if err == sql.ErrNoRows {
			return catalog.Product{}, catalog.ErrNotFound
		}
		return catalog.Product{}, errors.Wrap(err, "getting product")
	}
	return row.toCore(), nil
}

func (repo *catalogRepository) FilterProducts(ctx context.Context, filter catalog.QueryFilter) ([]catalog.Product, error) {
	q := `SELECT ` + productColumns + ` FROM products`
	var clauses []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		clauses = append(clauses, fmt.Sprintf("(name ILIKE %s OR description ILIKE %s)", p, p))
	}
	if filter.CategoryID != "" {
		clauses = append(clauses, "category_id = "+arg(filter.CategoryID))
	}
	if filter.Tag != "" {
		clauses = append(clauses, arg(filter.Tag)+" = ANY (tags)")
	}
	if len(clauses) > 0 {
		q += " WHERE " + strings.Join(clauses, " AND ")
	}
	switch filter.SortPrice {
	case "asc":
		q += " ORDER BY price"
	case "desc":
		q += " ORDER BY price DESC"
	default:
		q += " ORDER BY created_at DESC"
	}
	if filter.Page > 0 {
		q += " LIMIT " + arg(filter.PageSize) + " OFFSET " + arg((filter.Page-1)*filter.PageSize)
	}

	var rows []dbProduct
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "filtering products")
	}
	return toCoreProducts(rows), nil
}

func (repo *catalogRepository) UpdateProduct(ctx context.Context, prod catalog.Product) (catalog.Product, error) {
	q := `
UPDATE products
SET name = $2, slug = $3, description = $4, price = $5, category_id = $6,
    tags = $7, image = $8, updated_at = $9
WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, q,
		prod.ID, prod.Name, prod.Slug, prod.Description, prod.Price,
		prod.CategoryID, pq.StringArray(prod.Tags), prod.Image, prod.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "products_slug_idx") {
			return catalog.Product{}, catalog.ErrSlugExists
		}
		return catalog.Product{}, errors.Wrap(err, "updating product")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return prod, nil
}

func (repo *catalogRepository) SetProductStock(ctx context.Context, id string, stock int) (catalog.Product, error) {
	var row dbProduct
	q := `
UPDATE products SET stock = $2, updated_at = now()
WHERE id = $1
RETURNING ` + productColumns
	if err := repo.db.GetContext(ctx, &row, q, id, stock); err != nil {
		if err == sql.ErrNoRows {
			return catalog.Product{}, catalog.ErrNotFound
		}
		return catalog.Product{}, errors.Wrap(err, "setting product stock")
	}
	return row.toCore(), nil
}

func (repo *catalogRepository) DeleteProductsByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	q, args, err := sqlx.In(`DELETE FROM products WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "deleting products")
	}
	if _, err = repo.db.ExecContext(ctx, repo.db.Rebind(q), args...); err != nil {
		return errors.Wrap(err, "deleting products")
	}
	return nil
}

// Reviews

type dbReview struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	ProductID string    `db:"product_id"`
	Rating    int       `db:"rating"`
	Comment   string    `db:"comment"`
	CreatedAt time.Time `db:"created_at"`
}

func (r dbReview) toCore() catalog.Review {
	return catalog.Review{ID: r.ID, UserID: r.UserID, ProductID: r.ProductID, Rating: r.Rating, Comment: r.Comment, CreatedAt: r.CreatedAt}
}

func (repo *catalogRepository) CreateReview(ctx context.Context, rev catalog.Review) (catalog.Review, error) {
	q := `
INSERT INTO reviews (id, user_id, product_id, rating, comment, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := repo.db.ExecContext(ctx, q, rev.ID, rev.UserID, rev.ProductID, rev.Rating, rev.Comment, rev.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, "reviews_user_product_idx") {
			return catalog.Review{}, catalog.ErrAlreadyReviewed
		}
		return catalog.Review{}, errors.Wrap(err, "creating review")
	}
	return rev, nil
}

func (repo *catalogRepository) QueryReviewsByProductID(ctx context.Context, productID string) ([]catalog.Review, error) {
	var rows []dbReview
	q := `
SELECT id, user_id, product_id, rating, comment, created_at
FROM reviews WHERE product_id = $1
ORDER BY created_at DESC`
	if err := repo.db.SelectContext(ctx, &rows, q, productID); err != nil {
		return nil, errors.Wrap(err, "querying reviews")
	}
	revs := make([]catalog.Review, 0, len(rows))
	for _, row := range rows {
		revs = append(revs, row.toCore())
	}
	return revs, nil
}

// Wishlist

func (repo *catalogRepository) AddWishlistItem(ctx context.Context, userID, productID string) error {
	q := `
INSERT INTO wishlists (user_id, product_id, created_at)
VALUES ($1, $2, now())
ON CONFLICT (user_id, product_id) DO NOTHING`
	if _, err := repo.db.ExecContext(ctx, q, userID, productID); err != nil {
		return errors.Wrap(err, "adding wishlist item")
	}
	return nil
}

func (repo *catalogRepository) RemoveWishlistItem(ctx context.Context, userID, productID string) error {
	q := `DELETE FROM wishlists WHERE user_id = $1 AND product_id = $2`
	res, err := repo.db.ExecContext(ctx, q, userID, productID)
	if err != nil {
		return errors.Wrap(err, "removing wishlist item")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return catalog.ErrNotWishlisted
	}
	return nil
}

func (repo *catalogRepository) QueryWishlistProducts(ctx context.Context, userID string) ([]catalog.Product, error) {
	var rows []dbProduct
	q := `
SELECT p.id, p.name, p.slug, p.description, p.price, p.stock, p.category_id, p.tags, p.image, p.created_at, p.updated_at
FROM products p
JOIN wishlists w ON w.product_id = p.id
WHERE w.user_id = $1
ORDER BY w.created_at DESC`
	if err := repo.db.SelectContext(ctx, &rows, q, userID); err != nil {
		return nil, errors.Wrap(err, "querying wishlist")
	}
	return toCoreProducts(rows), nil
}

func (repo *catalogRepository) QueryWishlistUserIDs(ctx context.Context, productID string) ([]string, error) {
	var ids []string
	q := `SELECT user_id FROM wishlists WHERE product_id = $1`
	if err := repo.db.SelectContext(ctx, &ids, q, productID); err != nil {
		return nil, errors.Wrap(err, "querying wishlist users")
	}
	return ids, nil
}

func (repo *catalogRepository) QueryProductBuyerIDs(ctx context.Context, productID string) ([]string, error) {
	var ids []string
	q := `
SELECT DISTINCT o.user_id
FROM orders o
JOIN order_items oi ON oi.order_id = o.id
WHERE oi.product_id = $1`
	if err := repo.db.SelectContext(ctx, &ids, q, productID); err != nil {
		return nil, errors.Wrap(err, "querying product buyers")
	}
	return ids, nil
}

func (repo *catalogRepository) QueryAdminIDs(ctx context.Context) ([]string, error) {
	var ids []string
	q := `SELECT id FROM users WHERE role = $1 AND is_active`
	if err := repo.db.SelectContext(ctx, &ids, q, user.RoleAdmin); err != nil {
		return nil, errors.Wrap(err, "querying admin ids")
	}
	return ids, nil
}
