package cart

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/mavuno/sokoni/core/catalog"
)

var (
	// errors
	ErrNotFound     = errors.New("cart not found")
	ErrItemNotFound = errors.New("item not in cart")

	NowFunc = time.Now // mockable
)

type (
	Repository interface {
		GetCartByUserID(ctx context.Context, userID string) (Cart, error)
		CreateCart(ctx context.Context, c Cart) (Cart, error)
		// UpdateCartItems replaces the cart's whole item list.
		UpdateCartItems(ctx context.Context, cartID string, items []Item, updatedAt time.Time) error
	}

	Service struct {
		repo       Repository
		catalogSvc *catalog.Service
	}
)

func NewService(repo Repository, catalogSvc *catalog.Service) *Service {
	return &Service{repo: repo, catalogSvc: catalogSvc}
}

// Get returns the user's cart, lazily creating an empty one.
func (svc *Service) Get(ctx context.Context, userID string) (Cart, error) {
	c, err := svc.repo.GetCartByUserID(ctx, userID)
	if err == ErrNotFound {
		now := NowFunc().UTC()
		return svc.repo.CreateCart(ctx, Cart{
			ID:        uuid.NewString(),
			UserID:    userID,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	return c, err
}

// Add puts a product in the cart: an existing product id increments its
// quantity, a new id appends a line item with the product's current
// name/price/image snapshotted in.
func (svc *Service) Add(ctx context.Context, userID string, ai AddItem) (Cart, error) {
	c, err := svc.Get(ctx, userID)
	if err != nil {
		return Cart{}, err
	}

	var found bool
	for i := range c.Items {
		if c.Items[i].ProductID == ai.ProductID {
			c.Items[i].Quantity += ai.Quantity
			found = true
			break
		}
	}
	if !found {
		prod, err := svc.catalogSvc.GetByID(ctx, ai.ProductID)
		if err != nil {
			return Cart{}, err
		}
		c.Items = append(c.Items, Item{
			ProductID: prod.ID,
			Name:      prod.Name,
			Price:     prod.Price,
			Quantity:  ai.Quantity,
			Image:     prod.Image,
		})
	}
	return svc.save(ctx, c)
}

// UpdateQuantity sets an item's quantity; zero removes the line.
func (svc *Service) UpdateQuantity(ctx context.Context, userID, productID string, quantity int) (Cart, error) {
	c, err := svc.Get(ctx, userID)
	if err != nil {
		return Cart{}, err
	}

	idx := -1
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Cart{}, ErrItemNotFound
	}
	if quantity == 0 {
		c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
	} else {
		c.Items[idx].Quantity = quantity
	}
	return svc.save(ctx, c)
}

func (svc *Service) Remove(ctx context.Context, userID, productID string) (Cart, error) {
	return svc.UpdateQuantity(ctx, userID, productID, 0)
}

func (svc *Service) Clear(ctx context.Context, userID string) (Cart, error) {
	c, err := svc.Get(ctx, userID)
	if err != nil {
		return Cart{}, err
	}
	c.Items = nil
	return svc.save(ctx, c)
}

func (svc *Service) save(ctx context.Context, c Cart) (Cart, error) {
	c.UpdatedAt = NowFunc().UTC()
	if err := svc.repo.UpdateCartItems(ctx, c.ID, c.Items, c.UpdatedAt); err != nil {
		return Cart{}, err
	}
	return c, nil
}
